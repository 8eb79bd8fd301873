package arena

import "sort"

// Schedule derives an ordered target list from a scan registry: unavailable
// entries are dropped, entries above maxPower are dropped when maxPower is
// positive, and the remainder is stable-sorted by power, ascending when
// weakestFirst. Pure function; the registry is never modified.
func Schedule(registry *Registry, weakestFirst bool, maxPower int) []Reading {
	targets := make([]Reading, 0, registry.Len())
	for _, reading := range registry.Readings() {
		if !reading.Available {
			continue
		}
		if maxPower > 0 && reading.Power > maxPower {
			continue
		}
		targets = append(targets, reading)
	}

	sort.SliceStable(targets, func(i, j int) bool {
		if weakestFirst {
			return targets[i].Power < targets[j].Power
		}
		return targets[i].Power > targets[j].Power
	})

	return targets
}
