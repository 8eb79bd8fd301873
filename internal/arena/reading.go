// Package arena implements the opponent acquisition and battle orchestration
// engine: scanning the roster with scroll tracking, extracting team power
// values, scheduling targets and driving the attack state machine.
package arena

// Reading is one sighting of a roster entry. Power doubles as the identity
// key: two entries with equal power are indistinguishable, which is an
// accepted ambiguity of the roster layout rather than something to paper
// over with an invented identity.
type Reading struct {
	// Power is the opponent's team power (valid range 1,000-999,999).
	Power int
	// ScreenY is the absolute on-screen row position, used to aim the click.
	ScreenY int
	// ScrollIndex is the scroll step the reading was taken at (0 = top).
	ScrollIndex int
	// Available reports whether the attack control reads as active.
	Available bool
	// RawText is the OCR fragment the reading came from, for diagnostics.
	RawText string
}

// Registry accumulates deduplicated readings across one full scan.
// Deduplication is by power value; the first sighting wins and keeps its
// scroll index and screen position.
type Registry struct {
	readings    []Reading
	knownPowers map[int]bool

	// MaxScrollReached is the deepest scroll index that yielded a new
	// reading.
	MaxScrollReached int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{knownPowers: make(map[int]bool)}
}

// Add registers readings that carry a power not yet seen, returning how many
// were new.
func (r *Registry) Add(readings []Reading) int {
	added := 0
	for _, reading := range readings {
		if r.knownPowers[reading.Power] {
			continue
		}
		r.knownPowers[reading.Power] = true
		r.readings = append(r.readings, reading)
		added++
		if reading.ScrollIndex > r.MaxScrollReached {
			r.MaxScrollReached = reading.ScrollIndex
		}
	}
	return added
}

// Has reports whether a power is already registered.
func (r *Registry) Has(power int) bool {
	return r.knownPowers[power]
}

// Readings returns the registered readings in discovery order. The returned
// slice is a copy; the registry stays immutable from the caller's side.
func (r *Registry) Readings() []Reading {
	out := make([]Reading, len(r.readings))
	copy(out, r.readings)
	return out
}

// Len returns the number of registered readings.
func (r *Registry) Len() int {
	return len(r.readings)
}

// AvailableCount returns how many registered readings are attackable.
func (r *Registry) AvailableCount() int {
	n := 0
	for _, reading := range r.readings {
		if reading.Available {
			n++
		}
	}
	return n
}
