package arena

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dreamerbot/arena-go/internal/config"
	"github.com/dreamerbot/arena-go/internal/cv"
	"github.com/dreamerbot/arena-go/internal/input"
	"github.com/dreamerbot/arena-go/pkg/templates"
)

// TemplateFinder locates a named reference image in the current window
// frame. Satisfied by cv.Service.
type TemplateFinder interface {
	FindTemplate(name string) (cv.Match, error)
}

// AttackOutcome is the result of one attack attempt. Every variant is
// terminal for the attempt; only AttackSuccess and AttackSkip let the phase
// continue to the next target.
type AttackOutcome int

const (
	// AttackSuccess - battle fought and the roster returned to.
	AttackSuccess AttackOutcome = iota
	// AttackSkip - this target was abandoned (navigation desync, vanished
	// availability, template miss or battle timeout); the cursor advances.
	AttackSkip
	// AttackNoMore - the target list is exhausted.
	AttackNoMore
	// AttackMaxReached - the per-cycle battle ceiling was hit.
	AttackMaxReached
	// AttackListInvalid - the roster reshuffled; a rescan is required.
	AttackListInvalid
	// AttackExhausted - out of attack tokens with no free refill.
	AttackExhausted
	// AttackStopped - the cooperative stop signal fired.
	AttackStopped
)

func (o AttackOutcome) String() string {
	switch o {
	case AttackSuccess:
		return "success"
	case AttackSkip:
		return "skip"
	case AttackNoMore:
		return "no_more"
	case AttackMaxReached:
		return "max_reached"
	case AttackListInvalid:
		return "list_invalid"
	case AttackExhausted:
		return "exhausted"
	case AttackStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Orchestrator owns the battle cycle state: the target cursor, battles
// completed, the list-valid flag and the token resource. It drives the
// scanner's scroll primitive and the template-matched UI buttons.
type Orchestrator struct {
	scanner *Scanner
	finder  TemplateFinder
	frames  cv.Capturer
	input   input.Driver
	cfg     *config.Config
	clock   Clock
	log     *logrus.Entry
	stop    func() bool

	targets          []Reading
	cursor           int
	battlesCompleted int
	maxBattles       int
	listValid        bool

	onBattle func(target Reading, outcome AttackOutcome)
}

// NewOrchestrator wires an orchestrator. stop is the cooperative stop
// signal; nil means never stop.
func NewOrchestrator(scanner *Scanner, finder TemplateFinder, frames cv.Capturer, driver input.Driver, cfg *config.Config, clock Clock, log *logrus.Entry, stop func() bool) *Orchestrator {
	if stop == nil {
		stop = func() bool { return false }
	}
	return &Orchestrator{
		scanner:    scanner,
		finder:     finder,
		frames:     frames,
		input:      driver,
		cfg:        cfg,
		clock:      clock,
		log:        log,
		stop:       stop,
		maxBattles: cfg.MaxBattles,
		listValid:  true,
	}
}

// SetBattleHook registers a callback invoked after each attack attempt that
// reached a target (success or skip). Used for run journaling.
func (o *Orchestrator) SetBattleHook(hook func(target Reading, outcome AttackOutcome)) {
	o.onBattle = hook
}

func (o *Orchestrator) reportBattle(target Reading, outcome AttackOutcome) {
	if o.onBattle != nil {
		o.onBattle(target, outcome)
	}
}

// PrepareTargets resets the cycle state and schedules the registry into an
// ordered target list.
func (o *Orchestrator) PrepareTargets(registry *Registry) []Reading {
	o.targets = Schedule(registry, o.cfg.WeakestFirst, o.cfg.MaxOpponentPower)
	o.cursor = 0
	o.battlesCompleted = 0
	o.listValid = true

	o.log.WithFields(logrus.Fields{
		"targets":       len(o.targets),
		"weakest_first": o.cfg.WeakestFirst,
	}).Info("Targets scheduled")

	return o.targets
}

// BattlesCompleted returns the number of battles fought this cycle.
func (o *Orchestrator) BattlesCompleted() int {
	return o.battlesCompleted
}

// ListValid reports whether the roster is still believed to match the scan.
func (o *Orchestrator) ListValid() bool {
	return o.listValid
}

// RemainingTargets returns how many scheduled targets have not been
// attempted yet.
func (o *Orchestrator) RemainingTargets() int {
	if o.cursor >= len(o.targets) {
		return 0
	}
	return len(o.targets) - o.cursor
}

// AttackNext attacks the target under the cursor, walking the per-target
// sub-procedure: navigate, click battle, start fight, await completion,
// return to the roster. Failures along the way classify as AttackSkip and
// advance the cursor; only infrastructure faults surface as errors.
func (o *Orchestrator) AttackNext() (AttackOutcome, error) {
	if !o.listValid {
		return AttackListInvalid, nil
	}
	if o.cursor >= len(o.targets) {
		return AttackNoMore, nil
	}
	if o.battlesCompleted >= o.maxBattles {
		return AttackMaxReached, nil
	}

	// Tokens are checked before every attack, not once per cycle: a refill
	// can happen mid-cycle and resets the roster view.
	status, err := o.EnsureTokens()
	if err != nil {
		return AttackSkip, err
	}
	if status == TokensExhausted {
		return AttackExhausted, nil
	}

	target := o.targets[o.cursor]
	o.log.WithFields(logrus.Fields{
		"target":  o.cursor + 1,
		"of":      len(o.targets),
		"power":   target.Power,
		"scroll":  target.ScrollIndex,
		"current": o.scanner.ScrollIndex(),
	}).Info("Attacking opponent")

	outcome, err := o.attackTarget(target)
	if err != nil {
		return outcome, err
	}

	o.cursor++
	if outcome == AttackSuccess {
		o.battlesCompleted++
		o.log.WithField("battles", o.battlesCompleted).Info("Battle complete")
	}
	o.reportBattle(target, outcome)

	return outcome, nil
}

// attackTarget runs the per-target sub-procedure and classifies the result.
// It never advances the cursor; AttackNext owns that.
func (o *Orchestrator) attackTarget(target Reading) (AttackOutcome, error) {
	visible, err := o.navigateToTarget(target)
	if err != nil {
		return AttackSkip, err
	}
	if !visible {
		o.log.WithField("power", target.Power).Warn("Target not visible after corrective scrolling, skipping")
		return AttackSkip, nil
	}

	clicked, err := o.clickBattleButton(target)
	if err != nil {
		return AttackSkip, err
	}
	if !clicked {
		return AttackSkip, nil
	}

	// Team selection screen load.
	o.clock.Sleep(time.Second)

	if ok, err := o.clickTemplate(templates.StartFight, time.Second); err != nil {
		return AttackSkip, err
	} else if !ok {
		o.log.Warn("Start Fight button not found, skipping")
		return AttackSkip, nil
	}

	if ok, err := o.waitForBattleComplete(); err != nil {
		return AttackSkip, err
	} else if !ok {
		o.log.Warn("Battle completion not detected, skipping")
		return AttackSkip, nil
	}

	o.clock.Sleep(time.Second)

	if ok, err := o.clickReturnArena(); err != nil {
		return AttackSkip, err
	} else if !ok {
		o.log.Warn("Return Arena button not found, skipping")
		return AttackSkip, nil
	}

	// The game resets the roster to the top after a battle; trust that over
	// any accumulated count.
	o.scanner.ResetScroll()
	o.clock.Sleep(o.cfg.PostBattleDelay)

	return AttackSuccess, nil
}

// RunAttackPhase attacks targets until a stopping condition. With single
// set, only one attempt is made.
func (o *Orchestrator) RunAttackPhase(single bool) (AttackOutcome, error) {
	if len(o.targets) == 0 {
		o.log.Info("No opponents to attack")
		return AttackNoMore, nil
	}

	o.log.WithField("targets", len(o.targets)).Info("Attack phase starting")

	if single {
		return o.AttackNext()
	}

	for {
		if o.stop() {
			o.log.Warn("Stop requested")
			return AttackStopped, nil
		}

		outcome, err := o.AttackNext()
		if err != nil {
			return outcome, err
		}

		switch outcome {
		case AttackSuccess:
			o.clock.Sleep(o.cfg.BattleDelay)
			continue
		case AttackSkip:
			continue
		default:
			o.log.WithFields(logrus.Fields{
				"outcome": outcome.String(),
				"battles": o.battlesCompleted,
			}).Info("Attack phase done")
			return outcome, nil
		}
	}
}

// navigateToTarget scrolls to the target's recorded position and verifies
// its power is readable. If not, one corrective scroll forward then two
// backward are tried before giving up and restoring the expected position.
func (o *Orchestrator) navigateToTarget(target Reading) (bool, error) {
	if err := o.scanner.ScrollTo(target.ScrollIndex); err != nil {
		return false, err
	}
	o.clock.Sleep(o.cfg.ScanDelay)

	visible, err := o.scanner.VerifyVisible(target.Power)
	if err != nil || visible {
		return visible, err
	}

	if err := o.scanner.scrollDown(); err != nil {
		return false, err
	}
	o.clock.Sleep(o.cfg.ScanDelay)
	visible, err = o.scanner.VerifyVisible(target.Power)
	if err != nil || visible {
		return visible, err
	}

	if err := o.scanner.scrollUp(); err != nil {
		return false, err
	}
	if err := o.scanner.scrollUp(); err != nil {
		return false, err
	}
	o.clock.Sleep(o.cfg.ScanDelay)
	visible, err = o.scanner.VerifyVisible(target.Power)
	if err != nil || visible {
		return visible, err
	}

	// Restore the expected position so the next target starts from a known
	// index.
	if err := o.scanner.scrollDown(); err != nil {
		return false, err
	}
	return false, nil
}

// clickBattleButton re-checks availability at the target's stored row
// position and clicks the attack control. The stored position is
// authoritative; re-scanning for it would trade a reliable coordinate for a
// fresh OCR roll of the dice.
func (o *Orchestrator) clickBattleButton(target Reading) (bool, error) {
	frame, err := o.frames.CaptureFrame()
	if err != nil {
		return false, fmt.Errorf("capturing frame for battle click: %w", err)
	}

	if !o.scanner.CheckAvailable(frame, target.ScreenY) {
		o.log.WithField("power", target.Power).Warn("Opponent no longer available, skipping")
		return false, nil
	}

	bounds, err := o.frames.Bounds()
	if err != nil {
		return false, fmt.Errorf("locating window for battle click: %w", err)
	}

	buttonX := bounds.Min.X + int(float64(frame.Bounds().Dx())*o.cfg.BattleButtonX)
	// The power label sits at the bottom of the row; the button center is
	// higher.
	buttonY := bounds.Min.Y + target.ScreenY + o.cfg.ButtonYOffsetPx

	if err := o.input.MoveClick(buttonX, buttonY); err != nil {
		return false, fmt.Errorf("clicking battle button: %w", err)
	}
	return true, nil
}

// waitForBattleComplete polls for the battle-complete screen at a bounded
// interval until the timeout. A timeout is a per-target failure, not a run
// failure.
func (o *Orchestrator) waitForBattleComplete() (bool, error) {
	deadline := o.clock.Now().Add(o.cfg.BattleTimeout)

	for o.clock.Now().Before(deadline) {
		ok, err := o.clickTemplate(templates.BattleComplete, time.Second)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		o.clock.Sleep(o.cfg.BattlePollInterval)
	}

	o.log.WithField("timeout", o.cfg.BattleTimeout).Warn("Timed out waiting for battle to complete")
	return false, nil
}

// clickReturnArena retries the return button a fixed number of times.
func (o *Orchestrator) clickReturnArena() (bool, error) {
	for attempt := 0; attempt < o.cfg.ReturnAttempts; attempt++ {
		ok, err := o.clickTemplate(templates.ReturnArena, 1500*time.Millisecond)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if attempt < o.cfg.ReturnAttempts-1 {
			o.clock.Sleep(o.cfg.ReturnInterval)
		}
	}
	return false, nil
}

// EnsureTokens checks the attack-token counter and attempts a free refill
// when it reads empty. A refill resets the roster to the top, so tracked
// scroll position is reset with it; no refill means the run is over and any
// open dialog is escaped.
func (o *Orchestrator) EnsureTokens() (TokenStatus, error) {
	match, err := o.finder.FindTemplate(templates.EmptyTokens)
	if err != nil {
		return TokensOK, fmt.Errorf("checking token counter: %w", err)
	}
	if !match.Found {
		return TokensOK, nil
	}

	o.log.Warn("Attack tokens empty, attempting refill")

	bounds, err := o.frames.Bounds()
	if err != nil {
		return TokensOK, fmt.Errorf("locating window for token refill: %w", err)
	}

	// The + control sits just left of the token counter.
	plusX := bounds.Min.X + match.Center.X - match.Size.X/2 - 20
	plusY := bounds.Min.Y + match.Center.Y
	if err := o.input.MoveClick(plusX, plusY); err != nil {
		return TokensOK, fmt.Errorf("clicking token refill control: %w", err)
	}
	o.clock.Sleep(1500 * time.Millisecond)

	o.clock.Sleep(500 * time.Millisecond)
	ok, err := o.clickTemplate(templates.FreeTokens, 2*time.Second)
	if err != nil {
		return TokensOK, err
	}
	if ok {
		o.log.Info("Tokens refilled (free)")
		o.scanner.ResetScroll()
		return TokensRefilled, nil
	}

	o.log.Warn("No free token refill available")
	if err := o.input.PressEscape(); err != nil {
		return TokensExhausted, fmt.Errorf("escaping token dialog: %w", err)
	}
	o.clock.Sleep(500 * time.Millisecond)
	return TokensExhausted, nil
}

// VerifyListUnchanged re-samples the visible powers and intersects them with
// the set expected at the current scroll position. An empty intersection
// means the roster silently reshuffled (tier bracket change); the list-valid
// flag is dropped and the caller must rescan.
func (o *Orchestrator) VerifyListUnchanged(expected map[int]bool) (bool, error) {
	current, err := o.scanner.VisiblePowers()
	if err != nil {
		return false, err
	}

	for power := range current {
		if expected[power] {
			return true, nil
		}
	}

	o.log.WithFields(logrus.Fields{
		"expected": setKeys(expected),
		"found":    setKeys(current),
	}).Warn("Opponent list changed, rescan needed")
	o.listValid = false
	return false, nil
}

// NeedsRefresh reports whether the roster should be refreshed: true when an
// unattacked too-strong target remains and it is still the first visible
// row, meaning further attacks would just re-face it.
func (o *Orchestrator) NeedsRefresh() (bool, error) {
	if o.cursor >= len(o.targets) {
		return false, nil
	}
	remaining := o.targets[o.cursor].Power

	first, found, err := o.scanner.FirstVisiblePower()
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	return first == remaining, nil
}

// RefreshList requests a new roster, preferring the free refresh.
func (o *Orchestrator) RefreshList() (bool, error) {
	ok, err := o.clickTemplate(templates.FreeRefresh, 2*time.Second)
	if err != nil {
		return false, err
	}
	if ok {
		o.log.Info("Refreshing opponent list (free)")
		return true, nil
	}

	ok, err = o.clickTemplate(templates.PayRefresh, 2*time.Second)
	if err != nil {
		return false, err
	}
	if ok {
		o.log.Info("Refreshing opponent list (paid)")
		return true, nil
	}

	o.log.Warn("No refresh button found")
	return false, nil
}

// clickTemplate finds a named template and clicks its center, waiting for
// the screen to settle afterwards.
func (o *Orchestrator) clickTemplate(name string, waitAfter time.Duration) (bool, error) {
	match, err := o.finder.FindTemplate(name)
	if err != nil {
		return false, fmt.Errorf("finding template %q: %w", name, err)
	}
	if !match.Found {
		return false, nil
	}

	bounds, err := o.frames.Bounds()
	if err != nil {
		return false, fmt.Errorf("locating window for template click: %w", err)
	}

	x := bounds.Min.X + match.Center.X
	y := bounds.Min.Y + match.Center.Y
	if err := o.input.MoveClick(x, y); err != nil {
		return false, fmt.Errorf("clicking template %q: %w", name, err)
	}
	o.clock.Sleep(waitAfter)
	return true, nil
}

func setKeys(set map[int]bool) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	return keys
}
