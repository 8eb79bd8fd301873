package arena

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dreamerbot/arena-go/internal/config"
	"github.com/dreamerbot/arena-go/internal/cv"
	"github.com/dreamerbot/arena-go/internal/input"
	"github.com/dreamerbot/arena-go/pkg/templates"
)

// Mode selects how much of the arena sequence a run executes.
type Mode int

const (
	// ModeContinuous - scan, attack, refresh, repeat until tokens run out
	// or a stop is requested.
	ModeContinuous Mode = iota
	// ModeScanOnly - one scan and schedule pass, no attacks.
	ModeScanOnly
	// ModeSingleAttack - one scan and at most one attack.
	ModeSingleAttack
)

func (m Mode) String() string {
	switch m {
	case ModeScanOnly:
		return "scan_only"
	case ModeSingleAttack:
		return "single_attack"
	default:
		return "continuous"
	}
}

// RunRecorder journals runs and battles. Implementations may be backed by
// anything durable; nil disables recording.
type RunRecorder interface {
	StartRun(mode string, maxBattles int) (string, error)
	RecordBattle(runID string, power int, outcome string) error
	FinishRun(runID string, cycles, battles int, outcome string) error
}

// Summary describes a finished run.
type Summary struct {
	RunID        string
	Mode         Mode
	Cycles       int
	TotalBattles int
	Opponents    int
	Stopped      bool
	Exhausted    bool
}

// Controller is the top-level run loop: window checks, menu navigation and
// the scan/attack/refresh cycle. It owns the cooperative stop flag and the
// run boundary where unexpected faults are caught.
type Controller struct {
	scanner      *Scanner
	orchestrator *Orchestrator
	frames       cv.Capturer
	input        input.Driver
	cfg          *config.Config
	clock        Clock
	log          *logrus.Entry
	recorder     RunRecorder

	stopRequested atomic.Bool
}

// NewController builds a controller around an existing scanner and
// orchestrator. The orchestrator's stop function should be the controller's
// StopRequested so both layers observe the same signal. recorder may be nil.
func NewController(scanner *Scanner, orchestrator *Orchestrator, frames cv.Capturer, driver input.Driver, cfg *config.Config, clock Clock, log *logrus.Entry, recorder RunRecorder) *Controller {
	return &Controller{
		scanner:      scanner,
		orchestrator: orchestrator,
		frames:       frames,
		input:        driver,
		cfg:          cfg,
		clock:        clock,
		log:          log,
		recorder:     recorder,
	}
}

// RequestStop asks the run to stop at the next safe point. In-flight UI
// actions complete first; there is no hard abort mid-battle.
func (c *Controller) RequestStop() {
	c.stopRequested.Store(true)
}

// StopRequested reports whether a stop was requested.
func (c *Controller) StopRequested() bool {
	return c.stopRequested.Load()
}

// Run executes the arena sequence in the given mode. Unexpected faults are
// caught at this boundary and reported as a failed run instead of crashing
// the operator surface.
func (c *Controller) Run(mode Mode) (summary Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("panic", r).Errorf("Run aborted by internal fault:\n%s", debug.Stack())
			err = fmt.Errorf("run aborted by internal fault: %v", r)
		}
	}()

	summary.Mode = mode
	c.log.WithField("mode", mode.String()).Info("Arena sequence starting")

	if err := c.checkWindow(); err != nil {
		return summary, err
	}

	runID := ""
	if c.recorder != nil {
		runID, err = c.recorder.StartRun(mode.String(), c.cfg.MaxBattles)
		if err != nil {
			// Recording is best effort; the run proceeds without it.
			c.log.WithError(err).Warn("Run journal unavailable")
			runID = ""
		}
		summary.RunID = runID
	}
	if runID != "" {
		id := runID
		c.orchestrator.SetBattleHook(func(target Reading, outcome AttackOutcome) {
			c.recordBattle(id, target.Power, outcome.String())
		})
	}

	if !c.cfg.SkipNavigation {
		if err := c.NavigateToArena(); err != nil {
			c.finishRecord(runID, &summary, "navigation_failed")
			return summary, err
		}
	}

	switch mode {
	case ModeScanOnly:
		err = c.runScanOnly(&summary)
	case ModeSingleAttack:
		err = c.runSingleAttack(&summary)
	default:
		err = c.runContinuous(&summary)
	}

	outcome := "complete"
	switch {
	case err != nil:
		outcome = "failed"
	case summary.Stopped:
		outcome = "stopped"
	case summary.Exhausted:
		outcome = "exhausted"
	}
	c.finishRecord(runID, &summary, outcome)

	c.log.WithFields(logrus.Fields{
		"cycles":  summary.Cycles,
		"battles": summary.TotalBattles,
		"outcome": outcome,
	}).Info("Arena sequence finished")

	return summary, err
}

func (c *Controller) runScanOnly(summary *Summary) error {
	registry, err := c.scanner.Scan()
	if err != nil {
		return err
	}
	summary.Cycles = 1
	summary.Opponents = registry.Len()
	if registry.Len() > 0 {
		c.orchestrator.PrepareTargets(registry)
	}
	c.log.Info("Scan-only mode, skipping attack phase")
	return nil
}

func (c *Controller) runSingleAttack(summary *Summary) error {
	registry, err := c.scanner.Scan()
	if err != nil {
		return err
	}
	summary.Cycles = 1
	summary.Opponents = registry.Len()
	if registry.Len() == 0 {
		return fmt.Errorf("no opponents found")
	}

	targets := c.orchestrator.PrepareTargets(registry)
	if len(targets) == 0 {
		c.log.Info("No available targets")
		return nil
	}

	outcome, err := c.orchestrator.RunAttackPhase(true)
	if err != nil {
		return err
	}
	summary.TotalBattles = c.orchestrator.BattlesCompleted()
	summary.Exhausted = outcome == AttackExhausted
	return nil
}

func (c *Controller) runContinuous(summary *Summary) error {
	for {
		if c.StopRequested() {
			c.log.Warn("Stopped by operator")
			summary.Stopped = true
			return nil
		}

		summary.Cycles++
		c.log.WithFields(logrus.Fields{
			"cycle":         summary.Cycles,
			"total_battles": summary.TotalBattles,
		}).Info("Arena cycle starting")

		registry, err := c.scanner.Scan()
		if err != nil {
			return err
		}
		summary.Opponents = registry.Len()

		if registry.Len() == 0 {
			c.log.Warn("No opponents found, refreshing list")
			done, err := c.refreshOrFinish(summary)
			if err != nil || done {
				return err
			}
			continue
		}

		targets := c.orchestrator.PrepareTargets(registry)
		if len(targets) == 0 {
			c.log.Info("No available targets, refreshing list")
			done, err := c.refreshOrFinish(summary)
			if err != nil || done {
				return err
			}
			continue
		}

		battlesBefore := c.orchestrator.BattlesCompleted()
		outcome, err := c.orchestrator.RunAttackPhase(false)
		if err != nil {
			return err
		}
		fought := c.orchestrator.BattlesCompleted() - battlesBefore
		summary.TotalBattles += fought

		if c.StopRequested() || outcome == AttackStopped {
			c.log.Warn("Stopped by operator")
			summary.Stopped = true
			return nil
		}
		if outcome == AttackExhausted {
			summary.Exhausted = true
			c.navigateHome()
			return nil
		}
		if outcome == AttackListInvalid {
			// Registry scroll positions are stale; loop back to a fresh
			// scan without refreshing.
			continue
		}

		// A remaining too-strong target still heading the list, or a fully
		// cleared list: either way the cycle continues only via a refresh.
		done, err := c.refreshOrFinish(summary)
		if err != nil || done {
			return err
		}
	}
}

// refreshOrFinish ensures tokens and refreshes the roster. Returns done=true
// when the run must end (tokens exhausted).
func (c *Controller) refreshOrFinish(summary *Summary) (bool, error) {
	status, err := c.orchestrator.EnsureTokens()
	if err != nil {
		return false, err
	}
	if status == TokensExhausted {
		summary.Exhausted = true
		c.navigateHome()
		return true, nil
	}

	if _, err := c.orchestrator.RefreshList(); err != nil {
		return false, err
	}
	return false, nil
}

// NavigateToArena clicks through the menu chain to the roster screen.
func (c *Controller) NavigateToArena() error {
	steps := []string{templates.Battle, templates.Arena, templates.ClassicArena}

	for _, step := range steps {
		c.log.WithField("step", step).Info("Navigating")
		ok, err := c.orchestrator.clickTemplate(step, 2*time.Second)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("navigation failed: %q not found", step)
		}
	}

	c.log.Info("Arrived at opponent roster")
	return nil
}

// navigateHome backs out of the arena by clicking Back until no Back button
// remains. Best effort; the run is already over when this is called.
func (c *Controller) navigateHome() {
	c.log.Info("Navigating back to home")
	const maxBackClicks = 5
	for i := 0; i < maxBackClicks; i++ {
		ok, err := c.orchestrator.clickTemplate(templates.Back, 1500*time.Millisecond)
		if err != nil || !ok {
			return
		}
	}
}

// checkWindow verifies the window can be located and warns when its size
// differs from the canonical one the scan regions were tuned against.
func (c *Controller) checkWindow() error {
	bounds, err := c.frames.Bounds()
	if err != nil {
		return fmt.Errorf("acquiring game window: %w", err)
	}

	w, h := bounds.Dx(), bounds.Dy()
	c.log.WithFields(logrus.Fields{
		"width":  w,
		"height": h,
	}).Info("Game window acquired")

	if w != c.cfg.WindowWidth || h != c.cfg.WindowHeight {
		c.log.WithFields(logrus.Fields{
			"want_width":  c.cfg.WindowWidth,
			"want_height": c.cfg.WindowHeight,
		}).Warn("Window size differs from the tuned layout; OCR regions may miss")
	}
	return nil
}

func (c *Controller) recordBattle(runID string, power int, outcome string) {
	if c.recorder == nil || runID == "" {
		return
	}
	if err := c.recorder.RecordBattle(runID, power, outcome); err != nil {
		c.log.WithError(err).Warn("Failed to record battle")
	}
}

func (c *Controller) finishRecord(runID string, summary *Summary, outcome string) {
	if c.recorder == nil || runID == "" {
		return
	}
	if err := c.recorder.FinishRun(runID, summary.Cycles, summary.TotalBattles, outcome); err != nil {
		c.log.WithError(err).Warn("Failed to record run completion")
	}
}
