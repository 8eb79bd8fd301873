package arena

import (
	"image"
	"strings"
	"testing"

	"github.com/dreamerbot/arena-go/internal/config"
	"github.com/dreamerbot/arena-go/internal/cv"
	"github.com/dreamerbot/arena-go/pkg/templates"
)

type recordedBattle struct {
	power   int
	outcome string
}

// fakeRecorder journals in memory.
type fakeRecorder struct {
	started      bool
	mode         string
	battles      []recordedBattle
	finishCalled bool
	finishCycles int
	finishTotal  int
	finishWith   string
}

func (f *fakeRecorder) StartRun(mode string, maxBattles int) (string, error) {
	f.started = true
	f.mode = mode
	return "run-1", nil
}

func (f *fakeRecorder) RecordBattle(runID string, power int, outcome string) error {
	f.battles = append(f.battles, recordedBattle{power: power, outcome: outcome})
	return nil
}

func (f *fakeRecorder) FinishRun(runID string, cycles, battles int, outcome string) error {
	f.finishCalled = true
	f.finishCycles = cycles
	f.finishTotal = battles
	f.finishWith = outcome
	return nil
}

func newTestController(frames cv.Capturer, texts *fakeExtractor, driver *fakeDriver, finder *fakeFinder, cfg *config.Config, clock Clock, recorder RunRecorder) *Controller {
	scanner := NewScanner(frames, texts, driver, cfg, clock, testLogger())
	var ctrl *Controller
	orch := NewOrchestrator(scanner, finder, frames, driver, cfg, clock, testLogger(), func() bool {
		return ctrl.StopRequested()
	})
	ctrl = NewController(scanner, orch, frames, driver, cfg, clock, testLogger(), recorder)
	return ctrl
}

func TestControllerScanOnly(t *testing.T) {
	texts := &fakeExtractor{screens: []fakeScreen{
		powerScreen(12000, 8000),
		powerScreen(8000),
		powerScreen(8000),
	}}
	driver := &fakeDriver{}
	cfg := testConfig()
	cfg.SkipNavigation = true
	ctrl := newTestController(newFakeCapturer(true), texts, driver, newFakeFinder(), cfg, newFakeClock(), nil)

	summary, err := ctrl.Run(ModeScanOnly)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Opponents != 2 {
		t.Errorf("Expected 2 opponents, got %d", summary.Opponents)
	}
	if summary.Cycles != 1 || summary.TotalBattles != 0 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	if len(driver.clicks) != 0 {
		t.Errorf("Scan-only mode clicked: %v", driver.clicks)
	}
}

func TestControllerSingleAttack(t *testing.T) {
	texts := &fakeExtractor{screens: []fakeScreen{
		powerScreen(8000),
		powerScreen(8000),
		powerScreen(8000),
		powerScreen(8000),
	}}
	cfg := testConfig()
	cfg.SkipNavigation = true
	ctrl := newTestController(newFakeCapturer(true), texts, &fakeDriver{}, battleFinder(), cfg, newFakeClock(), nil)

	summary, err := ctrl.Run(ModeSingleAttack)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.TotalBattles != 1 {
		t.Errorf("Expected 1 battle, got %d", summary.TotalBattles)
	}
	if summary.Cycles != 1 {
		t.Errorf("Expected 1 cycle, got %d", summary.Cycles)
	}
}

func TestControllerContinuousUntilExhausted(t *testing.T) {
	texts := &fakeExtractor{screens: []fakeScreen{
		powerScreen(8000),
		powerScreen(8000),
		powerScreen(8000),
		powerScreen(8000),
	}}
	finder := battleFinder()
	// Tokens hold for the attack, then read empty with no free refill.
	finder.set(templates.EmptyTokens, cv.Match{}, foundMatch(800, 100, 60, 30))
	recorder := &fakeRecorder{}
	cfg := testConfig()
	cfg.SkipNavigation = true
	ctrl := newTestController(newFakeCapturer(true), texts, &fakeDriver{}, finder, cfg, newFakeClock(), recorder)

	summary, err := ctrl.Run(ModeContinuous)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !summary.Exhausted {
		t.Error("Expected run exhausted")
	}
	if summary.Cycles != 1 || summary.TotalBattles != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}

	if !recorder.started || recorder.mode != "continuous" {
		t.Errorf("Run not journaled: %+v", recorder)
	}
	if len(recorder.battles) != 1 || recorder.battles[0] != (recordedBattle{power: 8000, outcome: "success"}) {
		t.Errorf("Unexpected battle journal: %+v", recorder.battles)
	}
	if !recorder.finishCalled || recorder.finishWith != "exhausted" || recorder.finishTotal != 1 {
		t.Errorf("Unexpected run completion journal: %+v", recorder)
	}
}

func TestControllerStopBeforeStart(t *testing.T) {
	cfg := testConfig()
	cfg.SkipNavigation = true
	ctrl := newTestController(newFakeCapturer(true), &fakeExtractor{}, &fakeDriver{}, newFakeFinder(), cfg, newFakeClock(), nil)

	ctrl.RequestStop()
	summary, err := ctrl.Run(ModeContinuous)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !summary.Stopped {
		t.Error("Expected run stopped")
	}
	if summary.Cycles != 0 {
		t.Errorf("Expected no cycles, got %d", summary.Cycles)
	}
}

func TestControllerNavigatesMenuChain(t *testing.T) {
	texts := &fakeExtractor{screens: []fakeScreen{
		powerScreen(8000),
		powerScreen(8000),
		powerScreen(8000),
	}}
	driver := &fakeDriver{}
	finder := newFakeFinder()
	finder.set(templates.Battle, foundMatch(100, 650, 80, 40))
	finder.set(templates.Arena, foundMatch(400, 350, 120, 60))
	finder.set(templates.ClassicArena, foundMatch(600, 350, 120, 60))
	cfg := testConfig()
	cfg.SkipNavigation = false
	ctrl := newTestController(newFakeCapturer(true), texts, driver, finder, cfg, newFakeClock(), nil)

	if _, err := ctrl.Run(ModeScanOnly); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(driver.clicks) != 3 {
		t.Fatalf("Expected 3 navigation clicks, got %d", len(driver.clicks))
	}
	if driver.clicks[0] != image.Pt(100+100, 50+650) {
		t.Errorf("Unexpected first navigation click: %v", driver.clicks[0])
	}
}

func TestControllerNavigationFailure(t *testing.T) {
	cfg := testConfig()
	cfg.SkipNavigation = false
	// No menu templates on screen.
	ctrl := newTestController(newFakeCapturer(true), &fakeExtractor{}, &fakeDriver{}, newFakeFinder(), cfg, newFakeClock(), nil)

	_, err := ctrl.Run(ModeScanOnly)
	if err == nil {
		t.Fatal("Expected navigation error")
	}
	if !strings.Contains(err.Error(), "navigation failed") {
		t.Errorf("Unexpected error: %v", err)
	}
}

// panicCapturer locates a window but blows up on capture.
type panicCapturer struct{}

func (panicCapturer) CaptureFrame() (*image.RGBA, error) {
	panic("capture backend gone")
}

func (panicCapturer) Bounds() (image.Rectangle, error) {
	return image.Rect(100, 50, 100+1734, 50+703), nil
}

func TestControllerRecoversInternalFault(t *testing.T) {
	cfg := testConfig()
	cfg.SkipNavigation = true
	ctrl := newTestController(panicCapturer{}, &fakeExtractor{}, &fakeDriver{}, newFakeFinder(), cfg, newFakeClock(), nil)

	_, err := ctrl.Run(ModeScanOnly)
	if err == nil {
		t.Fatal("Expected a recovered fault error")
	}
	if !strings.Contains(err.Error(), "internal fault") {
		t.Errorf("Unexpected error: %v", err)
	}
}
