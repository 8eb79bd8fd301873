// Package config holds the bot's tunable settings and the INI loader that
// populates them.
package config

import (
	"fmt"
	"time"

	"github.com/dreamerbot/arena-go/internal/cv"
)

// Config is the full runtime configuration for an arena run.
type Config struct {
	// Window acquisition
	ProcessName  string
	WindowWidth  int // canonical window size the regions were tuned against
	WindowHeight int

	// Template assets
	TemplatesDir string

	// OCR
	OCRLanguage string

	// Scan regions, as fractions of the window so they survive window moves.
	// OCRRegion covers every visible roster row; BottomBand covers only the
	// newly revealed row after one scroll step.
	OCRRegion  cv.FracRegion
	BottomBand cv.FracRegion

	// Scroll drag geometry within the roster list.
	ListXCenter float64
	ListYStart  float64
	ListYEnd    float64

	// BattleButtonX is the attack control's horizontal position as a window
	// fraction.
	BattleButtonX float64

	// Row geometry in pixels at the canonical window size. RowHeightPx and
	// RowOffsetPx estimate a row's position when OCR drops it entirely;
	// ButtonYOffsetPx lifts a click from the power label to the button
	// center; PositionTolerancePx is the dedup radius for fallback parses.
	RowHeightPx         int
	RowOffsetPx         int
	ButtonYOffsetPx     int
	PositionTolerancePx int

	// Availability classification over the attack button sample.
	OrangeHueMin   float64
	OrangeHueMax   float64
	OrangeSatMin   float64
	OrangeMinRatio float64

	// Scanning
	MaxScrollAttempts int
	ScanDelay         time.Duration
	ScrollDelay       time.Duration

	// Battle flow
	MaxBattles         int
	MaxOpponentPower   int
	WeakestFirst       bool
	BattleDelay        time.Duration
	PostBattleDelay    time.Duration
	BattleTimeout      time.Duration
	BattlePollInterval time.Duration
	ReturnAttempts     int
	ReturnInterval     time.Duration

	// SkipNavigation starts the run assuming the roster screen is already
	// open, instead of clicking through the menu chain.
	SkipNavigation bool

	// Logging
	LogLevel string

	// HistoryPath enables the SQLite run journal when non-empty.
	HistoryPath string
}

// NewDefaultConfig returns the configuration tuned against the canonical
// 1734x703 window.
func NewDefaultConfig() *Config {
	return &Config{
		ProcessName:  "Raid",
		WindowWidth:  1734,
		WindowHeight: 703,

		TemplatesDir: "templates",
		OCRLanguage:  "eng",

		OCRRegion:  cv.FracRegion{XStart: 0.65, YStart: 0.24, Width: 0.25, Height: 0.74},
		BottomBand: cv.FracRegion{XStart: 0.65, YStart: 0.82, Width: 0.25, Height: 0.16},

		ListXCenter: 0.50,
		ListYStart:  0.50,
		ListYEnd:    0.68,

		BattleButtonX: 0.90,

		RowHeightPx:         115,
		RowOffsetPx:         50,
		ButtonYOffsetPx:     -50,
		PositionTolerancePx: 20,

		OrangeHueMin:   10,
		OrangeHueMax:   35,
		OrangeSatMin:   150,
		OrangeMinRatio: 0.15,

		MaxScrollAttempts: 6,
		ScanDelay:         500 * time.Millisecond,
		ScrollDelay:       time.Second,

		MaxBattles:         20,
		MaxOpponentPower:   0,
		WeakestFirst:       true,
		BattleDelay:        3 * time.Second,
		PostBattleDelay:    2 * time.Second,
		BattleTimeout:      120 * time.Second,
		BattlePollInterval: 3 * time.Second,
		ReturnAttempts:     5,
		ReturnInterval:     time.Second,

		SkipNavigation: false,
		LogLevel:       "info",
		HistoryPath:    "",
	}
}

// Validate rejects configurations that would make the scan loop misbehave.
func (c *Config) Validate() error {
	if c.MaxScrollAttempts < 1 {
		return fmt.Errorf("maxScrollAttempts must be at least 1, got %d", c.MaxScrollAttempts)
	}
	if c.MaxBattles < 1 {
		return fmt.Errorf("maxBattles must be at least 1, got %d", c.MaxBattles)
	}
	if c.RowHeightPx <= 0 {
		return fmt.Errorf("rowHeightPx must be positive, got %d", c.RowHeightPx)
	}
	if c.BattleButtonX <= 0 || c.BattleButtonX >= 1 {
		return fmt.Errorf("battleButtonX must be a window fraction in (0,1), got %v", c.BattleButtonX)
	}
	if err := validateFrac("ocrRegion", c.OCRRegion); err != nil {
		return err
	}
	if err := validateFrac("bottomBand", c.BottomBand); err != nil {
		return err
	}
	if c.ListYEnd <= c.ListYStart {
		return fmt.Errorf("list region inverted: yEnd %v <= yStart %v", c.ListYEnd, c.ListYStart)
	}
	if c.BattlePollInterval <= 0 || c.BattleTimeout < c.BattlePollInterval {
		return fmt.Errorf("battle timeout %v must be at least one poll interval %v", c.BattleTimeout, c.BattlePollInterval)
	}
	if c.ReturnAttempts < 1 {
		return fmt.Errorf("returnAttempts must be at least 1, got %d", c.ReturnAttempts)
	}
	return nil
}

func validateFrac(name string, f cv.FracRegion) error {
	if f.XStart < 0 || f.YStart < 0 || f.Width <= 0 || f.Height <= 0 ||
		f.XStart+f.Width > 1 || f.YStart+f.Height > 1 {
		return fmt.Errorf("%s does not fit in the window: %+v", name, f)
	}
	return nil
}
