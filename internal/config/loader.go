package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"

	"github.com/dreamerbot/arena-go/internal/cv"
)

// LoadFromINI loads configuration from an INI file, falling back to defaults
// for any key the file omits.
func LoadFromINI(path string) (*Config, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	config := NewDefaultConfig()

	window := cfg.Section("Window")
	config.ProcessName = window.Key("processName").MustString(config.ProcessName)
	config.WindowWidth = window.Key("windowWidth").MustInt(config.WindowWidth)
	config.WindowHeight = window.Key("windowHeight").MustInt(config.WindowHeight)

	scan := cfg.Section("Scan")
	config.OCRRegion = loadFracRegion(scan, "ocr", config.OCRRegion)
	config.BottomBand = loadFracRegion(scan, "bottomBand", config.BottomBand)
	config.ListXCenter = scan.Key("listXCenter").MustFloat64(config.ListXCenter)
	config.ListYStart = scan.Key("listYStart").MustFloat64(config.ListYStart)
	config.ListYEnd = scan.Key("listYEnd").MustFloat64(config.ListYEnd)
	config.MaxScrollAttempts = scan.Key("maxScrollAttempts").MustInt(config.MaxScrollAttempts)
	config.ScanDelay = loadSeconds(scan, "scanDelay", config.ScanDelay)
	config.ScrollDelay = loadSeconds(scan, "scrollDelay", config.ScrollDelay)
	config.RowHeightPx = scan.Key("rowHeightPx").MustInt(config.RowHeightPx)
	config.RowOffsetPx = scan.Key("rowOffsetPx").MustInt(config.RowOffsetPx)
	config.PositionTolerancePx = scan.Key("positionTolerancePx").MustInt(config.PositionTolerancePx)

	battle := cfg.Section("Battle")
	config.BattleButtonX = battle.Key("battleButtonX").MustFloat64(config.BattleButtonX)
	config.ButtonYOffsetPx = battle.Key("buttonYOffsetPx").MustInt(config.ButtonYOffsetPx)
	config.MaxBattles = battle.Key("maxBattles").MustInt(config.MaxBattles)
	config.MaxOpponentPower = battle.Key("maxOpponentPower").MustInt(config.MaxOpponentPower)
	config.WeakestFirst = battle.Key("weakestFirst").MustBool(config.WeakestFirst)
	config.BattleDelay = loadSeconds(battle, "battleDelay", config.BattleDelay)
	config.PostBattleDelay = loadSeconds(battle, "postBattleDelay", config.PostBattleDelay)
	config.BattleTimeout = loadSeconds(battle, "battleTimeout", config.BattleTimeout)
	config.BattlePollInterval = loadSeconds(battle, "battlePollInterval", config.BattlePollInterval)
	config.ReturnAttempts = battle.Key("returnAttempts").MustInt(config.ReturnAttempts)
	config.ReturnInterval = loadSeconds(battle, "returnInterval", config.ReturnInterval)
	config.SkipNavigation = battle.Key("skipNavigation").MustBool(config.SkipNavigation)

	ocr := cfg.Section("OCR")
	config.OCRLanguage = ocr.Key("language").MustString(config.OCRLanguage)
	config.TemplatesDir = ocr.Key("templatesDir").MustString(config.TemplatesDir)

	logging := cfg.Section("Logging")
	config.LogLevel = logging.Key("logLevel").MustString(config.LogLevel)
	config.HistoryPath = logging.Key("historyPath").MustString(config.HistoryPath)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	return config, nil
}

func loadFracRegion(section *ini.Section, prefix string, def cv.FracRegion) cv.FracRegion {
	return cv.FracRegion{
		XStart: section.Key(prefix + "XStart").MustFloat64(def.XStart),
		YStart: section.Key(prefix + "YStart").MustFloat64(def.YStart),
		Width:  section.Key(prefix + "Width").MustFloat64(def.Width),
		Height: section.Key(prefix + "Height").MustFloat64(def.Height),
	}
}

// loadSeconds reads a float number of seconds, the unit the settings files
// have always used.
func loadSeconds(section *ini.Section, key string, def time.Duration) time.Duration {
	seconds := section.Key(key).MustFloat64(def.Seconds())
	return time.Duration(seconds * float64(time.Second))
}

// SaveToINI writes the configuration back out, preserving the section layout
// LoadFromINI reads.
func SaveToINI(config *Config, path string) error {
	cfg := ini.Empty()

	window := cfg.Section("Window")
	window.Key("processName").SetValue(config.ProcessName)
	window.Key("windowWidth").SetValue(fmt.Sprintf("%d", config.WindowWidth))
	window.Key("windowHeight").SetValue(fmt.Sprintf("%d", config.WindowHeight))

	scan := cfg.Section("Scan")
	saveFracRegion(scan, "ocr", config.OCRRegion)
	saveFracRegion(scan, "bottomBand", config.BottomBand)
	scan.Key("listXCenter").SetValue(fmt.Sprintf("%g", config.ListXCenter))
	scan.Key("listYStart").SetValue(fmt.Sprintf("%g", config.ListYStart))
	scan.Key("listYEnd").SetValue(fmt.Sprintf("%g", config.ListYEnd))
	scan.Key("maxScrollAttempts").SetValue(fmt.Sprintf("%d", config.MaxScrollAttempts))
	scan.Key("scanDelay").SetValue(fmt.Sprintf("%g", config.ScanDelay.Seconds()))
	scan.Key("scrollDelay").SetValue(fmt.Sprintf("%g", config.ScrollDelay.Seconds()))
	scan.Key("rowHeightPx").SetValue(fmt.Sprintf("%d", config.RowHeightPx))
	scan.Key("rowOffsetPx").SetValue(fmt.Sprintf("%d", config.RowOffsetPx))
	scan.Key("positionTolerancePx").SetValue(fmt.Sprintf("%d", config.PositionTolerancePx))

	battle := cfg.Section("Battle")
	battle.Key("battleButtonX").SetValue(fmt.Sprintf("%g", config.BattleButtonX))
	battle.Key("buttonYOffsetPx").SetValue(fmt.Sprintf("%d", config.ButtonYOffsetPx))
	battle.Key("maxBattles").SetValue(fmt.Sprintf("%d", config.MaxBattles))
	battle.Key("maxOpponentPower").SetValue(fmt.Sprintf("%d", config.MaxOpponentPower))
	battle.Key("weakestFirst").SetValue(fmt.Sprintf("%t", config.WeakestFirst))
	battle.Key("battleDelay").SetValue(fmt.Sprintf("%g", config.BattleDelay.Seconds()))
	battle.Key("postBattleDelay").SetValue(fmt.Sprintf("%g", config.PostBattleDelay.Seconds()))
	battle.Key("battleTimeout").SetValue(fmt.Sprintf("%g", config.BattleTimeout.Seconds()))
	battle.Key("battlePollInterval").SetValue(fmt.Sprintf("%g", config.BattlePollInterval.Seconds()))
	battle.Key("returnAttempts").SetValue(fmt.Sprintf("%d", config.ReturnAttempts))
	battle.Key("returnInterval").SetValue(fmt.Sprintf("%g", config.ReturnInterval.Seconds()))
	battle.Key("skipNavigation").SetValue(fmt.Sprintf("%t", config.SkipNavigation))

	ocr := cfg.Section("OCR")
	ocr.Key("language").SetValue(config.OCRLanguage)
	ocr.Key("templatesDir").SetValue(config.TemplatesDir)

	logging := cfg.Section("Logging")
	logging.Key("logLevel").SetValue(config.LogLevel)
	logging.Key("historyPath").SetValue(config.HistoryPath)

	return cfg.SaveTo(path)
}

func saveFracRegion(section *ini.Section, prefix string, f cv.FracRegion) {
	section.Key(prefix + "XStart").SetValue(fmt.Sprintf("%g", f.XStart))
	section.Key(prefix + "YStart").SetValue(fmt.Sprintf("%g", f.YStart))
	section.Key(prefix + "Width").SetValue(fmt.Sprintf("%g", f.Width))
	section.Key(prefix + "Height").SetValue(fmt.Sprintf("%g", f.Height))
}
