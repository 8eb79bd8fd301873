package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dreamerbot/arena-go/internal/arena"
	"github.com/dreamerbot/arena-go/internal/config"
	"github.com/dreamerbot/arena-go/internal/cv"
	"github.com/dreamerbot/arena-go/internal/history"
	"github.com/dreamerbot/arena-go/internal/input"
	"github.com/dreamerbot/arena-go/internal/ocr"
	"github.com/dreamerbot/arena-go/pkg/templates"
)

var (
	configPath    string
	templatesPath string
	historyPath   string
	logLevel      string
)

func main() {
	root := &cobra.Command{
		Use:   "arena-bot",
		Short: "Arena opponent scanner and battle bot",
		Long: `arena-bot scans the arena opponent roster with OCR, schedules targets
by team power and fights them until attack tokens run out.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "Settings.ini", "path to the settings file")
	root.PersistentFlags().StringVar(&templatesPath, "templates", "", "override the template image directory")
	root.PersistentFlags().StringVar(&historyPath, "history", "", "override the run journal database path")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the log level (debug, info, warn, error)")

	root.AddCommand(runCmd(), scanCmd(), attackCmd(), historyCmd(), initConfigCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the settings file, falling back to defaults when it is
// missing, and applies command line overrides.
func loadConfig(log *logrus.Logger) *config.Config {
	cfg, err := config.LoadFromINI(configPath)
	if err != nil {
		log.WithError(err).Warn("Failed to load settings, using defaults")
		cfg = config.NewDefaultConfig()
	}

	if templatesPath != "" {
		cfg.TemplatesDir = templatesPath
	}
	if historyPath != "" {
		cfg.HistoryPath = historyPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg
}

func newLogger(cfg *config.Config) *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logrus.NewEntry(logger)
}

// buildController wires the capture, OCR, template and input layers into a
// ready-to-run controller. The returned cleanup releases the OCR engine and
// journal database.
func buildController(cfg *config.Config, log *logrus.Entry) (*arena.Controller, func(), error) {
	capture, err := cv.NewWindowCapture(cfg.ProcessName)
	if err != nil {
		return nil, nil, fmt.Errorf("attaching to game window: %w", err)
	}

	registry, err := templates.NewArenaRegistry(cfg.TemplatesDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading templates: %w", err)
	}
	service := cv.NewService(capture, registry)

	extractor, err := ocr.NewTesseractExtractor(cfg.OCRLanguage)
	if err != nil {
		return nil, nil, fmt.Errorf("starting OCR engine: %w", err)
	}

	var recorder arena.RunRecorder
	var journal *history.DB
	if cfg.HistoryPath != "" {
		journal, err = history.Open(cfg.HistoryPath)
		if err != nil {
			log.WithError(err).Warn("Run journal unavailable, continuing without it")
		} else {
			recorder = journal
		}
	}

	driver := input.NewRobotgoDriver()
	clock := arena.SystemClock()

	scanner := arena.NewScanner(capture, extractor, driver, cfg, clock, log)

	var ctrl *arena.Controller
	orchestrator := arena.NewOrchestrator(scanner, service, capture, driver, cfg, clock, log, func() bool {
		return ctrl.StopRequested()
	})
	ctrl = arena.NewController(scanner, orchestrator, capture, driver, cfg, clock, log, recorder)

	cleanup := func() {
		extractor.Close()
		if journal != nil {
			journal.Close()
		}
	}
	return ctrl, cleanup, nil
}

// runMode executes one controller run with signal-driven cooperative stop.
func runMode(mode arena.Mode) error {
	logger := logrus.New()
	cfg := loadConfig(logger)
	log := newLogger(cfg)

	ctrl, cleanup, err := buildController(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		<-sigs
		log.Warn("Interrupt received, stopping after the current action")
		ctrl.RequestStop()
	}()

	summary, err := ctrl.Run(mode)
	if err != nil {
		return err
	}

	fmt.Printf("Run finished: %d cycle(s), %d battle(s)", summary.Cycles, summary.TotalBattles)
	switch {
	case summary.Stopped:
		fmt.Print(" (stopped)")
	case summary.Exhausted:
		fmt.Print(" (tokens exhausted)")
	}
	fmt.Println()
	return nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Scan and fight continuously until tokens run out",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(arena.ModeContinuous)
		},
	}
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan the opponent roster without attacking",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(arena.ModeScanOnly)
		},
	}
}

func attackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attack-one",
		Short: "Scan and fight a single opponent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(arena.ModeSingleAttack)
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logrus.New()
			cfg := loadConfig(logger)
			if cfg.HistoryPath == "" {
				return fmt.Errorf("no journal configured; set HistoryPath or pass --history")
			}

			journal, err := history.Open(cfg.HistoryPath)
			if err != nil {
				return fmt.Errorf("opening journal: %w", err)
			}
			defer journal.Close()

			runs, err := journal.RecentRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded yet")
				return nil
			}

			for _, run := range runs {
				fmt.Printf("%s  %-13s %-10s cycles=%-3d battles=%-3d %s\n",
					run.StartedAt.Format("2006-01-02 15:04"),
					run.Mode, run.Outcome, run.Cycles, run.Battles, run.ID)
			}

			stats, err := journal.GetStats()
			if err != nil {
				return err
			}
			fmt.Printf("\n%d run(s), %d battle(s), %d won, strongest beaten %d\n",
				stats.TotalRuns, stats.TotalBattles, stats.BattlesWon, stats.StrongestBeat)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}

func initConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Write a settings file populated with defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("refusing to overwrite existing %s", configPath)
			}
			if err := config.SaveToINI(config.NewDefaultConfig(), configPath); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", configPath)
			return nil
		},
	}
}
