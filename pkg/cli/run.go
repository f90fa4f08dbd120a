package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/cyrunner/pkg/config"
	"github.com/devicelab-dev/cyrunner/pkg/driver/mock"
	pwdriver "github.com/devicelab-dev/cyrunner/pkg/driver/playwright"
	"github.com/devicelab-dev/cyrunner/pkg/executor"
	"github.com/devicelab-dev/cyrunner/pkg/logger"
	"github.com/devicelab-dev/cyrunner/pkg/report"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run tests in a browser",
	ArgsUsage: "[test-file-or-folder]...",
	Description: `Record every test in the given files and replay the queues in a browser.
Folders are searched with the configured spec patterns; with no arguments
the working directory is searched.

Reports are generated in the output directory:
  - Default: ./reports/<timestamp>/
  - With --output: <output>/<timestamp>/
  - With --output and --flatten: <output>/ (no timestamp subfolder)

Examples:
  cyrunner run cypress/e2e
  cyrunner run todo.cy.js --headed --browser firefox
  cyrunner run -e user=alice --include-tags smoke
  cyrunner run --driver mock --pages fixtures/ todo.cy.yaml`,
	Flags: append(configFlags(),
		&cli.StringFlag{
			Name:    "driver",
			Aliases: []string{"d"},
			Usage:   "Driver to use (playwright, mock)",
		},
		&cli.StringFlag{
			Name:  "browser",
			Usage: "Browser to launch (chromium, firefox, webkit)",
		},
		&cli.BoolFlag{
			Name:  "headed",
			Usage: "Show the browser window",
		},
		&cli.BoolFlag{
			Name:  "install",
			Usage: "Download the playwright driver and browser when missing",
		},
		&cli.StringFlag{
			Name:  "pages",
			Usage: "HTML fixture directory served by the mock driver",
		},
		&cli.StringFlag{
			Name:  "output",
			Usage: "Output directory for reports (default: ./reports)",
		},
		&cli.BoolFlag{
			Name:  "flatten",
			Usage: "Don't create timestamp subfolder (requires --output)",
		},
		&cli.IntFlag{
			Name:  "parallel",
			Usage: "Run up to N tests at once, each in its own browser context",
		},
		&cli.BoolFlag{
			Name:  "stop-on-fail",
			Usage: "Skip remaining tests after the first failure",
		},
		&cli.BoolFlag{
			Name:  "allure",
			Usage: "Also write allure-results/ into the report directory",
		},
	),
	Action: runTest,
}

func runTest(c *cli.Context) error {
	cfg, err := loadConfig(c, nil)
	if err != nil {
		return err
	}
	if c.Bool("flatten") && !c.IsSet("output") {
		return fmt.Errorf("--flatten requires --output to be specified")
	}
	outputDir := resolveOutputDir(cfg.Output, c.Bool("flatten"), time.Now())

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := logger.Init(filepath.Join(outputDir, "cyrunner.log")); err != nil {
		fmt.Fprintf(c.App.ErrWriter, "Warning: Failed to initialize logger: %v\n", err)
	}
	defer logger.Close()
	if !c.Bool("verbose") {
		logger.SetLevel(logrus.InfoLevel)
	}

	logger.Info("=== Test execution started ===")
	logger.Info("Output directory: %s", outputDir)
	logger.Info("Driver: %s, browser: %s, headless: %v", cfg.Driver, cfg.Browser, cfg.IsHeadless())

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := newPrinter(c.App.Writer)
	p.section("Setup")

	loaded := loadTests(ctx, c, cfg)
	if !loaded.IsValid() {
		return printValidationErrors(c.App.ErrWriter, loaded.Errors)
	}
	if len(loaded.Tests) == 0 {
		return fmt.Errorf("no tests found")
	}
	p.printf("  %d test(s) in %d file(s)\n", len(loaded.Tests), len(loaded.Files))

	sessions, closeSessions, err := sessionFactory(cfg, c.Bool("install"))
	if err != nil {
		return err
	}
	defer closeSessions()
	p.printf("  Driver: %s\n", describeDriver(cfg))

	runner := executor.New(sessions, executor.RunnerConfig{
		OutputDir:   outputDir,
		Parallelism: cfg.Parallel,
		StopOnFail:  cfg.StopOnFail,
		TestTimeout: config.Duration(cfg.Timeouts.Exec),
		Browser: report.Browser{
			Name:     browserName(cfg),
			Headless: cfg.IsHeadless(),
			BaseURL:  cfg.BaseURL,
		},
		RunnerVersion:  Version,
		DriverName:     cfg.Driver,
		OnTestStart:    p.onTestStart,
		OnStepComplete: p.onStepComplete,
		OnTestEnd:      p.onTestEnd,
	})

	p.section("Execution")
	result, err := runner.Run(ctx, loaded.Tests)
	if err != nil {
		logger.Error("Test execution failed: %v", err)
		return err
	}
	logger.Info("Test execution completed: %d passed, %d failed, %d skipped",
		result.PassedTests, result.FailedTests, result.SkippedTests)

	p.printSummary(result)

	p.printf("\n  Reports:\n")
	p.printf("    JSON:   %s\n", filepath.Join(outputDir, "report.json"))
	if c.Bool("allure") {
		if err := report.GenerateAllure(outputDir); err != nil {
			p.printf("  %s Warning: failed to generate Allure results: %v\n", warnColor.Sprint("⚠"), err)
		} else {
			p.printf("    Allure: %s\n", filepath.Join(outputDir, "allure-results"))
		}
	}
	p.printf("\n")

	// Exit with code 1 if any test failed (summary already printed)
	if result.Status != report.StatusPassed {
		return cli.Exit("", 1)
	}
	return nil
}

// sessionFactory opens a fresh browser session per test for cfg.Driver.
// The returned function releases what the sessions share.
func sessionFactory(cfg *config.Config, install bool) (executor.SessionFactory, func(), error) {
	switch cfg.Driver {
	case config.DriverMock:
		factory := func(_ context.Context, worker int) (*executor.Session, error) {
			drv := mock.New(mock.Config{PagesDir: cfg.Pages, Fetch: true})
			return &executor.Session{ID: worker, Driver: drv}, nil
		}
		return factory, func() {}, nil

	case config.DriverPlaywright:
		launcher, err := pwdriver.Launch(pwdriver.LaunchConfig{
			Browser:   cfg.Browser,
			Headless:  cfg.IsHeadless(),
			BaseURL:   cfg.BaseURL,
			Width:     cfg.Viewport.Width,
			Height:    cfg.Viewport.Height,
			DriverDir: cfg.DriverDir(config.DriverPlaywright),
			Install:   install,
			Options: pwdriver.Options{
				CommandTimeout:  config.Duration(cfg.Timeouts.Command),
				PageLoadTimeout: config.Duration(cfg.Timeouts.PageLoad),
			},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start browser: %w", err)
		}
		factory := func(ctx context.Context, worker int) (*executor.Session, error) {
			drv, cleanup, err := launcher.NewSession(ctx)
			if err != nil {
				return nil, err
			}
			return &executor.Session{ID: worker, Driver: drv, Cleanup: cleanup}, nil
		}
		closeFn := func() {
			if err := launcher.Close(); err != nil {
				logger.Warn("close browser: %v", err)
			}
		}
		return factory, closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

func browserName(cfg *config.Config) string {
	if cfg.Driver == config.DriverMock {
		return config.DriverMock
	}
	return cfg.Browser
}

func describeDriver(cfg *config.Config) string {
	if cfg.Driver == config.DriverMock {
		if cfg.Pages != "" {
			return fmt.Sprintf("mock (pages: %s)", cfg.Pages)
		}
		return "mock"
	}
	mode := "headless"
	if !cfg.IsHeadless() {
		mode = "headed"
	}
	return fmt.Sprintf("playwright %s (%s)", cfg.Browser, mode)
}
