package playwright

import (
	"context"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/devicelab-dev/cyrunner/pkg/logger"
)

// LaunchConfig configures the browser a Launcher starts.
type LaunchConfig struct {
	Browser  string // chromium, firefox or webkit
	Headless bool
	BaseURL  string
	Width    int
	Height   int

	// DriverDir caches the playwright driver and browsers.
	DriverDir string
	// Install downloads the driver and browser when missing.
	Install bool

	Options Options
}

// Launcher owns one browser process. Each session gets its own browser
// context, so cookies and storage never leak between tests.
type Launcher struct {
	cfg     LaunchConfig
	pw      *playwright.Playwright
	browser playwright.Browser

	mu     sync.Mutex
	closed bool
}

// Launch starts playwright and the configured browser.
func Launch(cfg LaunchConfig) (*Launcher, error) {
	if cfg.Browser == "" {
		cfg.Browser = "chromium"
	}
	runOpts := &playwright.RunOptions{
		DriverDirectory: cfg.DriverDir,
		Browsers:        []string{cfg.Browser},
		Verbose:         false,
	}
	if cfg.Install {
		logger.Info("installing playwright %s into %s", cfg.Browser, cfg.DriverDir)
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	var bt playwright.BrowserType
	switch cfg.Browser {
	case "chromium":
		bt = pw.Chromium
	case "firefox":
		bt = pw.Firefox
	case "webkit":
		bt = pw.WebKit
	default:
		_ = pw.Stop()
		return nil, fmt.Errorf("unknown browser %q", cfg.Browser)
	}

	browser, err := bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch %s: %w", cfg.Browser, err)
	}
	logger.Info("launched %s %s (headless=%v)", cfg.Browser, browser.Version(), cfg.Headless)

	return &Launcher{cfg: cfg, pw: pw, browser: browser}, nil
}

// Version returns the browser version.
func (l *Launcher) Version() string {
	return l.browser.Version()
}

// NewSession opens a fresh browser context and page. The returned cleanup
// closes both.
func (l *Launcher) NewSession(ctx context.Context) (*Driver, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, nil, fmt.Errorf("launcher closed")
	}

	opts := playwright.BrowserNewContextOptions{}
	if l.cfg.BaseURL != "" {
		opts.BaseURL = playwright.String(l.cfg.BaseURL)
	}
	if l.cfg.Width > 0 && l.cfg.Height > 0 {
		opts.Viewport = &playwright.Size{Width: l.cfg.Width, Height: l.cfg.Height}
	}
	bctx, err := l.browser.NewContext(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("new browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, nil, fmt.Errorf("new page: %w", err)
	}

	cleanup := func() {
		if err := bctx.Close(); err != nil {
			logger.Warn("close browser context: %v", err)
		}
	}
	return NewDriver(page, l.cfg.Options), cleanup, nil
}

// Close stops the browser and the playwright driver.
func (l *Launcher) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var firstErr error
	if err := l.browser.Close(); err != nil {
		firstErr = fmt.Errorf("close browser: %w", err)
	}
	if err := l.pw.Stop(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("stop playwright: %w", err)
	}
	return firstErr
}
