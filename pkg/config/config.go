// Package config handles configuration for cyrunner.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mstoykov/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/cyrunner/pkg/core"
)

// Driver names
const (
	DriverPlaywright = "playwright"
	DriverMock       = "mock"
)

// Browser names
const (
	BrowserChromium = "chromium"
	BrowserFirefox  = "firefox"
	BrowserWebKit   = "webkit"
)

// Timeouts holds per-concern timeouts in milliseconds.
type Timeouts struct {
	Command  int `yaml:"command"`  // assertion and actionability waits
	Exec     int `yaml:"exec"`     // a whole test
	Task     int `yaml:"task"`     // wrapped deferred values
	PageLoad int `yaml:"pageLoad"` // visit
	Request  int `yaml:"request"`
	Response int `yaml:"response"`
}

// Default timeouts
var DefaultTimeouts = Timeouts{
	Command:  4000,
	Exec:     60000,
	Task:     60000,
	PageLoad: 60000,
	Request:  5000,
	Response: 30000,
}

// Viewport is the browser window size.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Config represents the workspace configuration (cyrunner.yaml).
type Config struct {
	// Test selection
	SpecPattern []string `yaml:"specPattern"` // Glob patterns for test files
	IncludeTags []string `yaml:"includeTags"` // Tags to include
	ExcludeTags []string `yaml:"excludeTags"` // Tags to exclude

	// Browser settings
	BaseURL  string   `yaml:"baseUrl"`
	Driver   string   `yaml:"driver"`  // playwright or mock
	Browser  string   `yaml:"browser"` // chromium, firefox or webkit
	Headless *bool    `yaml:"headless"`
	Viewport Viewport `yaml:"viewport"`
	Pages    string   `yaml:"pages"` // HTML fixture directory for the mock driver

	// DriversDir holds downloaded browser drivers, one subdirectory each.
	DriversDir string `yaml:"driversDir"`

	// Execution settings
	Env        map[string]interface{} `yaml:"env"` // Cypress.env values
	Output     string                 `yaml:"output"`
	Parallel   int                    `yaml:"parallel"`
	StopOnFail bool                   `yaml:"stopOnFail"`
	Timeouts   Timeouts               `yaml:"timeouts"`
}

// envOverrides are read from CYRUNNER_* variables. Unset variables leave
// the file configuration alone.
type envOverrides struct {
	BaseURL     *string  `envconfig:"BASE_URL"`
	Driver      *string  `envconfig:"DRIVER"`
	Browser     *string  `envconfig:"BROWSER"`
	Headless    *bool    `envconfig:"HEADLESS"`
	Pages       *string  `envconfig:"PAGES"`
	DriversDir  *string  `envconfig:"DRIVERS_DIR"`
	Output      *string  `envconfig:"OUTPUT"`
	Parallel    *int     `envconfig:"PARALLEL"`
	StopOnFail  *bool    `envconfig:"STOP_ON_FAIL"`
	IncludeTags []string `envconfig:"INCLUDE_TAGS"`
	ExcludeTags []string `envconfig:"EXCLUDE_TAGS"`
	Command     *int     `envconfig:"COMMAND_TIMEOUT"`
	PageLoad    *int     `envconfig:"PAGE_LOAD_TIMEOUT"`
}

// Load loads configuration from a file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, core.ErrInvalidConfig.WithMessagef("%s: %v", path, err).WithCause(err)
	}
	cfg.ApplyDefaults()
	return &cfg, cfg.Validate()
}

// LoadFromDir looks for cyrunner.yaml or cyrunner.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"cyrunner.yaml", "cyrunner.yml"} {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}

	// No config file found, return defaults
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverPlaywright
	}
	if c.Browser == "" {
		c.Browser = BrowserChromium
	}
	if c.Headless == nil {
		headless := true
		c.Headless = &headless
	}
	if len(c.SpecPattern) == 0 {
		c.SpecPattern = []string{"**/*.cy.js", "**/*.cy.yaml", "**/*.cy.yml"}
	}
	if c.Output == "" {
		c.Output = "reports"
	}
	if c.DriversDir == "" {
		c.DriversDir = defaultDriversDir()
	}
	if c.Viewport == (Viewport{}) {
		c.Viewport = Viewport{Width: 1280, Height: 720}
	}

	t := &c.Timeouts
	d := DefaultTimeouts
	for _, f := range []struct {
		v   *int
		def int
	}{
		{&t.Command, d.Command},
		{&t.Exec, d.Exec},
		{&t.Task, d.Task},
		{&t.PageLoad, d.PageLoad},
		{&t.Request, d.Request},
		{&t.Response, d.Response},
	} {
		if *f.v <= 0 {
			*f.v = f.def
		}
	}
}

// ApplyEnv overrides fields from CYRUNNER_* variables. lookup defaults to
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var env envOverrides
	if err := envconfig.Process("cyrunner", &env, lookup); err != nil {
		return core.ErrInvalidConfig.WithMessagef("environment: %v", err).WithCause(err)
	}

	setString(&c.BaseURL, env.BaseURL)
	setString(&c.Driver, env.Driver)
	setString(&c.Browser, env.Browser)
	setString(&c.Pages, env.Pages)
	setString(&c.DriversDir, env.DriversDir)
	setString(&c.Output, env.Output)
	if env.Headless != nil {
		c.Headless = env.Headless
	}
	if env.Parallel != nil {
		c.Parallel = *env.Parallel
	}
	if env.StopOnFail != nil {
		c.StopOnFail = *env.StopOnFail
	}
	if env.IncludeTags != nil {
		c.IncludeTags = env.IncludeTags
	}
	if env.ExcludeTags != nil {
		c.ExcludeTags = env.ExcludeTags
	}
	if env.Command != nil {
		c.Timeouts.Command = *env.Command
	}
	if env.PageLoad != nil {
		c.Timeouts.PageLoad = *env.PageLoad
	}
	return c.Validate()
}

// defaultDriversDir is cyrunner/drivers under the user cache directory, or
// next to the binary when it is installed as <prefix>/bin/cyrunner.
func defaultDriversDir() string {
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		if dir := filepath.Dir(exe); filepath.Base(dir) == "bin" {
			if prefix := filepath.Dir(dir); isDir(filepath.Join(prefix, "drivers")) {
				return filepath.Join(prefix, "drivers")
			}
		}
	}
	if cache, err := os.UserCacheDir(); err == nil {
		return filepath.Join(cache, "cyrunner", "drivers")
	}
	return filepath.Join(".cyrunner", "drivers")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// DriverDir returns the install directory of the named browser driver.
func (c *Config) DriverDir(name string) string {
	return filepath.Join(c.DriversDir, name)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverPlaywright, DriverMock:
	default:
		return core.ErrInvalidConfig.WithMessagef("unknown driver %q (want playwright or mock)", c.Driver)
	}
	switch c.Browser {
	case BrowserChromium, BrowserFirefox, BrowserWebKit:
	default:
		return core.ErrInvalidConfig.WithMessagef("unknown browser %q", c.Browser)
	}
	if c.Parallel < 0 {
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("parallel must not be negative, got %d", c.Parallel))
	}
	return nil
}

// IsHeadless reports whether the browser runs without a window.
func (c *Config) IsHeadless() bool {
	return c.Headless == nil || *c.Headless
}

// Duration converts a millisecond timeout.
func Duration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
