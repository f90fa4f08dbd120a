package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/cyrunner/pkg/config"
	"github.com/devicelab-dev/cyrunner/pkg/cy"
	"github.com/devicelab-dev/cyrunner/pkg/validator"
)

// loadConfig resolves the workspace configuration. Later sources win:
// the config file, then CYRUNNER_* variables, then flags.
func loadConfig(c *cli.Context, lookup func(string) (string, bool)) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	applyFlags(c, cfg)
	return cfg, cfg.Validate()
}

// applyFlags copies explicitly set flags over cfg. Flags a command does not
// define are never set.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("base-url") {
		cfg.BaseURL = c.String("base-url")
	}
	if c.IsSet("include-tags") {
		cfg.IncludeTags = c.StringSlice("include-tags")
	}
	if c.IsSet("exclude-tags") {
		cfg.ExcludeTags = c.StringSlice("exclude-tags")
	}
	if c.IsSet("driver") {
		cfg.Driver = c.String("driver")
	}
	if c.IsSet("browser") {
		cfg.Browser = c.String("browser")
	}
	if c.IsSet("headed") {
		headless := !c.Bool("headed")
		cfg.Headless = &headless
	}
	if c.IsSet("pages") {
		cfg.Pages = c.String("pages")
	}
	if c.IsSet("output") {
		cfg.Output = c.String("output")
	}
	if c.IsSet("parallel") {
		cfg.Parallel = c.Int("parallel")
	}
	if c.IsSet("stop-on-fail") {
		cfg.StopOnFail = c.Bool("stop-on-fail")
	}
}

// mergeEnv overlays -e values on the configured Cypress.env map.
func mergeEnv(base map[string]interface{}, flags map[string]string) map[string]interface{} {
	env := make(map[string]interface{}, len(base)+len(flags))
	for k, v := range base {
		env[k] = v
	}
	for k, v := range flags {
		env[k] = v // CLI overrides workspace config
	}
	return env
}

func parseEnvVars(envs []string) map[string]string {
	result := make(map[string]string)
	for _, e := range envs {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		}
	}
	return result
}

// testPaths returns the command arguments, or the working directory.
func testPaths(c *cli.Context) []string {
	if c.NArg() == 0 {
		return []string{"."}
	}
	return c.Args().Slice()
}

// loadTests discovers, records and filters the tests under paths.
func loadTests(ctx context.Context, c *cli.Context, cfg *config.Config) *validator.Result {
	opts := validator.Options{
		SpecPattern: cfg.SpecPattern,
		IncludeTags: cfg.IncludeTags,
		ExcludeTags: cfg.ExcludeTags,
		Env:         mergeEnv(cfg.Env, parseEnvVars(c.StringSlice("env"))),
	}
	if cfg.BaseURL != "" {
		opts.Cy = append(opts.Cy, cy.WithBaseURL(cfg.BaseURL))
	}
	return validator.New(opts).Validate(ctx, testPaths(c)...)
}

// printValidationErrors lists errors on w and returns a summary error.
func printValidationErrors(w io.Writer, errs []error) error {
	fmt.Fprintf(w, "Validation errors:\n")
	for _, err := range errs {
		fmt.Fprintf(w, "  - %v\n", err)
	}
	return fmt.Errorf("validation failed with %d error(s)", len(errs))
}
