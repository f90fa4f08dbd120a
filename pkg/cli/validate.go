package cli

import (
	"github.com/urfave/cli/v2"
)

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "Record tests without running them",
	ArgsUsage: "[test-file-or-folder]...",
	Description: `Load every test file, record each test's command queue and report
parse and chain errors. No browser is started.`,
	Flags:  configFlags(),
	Action: runValidate,
}

func runValidate(c *cli.Context) error {
	cfg, err := loadConfig(c, nil)
	if err != nil {
		return err
	}

	result := loadTests(c.Context, c, cfg)
	p := newPrinter(c.App.Writer)
	for _, t := range result.Tests {
		switch {
		case t.Skip:
			p.printf("  %s %s\n", skipColor.Sprint("-"), t.Title())
		case t.BuildErr() != nil:
			p.printf("  %s %s\n", failColor.Sprint("✗"), t.Title())
		default:
			p.printf("  %s %s %s\n", passColor.Sprint("✓"), t.Title(),
				grayColor.Sprintf("(%d steps)", t.StepCount()))
		}
	}
	p.printf("\n%d test(s) in %d file(s)\n", len(result.Tests), len(result.Files))

	if !result.IsValid() {
		return printValidationErrors(c.App.ErrWriter, result.Errors)
	}
	return nil
}
