// Package cli provides the command-line interface for cyrunner.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable verbose logging",
		EnvVars: []string{"CYRUNNER_VERBOSE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// configFlags select and override the workspace configuration.
func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to cyrunner.yaml (default: ./cyrunner.yaml when present)",
		},
		&cli.StringSliceFlag{
			Name:    "env",
			Aliases: []string{"e"},
			Usage:   "Cypress.env values (KEY=VALUE)",
		},
		&cli.StringFlag{
			Name:  "base-url",
			Usage: "Prefix for relative cy.visit URLs",
		},
		&cli.StringSliceFlag{
			Name:  "include-tags",
			Usage: "Only include tests with these tags",
		},
		&cli.StringSliceFlag{
			Name:  "exclude-tags",
			Usage: "Exclude tests with these tags",
		},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "cyrunner",
		Usage:   "Cypress-style test runner backed by a real browser",
		Version: Version,
		Description: `cyrunner records cy command chains from test files and replays them
against a browser, one command at a time.

Examples:
  cyrunner run cypress/e2e
  cyrunner run todo.cy.js -e user=alice --headed
  cyrunner validate cypress/e2e
  cyrunner queue todo.cy.yaml --format yaml`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				color.NoColor = true
			}
			return nil
		},
		Commands: []*cli.Command{
			runCommand,
			validateCommand,
			queueCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
