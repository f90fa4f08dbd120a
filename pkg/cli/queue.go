package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/cyrunner/pkg/flow"
	"github.com/devicelab-dev/cyrunner/pkg/suite"
)

var queueCommand = &cli.Command{
	Name:      "queue",
	Usage:     "Print the recorded command queue of every test",
	ArgsUsage: "[test-file-or-folder]...",
	Description: `Record tests and print the actions each one would run, hooks first.
Values computed by wrapped functions cannot be printed and are reported
as errors for the test that holds them.`,
	Flags: append(configFlags(),
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output format (json, yaml)",
			Value: "json",
		},
	),
	Action: runQueue,
}

// recordedTest is one test's queues in printable form.
type recordedTest struct {
	File       string        `json:"file" yaml:"file"`
	Title      string        `json:"title" yaml:"title"`
	Tags       []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	Skip       bool          `json:"skip,omitempty" yaml:"skip,omitempty"`
	BeforeEach []interface{} `json:"beforeEach,omitempty" yaml:"beforeEach,omitempty"`
	Queue      []interface{} `json:"queue" yaml:"queue"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
}

func runQueue(c *cli.Context) error {
	format := c.String("format")
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
	cfg, err := loadConfig(c, nil)
	if err != nil {
		return err
	}

	result := loadTests(c.Context, c, cfg)
	for _, err := range result.Errors {
		fmt.Fprintf(c.App.ErrWriter, "Warning: %v\n", err)
	}

	out := make([]recordedTest, 0, len(result.Tests))
	for _, t := range result.Tests {
		out = append(out, record(t))
	}
	return writeQueues(c.App.Writer, format, out)
}

func record(t *suite.Test) recordedTest {
	rt := recordedTest{
		File:  t.FilePath,
		Title: t.Title(),
		Tags:  t.Tags,
		Skip:  t.Skip,
		Queue: []interface{}{},
	}
	if err := t.BuildErr(); err != nil {
		rt.Error = err.Error()
		return rt
	}

	var hooks []flow.Action
	for _, h := range t.Hooks {
		hooks = append(hooks, h.Actions...)
	}
	var err error
	if rt.BeforeEach, err = encodeActions(hooks); err != nil {
		rt.Error = fmt.Sprintf("beforeEach: %v", err)
		return rt
	}
	if rt.Queue, err = encodeActions(t.Actions); err != nil {
		rt.Error = err.Error()
	}
	return rt
}

// encodeActions converts actions to plain values through their JSON form.
func encodeActions(actions []flow.Action) ([]interface{}, error) {
	if len(actions) == 0 {
		return []interface{}{}, nil
	}
	data, err := flow.Encode(actions)
	if err != nil {
		return nil, err
	}
	var items []interface{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func writeQueues(w io.Writer, format string, tests []recordedTest) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(tests); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tests)
	}
}
