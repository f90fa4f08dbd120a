package report

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
	"github.com/devicelab-dev/cyrunner/pkg/suite"
)

// BuilderConfig contains configuration for building the report skeleton.
type BuilderConfig struct {
	OutputDir     string  // Base output directory for reports
	Browser       Browser // Browser information
	RunnerVersion string  // cyrunner version
	DriverName    string  // Driver name (playwright, mock)
}

// BuildSkeleton creates the initial report structure from collected tests.
// All tests and commands are set to "pending" status. Commands list the
// beforeEach actions first, then the test body, in the order they run.
func BuildSkeleton(tests []*suite.Test, cfg BuilderConfig) (*Index, []TestDetail) {
	now := time.Now()

	index := &Index{
		Version:     Version,
		RunID:       uuid.NewString(),
		Status:      StatusPending,
		StartTime:   now,
		LastUpdated: now,
		Browser:     cfg.Browser,
		Runner: RunnerInfo{
			Version: cfg.RunnerVersion,
			Driver:  cfg.DriverName,
		},
		Summary: Summary{
			Total:   len(tests),
			Pending: len(tests),
		},
		Tests: make([]TestEntry, len(tests)),
	}

	details := make([]TestDetail, len(tests))
	for i, t := range tests {
		id := TestID(i)
		commands := buildCommands(t)

		index.Tests[i] = TestEntry{
			Index:      i,
			ID:         id,
			Name:       t.Name,
			Title:      t.Title(),
			SourceFile: t.FilePath,
			DataFile:   filepath.Join("tests", id+".json"),
			Tags:       t.Tags,
			Status:     StatusPending,
			Commands: CommandSummary{
				Total:   len(commands),
				Pending: len(commands),
			},
		}

		details[i] = TestDetail{
			ID:         id,
			Name:       t.Name,
			Title:      t.Title(),
			Path:       t.Path,
			SourceFile: t.FilePath,
			Tags:       t.Tags,
			Commands:   commands,
		}
		if err := t.BuildErr(); err != nil {
			details[i].Error = &Error{Type: core.CategoryOf(err).String(), Message: err.Error()}
		}
	}

	return index, details
}

// TestID is the report ID of the i-th test.
func TestID(i int) string {
	return fmt.Sprintf("test-%03d", i)
}

// buildCommands creates Command entries from a test's hooks and body.
// Tests that failed to build record no commands.
func buildCommands(t *suite.Test) []Command {
	if t.BuildErr() != nil || t.Skip {
		return []Command{}
	}
	commands := make([]Command, 0, t.StepCount())
	add := func(phase core.Phase, actions []flow.Action) {
		for _, a := range actions {
			i := len(commands)
			commands = append(commands, Command{
				ID:     fmt.Sprintf("cmd-%03d", i),
				Index:  i,
				Phase:  phase,
				Type:   string(a.Type()),
				Label:  a.Describe(),
				Status: StatusPending,
			})
		}
	}
	for _, h := range t.Hooks {
		add(core.PhaseBeforeEach, h.Actions)
	}
	add(core.PhaseTest, t.Actions)
	return commands
}

// WriteSkeleton writes the initial skeleton to disk.
// Creates report.json and all test detail files with pending status.
func WriteSkeleton(outputDir string, index *Index, details []TestDetail) error {
	if err := ensureDir(filepath.Join(outputDir, "tests")); err != nil {
		return fmt.Errorf("create tests dir: %w", err)
	}

	for _, d := range details {
		path := filepath.Join(outputDir, "tests", d.ID+".json")
		if err := atomicWriteJSON(path, d); err != nil {
			return fmt.Errorf("write test %s: %w", d.ID, err)
		}
	}

	if err := atomicWriteJSON(filepath.Join(outputDir, "report.json"), index); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}
