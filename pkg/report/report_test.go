package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/cy"
	"github.com/devicelab-dev/cyrunner/pkg/suite"
)

func collect(t *testing.T) []*suite.Test {
	t.Helper()
	c := suite.NewCollector("specs/todo.cy.js")
	c.Describe("todo", func() {
		c.BeforeEach(func(cy *cy.Entry) { cy.Visit("http://localhost:3000/") })
		c.It("adds", func(cy *cy.Entry) {
			cy.Get(".new-todo").Type("milk")
			cy.Get("li").Should("have.length", 1)
		}, "smoke")
		c.It("bad", func(cy *cy.Entry) { cy.Invoke("hover") })
		c.Skip("later")
	})
	return c.Tests()
}

func TestBuildSkeleton(t *testing.T) {
	index, details := BuildSkeleton(collect(t), BuilderConfig{
		Browser:       Browser{Name: "mock"},
		RunnerVersion: "dev",
		DriverName:    "mock",
	})

	if index.RunID == "" {
		t.Error("RunID is empty")
	}
	if index.Status != StatusPending || index.Summary.Pending != 3 {
		t.Errorf("Status = %s, Summary = %+v", index.Status, index.Summary)
	}
	if len(index.Tests) != 3 || len(details) != 3 {
		t.Fatalf("tests = %d/%d, want 3", len(index.Tests), len(details))
	}

	e := index.Tests[0]
	if e.ID != "test-000" || e.Title != "todo > adds" || e.DataFile != filepath.Join("tests", "test-000.json") {
		t.Errorf("entry = %+v", e)
	}
	if e.Commands.Total != 5 || e.Commands.Pending != 5 {
		t.Errorf("Commands = %+v, want 5 pending", e.Commands)
	}

	cmds := details[0].Commands
	if cmds[0].Phase != core.PhaseBeforeEach || cmds[0].Type != "navigate" {
		t.Errorf("cmds[0] = %+v", cmds[0])
	}
	for i, c := range cmds[1:] {
		if c.Phase != core.PhaseTest {
			t.Errorf("cmds[%d].Phase = %s, want test", i+1, c.Phase)
		}
	}
	if cmds[4].ID != "cmd-004" || cmds[4].Index != 4 {
		t.Errorf("cmds[4] = %+v", cmds[4])
	}

	if details[1].Error == nil || details[1].Error.Type != "unknown_command" {
		t.Errorf("build error = %+v", details[1].Error)
	}
	if len(details[1].Commands) != 0 || len(details[2].Commands) != 0 {
		t.Error("tests that do not run should record no commands")
	}
}

func newRun(t *testing.T) (string, *IndexWriter, *TestWriter) {
	t.Helper()
	dir := t.TempDir()
	index, details := BuildSkeleton(collect(t)[:1], BuilderConfig{})
	if err := WriteSkeleton(dir, index, details); err != nil {
		t.Fatalf("WriteSkeleton() error = %v", err)
	}
	iw := NewIndexWriter(dir, index)
	return dir, iw, NewTestWriter(&details[0], dir, iw)
}

func TestWriteSkeleton_Readable(t *testing.T) {
	dir, iw, _ := newRun(t)
	defer iw.Close()

	index, details, err := ReadReport(dir)
	if err != nil {
		t.Fatalf("ReadReport() error = %v", err)
	}
	if len(details) != 1 || details[0].Title != "todo > adds" {
		t.Errorf("details = %+v", details)
	}
	if index.Tests[0].Commands.Total != 5 {
		t.Errorf("Commands.Total = %d, want 5", index.Tests[0].Commands.Total)
	}
}

func TestTestWriter_Lifecycle(t *testing.T) {
	dir, iw, tw := newRun(t)
	iw.Start()
	tw.Start()

	start := time.Now()
	tw.CommandStart(0)
	tw.CommandEnd(0, core.StepResult{Index: 0, Status: core.StatusPassed, StartTime: start, Duration: 15 * time.Millisecond, Subject: core.KindValue})
	tw.CommandStart(1)
	tw.CommandEnd(1, core.StepResult{
		Index: 1, Status: core.StatusErrored, StartTime: start, Duration: time.Millisecond,
		Category: core.ErrCategoryDriver, Error: "click failed: no element matches",
	})
	tw.SkipRemainingCommands(2)
	tw.End(StatusErrored)
	iw.End()
	iw.Close()

	detail := tw.GetTestDetail()
	if *detail.Commands[0].Duration != 15 || detail.Commands[0].Subject != "value" {
		t.Errorf("cmd 0 = %+v", detail.Commands[0])
	}
	if detail.Commands[1].Status != StatusErrored || detail.Commands[1].Error.Type != "driver" {
		t.Errorf("cmd 1 = %+v", detail.Commands[1])
	}
	for _, c := range detail.Commands[2:] {
		if c.Status != StatusSkipped {
			t.Errorf("cmd %d status = %s, want skipped", c.Index, c.Status)
		}
	}

	index, err := ReadIndex(dir)
	if err != nil {
		t.Fatalf("ReadIndex() error = %v", err)
	}
	entry := index.Tests[0]
	if entry.Status != StatusErrored {
		t.Errorf("entry status = %s, want errored", entry.Status)
	}
	if entry.Error == nil || *entry.Error != "click failed: no element matches" {
		t.Errorf("entry error = %v", entry.Error)
	}
	if entry.StartTime == nil || entry.EndTime == nil {
		t.Error("entry times not recorded")
	}
	want := CommandSummary{Total: 5, Passed: 1, Errored: 1, Skipped: 3}
	if entry.Commands != want {
		t.Errorf("Commands = %+v, want %+v", entry.Commands, want)
	}
	if index.Status != StatusFailed {
		t.Errorf("run status = %s, want failed", index.Status)
	}
	if index.Summary.Errored != 1 {
		t.Errorf("Summary = %+v", index.Summary)
	}
	if _, err := os.Stat(filepath.Join(dir, "tests", "test-000.json")); err != nil {
		t.Errorf("test detail not written: %v", err)
	}
}

func TestTestWriter_OutOfRange(t *testing.T) {
	_, iw, tw := newRun(t)
	defer iw.Close()
	tw.CommandStart(-1)
	tw.CommandEnd(99, core.StepResult{Status: core.StatusPassed})
	for _, c := range tw.GetTestDetail().Commands {
		if c.Status != StatusPending {
			t.Errorf("cmd %d status = %s, want pending", c.Index, c.Status)
		}
	}
}

func TestTestWriter_Skip(t *testing.T) {
	dir, iw, tw := newRun(t)
	tw.Skip()
	iw.End()

	index, err := ReadIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	if index.Tests[0].Status != StatusSkipped || index.Status != StatusPassed {
		t.Errorf("test = %s, run = %s; want skipped, passed", index.Tests[0].Status, index.Status)
	}
}

func TestIndexWriter_DebouncedProgress(t *testing.T) {
	dir, iw, tw := newRun(t)
	defer iw.Close()
	iw.Start()
	tw.Start()
	tw.CommandStart(0)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		index, err := ReadIndex(dir)
		if err == nil && index.Tests[0].Commands.Running == 1 {
			cur := index.Tests[0].Commands.Current
			if cur == nil || *cur != 0 {
				t.Errorf("Current = %v, want 0", cur)
			}
			if index.Tests[0].StartTime == nil {
				t.Error("StartTime lost while merging debounced updates")
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("debounced progress update never written")
}

func TestComputeRunStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all passed", []Status{StatusPassed, StatusPassed}, StatusPassed},
		{"skipped counts as complete", []Status{StatusPassed, StatusSkipped}, StatusPassed},
		{"failed", []Status{StatusPassed, StatusFailed}, StatusFailed},
		{"errored", []Status{StatusErrored, StatusPassed}, StatusFailed},
		{"incomplete", []Status{StatusPassed, StatusPending}, StatusRunning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := &Index{}
			for _, s := range tt.statuses {
				idx.Tests = append(idx.Tests, TestEntry{Status: s})
			}
			w := &IndexWriter{index: idx}
			if got := w.computeRunStatus(); got != tt.want {
				t.Errorf("computeRunStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFromStepStatus(t *testing.T) {
	tests := []struct {
		in   core.StepStatus
		want Status
	}{
		{core.StatusPending, StatusPending},
		{core.StatusRunning, StatusRunning},
		{core.StatusPassed, StatusPassed},
		{core.StatusFailed, StatusFailed},
		{core.StatusErrored, StatusErrored},
		{core.StatusSkipped, StatusSkipped},
	}
	for _, tt := range tests {
		if got := FromStepStatus(tt.in); got != tt.want {
			t.Errorf("FromStepStatus(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
