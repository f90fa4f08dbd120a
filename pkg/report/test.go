package report

import (
	"path/filepath"
	"time"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/logger"
)

// TestWriter writes updates for a single test.
// Each test goroutine has its own TestWriter - no locking needed.
type TestWriter struct {
	test  *TestDetail
	path  string
	index *IndexWriter
}

// NewTestWriter creates a new TestWriter for a test.
func NewTestWriter(detail *TestDetail, outputDir string, index *IndexWriter) *TestWriter {
	return &TestWriter{
		test:  detail,
		path:  filepath.Join(outputDir, "tests", detail.ID+".json"),
		index: index,
	}
}

// Start marks the test as started.
func (w *TestWriter) Start() {
	now := time.Now()
	w.test.StartTime = now

	w.flush()
	w.updateIndex(StatusRunning, &now, nil, nil, nil)
}

// CommandStart marks a command as started.
func (w *TestWriter) CommandStart(cmdIndex int) {
	if cmdIndex < 0 || cmdIndex >= len(w.test.Commands) {
		return
	}

	now := time.Now()
	cmd := &w.test.Commands[cmdIndex]
	cmd.Status = StatusRunning
	cmd.StartTime = &now

	w.flush()
	w.updateIndexProgress()
}

// CommandEnd records the outcome of a command.
func (w *TestWriter) CommandEnd(cmdIndex int, res core.StepResult) {
	if cmdIndex < 0 || cmdIndex >= len(w.test.Commands) {
		return
	}

	cmd := &w.test.Commands[cmdIndex]
	start := res.StartTime
	if cmd.StartTime != nil {
		start = *cmd.StartTime
	} else {
		cmd.StartTime = &start
	}
	end := start.Add(res.Duration)
	duration := res.Duration.Milliseconds()

	cmd.Status = FromStepStatus(res.Status)
	cmd.EndTime = &end
	cmd.Duration = &duration
	if res.Status == core.StatusPassed {
		cmd.Subject = res.Subject.String()
	}
	if res.Error != "" {
		cmd.Error = &Error{Type: res.Category.String(), Message: res.Error}
	}

	w.flush()
	w.updateIndexProgress()
}

// SkipRemainingCommands marks all pending commands as skipped.
// Called when a command fails and the rest of the test will not run.
func (w *TestWriter) SkipRemainingCommands(fromIndex int) {
	if fromIndex < 0 {
		fromIndex = 0
	}
	for i := fromIndex; i < len(w.test.Commands); i++ {
		if w.test.Commands[i].Status == StatusPending {
			w.test.Commands[i].Status = StatusSkipped
		}
	}
	w.flush()
}

// Skip reports a test that was never run.
func (w *TestWriter) Skip() {
	w.SkipRemainingCommands(0)
	w.updateIndex(StatusSkipped, nil, nil, nil, nil)
}

// End marks the test as complete.
func (w *TestWriter) End(status Status) {
	now := time.Now()
	w.test.EndTime = &now

	var duration int64
	if !w.test.StartTime.IsZero() {
		duration = now.Sub(w.test.StartTime).Milliseconds()
		w.test.Duration = &duration
	}

	w.flush()

	var errMsg *string
	if status == StatusFailed || status == StatusErrored {
		errMsg = w.firstError()
	}
	w.updateIndex(status, nil, &now, &duration, errMsg)
}

func (w *TestWriter) firstError() *string {
	if w.test.Error != nil {
		return &w.test.Error.Message
	}
	for _, cmd := range w.test.Commands {
		if cmd.Error != nil {
			msg := cmd.Error.Message
			return &msg
		}
	}
	return nil
}

// GetTestDetail returns the current test detail (for reading).
func (w *TestWriter) GetTestDetail() *TestDetail {
	return w.test
}

// flush writes the test detail to disk.
func (w *TestWriter) flush() {
	if err := atomicWriteJSON(w.path, w.test); err != nil {
		logger.Warn("write test %s: %v", w.test.ID, err)
	}
}

func (w *TestWriter) updateIndex(status Status, startTime, endTime *time.Time, duration *int64, errMsg *string) {
	if w.index == nil {
		return
	}
	w.index.UpdateTest(w.test.ID, &TestUpdate{
		Status:    status,
		StartTime: startTime,
		EndTime:   endTime,
		Duration:  duration,
		Commands:  w.commandSummary(),
		Error:     errMsg,
	})
}

// updateIndexProgress updates the index with progress only.
func (w *TestWriter) updateIndexProgress() {
	w.updateIndex(StatusRunning, nil, nil, nil, nil)
}

// commandSummary computes command summary.
func (w *TestWriter) commandSummary() CommandSummary {
	var s CommandSummary
	s.Total = len(w.test.Commands)

	for i, cmd := range w.test.Commands {
		switch cmd.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusErrored:
			s.Errored++
		case StatusSkipped:
			s.Skipped++
		case StatusRunning:
			s.Running++
			idx := i
			s.Current = &idx
		case StatusPending:
			s.Pending++
		}
	}

	return s
}
