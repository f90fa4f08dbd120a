// Package report provides JSON-based test reporting with real-time updates.
//
// Architecture:
//   - report.json: Main index file (small, frequently updated, mutex-protected)
//   - tests/test-XXX.json: Per-test detail files (no lock needed)
//
// The index file serves as single source of truth for status and change tracking.
// Consumers poll report.json and only fetch changed test details as needed.
package report

import (
	"time"

	"github.com/devicelab-dev/cyrunner/pkg/core"
)

// Version is the report schema version.
const Version = "1.0.0"

// Status represents the execution status.
type Status string

// Status values.
const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusErrored Status = "errored"
	StatusSkipped Status = "skipped"
)

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusErrored || s == StatusSkipped
}

// FromStepStatus maps an evaluator status to a report status.
func FromStepStatus(s core.StepStatus) Status {
	switch s {
	case core.StatusRunning:
		return StatusRunning
	case core.StatusPassed:
		return StatusPassed
	case core.StatusFailed:
		return StatusFailed
	case core.StatusErrored:
		return StatusErrored
	case core.StatusSkipped:
		return StatusSkipped
	default:
		return StatusPending
	}
}

// ============================================================================
// INDEX (report.json)
// ============================================================================

// Index is the main report file that binds everything together.
// It contains minimal info for efficient polling and change detection.
type Index struct {
	Version     string      `json:"version"`
	RunID       string      `json:"runId"`
	UpdateSeq   uint64      `json:"updateSeq"`
	Status      Status      `json:"status"`
	StartTime   time.Time   `json:"startTime"`
	EndTime     *time.Time  `json:"endTime,omitempty"`
	LastUpdated time.Time   `json:"lastUpdated"`
	Browser     Browser     `json:"browser"`
	Runner      RunnerInfo  `json:"runner"`
	Summary     Summary     `json:"summary"`
	Tests       []TestEntry `json:"tests"`
}

// Browser describes the browser the run drove.
type Browser struct {
	Name     string `json:"name"` // chromium, firefox, webkit, mock
	Headless bool   `json:"headless"`
	BaseURL  string `json:"baseUrl,omitempty"`
}

// RunnerInfo contains cyrunner information.
type RunnerInfo struct {
	Version string `json:"version"`
	Driver  string `json:"driver"` // playwright, mock
}

// Summary contains aggregated counts.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Skipped int `json:"skipped"`
	Running int `json:"running"`
	Pending int `json:"pending"`
}

// TestEntry is the index entry for a test (minimal info).
type TestEntry struct {
	Index       int            `json:"index"`
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Title       string         `json:"title"`
	SourceFile  string         `json:"sourceFile"`
	DataFile    string         `json:"dataFile"`
	Tags        []string       `json:"tags,omitempty"`
	Status      Status         `json:"status"`
	UpdateSeq   uint64         `json:"updateSeq"`
	StartTime   *time.Time     `json:"startTime,omitempty"`
	EndTime     *time.Time     `json:"endTime,omitempty"`
	Duration    *int64         `json:"duration,omitempty"` // milliseconds
	LastUpdated *time.Time     `json:"lastUpdated,omitempty"`
	Commands    CommandSummary `json:"commands"`
	Error       *string        `json:"error,omitempty"`
}

// CommandSummary contains command counts for a test.
type CommandSummary struct {
	Total   int  `json:"total"`
	Passed  int  `json:"passed"`
	Failed  int  `json:"failed"`
	Errored int  `json:"errored"`
	Skipped int  `json:"skipped"`
	Running int  `json:"running"`
	Pending int  `json:"pending"`
	Current *int `json:"current,omitempty"` // Currently running command index
}

// ============================================================================
// TEST DETAIL (tests/test-XXX.json)
// ============================================================================

// TestDetail contains full test execution details.
type TestDetail struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Title      string     `json:"title"`
	Path       []string   `json:"path,omitempty"`
	SourceFile string     `json:"sourceFile"`
	Tags       []string   `json:"tags,omitempty"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Duration   *int64     `json:"duration,omitempty"` // milliseconds
	Commands   []Command  `json:"commands"`
	Error      *Error     `json:"error,omitempty"` // build error
}

// Command represents a single recorded action.
type Command struct {
	ID        string     `json:"id"`
	Index     int        `json:"index"`
	Phase     core.Phase `json:"phase"`
	Type      string     `json:"type"`
	Label     string     `json:"label,omitempty"`
	Status    Status     `json:"status"`
	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Duration  *int64     `json:"duration,omitempty"` // milliseconds
	Subject   string     `json:"subject,omitempty"`  // kind of subject the command yielded
	Error     *Error     `json:"error,omitempty"`
}

// Error contains error details.
type Error struct {
	Type    string `json:"type"` // error category: assertion, driver, subject, chain, ...
	Message string `json:"message"`
}

// ============================================================================
// UPDATE TYPES
// ============================================================================

// TestUpdate contains the fields to update in index for a test.
type TestUpdate struct {
	Status    Status
	StartTime *time.Time
	EndTime   *time.Time
	Duration  *int64
	Commands  CommandSummary
	Error     *string
}
