package core

import (
	"time"
)

// Phase identifies which queue of a test a step belongs to.
type Phase string

// Phase values
const (
	PhaseBeforeEach Phase = "beforeEach"
	PhaseTest       Phase = "test"
)

// StepResult captures the complete outcome of executing a single action
type StepResult struct {
	// Identity
	Index   int    `json:"index"`   // 0-based position in the test's combined queue
	Phase   Phase  `json:"phase"`   // beforeEach or test
	Command string `json:"command"` // Action type: locator, fill, assertion, etc.
	Label   string `json:"label"`   // Human-readable description

	// Status
	Status   StepStatus    `json:"status"`
	Category ErrorCategory `json:"errorCategory,omitempty"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Output
	Subject SubjectKind `json:"subject"` // Kind of the subject the step produced

	// Error Details
	Error string `json:"error,omitempty"`
}

// TestResult captures the complete outcome of executing one test
type TestResult struct {
	// Identity
	Name     string   `json:"name"`
	Title    string   `json:"title"` // Describe path joined with the test name
	FilePath string   `json:"filePath"`
	Tags     []string `json:"tags,omitempty"`

	// Status (aggregated from steps)
	Status StepStatus `json:"status"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results
	BeforeEach []StepResult `json:"beforeEach,omitempty"`
	Steps      []StepResult `json:"steps"`

	// Summary (computed)
	TotalSteps   int `json:"totalSteps"`
	PassedSteps  int `json:"passedSteps"`
	FailedSteps  int `json:"failedSteps"`
	SkippedSteps int `json:"skippedSteps"`

	// Error info (if test failed)
	Error string `json:"error,omitempty"`
}

// ComputeSummary calculates step counts from the BeforeEach and Steps slices
func (t *TestResult) ComputeSummary() {
	t.TotalSteps = 0
	t.PassedSteps = 0
	t.FailedSteps = 0
	t.SkippedSteps = 0

	for _, steps := range [][]StepResult{t.BeforeEach, t.Steps} {
		for _, step := range steps {
			t.TotalSteps++
			switch step.Status {
			case StatusPassed:
				t.PassedSteps++
			case StatusFailed, StatusErrored:
				t.FailedSteps++
			case StatusSkipped:
				t.SkippedSteps++
			}
		}
	}
}

// hasFailure checks if any step in the slice has failed or errored
func hasFailure(steps []StepResult) bool {
	for _, step := range steps {
		if step.Status == StatusFailed || step.Status == StatusErrored {
			return true
		}
	}
	return false
}

// AggregateStatus determines the test status from step results.
// A build error recorded in Error fails the test even without steps.
func (t *TestResult) AggregateStatus() StepStatus {
	if hasFailure(t.BeforeEach) || hasFailure(t.Steps) || t.Error != "" {
		return StatusFailed
	}
	return StatusPassed
}

// SuiteResult captures the complete outcome of executing multiple tests
type SuiteResult struct {
	// Identity
	Name  string `json:"name"`
	RunID string `json:"runId"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results
	Tests []TestResult `json:"tests"`

	// Summary
	TotalTests   int `json:"totalTests"`
	PassedTests  int `json:"passedTests"`
	FailedTests  int `json:"failedTests"`
	SkippedTests int `json:"skippedTests"`
}

// ComputeSummary calculates test counts from the Tests slice
func (s *SuiteResult) ComputeSummary() {
	s.TotalTests = len(s.Tests)
	s.PassedTests = 0
	s.FailedTests = 0
	s.SkippedTests = 0

	for _, test := range s.Tests {
		switch test.Status {
		case StatusPassed:
			s.PassedTests++
		case StatusFailed, StatusErrored:
			s.FailedTests++
		case StatusSkipped:
			s.SkippedTests++
		}
	}
}

// Success returns true if all tests passed
func (s *SuiteResult) Success() bool {
	for _, test := range s.Tests {
		if !test.Status.IsSuccess() {
			return false
		}
	}
	return len(s.Tests) > 0
}
