// Package executor replays recorded command queues against browser drivers
// and connects the results to reports.
package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/registry"
	"github.com/devicelab-dev/cyrunner/pkg/report"
	"github.com/devicelab-dev/cyrunner/pkg/suite"
)

// Session is one browser session a test runs in.
type Session struct {
	ID      int
	Driver  core.Driver
	Cleanup func()
}

// Close releases the session.
func (s *Session) Close() {
	if s != nil && s.Cleanup != nil {
		s.Cleanup()
	}
}

// SessionFactory opens a fresh session for a test. worker identifies the
// goroutine asking, starting at 0.
type SessionFactory func(ctx context.Context, worker int) (*Session, error)

// SharedSession returns a factory handing out drv for every test.
// Use it only with sequential runs.
func SharedSession(drv core.Driver) SessionFactory {
	return func(_ context.Context, worker int) (*Session, error) {
		return &Session{ID: worker, Driver: drv}, nil
	}
}

// RunnerConfig configures the test runner.
type RunnerConfig struct {
	OutputDir   string        // Report output directory
	Parallelism int           // Max concurrent tests (0 = sequential)
	StopOnFail  bool          // Skip tests not yet started after the first failure
	TestTimeout time.Duration // Per-test deadline (0 = none)
	Registry    *registry.Registry

	// Report metadata
	Browser       report.Browser
	RunnerVersion string
	DriverName    string

	// Live progress callbacks
	OnTestStart    func(testIdx, totalTests int, title, file string)
	OnStepComplete func(res core.StepResult)
	OnTestEnd      func(title string, status core.StepStatus, durationMs int64)
}

// RunResult contains the outcome of a test run.
type RunResult struct {
	Status       report.Status
	RunID        string
	TotalTests   int
	PassedTests  int
	FailedTests  int // failed and errored
	SkippedTests int
	Duration     int64 // Wall clock duration in milliseconds
	Tests        []core.TestResult
}

// Runner orchestrates test execution.
type Runner struct {
	config   RunnerConfig
	sessions SessionFactory
}

// New creates a new Runner.
func New(sessions SessionFactory, cfg RunnerConfig) *Runner {
	if cfg.Registry == nil {
		cfg.Registry = registry.Default()
	}
	return &Runner{
		config:   cfg,
		sessions: sessions,
	}
}

// workItem represents a test and its index in the original test list.
type workItem struct {
	test  *suite.Test
	index int
}

// Run executes all tests and writes the report.
func (r *Runner) Run(ctx context.Context, tests []*suite.Test) (*RunResult, error) {
	if r.sessions == nil {
		return nil, fmt.Errorf("no session factory configured")
	}

	index, details := report.BuildSkeleton(tests, report.BuilderConfig{
		OutputDir:     r.config.OutputDir,
		Browser:       r.config.Browser,
		RunnerVersion: r.config.RunnerVersion,
		DriverName:    r.config.DriverName,
	})
	if err := report.WriteSkeleton(r.config.OutputDir, index, details); err != nil {
		return nil, err
	}

	indexWriter := report.NewIndexWriter(r.config.OutputDir, index)
	defer indexWriter.Close()

	indexWriter.Start()
	startTime := time.Now()

	workers := r.config.Parallelism
	if workers <= 0 {
		workers = 1
	}
	if workers > len(tests) {
		workers = len(tests)
	}

	queue := make(chan workItem, len(tests))
	for i, t := range tests {
		queue <- workItem{test: t, index: i}
	}
	close(queue)

	results := make([]core.TestResult, len(tests))
	var stop atomic.Bool
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for item := range queue {
				tr := &TestRunner{
					ctx:         ctx,
					test:        item.test,
					detail:      &details[item.index],
					sessions:    r.sessions,
					worker:      worker,
					config:      r.config,
					indexWriter: indexWriter,
					testIdx:     item.index,
					totalTests:  len(tests),
				}
				if stop.Load() || ctx.Err() != nil {
					results[item.index] = tr.skip("run stopped")
					continue
				}
				res := tr.Run()
				results[item.index] = res
				if r.config.StopOnFail && failed(res.Status) {
					stop.Store(true)
				}
			}
		}(w)
	}
	wg.Wait()

	indexWriter.End()

	result := buildRunResult(results, time.Since(startTime).Milliseconds())
	result.RunID = index.RunID
	return result, nil
}

func failed(s core.StepStatus) bool {
	return s == core.StatusFailed || s == core.StatusErrored
}

// buildRunResult aggregates test results into a run result.
func buildRunResult(tests []core.TestResult, wallClock int64) *RunResult {
	result := &RunResult{
		TotalTests: len(tests),
		Duration:   wallClock,
		Tests:      tests,
	}

	for _, t := range tests {
		switch t.Status {
		case core.StatusPassed:
			result.PassedTests++
		case core.StatusFailed, core.StatusErrored:
			result.FailedTests++
		case core.StatusSkipped:
			result.SkippedTests++
		}
	}

	if result.FailedTests > 0 {
		result.Status = report.StatusFailed
	} else {
		result.Status = report.StatusPassed // All passed or skipped
	}
	return result
}
