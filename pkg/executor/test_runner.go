package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
	"github.com/devicelab-dev/cyrunner/pkg/logger"
	"github.com/devicelab-dev/cyrunner/pkg/report"
	"github.com/devicelab-dev/cyrunner/pkg/suite"
)

// TestRunner executes a single test: its beforeEach queues, then its body,
// in one session with one alias map.
type TestRunner struct {
	ctx         context.Context
	test        *suite.Test
	detail      *report.TestDetail
	sessions    SessionFactory
	worker      int
	config      RunnerConfig
	indexWriter *report.IndexWriter
	writer      *report.TestWriter
	testIdx     int
	totalTests  int

	result core.TestResult
}

// Run executes the test and returns the result.
func (tr *TestRunner) Run() core.TestResult {
	start := time.Now()
	tr.writer = report.NewTestWriter(tr.detail, tr.config.OutputDir, tr.indexWriter)
	tr.result = core.TestResult{
		Name:      tr.test.Name,
		Title:     tr.test.Title(),
		FilePath:  tr.test.FilePath,
		Tags:      tr.test.Tags,
		StartTime: start,
	}

	if tr.config.OnTestStart != nil {
		tr.config.OnTestStart(tr.testIdx, tr.totalTests, tr.result.Title, tr.test.FilePath)
	}
	if tr.test.Skip {
		return tr.skip("")
	}

	logger.Info("test %s: %s", tr.detail.ID, tr.result.Title)
	tr.writer.Start()

	status, err := tr.execute()
	if err != nil {
		tr.result.Error = err.Error()
		logger.Warn("test %s %s: %v", tr.detail.ID, status, err)
	}
	return tr.finish(status, start)
}

func (tr *TestRunner) execute() (core.StepStatus, error) {
	if err := tr.test.BuildErr(); err != nil {
		return core.StatusErrored, err
	}

	ctx := tr.ctx
	if tr.config.TestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tr.config.TestTimeout)
		defer cancel()
	}

	session, err := tr.sessions(ctx, tr.worker)
	if err != nil {
		tr.skipFrom(0)
		return core.StatusErrored, fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	aliases := core.AliasMap{}
	offset := 0
	run := func(phase core.Phase, actions []flow.Action) error {
		e := &Evaluator{
			Registry:    tr.config.Registry,
			Phase:       phase,
			Offset:      offset,
			OnStepStart: func(idx int, _ flow.Action) { tr.writer.CommandStart(idx) },
			OnStepEnd:   func(idx int, _ flow.Action, res core.StepResult) { tr.stepEnd(idx, res) },
		}
		_, err := e.Run(ctx, session.Driver, actions, aliases, core.NullSubject())
		offset += len(actions)
		return err
	}

	for _, h := range tr.test.Hooks {
		if err := run(core.PhaseBeforeEach, h.Actions); err != nil {
			return tr.stepFailed(err)
		}
	}
	if err := run(core.PhaseTest, tr.test.Actions); err != nil {
		return tr.stepFailed(err)
	}
	return core.StatusPassed, nil
}

// stepFailed marks every command that has not run as skipped and maps the
// error to the test status. Cancellation skips the test.
func (tr *TestRunner) stepFailed(err error) (core.StepStatus, error) {
	tr.skipFrom(len(tr.result.BeforeEach) + len(tr.result.Steps))
	if errors.Is(err, context.Canceled) {
		return core.StatusSkipped, errors.New("execution cancelled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.StatusErrored, core.ErrTimeout.WithMessagef("test exceeded %s", tr.config.TestTimeout).WithCause(err)
	}
	return core.StatusFor(err), err
}

func (tr *TestRunner) stepEnd(idx int, res core.StepResult) {
	tr.writer.CommandEnd(idx, res)
	if res.Phase == core.PhaseBeforeEach {
		tr.result.BeforeEach = append(tr.result.BeforeEach, res)
	} else {
		tr.result.Steps = append(tr.result.Steps, res)
	}
	if tr.config.OnStepComplete != nil {
		tr.config.OnStepComplete(res)
	}
}

// skipFrom records skipped results for the commands at and after from.
func (tr *TestRunner) skipFrom(from int) {
	tr.writer.SkipRemainingCommands(from)
	for i, cmd := range tr.detail.Commands {
		if i < from {
			continue
		}
		res := core.StepResult{
			Index:   i,
			Phase:   cmd.Phase,
			Command: cmd.Type,
			Label:   cmd.Label,
			Status:  core.StatusSkipped,
		}
		if cmd.Phase == core.PhaseBeforeEach {
			tr.result.BeforeEach = append(tr.result.BeforeEach, res)
		} else {
			tr.result.Steps = append(tr.result.Steps, res)
		}
	}
}

// skip reports a test that never ran.
func (tr *TestRunner) skip(reason string) core.TestResult {
	if tr.writer == nil {
		tr.writer = report.NewTestWriter(tr.detail, tr.config.OutputDir, tr.indexWriter)
		tr.result = core.TestResult{
			Name:     tr.test.Name,
			Title:    tr.test.Title(),
			FilePath: tr.test.FilePath,
			Tags:     tr.test.Tags,
		}
	}
	tr.writer.Skip()
	tr.result.Status = core.StatusSkipped
	tr.result.Error = reason
	if tr.config.OnTestEnd != nil {
		tr.config.OnTestEnd(tr.result.Title, core.StatusSkipped, 0)
	}
	return tr.result
}

func (tr *TestRunner) finish(status core.StepStatus, start time.Time) core.TestResult {
	tr.writer.End(report.FromStepStatus(status))

	tr.result.Status = status
	tr.result.Duration = time.Since(start)
	tr.result.ComputeSummary()

	if tr.config.OnTestEnd != nil {
		tr.config.OnTestEnd(tr.result.Title, status, tr.result.Duration.Milliseconds())
	}
	return tr.result
}
