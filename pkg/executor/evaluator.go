package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
	"github.com/devicelab-dev/cyrunner/pkg/logger"
	"github.com/devicelab-dev/cyrunner/pkg/registry"
)

// Evaluator replays a recorded queue against a driver. Hooks are optional.
type Evaluator struct {
	Registry *registry.Registry
	Phase    core.Phase
	Offset   int // added to step indexes reported to the hooks

	OnStepStart func(idx int, a flow.Action)
	OnStepEnd   func(idx int, a flow.Action, res core.StepResult)
}

// EvaluateQueue runs actions in order starting from a null subject and
// returns the last subject. The first failing step stops evaluation and its
// error is returned.
func EvaluateQueue(ctx context.Context, drv core.Driver, reg *registry.Registry, actions []flow.Action, aliases core.AliasMap) (core.Subject, error) {
	e := &Evaluator{Registry: reg, Phase: core.PhaseTest}
	return e.Run(ctx, drv, actions, aliases, core.NullSubject())
}

// Run evaluates actions starting from subject. Steps never run
// concurrently; the context is checked before each one.
func (e *Evaluator) Run(ctx context.Context, drv core.Driver, actions []flow.Action, aliases core.AliasMap, subject core.Subject) (core.Subject, error) {
	reg := e.Registry
	if reg == nil {
		reg = registry.Default()
	}
	if aliases == nil {
		aliases = core.AliasMap{}
	}

	for i, a := range actions {
		if err := ctx.Err(); err != nil {
			return subject, fmt.Errorf("step %d: %w", i, err)
		}

		idx := e.Offset + i
		if a == nil {
			return subject, fmt.Errorf("step %d: %w", idx, core.UnknownCommand("<nil>"))
		}
		if e.OnStepStart != nil {
			e.OnStepStart(idx, a)
		}

		start := time.Now()
		next, err := reg.Dispatch(ctx, a, subject, drv, aliases)
		res := core.StepResult{
			Index:     idx,
			Phase:     e.Phase,
			Command:   string(a.Type()),
			Label:     a.Describe(),
			Status:    core.StatusFor(err),
			StartTime: start,
			Duration:  time.Since(start),
			Subject:   next.Kind(),
		}
		if err != nil {
			res.Category = core.CategoryOf(err)
			res.Error = err.Error()
		}
		if e.OnStepEnd != nil {
			e.OnStepEnd(idx, a, res)
		}

		if err != nil {
			logger.Debug("step %d %s failed: %v", idx, a.Describe(), err)
			return subject, err
		}
		logger.Debug("step %d %s -> %s", idx, a.Describe(), next)
		subject = next
	}
	return subject, nil
}
