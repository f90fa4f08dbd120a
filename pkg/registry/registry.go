// Package registry maps recorded actions to the handlers that replay them
// against a browser driver.
package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
)

// Handler runs one action against the current subject and returns the next
// subject. Handlers that only cause side effects return s unchanged.
type Handler func(ctx context.Context, a flow.Action, s core.Subject, drv core.Driver, aliases core.AliasMap) (core.Subject, error)

// Registry is a pair of dispatch tables: action type to handler, and
// assertion name to handler.
type Registry struct {
	actions    map[flow.ActionType]Handler
	assertions map[flow.AssertionName]Handler
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		actions:    make(map[flow.ActionType]Handler),
		assertions: make(map[flow.AssertionName]Handler),
	}
}

// Action registers h for action type t and returns r for chaining.
func (r *Registry) Action(t flow.ActionType, h Handler) *Registry {
	r.actions[t] = h
	return r
}

// Assertion registers h for assertion name n and returns r for chaining.
func (r *Registry) Assertion(n flow.AssertionName, h Handler) *Registry {
	r.assertions[n] = h
	return r
}

// Compose returns the union of regs. When two registries define the same
// key, the later one wins. The inputs are not modified.
func Compose(regs ...*Registry) *Registry {
	out := New()
	for _, r := range regs {
		if r == nil {
			continue
		}
		for t, h := range r.actions {
			out.actions[t] = h
		}
		for n, h := range r.assertions {
			out.assertions[n] = h
		}
	}
	return out
}

// Dispatch looks up the handler for a and runs it. Assertions are looked
// up by name, every other action by type.
func (r *Registry) Dispatch(ctx context.Context, a flow.Action, s core.Subject, drv core.Driver, aliases core.AliasMap) (core.Subject, error) {
	if a == nil {
		return s, core.UnknownCommand("<nil>")
	}
	if assert, ok := a.(*flow.AssertionAction); ok {
		h, ok := r.assertions[assert.Name]
		if !ok {
			return s, core.UnknownAssertion(string(assert.Name))
		}
		return h(ctx, a, s, drv, aliases)
	}
	h, ok := r.actions[a.Type()]
	if !ok {
		return s, core.UnknownCommand(string(a.Type()))
	}
	return h(ctx, a, s, drv, aliases)
}

// ActionTypes returns the registered action types, sorted.
func (r *Registry) ActionTypes() []flow.ActionType {
	out := make([]flow.ActionType, 0, len(r.actions))
	for t := range r.actions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AssertionNames returns the registered assertion names, sorted.
func (r *Registry) AssertionNames() []flow.AssertionName {
	out := make([]flow.AssertionName, 0, len(r.assertions))
	for n := range r.assertions {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Default returns the built-in actions and assertions.
func Default() *Registry {
	return Compose(Actions(), Assertions())
}

// typed adapts a handler written against one concrete action type.
func typed[T flow.Action](fn func(ctx context.Context, a T, s core.Subject, drv core.Driver, aliases core.AliasMap) (core.Subject, error)) Handler {
	return func(ctx context.Context, a flow.Action, s core.Subject, drv core.Driver, aliases core.AliasMap) (core.Subject, error) {
		ta, ok := a.(T)
		if !ok {
			return s, core.ErrInvalidArgument.WithMessage(fmt.Sprintf("handler for %s received %T", a.Type(), a))
		}
		return fn(ctx, ta, s, drv, aliases)
	}
}
