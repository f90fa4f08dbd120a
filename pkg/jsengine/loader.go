package jsengine

import (
	"context"
	"fmt"
	"os"

	"github.com/dop251/goja"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/cy"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
	"github.com/devicelab-dev/cyrunner/pkg/suite"
)

// loader installs the test registration globals into an engine and feeds
// them to a collector.
type loader struct {
	engine    *Engine
	rt        *goja.Runtime
	collector *suite.Collector
	current   *cy.Entry
	skipping  int
}

// LoadFile reads and loads a JavaScript test file.
func LoadFile(ctx context.Context, path string, env map[string]interface{}, opts ...cy.Option) ([]*suite.Test, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Load(ctx, string(data), path, env, opts...)
}

// Load runs src and returns the tests it registers. Errors thrown at the
// top level or inside describe fail the whole file. Errors thrown inside
// it or beforeEach fail only the test they belong to.
func Load(ctx context.Context, src, path string, env map[string]interface{}, opts ...cy.Option) ([]*suite.Test, error) {
	e := New(env)
	l := &loader{
		engine:    e,
		rt:        e.runtime,
		collector: suite.NewCollector(path, opts...),
	}
	l.install()

	if err := e.RunScript(ctx, path, src); err != nil {
		return nil, &suite.ParseError{Path: path, Message: scriptError(err)}
	}
	return l.collector.Tests(), nil
}

func scriptError(err error) string {
	if ex, ok := unwrapException(err); ok {
		return ex.Error()
	}
	return err.Error()
}

func unwrapException(err error) (*goja.Exception, bool) {
	for err != nil {
		if ex, ok := err.(*goja.Exception); ok {
			return ex, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

func (l *loader) install() {
	describe := l.rt.ToValue(l.describe(false)).ToObject(l.rt)
	describe.Set("skip", l.describe(true))
	l.rt.Set("describe", describe)
	l.rt.Set("context", describe)
	l.rt.Set("xdescribe", l.describe(true))

	it := l.rt.ToValue(l.it(false)).ToObject(l.rt)
	it.Set("skip", l.it(true))
	l.rt.Set("it", it)
	l.rt.Set("specify", it)
	l.rt.Set("xit", l.it(true))

	l.rt.Set("beforeEach", l.beforeEach)
	l.rt.Set("cy", l.cyObject())
}

// block splits (name, [options], fn) arguments.
func (l *loader) block(kind string, call goja.FunctionCall) (string, []string, goja.Callable) {
	name := call.Argument(0).String()
	var tags []string
	var fn goja.Callable
	for i, arg := range call.Arguments {
		if i == 0 {
			continue
		}
		if f, ok := goja.AssertFunction(arg); ok {
			fn = f
			continue
		}
		if goja.IsUndefined(arg) || goja.IsNull(arg) {
			continue
		}
		opts, ok := arg.Export().(map[string]interface{})
		if !ok {
			panic(l.rt.NewTypeError("%s(%q): options must be an object", kind, name))
		}
		tags = append(tags, tagsOf(opts["tags"])...)
	}
	return name, tags, fn
}

func tagsOf(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []interface{}:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (l *loader) describe(skip bool) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		name, tags, fn := l.block("describe", call)
		if fn == nil {
			panic(l.rt.NewTypeError("describe(%q) requires a function", name))
		}
		if skip {
			l.skipping++
			defer func() { l.skipping-- }()
		}
		l.collector.Describe(name, func() {
			if _, err := fn(goja.Undefined()); err != nil {
				panic(err)
			}
		}, tags...)
		return goja.Undefined()
	}
}

func (l *loader) it(skip bool) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if l.current != nil {
			panic(l.rt.NewTypeError("it cannot be nested inside a test"))
		}
		name, tags, fn := l.block("it", call)
		// A test without a body is pending.
		if skip || fn == nil || l.skipping > 0 {
			l.collector.Skip(name, tags...)
			return goja.Undefined()
		}
		l.collector.It(name, func(e *cy.Entry) { l.record(e, fn) }, tags...)
		return goja.Undefined()
	}
}

func (l *loader) beforeEach(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(l.rt.NewTypeError("beforeEach requires a function"))
	}
	l.collector.BeforeEach(func(e *cy.Entry) { l.record(e, fn) })
	return goja.Undefined()
}

// record runs a test or hook body with cy bound to e. A thrown error fails
// the queue; an error already recorded by a command takes precedence.
func (l *loader) record(e *cy.Entry, fn goja.Callable) {
	l.current = e
	defer func() { l.current = nil }()

	_, err := fn(goja.Undefined())
	if err == nil {
		return
	}
	if ie, ok := err.(*goja.InterruptedError); ok {
		panic(ie)
	}
	e.Queue().Fail(core.ErrIllegalChain.WithMessagef("%s", scriptError(err)).WithCause(err))
}

func (l *loader) cyObject() *goja.Object {
	obj := l.rt.NewObject()
	for _, name := range cy.Commands() {
		if !cy.IsRootCommand(name) {
			continue
		}
		name := name
		obj.Set(name, func(call goja.FunctionCall) goja.Value {
			if l.current == nil {
				panic(l.rt.NewTypeError("cy.%s() called outside of a test or hook", name))
			}
			ch, err := l.current.Invoke(name, l.args(call)...)
			if err != nil {
				panic(l.rt.NewGoError(err))
			}
			return l.chainObject(ch)
		})
	}
	return obj
}

// chainObject exposes every command on ch. Each call records one command
// and returns the next link.
func (l *loader) chainObject(ch *cy.Chain) goja.Value {
	obj := l.rt.NewObject()
	for _, name := range cy.Commands() {
		name := name
		obj.Set(name, func(call goja.FunctionCall) goja.Value {
			next, err := ch.Invoke(name, l.args(call)...)
			if err != nil {
				panic(l.rt.NewGoError(err))
			}
			return l.chainObject(next)
		})
	}
	return obj
}

// args exports call arguments to Go values. Functions become deferred values
// evaluated when the command runs.
func (l *loader) args(call goja.FunctionCall) []interface{} {
	out := make([]interface{}, len(call.Arguments))
	for i, arg := range call.Arguments {
		if fn, ok := goja.AssertFunction(arg); ok {
			out[i] = l.deferred(fn)
			continue
		}
		out[i] = arg.Export()
	}
	return out
}

func (l *loader) deferred(fn goja.Callable) flow.Deferred {
	return func(ctx context.Context) (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := l.engine.call(fn)
		if err != nil {
			return nil, core.ErrInvalidArgument.WithMessagef("wrapped function failed: %s", scriptError(err)).WithCause(err)
		}
		return v, nil
	}
}
