// Package jsengine runs JavaScript test files. Files register suites through
// describe, it and beforeEach and record commands through the cy global.
package jsengine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/devicelab-dev/cyrunner/pkg/logger"
)

// Engine wraps a goja runtime. A runtime is not safe for concurrent use;
// every entry point takes the engine lock.
type Engine struct {
	runtime *goja.Runtime
	env     map[string]interface{}
	mu      sync.Mutex
}

// New creates a new JS engine instance. env is exposed as Cypress.env().
func New(env map[string]interface{}) *Engine {
	if env == nil {
		env = make(map[string]interface{})
	}
	e := &Engine{
		runtime: goja.New(),
		env:     env,
	}
	e.setupBuiltins()
	return e
}

// setupBuiltins registers all built-in functions and objects
func (e *Engine) setupBuiltins() {
	e.setupConsole()
	e.runtime.Set("json", e.jsonFunc())
	e.runtime.Set("Cypress", e.cypressObject())
}

// setupConsole routes console.log, console.warn and console.error to the log.
func (e *Engine) setupConsole() {
	makeConsoleFunc := func(log func(string, ...interface{})) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			log("[console] %s", strings.Join(parts, " "))
			return goja.Undefined()
		}
	}

	console := e.runtime.NewObject()
	console.Set("log", makeConsoleFunc(logger.Info))
	console.Set("info", makeConsoleFunc(logger.Info))
	console.Set("debug", makeConsoleFunc(logger.Debug))
	console.Set("warn", makeConsoleFunc(logger.Warn))
	console.Set("error", makeConsoleFunc(logger.Error))
	e.runtime.Set("console", console)
}

// jsonFunc returns the json() helper function
func (e *Engine) jsonFunc() func(call goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(e.runtime.NewTypeError("json requires 1 argument"))
		}

		str := call.Arguments[0].String()
		result, err := e.runtime.RunString(fmt.Sprintf("JSON.parse(%q)", str))
		if err != nil {
			panic(e.runtime.NewTypeError(fmt.Sprintf("invalid JSON: %v", err)))
		}
		return result
	}
}

// cypressObject returns the Cypress global. Cypress.env() returns every
// variable, Cypress.env(name) one of them, Cypress.env(name, value) sets one.
func (e *Engine) cypressObject() *goja.Object {
	obj := e.runtime.NewObject()
	obj.Set("env", func(call goja.FunctionCall) goja.Value {
		switch len(call.Arguments) {
		case 0:
			return e.runtime.ToValue(e.env)
		case 1:
			v, ok := e.env[call.Arguments[0].String()]
			if !ok {
				return goja.Undefined()
			}
			return e.runtime.ToValue(v)
		default:
			e.env[call.Arguments[0].String()] = call.Arguments[1].Export()
			return goja.Undefined()
		}
	})
	return obj
}

// SetVariable sets a variable accessible in JS as a global
func (e *Engine) SetVariable(name string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runtime.Set(name, value)
}

// SetVariables sets multiple variables
func (e *Engine) SetVariables(vars map[string]interface{}) {
	for k, v := range vars {
		e.SetVariable(k, v)
	}
}

// Env returns the value of a Cypress.env variable.
func (e *Engine) Env(name string) (interface{}, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.env[name]
	return v, ok
}

// Eval evaluates a JavaScript expression and returns the result
func (e *Engine) Eval(script string) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.runtime.RunString(script)
	if err != nil {
		return nil, fmt.Errorf("JS eval error: %w", err)
	}
	return result.Export(), nil
}

// EvalString evaluates a JavaScript expression and returns string result
func (e *Engine) EvalString(script string) (string, error) {
	result, err := e.Eval(script)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprintf("%v", result), nil
}

// RunScript runs a script. name appears in stack traces. The script is
// interrupted when ctx is done.
func (e *Engine) RunScript(ctx context.Context, name, src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	stop := make(chan struct{})
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		select {
		case <-ctx.Done():
			e.runtime.Interrupt(ctx.Err())
		case <-stop:
		}
	}()

	_, err := e.runtime.RunScript(name, src)
	close(stop)
	<-watched
	e.runtime.ClearInterrupt()
	if err != nil {
		return fmt.Errorf("JS runtime error: %w", err)
	}
	return nil
}

// call invokes a JS function under the engine lock and exports the result.
func (e *Engine) call(fn goja.Callable) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, err := fn(goja.Undefined())
	if err != nil {
		return nil, err
	}
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		return v.Export(), nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result().Export(), nil
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("promise rejected: %s", p.Result().String())
	default:
		return nil, fmt.Errorf("promise still pending")
	}
}
