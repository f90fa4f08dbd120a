package executor

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/cy"
	"github.com/devicelab-dev/cyrunner/pkg/driver/mock"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
	"github.com/devicelab-dev/cyrunner/pkg/registry"
)

const formPage = `<html><head><title>Form</title></head><body>
<input class="input">
<ul><li>one</li><li>two</li></ul>
<input type="checkbox" id="agree">
</body></html>`

func newFormDriver() *mock.Driver {
	return mock.New(mock.Config{Pages: map[string]string{"/": formPage}})
}

func build(t *testing.T, body func(cy *cy.Entry)) []flow.Action {
	t.Helper()
	actions, err := cy.BuildQueue(body, cy.WithBaseURL("http://localhost:3000"))
	if err != nil {
		t.Fatalf("BuildQueue() error = %v", err)
	}
	return actions
}

func TestEvaluateQueue_VisitGetType(t *testing.T) {
	actions := build(t, func(cy *cy.Entry) {
		cy.Visit("/")
		cy.Get(".input").Type("hi")
	})
	drv := newFormDriver()

	var kinds []core.SubjectKind
	e := &Evaluator{
		Registry: registry.Default(),
		Phase:    core.PhaseTest,
		OnStepEnd: func(_ int, _ flow.Action, res core.StepResult) {
			kinds = append(kinds, res.Subject)
		},
	}
	subject, err := e.Run(context.Background(), drv, actions, core.AliasMap{}, core.NullSubject())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantKinds := []core.SubjectKind{core.KindValue, core.KindLocator, core.KindLocator}
	if !reflect.DeepEqual(kinds, wantKinds) {
		t.Errorf("subject kinds = %v, want %v", kinds, wantKinds)
	}
	if subject.Kind() != core.KindLocator {
		t.Errorf("final subject = %s, want locator", subject)
	}
	wantCalls := []string{"navigate:http://localhost:3000/", "fill:document .input:hi"}
	if got := drv.Calls(); !reflect.DeepEqual(got, wantCalls) {
		t.Errorf("driver calls = %v, want %v", got, wantCalls)
	}
}

func TestEvaluateQueue_FailFast(t *testing.T) {
	actions := build(t, func(cy *cy.Entry) {
		cy.Visit("/")
		cy.Get(".missing").Click()
		cy.Get(".input").Type("never")
	})
	drv := newFormDriver()

	var results []core.StepResult
	e := &Evaluator{OnStepEnd: func(_ int, _ flow.Action, res core.StepResult) {
		results = append(results, res)
	}}
	_, err := e.Run(context.Background(), drv, actions, nil, core.NullSubject())
	if !errors.Is(err, core.ErrDriver) {
		t.Fatalf("Run() error = %v, want driver error", err)
	}
	if len(results) != 2 {
		t.Fatalf("steps evaluated = %d, want 2", len(results))
	}
	if results[1].Status != core.StatusErrored || results[1].Category != core.ErrCategoryDriver {
		t.Errorf("failing step = %s/%s, want errored/driver", results[1].Status, results[1].Category)
	}
	for _, call := range drv.Calls() {
		if call == "fill:document .input:never" {
			t.Error("step after the failure was executed")
		}
	}
}

func TestEvaluateQueue_AssertionFailure(t *testing.T) {
	actions := build(t, func(cy *cy.Entry) {
		cy.Visit("/")
		cy.Get("li").Should("have.length", 3)
	})

	var last core.StepResult
	e := &Evaluator{OnStepEnd: func(_ int, _ flow.Action, res core.StepResult) { last = res }}
	_, err := e.Run(context.Background(), newFormDriver(), actions, nil, core.NullSubject())
	if !errors.Is(err, core.ErrAssertionFailed) {
		t.Fatalf("Run() error = %v, want assertion failure", err)
	}
	if last.Status != core.StatusFailed {
		t.Errorf("status = %s, want failed", last.Status)
	}
	if last.Command != string(flow.ActionAssertion) {
		t.Errorf("command = %q, want assertion", last.Command)
	}
}

func TestEvaluateQueue_WrongSubject(t *testing.T) {
	actions := []flow.Action{
		&flow.SubjectAction{Value: "plain"},
		&flow.FillAction{Value: "x"},
	}
	drv := newFormDriver()

	_, err := EvaluateQueue(context.Background(), drv, registry.Default(), actions, core.AliasMap{})
	if !errors.Is(err, core.ErrWrongSubject) {
		t.Fatalf("EvaluateQueue() error = %v, want wrong subject", err)
	}
	if calls := drv.Calls(); len(calls) != 0 {
		t.Errorf("driver calls = %v, want none", calls)
	}
}

func TestEvaluateQueue_AliasesShared(t *testing.T) {
	actions := build(t, func(cy *cy.Entry) {
		cy.Visit("/")
		cy.Get("li").As("items")
		cy.Get("@items").Should("have.length", 2)
	})
	aliases := core.AliasMap{}

	if _, err := EvaluateQueue(context.Background(), newFormDriver(), registry.Default(), actions, aliases); err != nil {
		t.Fatalf("EvaluateQueue() error = %v", err)
	}
	if s, ok := aliases["items"]; !ok || s.Kind() != core.KindLocator {
		t.Errorf("aliases[items] = %v, %v; want locator", s, ok)
	}
}

func TestEvaluateQueue_Cancelled(t *testing.T) {
	actions := build(t, func(cy *cy.Entry) { cy.Visit("/") })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	drv := newFormDriver()

	_, err := EvaluateQueue(ctx, drv, nil, actions, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("EvaluateQueue() error = %v, want context.Canceled", err)
	}
	if len(drv.Calls()) != 0 {
		t.Errorf("driver called after cancellation: %v", drv.Calls())
	}
}

func TestEvaluator_OffsetAndPhase(t *testing.T) {
	actions := build(t, func(cy *cy.Entry) {
		cy.Visit("/")
		cy.Get("#agree").Check()
	})
	var started []int
	var phases []core.Phase
	e := &Evaluator{
		Phase:       core.PhaseBeforeEach,
		Offset:      5,
		OnStepStart: func(idx int, _ flow.Action) { started = append(started, idx) },
		OnStepEnd:   func(_ int, _ flow.Action, res core.StepResult) { phases = append(phases, res.Phase) },
	}
	if _, err := e.Run(context.Background(), newFormDriver(), actions, nil, core.NullSubject()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !reflect.DeepEqual(started, []int{5, 6}) {
		t.Errorf("started = %v, want [5 6]", started)
	}
	for _, p := range phases {
		if p != core.PhaseBeforeEach {
			t.Errorf("phase = %s, want beforeEach", p)
		}
	}
}

func TestEvaluateQueue_TypeAroundKeys(t *testing.T) {
	actions := build(t, func(cy *cy.Entry) {
		cy.Visit("/")
		cy.Get(".input").Type("ab{enter}cd").Should("have.value", "abcd")
	})
	drv := newFormDriver()

	if _, err := EvaluateQueue(context.Background(), drv, registry.Default(), actions, core.AliasMap{}); err != nil {
		t.Fatalf("EvaluateQueue() error = %v", err)
	}
	wantCalls := []string{
		"navigate:http://localhost:3000/",
		"fill:document .input:ab",
		"press:Enter",
		"type:document .input:cd",
		`expect:have value "abcd":document .input`,
	}
	if got := drv.Calls(); !reflect.DeepEqual(got, wantCalls) {
		t.Errorf("driver calls = %v, want %v", got, wantCalls)
	}
}

func TestEvaluateQueue_ContainsWithSelector(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		selector string
		chainer  string
		args     []interface{}
	}{
		{"element holds the text", "two", "li", "have.length", []interface{}{1}},
		{"descendant holds the text", "two", "ul", "have.length", []interface{}{1}},
		{"exact text", "two", "li", "have.text", []interface{}{"two"}},
		{"no match", "three", "li", "not.exist", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := build(t, func(c *cy.Entry) {
				c.Visit("/")
				c.Contains(tt.text, cy.ContainsOptions{Selector: tt.selector}).Should(tt.chainer, tt.args...)
			})
			if _, err := EvaluateQueue(context.Background(), newFormDriver(), registry.Default(), actions, core.AliasMap{}); err != nil {
				t.Errorf("EvaluateQueue() error = %v", err)
			}
		})
	}
}

func TestEvaluateQueue_NilAction(t *testing.T) {
	actions := []flow.Action{&flow.SubjectAction{Value: "x"}, nil, &flow.SubjectAction{Value: "y"}}

	var ended []int
	e := &Evaluator{OnStepEnd: func(idx int, _ flow.Action, _ core.StepResult) { ended = append(ended, idx) }}
	subject, err := e.Run(context.Background(), newFormDriver(), actions, nil, core.NullSubject())
	if !errors.Is(err, core.ErrUnknownCommand) {
		t.Fatalf("Run() error = %v, want unknown command", err)
	}
	if !reflect.DeepEqual(ended, []int{0}) {
		t.Errorf("steps ended = %v, want [0]", ended)
	}
	if got := subject.Value(); got != "x" {
		t.Errorf("subject = %v, want x", got)
	}
}
