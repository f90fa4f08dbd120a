package cy

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
	"github.com/devicelab-dev/cyrunner/pkg/geometry"
)

func TestBuildQueue_VisitGetType(t *testing.T) {
	actions, err := BuildQueue(func(cy *Entry) {
		cy.Visit("http://localhost:3000/todo")
		cy.Get(".input").Type("hi")
	})
	if err != nil {
		t.Fatalf("BuildQueue() error = %v", err)
	}

	want := []flow.Action{
		&flow.NavigateAction{URL: "http://localhost:3000/todo"},
		&flow.LocatorAction{Selector: flow.Selector{flow.Query(".input")}, Root: true},
		&flow.FillAction{Value: "hi"},
	}
	if !reflect.DeepEqual(actions, want) {
		t.Errorf("BuildQueue()=%v, want %v", actions, want)
	}
}

func TestBuildQueue_MirrorsInvocationOrder(t *testing.T) {
	actions, err := BuildQueue(func(cy *Entry) {
		cy.Get("ul").Find("li").Eq(-1).As("last")
		cy.Title().Should("equal", "Todos")
		cy.Get("@last").Should("have.text", "milk")
	})
	if err != nil {
		t.Fatalf("BuildQueue() error = %v", err)
	}

	want := []flow.ActionType{
		flow.ActionLocator, flow.ActionLocator, flow.ActionLocator, flow.ActionAlias,
		flow.ActionTitle, flow.ActionAssertion,
		flow.ActionLocator, flow.ActionAssertion,
	}
	if len(actions) != len(want) {
		t.Fatalf("len(actions)=%d, want %d", len(actions), len(want))
	}
	for i, a := range actions {
		if a.Type() != want[i] {
			t.Errorf("actions[%d].Type()=%v, want %v", i, a.Type(), want[i])
		}
	}

	find := actions[1].(*flow.LocatorAction)
	if find.Root {
		t.Error("find should not resolve from the document")
	}
	eq := actions[2].(*flow.LocatorAction)
	if eq.Selector[0] != flow.Nth(-1) {
		t.Errorf("eq selector=%v, want nth(-1)", eq.Selector[0])
	}
}

func TestBuildQueue_WithBaseURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		url  string
		want string
	}{
		{"relative", "http://localhost:3000", "/todo", "http://localhost:3000/todo"},
		{"trailing slash", "http://localhost:3000/", "todo", "http://localhost:3000/todo"},
		{"absolute", "http://localhost:3000", "https://example.com", "https://example.com"},
		{"no base", "", "/todo", "/todo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions, err := BuildQueue(func(cy *Entry) { cy.Visit(tt.url) }, WithBaseURL(tt.base))
			if err != nil {
				t.Fatalf("BuildQueue() error = %v", err)
			}
			got := actions[0].(*flow.NavigateAction).URL
			if got != tt.want {
				t.Errorf("URL=%q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildQueue_ReturnsFirstError(t *testing.T) {
	actions, err := BuildQueue(func(cy *Entry) {
		cy.Get(".a").Should("to.be")
		cy.Get(".b").Click()
	})
	if !errors.Is(err, core.ErrUnknownAssertion) {
		t.Fatalf("BuildQueue() error = %v, want unknown assertion", err)
	}
	if actions != nil {
		t.Errorf("actions=%v, want nil", actions)
	}
}

func TestEntry_ReturnsNewChain(t *testing.T) {
	cy := New(flow.NewQueue())
	a := cy.Get(".a")
	b := cy.Get(".b")
	if a == b {
		t.Error("two statements off the entry should not share a chain")
	}
}

func TestChain_ReturnsReceiver(t *testing.T) {
	cy := New(flow.NewQueue())
	c := cy.Get(".a")
	if got := c.Find(".b"); got != c {
		t.Error("Find() should return the receiver")
	}
	if got := c.First().Should("exist"); got != c {
		t.Error("Should() should return the receiver")
	}
}

func TestChain_RootFlag(t *testing.T) {
	q := flow.NewQueue()
	cy := New(q)
	cy.Get(".a").Get(".b")
	cy.Contains("Save").Contains("now")

	wantRoot := []bool{true, false, true, false}
	for i, want := range wantRoot {
		a, _ := q.Inspect(i)
		loc, ok := a.(*flow.LocatorAction)
		if !ok {
			t.Fatalf("Inspect(%d)=%T, want *flow.LocatorAction", i, a)
		}
		if loc.Root != want {
			t.Errorf("Inspect(%d).Root=%v, want %v", i, loc.Root, want)
		}
	}
}

func TestChain_ClickCollapsesLocator(t *testing.T) {
	actions, err := BuildQueue(func(cy *Entry) {
		cy.Get("button.save").Click()
	})
	if err != nil {
		t.Fatalf("BuildQueue() error = %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("len(actions)=%d, want 1", len(actions))
	}
	click, ok := actions[0].(*flow.ClickAction)
	if !ok {
		t.Fatalf("actions[0]=%T, want *flow.ClickAction", actions[0])
	}
	want := &flow.LocatorAction{Selector: flow.Selector{flow.Query("button.save")}, Root: true}
	if !reflect.DeepEqual(click.Target, want) {
		t.Errorf("Target=%v, want %v", click.Target, want)
	}
}

func TestChain_CheckCollapsesLocator(t *testing.T) {
	actions, err := BuildQueue(func(cy *Entry) {
		cy.Get("input[type=checkbox]").Uncheck()
	})
	if err != nil {
		t.Fatalf("BuildQueue() error = %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("len(actions)=%d, want 1", len(actions))
	}
	check := actions[0].(*flow.CheckAction)
	if check.Checked {
		t.Error("Uncheck() should record Checked=false")
	}
	if check.Target == nil {
		t.Error("Target should hold the absorbed locator")
	}
}

func TestChain_ClickAfterForeignAction(t *testing.T) {
	actions, err := BuildQueue(func(cy *Entry) {
		first := cy.Get(".a")
		cy.Get(".b")
		first.Click()
	})
	if err != nil {
		t.Fatalf("BuildQueue() error = %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("len(actions)=%d, want 3", len(actions))
	}
	click := actions[2].(*flow.ClickAction)
	if click.Target != nil {
		t.Error("a click should not absorb a locator recorded by another chain")
	}
}

func TestChain_ClickAfterNonLocator(t *testing.T) {
	actions, err := BuildQueue(func(cy *Entry) {
		cy.Get(".a").Should("be.visible").Click()
	})
	if err != nil {
		t.Fatalf("BuildQueue() error = %v", err)
	}
	if len(actions) != 3 {
		t.Fatalf("len(actions)=%d, want 3", len(actions))
	}
	if click := actions[2].(*flow.ClickAction); click.Target != nil {
		t.Error("click after an assertion should not carry a target")
	}
}

func TestChain_Traversals(t *testing.T) {
	q := flow.NewQueue()
	New(q).Get("li").Parent().Parents("ul").Children(".item").Next().Prev("li").Siblings().Filter(".done").Not(".hidden")

	want := []flow.SelectorItem{
		flow.Query("li"),
		flow.Traverse(flow.ModParent, ""),
		flow.Traverse(flow.ModParents, "ul"),
		flow.Traverse(flow.ModChildren, ".item"),
		flow.Traverse(flow.ModNext, ""),
		flow.Traverse(flow.ModPrev, "li"),
		flow.Traverse(flow.ModSiblings, ""),
		flow.Traverse(flow.ModFilter, ".done"),
		flow.Traverse(flow.ModNot, ".hidden"),
	}
	if q.Len() != len(want) {
		t.Fatalf("Len()=%d, want %d", q.Len(), len(want))
	}
	for i, item := range want {
		a, _ := q.Inspect(i)
		if got := a.(*flow.LocatorAction).Selector[0]; got != item {
			t.Errorf("Inspect(%d) selector=%v, want %v", i, got, item)
		}
	}
}

func TestChain_ContainsWithSelector(t *testing.T) {
	q := flow.NewQueue()
	New(q).Contains("Save", ContainsOptions{Selector: "button", Exact: true})

	a, _ := q.Inspect(-1)
	want := flow.Selector{flow.Query("button"), flow.HasText("Save", true)}
	if got := a.(*flow.LocatorAction).Selector; !reflect.DeepEqual(got, want) {
		t.Errorf("Selector=%v, want %v", got, want)
	}
}

func TestChain_SetCookieDefaults(t *testing.T) {
	q := flow.NewQueue()
	New(q).SetCookie("session", "abc")

	a, _ := q.Inspect(-1)
	cookie := a.(*flow.CookieSetAction).Cookie
	if cookie.Domain != flow.CurrentDomain {
		t.Errorf("Domain=%q, want %q", cookie.Domain, flow.CurrentDomain)
	}
	if cookie.Path != "/" {
		t.Errorf("Path=%q, want /", cookie.Path)
	}
}

func TestChain_ScrollTo(t *testing.T) {
	tests := []struct {
		name    string
		args    []interface{}
		want    geometry.Position
		wantErr bool
	}{
		{"named", []interface{}{"bottom"}, geometry.Named(geometry.Bottom), false},
		{"xy", []interface{}{"50%", 10}, geometry.XY(geometry.Pct(50), geometry.Px(10)), false},
		{"options ignored", []interface{}{"top", map[string]interface{}{"duration": 100}}, geometry.Named(geometry.Top), false},
		{"no args", nil, geometry.Position{}, true},
		{"bad percentage", []interface{}{"x%", 10}, geometry.Position{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := flow.NewQueue()
			New(q).ScrollTo(tt.args...)
			if tt.wantErr {
				if q.Err() == nil {
					t.Error("ScrollTo() should fail")
				}
				return
			}
			if q.Err() != nil {
				t.Fatalf("ScrollTo() error = %v", q.Err())
			}
			a, _ := q.Inspect(-1)
			if got := a.(*flow.ScrollToAction).Position; !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Position=%v, want %v", got, tt.want)
			}
		})
	}
}

func TestChain_WrapDeferred(t *testing.T) {
	q := flow.NewQueue()
	New(q).Wrap(func(ctx context.Context) (interface{}, error) { return 42, nil })

	a, _ := q.Inspect(-1)
	if _, ok := a.(*flow.SubjectAction).Value.(flow.Deferred); !ok {
		t.Errorf("Value=%T, want flow.Deferred", a.(*flow.SubjectAction).Value)
	}
}

func TestChain_As(t *testing.T) {
	q := flow.NewQueue()
	New(q).Get(".a").As("@row")

	a, _ := q.Inspect(-1)
	if got := a.(*flow.AliasAction).Name; got != "row" {
		t.Errorf("Name=%q, want row", got)
	}
}

func TestChain_ShouldArguments(t *testing.T) {
	tests := []struct {
		name    string
		phrase  string
		args    []interface{}
		want    *flow.AssertionAction
		wantErr error
	}{
		{
			name:   "length",
			phrase: "have.length",
			args:   []interface{}{3.0},
			want:   &flow.AssertionAction{Name: flow.AssertLength, Value: 3},
		},
		{
			name:   "negated text",
			phrase: "not.have.text",
			args:   []interface{}{"done"},
			want:   &flow.AssertionAction{Name: flow.AssertText, Negation: true, Value: "done"},
		},
		{
			name:   "attr with value",
			phrase: "have.attr",
			args:   []interface{}{"href", "/home"},
			want:   &flow.AssertionAction{Name: flow.AssertAttr, Attribute: "href", Expected: "/home", HasExpected: true},
		},
		{
			name:   "attr presence",
			phrase: "have.attr",
			args:   []interface{}{"disabled"},
			want:   &flow.AssertionAction{Name: flow.AssertAttr, Attribute: "disabled"},
		},
		{
			name:   "property",
			phrase: "have.property",
			args:   []interface{}{"user.name", "ada"},
			want:   &flow.AssertionAction{Name: flow.AssertProperty, Value: "user.name", Expected: "ada", HasExpected: true},
		},
		{
			name:   "checked",
			phrase: "be.checked",
			want:   &flow.AssertionAction{Name: flow.AssertChecked},
		},
		{
			name:    "length not a number",
			phrase:  "have.length",
			args:    []interface{}{"three"},
			wantErr: core.ErrInvalidArgument,
		},
		{
			name:    "text missing",
			phrase:  "have.text",
			wantErr: core.ErrInvalidArgument,
		},
		{
			name:    "unknown",
			phrase:  "be.purple",
			wantErr: core.ErrUnknownAssertion,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := assertion(tt.phrase, tt.args)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("assertion() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("assertion() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("assertion()=%+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestChain_IgnoresCallsAfterFailure(t *testing.T) {
	q := flow.NewQueue()
	cy := New(q)
	cy.Wait(-1)
	cy.Get(".a").Click()

	if q.Len() != 0 {
		t.Errorf("Len()=%d, want 0", q.Len())
	}
	if !errors.Is(q.Err(), core.ErrInvalidArgument) {
		t.Errorf("Err()=%v, want invalid argument", q.Err())
	}
}
