package registry

import (
	"context"
	"fmt"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
)

// Assertions returns the handlers for every assertion name. Each returns
// the subject unchanged.
func Assertions() *Registry {
	return New().
		Assertion(flow.AssertLength, typed(assertLength)).
		Assertion(flow.AssertText, typed(assertText)).
		Assertion(flow.AssertClass, typed(assertClass)).
		Assertion(flow.AssertAttr, typed(assertAttr)).
		Assertion(flow.AssertExist, typed(assertExist)).
		Assertion(flow.AssertValue, typed(assertValue)).
		Assertion(flow.AssertChecked, typed(assertChecked)).
		Assertion(flow.AssertVisible, typed(assertVisible)).
		Assertion(flow.AssertInclude, typed(assertInclude)).
		Assertion(flow.AssertProperty, typed(assertProperty)).
		Assertion(flow.AssertEmpty, typed(assertEmpty)).
		Assertion(flow.AssertEqual, typed(assertEqual)).
		Assertion(flow.AssertNull, typed(assertNull))
}

// expect returns the driver expectations for loc, inverted when negated.
func expect(drv core.Driver, a *flow.AssertionAction, loc core.Locator) core.LocatorExpectations {
	e := drv.Expect(loc)
	if a.Negation {
		return e.Not()
	}
	return e
}

// verify applies the negation flag to a check computed in Go.
func verify(a *flow.AssertionAction, ok bool, format string, args ...interface{}) error {
	if ok != a.Negation {
		return nil
	}
	want := "expected "
	if a.Negation {
		want = "expected not "
	}
	return core.ErrAssertionFailed.
		WithMessage(want + fmt.Sprintf(format, args...)).
		WithDetails(map[string]interface{}{"assertion": string(a.Name), "negation": a.Negation})
}

func expectErr(a *flow.AssertionAction, err error) error {
	if err == nil {
		return nil
	}
	return driverErr(string(a.Name), err)
}

// locatorOnly runs fn for locator subjects. Value subjects are a shape
// violation, handle subjects are unsupported.
func locatorOnly(a *flow.AssertionAction, s core.Subject, fn func(core.Locator) error) (core.Subject, error) {
	switch s.Kind() {
	case core.KindLocator:
		return s, fn(s.Locator())
	case core.KindHandle:
		return s, core.UnsupportedSubject(string(a.Name), s.Kind())
	default:
		return s, core.WrongSubject(string(a.Name), core.KindLocator, s.Kind())
	}
}

func assertLength(ctx context.Context, a *flow.AssertionAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	want, ok := toInt(a.Value)
	if !ok {
		return s, core.ErrInvalidArgument.WithMessagef("length: %v is not a number", a.Value)
	}
	switch s.Kind() {
	case core.KindLocator:
		return s, expectErr(a, expect(drv, a, s.Locator()).ToHaveCount(ctx, want))
	case core.KindValue:
		n, ok := length(s.Value())
		if !ok {
			return s, core.ErrInvalidArgument.WithMessagef("length: %v (%T) has no length", s.Value(), s.Value())
		}
		return s, verify(a, n == want, "length %d, got %d", want, n)
	default:
		return s, core.UnsupportedSubject(string(a.Name), s.Kind())
	}
}

func assertText(ctx context.Context, a *flow.AssertionAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	return locatorOnly(a, s, func(loc core.Locator) error {
		return expectErr(a, expect(drv, a, loc).ToHaveText(ctx, stringify(a.Value)))
	})
}

func assertClass(ctx context.Context, a *flow.AssertionAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	return locatorOnly(a, s, func(loc core.Locator) error {
		return expectErr(a, expect(drv, a, loc).ToHaveClass(ctx, stringify(a.Value)))
	})
}

func assertAttr(ctx context.Context, a *flow.AssertionAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	return locatorOnly(a, s, func(loc core.Locator) error {
		var value *string
		if a.HasExpected {
			v := stringify(a.Expected)
			value = &v
		}
		return expectErr(a, expect(drv, a, loc).ToHaveAttribute(ctx, a.Attribute, value))
	})
}

func assertExist(ctx context.Context, a *flow.AssertionAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	switch s.Kind() {
	case core.KindLocator:
		return s, expectErr(a, expect(drv, a, s.Locator()).ToExist(ctx))
	case core.KindHandle:
		return s, verify(a, s.Handle() != nil, "handle to exist")
	default:
		return s, verify(a, s.Value() != nil, "%v to exist", s.Value())
	}
}

func assertValue(ctx context.Context, a *flow.AssertionAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	return locatorOnly(a, s, func(loc core.Locator) error {
		return expectErr(a, expect(drv, a, loc).ToHaveValue(ctx, stringify(a.Value)))
	})
}

func assertChecked(ctx context.Context, a *flow.AssertionAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	return locatorOnly(a, s, func(loc core.Locator) error {
		return eachElement(ctx, loc, func(el core.Locator) error {
			return expectErr(a, expect(drv, a, el).ToBeChecked(ctx))
		})
	})
}

func assertVisible(ctx context.Context, a *flow.AssertionAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	return locatorOnly(a, s, func(loc core.Locator) error {
		return expectErr(a, expect(drv, a, loc).ToBeVisible(ctx))
	})
}

func assertInclude(ctx context.Context, a *flow.AssertionAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	switch s.Kind() {
	case core.KindLocator:
		return s, expectErr(a, expect(drv, a, s.Locator()).ToContainText(ctx, stringify(a.Value)))
	case core.KindValue:
		ok, err := includes(s.Value(), a.Value)
		if err != nil {
			return s, err
		}
		return s, verify(a, ok, "%v to include %v", s.Value(), a.Value)
	default:
		return s, core.UnsupportedSubject(string(a.Name), s.Kind())
	}
}

// assertProperty checks property existence, and the property's value when
// one is expected. Handles are probed in the page.
func assertProperty(ctx context.Context, a *flow.AssertionAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	name := stringify(a.Value)
	switch s.Kind() {
	case core.KindHandle:
		ok, err := drv.HasOwnProperty(ctx, s.Handle(), name)
		if err != nil {
			return s, driverErr("property", err)
		}
		return s, verify(a, ok, "handle to have property %q", name)
	case core.KindValue:
		got, ok, err := lookup(s.Value(), name)
		if err != nil {
			return s, err
		}
		if a.HasExpected && ok {
			eq, err := deepEqual(got, a.Expected)
			if err != nil {
				return s, err
			}
			return s, verify(a, eq, "property %q to equal %v, got %v", name, a.Expected, got)
		}
		return s, verify(a, ok, "%v to have property %q", s.Value(), name)
	default:
		return s, core.UnsupportedSubject(string(a.Name), s.Kind())
	}
}

// assertEmpty flips with negation for every subject kind.
func assertEmpty(ctx context.Context, a *flow.AssertionAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	switch s.Kind() {
	case core.KindLocator:
		return s, expectErr(a, expect(drv, a, s.Locator()).ToBeEmpty(ctx))
	case core.KindValue:
		ok, err := isEmpty(s.Value())
		if err != nil {
			return s, err
		}
		return s, verify(a, ok, "%v to be empty", s.Value())
	default:
		return s, core.UnsupportedSubject(string(a.Name), s.Kind())
	}
}

func assertEqual(_ context.Context, a *flow.AssertionAction, s core.Subject, _ core.Driver, _ core.AliasMap) (core.Subject, error) {
	switch s.Kind() {
	case core.KindValue:
		ok, err := deepEqual(s.Value(), a.Value)
		if err != nil {
			return s, err
		}
		return s, verify(a, ok, "%v to equal %v", s.Value(), a.Value)
	case core.KindHandle:
		return s, core.UnsupportedSubject(string(a.Name), s.Kind())
	default:
		return s, core.WrongSubject(string(a.Name), core.KindValue, s.Kind())
	}
}

// assertNull treats locators and handles as non-null references.
func assertNull(_ context.Context, a *flow.AssertionAction, s core.Subject, _ core.Driver, _ core.AliasMap) (core.Subject, error) {
	return s, verify(a, s.IsNull(), "%s to be null", s)
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
