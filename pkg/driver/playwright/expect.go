package playwright

import (
	"context"
	"regexp"

	"github.com/playwright-community/playwright-go"

	"github.com/devicelab-dev/cyrunner/pkg/core"
)

var anyValue = regexp.MustCompile(`[\s\S]*`)

// expectations adapt playwright's web-first assertions. They retry until the
// command timeout, so a failure is reported only once the condition has not
// held for the whole wait.
type expectations struct {
	base playwright.LocatorAssertions
	desc string
	not  bool
	err  error
}

func (e *expectations) Not() core.LocatorExpectations {
	if e.err != nil {
		return e
	}
	return &expectations{base: e.base, desc: e.desc, not: !e.not}
}

// a returns the assertions with the current negation applied.
func (e *expectations) a() playwright.LocatorAssertions {
	if e.not {
		return e.base.Not()
	}
	return e.base
}

// check runs an assertion and classifies its failure.
func (e *expectations) check(ctx context.Context, what string, fn func() error) error {
	if e.err != nil {
		return e.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := fn()
	if err == nil {
		return nil
	}
	neg := ""
	if e.not {
		neg = "not "
	}
	return core.ErrAssertionFailed.
		WithMessagef("expected %s %sto %s", e.desc, neg, what).
		WithCause(err)
}

func (e *expectations) ToHaveCount(ctx context.Context, count int) error {
	return e.check(ctx, "have count", func() error { return e.a().ToHaveCount(count) })
}

func (e *expectations) ToHaveText(ctx context.Context, text string) error {
	return e.check(ctx, "have text "+text, func() error { return e.a().ToHaveText(text) })
}

func (e *expectations) ToContainText(ctx context.Context, text string) error {
	return e.check(ctx, "contain text "+text, func() error { return e.a().ToContainText(text) })
}

func (e *expectations) ToHaveClass(ctx context.Context, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return core.ErrInvalidArgument.WithMessagef("class pattern %q: %v", pattern, err)
	}
	return e.check(ctx, "have class "+pattern, func() error { return e.a().ToHaveClass(re) })
}

func (e *expectations) ToHaveAttribute(ctx context.Context, name string, value *string) error {
	if value == nil {
		return e.check(ctx, "have attribute "+name, func() error { return e.a().ToHaveAttribute(name, anyValue) })
	}
	return e.check(ctx, "have attribute "+name+"="+*value, func() error { return e.a().ToHaveAttribute(name, *value) })
}

func (e *expectations) ToHaveValue(ctx context.Context, value string) error {
	return e.check(ctx, "have value "+value, func() error { return e.a().ToHaveValue(value) })
}

func (e *expectations) ToExist(ctx context.Context) error {
	return e.check(ctx, "exist", func() error {
		if e.not {
			return e.base.ToHaveCount(0)
		}
		return e.base.Not().ToHaveCount(0)
	})
}

func (e *expectations) ToBeVisible(ctx context.Context) error {
	return e.check(ctx, "be visible", func() error { return e.a().ToBeVisible() })
}

func (e *expectations) ToBeEmpty(ctx context.Context) error {
	return e.check(ctx, "be empty", func() error { return e.a().ToBeEmpty() })
}

func (e *expectations) ToBeChecked(ctx context.Context) error {
	return e.check(ctx, "be checked", func() error { return e.a().ToBeChecked() })
}
