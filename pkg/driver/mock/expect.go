package mock

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/devicelab-dev/cyrunner/pkg/core"
)

// expectations check the current document once, without waiting.
type expectations struct {
	l   *Locator
	not bool
	err error
}

func (e *expectations) Not() core.LocatorExpectations {
	return &expectations{l: e.l, not: !e.not, err: e.err}
}

// check evaluates cond with the driver locked and turns a mismatch into an
// assertion failure.
func (e *expectations) check(ctx context.Context, what string, cond func(s *goquery.Selection) (bool, string, error)) error {
	if e.err != nil {
		return e.err
	}
	if err := e.l.d.delay(ctx); err != nil {
		return err
	}
	e.l.d.mu.Lock()
	defer e.l.d.mu.Unlock()

	neg := ""
	if e.not {
		neg = "not."
	}
	e.l.d.record("expect:%s%s:%s", neg, what, e.l.desc)

	ok, got, err := cond(e.l.find())
	if err != nil {
		return err
	}
	if ok != e.not {
		return nil
	}
	want := "to "
	if e.not {
		want = "not to "
	}
	msg := fmt.Sprintf("expected %s %s%s", e.l.desc, want, what)
	if got != "" {
		msg += ", got " + got
	}
	return core.ErrAssertionFailed.WithMessage(msg)
}

// one is cond for checks that need exactly one element.
func (e *expectations) one(what string, fn func(el *goquery.Selection) (bool, string)) func(*goquery.Selection) (bool, string, error) {
	return func(s *goquery.Selection) (bool, string, error) {
		if s.Length() == 0 && e.not {
			return false, "no element", nil
		}
		el, err := e.l.single("expect " + what)
		if err != nil {
			return false, "", err
		}
		ok, got := fn(el)
		return ok, got, nil
	}
}

func (e *expectations) ToHaveCount(ctx context.Context, count int) error {
	return e.check(ctx, fmt.Sprintf("have count %d", count), func(s *goquery.Selection) (bool, string, error) {
		return s.Length() == count, fmt.Sprint(s.Length()), nil
	})
}

func (e *expectations) ToHaveText(ctx context.Context, text string) error {
	return e.check(ctx, fmt.Sprintf("have text %q", text), func(s *goquery.Selection) (bool, string, error) {
		got := normalizeSpace(s.Text())
		return s.Length() > 0 && got == normalizeSpace(text), fmt.Sprintf("%q", got), nil
	})
}

func (e *expectations) ToContainText(ctx context.Context, text string) error {
	return e.check(ctx, fmt.Sprintf("contain text %q", text), func(s *goquery.Selection) (bool, string, error) {
		got := normalizeSpace(s.Text())
		return s.Length() > 0 && strings.Contains(got, normalizeSpace(text)), fmt.Sprintf("%q", got), nil
	})
}

func (e *expectations) ToHaveClass(ctx context.Context, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("expect class %q: %w", pattern, err)
	}
	return e.check(ctx, fmt.Sprintf("have class %q", pattern), e.one("class", func(el *goquery.Selection) (bool, string) {
		class := el.AttrOr("class", "")
		return re.MatchString(class), fmt.Sprintf("%q", class)
	}))
}

func (e *expectations) ToHaveAttribute(ctx context.Context, name string, value *string) error {
	what := fmt.Sprintf("have attribute %s", name)
	if value != nil {
		what = fmt.Sprintf("have attribute %s=%q", name, *value)
	}
	return e.check(ctx, what, e.one("attribute", func(el *goquery.Selection) (bool, string) {
		got, ok := el.Attr(name)
		if !ok {
			return false, "no attribute"
		}
		if value == nil {
			return true, fmt.Sprintf("%q", got)
		}
		return got == *value, fmt.Sprintf("%q", got)
	}))
}

func (e *expectations) ToHaveValue(ctx context.Context, value string) error {
	return e.check(ctx, fmt.Sprintf("have value %q", value), e.one("value", func(el *goquery.Selection) (bool, string) {
		got := valueOf(el)
		return got == value, fmt.Sprintf("%q", got)
	}))
}

func (e *expectations) ToExist(ctx context.Context) error {
	return e.check(ctx, "exist", func(s *goquery.Selection) (bool, string, error) {
		return s.Length() > 0, "", nil
	})
}

func (e *expectations) ToBeVisible(ctx context.Context) error {
	return e.check(ctx, "be visible", e.one("visible", func(el *goquery.Selection) (bool, string) {
		return !hidden(el), ""
	}))
}

func (e *expectations) ToBeEmpty(ctx context.Context) error {
	return e.check(ctx, "be empty", e.one("empty", func(el *goquery.Selection) (bool, string) {
		if el.Is("input, textarea, select") {
			got := valueOf(el)
			return got == "", fmt.Sprintf("%q", got)
		}
		got := strings.TrimSpace(el.Text())
		return el.Children().Length() == 0 && got == "", fmt.Sprintf("%q", got)
	}))
}

func (e *expectations) ToBeChecked(ctx context.Context) error {
	return e.check(ctx, "be checked", e.one("checked", func(el *goquery.Selection) (bool, string) {
		_, ok := el.Attr("checked")
		return ok, ""
	}))
}

var hiddenStyle = regexp.MustCompile(`(?i)(display\s*:\s*none|visibility\s*:\s*hidden)`)

// hidden reports whether el or one of its ancestors is not rendered.
func hidden(el *goquery.Selection) bool {
	if inputType(el) == "hidden" {
		return true
	}
	return el.Parents().AddSelection(el).FilterFunction(func(_ int, s *goquery.Selection) bool {
		if s.Is("head, script, style, template") {
			return true
		}
		if _, ok := s.Attr("hidden"); ok {
			return true
		}
		return hiddenStyle.MatchString(s.AttrOr("style", ""))
	}).Length() > 0
}
