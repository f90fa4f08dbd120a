package playwright

import (
	"context"
	"fmt"
	"regexp"

	"github.com/playwright-community/playwright-go"

	"github.com/devicelab-dev/cyrunner/pkg/core"
)

// axisSelectors map traversal axes to selectors relative to an element.
var axisSelectors = map[core.Axis]string{
	core.AxisParent:   "xpath=..",
	core.AxisParents:  "xpath=ancestor::*",
	core.AxisChildren: ":scope > *",
	core.AxisNext:     "xpath=following-sibling::*[1]",
	core.AxisPrev:     "xpath=preceding-sibling::*[1]",
	core.AxisSiblings: "xpath=(preceding-sibling::* | following-sibling::*)",
}

// Locator implements core.Locator over a playwright locator.
type Locator struct {
	d    *Driver
	pw   playwright.Locator
	desc string
}

func (l *Locator) derive(pw playwright.Locator, desc string) *Locator {
	return &Locator{d: l.d, pw: pw, desc: l.desc + " " + desc}
}

// Locator queries descendants.
func (l *Locator) Locator(selector string) core.Locator {
	return l.derive(l.pw.Locator(selector), selector)
}

// GetByText matches descendants by text.
func (l *Locator) GetByText(text string, exact bool) core.Locator {
	return l.derive(
		l.pw.GetByText(text, playwright.LocatorGetByTextOptions{Exact: playwright.Bool(exact)}),
		fmt.Sprintf("text=%q", text),
	)
}

// HasText keeps the matches containing text. Exact matches compare the
// whole trimmed text.
func (l *Locator) HasText(text string, exact bool) core.Locator {
	var hasText interface{} = text
	if exact {
		hasText = regexp.MustCompile(`^\s*` + regexp.QuoteMeta(text) + `\s*$`)
	}
	return l.derive(
		l.pw.Filter(playwright.LocatorFilterOptions{HasText: hasText}),
		fmt.Sprintf(":hasText(%q)", text),
	)
}

// First narrows to the first match.
func (l *Locator) First() core.Locator { return l.derive(l.pw.First(), ":first") }

// Last narrows to the last match.
func (l *Locator) Last() core.Locator { return l.derive(l.pw.Last(), ":last") }

// Nth narrows to the match at index.
func (l *Locator) Nth(index int) core.Locator {
	return l.derive(l.pw.Nth(index), fmt.Sprintf(":eq(%d)", index))
}

// Relative traverses along axis. filter and not keep the current elements
// that do or do not match selector.
func (l *Locator) Relative(axis core.Axis, selector string) core.Locator {
	desc := fmt.Sprintf(":%s(%s)", axis, selector)
	switch axis {
	case core.AxisFilter:
		return l.derive(l.pw.And(l.d.page.Locator(selector)), desc)
	case core.AxisNot:
		return l.derive(l.pw.And(l.d.page.Locator(":not("+selector+")")), desc)
	}
	sel, ok := axisSelectors[axis]
	if !ok {
		// Unknown axes match nothing.
		return l.derive(l.pw.Locator(":not(*)"), desc)
	}
	rel := l.pw.Locator(sel)
	if selector != "" {
		rel = rel.And(l.d.page.Locator(selector))
	}
	return l.derive(rel, desc)
}

// Count returns the number of matches.
func (l *Locator) Count(ctx context.Context) (int, error) {
	var n int
	err := do(ctx, "count "+l.desc, func() error {
		var err error
		n, err = l.pw.Count()
		return err
	})
	return n, err
}

// Fill replaces the element's value.
func (l *Locator) Fill(ctx context.Context, value string) error {
	return do(ctx, "fill "+l.desc, func() error { return l.pw.Fill(value) })
}

// Type presses each character of text after the current value.
func (l *Locator) Type(ctx context.Context, text string) error {
	return do(ctx, "type "+l.desc, func() error {
		if err := l.pw.Press("End"); err != nil {
			return err
		}
		return l.pw.PressSequentially(text)
	})
}

// Clear empties the element's value.
func (l *Locator) Clear(ctx context.Context) error {
	return do(ctx, "clear "+l.desc, func() error { return l.pw.Clear() })
}

// SetChecked checks or unchecks a checkbox or radio.
func (l *Locator) SetChecked(ctx context.Context, checked bool) error {
	return do(ctx, "check "+l.desc, func() error { return l.pw.SetChecked(checked) })
}

// Click clicks the element.
func (l *Locator) Click(ctx context.Context, opts core.ClickOptions) error {
	var button *playwright.MouseButton
	if opts.Button != "" {
		b := playwright.MouseButton(opts.Button)
		button = &b
	}
	var mods []playwright.KeyboardModifier
	for _, m := range opts.Modifiers {
		mods = append(mods, playwright.KeyboardModifier(m))
	}
	var pos *playwright.Position
	if opts.Position != nil {
		pos = &playwright.Position{X: opts.Position.Left, Y: opts.Position.Top}
	}

	return do(ctx, "click "+l.desc, func() error {
		if opts.Double {
			return l.pw.Dblclick(playwright.LocatorDblclickOptions{
				Button:    button,
				Force:     playwright.Bool(opts.Force),
				Modifiers: mods,
				Position:  pos,
			})
		}
		return l.pw.Click(playwright.LocatorClickOptions{
			Button:    button,
			Force:     playwright.Bool(opts.Force),
			Modifiers: mods,
			Position:  pos,
		})
	})
}

// Focus focuses the element.
func (l *Locator) Focus(ctx context.Context) error {
	return do(ctx, "focus "+l.desc, func() error { return l.pw.Focus() })
}

// Blur removes focus from the element.
func (l *Locator) Blur(ctx context.Context) error {
	return do(ctx, "blur "+l.desc, func() error { return l.pw.Blur() })
}

// DispatchEvent fires a DOM event on the element.
func (l *Locator) DispatchEvent(ctx context.Context, event string) error {
	return do(ctx, "trigger "+event+" "+l.desc, func() error { return l.pw.DispatchEvent(event, nil) })
}

// ScrollIntoView scrolls the element into view.
func (l *Locator) ScrollIntoView(ctx context.Context) error {
	return do(ctx, "scrollIntoView "+l.desc, func() error { return l.pw.ScrollIntoViewIfNeeded() })
}

// SelectOption selects options by value or label.
func (l *Locator) SelectOption(ctx context.Context, values []string) ([]string, error) {
	var selected []string
	err := do(ctx, "select "+l.desc, func() error {
		var err error
		selected, err = l.pw.SelectOption(playwright.SelectOptionValues{Values: &values})
		return err
	})
	return selected, err
}

// Size returns the element's bounding box size.
func (l *Locator) Size(ctx context.Context) (core.Extent, error) {
	var ext core.Extent
	err := do(ctx, "size "+l.desc, func() error {
		box, err := l.pw.BoundingBox()
		if err != nil {
			return err
		}
		if box == nil {
			return fmt.Errorf("element is not visible")
		}
		ext = core.Extent{Width: box.Width, Height: box.Height}
		return nil
	})
	return ext, err
}

// ScrollExtent returns how far the element can scroll.
func (l *Locator) ScrollExtent(ctx context.Context) (core.Extent, error) {
	var ext core.Extent
	err := do(ctx, "scroll extent "+l.desc, func() error {
		v, err := l.pw.Evaluate(scrollExtentJS, nil)
		if err != nil {
			return err
		}
		ext, err = toExtent(v)
		return err
	})
	return ext, err
}

// ScrollTo scrolls the element's content.
func (l *Locator) ScrollTo(ctx context.Context, offset core.Offset) error {
	return do(ctx, "scroll "+l.desc, func() error {
		_, err := l.pw.Evaluate(scrollToJS, offsetArg(offset))
		return err
	})
}
