package mock

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/devicelab-dev/cyrunner/pkg/core"
)

// Locator is a lazily evaluated goquery selection. The selection is
// recomputed on every operation so it follows navigation and DOM changes.
type Locator struct {
	d    *Driver
	desc string
	// find computes the selection; d.mu is held when it runs.
	find func() *goquery.Selection
}

func (l *Locator) derive(desc string, fn func(*goquery.Selection) *goquery.Selection) *Locator {
	parent := l.find
	return &Locator{d: l.d, desc: desc, find: func() *goquery.Selection { return fn(parent()) }}
}

// String describes how the locator was built.
func (l *Locator) String() string { return l.desc }

// Locator finds descendants matching selector.
func (l *Locator) Locator(selector string) core.Locator {
	return l.derive(l.desc+" "+selector, func(s *goquery.Selection) *goquery.Selection {
		return s.Find(selector)
	})
}

// nonContent are elements never matched by text.
const nonContent = "head, head *, script, style, template"

// textMatcher compares element text. Substring matches ignore case; exact
// matches compare whitespace-normalized text.
func textMatcher(text string, exact bool) func(*goquery.Selection) bool {
	want := normalizeSpace(text)
	return func(s *goquery.Selection) bool {
		got := normalizeSpace(s.Text())
		if exact {
			return got == want
		}
		return strings.Contains(strings.ToLower(got), strings.ToLower(want))
	}
}

// GetByText finds the innermost elements whose text matches.
func (l *Locator) GetByText(text string, exact bool) core.Locator {
	match := textMatcher(text, exact)
	desc := fmt.Sprintf("%s text(%q)", l.desc, text)
	return l.derive(desc, func(s *goquery.Selection) *goquery.Selection {
		candidates := s.Find("*").Not(nonContent).FilterFunction(func(_ int, el *goquery.Selection) bool {
			return match(el)
		})
		return candidates.FilterFunction(func(_ int, el *goquery.Selection) bool {
			return el.Find("*").FilterFunction(func(_ int, child *goquery.Selection) bool {
				return match(child)
			}).Length() == 0
		})
	})
}

// HasText keeps the matches whose own text, descendants included, matches.
func (l *Locator) HasText(text string, exact bool) core.Locator {
	match := textMatcher(text, exact)
	return l.derive(fmt.Sprintf("%s:hasText(%q)", l.desc, text), func(s *goquery.Selection) *goquery.Selection {
		return s.FilterFunction(func(_ int, el *goquery.Selection) bool { return match(el) })
	})
}

// First selects the first match.
func (l *Locator) First() core.Locator {
	return l.derive(l.desc+":first", (*goquery.Selection).First)
}

// Last selects the last match.
func (l *Locator) Last() core.Locator {
	return l.derive(l.desc+":last", (*goquery.Selection).Last)
}

// Nth selects the match at index.
func (l *Locator) Nth(index int) core.Locator {
	return l.derive(fmt.Sprintf("%s:nth(%d)", l.desc, index), func(s *goquery.Selection) *goquery.Selection {
		return s.Eq(index)
	})
}

// Relative traverses the DOM the way jQuery does.
func (l *Locator) Relative(axis core.Axis, selector string) core.Locator {
	desc := fmt.Sprintf("%s:%s(%s)", l.desc, axis, selector)
	return l.derive(desc, func(s *goquery.Selection) *goquery.Selection {
		filtered := selector != ""
		switch axis {
		case core.AxisParent:
			if filtered {
				return s.ParentFiltered(selector)
			}
			return s.Parent()
		case core.AxisParents:
			if filtered {
				return s.ParentsFiltered(selector)
			}
			return s.Parents()
		case core.AxisChildren:
			if filtered {
				return s.ChildrenFiltered(selector)
			}
			return s.Children()
		case core.AxisNext:
			if filtered {
				return s.NextFiltered(selector)
			}
			return s.Next()
		case core.AxisPrev:
			if filtered {
				return s.PrevFiltered(selector)
			}
			return s.Prev()
		case core.AxisSiblings:
			if filtered {
				return s.SiblingsFiltered(selector)
			}
			return s.Siblings()
		case core.AxisFilter:
			return s.Filter(selector)
		case core.AxisNot:
			return s.Not(selector)
		}
		return s.FilterFunction(func(int, *goquery.Selection) bool { return false })
	})
}

// Count returns the number of matches.
func (l *Locator) Count(ctx context.Context) (int, error) {
	if err := l.d.delay(ctx); err != nil {
		return 0, err
	}
	l.d.mu.Lock()
	defer l.d.mu.Unlock()
	return l.find().Length(), nil
}

// single resolves exactly one element; d.mu must be held.
func (l *Locator) single(op string) (*goquery.Selection, error) {
	s := l.find()
	switch n := s.Length(); n {
	case 0:
		return nil, fmt.Errorf("%s %s: no element matches", op, l.desc)
	case 1:
		return s, nil
	default:
		return nil, fmt.Errorf("%s %s: strict mode violation, %d elements match", op, l.desc, n)
	}
}

// act runs fn on the single matched element and records the call.
func (l *Locator) act(ctx context.Context, op string, fn func(el *goquery.Selection) error) error {
	if err := l.d.delay(ctx); err != nil {
		return err
	}
	l.d.mu.Lock()
	defer l.d.mu.Unlock()
	el, err := l.single(op)
	if err != nil {
		return err
	}
	return fn(el)
}

// Fill sets the value of an input, textarea or contenteditable element.
func (l *Locator) Fill(ctx context.Context, value string) error {
	return l.act(ctx, "fill", func(el *goquery.Selection) error {
		l.d.record("fill:%s:%s", l.desc, value)
		return setValue(l.desc, el, value)
	})
}

// Type appends text to the value of an editable element.
func (l *Locator) Type(ctx context.Context, text string) error {
	return l.act(ctx, "type", func(el *goquery.Selection) error {
		l.d.record("type:%s:%s", l.desc, text)
		current := valueOf(el)
		if el.Is("[contenteditable]") {
			current = el.Text()
		}
		return setValue(l.desc, el, current+text)
	})
}

// Clear empties an editable element.
func (l *Locator) Clear(ctx context.Context) error {
	return l.act(ctx, "clear", func(el *goquery.Selection) error {
		l.d.record("clear:%s", l.desc)
		return setValue(l.desc, el, "")
	})
}

func setValue(desc string, el *goquery.Selection, value string) error {
	if disabled(el) {
		return fmt.Errorf("fill %s: element is disabled", desc)
	}
	switch {
	case el.Is("textarea"), el.Is("[contenteditable]"):
		el.SetText(value)
	case el.Is("input"):
		switch inputType(el) {
		case "checkbox", "radio", "button", "submit", "reset", "file", "image":
			return fmt.Errorf("fill %s: input of type %s cannot be filled", desc, inputType(el))
		}
		el.SetAttr("value", value)
	default:
		return fmt.Errorf("fill %s: element is not an <input>, <textarea> or [contenteditable]", desc)
	}
	return nil
}

// SetChecked checks or unchecks a checkbox or radio button.
func (l *Locator) SetChecked(ctx context.Context, checked bool) error {
	return l.act(ctx, "setChecked", func(el *goquery.Selection) error {
		l.d.record("setChecked:%s:%v", l.desc, checked)
		return l.setChecked(el, checked)
	})
}

func (l *Locator) setChecked(el *goquery.Selection, checked bool) error {
	if disabled(el) {
		return fmt.Errorf("check %s: element is disabled", l.desc)
	}
	switch inputType(el) {
	case "checkbox":
	case "radio":
		if !checked {
			return fmt.Errorf("check %s: cannot uncheck a radio button", l.desc)
		}
		if name, ok := el.Attr("name"); ok {
			l.d.doc.Find(fmt.Sprintf("input[type=radio][name=%q]", name)).RemoveAttr("checked")
		}
	default:
		return fmt.Errorf("check %s: not a checkbox or radio button", l.desc)
	}
	if checked {
		el.SetAttr("checked", "checked")
	} else {
		el.RemoveAttr("checked")
	}
	return nil
}

// Click clicks the element. Checkboxes toggle and radio buttons become
// checked.
func (l *Locator) Click(ctx context.Context, opts core.ClickOptions) error {
	return l.act(ctx, "click", func(el *goquery.Selection) error {
		if disabled(el) && !opts.Force {
			return fmt.Errorf("click %s: element is disabled", l.desc)
		}
		button := opts.Button
		if button == "" {
			button = core.ButtonLeft
		}
		pos := "center"
		if opts.Position != nil {
			pos = fmt.Sprintf("%v,%v", opts.Position.Top, opts.Position.Left)
		}
		l.d.record("click:%s:%s:%s:double=%v", l.desc, button, pos, opts.Double)
		if button != core.ButtonLeft {
			return nil
		}
		switch inputType(el) {
		case "checkbox":
			_, checked := el.Attr("checked")
			clicks := 1
			if opts.Double {
				clicks = 2
			}
			if clicks%2 == 1 {
				return l.setChecked(el, !checked)
			}
		case "radio":
			return l.setChecked(el, true)
		}
		return nil
	})
}

// Focus records focus on the element.
func (l *Locator) Focus(ctx context.Context) error {
	return l.act(ctx, "focus", func(*goquery.Selection) error {
		l.d.record("focus:%s", l.desc)
		return nil
	})
}

// Blur records blur on the element.
func (l *Locator) Blur(ctx context.Context) error {
	return l.act(ctx, "blur", func(*goquery.Selection) error {
		l.d.record("blur:%s", l.desc)
		return nil
	})
}

// DispatchEvent records a synthetic event.
func (l *Locator) DispatchEvent(ctx context.Context, event string) error {
	return l.act(ctx, "dispatchEvent", func(*goquery.Selection) error {
		l.d.record("dispatch:%s:%s", l.desc, event)
		return nil
	})
}

// ScrollIntoView records the scroll.
func (l *Locator) ScrollIntoView(ctx context.Context) error {
	return l.act(ctx, "scrollIntoView", func(*goquery.Selection) error {
		l.d.record("scrollIntoView:%s", l.desc)
		return nil
	})
}

// SelectOption selects options of a <select> by value or label and
// returns the selected values.
func (l *Locator) SelectOption(ctx context.Context, values []string) ([]string, error) {
	var selected []string
	err := l.act(ctx, "selectOption", func(el *goquery.Selection) error {
		if !el.Is("select") {
			return fmt.Errorf("select %s: element is not a <select>", l.desc)
		}
		if _, multiple := el.Attr("multiple"); !multiple && len(values) > 1 {
			return fmt.Errorf("select %s: element does not accept multiple values", l.desc)
		}
		l.d.record("select:%s:%v", l.desc, values)

		options := el.Find("option")
		var picked []*goquery.Selection
		for _, want := range values {
			found := options.FilterFunction(func(_ int, o *goquery.Selection) bool {
				return optionValue(o) == want || normalizeSpace(o.Text()) == want
			}).First()
			if found.Length() == 0 {
				return fmt.Errorf("select %s: no option %q", l.desc, want)
			}
			picked = append(picked, found)
		}
		options.RemoveAttr("selected")
		for _, o := range picked {
			o.SetAttr("selected", "selected")
			selected = append(selected, optionValue(o))
		}
		return nil
	})
	return selected, err
}

// Size reads data-width and data-height, falling back to the configured
// element size.
func (l *Locator) Size(ctx context.Context) (core.Extent, error) {
	var ext core.Extent
	err := l.act(ctx, "size", func(el *goquery.Selection) error {
		ext = core.Extent{
			Width:  floatAttr(el, "data-width", l.d.Config.ElementSize.Width),
			Height: floatAttr(el, "data-height", l.d.Config.ElementSize.Height),
		}
		return nil
	})
	return ext, err
}

// ScrollExtent reads data-scroll-width and data-scroll-height.
func (l *Locator) ScrollExtent(ctx context.Context) (core.Extent, error) {
	var ext core.Extent
	err := l.act(ctx, "scrollExtent", func(el *goquery.Selection) error {
		ext = core.Extent{
			Width:  floatAttr(el, "data-scroll-width", 0),
			Height: floatAttr(el, "data-scroll-height", 0),
		}
		return nil
	})
	return ext, err
}

// ScrollTo stores the offset in data-scroll-top and data-scroll-left.
func (l *Locator) ScrollTo(ctx context.Context, off core.Offset) error {
	return l.act(ctx, "scrollTo", func(el *goquery.Selection) error {
		l.d.record("scrollTo:%s:%v,%v", l.desc, off.Top, off.Left)
		el.SetAttr("data-scroll-top", strconv.FormatFloat(off.Top, 'f', -1, 64))
		el.SetAttr("data-scroll-left", strconv.FormatFloat(off.Left, 'f', -1, 64))
		return nil
	})
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func inputType(el *goquery.Selection) string {
	if !el.Is("input") {
		return ""
	}
	t, ok := el.Attr("type")
	if !ok || t == "" {
		return "text"
	}
	return strings.ToLower(t)
}

func disabled(el *goquery.Selection) bool {
	_, ok := el.Attr("disabled")
	return ok
}

func optionValue(o *goquery.Selection) string {
	if v, ok := o.Attr("value"); ok {
		return v
	}
	return normalizeSpace(o.Text())
}

// valueOf returns the form value of an element.
func valueOf(el *goquery.Selection) string {
	switch {
	case el.Is("textarea"):
		return el.Text()
	case el.Is("select"):
		opt := el.Find("option[selected]").First()
		if opt.Length() == 0 {
			opt = el.Find("option").First()
		}
		if opt.Length() == 0 {
			return ""
		}
		return optionValue(opt)
	default:
		return el.AttrOr("value", "")
	}
}

func floatAttr(el *goquery.Selection, name string, def float64) float64 {
	v, ok := el.Attr(name)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

var _ core.Locator = (*Locator)(nil)
