package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/devicelab-dev/cyrunner/pkg/core"
)

// fakeDriver implements core.Driver and records every call.
type fakeDriver struct {
	calls     []string
	counts    map[string]int // match counts by locator name, default 1
	url       string
	title     string
	cookies   []core.Cookie
	extent    core.Extent
	size      core.Extent
	props     map[string]bool
	expectErr error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{counts: map[string]int{}, url: "http://localhost:3000/"}
}

func (d *fakeDriver) record(format string, args ...interface{}) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *fakeDriver) Locator(selector string) core.Locator {
	return &fakeLocator{d: d, name: selector}
}

func (d *fakeDriver) GetByText(text string, exact bool) core.Locator {
	return &fakeLocator{d: d, name: fmt.Sprintf("text(%s,%v)", text, exact)}
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	d.record("navigate:%s", url)
	d.url = url
	return nil
}

func (d *fakeDriver) Title(context.Context) (string, error) {
	d.record("title")
	return d.title, nil
}

func (d *fakeDriver) URL() string { return d.url }

func (d *fakeDriver) EvaluateHandle(_ context.Context, expr string) (core.Handle, error) {
	d.record("evaluateHandle:%s", expr)
	return fakeHandle(expr), nil
}

func (d *fakeDriver) HasOwnProperty(_ context.Context, h core.Handle, name string) (bool, error) {
	d.record("hasOwnProperty:%v:%s", h, name)
	return d.props[name], nil
}

func (d *fakeDriver) PressKey(_ context.Context, key string) error {
	d.record("press:%s", key)
	return nil
}

func (d *fakeDriver) Cookies(context.Context) ([]core.Cookie, error) {
	d.record("cookies")
	return d.cookies, nil
}

func (d *fakeDriver) AddCookies(_ context.Context, cookies ...core.Cookie) error {
	for _, c := range cookies {
		d.record("addCookie:%s=%s;domain=%s", c.Name, c.Value, c.Domain)
	}
	d.cookies = append(d.cookies, cookies...)
	return nil
}

func (d *fakeDriver) ClearCookies(_ context.Context, f core.CookieFilter) error {
	d.record("clearCookies:%s", f.Name)
	return nil
}

func (d *fakeDriver) ScrollExtent(context.Context) (core.Extent, error) {
	return d.extent, nil
}

func (d *fakeDriver) ScrollTo(_ context.Context, off core.Offset) error {
	d.record("scrollTo:document:%v,%v", off.Top, off.Left)
	return nil
}

func (d *fakeDriver) Wait(_ context.Context, dur time.Duration) error {
	d.record("wait:%v", dur)
	return nil
}

func (d *fakeDriver) Pause(context.Context) error {
	d.record("pause")
	return nil
}

func (d *fakeDriver) Expect(l core.Locator) core.LocatorExpectations {
	return &fakeExpect{d: d, name: l.(*fakeLocator).name}
}

type fakeHandle string

func (h fakeHandle) Dispose() error { return nil }

// fakeLocator names itself after the steps that produced it.
type fakeLocator struct {
	d    *fakeDriver
	name string
}

func (l *fakeLocator) derive(format string, args ...interface{}) *fakeLocator {
	return &fakeLocator{d: l.d, name: l.name + fmt.Sprintf(format, args...)}
}

func (l *fakeLocator) Locator(selector string) core.Locator { return l.derive(" %s", selector) }
func (l *fakeLocator) GetByText(text string, exact bool) core.Locator {
	return l.derive(" text(%s,%v)", text, exact)
}
func (l *fakeLocator) HasText(text string, exact bool) core.Locator {
	return l.derive(":hasText(%s,%v)", text, exact)
}
func (l *fakeLocator) First() core.Locator         { return l.derive(":first") }
func (l *fakeLocator) Last() core.Locator          { return l.derive(":last") }
func (l *fakeLocator) Nth(index int) core.Locator  { return l.derive(":nth(%d)", index) }
func (l *fakeLocator) Relative(axis core.Axis, sel string) core.Locator {
	return l.derive(":%s(%s)", axis, sel)
}

func (l *fakeLocator) Count(context.Context) (int, error) {
	if n, ok := l.d.counts[l.name]; ok {
		return n, nil
	}
	return 1, nil
}

func (l *fakeLocator) Fill(_ context.Context, value string) error {
	l.d.record("fill:%s:%s", l.name, value)
	return nil
}

func (l *fakeLocator) Type(_ context.Context, text string) error {
	l.d.record("type:%s:%s", l.name, text)
	return nil
}

func (l *fakeLocator) Clear(context.Context) error {
	l.d.record("clear:%s", l.name)
	return nil
}

func (l *fakeLocator) SetChecked(_ context.Context, checked bool) error {
	l.d.record("setChecked:%s:%v", l.name, checked)
	return nil
}

func (l *fakeLocator) Click(_ context.Context, opts core.ClickOptions) error {
	pos := "none"
	if opts.Position != nil {
		pos = fmt.Sprintf("%v,%v", opts.Position.Top, opts.Position.Left)
	}
	l.d.record("click:%s:%s:double=%v", l.name, pos, opts.Double)
	return nil
}

func (l *fakeLocator) Focus(context.Context) error {
	l.d.record("focus:%s", l.name)
	return nil
}

func (l *fakeLocator) Blur(context.Context) error {
	l.d.record("blur:%s", l.name)
	return nil
}

func (l *fakeLocator) DispatchEvent(_ context.Context, event string) error {
	l.d.record("dispatch:%s:%s", l.name, event)
	return nil
}

func (l *fakeLocator) ScrollIntoView(context.Context) error {
	l.d.record("scrollIntoView:%s", l.name)
	return nil
}

func (l *fakeLocator) SelectOption(_ context.Context, values []string) ([]string, error) {
	l.d.record("select:%s:%v", l.name, values)
	return values, nil
}

func (l *fakeLocator) Size(context.Context) (core.Extent, error) {
	return l.d.size, nil
}

func (l *fakeLocator) ScrollExtent(context.Context) (core.Extent, error) {
	return l.d.extent, nil
}

func (l *fakeLocator) ScrollTo(_ context.Context, off core.Offset) error {
	l.d.record("scrollTo:%s:%v,%v", l.name, off.Top, off.Left)
	return nil
}

func (l *fakeLocator) String() string { return l.name }

// fakeExpect records expectations as "expect:<not>Check:<locator>:<arg>".
type fakeExpect struct {
	d    *fakeDriver
	name string
	not  bool
}

func (e *fakeExpect) Not() core.LocatorExpectations {
	return &fakeExpect{d: e.d, name: e.name, not: !e.not}
}

func (e *fakeExpect) record(check string, arg interface{}) error {
	prefix := ""
	if e.not {
		prefix = "not."
	}
	e.d.record("expect:%s%s:%s:%v", prefix, check, e.name, arg)
	return e.d.expectErr
}

func (e *fakeExpect) ToHaveCount(_ context.Context, n int) error { return e.record("count", n) }
func (e *fakeExpect) ToHaveText(_ context.Context, s string) error {
	return e.record("text", s)
}
func (e *fakeExpect) ToContainText(_ context.Context, s string) error {
	return e.record("containText", s)
}
func (e *fakeExpect) ToHaveClass(_ context.Context, p string) error { return e.record("class", p) }
func (e *fakeExpect) ToHaveAttribute(_ context.Context, name string, v *string) error {
	if v == nil {
		return e.record("attr", name)
	}
	return e.record("attr", name+"="+*v)
}
func (e *fakeExpect) ToHaveValue(_ context.Context, v string) error { return e.record("value", v) }
func (e *fakeExpect) ToExist(context.Context) error                 { return e.record("exist", "") }
func (e *fakeExpect) ToBeVisible(context.Context) error             { return e.record("visible", "") }
func (e *fakeExpect) ToBeEmpty(context.Context) error               { return e.record("empty", "") }
func (e *fakeExpect) ToBeChecked(context.Context) error             { return e.record("checked", "") }
