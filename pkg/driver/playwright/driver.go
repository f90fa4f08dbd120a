// Package playwright implements core.Driver over playwright-go.
package playwright

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/devicelab-dev/cyrunner/pkg/core"
)

// scrollExtentJS measures how far an element can scroll.
const scrollExtentJS = `(el) => {
	el = el || document.scrollingElement || document.documentElement;
	return { width: el.scrollWidth - el.clientWidth, height: el.scrollHeight - el.clientHeight };
}`

const scrollToJS = `(el, o) => {
	el = el || document.scrollingElement || document.documentElement;
	el.scrollTo({ top: o.top, left: o.left });
}`

// Driver implements core.Driver over a single page.
type Driver struct {
	page    playwright.Page
	expect  playwright.PlaywrightAssertions
	options Options
}

// Options configures driver timeouts.
type Options struct {
	// CommandTimeout bounds actionability and assertion waits.
	CommandTimeout time.Duration
	// PageLoadTimeout bounds navigation.
	PageLoadTimeout time.Duration
}

// NewDriver wraps page.
func NewDriver(page playwright.Page, opts Options) *Driver {
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 4 * time.Second
	}
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = 60 * time.Second
	}
	page.SetDefaultTimeout(ms(opts.CommandTimeout))
	page.SetDefaultNavigationTimeout(ms(opts.PageLoadTimeout))
	return &Driver{
		page:    page,
		expect:  playwright.NewPlaywrightAssertions(ms(opts.CommandTimeout)),
		options: opts,
	}
}

// Page returns the underlying page.
func (d *Driver) Page() playwright.Page { return d.page }

func ms(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

// do runs a blocking playwright call unless ctx is already done. Calls are
// bounded by the page timeouts, not by ctx.
func do(ctx context.Context, op string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Locator queries the whole page.
func (d *Driver) Locator(selector string) core.Locator {
	return &Locator{d: d, pw: d.page.Locator(selector), desc: selector}
}

// GetByText matches elements anywhere in the page by text.
func (d *Driver) GetByText(text string, exact bool) core.Locator {
	return &Locator{
		d:    d,
		pw:   d.page.GetByText(text, playwright.PageGetByTextOptions{Exact: playwright.Bool(exact)}),
		desc: fmt.Sprintf("text=%q", text),
	}
}

// Navigate loads url and waits for the load event.
func (d *Driver) Navigate(ctx context.Context, url string) error {
	return do(ctx, "navigate "+url, func() error {
		_, err := d.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateLoad,
		})
		return err
	})
}

// Title returns the page title.
func (d *Driver) Title(ctx context.Context) (string, error) {
	var title string
	err := do(ctx, "title", func() error {
		var err error
		title, err = d.page.Title()
		return err
	})
	return title, err
}

// URL returns the current page URL.
func (d *Driver) URL() string {
	return d.page.URL()
}

// handle wraps a remote JS object.
type handle struct {
	h playwright.JSHandle
}

func (h *handle) Dispose() error { return h.h.Dispose() }

// EvaluateHandle evaluates expression in the page and keeps the result remote.
func (d *Driver) EvaluateHandle(ctx context.Context, expression string) (core.Handle, error) {
	var h playwright.JSHandle
	err := do(ctx, "evaluate "+expression, func() error {
		var err error
		h, err = d.page.EvaluateHandle(expression)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &handle{h: h}, nil
}

// HasOwnProperty reports whether the remote object owns name.
func (d *Driver) HasOwnProperty(ctx context.Context, h core.Handle, name string) (bool, error) {
	ph, ok := h.(*handle)
	if !ok {
		return false, fmt.Errorf("handle %T does not belong to this driver", h)
	}
	var owns bool
	err := do(ctx, "hasOwnProperty "+name, func() error {
		v, err := ph.h.Evaluate(`(o, name) => Object.prototype.hasOwnProperty.call(o, name)`, name)
		if err != nil {
			return err
		}
		owns, _ = v.(bool)
		return nil
	})
	return owns, err
}

// PressKey presses a key on the focused element.
func (d *Driver) PressKey(ctx context.Context, key string) error {
	return do(ctx, "press "+key, func() error {
		return d.page.Keyboard().Press(key)
	})
}

// Cookies returns the cookies of the browser context.
func (d *Driver) Cookies(ctx context.Context) ([]core.Cookie, error) {
	var cookies []playwright.Cookie
	err := do(ctx, "cookies", func() error {
		var err error
		cookies, err = d.page.Context().Cookies()
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]core.Cookie, len(cookies))
	for i, c := range cookies {
		out[i] = fromCookie(c)
	}
	return out, nil
}

// AddCookies sets cookies on the browser context.
func (d *Driver) AddCookies(ctx context.Context, cookies ...core.Cookie) error {
	in := make([]playwright.OptionalCookie, len(cookies))
	for i, c := range cookies {
		in[i] = toOptionalCookie(c, d.page.URL())
	}
	return do(ctx, "add cookies", func() error {
		return d.page.Context().AddCookies(in)
	})
}

// ClearCookies removes the cookies matching filter. The context's cookies
// are cleared and the rest restored.
func (d *Driver) ClearCookies(ctx context.Context, filter core.CookieFilter) error {
	all, err := d.Cookies(ctx)
	if err != nil {
		return err
	}
	var keep []core.Cookie
	for _, c := range all {
		if !filter.Match(c) {
			keep = append(keep, c)
		}
	}
	if err := do(ctx, "clear cookies", func() error { return d.page.Context().ClearCookies() }); err != nil {
		return err
	}
	if len(keep) == 0 {
		return nil
	}
	return d.AddCookies(ctx, keep...)
}

// ScrollExtent returns the document's scrollable extent.
func (d *Driver) ScrollExtent(ctx context.Context) (core.Extent, error) {
	var ext core.Extent
	err := do(ctx, "scroll extent", func() error {
		v, err := d.page.Evaluate(scrollExtentJS, nil)
		if err != nil {
			return err
		}
		ext, err = toExtent(v)
		return err
	})
	return ext, err
}

// ScrollTo scrolls the document.
func (d *Driver) ScrollTo(ctx context.Context, offset core.Offset) error {
	return do(ctx, "scroll", func() error {
		// scrollToJS takes the element first; the document has none.
		_, err := d.page.Evaluate(`(o) => (`+scrollToJS+`)(null, o)`, offsetArg(offset))
		return err
	})
}

// Wait sleeps for dur or until ctx is done.
func (d *Driver) Wait(ctx context.Context, dur time.Duration) error {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pause opens the playwright inspector and blocks until it is resumed.
// Headless browsers resume immediately.
func (d *Driver) Pause(ctx context.Context) error {
	return do(ctx, "pause", d.page.Pause)
}

// Expect returns playwright's web-first assertions for l.
func (d *Driver) Expect(l core.Locator) core.LocatorExpectations {
	pl, ok := l.(*Locator)
	if !ok {
		return &expectations{err: fmt.Errorf("locator %T does not belong to this driver", l)}
	}
	return &expectations{desc: pl.desc, base: d.expect.Locator(pl.pw)}
}

// Close closes the page.
func (d *Driver) Close() error {
	return d.page.Close()
}

func offsetArg(o core.Offset) map[string]interface{} {
	return map[string]interface{}{"top": o.Top, "left": o.Left}
}

func toExtent(v interface{}) (core.Extent, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return core.Extent{}, fmt.Errorf("unexpected extent %v", v)
	}
	w, wok := toFloat(m["width"])
	h, hok := toFloat(m["height"])
	if !wok || !hok {
		return core.Extent{}, fmt.Errorf("unexpected extent %v", v)
	}
	return core.Extent{Width: w, Height: h}, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func fromCookie(c playwright.Cookie) core.Cookie {
	out := core.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  c.Expires,
		HTTPOnly: c.HttpOnly,
		Secure:   c.Secure,
	}
	if c.SameSite != nil {
		out.SameSite = string(*c.SameSite)
	}
	return out
}

// toOptionalCookie converts c for AddCookies. Cookies without a domain are
// scoped to pageURL.
func toOptionalCookie(c core.Cookie, pageURL string) playwright.OptionalCookie {
	oc := playwright.OptionalCookie{
		Name:  c.Name,
		Value: c.Value,
	}
	if c.Domain != "" {
		oc.Domain = playwright.String(c.Domain)
		path := c.Path
		if path == "" {
			path = "/"
		}
		oc.Path = playwright.String(path)
	} else {
		oc.URL = playwright.String(pageURL)
	}
	if c.Expires > 0 {
		oc.Expires = playwright.Float(c.Expires)
	}
	if c.HTTPOnly {
		oc.HttpOnly = playwright.Bool(true)
	}
	if c.Secure {
		oc.Secure = playwright.Bool(true)
	}
	if c.SameSite != "" {
		s := playwright.SameSiteAttribute(c.SameSite)
		oc.SameSite = &s
	}
	return oc
}
