// Package mock provides an in-memory browser driver over static HTML.
// Pages are parsed with goquery; commands mutate the parsed document the
// way a browser would mutate the DOM. Every call is recorded.
package mock

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/devicelab-dev/cyrunner/pkg/core"
)

const blankPage = "<html><head></head><body></body></html>"

// Config configures mock driver behavior.
type Config struct {
	// Pages maps a full URL or a URL path to page HTML.
	Pages map[string]string
	// PagesDir serves pages from disk when Pages has no entry.
	PagesDir string
	// Fetch loads unknown http(s) URLs over the network.
	Fetch      bool
	HTTPClient *http.Client

	// DocumentExtent is the scrollable extent of the page.
	DocumentExtent core.Extent
	// ElementSize is the box size of elements without data-width/data-height.
	ElementSize core.Extent
	// StepDelay adds artificial latency to every driver call.
	StepDelay time.Duration
}

// Driver is an in-memory implementation of core.Driver.
type Driver struct {
	Config Config

	mu      sync.Mutex
	doc     *goquery.Document
	url     *url.URL
	cookies []core.Cookie
	scroll  core.Offset
	calls   []string
}

// New creates a driver showing a blank page.
func New(cfg Config) *Driver {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.ElementSize == (core.Extent{}) {
		cfg.ElementSize = core.Extent{Width: 100, Height: 20}
	}
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(blankPage))
	return &Driver{
		Config: cfg,
		doc:    doc,
		url:    &url.URL{Scheme: "about", Opaque: "blank"},
	}
}

// Calls returns the recorded driver calls in order.
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

// HTML returns the current document markup.
func (d *Driver) HTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	html, _ := goquery.OuterHtml(d.doc.Selection)
	return html
}

// record appends a call; d.mu must be held.
func (d *Driver) record(format string, args ...interface{}) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *Driver) delay(ctx context.Context) error {
	if d.Config.StepDelay <= 0 {
		return ctx.Err()
	}
	return sleep(ctx, d.Config.StepDelay)
}

func sleep(ctx context.Context, dur time.Duration) error {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Locator queries the whole document.
func (d *Driver) Locator(selector string) core.Locator {
	return d.root().Locator(selector)
}

// GetByText matches elements anywhere in the document by text.
func (d *Driver) GetByText(text string, exact bool) core.Locator {
	return d.root().GetByText(text, exact)
}

func (d *Driver) root() *Locator {
	return &Locator{d: d, desc: "document", find: func() *goquery.Selection { return d.doc.Selection }}
}

// Navigate loads the page for rawURL, resolved against the current URL.
func (d *Driver) Navigate(ctx context.Context, rawURL string) error {
	if err := d.delay(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	base := d.url
	d.mu.Unlock()

	var u *url.URL
	var err error
	if base.Scheme == "about" {
		u, err = url.Parse(rawURL)
	} else {
		u, err = base.Parse(rawURL)
	}
	if err != nil {
		return fmt.Errorf("navigate %q: %w", rawURL, err)
	}
	doc, err := d.load(ctx, u)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("navigate:%s", u)
	d.doc = doc
	d.url = u
	d.scroll = core.Offset{}
	return nil
}

// Title returns the text of the <title> element.
func (d *Driver) Title(ctx context.Context) (string, error) {
	if err := d.delay(ctx); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("title")
	return strings.TrimSpace(d.doc.Find("title").First().Text()), nil
}

// URL returns the current page URL.
func (d *Driver) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url.String()
}

type handle struct{ name string }

func (h *handle) Dispose() error { return nil }
func (h *handle) String() string { return h.name }

var globalProperties = map[string][]string{
	"window":   {"document", "location", "navigator", "history", "localStorage", "sessionStorage", "innerWidth", "innerHeight"},
	"document": {"title", "body", "head", "cookie", "documentElement", "location", "readyState"},
}

// EvaluateHandle supports the window and document globals.
func (d *Driver) EvaluateHandle(ctx context.Context, expression string) (core.Handle, error) {
	if err := d.delay(ctx); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("evaluateHandle:%s", expression)
	switch expression {
	case "window":
		return &handle{name: "window"}, nil
	case "window.document", "document":
		return &handle{name: "document"}, nil
	}
	return nil, fmt.Errorf("evaluate %q: only window and document are available", expression)
}

// HasOwnProperty checks the fixed property set of the mock globals.
func (d *Driver) HasOwnProperty(ctx context.Context, h core.Handle, name string) (bool, error) {
	if err := d.delay(ctx); err != nil {
		return false, err
	}
	mh, ok := h.(*handle)
	if !ok {
		return false, fmt.Errorf("hasOwnProperty: foreign handle %T", h)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("hasOwnProperty:%s.%s", mh.name, name)
	for _, p := range globalProperties[mh.name] {
		if p == name {
			return true, nil
		}
	}
	return false, nil
}

// PressKey records a key press on the page.
func (d *Driver) PressKey(ctx context.Context, key string) error {
	if err := d.delay(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("press:%s", key)
	return nil
}

// Cookies returns a copy of the cookie jar.
func (d *Driver) Cookies(ctx context.Context) ([]core.Cookie, error) {
	if err := d.delay(ctx); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("cookies")
	out := make([]core.Cookie, len(d.cookies))
	copy(out, d.cookies)
	return out, nil
}

// AddCookies stores cookies, replacing ones with the same name and domain.
// Cookies without a domain take the current hostname.
func (d *Driver) AddCookies(ctx context.Context, cookies ...core.Cookie) error {
	if err := d.delay(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range cookies {
		if c.Domain == "" {
			c.Domain = d.url.Hostname()
		}
		if c.Path == "" {
			c.Path = "/"
		}
		d.record("addCookie:%s=%s;domain=%s", c.Name, c.Value, c.Domain)
		replaced := false
		for i := range d.cookies {
			if d.cookies[i].Name == c.Name && d.cookies[i].Domain == c.Domain {
				d.cookies[i] = c
				replaced = true
			}
		}
		if !replaced {
			d.cookies = append(d.cookies, c)
		}
	}
	return nil
}

// ClearCookies removes the cookies matching filter.
func (d *Driver) ClearCookies(ctx context.Context, filter core.CookieFilter) error {
	if err := d.delay(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("clearCookies:%s", filter.Name)
	kept := d.cookies[:0]
	for _, c := range d.cookies {
		if !filter.Match(c) {
			kept = append(kept, c)
		}
	}
	d.cookies = kept
	return nil
}

// ScrollExtent returns the configured document extent.
func (d *Driver) ScrollExtent(ctx context.Context) (core.Extent, error) {
	if err := d.delay(ctx); err != nil {
		return core.Extent{}, err
	}
	return d.Config.DocumentExtent, nil
}

// ScrollTo records the document scroll position.
func (d *Driver) ScrollTo(ctx context.Context, off core.Offset) error {
	if err := d.delay(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("scrollTo:document:%v,%v", off.Top, off.Left)
	d.scroll = off
	return nil
}

// ScrollPosition returns the last document scroll offset.
func (d *Driver) ScrollPosition() core.Offset {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scroll
}

// Wait sleeps for dur or until ctx is done.
func (d *Driver) Wait(ctx context.Context, dur time.Duration) error {
	d.mu.Lock()
	d.record("wait:%v", dur)
	d.mu.Unlock()
	return sleep(ctx, dur)
}

// Pause is a no-op outside an interactive browser.
func (d *Driver) Pause(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("pause")
	return nil
}

// Expect evaluates expectations against the current document immediately.
func (d *Driver) Expect(l core.Locator) core.LocatorExpectations {
	ml, ok := l.(*Locator)
	if !ok {
		return &expectations{err: fmt.Errorf("expect: foreign locator %T", l)}
	}
	return &expectations{l: ml}
}

var _ core.Driver = (*Driver)(nil)
