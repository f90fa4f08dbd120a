// Package cy is the chainable command builder. Calls record actions into a
// flow.Queue; nothing touches a browser until the queue is evaluated.
package cy

import (
	"context"
	"fmt"
	"strings"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
	"github.com/devicelab-dev/cyrunner/pkg/geometry"
)

// Option configures an Entry.
type Option func(*options)

type options struct {
	baseURL string
}

// WithBaseURL prefixes relative visit URLs.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// Entry is the root of every chain. Each call starts a new Chain, so two
// statements issued off the same Entry never share builder state.
type Entry struct {
	q    *flow.Queue
	opts options
}

// New returns an entry recording into q.
func New(q *flow.Queue, opts ...Option) *Entry {
	e := &Entry{q: q}
	for _, opt := range opts {
		opt(&e.opts)
	}
	return e
}

// Queue returns the queue the entry records into.
func (e *Entry) Queue() *flow.Queue { return e.q }

func (e *Entry) chain() *Chain {
	return &Chain{q: e.q, opts: e.opts, last: -1}
}

// Chain is a derived chain. Every method records one action and returns
// the receiver.
type Chain struct {
	q    *flow.Queue
	opts options
	last int // queue offset of this chain's most recent action
}

func (c *Chain) push(a flow.Action) *Chain {
	c.q.Push(a)
	c.last = c.q.Len() - 1
	return c
}

func (c *Chain) fail(err error) *Chain {
	c.q.Fail(err)
	return c
}

// Err returns the first build error recorded in the queue.
func (c *Chain) Err() error { return c.q.Err() }

// absorb records a, folding in the locator this chain recorded immediately
// before it so that the pair becomes a single action.
func (c *Chain) absorb(a flow.Action, setTarget func(*flow.LocatorAction)) *Chain {
	if c.q.Err() == nil && c.last >= 0 && c.last == c.q.Len()-1 {
		if prev, ok := c.q.Inspect(-1); ok {
			if loc, ok := prev.(*flow.LocatorAction); ok {
				setTarget(loc)
				c.q.Replace(-1, a)
				return c
			}
		}
	}
	return c.push(a)
}

func (c *Chain) locate(root bool, items ...flow.SelectorItem) *Chain {
	return c.push(&flow.LocatorAction{Selector: flow.Selector(items), Root: root})
}

// ============================================
// Root commands (also available on chains)
// ============================================

// Visit navigates to url, relative to the base URL when one is configured.
func (e *Entry) Visit(url string) *Chain { return e.chain().Visit(url) }

// Visit navigates to url.
func (c *Chain) Visit(url string) *Chain {
	return c.push(&flow.NavigateAction{URL: resolveURL(c.opts.baseURL, url)})
}

func resolveURL(base, url string) string {
	if base == "" || strings.Contains(url, "://") {
		return url
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(url, "/")
}

// Get queries the document.
func (e *Entry) Get(selector string) *Chain { return e.chain().locate(true, flow.Query(selector)) }

// Get queries relative to the current locator, or the document when there
// is no subject yet.
func (c *Chain) Get(selector string) *Chain { return c.locate(false, flow.Query(selector)) }

// ContainsOptions refine Contains.
type ContainsOptions struct {
	Selector string // restrict matches to elements matching this selector
	Exact    bool   // whole-text match instead of substring
}

// Contains finds elements by text in the document.
func (e *Entry) Contains(text string, opts ...ContainsOptions) *Chain {
	return e.chain().contains(true, text, opts)
}

// Contains finds elements by text relative to the current locator.
func (c *Chain) Contains(text string, opts ...ContainsOptions) *Chain {
	return c.contains(false, text, opts)
}

func (c *Chain) contains(root bool, text string, opts []ContainsOptions) *Chain {
	var o ContainsOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Selector != "" {
		return c.locate(root, flow.Query(o.Selector), flow.HasText(text, o.Exact))
	}
	return c.locate(root, flow.Contains(text, o.Exact))
}

// Wrap yields v. A flow.Deferred is called when the action runs.
func (e *Entry) Wrap(v interface{}) *Chain { return e.chain().Wrap(v) }

// Wrap yields v.
func (c *Chain) Wrap(v interface{}) *Chain {
	if fn, ok := v.(func(ctx context.Context) (interface{}, error)); ok {
		v = flow.Deferred(fn)
	}
	return c.push(&flow.SubjectAction{Value: v})
}

// Title yields the page title.
func (e *Entry) Title() *Chain { return e.chain().Title() }

// Title yields the page title.
func (c *Chain) Title() *Chain { return c.push(&flow.TitleAction{}) }

// Location yields the location object, or one key of it.
func (e *Entry) Location(key ...string) *Chain { return e.chain().Location(key...) }

// Location yields the location object, or one key of it.
func (c *Chain) Location(key ...string) *Chain {
	a := &flow.LocationAction{}
	if len(key) > 0 {
		a.Key = key[0]
	}
	return c.push(a)
}

// URL yields location.href.
func (e *Entry) URL() *Chain { return e.chain().URL() }

// URL yields location.href.
func (c *Chain) URL() *Chain { return c.push(&flow.LocationAction{Key: "href"}) }

// Hash yields location.hash.
func (e *Entry) Hash() *Chain { return e.chain().Hash() }

// Hash yields location.hash.
func (c *Chain) Hash() *Chain { return c.push(&flow.LocationAction{Key: "hash"}) }

// Window yields a handle to window.
func (e *Entry) Window() *Chain { return e.chain().Window() }

// Window yields a handle to window.
func (c *Chain) Window() *Chain { return c.push(&flow.HandleAction{Global: "window"}) }

// Document yields a handle to document.
func (e *Entry) Document() *Chain { return e.chain().Document() }

// Document yields a handle to document.
func (c *Chain) Document() *Chain { return c.push(&flow.HandleAction{Global: "document"}) }

// Wait sleeps for ms milliseconds.
func (e *Entry) Wait(ms int) *Chain { return e.chain().Wait(ms) }

// Wait sleeps for ms milliseconds.
func (c *Chain) Wait(ms int) *Chain {
	if ms < 0 {
		return c.fail(invalidArg("wait", fmt.Sprintf("negative duration %d", ms)))
	}
	return c.push(&flow.WaitAction{Ms: ms})
}

// Pause stops for interactive debugging.
func (e *Entry) Pause() *Chain { return e.chain().Pause() }

// Pause stops for interactive debugging.
func (c *Chain) Pause() *Chain { return c.push(&flow.PauseAction{}) }

// ClearCookies clears every cookie.
func (e *Entry) ClearCookies() *Chain { return e.chain().ClearCookies() }

// ClearCookies clears every cookie.
func (c *Chain) ClearCookies() *Chain { return c.push(&flow.CookieClearAction{}) }

// ClearCookie clears one cookie by name.
func (e *Entry) ClearCookie(name string) *Chain { return e.chain().ClearCookie(name) }

// ClearCookie clears one cookie by name.
func (c *Chain) ClearCookie(name string) *Chain {
	return c.push(&flow.CookieClearAction{Name: name})
}

// GetCookie yields one cookie, or null when it is not set.
func (e *Entry) GetCookie(name string) *Chain { return e.chain().GetCookie(name) }

// GetCookie yields one cookie, or null when it is not set.
func (c *Chain) GetCookie(name string) *Chain {
	return c.push(&flow.CookieGetAction{Name: name})
}

// GetCookies yields every cookie.
func (e *Entry) GetCookies() *Chain { return e.chain().GetCookies() }

// GetCookies yields every cookie.
func (c *Chain) GetCookies() *Chain { return c.push(&flow.CookieGetAction{Multiple: true}) }

// CookieOptions are the optional attributes of SetCookie.
type CookieOptions struct {
	Domain   string
	Path     string
	Expiry   float64
	HTTPOnly bool
	Secure   bool
	SameSite string
}

// SetCookie sets a cookie on the current page's domain unless one is given.
func (e *Entry) SetCookie(name, value string, opts ...CookieOptions) *Chain {
	return e.chain().SetCookie(name, value, opts...)
}

// SetCookie sets a cookie on the current page's domain unless one is given.
func (c *Chain) SetCookie(name, value string, opts ...CookieOptions) *Chain {
	cookie := core.Cookie{Name: name, Value: value, Domain: flow.CurrentDomain, Path: "/"}
	if len(opts) > 0 {
		o := opts[0]
		if o.Domain != "" {
			cookie.Domain = o.Domain
		}
		if o.Path != "" {
			cookie.Path = o.Path
		}
		cookie.Expires = o.Expiry
		cookie.HTTPOnly = o.HTTPOnly
		cookie.Secure = o.Secure
		cookie.SameSite = o.SameSite
	}
	return c.push(&flow.CookieSetAction{Cookie: cookie})
}

// ScrollTo scrolls the document. See Chain.ScrollTo for arguments.
func (e *Entry) ScrollTo(args ...interface{}) *Chain { return e.chain().ScrollTo(args...) }

// ScrollTo scrolls the current element, or the document when there is no
// subject. Arguments are a position name, or x and y as numbers or
// percentage strings; a trailing options map is ignored.
func (c *Chain) ScrollTo(args ...interface{}) *Chain {
	if n := len(args); n > 0 {
		if _, ok := args[n-1].(map[string]interface{}); ok {
			args = args[:n-1]
		}
	}
	switch len(args) {
	case 1:
		name, ok := args[0].(string)
		if !ok {
			return c.fail(invalidArg("scrollTo", fmt.Sprintf("position must be a name, got %v", args[0])))
		}
		return c.push(&flow.ScrollToAction{Position: geometry.Named(name)})
	case 2:
		x, err := geometry.ParseCoord(args[0])
		if err != nil {
			return c.fail(err)
		}
		y, err := geometry.ParseCoord(args[1])
		if err != nil {
			return c.fail(err)
		}
		return c.push(&flow.ScrollToAction{Position: geometry.XY(x, y)})
	default:
		return c.fail(invalidArg("scrollTo", "expected a position or x and y"))
	}
}

// ============================================
// Structural commands
// ============================================

// Find queries descendants of the current locator.
func (c *Chain) Find(selector string) *Chain { return c.locate(false, flow.Query(selector)) }

// First narrows to the first match.
func (c *Chain) First() *Chain { return c.locate(false, flow.First()) }

// Last narrows to the last match.
func (c *Chain) Last() *Chain { return c.locate(false, flow.Last()) }

// Eq narrows to the match at index; negative indexes count from the end.
func (c *Chain) Eq(index int) *Chain { return c.locate(false, flow.Nth(index)) }

// Parent moves to the parent of each match.
func (c *Chain) Parent(selector ...string) *Chain { return c.traverse(flow.ModParent, selector) }

// Parents moves to the ancestors of each match.
func (c *Chain) Parents(selector ...string) *Chain { return c.traverse(flow.ModParents, selector) }

// Children moves to the children of each match.
func (c *Chain) Children(selector ...string) *Chain { return c.traverse(flow.ModChildren, selector) }

// Next moves to the next sibling of each match.
func (c *Chain) Next(selector ...string) *Chain { return c.traverse(flow.ModNext, selector) }

// Prev moves to the previous sibling of each match.
func (c *Chain) Prev(selector ...string) *Chain { return c.traverse(flow.ModPrev, selector) }

// Siblings moves to the siblings of each match.
func (c *Chain) Siblings(selector ...string) *Chain { return c.traverse(flow.ModSiblings, selector) }

// Filter keeps the matches that match selector.
func (c *Chain) Filter(selector string) *Chain {
	return c.locate(false, flow.Traverse(flow.ModFilter, selector))
}

// Not drops the matches that match selector.
func (c *Chain) Not(selector string) *Chain {
	return c.locate(false, flow.Traverse(flow.ModNot, selector))
}

func (c *Chain) traverse(m flow.Modifier, selector []string) *Chain {
	sel := ""
	if len(selector) > 0 {
		sel = selector[0]
	}
	return c.locate(false, flow.Traverse(m, sel))
}

// Its yields a property of the current value, addressed by a dotted path.
func (c *Chain) Its(path string) *Chain {
	if path == "" {
		return c.fail(invalidArg("its", "empty property path"))
	}
	return c.push(&flow.ItsAction{Path: path})
}

// ============================================
// Leaf commands
// ============================================

// Type fills the current element. Key tokens such as {enter} are pressed
// after the text is filled; {{} types a literal brace.
func (c *Chain) Type(text string) *Chain {
	actions, err := typeActions(text)
	if err != nil {
		return c.fail(err)
	}
	for _, a := range actions {
		c.push(a)
	}
	return c
}

// Clear clears the current element.
func (c *Chain) Clear() *Chain { return c.push(&flow.ClearAction{}) }

// Check checks every matched element.
func (c *Chain) Check() *Chain { return c.check(true) }

// Uncheck unchecks every matched element.
func (c *Chain) Uncheck() *Chain { return c.check(false) }

func (c *Chain) check(checked bool) *Chain {
	a := &flow.CheckAction{Checked: checked}
	return c.absorb(a, func(loc *flow.LocatorAction) { a.Target = loc })
}

// Click clicks the current element. See normalizeClick for arguments.
func (c *Chain) Click(args ...interface{}) *Chain { return c.click(singleClick, args) }

// Dblclick double clicks the current element.
func (c *Chain) Dblclick(args ...interface{}) *Chain { return c.click(doubleClick, args) }

// Rightclick right clicks the current element.
func (c *Chain) Rightclick(args ...interface{}) *Chain { return c.click(rightClick, args) }

func (c *Chain) click(kind clickKind, args []interface{}) *Chain {
	a, err := normalizeClick(kind, args)
	if err != nil {
		return c.fail(err)
	}
	return c.absorb(a, func(loc *flow.LocatorAction) { a.Target = loc })
}

// Trigger dispatches a DOM event on the current element.
func (c *Chain) Trigger(event string) *Chain {
	if event == "" {
		return c.fail(invalidArg("trigger", "empty event name"))
	}
	return c.push(&flow.DispatchEventAction{Event: event})
}

// Focus focuses the current element.
func (c *Chain) Focus() *Chain { return c.push(&flow.FocusAction{}) }

// Blur blurs the current element.
func (c *Chain) Blur() *Chain { return c.push(&flow.BlurAction{}) }

// ScrollIntoView scrolls the current element into view.
func (c *Chain) ScrollIntoView() *Chain { return c.push(&flow.ScrollIntoViewAction{}) }

// Select selects options of the current <select> by value or label.
func (c *Chain) Select(values ...string) *Chain {
	if len(values) == 0 {
		return c.fail(invalidArg("select", "no values"))
	}
	return c.push(&flow.SelectAction{Values: values})
}

// As stores the current subject as @name.
func (c *Chain) As(name string) *Chain {
	name = strings.TrimPrefix(name, flow.AliasPrefix)
	if name == "" {
		return c.fail(invalidArg("as", "empty alias name"))
	}
	return c.push(&flow.AliasAction{Name: name})
}

// Should records an assertion described by a BDD phrase.
func (c *Chain) Should(phrase string, args ...interface{}) *Chain {
	a, err := assertion(phrase, args)
	if err != nil {
		return c.fail(err)
	}
	return c.push(a)
}

// And is Should.
func (c *Chain) And(phrase string, args ...interface{}) *Chain { return c.Should(phrase, args...) }

func assertion(phrase string, args []interface{}) (*flow.AssertionAction, error) {
	p, err := ParsePhrase(phrase)
	if err != nil {
		return nil, err
	}
	a := &flow.AssertionAction{Name: p.AssertionName(), Negation: p.Negation}
	command := "should(" + phrase + ")"

	switch p.Name {
	case "length":
		if len(args) < 1 {
			return nil, invalidArg(command, "missing length")
		}
		n, ok := toInt(args[0])
		if !ok {
			return nil, invalidArg(command, fmt.Sprintf("length must be a number, got %v", args[0]))
		}
		a.Value = n
	case "text", "class", "value", "include", "equal":
		if len(args) < 1 {
			return nil, invalidArg(command, "missing expected value")
		}
		a.Value = args[0]
	case "attr":
		if len(args) < 1 {
			return nil, invalidArg(command, "missing attribute name")
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, invalidArg(command, "attribute name must be a string")
		}
		a.Attribute = name
		if len(args) > 1 {
			a.Expected, a.HasExpected = args[1], true
		}
	case "property":
		if len(args) < 1 {
			return nil, invalidArg(command, "missing property name")
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, invalidArg(command, "property name must be a string")
		}
		a.Value = name
		if len(args) > 1 {
			a.Expected, a.HasExpected = args[1], true
		}
	}
	return a, nil
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
	case float32:
		if n == float32(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
