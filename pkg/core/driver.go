package core

import (
	"context"
	"time"
)

// Scope is anything a selector can be resolved against: the page document
// or a previously resolved locator. Resolution is lazy; nothing is queried
// until an operation runs on the returned locator.
type Scope interface {
	// Locator returns the elements matching a CSS-like selector inside the scope.
	Locator(selector string) Locator

	// GetByText returns the elements whose text matches, either exactly
	// or as a substring.
	GetByText(text string, exact bool) Locator
}

// Axis names a jQuery-style traversal from a locator.
type Axis string

// Axis values
const (
	AxisParent   Axis = "parent"
	AxisParents  Axis = "parents"
	AxisChildren Axis = "children"
	AxisNext     Axis = "next"
	AxisPrev     Axis = "prev"
	AxisSiblings Axis = "siblings"
	AxisFilter   Axis = "filter"
	AxisNot      Axis = "not"
)

// Locator references zero or more elements of the driven page.
// Operations that act on a single element fail when the locator matches
// more than one (strict mode); callers fan out explicitly.
type Locator interface {
	Scope

	First() Locator
	Last() Locator
	// Nth selects the element at a non-negative index.
	Nth(index int) Locator
	// HasText keeps the matches whose text, descendants included, contains
	// text.
	HasText(text string, exact bool) Locator
	// Relative traverses along axis, optionally filtered by selector.
	Relative(axis Axis, selector string) Locator

	Count(ctx context.Context) (int, error)

	Fill(ctx context.Context, value string) error
	// Type enters text after the element's current value.
	Type(ctx context.Context, text string) error
	Clear(ctx context.Context) error
	SetChecked(ctx context.Context, checked bool) error
	Click(ctx context.Context, opts ClickOptions) error
	Focus(ctx context.Context) error
	Blur(ctx context.Context) error
	DispatchEvent(ctx context.Context, event string) error
	ScrollIntoView(ctx context.Context) error
	SelectOption(ctx context.Context, values []string) ([]string, error)

	// Size returns the element's rendered box size.
	Size(ctx context.Context) (Extent, error)
	// ScrollExtent returns scrollWidth-clientWidth and scrollHeight-clientHeight.
	ScrollExtent(ctx context.Context) (Extent, error)
	ScrollTo(ctx context.Context, offset Offset) error
}

// Handle is an opaque reference to a remote object such as window.
type Handle interface {
	Dispose() error
}

// LocatorExpectations are the driver's assertion primitives. Implementations
// may wait up to their configured timeout for the condition to hold.
type LocatorExpectations interface {
	// Not returns expectations with the condition inverted.
	Not() LocatorExpectations

	ToHaveCount(ctx context.Context, count int) error
	ToHaveText(ctx context.Context, text string) error
	ToContainText(ctx context.Context, text string) error
	// ToHaveClass matches the class attribute against a regular expression.
	ToHaveClass(ctx context.Context, pattern string) error
	// ToHaveAttribute checks presence, and the value when it is not nil.
	ToHaveAttribute(ctx context.Context, name string, value *string) error
	ToHaveValue(ctx context.Context, value string) error
	ToExist(ctx context.Context) error
	ToBeVisible(ctx context.Context) error
	ToBeEmpty(ctx context.Context) error
	ToBeChecked(ctx context.Context) error
}

// Driver is the browser capability set commands are replayed against.
// Implementations: playwright, mock.
type Driver interface {
	Scope

	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	URL() string

	// EvaluateHandle evaluates a page expression and keeps the result remote.
	EvaluateHandle(ctx context.Context, expression string) (Handle, error)
	// HasOwnProperty evaluates property existence on a remote object.
	HasOwnProperty(ctx context.Context, h Handle, name string) (bool, error)

	PressKey(ctx context.Context, key string) error

	Cookies(ctx context.Context) ([]Cookie, error)
	AddCookies(ctx context.Context, cookies ...Cookie) error
	ClearCookies(ctx context.Context, filter CookieFilter) error

	// ScrollExtent and ScrollTo act on the document's scrolling element.
	ScrollExtent(ctx context.Context) (Extent, error)
	ScrollTo(ctx context.Context, offset Offset) error

	Wait(ctx context.Context, d time.Duration) error
	Pause(ctx context.Context) error

	Expect(l Locator) LocatorExpectations
}

// Extent is the size of an area positions are resolved against.
type Extent struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Offset is an absolute position measured from the top-left corner.
type Offset struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// Mouse buttons
const (
	ButtonLeft  = "left"
	ButtonRight = "right"
)

// Modifier keys
const (
	ModifierControl = "Control"
	ModifierAlt     = "Alt"
	ModifierShift   = "Shift"
	ModifierMeta    = "Meta"
)

// ClickOptions configures a single click on one element.
type ClickOptions struct {
	Button    string   // left (default) or right
	Double    bool     // double click
	Force     bool     // skip actionability checks
	Modifiers []string // keys held during the click
	Position  *Offset  // relative to the element's top-left corner
}

// Cookie is a browser cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// CookieFilter selects cookies to clear. Empty fields match everything.
type CookieFilter struct {
	Name   string `json:"name,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// Match reports whether c passes the filter.
func (f CookieFilter) Match(c Cookie) bool {
	if f.Name != "" && f.Name != c.Name {
		return false
	}
	if f.Domain != "" && f.Domain != c.Domain {
		return false
	}
	return true
}
