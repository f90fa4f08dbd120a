// Package flow holds the recorded command vocabulary: typed actions, selector
// steps and the queue a test body is recorded into.
package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/geometry"
)

// ActionType represents the type of action.
type ActionType string

// Action type constants.
const (
	// Subject producers
	ActionLocator  ActionType = "locator"
	ActionAlias    ActionType = "alias"
	ActionSubject  ActionType = "subject"
	ActionHandle   ActionType = "handle"
	ActionTitle    ActionType = "title"
	ActionLocation ActionType = "location"
	ActionIts      ActionType = "its"

	// Navigation & Interaction
	ActionNavigate       ActionType = "navigate"
	ActionFill           ActionType = "fill"
	ActionClear          ActionType = "clear"
	ActionCheck          ActionType = "check"
	ActionClick          ActionType = "click"
	ActionKeyboard       ActionType = "keyboard"
	ActionSelect         ActionType = "select"
	ActionScrollIntoView ActionType = "scrollIntoView"
	ActionScrollTo       ActionType = "scrollTo"
	ActionDispatchEvent  ActionType = "dispatchEvent"
	ActionBlur           ActionType = "blur"
	ActionFocus          ActionType = "focus"

	// Cookies
	ActionCookieClear ActionType = "cookie.clear"
	ActionCookieGet   ActionType = "cookie.get"
	ActionCookieSet   ActionType = "cookie.set"

	// Timing
	ActionPause ActionType = "pause"
	ActionWait  ActionType = "wait"

	// Assertions
	ActionAssertion ActionType = "assertion"
)

// Types lists every action type in declaration order.
func Types() []ActionType {
	return []ActionType{
		ActionLocator, ActionAlias, ActionSubject, ActionHandle, ActionTitle, ActionLocation, ActionIts,
		ActionNavigate, ActionFill, ActionClear, ActionCheck, ActionClick, ActionKeyboard, ActionSelect,
		ActionScrollIntoView, ActionScrollTo, ActionDispatchEvent, ActionBlur, ActionFocus,
		ActionCookieClear, ActionCookieGet, ActionCookieSet,
		ActionPause, ActionWait,
		ActionAssertion,
	}
}

// AssertionName discriminates assertion actions.
type AssertionName string

// Assertion names.
const (
	AssertLength   AssertionName = "dom.length"
	AssertText     AssertionName = "dom.text"
	AssertClass    AssertionName = "dom.class"
	AssertAttr     AssertionName = "dom.attr"
	AssertExist    AssertionName = "dom.exist"
	AssertValue    AssertionName = "dom.value"
	AssertChecked  AssertionName = "dom.checked"
	AssertVisible  AssertionName = "dom.visible"
	AssertInclude  AssertionName = "include"
	AssertProperty AssertionName = "property"
	AssertEmpty    AssertionName = "empty"
	AssertEqual    AssertionName = "equal"
	AssertNull     AssertionName = "null"
)

// AssertionNames lists every assertion name.
func AssertionNames() []AssertionName {
	return []AssertionName{
		AssertLength, AssertText, AssertClass, AssertAttr, AssertExist, AssertValue,
		AssertChecked, AssertVisible, AssertInclude, AssertProperty, AssertEmpty, AssertEqual, AssertNull,
	}
}

// Action is one recorded command. The set of implementations is closed:
// every concrete type lives in this file.
type Action interface {
	Type() ActionType
	Describe() string
	action()
}

// Deferred is a wrapped value computed when the action runs.
type Deferred func(ctx context.Context) (interface{}, error)

// ============================================
// Subject producers
// ============================================

// LocatorAction resolves a selector against the page or the current locator.
type LocatorAction struct {
	Selector Selector `json:"selector"`
	Root     bool     `json:"root"`
}

// AliasAction stores the current subject under a name.
type AliasAction struct {
	Name string `json:"name"`
}

// SubjectAction replaces the subject with a wrapped value.
type SubjectAction struct {
	Value interface{} `json:"value"`
}

// HandleAction replaces the subject with a handle to a page global.
type HandleAction struct {
	Global string `json:"global"`
}

// TitleAction yields the page title.
type TitleAction struct{}

// LocationAction yields the page location, or one of its keys.
type LocationAction struct {
	Key string `json:"key,omitempty"`
}

// ItsAction yields a property of the current value.
type ItsAction struct {
	Path string `json:"path"`
}

// ============================================
// Navigation & Interaction
// ============================================

// NavigateAction loads a URL.
type NavigateAction struct {
	URL string `json:"url"`
}

// FillAction fills an input. With Append set the value is typed after
// the current content instead of replacing it.
type FillAction struct {
	Value  string `json:"value"`
	Append bool   `json:"append,omitempty"`
}

// ClearAction clears an input.
type ClearAction struct{}

// CheckAction checks or unchecks every matched element.
// Target is set when the action absorbed the locator recorded before it.
type CheckAction struct {
	Checked bool           `json:"checked"`
	Target  *LocatorAction `json:"target,omitempty"`
}

// ClickAction clicks, double clicks or right clicks.
// Target is set when the action absorbed the locator recorded before it.
type ClickAction struct {
	Target    *LocatorAction     `json:"target,omitempty"`
	Position  *geometry.Position `json:"position,omitempty"`
	Button    string             `json:"button,omitempty"`
	Double    bool               `json:"double,omitempty"`
	Force     bool               `json:"force,omitempty"`
	Multiple  bool               `json:"multiple,omitempty"`
	Modifiers []string           `json:"modifiers,omitempty"`
}

// KeyboardAction presses a key.
type KeyboardAction struct {
	Key string `json:"key"`
}

// SelectAction selects options of a <select>.
type SelectAction struct {
	Values []string `json:"values"`
}

// ScrollIntoViewAction scrolls the element into view.
type ScrollIntoViewAction struct{}

// ScrollToAction scrolls the element, or the document when the subject is null.
type ScrollToAction struct {
	Position geometry.Position `json:"position"`
}

// DispatchEventAction dispatches a DOM event.
type DispatchEventAction struct {
	Event string `json:"event"`
}

// BlurAction blurs the element.
type BlurAction struct{}

// FocusAction focuses the element.
type FocusAction struct{}

// ============================================
// Cookies
// ============================================

// CookieClearAction clears cookies matching the filter.
type CookieClearAction struct {
	Name   string `json:"name,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// CookieGetAction yields one cookie by name, or all of them.
type CookieGetAction struct {
	Name     string `json:"name,omitempty"`
	Multiple bool   `json:"multiple,omitempty"`
}

// CookieSetAction sets a cookie. A domain of CurrentDomain resolves to the
// page's hostname.
type CookieSetAction struct {
	Cookie core.Cookie `json:"cookie"`
}

// CurrentDomain is replaced by "." + hostname when a cookie is set.
const CurrentDomain = "__CURRENT_DOMAIN__"

// ============================================
// Timing
// ============================================

// PauseAction pauses execution for interactive debugging.
type PauseAction struct{}

// WaitAction sleeps.
type WaitAction struct {
	Ms int `json:"ms"`
}

// ============================================
// Assertions
// ============================================

// AssertionAction checks the current subject.
type AssertionAction struct {
	Name     AssertionName `json:"name"`
	Negation bool          `json:"negation"`
	Value    interface{}   `json:"value,omitempty"`
	// Attribute is the attribute name for dom.attr.
	Attribute string `json:"attribute,omitempty"`
	// Expected is the optional second argument of dom.attr and property.
	Expected    interface{} `json:"expected,omitempty"`
	HasExpected bool        `json:"hasExpected,omitempty"`
}

// Type implementations

func (a *LocatorAction) Type() ActionType        { return ActionLocator }
func (a *AliasAction) Type() ActionType          { return ActionAlias }
func (a *SubjectAction) Type() ActionType        { return ActionSubject }
func (a *HandleAction) Type() ActionType         { return ActionHandle }
func (a *TitleAction) Type() ActionType          { return ActionTitle }
func (a *LocationAction) Type() ActionType       { return ActionLocation }
func (a *ItsAction) Type() ActionType            { return ActionIts }
func (a *NavigateAction) Type() ActionType       { return ActionNavigate }
func (a *FillAction) Type() ActionType           { return ActionFill }
func (a *ClearAction) Type() ActionType          { return ActionClear }
func (a *CheckAction) Type() ActionType          { return ActionCheck }
func (a *ClickAction) Type() ActionType          { return ActionClick }
func (a *KeyboardAction) Type() ActionType       { return ActionKeyboard }
func (a *SelectAction) Type() ActionType         { return ActionSelect }
func (a *ScrollIntoViewAction) Type() ActionType { return ActionScrollIntoView }
func (a *ScrollToAction) Type() ActionType       { return ActionScrollTo }
func (a *DispatchEventAction) Type() ActionType  { return ActionDispatchEvent }
func (a *BlurAction) Type() ActionType           { return ActionBlur }
func (a *FocusAction) Type() ActionType          { return ActionFocus }
func (a *CookieClearAction) Type() ActionType    { return ActionCookieClear }
func (a *CookieGetAction) Type() ActionType      { return ActionCookieGet }
func (a *CookieSetAction) Type() ActionType      { return ActionCookieSet }
func (a *PauseAction) Type() ActionType          { return ActionPause }
func (a *WaitAction) Type() ActionType           { return ActionWait }
func (a *AssertionAction) Type() ActionType      { return ActionAssertion }

func (*LocatorAction) action()        {}
func (*AliasAction) action()          {}
func (*SubjectAction) action()        {}
func (*HandleAction) action()         {}
func (*TitleAction) action()          {}
func (*LocationAction) action()       {}
func (*ItsAction) action()            {}
func (*NavigateAction) action()       {}
func (*FillAction) action()           {}
func (*ClearAction) action()          {}
func (*CheckAction) action()          {}
func (*ClickAction) action()          {}
func (*KeyboardAction) action()       {}
func (*SelectAction) action()         {}
func (*ScrollIntoViewAction) action() {}
func (*ScrollToAction) action()       {}
func (*DispatchEventAction) action()  {}
func (*BlurAction) action()           {}
func (*FocusAction) action()          {}
func (*CookieClearAction) action()    {}
func (*CookieGetAction) action()      {}
func (*CookieSetAction) action()      {}
func (*PauseAction) action()          {}
func (*WaitAction) action()           {}
func (*AssertionAction) action()      {}

// Describe implementations

func (a *LocatorAction) Describe() string {
	if a.Root {
		return fmt.Sprintf("get %s", a.Selector)
	}
	return fmt.Sprintf("locate %s", a.Selector)
}

func (a *AliasAction) Describe() string { return "as @" + a.Name }

func (a *SubjectAction) Describe() string {
	if _, ok := a.Value.(Deferred); ok {
		return "wrap <deferred>"
	}
	return fmt.Sprintf("wrap %v", a.Value)
}

func (a *HandleAction) Describe() string { return a.Global }
func (a *TitleAction) Describe() string  { return "title" }

func (a *LocationAction) Describe() string {
	if a.Key != "" {
		return "location " + a.Key
	}
	return "location"
}

func (a *ItsAction) Describe() string      { return "its " + a.Path }
func (a *NavigateAction) Describe() string { return "visit " + a.URL }
func (a *FillAction) Describe() string {
	if a.Append {
		return fmt.Sprintf("type %q (append)", a.Value)
	}
	return fmt.Sprintf("type %q", a.Value)
}
func (a *ClearAction) Describe() string    { return "clear" }

func (a *CheckAction) Describe() string {
	verb := "check"
	if !a.Checked {
		verb = "uncheck"
	}
	if a.Target != nil {
		return fmt.Sprintf("%s %s", verb, a.Target.Selector)
	}
	return verb
}

func (a *ClickAction) Describe() string {
	verb := "click"
	switch {
	case a.Double:
		verb = "dblclick"
	case a.Button == core.ButtonRight:
		verb = "rightclick"
	}
	parts := []string{verb}
	if a.Target != nil {
		parts = append(parts, a.Target.Selector.String())
	}
	if a.Position != nil {
		parts = append(parts, "at "+a.Position.String())
	}
	if len(a.Modifiers) > 0 {
		parts = append(parts, "with "+strings.Join(a.Modifiers, "+"))
	}
	return strings.Join(parts, " ")
}

func (a *KeyboardAction) Describe() string       { return "press " + a.Key }
func (a *SelectAction) Describe() string         { return "select " + strings.Join(a.Values, ", ") }
func (a *ScrollIntoViewAction) Describe() string { return "scrollIntoView" }
func (a *ScrollToAction) Describe() string       { return "scrollTo " + a.Position.String() }
func (a *DispatchEventAction) Describe() string  { return "trigger " + a.Event }
func (a *BlurAction) Describe() string           { return "blur" }
func (a *FocusAction) Describe() string          { return "focus" }

func (a *CookieClearAction) Describe() string {
	if a.Name != "" {
		return "clearCookie " + a.Name
	}
	return "clearCookies"
}

func (a *CookieGetAction) Describe() string {
	if a.Multiple {
		return "getCookies"
	}
	return "getCookie " + a.Name
}

func (a *CookieSetAction) Describe() string { return "setCookie " + a.Cookie.Name }
func (a *PauseAction) Describe() string     { return "pause" }
func (a *WaitAction) Describe() string      { return fmt.Sprintf("wait %dms", a.Ms) }

func (a *AssertionAction) Describe() string {
	var b strings.Builder
	b.WriteString("should ")
	if a.Negation {
		b.WriteString("not ")
	}
	b.WriteString(string(a.Name))
	if a.Attribute != "" {
		fmt.Fprintf(&b, " %s", a.Attribute)
	}
	if a.Value != nil {
		fmt.Fprintf(&b, " %v", a.Value)
	}
	if a.HasExpected {
		fmt.Fprintf(&b, " %v", a.Expected)
	}
	return b.String()
}
