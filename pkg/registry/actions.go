package registry

import (
	"context"
	"net/url"
	"time"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
	"github.com/devicelab-dev/cyrunner/pkg/geometry"
)

// Actions returns the handlers for every non-assertion action type.
func Actions() *Registry {
	return New().
		Action(flow.ActionLocator, typed(resolveLocator)).
		Action(flow.ActionAlias, typed(alias)).
		Action(flow.ActionSubject, typed(wrap)).
		Action(flow.ActionHandle, typed(handle)).
		Action(flow.ActionTitle, typed(title)).
		Action(flow.ActionLocation, typed(location)).
		Action(flow.ActionIts, typed(its)).
		Action(flow.ActionNavigate, typed(navigate)).
		Action(flow.ActionFill, typed(fill)).
		Action(flow.ActionClear, typed(clearInput)).
		Action(flow.ActionCheck, typed(check)).
		Action(flow.ActionClick, typed(click)).
		Action(flow.ActionKeyboard, typed(keyboard)).
		Action(flow.ActionSelect, typed(selectOption)).
		Action(flow.ActionScrollIntoView, typed(scrollIntoView)).
		Action(flow.ActionScrollTo, typed(scrollTo)).
		Action(flow.ActionDispatchEvent, typed(dispatchEvent)).
		Action(flow.ActionBlur, typed(blur)).
		Action(flow.ActionFocus, typed(focus)).
		Action(flow.ActionCookieClear, typed(cookieClear)).
		Action(flow.ActionCookieGet, typed(cookieGet)).
		Action(flow.ActionCookieSet, typed(cookieSet)).
		Action(flow.ActionPause, typed(pause)).
		Action(flow.ActionWait, typed(wait))
}

// ============================================
// Subject producers
// ============================================

func alias(_ context.Context, a *flow.AliasAction, s core.Subject, _ core.Driver, aliases core.AliasMap) (core.Subject, error) {
	aliases[a.Name] = s
	return s, nil
}

func wrap(ctx context.Context, a *flow.SubjectAction, s core.Subject, _ core.Driver, _ core.AliasMap) (core.Subject, error) {
	if fn, ok := a.Value.(flow.Deferred); ok {
		v, err := fn(ctx)
		if err != nil {
			return s, err
		}
		return core.ValueSubject(v), nil
	}
	return core.ValueSubject(a.Value), nil
}

func handle(ctx context.Context, a *flow.HandleAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	var expr string
	switch a.Global {
	case "window":
		expr = "window"
	case "document":
		expr = "window.document"
	default:
		return s, core.ErrInvalidArgument.WithMessagef("unknown global name %q", a.Global)
	}
	h, err := drv.EvaluateHandle(ctx, expr)
	if err != nil {
		return s, driverErr("evaluate "+expr, err)
	}
	return core.HandleSubject(h), nil
}

func title(ctx context.Context, _ *flow.TitleAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	t, err := drv.Title(ctx)
	if err != nil {
		return s, driverErr("title", err)
	}
	return core.ValueSubject(t), nil
}

// locationKeys are the fields of a browser location object.
var locationKeys = []string{"hash", "host", "hostname", "href", "origin", "pathname", "port", "protocol", "search"}

func location(_ context.Context, a *flow.LocationAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	fields, err := locationFields(drv.URL())
	if err != nil {
		return s, err
	}
	if a.Key == "" {
		obj := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			obj[k] = v
		}
		return core.ValueSubject(obj), nil
	}
	v, ok := fields[a.Key]
	if !ok {
		return s, core.ErrInvalidArgument.
			WithMessagef("unknown location key %q", a.Key).
			WithDetails(map[string]interface{}{"keys": locationKeys})
	}
	return core.ValueSubject(v), nil
}

// locationFields splits a URL the way window.location does.
func locationFields(raw string) (map[string]string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, core.ErrDriver.WithMessagef("current URL %q is not valid", raw).WithCause(err)
	}
	if u.Host != "" && u.Path == "" {
		u.Path = "/"
	}
	fields := map[string]string{
		"hash":     "",
		"host":     u.Host,
		"hostname": u.Hostname(),
		"href":     u.String(),
		"origin":   "null",
		"pathname": u.EscapedPath(),
		"port":     u.Port(),
		"protocol": u.Scheme + ":",
		"search":   "",
	}
	if u.Fragment != "" {
		fields["hash"] = "#" + u.EscapedFragment()
	}
	if u.RawQuery != "" {
		fields["search"] = "?" + u.RawQuery
	}
	if u.Host != "" {
		fields["origin"] = u.Scheme + "://" + u.Host
	}
	return fields, nil
}

func its(ctx context.Context, a *flow.ItsAction, s core.Subject, _ core.Driver, _ core.AliasMap) (core.Subject, error) {
	if s.Kind() == core.KindLocator && a.Path == "length" {
		n, err := s.Locator().Count(ctx)
		if err != nil {
			return s, driverErr("count", err)
		}
		return core.ValueSubject(n), nil
	}
	v, err := s.RequireValue("its")
	if err != nil {
		return s, err
	}
	res, ok, err := lookup(v, a.Path)
	if err != nil {
		return s, err
	}
	if !ok {
		return s, core.ErrPropertyMissing.
			WithMessagef("its: property %q does not exist", a.Path).
			WithDetails(map[string]interface{}{"path": a.Path})
	}
	return core.ValueSubject(res), nil
}

// ============================================
// Navigation & Interaction
// ============================================

func navigate(ctx context.Context, a *flow.NavigateAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	if err := drv.Navigate(ctx, a.URL); err != nil {
		return s, driverErr("navigate "+a.URL, err)
	}
	return s, nil
}

func fill(ctx context.Context, a *flow.FillAction, s core.Subject, _ core.Driver, _ core.AliasMap) (core.Subject, error) {
	loc, err := s.RequireLocator("fill")
	if err != nil {
		return s, err
	}
	if a.Append {
		if err := loc.Type(ctx, a.Value); err != nil {
			return s, driverErr("type", err)
		}
		return s, nil
	}
	if err := loc.Fill(ctx, a.Value); err != nil {
		return s, driverErr("fill", err)
	}
	return s, nil
}

func clearInput(ctx context.Context, _ *flow.ClearAction, s core.Subject, _ core.Driver, _ core.AliasMap) (core.Subject, error) {
	loc, err := s.RequireLocator("clear")
	if err != nil {
		return s, err
	}
	if err := loc.Clear(ctx); err != nil {
		return s, driverErr("clear", err)
	}
	return s, nil
}

func check(ctx context.Context, a *flow.CheckAction, s core.Subject, drv core.Driver, aliases core.AliasMap) (core.Subject, error) {
	s, err := target(ctx, a.Target, s, drv, aliases)
	if err != nil {
		return s, err
	}
	loc, err := s.RequireLocator("check")
	if err != nil {
		return s, err
	}
	err = eachElement(ctx, loc, func(el core.Locator) error {
		if err := el.SetChecked(ctx, a.Checked); err != nil {
			return driverErr("check", err)
		}
		return nil
	})
	return s, err
}

func click(ctx context.Context, a *flow.ClickAction, s core.Subject, drv core.Driver, aliases core.AliasMap) (core.Subject, error) {
	s, err := target(ctx, a.Target, s, drv, aliases)
	if err != nil {
		return s, err
	}
	loc, err := s.RequireLocator("click")
	if err != nil {
		return s, err
	}

	opts := core.ClickOptions{
		Button:    a.Button,
		Double:    a.Double,
		Force:     a.Force,
		Modifiers: a.Modifiers,
	}
	one := func(el core.Locator) error {
		o := opts
		if a.Position != nil {
			size, err := el.Size(ctx)
			if err != nil {
				return driverErr("bounding box", err)
			}
			off, err := geometry.Resolve(*a.Position, size)
			if err != nil {
				return err
			}
			o.Position = &off
		}
		if err := el.Click(ctx, o); err != nil {
			return driverErr("click", err)
		}
		return nil
	}

	if a.Multiple {
		return s, eachElement(ctx, loc, one)
	}
	return s, one(loc)
}

func keyboard(ctx context.Context, a *flow.KeyboardAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	if err := drv.PressKey(ctx, a.Key); err != nil {
		return s, driverErr("press "+a.Key, err)
	}
	return s, nil
}

func selectOption(ctx context.Context, a *flow.SelectAction, s core.Subject, _ core.Driver, _ core.AliasMap) (core.Subject, error) {
	loc, err := s.RequireLocator("select")
	if err != nil {
		return s, err
	}
	if _, err := loc.SelectOption(ctx, a.Values); err != nil {
		return s, driverErr("select", err)
	}
	return s, nil
}

func scrollIntoView(ctx context.Context, _ *flow.ScrollIntoViewAction, s core.Subject, _ core.Driver, _ core.AliasMap) (core.Subject, error) {
	loc, err := s.RequireLocator("scrollIntoView")
	if err != nil {
		return s, err
	}
	if err := loc.ScrollIntoView(ctx); err != nil {
		return s, driverErr("scrollIntoView", err)
	}
	return s, nil
}

// scrollTo scrolls the document when there is no subject, otherwise the
// subject element.
func scrollTo(ctx context.Context, a *flow.ScrollToAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	var (
		extent func(context.Context) (core.Extent, error)
		scroll func(context.Context, core.Offset) error
	)
	if s.IsNull() {
		extent, scroll = drv.ScrollExtent, drv.ScrollTo
	} else {
		loc, err := s.RequireLocator("scrollTo")
		if err != nil {
			return s, err
		}
		extent, scroll = loc.ScrollExtent, loc.ScrollTo
	}

	e, err := extent(ctx)
	if err != nil {
		return s, driverErr("scroll extent", err)
	}
	off, err := geometry.Resolve(a.Position, e)
	if err != nil {
		return s, err
	}
	if err := scroll(ctx, off); err != nil {
		return s, driverErr("scrollTo", err)
	}
	return s, nil
}

func dispatchEvent(ctx context.Context, a *flow.DispatchEventAction, s core.Subject, _ core.Driver, _ core.AliasMap) (core.Subject, error) {
	loc, err := s.RequireLocator("trigger")
	if err != nil {
		return s, err
	}
	if err := loc.DispatchEvent(ctx, a.Event); err != nil {
		return s, driverErr("dispatch "+a.Event, err)
	}
	return s, nil
}

func blur(ctx context.Context, _ *flow.BlurAction, s core.Subject, _ core.Driver, _ core.AliasMap) (core.Subject, error) {
	loc, err := s.RequireLocator("blur")
	if err != nil {
		return s, err
	}
	if err := loc.Blur(ctx); err != nil {
		return s, driverErr("blur", err)
	}
	return s, nil
}

func focus(ctx context.Context, _ *flow.FocusAction, s core.Subject, _ core.Driver, _ core.AliasMap) (core.Subject, error) {
	loc, err := s.RequireLocator("focus")
	if err != nil {
		return s, err
	}
	if err := loc.Focus(ctx); err != nil {
		return s, driverErr("focus", err)
	}
	return s, nil
}

// ============================================
// Cookies
// ============================================

func cookieClear(ctx context.Context, a *flow.CookieClearAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	if err := drv.ClearCookies(ctx, core.CookieFilter{Name: a.Name, Domain: a.Domain}); err != nil {
		return s, driverErr("clear cookies", err)
	}
	return s, nil
}

func cookieGet(ctx context.Context, a *flow.CookieGetAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	cookies, err := drv.Cookies(ctx)
	if err != nil {
		return s, driverErr("cookies", err)
	}
	if a.Multiple {
		return core.ValueSubject(cookies), nil
	}
	for _, c := range cookies {
		if c.Name == a.Name {
			return core.ValueSubject(c), nil
		}
	}
	return core.ValueSubject(nil), nil
}

func cookieSet(ctx context.Context, a *flow.CookieSetAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	c := a.Cookie
	if c.Domain == flow.CurrentDomain {
		u, err := url.Parse(drv.URL())
		if err != nil || u.Hostname() == "" {
			return s, core.ErrInvalidArgument.
				WithMessagef("setCookie: cannot derive a domain from %q", drv.URL())
		}
		c.Domain = "." + u.Hostname()
	}
	if err := drv.AddCookies(ctx, c); err != nil {
		return s, driverErr("set cookie "+c.Name, err)
	}
	return s, nil
}

// ============================================
// Timing
// ============================================

func pause(ctx context.Context, _ *flow.PauseAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	if err := drv.Pause(ctx); err != nil {
		return s, driverErr("pause", err)
	}
	return s, nil
}

func wait(ctx context.Context, a *flow.WaitAction, s core.Subject, drv core.Driver, _ core.AliasMap) (core.Subject, error) {
	if err := drv.Wait(ctx, time.Duration(a.Ms)*time.Millisecond); err != nil {
		return s, driverErr("wait", err)
	}
	return s, nil
}
