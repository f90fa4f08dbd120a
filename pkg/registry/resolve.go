package registry

import (
	"context"
	"errors"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
)

var traversalAxes = map[flow.Modifier]core.Axis{
	flow.ModParent:   core.AxisParent,
	flow.ModParents:  core.AxisParents,
	flow.ModChildren: core.AxisChildren,
	flow.ModNext:     core.AxisNext,
	flow.ModPrev:     core.AxisPrev,
	flow.ModSiblings: core.AxisSiblings,
	flow.ModFilter:   core.AxisFilter,
	flow.ModNot:      core.AxisNot,
}

// ResolveItem resolves one selector step against scope. Plain queries and
// contains work on any scope; positional, hasText and traversal steps need
// a locator.
func ResolveItem(ctx context.Context, scope core.Scope, item flow.SelectorItem) (core.Locator, error) {
	switch item.Modifier {
	case "":
		if name, ok := item.Alias(); ok {
			return nil, core.ErrInvalidArgument.
				WithMessagef("alias @%s must be the first selector step", name)
		}
		return scope.Locator(item.Query), nil
	case flow.ModContains:
		return scope.GetByText(item.Value, item.Exact), nil
	}

	parent, isLocator := scope.(core.Locator)
	axis, isTraversal := traversalAxes[item.Modifier]

	switch {
	case item.Modifier != flow.ModFirst && item.Modifier != flow.ModLast &&
		item.Modifier != flow.ModNth && item.Modifier != flow.ModHasText && !isTraversal:
		return nil, core.ErrUnknownModifier.
			WithMessagef("unknown selector modifier %q", item.Modifier).
			WithDetails(map[string]interface{}{"modifier": string(item.Modifier)})
	case !isLocator:
		return nil, core.WrongSubject(string(item.Modifier), core.KindLocator, core.KindValue)
	}

	switch item.Modifier {
	case flow.ModFirst:
		return parent.First(), nil
	case flow.ModLast:
		return parent.Last(), nil
	case flow.ModNth:
		return nth(ctx, parent, item.Index)
	case flow.ModHasText:
		return parent.HasText(item.Value, item.Exact), nil
	default:
		return parent.Relative(axis, item.Value), nil
	}
}

// nth maps a negative index to a position counted from the end of the
// parent's current match set. An index before the start matches nothing.
func nth(ctx context.Context, parent core.Locator, index int) (core.Locator, error) {
	if index >= 0 {
		return parent.Nth(index), nil
	}
	count, err := parent.Count(ctx)
	if err != nil {
		return nil, driverErr("count", err)
	}
	index += count
	if index < 0 {
		index = count
	}
	return parent.Nth(index), nil
}

// resolveLocator runs a locator action. An "@name" first step returns the
// captured subject; further steps resolve relative to it.
func resolveLocator(ctx context.Context, a *flow.LocatorAction, s core.Subject, drv core.Driver, aliases core.AliasMap) (core.Subject, error) {
	items := a.Selector
	if len(items) == 0 {
		return s, core.ErrInvalidArgument.WithMessage("locator has no selector")
	}

	var scope core.Scope
	if name, ok := items[0].Alias(); ok {
		captured, found := aliases[name]
		if !found {
			return s, core.ErrAliasNotFound.
				WithMessagef("alias @%s not found", name).
				WithDetails(map[string]interface{}{"alias": name})
		}
		if len(items) == 1 {
			return captured, nil
		}
		loc, err := captured.RequireLocator(flow.AliasPrefix + name)
		if err != nil {
			return s, err
		}
		scope, items = loc, items[1:]
	} else {
		switch {
		case a.Root || s.IsNull():
			scope = drv
		case s.Kind() == core.KindLocator:
			scope = s.Locator()
		default:
			return s, core.WrongSubject("locator", core.KindLocator, s.Kind())
		}
	}

	var loc core.Locator
	for _, item := range items {
		next, err := ResolveItem(ctx, scope, item)
		if err != nil {
			return s, err
		}
		loc, scope = next, next
	}
	return core.LocatorSubject(loc), nil
}

// target resolves the locator a click or check absorbed, if any.
func target(ctx context.Context, t *flow.LocatorAction, s core.Subject, drv core.Driver, aliases core.AliasMap) (core.Subject, error) {
	if t == nil {
		return s, nil
	}
	return resolveLocator(ctx, t, s, drv, aliases)
}

// driverErr keeps typed errors from the driver and wraps everything else.
func driverErr(op string, err error) error {
	var execErr *core.ExecutionError
	if errors.As(err, &execErr) {
		return err
	}
	return core.DriverError(op, err)
}
