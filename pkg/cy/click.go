package cy

import (
	"fmt"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
	"github.com/devicelab-dev/cyrunner/pkg/geometry"
)

// ClickOptions are the option-object flags of the click family.
type ClickOptions struct {
	Force    bool
	Multiple bool
	CtrlKey  bool
	AltKey   bool
	ShiftKey bool
	MetaKey  bool
}

type clickKind int

const (
	singleClick clickKind = iota
	doubleClick
	rightClick
)

func (k clickKind) String() string {
	switch k {
	case doubleClick:
		return "dblclick"
	case rightClick:
		return "rightclick"
	default:
		return "click"
	}
}

// normalizeClick turns the heterogeneous, order-independent arguments of a
// click-family command into one payload: an x/y number pair, a named
// position, ClickOptions or an options map.
func normalizeClick(kind clickKind, args []interface{}) (*flow.ClickAction, error) {
	a := &flow.ClickAction{}
	switch kind {
	case doubleClick:
		a.Double = true
	case rightClick:
		a.Button = core.ButtonRight
	}

	var opts ClickOptions
	var coords []geometry.Coord
	name := ""

	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
		case int, int64, float32, float64:
			c, err := geometry.ParseCoord(v)
			if err != nil {
				return nil, err
			}
			coords = append(coords, c)
		case string:
			if !geometry.IsNamed(v) {
				return nil, core.ErrUnknownPosition.
					WithMessagef("%s: unknown position %q", kind, v).
					WithDetails(map[string]interface{}{"position": v})
			}
			if name != "" {
				return nil, invalidArg(kind.String(), "more than one position")
			}
			name = v
		case ClickOptions:
			opts = mergeClickOptions(opts, v)
		case *ClickOptions:
			if v != nil {
				opts = mergeClickOptions(opts, *v)
			}
		case map[string]interface{}:
			m, err := clickOptionsFromMap(kind, v)
			if err != nil {
				return nil, err
			}
			opts = mergeClickOptions(opts, m)
		default:
			return nil, invalidArg(kind.String(), fmt.Sprintf("unsupported argument %v (%T)", arg, arg))
		}
	}

	switch {
	case len(coords) != 0 && len(coords) != 2:
		return nil, invalidArg(kind.String(), "x and y must be given together")
	case len(coords) == 2 && name != "":
		return nil, invalidArg(kind.String(), "both a position and coordinates given")
	case len(coords) == 2:
		pos := geometry.XY(coords[0], coords[1])
		a.Position = &pos
	case name != "":
		pos := geometry.Named(name)
		a.Position = &pos
	}

	a.Force = opts.Force
	a.Multiple = opts.Multiple
	if opts.CtrlKey {
		a.Modifiers = append(a.Modifiers, core.ModifierControl)
	}
	if opts.AltKey {
		a.Modifiers = append(a.Modifiers, core.ModifierAlt)
	}
	if opts.ShiftKey {
		a.Modifiers = append(a.Modifiers, core.ModifierShift)
	}
	if opts.MetaKey {
		a.Modifiers = append(a.Modifiers, core.ModifierMeta)
	}
	return a, nil
}

func mergeClickOptions(a, b ClickOptions) ClickOptions {
	return ClickOptions{
		Force:    a.Force || b.Force,
		Multiple: a.Multiple || b.Multiple,
		CtrlKey:  a.CtrlKey || b.CtrlKey,
		AltKey:   a.AltKey || b.AltKey,
		ShiftKey: a.ShiftKey || b.ShiftKey,
		MetaKey:  a.MetaKey || b.MetaKey,
	}
}

func clickOptionsFromMap(kind clickKind, m map[string]interface{}) (ClickOptions, error) {
	var opts ClickOptions
	for key, raw := range m {
		b, ok := raw.(bool)
		if !ok {
			// Unknown non-boolean keys such as timeout are accepted and ignored.
			if isClickFlag(key) {
				return opts, invalidArg(kind.String(), fmt.Sprintf("option %s must be a boolean", key))
			}
			continue
		}
		switch key {
		case "force":
			opts.Force = b
		case "multiple":
			opts.Multiple = b
		case "ctrlKey", "controlKey":
			opts.CtrlKey = b
		case "altKey", "optionKey":
			opts.AltKey = b
		case "shiftKey":
			opts.ShiftKey = b
		case "metaKey", "commandKey", "cmdKey":
			opts.MetaKey = b
		}
	}
	return opts, nil
}

func isClickFlag(key string) bool {
	switch key {
	case "force", "multiple", "ctrlKey", "controlKey", "altKey", "optionKey", "shiftKey", "metaKey", "commandKey", "cmdKey":
		return true
	}
	return false
}

func invalidArg(command, msg string) *core.ExecutionError {
	return core.ErrInvalidArgument.
		WithMessagef("%s: %s", command, msg).
		WithDetails(map[string]interface{}{"command": command})
}
