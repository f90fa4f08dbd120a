// Package geometry computes absolute offsets inside a scrollable or clickable
// area from symbolic compass positions or explicit x/y coordinates.
package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/devicelab-dev/cyrunner/pkg/core"
)

// Named positions
const (
	TopLeft     = "topLeft"
	Top         = "top"
	TopRight    = "topRight"
	Left        = "left"
	Center      = "center"
	Right       = "right"
	BottomLeft  = "bottomLeft"
	Bottom      = "bottom"
	BottomRight = "bottomRight"
)

// axis fractions: 0, half or full extent
type fraction struct{ top, left float64 }

var named = map[string]fraction{
	TopLeft:     {0, 0},
	Top:         {0, 0.5},
	TopRight:    {0, 1},
	Left:        {0.5, 0},
	Center:      {0.5, 0.5},
	Right:       {0.5, 1},
	BottomLeft:  {1, 0},
	Bottom:      {1, 0.5},
	BottomRight: {1, 1},
}

// IsNamed reports whether name is one of the nine compass positions.
func IsNamed(name string) bool {
	_, ok := named[name]
	return ok
}

// Coord is one axis of an explicit position: an absolute number or a
// percentage of the extent.
type Coord struct {
	Value   float64
	Percent bool
}

// Px returns an absolute coordinate.
func Px(v float64) Coord { return Coord{Value: v} }

// Pct returns a percentage coordinate.
func Pct(v float64) Coord { return Coord{Value: v, Percent: true} }

// ParseCoord accepts a finite number or a "N%" string.
func ParseCoord(v interface{}) (Coord, error) {
	c, err := parseCoord(v)
	if err != nil {
		return Coord{}, err
	}
	if math.IsNaN(c.Value) || math.IsInf(c.Value, 0) {
		return Coord{}, core.ErrUnknownPosition.WithMessagef("unknown position %v", v)
	}
	return c, nil
}

func parseCoord(v interface{}) (Coord, error) {
	switch t := v.(type) {
	case int:
		return Px(float64(t)), nil
	case int64:
		return Px(float64(t)), nil
	case float64:
		return Px(t), nil
	case float32:
		return Px(float64(t)), nil
	case Coord:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if strings.HasSuffix(s, "%") {
			n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
			if err != nil {
				return Coord{}, core.ErrUnknownPosition.WithMessagef("unknown position %q", t)
			}
			return Pct(n), nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Coord{}, core.ErrUnknownPosition.WithMessagef("unknown position %q", t)
		}
		return Px(n), nil
	default:
		return Coord{}, core.ErrUnknownPosition.WithMessagef("unknown position %v", v)
	}
}

func (c Coord) resolve(extent float64) float64 {
	if c.Percent {
		return extent / 100 * c.Value
	}
	return c.Value
}

// String renders the coordinate the way it was written.
func (c Coord) String() string {
	s := strconv.FormatFloat(c.Value, 'f', -1, 64)
	if c.Percent {
		return s + "%"
	}
	return s
}

// MarshalJSON encodes percentages as strings and absolute values as numbers.
func (c Coord) MarshalJSON() ([]byte, error) {
	if c.Percent {
		return []byte(strconv.Quote(c.String())), nil
	}
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a number or a "N%" string.
func (c *Coord) UnmarshalJSON(data []byte) error {
	var v interface{}
	if s, err := strconv.Unquote(string(data)); err == nil {
		v = s
	} else {
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid coordinate %s", data)
		}
		v = n
	}
	parsed, err := ParseCoord(v)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Position is either a named compass position or an explicit x/y pair.
type Position struct {
	Name string `json:"name,omitempty"`
	X    *Coord `json:"x,omitempty"`
	Y    *Coord `json:"y,omitempty"`
}

// Named returns a symbolic position.
func Named(name string) Position { return Position{Name: name} }

// XY returns an explicit position.
func XY(x, y Coord) Position { return Position{X: &x, Y: &y} }

// String describes the position.
func (p Position) String() string {
	if p.Name != "" {
		return p.Name
	}
	if p.X == nil || p.Y == nil {
		return "<none>"
	}
	return fmt.Sprintf("{x: %s, y: %s}", p.X, p.Y)
}

// Resolve computes the absolute offset of p inside an area of size e.
func Resolve(p Position, e core.Extent) (core.Offset, error) {
	if p.Name != "" {
		f, ok := named[p.Name]
		if !ok {
			return core.Offset{}, core.ErrUnknownPosition.
				WithMessagef("unknown position %q", p.Name).
				WithDetails(map[string]interface{}{"position": p.Name})
		}
		return core.Offset{Top: e.Height * f.top, Left: e.Width * f.left}, nil
	}
	if p.X == nil || p.Y == nil {
		return core.Offset{}, core.ErrUnknownPosition.WithMessage("position needs a name or both x and y")
	}
	return core.Offset{Top: p.Y.resolve(e.Height), Left: p.X.resolve(e.Width)}, nil
}
