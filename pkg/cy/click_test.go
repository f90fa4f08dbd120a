package cy

import (
	"errors"
	"reflect"
	"testing"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
	"github.com/devicelab-dev/cyrunner/pkg/geometry"
)

func position(p geometry.Position) *geometry.Position { return &p }

func TestNormalizeClick(t *testing.T) {
	tests := []struct {
		name string
		kind clickKind
		args []interface{}
		want *flow.ClickAction
	}{
		{
			name: "no args",
			kind: singleClick,
			want: &flow.ClickAction{},
		},
		{
			name: "coordinates",
			kind: singleClick,
			args: []interface{}{10, 20.5},
			want: &flow.ClickAction{Position: position(geometry.XY(geometry.Px(10), geometry.Px(20.5)))},
		},
		{
			name: "named position with options",
			kind: singleClick,
			args: []interface{}{ClickOptions{Force: true}, "topRight"},
			want: &flow.ClickAction{Position: position(geometry.Named(geometry.TopRight)), Force: true},
		},
		{
			name: "options map",
			kind: singleClick,
			args: []interface{}{map[string]interface{}{"multiple": true, "shiftKey": true, "ctrlKey": true, "timeout": 100}},
			want: &flow.ClickAction{Multiple: true, Modifiers: []string{core.ModifierControl, core.ModifierShift}},
		},
		{
			name: "double",
			kind: doubleClick,
			args: []interface{}{&ClickOptions{MetaKey: true}},
			want: &flow.ClickAction{Double: true, Modifiers: []string{core.ModifierMeta}},
		},
		{
			name: "right",
			kind: rightClick,
			args: []interface{}{"center"},
			want: &flow.ClickAction{Button: core.ButtonRight, Position: position(geometry.Named(geometry.Center))},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeClick(tt.kind, tt.args)
			if err != nil {
				t.Fatalf("normalizeClick() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeClick()=%+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeClick_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []interface{}
		wantErr error
	}{
		{"unknown position", []interface{}{"middle"}, core.ErrUnknownPosition},
		{"single coordinate", []interface{}{10}, core.ErrInvalidArgument},
		{"position and coordinates", []interface{}{"top", 1, 2}, core.ErrInvalidArgument},
		{"non-boolean flag", []interface{}{map[string]interface{}{"force": "yes"}}, core.ErrInvalidArgument},
		{"unsupported type", []interface{}{[]int{1}}, core.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := normalizeClick(singleClick, tt.args); !errors.Is(err, tt.wantErr) {
				t.Errorf("normalizeClick() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
