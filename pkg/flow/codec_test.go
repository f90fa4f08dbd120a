package flow

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/geometry"
)

func TestMarshalAction(t *testing.T) {
	tests := []struct {
		name     string
		action   Action
		expected string
	}{
		{"navigate", &NavigateAction{URL: "https://example.cypress.io"}, `{"type":"navigate","url":"https://example.cypress.io"}`},
		{"locator", &LocatorAction{Selector: Selector{Query(".input")}}, `{"type":"locator","selector":[".input"],"root":false}`},
		{"fill", &FillAction{Value: "hi"}, `{"type":"fill","value":"hi"}`},
		{"fill append", &FillAction{Value: "cd", Append: true}, `{"type":"fill","value":"cd","append":true}`},
		{"empty payload", &ClearAction{}, `{"type":"clear"}`},
		{"assertion", &AssertionAction{Name: AssertLength, Value: 2}, `{"type":"assertion","name":"dom.length","negation":false,"value":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalAction(tt.action)
			if err != nil {
				t.Fatalf("MarshalAction() error: %v", err)
			}
			if string(data) != tt.expected {
				t.Errorf("MarshalAction()=%s, want %s", data, tt.expected)
			}
		})
	}
}

func TestEncodeDecode_Queue(t *testing.T) {
	pos := geometry.XY(geometry.Pct(50), geometry.Px(10))
	actions := []Action{
		&NavigateAction{URL: "/todo"},
		&LocatorAction{Selector: Selector{Query("label")}, Root: true},
		&LocatorAction{Selector: Selector{Nth(-1)}},
		&ClickAction{
			Target:    &LocatorAction{Selector: Selector{Contains("Save", true)}},
			Position:  &pos,
			Modifiers: []string{core.ModifierControl},
			Multiple:  true,
		},
		&AliasAction{Name: "saved"},
		&ScrollToAction{Position: geometry.Named(geometry.Bottom)},
		&CookieSetAction{Cookie: core.Cookie{Name: "session", Value: "abc", Domain: CurrentDomain}},
		&AssertionAction{Name: AssertAttr, Attribute: "href", Expected: "/a", HasExpected: true},
	}

	data, err := Encode(actions)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if !reflect.DeepEqual(decoded, actions) {
		t.Errorf("Decode(Encode()) mismatch\n got: %s\nwant: %s", mustEncode(t, decoded), data)
	}
}

func TestEncode_DeferredFails(t *testing.T) {
	deferred := Deferred(nil)
	_, err := Encode([]Action{&SubjectAction{Value: deferred}})
	if err == nil || !strings.Contains(err.Error(), "deferred") {
		t.Errorf("Encode() error = %v, want deferred error", err)
	}
}

func TestDecode_UnknownType(t *testing.T) {
	_, err := Decode([]byte(`[{"type":"teleport"}]`))
	if !errors.Is(err, core.ErrUnknownCommand) || !strings.Contains(err.Error(), "teleport") {
		t.Errorf("Decode() error = %v, want unknown command", err)
	}
	if _, err := New("teleport"); !errors.Is(err, core.ErrUnknownCommand) {
		t.Errorf("New() error = %v, want unknown command", err)
	}
}

func mustEncode(t *testing.T, actions []Action) string {
	t.Helper()
	data, err := Encode(actions)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	return string(data)
}
