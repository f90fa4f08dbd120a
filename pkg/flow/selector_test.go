package flow

import (
	"encoding/json"
	"testing"
)

func TestSelectorItem_Alias(t *testing.T) {
	tests := []struct {
		name  string
		item  SelectorItem
		alias string
		ok    bool
	}{
		{"alias", Query("@todos"), "todos", true},
		{"css", Query(".todo"), "", false},
		{"contains with at", Contains("@todos", false), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alias, ok := tt.item.Alias()
			if alias != tt.alias || ok != tt.ok {
				t.Errorf("Alias()=(%q, %v), want (%q, %v)", alias, ok, tt.alias, tt.ok)
			}
		})
	}
}

func TestSelectorItem_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		item     SelectorItem
		expected string
	}{
		{"query", Query(".input"), `".input"`},
		{"first", First(), `{"modifier":"first"}`},
		{"nth negative", Nth(-1), `{"modifier":"nth","value":-1}`},
		{"nth zero", Nth(0), `{"modifier":"nth","value":0}`},
		{"contains exact", Contains("Buy milk", true), `{"modifier":"contains","value":"Buy milk","exact":true}`},
		{"parents filtered", Traverse(ModParents, "form"), `{"modifier":"parents","value":"form"}`},
		{"parent", Traverse(ModParent, ""), `{"modifier":"parent"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.item)
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			if string(data) != tt.expected {
				t.Errorf("Marshal()=%s, want %s", data, tt.expected)
			}

			var back SelectorItem
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			if back != tt.item {
				t.Errorf("Unmarshal()=%+v, want %+v", back, tt.item)
			}
		})
	}
}

func TestSelectorItem_UnmarshalJSON_NthString(t *testing.T) {
	var item SelectorItem
	if err := json.Unmarshal([]byte(`{"modifier":"nth","value":"2"}`), &item); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if item != Nth(2) {
		t.Errorf("Unmarshal()=%+v, want nth(2)", item)
	}

	if err := json.Unmarshal([]byte(`{"modifier":"nth","value":"two"}`), &item); err == nil {
		t.Error("Unmarshal() should reject a non-numeric nth index")
	}
}

func TestSelector_String(t *testing.T) {
	s := Selector{Query("label"), Nth(2), Contains("Name", false), HasText("Ada", true)}
	if got := s.String(); got != `[label nth(2) contains("Name") hasText("Ada", exact)]` {
		t.Errorf("String()=%q", got)
	}
}
