package suite

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/devicelab-dev/cyrunner/pkg/core"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
)

const todoYAML = `
name: todo app
tags: [smoke]
baseUrl: http://localhost:3000
beforeEach:
  - visit: /
tests:
  - name: adds an item
    steps:
      - - get: .new-todo
        - type: "milk{enter}"
      - - get: .todo-list li
        - should: [have.length, 1]
  - name: toggles
    tags: [toggle]
    steps:
      - - contains: [li, milk]
        - find: .toggle
        - click
      - - get: .todo-list li
        - first
        - should: [have.class, completed]
  - name: later
    skip: true
`

func TestParse_Todo(t *testing.T) {
	tests, err := Parse([]byte(todoYAML), "todo.yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(tests) != 3 {
		t.Fatalf("len(tests) = %d, want 3", len(tests))
	}

	adds := tests[0]
	if adds.Title() != "todo app > adds an item" {
		t.Errorf("Title() = %q", adds.Title())
	}
	if adds.BuildErr() != nil {
		t.Fatalf("BuildErr() = %v", adds.BuildErr())
	}
	nav := adds.Hooks[0].Actions[0].(*flow.NavigateAction)
	if nav.URL != "http://localhost:3000/" {
		t.Errorf("hook URL = %q", nav.URL)
	}

	var types []flow.ActionType
	for _, a := range adds.Actions {
		types = append(types, a.Type())
	}
	want := []flow.ActionType{
		flow.ActionLocator, flow.ActionFill, flow.ActionKeyboard,
		flow.ActionLocator, flow.ActionAssertion,
	}
	if !reflect.DeepEqual(types, want) {
		t.Errorf("action types = %v, want %v", types, want)
	}

	toggles := tests[1]
	if !reflect.DeepEqual(toggles.Tags, []string{"smoke", "toggle"}) {
		t.Errorf("tags = %v", toggles.Tags)
	}
	click, ok := toggles.Actions[1].(*flow.ClickAction)
	if !ok || click.Target == nil {
		t.Errorf("find(.toggle).click should collapse into one click, got %T", toggles.Actions[1])
	}

	if !tests[2].Skip {
		t.Error("skip: true should produce a skipped test")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
		line    int
	}{
		{"empty", "", "empty test file", 1},
		{"no tests", "name: x\n", "no tests defined", 1},
		{"no name", "tests:\n  - steps:\n      - visit: /\n", "test has no name", 2},
		{"no steps", "tests:\n  - name: a\n", `test "a" has no steps`, 2},
		{"unknown command", "tests:\n  - name: a\n    steps:\n      - hover: x\n", "unknown command: hover", 4},
		{"two commands", "tests:\n  - name: a\n    steps:\n      - {visit: /, get: a}\n", "exactly one command", 4},
		{"needs subject", "tests:\n  - name: a\n    steps:\n      - click\n", "click cannot start a chain", 4},
		{"bad yaml", "tests: [", "invalid YAML", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "t.yaml")
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Parse() error = %v, want *ParseError", err)
			}
			if !strings.Contains(pe.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want %q", pe.Message, tt.wantMsg)
			}
			if pe.Line != tt.line {
				t.Errorf("Line = %d, want %d", pe.Line, tt.line)
			}
		})
	}
}

func TestParse_ArgumentErrorsBecomeBuildErrors(t *testing.T) {
	src := "tests:\n  - name: a\n    steps:\n      - - get: input\n        - type: \"\"\n"
	tests, err := Parse([]byte(src), "t.yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !errors.Is(tests[0].BuildErr(), core.ErrInvalidArgument) {
		t.Errorf("BuildErr() = %v, want invalid argument", tests[0].BuildErr())
	}
}

func TestParse_DefaultName(t *testing.T) {
	tests, err := Parse([]byte("tests:\n  - name: a\n    steps:\n      - visit: /\n"), "specs/login.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if got := tests[0].Title(); got != "login > a" {
		t.Errorf("Title() = %q, want %q", got, "login > a")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.yml")
	if err := os.WriteFile(path, []byte(todoYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	tests, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if tests[0].FilePath != path {
		t.Errorf("FilePath = %q, want %q", tests[0].FilePath, path)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile() expected error for missing file")
	}
}
