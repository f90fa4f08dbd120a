package validator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devicelab-dev/cyrunner/pkg/core"
)

const todoYAML = `
name: todo
tags: [smoke]
tests:
  - name: adds
    steps:
      - visit: http://localhost:3000/
      - - get: .new-todo
        - type: milk
`

const todoJS = `
describe('todo js', () => {
  it('lists', { tags: ['wip'] }, () => {
    cy.visit(Cypress.env('url'))
    cy.get('li').should('have.length', 2)
  })
  it('broken', () => {
    cy.get('li').hover()
  })
})
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestValidate_SingleFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"todo.yaml": todoYAML})

	result := New(Options{}).Validate(context.Background(), filepath.Join(dir, "todo.yaml"))
	if !result.IsValid() {
		t.Errorf("expected valid result, got errors: %v", result.Errors)
	}
	if len(result.Files) != 1 || len(result.Tests) != 1 {
		t.Errorf("Files = %v, Tests = %d", result.Files, len(result.Tests))
	}
	if result.Tests[0].Title() != "todo > adds" {
		t.Errorf("Title() = %q", result.Tests[0].Title())
	}
}

func TestValidate_Directory(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"todo.cy.yaml":            todoYAML,
		"e2e/todo.cy.js":          todoJS,
		"cyrunner.yaml":           "driver: mock",
		"notes.txt":               "ignored",
		"node_modules/x/a.cy.js":  "throw new Error('should not load')",
		".cache/stale.cy.yaml":    "not: [valid",
		"e2e/helpers/util.js":     "ignored, does not match the pattern",
		"e2e/nested/deep.cy.yaml": todoYAML,
	})

	result := New(Options{Env: map[string]interface{}{"url": "http://localhost:3000"}}).
		Validate(context.Background(), dir)

	want := []string{
		filepath.Join(dir, "e2e", "nested", "deep.cy.yaml"),
		filepath.Join(dir, "e2e", "todo.cy.js"),
		filepath.Join(dir, "todo.cy.yaml"),
	}
	if strings.Join(result.Files, ",") != strings.Join(want, ",") {
		t.Errorf("Files = %v, want %v", result.Files, want)
	}
	if len(result.Tests) != 4 {
		t.Errorf("len(Tests) = %d, want 4", len(result.Tests))
	}

	// The broken JS test is the only error.
	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want 1", result.Errors)
	}
	var ve *ValidationError
	if !errors.As(result.Errors[0], &ve) || ve.Test != "todo js > broken" {
		t.Errorf("error = %v", result.Errors[0])
	}
}

func TestValidate_TagFiltering(t *testing.T) {
	dir := writeFiles(t, map[string]string{"todo.cy.yaml": todoYAML, "todo.cy.js": todoJS})

	tests := []struct {
		name    string
		include []string
		exclude []string
		want    int
	}{
		{"no filter", nil, nil, 3},
		{"include smoke", []string{"smoke"}, nil, 1},
		{"exclude wip", nil, []string{"wip"}, 2},
		{"include wip", []string{"wip"}, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New(Options{IncludeTags: tt.include, ExcludeTags: tt.exclude}).Validate(context.Background(), dir)
			if len(result.Tests) != tt.want {
				t.Errorf("len(Tests) = %d, want %d", len(result.Tests), tt.want)
			}
		})
	}
}

func TestValidate_CustomSpecPattern(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"cypress/e2e/a.yaml": todoYAML,
		"other/b.yaml":       todoYAML,
	})
	result := New(Options{SpecPattern: []string{"cypress/e2e/*.yaml"}}).Validate(context.Background(), dir)
	if len(result.Files) != 1 || !strings.HasSuffix(result.Files[0], filepath.Join("cypress", "e2e", "a.yaml")) {
		t.Errorf("Files = %v", result.Files)
	}
}

func TestValidate_Errors(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"bad.yaml":   "tests: [unclosed",
		"bad.cy.js":  "describe('x', () => { throw new Error('nope') })",
		"readme.txt": "not a test",
	})

	tests := []struct {
		name string
		path string
		want string
	}{
		{"invalid yaml", filepath.Join(dir, "bad.yaml"), "parse error"},
		{"js throws", filepath.Join(dir, "bad.cy.js"), "nope"},
		{"unsupported file", filepath.Join(dir, "readme.txt"), "not a test file"},
		{"missing", filepath.Join(dir, "missing.yaml"), "cannot access"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New(Options{}).Validate(context.Background(), tt.path)
			if result.IsValid() {
				t.Fatal("expected errors")
			}
			if !strings.Contains(result.Errors[0].Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", result.Errors[0], tt.want)
			}
		})
	}
}

func TestValidate_DuplicatePaths(t *testing.T) {
	dir := writeFiles(t, map[string]string{"todo.cy.yaml": todoYAML})
	file := filepath.Join(dir, "todo.cy.yaml")

	result := New(Options{}).Validate(context.Background(), dir, file)
	if len(result.Files) != 1 || len(result.Tests) != 1 {
		t.Errorf("Files = %v, Tests = %d; want each file once", result.Files, len(result.Tests))
	}
}

func TestValidate_EmptyDirectory(t *testing.T) {
	result := New(Options{}).Validate(context.Background(), t.TempDir())
	if !result.IsValid() || len(result.Files) != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestValidate_SkippedTestsNotBuilt(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"skip.cy.js": "it.skip('later', () => { cy.get('a').hover() })",
	})
	result := New(Options{}).Validate(context.Background(), dir)
	if !result.IsValid() {
		t.Errorf("Errors = %v, want none for skipped tests", result.Errors)
	}
	if len(result.Tests) != 1 || !result.Tests[0].Skip {
		t.Errorf("Tests = %+v", result.Tests)
	}
}

func TestLoadFile_BuildErrorCategory(t *testing.T) {
	dir := writeFiles(t, map[string]string{"t.cy.js": "it('t', () => { cy.visit(1) })"})
	tests, err := LoadFile(context.Background(), filepath.Join(dir, "t.cy.js"), nil)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if !errors.Is(tests[0].BuildErr(), core.ErrInvalidArgument) {
		t.Errorf("BuildErr() = %v, want invalid argument", tests[0].BuildErr())
	}
	if _, err := LoadFile(context.Background(), "x.txt", nil); err == nil {
		t.Error("LoadFile() expected error for unsupported extension")
	}
}

func TestIsTestFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.cy.js", true},
		{"a.YAML", true},
		{"a.yml", true},
		{"a.ts", false},
		{"a", false},
	}
	for _, tt := range tests {
		if got := IsTestFile(tt.path); got != tt.want {
			t.Errorf("IsTestFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{File: "a.yaml", Message: "boom"}
	if err.Error() != "a.yaml: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	err.Test = "x > y"
	if err.Error() != "a.yaml: x > y: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
}
