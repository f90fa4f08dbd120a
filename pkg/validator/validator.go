// Package validator discovers test files and loads them before execution.
// It parses every file upfront, builds every queue, and collects errors.
package validator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/match"

	"github.com/devicelab-dev/cyrunner/pkg/cy"
	"github.com/devicelab-dev/cyrunner/pkg/jsengine"
	"github.com/devicelab-dev/cyrunner/pkg/suite"
)

// DefaultSpecPattern selects test files inside directories.
var DefaultSpecPattern = []string{"**/*.cy.js", "**/*.cy.yaml", "**/*.cy.yml"}

// ValidationError represents a validation error with context.
type ValidationError struct {
	File    string
	Test    string // test title, empty for file-level errors
	Message string
}

func (e *ValidationError) Error() string {
	if e.Test != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Test, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Result contains the validation result.
type Result struct {
	// Files is the list of test file paths in discovery order.
	Files []string
	// Tests are the loaded tests after tag filtering, in file order.
	Tests []*suite.Test
	// Errors contains all validation errors found.
	Errors []error
}

// IsValid returns true if there are no validation errors.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Options configures discovery and loading.
type Options struct {
	SpecPattern []string
	IncludeTags []string
	ExcludeTags []string
	Env         map[string]interface{} // Cypress.env for JS files
	Cy          []cy.Option
}

// Validator validates test files.
type Validator struct {
	opts Options
}

// New creates a new Validator.
func New(opts Options) *Validator {
	if len(opts.SpecPattern) == 0 {
		opts.SpecPattern = DefaultSpecPattern
	}
	return &Validator{opts: opts}
}

// Validate loads files and directories. Directories are searched for files
// matching the specPattern globs; explicit files are always loaded.
func (v *Validator) Validate(ctx context.Context, paths ...string) *Result {
	result := &Result{}
	seen := make(map[string]bool)

	for _, path := range paths {
		files, err := v.discover(path)
		if err != nil {
			result.Errors = append(result.Errors, &ValidationError{File: path, Message: err.Error()})
			continue
		}
		for _, file := range files {
			if seen[file] {
				continue
			}
			seen[file] = true
			v.validateFile(ctx, file, result)
		}
	}
	return result
}

func (v *Validator) discover(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access: %v", err)
	}
	if !info.IsDir() {
		if !IsTestFile(path) {
			return nil, fmt.Errorf("not a test file (want .js, .yaml or .yml)")
		}
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && (d.Name() == "node_modules" || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		if v.matches(filepath.ToSlash(rel)) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %v", err)
	}
	sort.Strings(files)
	return files, nil
}

// matches reports whether rel matches a spec pattern. A leading **/ also
// matches files at the top level.
func (v *Validator) matches(rel string) bool {
	for _, pattern := range v.opts.SpecPattern {
		pattern = filepath.ToSlash(pattern)
		if match.Match(rel, pattern) {
			return true
		}
		if strings.HasPrefix(pattern, "**/") && match.Match(rel, strings.TrimPrefix(pattern, "**/")) {
			return true
		}
	}
	return false
}

func (v *Validator) validateFile(ctx context.Context, file string, result *Result) {
	tests, err := LoadFile(ctx, file, v.opts.Env, v.opts.Cy...)
	if err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			File:    file,
			Message: fmt.Sprintf("parse error: %v", err),
		})
		return
	}
	result.Files = append(result.Files, file)

	for _, t := range suite.Filter(tests, v.opts.IncludeTags, v.opts.ExcludeTags) {
		result.Tests = append(result.Tests, t)
		if t.Skip {
			continue
		}
		if err := t.BuildErr(); err != nil {
			result.Errors = append(result.Errors, &ValidationError{
				File:    file,
				Test:    t.Title(),
				Message: err.Error(),
			})
		}
	}
}

// IsTestFile reports whether path has a loadable extension.
func IsTestFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".yaml", ".yml":
		return true
	}
	return false
}

// LoadFile loads a test file by extension: JavaScript through the JS engine,
// YAML through the suite parser.
func LoadFile(ctx context.Context, path string, env map[string]interface{}, opts ...cy.Option) ([]*suite.Test, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js":
		return jsengine.LoadFile(ctx, path, env, opts...)
	case ".yaml", ".yml":
		return suite.LoadFile(path, opts...)
	default:
		return nil, fmt.Errorf("%s: unsupported test file type", path)
	}
}
