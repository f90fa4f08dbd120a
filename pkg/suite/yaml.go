package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/cyrunner/pkg/cy"
)

// ParseError represents a parsing error with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// fileSpec is the layout of a YAML test file.
type fileSpec struct {
	Name       string      `yaml:"name"`
	Tags       []string    `yaml:"tags"`
	BaseURL    string      `yaml:"baseUrl"`
	BeforeEach []yaml.Node `yaml:"beforeEach"`
	Tests      []testSpec  `yaml:"tests"`
}

type testSpec struct {
	Name  string      `yaml:"name"`
	Tags  []string    `yaml:"tags"`
	Skip  bool        `yaml:"skip"`
	Steps []yaml.Node `yaml:"steps"`
}

// call is one command invocation read from YAML.
type call struct {
	name string
	args []interface{}
}

// statement is a chain started off cy.
type statement []call

// LoadFile parses a YAML test file.
func LoadFile(path string, opts ...cy.Option) ([]*Test, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is a user-provided test file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path, opts...)
}

// Parse parses YAML test content. A step is either a single-command map,
// which starts a new chain off cy, or a list of commands forming one chain:
//
//	steps:
//	  - visit: /
//	  - - get: .new-todo
//	    - type: "milk{enter}"
//	  - - get: .todo-list li
//	    - should: [have.length, 1]
//
// A list value is spread into the command's arguments.
func Parse(data []byte, sourcePath string, opts ...cy.Option) ([]*Test, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: sourcePath, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if len(doc.Content) == 0 {
		return nil, &ParseError{Path: sourcePath, Line: 1, Message: "empty test file"}
	}

	var spec fileSpec
	if err := doc.Content[0].Decode(&spec); err != nil {
		return nil, &ParseError{Path: sourcePath, Message: fmt.Sprintf("invalid test file: %v", err)}
	}
	if len(spec.Tests) == 0 {
		return nil, &ParseError{Path: sourcePath, Line: 1, Message: "no tests defined"}
	}

	hooks, err := parseSteps(spec.BeforeEach, sourcePath)
	if err != nil {
		return nil, err
	}
	tests := make([]struct {
		spec  testSpec
		stmts []statement
	}, len(spec.Tests))
	testNodes := findKey(doc.Content[0], "tests")
	for i, ts := range spec.Tests {
		line := 0
		if testNodes != nil && i < len(testNodes.Content) {
			line = testNodes.Content[i].Line
		}
		if strings.TrimSpace(ts.Name) == "" {
			return nil, &ParseError{Path: sourcePath, Line: line, Message: "test has no name"}
		}
		if len(ts.Steps) == 0 && !ts.Skip {
			return nil, &ParseError{Path: sourcePath, Line: line, Message: fmt.Sprintf("test %q has no steps", ts.Name)}
		}
		stmts, err := parseSteps(ts.Steps, sourcePath)
		if err != nil {
			return nil, err
		}
		tests[i].spec = ts
		tests[i].stmts = stmts
	}

	if spec.BaseURL != "" {
		opts = append(append([]cy.Option{}, opts...), cy.WithBaseURL(spec.BaseURL))
	}
	name := spec.Name
	if name == "" {
		base := filepath.Base(sourcePath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	c := NewCollector(sourcePath, opts...)
	c.Describe(name, func() {
		if len(hooks) > 0 {
			c.BeforeEach(func(e *cy.Entry) { replay(e, hooks) })
		}
		for _, t := range tests {
			if t.spec.Skip {
				c.Skip(t.spec.Name, t.spec.Tags...)
				continue
			}
			stmts := t.stmts
			c.It(t.spec.Name, func(e *cy.Entry) { replay(e, stmts) }, t.spec.Tags...)
		}
	}, spec.Tags...)
	return c.Tests(), nil
}

// replay invokes the statements in order and stops at the first error;
// the queue keeps the error for the collector.
func replay(e *cy.Entry, stmts []statement) {
	for _, st := range stmts {
		ch, err := e.Invoke(st[0].name, st[0].args...)
		if err != nil {
			return
		}
		for _, c := range st[1:] {
			if ch, err = ch.Invoke(c.name, c.args...); err != nil {
				return
			}
		}
	}
}

func parseSteps(nodes []yaml.Node, path string) ([]statement, error) {
	var out []statement
	for i := range nodes {
		n := &nodes[i]
		var st statement
		switch n.Kind {
		case yaml.SequenceNode:
			if len(n.Content) == 0 {
				return nil, &ParseError{Path: path, Line: n.Line, Message: "empty command chain"}
			}
			for _, item := range n.Content {
				c, err := parseCall(item, path)
				if err != nil {
					return nil, err
				}
				st = append(st, c)
			}
		default:
			c, err := parseCall(n, path)
			if err != nil {
				return nil, err
			}
			st = statement{c}
		}
		if !cy.IsRootCommand(st[0].name) {
			return nil, &ParseError{Path: path, Line: n.Line, Message: fmt.Sprintf("%s cannot start a chain; it needs a subject", st[0].name)}
		}
		out = append(out, st)
	}
	return out, nil
}

// parseCall reads `name`, `name: arg` or `name: [args...]`.
func parseCall(n *yaml.Node, path string) (call, error) {
	var c call
	switch n.Kind {
	case yaml.ScalarNode:
		c.name = n.Value
	case yaml.MappingNode:
		if len(n.Content) != 2 {
			return c, &ParseError{Path: path, Line: n.Line, Message: "a step must contain exactly one command"}
		}
		c.name = n.Content[0].Value
		var v interface{}
		if err := n.Content[1].Decode(&v); err != nil {
			return c, &ParseError{Path: path, Line: n.Line, Message: fmt.Sprintf("%s: %v", c.name, err)}
		}
		switch a := v.(type) {
		case nil:
		case []interface{}:
			c.args = a
		default:
			c.args = []interface{}{a}
		}
	default:
		return c, &ParseError{Path: path, Line: n.Line, Message: "invalid step"}
	}
	if !isCommand(c.name) {
		return c, &ParseError{Path: path, Line: n.Line, Message: fmt.Sprintf("unknown command: %s", c.name)}
	}
	return c, nil
}

func isCommand(name string) bool {
	for _, known := range cy.Commands() {
		if known == name {
			return true
		}
	}
	return false
}

func findKey(n *yaml.Node, key string) *yaml.Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
