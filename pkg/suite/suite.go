// Package suite collects tests and beforeEach hooks. Bodies run once, at
// registration, against a fresh command queue; only the recorded actions
// are kept for execution.
package suite

import (
	"strings"

	"github.com/devicelab-dev/cyrunner/pkg/cy"
	"github.com/devicelab-dev/cyrunner/pkg/flow"
)

// Hook is a recorded beforeEach body.
type Hook struct {
	Title   string // describe path the hook belongs to
	Actions []flow.Action
	Err     error // build error
}

// Test is a recorded it body plus the hooks that run before it.
type Test struct {
	Name     string
	Path     []string // enclosing describe titles, outermost first
	Tags     []string
	FilePath string
	Skip     bool

	Hooks   []*Hook // outermost first
	Actions []flow.Action
	Err     error // build error; the test fails without running
}

// Title joins the describe path and the test name.
func (t *Test) Title() string {
	return strings.Join(append(append([]string{}, t.Path...), t.Name), " > ")
}

// BuildErr returns the first build error of the test or its hooks.
func (t *Test) BuildErr() error {
	for _, h := range t.Hooks {
		if h.Err != nil {
			return h.Err
		}
	}
	return t.Err
}

// StepCount is the number of recorded actions including hooks.
func (t *Test) StepCount() int {
	n := len(t.Actions)
	for _, h := range t.Hooks {
		n += len(h.Actions)
	}
	return n
}

// HasTag reports whether the test carries tag.
func (t *Test) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

type block struct {
	name   string
	parent *block
	tags   []string
	hooks  []*Hook
}

func (b *block) path() []string {
	var out []string
	for cur := b; cur != nil && cur.parent != nil; cur = cur.parent {
		out = append([]string{cur.name}, out...)
	}
	return out
}

type entry struct {
	test  *Test
	block *block
}

// Collector records tests for one source file. It is the injection point
// test files register through; it holds no global state.
type Collector struct {
	file    string
	opts    []cy.Option
	root    *block
	cur     *block
	entries []entry
}

// NewCollector returns a collector for tests read from file.
func NewCollector(file string, opts ...cy.Option) *Collector {
	root := &block{}
	return &Collector{file: file, opts: opts, root: root, cur: root}
}

// Tag adds tags to every test of the current block.
func (c *Collector) Tag(tags ...string) {
	c.cur.tags = append(c.cur.tags, tags...)
}

// Describe groups the tests and hooks registered by body.
func (c *Collector) Describe(name string, body func(), tags ...string) {
	b := &block{name: name, parent: c.cur, tags: tags}
	c.cur = b
	defer func() { c.cur = b.parent }()
	body()
}

// BeforeEach records body as a hook of the current block. Hooks apply to
// every test in the block, including tests registered before the hook.
func (c *Collector) BeforeEach(body func(cy *cy.Entry)) {
	actions, err := cy.BuildQueue(body, c.opts...)
	c.cur.hooks = append(c.cur.hooks, &Hook{
		Title:   strings.Join(c.cur.path(), " > "),
		Actions: actions,
		Err:     err,
	})
}

// It records body as a test of the current block.
func (c *Collector) It(name string, body func(cy *cy.Entry), tags ...string) *Test {
	actions, err := cy.BuildQueue(body, c.opts...)
	t := &Test{
		Name:     name,
		Path:     c.cur.path(),
		Tags:     tags,
		FilePath: c.file,
		Actions:  actions,
		Err:      err,
	}
	c.entries = append(c.entries, entry{test: t, block: c.cur})
	return t
}

// Skip registers a test that is reported but never run.
func (c *Collector) Skip(name string, tags ...string) *Test {
	t := &Test{
		Name:     name,
		Path:     c.cur.path(),
		Tags:     tags,
		FilePath: c.file,
		Skip:     true,
	}
	c.entries = append(c.entries, entry{test: t, block: c.cur})
	return t
}

// Tests returns the registered tests in registration order with their
// hooks and inherited tags resolved.
func (c *Collector) Tests() []*Test {
	out := make([]*Test, 0, len(c.entries))
	for _, e := range c.entries {
		var chain []*block
		for b := e.block; b != nil; b = b.parent {
			chain = append([]*block{b}, chain...)
		}
		var hooks []*Hook
		var tags []string
		for _, b := range chain {
			hooks = append(hooks, b.hooks...)
			tags = append(tags, b.tags...)
		}
		e.test.Hooks = hooks
		e.test.Tags = dedupe(append(tags, e.test.Tags...))
		out = append(out, e.test)
	}
	return out
}

func dedupe(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := tags[:0]
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// ShouldInclude applies include and exclude tag filters to a test.
func ShouldInclude(t *Test, includeTags, excludeTags []string) bool {
	if len(includeTags) > 0 {
		hasTag := false
		for _, include := range includeTags {
			if t.HasTag(include) {
				hasTag = true
				break
			}
		}
		if !hasTag {
			return false
		}
	}

	for _, exclude := range excludeTags {
		if t.HasTag(exclude) {
			return false
		}
	}
	return true
}

// Filter returns the tests passing the tag filters.
func Filter(tests []*Test, includeTags, excludeTags []string) []*Test {
	var out []*Test
	for _, t := range tests {
		if ShouldInclude(t, includeTags, excludeTags) {
			out = append(out, t)
		}
	}
	return out
}
