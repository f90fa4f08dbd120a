package flow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Modifier names a non-CSS selector step.
type Modifier string

// Selector modifiers.
const (
	ModFirst    Modifier = "first"
	ModLast     Modifier = "last"
	ModNth      Modifier = "nth"
	ModContains Modifier = "contains"
	ModHasText  Modifier = "hasText"

	// Traversals
	ModParent   Modifier = "parent"
	ModParents  Modifier = "parents"
	ModChildren Modifier = "children"
	ModNext     Modifier = "next"
	ModPrev     Modifier = "prev"
	ModSiblings Modifier = "siblings"
	ModFilter   Modifier = "filter"
	ModNot      Modifier = "not"
)

// AliasPrefix marks a selector that refers to an alias.
const AliasPrefix = "@"

// SelectorItem is one selector step: a plain query string or a modifier.
// Pure data structure; the registry decides how to resolve it.
type SelectorItem struct {
	Query    string   // CSS-like query, set when Modifier is empty
	Modifier Modifier // first, last, nth, contains or a traversal
	Index    int      // nth
	Value    string   // contains or hasText text, or traversal filter selector
	Exact    bool     // contains, hasText
}

// Query returns a plain query step.
func Query(selector string) SelectorItem { return SelectorItem{Query: selector} }

// First returns the first-match step.
func First() SelectorItem { return SelectorItem{Modifier: ModFirst} }

// Last returns the last-match step.
func Last() SelectorItem { return SelectorItem{Modifier: ModLast} }

// Nth returns the nth-match step; negative indexes count from the end.
func Nth(index int) SelectorItem { return SelectorItem{Modifier: ModNth, Index: index} }

// Contains returns a text filter step.
func Contains(text string, exact bool) SelectorItem {
	return SelectorItem{Modifier: ModContains, Value: text, Exact: exact}
}

// HasText returns a step keeping the current matches whose text contains
// text.
func HasText(text string, exact bool) SelectorItem {
	return SelectorItem{Modifier: ModHasText, Value: text, Exact: exact}
}

// Traverse returns a traversal step with an optional filter selector.
func Traverse(m Modifier, selector string) SelectorItem {
	return SelectorItem{Modifier: m, Value: selector}
}

// Alias returns the alias name when the step is an "@name" reference.
func (s SelectorItem) Alias() (string, bool) {
	if s.Modifier != "" || !strings.HasPrefix(s.Query, AliasPrefix) {
		return "", false
	}
	return strings.TrimPrefix(s.Query, AliasPrefix), true
}

// String describes the step.
func (s SelectorItem) String() string {
	switch s.Modifier {
	case "":
		return s.Query
	case ModNth:
		return fmt.Sprintf("nth(%d)", s.Index)
	case ModContains, ModHasText:
		if s.Exact {
			return fmt.Sprintf("%s(%q, exact)", s.Modifier, s.Value)
		}
		return fmt.Sprintf("%s(%q)", s.Modifier, s.Value)
	default:
		if s.Value != "" {
			return fmt.Sprintf("%s(%s)", s.Modifier, s.Value)
		}
		return string(s.Modifier) + "()"
	}
}

type selectorItemJSON struct {
	Modifier Modifier    `json:"modifier"`
	Value    interface{} `json:"value,omitempty"`
	Exact    bool        `json:"exact,omitempty"`
}

// MarshalJSON encodes plain queries as strings and modifiers as objects.
func (s SelectorItem) MarshalJSON() ([]byte, error) {
	if s.Modifier == "" {
		return json.Marshal(s.Query)
	}
	raw := selectorItemJSON{Modifier: s.Modifier, Exact: s.Exact}
	switch s.Modifier {
	case ModNth:
		raw.Value = s.Index
	default:
		if s.Value != "" {
			raw.Value = s.Value
		}
	}
	return json.Marshal(raw)
}

// UnmarshalJSON accepts either form produced by MarshalJSON.
func (s *SelectorItem) UnmarshalJSON(data []byte) error {
	var query string
	if err := json.Unmarshal(data, &query); err == nil {
		*s = Query(query)
		return nil
	}

	var raw selectorItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	item := SelectorItem{Modifier: raw.Modifier, Exact: raw.Exact}
	switch v := raw.Value.(type) {
	case nil:
	case float64:
		item.Index = int(v)
	case string:
		if raw.Modifier == ModNth {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("nth index %q: %w", v, err)
			}
			item.Index = n
		} else {
			item.Value = v
		}
	default:
		return fmt.Errorf("unsupported selector value %v", v)
	}
	*s = item
	return nil
}

// Selector is the list of steps a locator action resolves in order.
type Selector []SelectorItem

// String describes the selector.
func (s Selector) String() string {
	parts := make([]string, len(s))
	for i, item := range s {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
