package core

import (
	"encoding/json"
	"fmt"
)

// SubjectKind discriminates the Subject union.
type SubjectKind int

const (
	KindValue   SubjectKind = iota // Plain data value, including nil
	KindLocator                    // Zero or more elements of the driven page
	KindHandle                     // Opaque remote object
)

// String returns the string representation of SubjectKind
func (k SubjectKind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindLocator:
		return "locator"
	case KindHandle:
		return "handle"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the kind by name.
func (k SubjectKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Subject is the value a command chain currently points at.
// The zero Subject is the null value every queue starts from.
type Subject struct {
	kind    SubjectKind
	locator Locator
	value   interface{}
	handle  Handle
}

// LocatorSubject wraps a locator.
func LocatorSubject(l Locator) Subject {
	return Subject{kind: KindLocator, locator: l}
}

// ValueSubject wraps a data value.
func ValueSubject(v interface{}) Subject {
	return Subject{kind: KindValue, value: v}
}

// HandleSubject wraps a remote object handle.
func HandleSubject(h Handle) Subject {
	return Subject{kind: KindHandle, handle: h}
}

// NullSubject is the subject before any command produced one.
func NullSubject() Subject {
	return Subject{kind: KindValue}
}

// Kind returns the union discriminant.
func (s Subject) Kind() SubjectKind { return s.kind }

// Locator returns the wrapped locator, or nil for other kinds.
func (s Subject) Locator() Locator { return s.locator }

// Value returns the wrapped value, or nil for other kinds.
func (s Subject) Value() interface{} { return s.value }

// Handle returns the wrapped handle, or nil for other kinds.
func (s Subject) Handle() Handle { return s.handle }

// IsNull reports whether the subject is the null value.
func (s Subject) IsNull() bool {
	return s.kind == KindValue && s.value == nil
}

// RequireLocator returns the locator or a wrong-subject error naming command.
func (s Subject) RequireLocator(command string) (Locator, error) {
	if s.kind != KindLocator {
		return nil, WrongSubject(command, KindLocator, s.kind)
	}
	return s.locator, nil
}

// RequireValue returns the value or a wrong-subject error naming command.
func (s Subject) RequireValue(command string) (interface{}, error) {
	if s.kind != KindValue {
		return nil, WrongSubject(command, KindValue, s.kind)
	}
	return s.value, nil
}

// String describes the subject for logs and reports.
func (s Subject) String() string {
	switch s.kind {
	case KindLocator:
		return fmt.Sprintf("locator(%v)", s.locator)
	case KindHandle:
		return fmt.Sprintf("handle(%v)", s.handle)
	default:
		if s.value == nil {
			return "value(null)"
		}
		return fmt.Sprintf("value(%v)", s.value)
	}
}

// AliasMap holds subjects captured with `as`, keyed by alias name.
type AliasMap map[string]Subject
