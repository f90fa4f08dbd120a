package core

import (
	"errors"
	"testing"
)

type stubHandle struct{}

func (stubHandle) Dispose() error { return nil }

func TestSubject_Kinds(t *testing.T) {
	tests := []struct {
		name    string
		subject Subject
		kind    SubjectKind
		null    bool
	}{
		{"zero", Subject{}, KindValue, true},
		{"null", NullSubject(), KindValue, true},
		{"value", ValueSubject("hello"), KindValue, false},
		{"falsy value", ValueSubject(0), KindValue, false},
		{"handle", HandleSubject(stubHandle{}), KindHandle, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.subject.Kind(); got != tt.kind {
				t.Errorf("Kind() = %s, want %s", got, tt.kind)
			}
			if got := tt.subject.IsNull(); got != tt.null {
				t.Errorf("IsNull() = %v, want %v", got, tt.null)
			}
		})
	}
}

func TestSubject_RequireLocator(t *testing.T) {
	_, err := ValueSubject("x").RequireLocator("fill")
	if !errors.Is(err, ErrWrongSubject) {
		t.Fatalf("RequireLocator() error = %v, want ErrWrongSubject", err)
	}

	_, err = HandleSubject(stubHandle{}).RequireLocator("click")
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("RequireLocator() error = %v, want *ExecutionError", err)
	}
	if execErr.Details["actual"] != "handle" {
		t.Errorf("Details[actual] = %v, want handle", execErr.Details["actual"])
	}
}

func TestSubject_RequireValue(t *testing.T) {
	v, err := ValueSubject(42).RequireValue("equal")
	if err != nil || v != 42 {
		t.Errorf("RequireValue() = %v, %v", v, err)
	}
	if _, err := HandleSubject(stubHandle{}).RequireValue("equal"); !errors.Is(err, ErrWrongSubject) {
		t.Errorf("RequireValue() error = %v, want ErrWrongSubject", err)
	}
}

func TestSubject_String(t *testing.T) {
	if got := NullSubject().String(); got != "value(null)" {
		t.Errorf("String() = %q", got)
	}
	if got := ValueSubject("a").String(); got != "value(a)" {
		t.Errorf("String() = %q", got)
	}
}

func TestSubjectKind_String(t *testing.T) {
	tests := []struct {
		kind SubjectKind
		want string
	}{
		{KindValue, "value"},
		{KindLocator, "locator"},
		{KindHandle, "handle"},
		{SubjectKind(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("SubjectKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestCookieFilter_Match(t *testing.T) {
	c := Cookie{Name: "session", Domain: ".example.com"}

	tests := []struct {
		filter CookieFilter
		want   bool
	}{
		{CookieFilter{}, true},
		{CookieFilter{Name: "session"}, true},
		{CookieFilter{Name: "other"}, false},
		{CookieFilter{Domain: ".example.com"}, true},
		{CookieFilter{Name: "session", Domain: "example.org"}, false},
	}
	for _, tt := range tests {
		if got := tt.filter.Match(c); got != tt.want {
			t.Errorf("%+v.Match() = %v, want %v", tt.filter, got, tt.want)
		}
	}
}
