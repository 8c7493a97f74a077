// Package assert provides minimal test assertion helpers.
// Every helper takes a trailing message describing what was checked.
package assert

import (
	"cmp"
	"reflect"
	"strings"
	"testing"
)

// Equal fails the test if expected != actual (deep equality).
func Equal[T any](t *testing.T, expected, actual T, msg string) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// NotEqual fails the test if expected == actual (deep equality).
func NotEqual[T any](t *testing.T, expected, actual T, msg string) {
	t.Helper()
	if reflect.DeepEqual(expected, actual) {
		t.Errorf("%s: expected values to differ, both %v", msg, actual)
	}
}

// True fails the test if cond is false.
func True(t *testing.T, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Errorf("%s: expected true", msg)
	}
}

// False fails the test if cond is true.
func False(t *testing.T, cond bool, msg string) {
	t.Helper()
	if cond {
		t.Errorf("%s: expected false", msg)
	}
}

// Nil fails the test if v is non-nil.
func Nil(t *testing.T, v any, msg string) {
	t.Helper()
	if !isNil(v) {
		t.Errorf("%s: expected nil, got %v", msg, v)
	}
}

// NotNil fails the test if v is nil.
func NotNil(t *testing.T, v any, msg string) {
	t.Helper()
	if isNil(v) {
		t.Errorf("%s: expected non-nil", msg)
	}
}

// Len fails the test if the collection does not have the expected length.
func Len(t *testing.T, expected int, collection any, msg string) {
	t.Helper()
	rv := reflect.ValueOf(collection)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String, reflect.Chan:
		if rv.Len() != expected {
			t.Errorf("%s: expected length %d, got %d", msg, expected, rv.Len())
		}
	default:
		t.Errorf("%s: cannot take length of %T", msg, collection)
	}
}

// NoError fails the test if err is non-nil.
func NoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", msg, err)
	}
}

// Error fails the test if err is nil.
func Error(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected an error", msg)
	}
}

// Contains fails the test if s does not contain substr.
func Contains(t *testing.T, s, substr string, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: %q does not contain %q", msg, s, substr)
	}
}

// Greater fails the test unless a > b.
func Greater[T cmp.Ordered](t *testing.T, a, b T, msg string) {
	t.Helper()
	if !(a > b) {
		t.Errorf("%s: expected %v > %v", msg, a, b)
	}
}

// GreaterOrEqual fails the test unless a >= b.
func GreaterOrEqual[T cmp.Ordered](t *testing.T, a, b T, msg string) {
	t.Helper()
	if !(a >= b) {
		t.Errorf("%s: expected %v >= %v", msg, a, b)
	}
}

// Less fails the test unless a < b.
func Less[T cmp.Ordered](t *testing.T, a, b T, msg string) {
	t.Helper()
	if !(a < b) {
		t.Errorf("%s: expected %v < %v", msg, a, b)
	}
}

// LessOrEqual fails the test unless a <= b.
func LessOrEqual[T cmp.Ordered](t *testing.T, a, b T, msg string) {
	t.Helper()
	if !(a <= b) {
		t.Errorf("%s: expected %v <= %v", msg, a, b)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
