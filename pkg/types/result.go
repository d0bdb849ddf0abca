// Package types defines the value model shared by the formula engine.
//
// This package contains:
//   - Result: the evaluation result, a success value or a typed error
//   - ErrorKind: the closed set of error categories
//   - Error: positioned parse errors
//   - Coercion helpers: ToBool, ToNumber, ToText, ToTime
//   - Date serial conversion: TimeToSerial, SerialToTime
package types

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of evaluating a formula node: either a successful
// value or a typed error. The zero Result is a success with an absent value.
//
// Payloads are one of nil (absent), bool, int64, float64, string,
// time.Time, []any (sequence placeholder) or uuid.UUID (record reference).
type Result struct {
	kind    ErrorKind
	message string
	value   any
}

// Success returns a successful result carrying v. Go integer and float32
// payloads are widened to int64 and float64.
func Success(v any) Result {
	return Result{value: Normalize(v)}
}

// Failure returns a failed result of the given kind. ErrNone is not a
// failure kind and is replaced by ErrInvalidValue so that OK stays
// equivalent to Kind() == ErrNone.
func Failure(kind ErrorKind, message string) Result {
	if kind == ErrNone {
		kind = ErrInvalidValue
	}
	return Result{kind: kind, message: message}
}

// Failuref is Failure with a formatted message.
func Failuref(kind ErrorKind, format string, args ...any) Result {
	return Failure(kind, fmt.Sprintf(format, args...))
}

// OK reports whether the result is a success.
func (r Result) OK() bool {
	return r.kind == ErrNone
}

// Kind returns the error kind; ErrNone for successes.
func (r Result) Kind() ErrorKind {
	return r.kind
}

// Message returns the error message, if any.
func (r Result) Message() string {
	return r.message
}

// Value returns the payload. It is always nil for failures.
func (r Result) Value() any {
	return r.value
}

// IsAbsent reports whether the result succeeded without a payload.
func (r Result) IsAbsent() bool {
	return r.OK() && r.value == nil
}

// Equal reports whether both results succeeded and carry equal, non-absent
// payloads. Two absent payloads are never equal.
func (r Result) Equal(other Result) bool {
	if !r.OK() || !other.OK() {
		return false
	}
	return ValuesEqual(r.value, other.value)
}

// String renders the result for display. Failures render as their
// error token.
func (r Result) String() string {
	if !r.OK() {
		return r.kind.Token()
	}
	if r.value == nil {
		return ""
	}
	s, _ := ToText(r)
	return s
}

// GoString includes the error message, which String omits.
func (r Result) GoString() string {
	if !r.OK() {
		return fmt.Sprintf("%s(%s: %s)", r.kind.Token(), r.kind, r.message)
	}
	return fmt.Sprintf("%T(%v)", r.value, r.value)
}

// Err returns the failure as an *Error, or nil for successes.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return NewError(r.kind, r.message, -1)
}

// ValuesEqual compares two payloads. Absent payloads never compare equal.
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case uuid.UUID:
		bv, ok := b.(uuid.UUID)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		return ok && reflect.DeepEqual(av, bv)
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// Normalize widens Go numeric payloads to the canonical int64 and float64
// forms. Other values are returned unchanged.
func Normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}
