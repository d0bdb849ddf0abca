package types

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultInvariant(t *testing.T) {
	t.Parallel()

	ok := Success("x")
	assert.True(t, ok.OK())
	assert.Equal(t, ErrNone, ok.Kind())
	assert.Equal(t, "x", ok.Value())

	for _, kind := range []ErrorKind{ErrInvalidFormula, ErrNotANumber, ErrDivisionByZero, ErrRecursion, ErrInvalidValue} {
		r := Failure(kind, "boom")
		assert.False(t, r.OK(), kind.String())
		assert.Equal(t, kind, r.Kind())
		assert.Equal(t, "boom", r.Message())
		assert.Nil(t, r.Value())
	}

	// ErrNone cannot be used to build a failure.
	r := Failure(ErrNone, "no")
	assert.False(t, r.OK())
	assert.Equal(t, ErrInvalidValue, r.Kind())

	var zero Result
	assert.True(t, zero.OK())
	assert.True(t, zero.IsAbsent())
}

func TestSuccessNormalizesNumbers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(3), Success(3).Value())
	assert.Equal(t, int64(3), Success(uint8(3)).Value())
	assert.Equal(t, float64(1.5), Success(float32(1.5)).Value())
}

func TestResultEqual(t *testing.T) {
	t.Parallel()

	day := time.Date(2025, 1, 26, 0, 0, 0, 0, time.UTC)
	id := uuid.New()

	tests := []struct {
		name string
		a, b Result
		want bool
	}{
		{"same text", Success("a"), Success("a"), true},
		{"different text", Success("a"), Success("b"), false},
		{"same int", Success(1), Success(int64(1)), true},
		{"int vs float", Success(1), Success(1.0), false},
		{"absent never equals absent", Success(nil), Success(nil), false},
		{"absent vs value", Success(nil), Success("a"), false},
		{"failures never equal", Failure(ErrInvalidValue, "x"), Failure(ErrInvalidValue, "x"), false},
		{"same instant in other zone", Success(day), Success(day.In(time.FixedZone("x", 3600))), true},
		{"same uuid", Success(id), Success(id), true},
		{"sequences", Success([]any{"a"}), Success([]any{"a"}), true},
		{"empty sequences", Success([]any{}), Success([]any{}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

func TestResultString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "#NAME?", Failure(ErrInvalidFormula, "").String())
	assert.Equal(t, "#NUM!", Failure(ErrNotANumber, "").String())
	assert.Equal(t, "#DIV/0!", Failure(ErrDivisionByZero, "").String())
	assert.Equal(t, "#CIRC!", Failure(ErrRecursion, "").String())
	assert.Equal(t, "#VALUE!", Failure(ErrInvalidValue, "").String())
	assert.Equal(t, "", Success(nil).String())
	assert.Equal(t, "1234567", Success(1234567.0).String())
	assert.Equal(t, "2025-01-26", Success(time.Date(2025, 1, 26, 0, 0, 0, 0, time.UTC)).String())
}

func TestResultErr(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Success(1).Err())

	err := Failuref(ErrInvalidValue, "bad %s", "date").Err()
	require.Error(t, err)
	var ferr *Error
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, ErrInvalidValue, ferr.Kind)
	assert.Equal(t, "bad date", ferr.Message)
	assert.Equal(t, "invalid value: bad date", err.Error())
}

func TestErrorFormatting(t *testing.T) {
	t.Parallel()

	cause := errors.New("cause")
	err := NewError(ErrInvalidFormula, "unexpected token", 4).WithToken(")").WithCause(cause)
	assert.Equal(t, "invalid formula at position 4: unexpected token", err.Error())
	assert.Equal(t, ")", err.Token)
	assert.ErrorIs(t, err, cause)

	r := err.Result()
	assert.Equal(t, ErrInvalidFormula, r.Kind())
}
