package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandrolain/goformula/pkg/schema"
)

// Coercion helpers. Each reports success through its second return value;
// none of them panic. Failed results never coerce.

// ToBool coerces r to a boolean: native booleans as is, integers are true
// when non-zero, text is matched against the boolean-word table.
func ToBool(r Result) (bool, bool) {
	if !r.OK() {
		return false, false
	}
	switch v := r.value.(type) {
	case bool:
		return v, true
	case int64:
		return v != 0, true
	case string:
		return schema.ParseBool(v)
	default:
		return false, false
	}
}

// ToNumber coerces r to a float64: native numbers as is, text through a
// culture-invariant parse that accepts thousands separators.
func ToNumber(r Result) (float64, bool) {
	if !r.OK() {
		return 0, false
	}
	switch v := r.value.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case string:
		return ParseNumber(v)
	default:
		return 0, false
	}
}

// ParseNumber parses invariant-culture numeric text: an optional sign,
// digits with optional ',' thousands separators, an optional fraction and
// exponent. Non-finite values are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToText coerces r to text: native text as is, anything else in its
// default textual form. Absent values do not coerce.
func ToText(r Result) (string, bool) {
	if !r.OK() || r.value == nil {
		return "", false
	}
	return FormatValue(r.value), true
}

// FormatValue returns the default textual form of a payload.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format("2006-01-02")
		}
		return v.Format("2006-01-02 15:04:05")
	case uuid.UUID:
		return v.String()
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = FormatValue(Normalize(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

// ToTime coerces r to a timestamp: native timestamps as is, numbers as
// date serial values, text first through the exact date layouts and then
// as a date serial value.
func ToTime(r Result) (time.Time, bool) {
	if !r.OK() {
		return time.Time{}, false
	}
	switch v := r.value.(type) {
	case time.Time:
		return v, true
	case int64:
		return SerialToTime(float64(v))
	case float64:
		return SerialToTime(v)
	case string:
		if t, ok := schema.ParseDate(v); ok {
			return t, true
		}
		if f, ok := ParseNumber(v); ok {
			return SerialToTime(f)
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
