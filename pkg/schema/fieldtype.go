package schema

import (
	"strings"
	"time"
)

// FieldType is the declared type tag of a schema field.
type FieldType string

// Field types understood by the record store.
const (
	TypeText      FieldType = "text"
	TypeEmail     FieldType = "email"
	TypeURL       FieldType = "url"
	TypeInteger   FieldType = "integer"
	TypeNumber    FieldType = "number"
	TypeBoolean   FieldType = "boolean"
	TypeDate      FieldType = "date"
	TypeDateTime  FieldType = "datetime"
	TypeEnum      FieldType = "enum"
	TypeArray     FieldType = "array"
	TypeReference FieldType = "reference"
	TypeFormula   FieldType = "formula"
)

// Known reports whether t is one of the recognized field types.
func (t FieldType) Known() bool {
	switch t {
	case TypeText, TypeEmail, TypeURL, TypeInteger, TypeNumber, TypeBoolean,
		TypeDate, TypeDateTime, TypeEnum, TypeArray, TypeReference, TypeFormula:
		return true
	default:
		return false
	}
}

// booleanWords maps the lower-cased words accepted as booleans.
var booleanWords = map[string]bool{
	"true":  true,
	"false": false,
	"yes":   true,
	"no":    false,
	"on":    true,
	"off":   false,
	"1":     true,
	"0":     false,
}

// ParseBool matches s case-insensitively against the boolean-word table
// (yes/no, on/off, 1/0, true/false). Surrounding whitespace is ignored.
func ParseBool(s string) (value bool, ok bool) {
	value, ok = booleanWords[strings.ToLower(strings.TrimSpace(s))]
	return value, ok
}

// BooleanWords returns a copy of the boolean-word table.
func BooleanWords() map[string]bool {
	out := make(map[string]bool, len(booleanWords))
	for k, v := range booleanWords {
		out[k] = v
	}
	return out
}

// dateFormats lists the exact layouts accepted for date and datetime values,
// tried in order.
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.RFC3339,
	time.RFC3339Nano,
	"2006/01/02",
	"01/02/2006",
	"02 Jan 2006",
	"Jan 2, 2006",
}

// DateFormats returns the exact date layouts in the order they are tried.
func DateFormats() []string {
	out := make([]string, len(dateFormats))
	copy(out, dateFormats)
	return out
}

// ParseDate tries each exact date layout in turn. Layouts without a zone
// are interpreted as UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
