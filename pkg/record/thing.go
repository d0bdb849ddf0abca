// Package record stores schema-typed records ("things") and feeds them to
// the formula engine.
//
// A Thing holds the values of a schema's non-formula fields plus metadata
// (display name and timestamps). It implements evaluator.RecordSource, so
// formula fields are computed from it at read time and never stored.
package record

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sandrolain/goformula/pkg/schema"
	"github.com/sandrolain/goformula/pkg/types"
)

var (
	// ErrNotFound is returned when a thing does not exist in a store.
	ErrNotFound = errors.New("thing not found")
	// ErrUnknownField is returned when setting a field the schema does not
	// declare.
	ErrUnknownField = errors.New("unknown field")
	// ErrReadOnlyField is returned when setting a formula field.
	ErrReadOnlyField = errors.New("field is computed")
	// ErrInvalidProperty is returned when a value does not fit its field type.
	ErrInvalidProperty = errors.New("invalid property value")
	// ErrMissingRequired is returned by Validate for unset required fields.
	ErrMissingRequired = errors.New("missing required field")
)

// Thing is a record instance of a schema.
type Thing struct {
	ID         uuid.UUID
	SchemaName string
	Name       string
	Properties map[string]any
	Created    time.Time
	Accessed   time.Time
	Modified   time.Time
}

// New creates a thing of schema s with a fresh ID. Declared defaults are
// applied.
func New(s *schema.Schema, name string, now time.Time) (*Thing, error) {
	t := &Thing{
		ID:         uuid.New(),
		SchemaName: s.Name,
		Name:       name,
		Properties: make(map[string]any),
		Created:    now,
		Modified:   now,
	}
	for _, f := range s.Fields() {
		if f.Default == nil || f.Type == schema.TypeFormula {
			continue
		}
		v, err := Coerce(f, f.Default)
		if err != nil {
			return nil, fmt.Errorf("default of %q: %w", f.Name, err)
		}
		t.Properties[f.Name] = v
	}
	return t, nil
}

// Set converts raw to the type of the named field and stores it under the
// declared field name. A nil raw value unsets the field.
func (t *Thing) Set(s *schema.Schema, name string, raw any) error {
	f, ok := s.Field(name)
	if !ok {
		return fmt.Errorf("%w: %q in schema %q", ErrUnknownField, name, s.Name)
	}
	if f.Type == schema.TypeFormula {
		return fmt.Errorf("%w: %q", ErrReadOnlyField, f.Name)
	}
	if t.Properties == nil {
		t.Properties = make(map[string]any)
	}
	if raw == nil {
		delete(t.Properties, f.Name)
		return nil
	}
	v, err := Coerce(f, raw)
	if err != nil {
		return err
	}
	t.Properties[f.Name] = v
	return nil
}

// Validate reports the required fields that are not set.
func (t *Thing) Validate(s *schema.Schema) error {
	missing := s.Missing(func(name string) bool {
		_, ok := t.Property(name)
		return ok
	})
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}
	return nil
}

// Touch records a read at now.
func (t *Thing) Touch(now time.Time) {
	t.Accessed = now
}

// PropertyNames returns the names of the set properties, sorted.
func (t *Thing) PropertyNames() []string {
	names := make([]string, 0, len(t.Properties))
	for name := range t.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Property returns a set property, matching the name case-insensitively.
func (t *Thing) Property(name string) (any, bool) {
	if v, ok := t.Properties[name]; ok {
		return v, true
	}
	for k, v := range t.Properties {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// DisplayName returns the thing's name.
func (t *Thing) DisplayName() string { return t.Name }

// CreatedAt returns the creation time.
func (t *Thing) CreatedAt() time.Time { return t.Created }

// AccessedAt returns the last read time.
func (t *Thing) AccessedAt() time.Time { return t.Accessed }

// ModifiedAt returns the last write time.
func (t *Thing) ModifiedAt() time.Time { return t.Modified }

// Coerce converts raw to the canonical Go value of field f:
//
//	text, email, url, enum → string
//	integer                → int64
//	number                 → float64
//	boolean                → bool
//	date                   → time.Time at UTC midnight
//	datetime               → time.Time
//	array                  → []any
//	reference              → uuid.UUID
//
// Text input is parsed for the non-text types, so values read from the
// command line or from JSON can be passed as is.
func Coerce(f schema.Field, raw any) (any, error) {
	raw = types.Normalize(raw)
	v, ok := coerce(f, raw)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a valid %s for %q", ErrInvalidProperty, types.FormatValue(raw), f.Type, f.Name)
	}
	return v, nil
}

func coerce(f schema.Field, raw any) (any, bool) {
	switch f.Type {
	case schema.TypeText, schema.TypeEmail, schema.TypeURL:
		s, ok := raw.(string)
		if !ok {
			return types.FormatValue(raw), true
		}
		return s, true

	case schema.TypeEnum:
		s := types.FormatValue(raw)
		for _, opt := range f.Options {
			if strings.EqualFold(opt, s) {
				return opt, true
			}
		}
		return nil, false

	case schema.TypeInteger:
		switch v := raw.(type) {
		case int64:
			return v, true
		case float64:
			if v != math.Trunc(v) || math.Abs(v) > math.MaxInt64 {
				return nil, false
			}
			return int64(v), true
		case string:
			i, err := strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 10, 64)
			return i, err == nil
		}

	case schema.TypeNumber:
		n, ok := types.ToNumber(types.Success(raw))
		return n, ok

	case schema.TypeBoolean:
		b, ok := types.ToBool(types.Success(raw))
		return b, ok

	case schema.TypeDate:
		t, ok := types.ToTime(types.Success(raw))
		if !ok {
			return nil, false
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true

	case schema.TypeDateTime:
		t, ok := types.ToTime(types.Success(raw))
		return t, ok

	case schema.TypeArray:
		switch v := raw.(type) {
		case []any:
			return v, true
		case []string:
			out := make([]any, len(v))
			for i, s := range v {
				out[i] = s
			}
			return out, true
		case string:
			var out []any
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			if out == nil {
				out = []any{}
			}
			return out, true
		}

	case schema.TypeReference:
		switch v := raw.(type) {
		case uuid.UUID:
			return v, true
		case string:
			id, err := uuid.Parse(strings.TrimSpace(v))
			return id, err == nil
		}

	default:
		// Unrecognized types are stored as given.
		return raw, true
	}
	return nil, false
}
