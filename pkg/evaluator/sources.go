package evaluator

import (
	"time"

	"github.com/google/uuid"

	"github.com/sandrolain/goformula/pkg/schema"
	"github.com/sandrolain/goformula/pkg/types"
)

// Read-only metadata fields set on every record environment. They override
// user fields of the same name.
const (
	MetaName         = "Name"
	MetaCreated      = "Created"
	MetaLastAccessed = "LastAccessed"
	MetaLastModified = "LastModified"
)

// SchemaSource supplies declared fields.
type SchemaSource interface {
	Fields() []schema.Field
}

// RecordSource supplies the current state of a record.
type RecordSource interface {
	// PropertyNames returns the names of the properties that are set.
	PropertyNames() []string
	// Property returns the value of a set property.
	Property(name string) (any, bool)
	DisplayName() string
	CreatedAt() time.Time
	AccessedAt() time.Time
	ModifiedAt() time.Time
}

// Placeholder values used when validating against a schema.
const (
	placeholderEmail = "user@example.com"
	placeholderURL   = "https://example.com"
)

// FromSchema creates an environment for validating a formula without live
// data. Every declared field gets a representative placeholder derived from
// its type, or its declared default. Fields of unrecognized types are
// skipped with a warning.
func FromSchema(src SchemaSource, opts ...EnvOption) *Environment {
	env := NewEnvironment(opts...)
	if src == nil {
		return env
	}

	for _, f := range src.Fields() {
		if f.Default != nil && f.Type != schema.TypeFormula {
			env.AddIfAbsent(f.Name, types.Success(f.Default))
			continue
		}
		v, ok := placeholder(f, env.Now())
		if !ok {
			env.logger.Warn("skipping field of unrecognized type",
				"field", f.Name,
				"type", string(f.Type),
			)
			continue
		}
		env.AddIfAbsent(f.Name, types.Success(v))
	}
	return env
}

func placeholder(f schema.Field, now time.Time) (any, bool) {
	switch f.Type {
	case schema.TypeText, schema.TypeFormula:
		return "", true
	case schema.TypeEmail:
		return placeholderEmail, true
	case schema.TypeURL:
		return placeholderURL, true
	case schema.TypeInteger:
		return int64(0), true
	case schema.TypeNumber:
		return 0.0, true
	case schema.TypeBoolean:
		return false, true
	case schema.TypeDate:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	case schema.TypeDateTime:
		return now, true
	case schema.TypeEnum:
		if len(f.Options) == 0 {
			return "", true
		}
		return f.Options[0], true
	case schema.TypeArray:
		return []any{}, true
	case schema.TypeReference:
		return uuid.Nil, true
	default:
		return nil, false
	}
}

// FromRecord creates an environment from a live record. Set properties are
// added as successes; declared but unset fields are added as invalid-value
// failures so that referencing them fails predictably. The metadata fields
// are then forced, overriding user fields of the same name.
func FromRecord(src SchemaSource, rec RecordSource, opts ...EnvOption) *Environment {
	env := NewEnvironment(opts...)
	if rec == nil {
		return env
	}

	for _, name := range rec.PropertyNames() {
		if v, ok := rec.Property(name); ok {
			env.AddIfAbsent(name, types.Success(v))
		}
	}

	if src != nil {
		for _, f := range src.Fields() {
			env.AddIfAbsent(f.Name, types.Failuref(types.ErrInvalidValue, "field %q is not set", f.Name))
		}
	}

	env.set(MetaName, types.Success(rec.DisplayName()))
	env.set(MetaCreated, timeResult(rec.CreatedAt()))
	env.set(MetaLastAccessed, timeResult(rec.AccessedAt()))
	env.set(MetaLastModified, timeResult(rec.ModifiedAt()))
	return env
}

func timeResult(t time.Time) types.Result {
	if t.IsZero() {
		return types.Success(nil)
	}
	return types.Success(t)
}
