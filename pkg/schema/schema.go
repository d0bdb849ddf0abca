// Package schema describes the typed field declarations of a record store.
//
// A Schema is a named, ordered set of fields. Schemas are usually loaded
// from YAML documents, which are validated against an embedded JSON schema
// before being decoded:
//
//	name: person
//	fields:
//	  - name: Birthday
//	    type: date
//	    required: true
//	  - name: Age
//	    type: formula
//	    formula: '=DATEDIFF("yyyy", [Birthday], TODAY())'
//
// The package also owns the field-type layer consumed by formula coercion:
// the boolean-word table ([ParseBool]) and the exact date layouts
// ([ParseDate]).
package schema

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed data/schema.json
var schemaDocument []byte

// ErrInvalidSchema is returned when a schema document fails validation.
var ErrInvalidSchema = errors.New("invalid schema")

// Field is a single typed field declaration.
type Field struct {
	Name     string    `yaml:"name" json:"name"`
	Type     FieldType `yaml:"type" json:"type"`
	Required bool      `yaml:"required,omitempty" json:"required,omitempty"`
	Default  any       `yaml:"default,omitempty" json:"default,omitempty"`
	Options  []string  `yaml:"options,omitempty" json:"options,omitempty"`
	Formula  string    `yaml:"formula,omitempty" json:"formula,omitempty"`
}

// Schema is a named set of typed field declarations.
type Schema struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Declared    []Field `yaml:"fields" json:"fields"`
}

// New creates a schema from field declarations. It applies the same
// structural checks as Load.
func New(name string, fields ...Field) (*Schema, error) {
	s := &Schema{Name: name, Declared: fields}
	if err := s.check(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load decodes and validates a YAML schema document.
func Load(r io.Reader) (*Schema, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	var s Schema
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads a YAML schema document from path.
func LoadFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening schema %s: %w", path, err)
	}
	defer f.Close()

	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("loading schema %s: %w", path, err)
	}
	return s, nil
}

// Fields returns the declared fields in declaration order.
func (s *Schema) Fields() []Field {
	return s.Declared
}

// Field looks up a declared field by name, case-insensitively.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Declared {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// FormulaFields returns the fields whose values are computed by a formula.
func (s *Schema) FormulaFields() []Field {
	var out []Field
	for _, f := range s.Declared {
		if f.Type == TypeFormula {
			out = append(out, f)
		}
	}
	return out
}

// Missing returns the required, non-formula fields for which isSet reports false
// and no default is declared.
func (s *Schema) Missing(isSet func(name string) bool) []string {
	var out []string
	for _, f := range s.Declared {
		if !f.Required || f.Type == TypeFormula || f.Default != nil {
			continue
		}
		if !isSet(f.Name) {
			out = append(out, f.Name)
		}
	}
	return out
}

func (s *Schema) check() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: schema name is empty", ErrInvalidSchema)
	}
	seen := make(map[string]struct{}, len(s.Declared))
	for i, f := range s.Declared {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("%w: field %d has no name", ErrInvalidSchema, i)
		}
		key := strings.ToLower(f.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, f.Name)
		}
		seen[key] = struct{}{}
		if f.Type == TypeFormula && strings.TrimSpace(f.Formula) == "" {
			return fmt.Errorf("%w: formula field %q has no formula", ErrInvalidSchema, f.Name)
		}
	}
	return nil
}

// validateDocument checks a decoded YAML document against the embedded
// JSON schema.
func validateDocument(doc any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaDocument),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	if len(msgs) == 1 {
		return fmt.Errorf("%w: %s", ErrInvalidSchema, msgs[0])
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors:", len(msgs))
	for i, msg := range msgs {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, msg)
	}
	return fmt.Errorf("%w: %s", ErrInvalidSchema, b.String())
}
