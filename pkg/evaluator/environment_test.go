package evaluator

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goformula/pkg/schema"
	"github.com/sandrolain/goformula/pkg/types"
)

var fixedNow = time.Date(2025, 1, 26, 15, 30, 0, 0, time.UTC)

func TestFromValues(t *testing.T) {
	t.Parallel()

	env, err := FromValues(map[string]any{
		"Name":   "Sean",
		"Count":  3,
		"Ratio":  float32(0.5),
		"Failed": types.Failure(types.ErrNotANumber, "bad"),
	})
	require.NoError(t, err)

	assert.Equal(t, 4, env.Len())
	assert.Equal(t, []string{"count", "failed", "name", "ratio"}, env.Names())
	assert.True(t, env.Has("NAME"))
	assert.Equal(t, int64(3), env.Lookup("count").Value())
	assert.Equal(t, 0.5, env.Lookup("ratio").Value())
	assert.Equal(t, types.ErrNotANumber, env.Lookup("failed").Kind())
	assert.Equal(t, types.ErrInvalidFormula, env.Lookup("missing").Kind())
}

func TestFromValuesRejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := FromValues(map[string]any{"Name": 1, "NAME": 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestAddIfAbsentNeverOverwrites(t *testing.T) {
	t.Parallel()

	env := NewEnvironment()
	assert.True(t, env.AddIfAbsent("Field", types.Success("first")))
	assert.False(t, env.AddIfAbsent("FIELD", types.Success("second")))
	assert.Equal(t, "first", env.Lookup("field").Value())
}

func TestEnvironmentClock(t *testing.T) {
	t.Parallel()

	env := NewEnvironment(WithFixedTime(fixedNow))
	assert.Equal(t, fixedNow, env.Now())

	env = NewEnvironment(WithClock(nil))
	assert.False(t, env.Now().IsZero())
}

func TestFromSchema(t *testing.T) {
	t.Parallel()

	s, err := schema.New("all",
		schema.Field{Name: "Text", Type: schema.TypeText},
		schema.Field{Name: "Email", Type: schema.TypeEmail},
		schema.Field{Name: "Site", Type: schema.TypeURL},
		schema.Field{Name: "Int", Type: schema.TypeInteger},
		schema.Field{Name: "Num", Type: schema.TypeNumber},
		schema.Field{Name: "Flag", Type: schema.TypeBoolean},
		schema.Field{Name: "Day", Type: schema.TypeDate},
		schema.Field{Name: "At", Type: schema.TypeDateTime},
		schema.Field{Name: "Status", Type: schema.TypeEnum, Options: []string{"active", "retired"}},
		schema.Field{Name: "Empty", Type: schema.TypeEnum},
		schema.Field{Name: "Tags", Type: schema.TypeArray},
		schema.Field{Name: "Owner", Type: schema.TypeReference},
		schema.Field{Name: "Calc", Type: schema.TypeFormula, Formula: "=1", Default: "ignored"},
		schema.Field{Name: "Score", Type: schema.TypeInteger, Default: 10},
		schema.Field{Name: "Odd", Type: "geo"},
	)
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	env := FromSchema(s, WithFixedTime(fixedNow), WithLogger(logger))

	want := map[string]any{
		"text":   "",
		"email":  "user@example.com",
		"site":   "https://example.com",
		"int":    int64(0),
		"num":    0.0,
		"flag":   false,
		"day":    time.Date(2025, 1, 26, 0, 0, 0, 0, time.UTC),
		"at":     fixedNow,
		"status": "active",
		"empty":  "",
		"tags":   []any{},
		"owner":  uuid.Nil,
		"calc":   "",
		"score":  int64(10),
	}
	for name, v := range want {
		r := env.Lookup(name)
		require.True(t, r.OK(), "field %s: %s", name, r.GoString())
		assert.Equal(t, v, r.Value(), "field %s", name)
	}

	assert.False(t, env.Has("odd"))
	assert.Contains(t, logs.String(), "Odd")
	assert.Contains(t, logs.String(), "geo")
}

func TestFromSchemaNil(t *testing.T) {
	t.Parallel()

	assert.Zero(t, FromSchema(nil).Len())
}

type fakeRecord struct {
	props    map[string]any
	name     string
	created  time.Time
	accessed time.Time
	modified time.Time
}

func (r *fakeRecord) PropertyNames() []string {
	names := make([]string, 0, len(r.props))
	for k := range r.props {
		names = append(names, k)
	}
	return names
}

func (r *fakeRecord) Property(name string) (any, bool) {
	v, ok := r.props[name]
	return v, ok
}

func (r *fakeRecord) DisplayName() string   { return r.name }
func (r *fakeRecord) CreatedAt() time.Time  { return r.created }
func (r *fakeRecord) AccessedAt() time.Time { return r.accessed }
func (r *fakeRecord) ModifiedAt() time.Time { return r.modified }

func TestFromRecord(t *testing.T) {
	t.Parallel()

	s, err := schema.New("person",
		schema.Field{Name: "First", Type: schema.TypeText},
		schema.Field{Name: "Birthday", Type: schema.TypeDate},
		schema.Field{Name: "Name", Type: schema.TypeText},
	)
	require.NoError(t, err)

	rec := &fakeRecord{
		props:   map[string]any{"First": "Sean", "Name": "shadowed", "Extra": 7},
		name:    "Sean M",
		created: fixedNow,
	}

	env := FromRecord(s, rec)

	assert.Equal(t, "Sean", env.Lookup("first").Value())
	assert.Equal(t, int64(7), env.Lookup("extra").Value())

	unset := env.Lookup("birthday")
	assert.Equal(t, types.ErrInvalidValue, unset.Kind())

	// Metadata overrides user fields.
	assert.Equal(t, "Sean M", env.Lookup("name").Value())
	assert.Equal(t, fixedNow, env.Lookup(MetaCreated).Value())
	assert.True(t, env.Lookup(MetaLastAccessed).IsAbsent())
	assert.True(t, env.Lookup(MetaLastModified).IsAbsent())
}

func TestFromRecordNil(t *testing.T) {
	t.Parallel()

	assert.Zero(t, FromRecord(nil, nil).Len())
}
