package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personYAML = `
name: person
fields:
  - name: First
    type: text
    required: true
  - name: Birthday
    type: date
  - name: Age
    type: formula
    formula: '=DATEDIFF("yyyy", [Birthday], TODAY())'
  - name: Greeting
    type: formula
    formula: '="Hi " & [First]'
`

func execute(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEvalCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		args   []string
		code   int
		stdout string
	}{
		{"value", []string{"eval", "-set", "name=Sean", "=LEN([Name])"}, 0, "4\n"},
		{"two values", []string{"eval", "-set", "a=x", "-set", "b=y", "=[a] & [b]"}, 0, "xy\n"},
		{"fixed clock", []string{"eval", "-now", "2025-01-26", `=DATEDIFF("yyyy", "1981-01-26", TODAY())`}, 0, "44\n"},
		{"failure", []string{"eval", "=LEN(NULL())"}, 1, "#VALUE!\n"},
		{"parse failure", []string{"eval", "=TRIM(1.4)"}, 1, ""},
		{"missing formula", []string{"eval"}, 2, ""},
		{"bad assignment", []string{"eval", "-set", "novalue", "=1"}, 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, stdout, _ := execute(t, tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.stdout, stdout)
		})
	}
}

func TestEvalValuesFile(t *testing.T) {
	t.Parallel()

	values := writeFile(t, "values.yaml", "age: 18\nname: Sean\n")
	code, stdout, stderr := execute(t, "eval", "-values", values, `=IF([Age] = 18, UPPER([Name]), "no")`)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "SEAN\n", stdout)
}

func TestInspectCommand(t *testing.T) {
	t.Parallel()

	code, stdout, _ := execute(t, "inspect", `=IF([Age] = 18, "adult", LOWER([Kind]))`)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "fields: Age, Kind\n")
	assert.Contains(t, stdout, "functions: IF, LOWER\n")
}

func TestValidateCommand(t *testing.T) {
	t.Parallel()

	s := writeFile(t, "person.yaml", personYAML)

	code, stdout, _ := execute(t, "validate", "-schema", s, `=LEN([First]) & [Birthday]`)
	assert.Equal(t, 0, code)
	assert.Equal(t, "ok\n", stdout)

	code, stdout, _ = execute(t, "validate", "-schema", s, `=LEN([Surname])`)
	assert.Equal(t, 1, code)
	assert.Equal(t, "#NAME?\n", stdout)

	code, _, _ = execute(t, "validate", `=TRUE()`)
	assert.Equal(t, 2, code)
}

func TestRecordCommands(t *testing.T) {
	t.Parallel()

	s := writeFile(t, "person.yaml", personYAML)
	db := filepath.Join(t.TempDir(), "data", "things.db")

	code, stdout, stderr := execute(t, "put", "-schema", s, "-db", db, "-name", "Sean", "First=Sean", "Birthday=1981-01-26")
	require.Equal(t, 0, code, stderr)
	id := strings.TrimSpace(stdout)
	require.NotEmpty(t, id)

	code, stdout, stderr = execute(t, "show", "-schema", s, "-db", db, "-now", "2025-01-26", id)
	require.Equal(t, 0, code, stderr)
	assert.Regexp(t, `(?m)^Name\s+Sean$`, stdout)
	assert.Regexp(t, `(?m)^Birthday\s+1981-01-26$`, stdout)
	assert.Regexp(t, `(?m)^Age\s+44$`, stdout)
	assert.Regexp(t, `(?m)^Greeting\s+Hi Sean$`, stdout)

	code, _, stderr = execute(t, "put", "-schema", s, "-db", db, "-id", id, "Birthday=")
	require.Equal(t, 0, code, stderr)

	code, stdout, _ = execute(t, "show", "-schema", s, "-db", db, id)
	require.Equal(t, 0, code)
	assert.Regexp(t, `(?m)^Age\s+#VALUE!$`, stdout)

	code, stdout, _ = execute(t, "list", "-schema", s, "-db", db)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, id)

	code, _, stderr = execute(t, "put", "-schema", s, "-db", db, "Birthday=1981-01-26")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "missing required field")

	code, _, stderr = execute(t, "put", "-schema", s, "-db", db, "First=Sean", "Nope=1")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown field")
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()

	code, _, stderr := execute(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Unknown command")

	code, _, _ = execute(t, "-log-format", "xml", "eval", "=1")
	assert.Equal(t, 2, code)
}
