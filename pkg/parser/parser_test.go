package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goformula/pkg/evaluator"
	"github.com/sandrolain/goformula/pkg/types"
)

func TestParseLiterals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  any
	}{
		{"=42", int64(42)},
		{"42", int64(42)},
		{"=-7", int64(-7)},
		{"=-1.5", -1.5},
		{"=.5", 0.5},
		{"=1,234", int64(1234)},
		{"=1,234,567.89", 1234567.89},
		{"=99999999999999999999", 1e20},
		{`="Sean"`, "Sean"},
		{`='it"s'`, `it"s`},
		{`=''`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			f, err := Parse(tt.input)
			require.NoError(t, err)
			lit, ok := f.Root().(*evaluator.Literal)
			require.True(t, ok, "root is %T", f.Root())
			assert.Equal(t, tt.want, lit.Value())
		})
	}
}

func TestParseStructure(t *testing.T) {
	t.Parallel()

	f, err := Parse(`=IF([Age] = 18, "adult" & [Suffix], lower("MINOR"))`)
	require.NoError(t, err)

	call, ok := f.Root().(*evaluator.Call)
	require.True(t, ok)
	assert.Equal(t, "IF", call.Name())
	assert.Equal(t, 1, call.Pos())
	require.Len(t, call.Args(), 3)

	eq, ok := call.Args()[0].(*evaluator.Equals)
	require.True(t, ok)
	assert.Len(t, eq.Operands(), 2)

	cat, ok := call.Args()[1].(*evaluator.Concat)
	require.True(t, ok)
	assert.Len(t, cat.Operands(), 2)

	assert.Equal(t, []string{"Age", "Suffix"}, f.Fields())
	assert.Equal(t, []string{"IF", "LOWER"}, f.Functions())
	assert.Equal(t, `IF(([Age] = 18), ("adult" & [Suffix]), lower("MINOR"))`, f.Root().String())
}

func TestParseOperatorChains(t *testing.T) {
	t.Parallel()

	f, err := Parse(`=[a] & 'b' & 1`)
	require.NoError(t, err)
	cat, ok := f.Root().(*evaluator.Concat)
	require.True(t, ok)
	assert.Len(t, cat.Operands(), 3)

	f, err = Parse(`=1 = 1 = 1`)
	require.NoError(t, err)
	eq, ok := f.Root().(*evaluator.Equals)
	require.True(t, ok)
	assert.Len(t, eq.Operands(), 3)

	// Parentheses allow mixing.
	f, err = Parse(`=("a" & "b") = "ab"`)
	require.NoError(t, err)
	assert.True(t, f.Evaluate(nil).Equal(types.Success(true)))
}

func TestParseCallArguments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		args  int
	}{
		{"=TODAY()", 0},
		{"=today( )", 0},
		{"=ROUND(1, 5)", 2},
		{"=CONCATENATE(1,23)", 2},
		{"=CONCATENATE(1,234)", 1},
		{"=CONCATENATE((1),(2),(3))", 3},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			f, err := Parse(tt.input)
			require.NoError(t, err)
			call, ok := f.Root().(*evaluator.Call)
			require.True(t, ok)
			assert.Len(t, call.Args(), tt.args)
		})
	}
}

func TestParseUnknownFunctionIsNotAParseError(t *testing.T) {
	t.Parallel()

	f, err := Parse(`=NOSUCH(1)`)
	require.NoError(t, err)

	r := f.Evaluate(nil)
	assert.Equal(t, types.ErrInvalidFormula, r.Kind())
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		pos   int
	}{
		{"empty", "", 0},
		{"only prefix", "=", 1},
		{"whitespace", "=   ", 4},
		{"malformed number", "=FLOOR(1.2.3)", 7},
		{"lone minus", "=-", 1},
		{"numeric literal to TRIM", "=TRIM(1.4)", 6},
		{"numeric literal to TRIM second", "=CONCATENATE(TRIM(-2))", 18},
		{"unterminated field", "=[abc", 1},
		{"unterminated string", "='abc", 1},
		{"missing close paren", "=(1", 3},
		{"extra close paren", "=1)", 2},
		{"mixed operators", "=1 & 2 = 3", 7},
		{"mixed operators reversed", "=1 = 2 & 3", 7},
		{"trailing operator", "=1 &", 4},
		{"leading operator", "=& 1", 1},
		{"double prefix", "==1", 1},
		{"function without parens", "=LEN", 4},
		{"missing comma", "=LEN(1 2)", 7},
		{"trailing comma", "=LEN(1,)", 7},
		{"adjacent terms", `="a" "b"`, 5},
		{"unexpected character", "=$", 1},
		{"multibyte offset", `="héllo" & $`, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := Parse(tt.input)
			require.Error(t, err)
			assert.Nil(t, f)

			var ferr *types.Error
			require.True(t, errors.As(err, &ferr), "error is %T", err)
			assert.Equal(t, types.ErrInvalidFormula, ferr.Kind)
			assert.Equal(t, tt.pos, ferr.Position, "message: %s", ferr.Message)
			assert.NotEmpty(t, ferr.Message)

			_, ok := TryParse(tt.input)
			assert.False(t, ok)
		})
	}
}

func TestParseLimits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		opts  []CompileOption
		pos   int
	}{
		{"input length", strings.Repeat("1", DefaultMaxLength+1), nil, DefaultMaxLength},
		{"configured length", "=LEN('abcdefghijk')", []CompileOption{WithMaxLength(10)}, 10},
		{"field name", "=[" + strings.Repeat("a", MaxFieldNameLength+1) + "]", nil, 2 + MaxFieldNameLength},
		{"string literal", "='" + strings.Repeat("x", MaxStringLength+1) + "'", nil, 2 + MaxStringLength},
		{"identifier", "=" + strings.Repeat("A", MaxIdentifierLength+1) + "()", nil, 1 + MaxIdentifierLength},
		{"number", "=" + strings.Repeat("1", MaxNumberLength+1), nil, 1 + MaxNumberLength},
		{"depth", strings.Repeat("(", 150) + "1" + strings.Repeat(")", 150), nil, DefaultMaxDepth},
		{"configured depth", "=((1))", []CompileOption{WithMaxDepth(2)}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(tt.input, tt.opts...)
			require.Error(t, err)

			var ferr *types.Error
			require.True(t, errors.As(err, &ferr))
			assert.Equal(t, tt.pos, ferr.Position, "message: %s", ferr.Message)
		})
	}
}

func TestParseAtLimits(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"=[" + strings.Repeat("a", MaxFieldNameLength) + "]",
		"='" + strings.Repeat("x", MaxStringLength) + "'",
		"=" + strings.Repeat("1", MaxNumberLength),
		strings.Repeat("(", DefaultMaxDepth-1) + "1" + strings.Repeat(")", DefaultMaxDepth-1),
		"=LEN(" + strings.Repeat("'a' & ", 4000) + "'a')",
	}

	for _, input := range inputs {
		_, ok := TryParse(input)
		assert.True(t, ok, "input of %d characters", len(input))
	}
}

func TestParseIsReentrantAcrossCalls(t *testing.T) {
	t.Parallel()

	// Each Parse call uses its own depth counter.
	deep := strings.Repeat("(", DefaultMaxDepth-1) + "1" + strings.Repeat(")", DefaultMaxDepth-1)
	for i := 0; i < 3; i++ {
		_, err := Parse(deep)
		require.NoError(t, err)
	}
}
