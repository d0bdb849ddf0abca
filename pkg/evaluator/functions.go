package evaluator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sandrolain/goformula/pkg/types"
)

// FunctionDef defines a built-in function.
type FunctionDef struct {
	Name string
	// Signature documents the call shape, e.g. "LEN(value)".
	Signature string
	// Impl receives the raw argument nodes and checks its own arity and
	// argument types.
	Impl FunctionImpl
	// Check, when set, is run by the parser on the raw argument nodes. A
	// non-nil error turns the call into a parse failure.
	Check ArgCheck
}

// FunctionImpl is the implementation of a function.
type FunctionImpl func(env *Environment, args []Node) types.Result

// ArgCheck statically validates the arguments of a call.
type ArgCheck func(args []Node) error

// ArgumentError is returned by an ArgCheck to reject an argument.
type ArgumentError struct {
	Arg     Node
	Message string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	return e.Message
}

// AsArgumentError unwraps an *ArgumentError from err.
func AsArgumentError(err error) (*ArgumentError, bool) {
	var ae *ArgumentError
	ok := errors.As(err, &ae)
	return ae, ok
}

var (
	builtinFunctions     map[string]*FunctionDef
	builtinFunctionsOnce sync.Once
)

// initBuiltinFunctions initializes the built-in function registry.
func initBuiltinFunctions() {
	builtinFunctionsOnce.Do(func() {
		defs := []*FunctionDef{
			// Date/Time functions
			{Name: "TODAY", Signature: "TODAY()", Impl: fnToday},
			{Name: "NOW", Signature: "NOW()", Impl: fnNow},
			{Name: "DATEDIFF", Signature: "DATEDIFF(interval, start, end)", Impl: fnDateDiff},
			{Name: "YEAR", Signature: "YEAR(date)", Impl: fnYear},
			{Name: "MONTH", Signature: "MONTH(date)", Impl: fnMonth},
			{Name: "DAY", Signature: "DAY(date)", Impl: fnDay},

			// Logical functions
			{Name: "IF", Signature: "IF(condition, whenTrue, whenFalse)", Impl: fnIf},
			{Name: "NOT", Signature: "NOT(value)", Impl: fnNot},
			{Name: "AND", Signature: "AND(value, ...)", Impl: fnAnd},
			{Name: "OR", Signature: "OR(value, ...)", Impl: fnOr},
			{Name: "TRUE", Signature: "TRUE()", Impl: fnTrue},
			{Name: "FALSE", Signature: "FALSE()", Impl: fnFalse},
			{Name: "NULL", Signature: "NULL()", Impl: fnNull},
			{Name: "ISBLANK", Signature: "ISBLANK(value)", Impl: fnIsBlank},
			{Name: "ISERROR", Signature: "ISERROR(value)", Impl: fnIsError},

			// String functions
			{Name: "LEN", Signature: "LEN(value)", Impl: fnLen},
			{Name: "LOWER", Signature: "LOWER(value)", Impl: fnLower},
			{Name: "UPPER", Signature: "UPPER(value)", Impl: fnUpper},
			{Name: "TRIM", Signature: "TRIM(value)", Impl: fnTrim, Check: checkTrim},
			{Name: "CONCATENATE", Signature: "CONCATENATE(value, ...)", Impl: fnConcatenate},

			// Math functions
			{Name: "FLOOR", Signature: "FLOOR(value)", Impl: fnFloor},
			{Name: "ROUND", Signature: "ROUND(value, digits)", Impl: fnRound},
		}

		builtinFunctions = make(map[string]*FunctionDef, len(defs))
		for _, def := range defs {
			builtinFunctions[strings.ToLower(def.Name)] = def
		}
	})
}

// LookupFunction retrieves a built-in function by name, case-insensitively.
func LookupFunction(name string) (*FunctionDef, bool) {
	initBuiltinFunctions()
	fn, ok := builtinFunctions[strings.ToLower(name)]
	return fn, ok
}

// Functions returns all built-in functions sorted by name.
func Functions() []*FunctionDef {
	initBuiltinFunctions()
	out := make([]*FunctionDef, 0, len(builtinFunctions))
	for _, def := range builtinFunctions {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// --- argument helpers ---

// arity checks the argument count. max < 0 means unlimited.
func arity(name string, args []Node, minArgs, maxArgs int) (types.Result, bool) {
	n := len(args)
	switch {
	case n < minArgs && minArgs == maxArgs:
		return types.Failuref(types.ErrInvalidFormula, "%s requires %s", name, plural(minArgs)), false
	case n < minArgs:
		return types.Failuref(types.ErrInvalidFormula, "%s requires at least %s", name, plural(minArgs)), false
	case maxArgs >= 0 && n > maxArgs && minArgs == maxArgs:
		return types.Failuref(types.ErrInvalidFormula, "%s takes %s, got %d", name, plural(maxArgs), n), false
	case maxArgs >= 0 && n > maxArgs:
		return types.Failuref(types.ErrInvalidFormula, "%s takes at most %s, got %d", name, plural(maxArgs), n), false
	}
	return types.Result{}, true
}

func plural(n int) string {
	if n == 1 {
		return "1 argument"
	}
	return fmt.Sprintf("%d arguments", n)
}

// evalText evaluates n and coerces it to text. Failures of n propagate;
// values without a textual form are invalid values.
func evalText(env *Environment, name string, n Node) (string, types.Result, bool) {
	r := n.Evaluate(env)
	if !r.OK() {
		return "", r, false
	}
	s, ok := types.ToText(r)
	if !ok {
		return "", types.Failuref(types.ErrInvalidValue, "%s expects a text value", name), false
	}
	return s, r, true
}

// evalNumber evaluates n and coerces it to a number.
func evalNumber(env *Environment, name string, n Node) (float64, types.Result, bool) {
	r := n.Evaluate(env)
	if !r.OK() {
		return 0, r, false
	}
	f, ok := types.ToNumber(r)
	if !ok {
		return 0, types.Failuref(types.ErrInvalidValue, "%s expects a number, got %q", name, r.String()), false
	}
	return f, r, true
}

// evalBool evaluates n and coerces it to a boolean.
func evalBool(env *Environment, name string, n Node) (bool, types.Result, bool) {
	r := n.Evaluate(env)
	if !r.OK() {
		return false, r, false
	}
	b, ok := types.ToBool(r)
	if !ok {
		return false, types.Failuref(types.ErrInvalidValue, "%s expects a boolean, got %q", name, r.String()), false
	}
	return b, r, true
}
