// Package goformula evaluates spreadsheet-style formulas attached to the
// fields of schema-typed records.
//
// A formula is a single expression such as
//
//	=IF([Age] = 18, "adult", "minor") & " " & UPPER([Name])
//
// made of field references, text and number literals, the '&' (concatenate)
// and '=' (equals) operators and a small library of built-in functions.
// Evaluation never panics and never returns a Go error: it yields a
// [types.Result] that is either a value or an error kind that renders as a
// spreadsheet error token (#NAME?, #VALUE!, ...).
//
// # Quick Start
//
//	// One-shot evaluation
//	r, err := goformula.Eval(`=LEN([Name])`, map[string]any{"name": "Sean"})
//
//	// Parse once, evaluate many times
//	f, err := goformula.Parse(`=DATEDIFF("yyyy", [Birthday], TODAY())`)
//	env, _ := evaluator.FromValues(values)
//	r := f.Evaluate(env)
//
//	// Records: compute a schema's formula fields at read time
//	engine := goformula.New(goformula.WithCacheSize(512))
//	computed := engine.Compute(s, thing)
//
// # More Information
//
//   - Parser: github.com/sandrolain/goformula/pkg/parser
//   - Evaluator and functions: github.com/sandrolain/goformula/pkg/evaluator
//   - Results and error kinds: github.com/sandrolain/goformula/pkg/types
//   - Schemas: github.com/sandrolain/goformula/pkg/schema
//   - Records and stores: github.com/sandrolain/goformula/pkg/record
package goformula

import (
	"fmt"

	"github.com/sandrolain/goformula/pkg/evaluator"
	"github.com/sandrolain/goformula/pkg/parser"
	"github.com/sandrolain/goformula/pkg/types"
)

// Version returns the current version of goformula.
func Version() string {
	return "v0.1.0-dev"
}

// Parse parses formula text into an expression tree.
//
// The returned formula can be evaluated multiple times against different
// environments. It is safe for concurrent use.
func Parse(text string, opts ...parser.CompileOption) (*evaluator.Formula, error) {
	return parser.Parse(text, opts...)
}

// TryParse is like Parse but only reports whether parsing succeeded.
func TryParse(text string, opts ...parser.CompileOption) (*evaluator.Formula, bool) {
	return parser.TryParse(text, opts...)
}

// MustParse is like Parse but panics if the formula cannot be parsed.
// It simplifies safe initialization of global variables.
func MustParse(text string) *evaluator.Formula {
	f, err := Parse(text)
	if err != nil {
		panic(fmt.Sprintf("goformula: Parse(%q): %v", text, err))
	}
	return f
}

// Eval parses text and evaluates it against values in a single call.
// The error is non-nil only when the formula does not parse or values
// holds two keys that differ only in case; evaluation failures are
// reported through the result.
//
// For repeated evaluations of the same formula, use Parse or an Engine.
func Eval(text string, values map[string]any, opts ...evaluator.EnvOption) (types.Result, error) {
	f, err := Parse(text)
	if err != nil {
		return types.Result{}, err
	}
	env, err := evaluator.FromValues(values, opts...)
	if err != nil {
		return types.Result{}, err
	}
	return f.Evaluate(env), nil
}
