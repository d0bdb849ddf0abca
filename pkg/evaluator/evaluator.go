package evaluator

// Package evaluator implements the formula expression tree and its
// evaluation.
//
// A parsed formula is a tree of [Node] values. Each node evaluates itself
// against an [Environment] (a case-insensitive name to result lookup) and
// produces a [types.Result]. Evaluation is pure: nodes never mutate the
// environment and keep no state between calls, so a [Formula] can be
// evaluated repeatedly and concurrently against independent environments.
//
// # Example
//
//	f, err := parser.Parse(`=IF([Age] = 18, "adult", "minor")`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	env, _ := evaluator.FromValues(map[string]any{"age": 18})
//	result := f.Evaluate(env)
//
// # Functions
//
// Function calls are resolved by name, case-insensitively, against a fixed
// registry built once on first use. Arguments are handed to the function
// unevaluated, so each function decides whether and when to evaluate them.

import (
	"strings"

	"github.com/sandrolain/goformula/pkg/types"
)

// Formula is a parsed formula ready for evaluation.
//
// A Formula can be evaluated multiple times against different environments.
// It is safe for concurrent use by multiple goroutines.
type Formula struct {
	root   Node
	source string
}

// NewFormula creates a Formula from a tree root and its source text.
func NewFormula(root Node, source string) *Formula {
	return &Formula{
		root:   root,
		source: source,
	}
}

// Root returns the root node of the expression tree.
func (f *Formula) Root() Node {
	return f.root
}

// Source returns the original formula text.
func (f *Formula) Source() string {
	return f.source
}

// String returns the original formula text.
func (f *Formula) String() string {
	return f.source
}

// Evaluate evaluates the formula against env. A nil env behaves like an
// empty environment.
func (f *Formula) Evaluate(env *Environment) types.Result {
	if f == nil || f.root == nil {
		return types.Failure(types.ErrInvalidFormula, "empty formula")
	}
	if env == nil {
		env = NewEnvironment()
	}
	return f.root.Evaluate(env)
}

// Fields returns the distinct field names referenced by the formula, in
// order of first appearance. Names keep the spelling of their first use.
func (f *Formula) Fields() []string {
	var names []string
	seen := make(map[string]struct{})
	Walk(f.root, func(n Node) bool {
		if ref, ok := n.(*FieldRef); ok {
			if _, dup := seen[ref.key]; !dup {
				seen[ref.key] = struct{}{}
				names = append(names, ref.name)
			}
		}
		return true
	})
	return names
}

// Functions returns the distinct function names called by the formula,
// upper-cased, in order of first appearance.
func (f *Formula) Functions() []string {
	var names []string
	seen := make(map[string]struct{})
	Walk(f.root, func(n Node) bool {
		if call, ok := n.(*Call); ok {
			name := strings.ToUpper(call.Name())
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
		return true
	})
	return names
}
