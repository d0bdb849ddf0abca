package parser

// Package parser implements the formula parser.
//
// The parser uses a hand-written recursive descent approach. It reports
// every failure as a *types.Error carrying the character offset where the
// problem was detected, counted in the original text including any leading
// '='.
//
// # Grammar
//
//	formula    := '='? expression
//	expression := term ( ('&' term)* | ('=' term)* )
//	term       := '(' expression ')'
//	            | '[' field-name ']'
//	            | "'" text "'" | '"' text '"'
//	            | number
//	            | identifier '(' ( expression (',' expression)* )? ')'
//
// Once an operator chain has started, only the same operator may continue it
// at that level; "a & b = c" needs parentheses.
//
// # Example
//
//	f, err := parser.Parse(`=LEN([Name])`)
//	if err != nil {
//	    var ferr *types.Error
//	    if errors.As(err, &ferr) {
//	        fmt.Printf("Parse error at position %d\n", ferr.Position)
//	    }
//	    return
//	}
//
// # Limits
//
// The input length and nesting depth are configurable; token sizes are fixed
// (see MaxFieldNameLength and friends).

import (
	"github.com/sandrolain/goformula/pkg/evaluator"
)

// Default limits.
const (
	DefaultMaxDepth  = 100
	DefaultMaxLength = 32767
)

// Parse parses a formula and returns it ready for evaluation.
//
// If parsing fails, it returns a *types.Error with position information.
func Parse(text string, opts ...CompileOption) (*evaluator.Formula, error) {
	p := NewParser(text, opts...)
	return p.Parse()
}

// TryParse is like Parse but only reports whether parsing succeeded.
func TryParse(text string, opts ...CompileOption) (*evaluator.Formula, bool) {
	f, err := Parse(text, opts...)
	if err != nil {
		return nil, false
	}
	return f, true
}

// CompileOption configures compilation behavior.
type CompileOption func(*CompileOptions)

// CompileOptions holds parser configuration.
type CompileOptions struct {
	// MaxDepth limits expression nesting to prevent stack overflow.
	MaxDepth int
	// MaxLength limits the formula length in characters. Zero disables the
	// check.
	MaxLength int
}

// WithMaxDepth sets the maximum parsing depth.
func WithMaxDepth(depth int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxDepth = depth
	}
}

// WithMaxLength sets the maximum formula length in characters.
func WithMaxLength(n int) CompileOption {
	return func(opts *CompileOptions) {
		opts.MaxLength = n
	}
}
