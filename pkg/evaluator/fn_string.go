package evaluator

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sandrolain/goformula/pkg/types"
)

// fnLen returns the number of characters in the textual form of its
// argument.
// Signature: LEN(value)
func fnLen(env *Environment, args []Node) types.Result {
	if r, ok := arity("LEN", args, 1, 1); !ok {
		return r
	}
	s, r, ok := evalText(env, "LEN", args[0])
	if !ok {
		return r
	}
	return types.Success(int64(utf8.RuneCountInString(s)))
}

// fnLower lower-cases its argument using culture-invariant rules. Numbers
// are stringified.
// Signature: LOWER(value)
func fnLower(env *Environment, args []Node) types.Result {
	if r, ok := arity("LOWER", args, 1, 1); !ok {
		return r
	}
	s, r, ok := evalText(env, "LOWER", args[0])
	if !ok {
		return r
	}
	// Casers keep state and must not be shared between goroutines.
	return types.Success(cases.Lower(language.Und).String(s))
}

// fnUpper upper-cases its argument using culture-invariant rules. Numbers
// are stringified.
// Signature: UPPER(value)
func fnUpper(env *Environment, args []Node) types.Result {
	if r, ok := arity("UPPER", args, 1, 1); !ok {
		return r
	}
	s, r, ok := evalText(env, "UPPER", args[0])
	if !ok {
		return r
	}
	return types.Success(cases.Upper(language.Und).String(s))
}

// fnTrim removes leading and trailing white space. Unlike LOWER and UPPER
// it does not accept numbers.
// Signature: TRIM(value)
func fnTrim(env *Environment, args []Node) types.Result {
	if r, ok := arity("TRIM", args, 1, 1); !ok {
		return r
	}
	r := args[0].Evaluate(env)
	if !r.OK() {
		return r
	}
	if isNumber(r.Value()) {
		return types.Failure(types.ErrInvalidFormula, "TRIM does not accept a number")
	}
	s, ok := types.ToText(r)
	if !ok {
		return types.Failure(types.ErrInvalidValue, "TRIM expects a text value")
	}
	return types.Success(strings.TrimSpace(s))
}

// checkTrim rejects numeric literal arguments at parse time.
func checkTrim(args []Node) error {
	for _, a := range args {
		if lit, ok := a.(*Literal); ok && isNumber(lit.Value()) {
			return &ArgumentError{Arg: a, Message: "TRIM does not accept a number"}
		}
	}
	return nil
}

// fnConcatenate joins the textual forms of its arguments, like the &
// operator.
// Signature: CONCATENATE(value, ...)
func fnConcatenate(env *Environment, args []Node) types.Result {
	if r, ok := arity("CONCATENATE", args, 1, -1); !ok {
		return r
	}
	return concatenate(env, args)
}
