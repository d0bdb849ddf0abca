package evaluator

import (
	"github.com/sandrolain/goformula/pkg/types"
)

// fnIf evaluates the condition and then only the selected branch. A
// condition that fails or is not a boolean selects the false branch.
// Signature: IF(condition, whenTrue, whenFalse)
func fnIf(env *Environment, args []Node) types.Result {
	if r, ok := arity("IF", args, 3, 3); !ok {
		return r
	}
	cond, _ := types.ToBool(args[0].Evaluate(env))
	if cond {
		return args[1].Evaluate(env)
	}
	return args[2].Evaluate(env)
}

// Signature: NOT(value)
func fnNot(env *Environment, args []Node) types.Result {
	if r, ok := arity("NOT", args, 1, 1); !ok {
		return r
	}
	b, r, ok := evalBool(env, "NOT", args[0])
	if !ok {
		return r
	}
	return types.Success(!b)
}

// fnAnd stops at the first false argument.
// Signature: AND(value, ...)
func fnAnd(env *Environment, args []Node) types.Result {
	if r, ok := arity("AND", args, 1, -1); !ok {
		return r
	}
	for _, a := range args {
		b, r, ok := evalBool(env, "AND", a)
		if !ok {
			return r
		}
		if !b {
			return types.Success(false)
		}
	}
	return types.Success(true)
}

// fnOr stops at the first true argument.
// Signature: OR(value, ...)
func fnOr(env *Environment, args []Node) types.Result {
	if r, ok := arity("OR", args, 1, -1); !ok {
		return r
	}
	for _, a := range args {
		b, r, ok := evalBool(env, "OR", a)
		if !ok {
			return r
		}
		if b {
			return types.Success(true)
		}
	}
	return types.Success(false)
}

func fnTrue(_ *Environment, args []Node) types.Result {
	if r, ok := arity("TRUE", args, 0, 0); !ok {
		return r
	}
	return types.Success(true)
}

func fnFalse(_ *Environment, args []Node) types.Result {
	if r, ok := arity("FALSE", args, 0, 0); !ok {
		return r
	}
	return types.Success(false)
}

func fnNull(_ *Environment, args []Node) types.Result {
	if r, ok := arity("NULL", args, 0, 0); !ok {
		return r
	}
	return types.Success(nil)
}

// fnIsBlank is true for absent values, empty text and unset record fields.
// Other failures propagate.
// Signature: ISBLANK(value)
func fnIsBlank(env *Environment, args []Node) types.Result {
	if r, ok := arity("ISBLANK", args, 1, 1); !ok {
		return r
	}
	r := args[0].Evaluate(env)
	if !r.OK() {
		if r.Kind() == types.ErrInvalidValue {
			return types.Success(true)
		}
		return r
	}
	switch v := r.Value().(type) {
	case nil:
		return types.Success(true)
	case string:
		return types.Success(v == "")
	default:
		return types.Success(false)
	}
}

// fnIsError reports whether its argument fails.
// Signature: ISERROR(value)
func fnIsError(env *Environment, args []Node) types.Result {
	if r, ok := arity("ISERROR", args, 1, 1); !ok {
		return r
	}
	return types.Success(!args[0].Evaluate(env).OK())
}
