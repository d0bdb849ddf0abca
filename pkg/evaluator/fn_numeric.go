package evaluator

import (
	"math"

	"github.com/sandrolain/goformula/pkg/types"
)

func fnFloor(env *Environment, args []Node) types.Result {
	if r, ok := arity("FLOOR", args, 1, 1); !ok {
		return r
	}
	num, r, ok := evalNumber(env, "FLOOR", args[0])
	if !ok {
		return r
	}
	return types.Success(math.Floor(num))
}

// fnRound rounds half away from zero to the given number of decimal
// digits. Negative digits round to tens, hundreds and so on.
func fnRound(env *Environment, args []Node) types.Result {
	if r, ok := arity("ROUND", args, 1, 2); !ok {
		return r
	}
	num, r, ok := evalNumber(env, "ROUND", args[0])
	if !ok {
		return r
	}

	digits := 0.0
	if len(args) == 2 {
		digits, r, ok = evalNumber(env, "ROUND", args[1])
		if !ok {
			return r
		}
		if digits != math.Trunc(digits) {
			return types.Failure(types.ErrInvalidValue, "ROUND expects a whole number of digits")
		}
	}

	shift := math.Pow(10, digits)
	if math.IsInf(shift, 0) || shift == 0 {
		return types.Failure(types.ErrNotANumber, "ROUND: digits out of range")
	}
	rounded := math.Round(num*shift) / shift
	if math.IsNaN(rounded) || math.IsInf(rounded, 0) {
		return types.Failure(types.ErrNotANumber, "ROUND: result is not a finite number")
	}
	return types.Success(rounded)
}
