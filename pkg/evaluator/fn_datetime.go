package evaluator

import (
	"strings"
	"time"

	"github.com/sandrolain/goformula/pkg/types"
)

// daysPerYear is the average year length used by DATEDIFF.
const daysPerYear = 365.25

// fnToday returns the whole-day serial of the environment's current date.
// Signature: TODAY()
func fnToday(env *Environment, args []Node) types.Result {
	if r, ok := arity("TODAY", args, 0, 0); !ok {
		return r
	}
	return types.Success(types.DateSerial(env.Now()))
}

// fnNow returns the fractional serial of the environment's current moment.
// Signature: NOW()
func fnNow(env *Environment, args []Node) types.Result {
	if r, ok := arity("NOW", args, 0, 0); !ok {
		return r
	}
	return types.Success(types.TimeToSerial(env.Now()))
}

// fnDateDiff returns the difference between two dates in whole intervals.
// Only the "yyyy" interval (whole years of 365.25 days) is supported.
// Signature: DATEDIFF(interval, start, end)
func fnDateDiff(env *Environment, args []Node) types.Result {
	if r, ok := arity("DATEDIFF", args, 3, 3); !ok {
		return r
	}

	interval, r, ok := evalText(env, "DATEDIFF", args[0])
	if !ok {
		return r
	}
	start, r, ok := evalTime(env, "DATEDIFF", args[1])
	if !ok {
		return r
	}
	end, r, ok := evalTime(env, "DATEDIFF", args[2])
	if !ok {
		return r
	}

	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "yyyy":
		days := types.TimeToSerial(end) - types.TimeToSerial(start)
		// Truncated toward zero, so reversed spans mirror forward ones.
		return types.Success(int64(days / daysPerYear))
	default:
		return types.Failuref(types.ErrInvalidValue, "DATEDIFF: unsupported interval %q", interval)
	}
}

// fnYear returns the year of a date.
// Signature: YEAR(date)
func fnYear(env *Environment, args []Node) types.Result {
	return datePart(env, "YEAR", args, func(t time.Time) int { return t.Year() })
}

// fnMonth returns the month (1-12) of a date.
// Signature: MONTH(date)
func fnMonth(env *Environment, args []Node) types.Result {
	return datePart(env, "MONTH", args, func(t time.Time) int { return int(t.Month()) })
}

// fnDay returns the day of the month of a date.
// Signature: DAY(date)
func fnDay(env *Environment, args []Node) types.Result {
	return datePart(env, "DAY", args, func(t time.Time) int { return t.Day() })
}

func datePart(env *Environment, name string, args []Node, part func(time.Time) int) types.Result {
	if r, ok := arity(name, args, 1, 1); !ok {
		return r
	}
	t, r, ok := evalTime(env, name, args[0])
	if !ok {
		return r
	}
	return types.Success(int64(part(t)))
}

// evalTime evaluates n and coerces it to a timestamp.
func evalTime(env *Environment, name string, n Node) (time.Time, types.Result, bool) {
	r := n.Evaluate(env)
	if !r.OK() {
		return time.Time{}, r, false
	}
	t, ok := types.ToTime(r)
	if !ok {
		return time.Time{}, types.Failuref(types.ErrInvalidValue, "%s: cannot read %q as a date", name, r.String()), false
	}
	return t, r, true
}
