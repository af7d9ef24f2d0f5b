package expr

import (
	"fmt"
	"math"
	"sort"
)

// builtin describes one allow-listed function. The allow-list is the whole
// function surface of the language: there is no way to call anything else.
type builtin struct {
	name           string
	minArgs        int
	maxArgs        int  // -1 means variadic
	absorbsMissing bool // missing-field errors in arguments become null
	impl           func(args []Value) (Value, error)
}

func (b builtin) checkArity(n int) error {
	if n < b.minArgs {
		return fmt.Errorf("%s expects at least %d argument(s), got %d", b.name, b.minArgs, n)
	}
	if b.maxArgs >= 0 && n > b.maxArgs {
		return fmt.Errorf("%s expects at most %d argument(s), got %d", b.name, b.maxArgs, n)
	}
	return nil
}

func (b builtin) call(n *callNode, ctx *Context) (Value, error) {
	args := make([]Value, len(n.args))
	for i, argNode := range n.args {
		v, err := argNode.eval(ctx)
		if err != nil {
			// The null-handling builtins see an absent field as null;
			// that is what makes them usable as guards.
			if b.absorbsMissing && IsMissingField(err) {
				v = Null()
			} else {
				return Null(), err
			}
		}
		args[i] = v
	}
	return b.impl(args)
}

var builtins = map[string]builtin{
	"pctl": {
		name: "pctl", minArgs: 2, maxArgs: 2,
		impl: fnPctl,
	},
	"isnull": {
		name: "isnull", minArgs: 1, maxArgs: 1, absorbsMissing: true,
		impl: func(args []Value) (Value, error) {
			return Bool(args[0].IsNull()), nil
		},
	},
	"nz": {
		name: "nz", minArgs: 1, maxArgs: 2, absorbsMissing: true,
		impl: func(args []Value) (Value, error) {
			if !args[0].IsNull() {
				return args[0], nil
			}
			if len(args) == 2 {
				return args[1], nil
			}
			return Number(0), nil
		},
	},
	"coalesce": {
		name: "coalesce", minArgs: 1, maxArgs: -1, absorbsMissing: true,
		impl: func(args []Value) (Value, error) {
			for _, a := range args {
				if !a.IsNull() {
					return a, nil
				}
			}
			return Null(), nil
		},
	},
	"abs":   numericBuiltin("abs", math.Abs),
	"floor": numericBuiltin("floor", math.Floor),
	"ceil":  numericBuiltin("ceil", math.Ceil),
	"round": numericBuiltin("round", math.Round),
	"sqrt": {
		name: "sqrt", minArgs: 1, maxArgs: 1,
		impl: func(args []Value) (Value, error) {
			f, err := argNumber("sqrt", args, 0)
			if err != nil {
				return Null(), err
			}
			if f < 0 {
				return Null(), newEvalError("sqrt of negative number %g", f)
			}
			return Number(math.Sqrt(f)), nil
		},
	},
	"log": {
		name: "log", minArgs: 1, maxArgs: 1,
		impl: func(args []Value) (Value, error) {
			f, err := argNumber("log", args, 0)
			if err != nil {
				return Null(), err
			}
			if f <= 0 {
				return Null(), newEvalError("log of non-positive number %g", f)
			}
			return Number(math.Log(f)), nil
		},
	},
	"min": {
		name: "min", minArgs: 2, maxArgs: -1,
		impl: func(args []Value) (Value, error) {
			return foldNumbers("min", args, math.Min)
		},
	},
	"max": {
		name: "max", minArgs: 2, maxArgs: -1,
		impl: func(args []Value) (Value, error) {
			return foldNumbers("max", args, math.Max)
		},
	},
}

func numericBuiltin(name string, fn func(float64) float64) builtin {
	return builtin{
		name: name, minArgs: 1, maxArgs: 1,
		impl: func(args []Value) (Value, error) {
			f, err := argNumber(name, args, 0)
			if err != nil {
				return Null(), err
			}
			return Number(fn(f)), nil
		},
	}
}

func argNumber(name string, args []Value, i int) (float64, error) {
	f, err := args[i].AsNumber()
	if err != nil {
		return 0, newEvalError("argument %d of %s: %s", i+1, name, err.Error())
	}
	return f, nil
}

func foldNumbers(name string, args []Value, fn func(a, b float64) float64) (Value, error) {
	acc, err := argNumber(name, args, 0)
	if err != nil {
		return Null(), err
	}
	for i := 1; i < len(args); i++ {
		f, err := argNumber(name, args, i)
		if err != nil {
			return Null(), err
		}
		acc = fn(acc, f)
	}
	return Number(acc), nil
}

// fnPctl computes a linear-interpolated percentile over a series.
// p is in [0, 100].
func fnPctl(args []Value) (Value, error) {
	series, err := args[0].AsSeries()
	if err != nil {
		return Null(), newEvalError("argument 1 of pctl: %s", err.Error())
	}
	p, err := argNumber("pctl", args, 1)
	if err != nil {
		return Null(), err
	}
	if p < 0 || p > 100 {
		return Null(), newEvalError("pctl percentile must be in [0, 100], got %g", p)
	}
	if len(series) == 0 {
		return Null(), newEvalError("pctl of empty series")
	}

	sorted := make([]float64, len(series))
	copy(sorted, series)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return Number(sorted[0]), nil
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return Number(sorted[lo]), nil
	}
	frac := rank - float64(lo)
	return Number(sorted[lo] + (sorted[hi]-sorted[lo])*frac), nil
}
