package vm

import (
	"math"

	"github.com/zurustar/dirplayer/pkg/datum"
)

// registerMathBuiltins registers the numeric primitives.
func (vm *VM) registerMathBuiltins() {
	// random(n) returns 1..n. random(a, b) returns a..b.
	vm.RegisterBuiltinFunction("random", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		lo, hi := int64(1), int64(0)
		var err error
		if len(args) >= 2 {
			if lo, err = argInt(args, 0); err != nil {
				return datum.Void, err
			}
			if hi, err = argInt(args, 1); err != nil {
				return datum.Void, err
			}
		} else if hi, err = argInt(args, 0); err != nil {
			return datum.Void, err
		}
		if hi < lo {
			return datum.Int(lo), nil
		}
		return datum.Int(lo + t.vm.random.Int63n(hi-lo+1)), nil
	})

	vm.RegisterBuiltinFunction("abs", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		n, err := datum.Number(arg(args, 0))
		if err != nil {
			return datum.Void, err
		}
		if n.Kind == datum.KindFloat {
			return datum.Float(math.Abs(n.F)), nil
		}
		if n.I < 0 {
			return datum.Int(-n.I), nil
		}
		return n, nil
	})

	floatFn := func(name string, fn func(float64) float64) {
		vm.RegisterBuiltinFunction(name, func(t *Task, args []datum.Datum) (datum.Datum, error) {
			f, err := datum.ToFloat(arg(args, 0))
			if err != nil {
				return datum.Void, err
			}
			return datum.Float(fn(f)), nil
		})
	}
	floatFn("sin", math.Sin)
	floatFn("cos", math.Cos)
	floatFn("tan", math.Tan)
	floatFn("atan", math.Atan)
	floatFn("exp", math.Exp)
	floatFn("log", math.Log)

	// sqrt keeps integers integral, rounding the result.
	vm.RegisterBuiltinFunction("sqrt", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		n, err := datum.Number(arg(args, 0))
		if err != nil {
			return datum.Void, err
		}
		f, _ := datum.ToFloat(n)
		if f < 0 {
			return datum.Void, NewTypeError("sqrt of negative number")
		}
		if n.Kind == datum.KindInt {
			return datum.Int(datum.Round(math.Sqrt(f))), nil
		}
		return datum.Float(math.Sqrt(f)), nil
	})

	vm.RegisterBuiltinFunction("power", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if err := needArgs("power", args, 2); err != nil {
			return datum.Void, err
		}
		x, err := datum.ToFloat(args[0])
		if err != nil {
			return datum.Void, err
		}
		y, err := datum.ToFloat(args[1])
		if err != nil {
			return datum.Void, err
		}
		return datum.Float(math.Pow(x, y)), nil
	})

	vm.RegisterBuiltinFunction("pi", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return datum.Float(math.Pi), nil
	})

	bitFn := func(name string, fn func(a, b int32) int32) {
		vm.RegisterBuiltinFunction(name, func(t *Task, args []datum.Datum) (datum.Datum, error) {
			if err := needArgs(name, args, 2); err != nil {
				return datum.Void, err
			}
			a, err := argInt(args, 0)
			if err != nil {
				return datum.Void, err
			}
			b, err := argInt(args, 1)
			if err != nil {
				return datum.Void, err
			}
			return datum.Int(int64(fn(int32(a), int32(b)))), nil
		})
	}
	bitFn("bitAnd", func(a, b int32) int32 { return a & b })
	bitFn("bitOr", func(a, b int32) int32 { return a | b })
	bitFn("bitXor", func(a, b int32) int32 { return a ^ b })

	vm.RegisterBuiltinFunction("bitNot", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		a, err := argInt(args, 0)
		if err != nil {
			return datum.Void, err
		}
		return datum.Int(int64(^int32(a))), nil
	})
}
