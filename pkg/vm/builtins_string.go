package vm

import (
	"strings"
	"unicode/utf8"

	"github.com/zurustar/dirplayer/pkg/datum"
	"github.com/zurustar/dirplayer/pkg/eval"
)

func (vm *VM) registerStringBuiltins() {
	vm.RegisterBuiltinFunction("length", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return datum.Int(int64(utf8.RuneCountInString(t.vm.argString(args, 0)))), nil
	})

	// chars(s, first, last) with 1-based inclusive bounds clamped to s.
	vm.RegisterBuiltinFunction("chars", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if err := needArgs("chars", args, 3); err != nil {
			return datum.Void, err
		}
		r := []rune(t.vm.argString(args, 0))
		first, err := argInt(args, 1)
		if err != nil {
			return datum.Void, err
		}
		last, err := argInt(args, 2)
		if err != nil {
			return datum.Void, err
		}
		if first < 1 {
			first = 1
		}
		if last > int64(len(r)) {
			last = int64(len(r))
		}
		if first > last {
			return datum.String(""), nil
		}
		return datum.String(string(r[first-1 : last])), nil
	})

	// offset(needle, haystack) is the 1-based rune position, or 0.
	vm.RegisterBuiltinFunction("offset", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if err := needArgs("offset", args, 2); err != nil {
			return datum.Void, err
		}
		needle := strings.ToLower(t.vm.argString(args, 0))
		hay := strings.ToLower(t.vm.argString(args, 1))
		i := strings.Index(hay, needle)
		if i < 0 {
			return datum.Int(0), nil
		}
		return datum.Int(int64(utf8.RuneCountInString(hay[:i]) + 1)), nil
	})

	vm.RegisterBuiltinFunction("string", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return datum.String(t.vm.argString(args, 0)), nil
	})

	// value parses its argument as an expression. Text that does not parse
	// yields void.
	vm.RegisterBuiltinFunction("value", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		a := arg(args, 0)
		if a.Kind != datum.KindString {
			return a, nil
		}
		if n, ok := datum.ParseNumber(a.S); ok {
			return n, nil
		}
		expr, err := eval.Parse(a.S)
		if err != nil {
			return datum.Void, nil
		}
		return eval.Evaluate(expr, evalEnv{t: t, scope: t.Top()})
	})

	vm.RegisterBuiltinFunction("integer", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		a := arg(args, 0)
		switch a.Kind {
		case datum.KindInt:
			return a, nil
		case datum.KindFloat:
			return datum.Int(datum.Round(a.F)), nil
		case datum.KindString:
			n, ok := datum.ParseNumber(strings.TrimSpace(a.S))
			if !ok {
				return datum.Void, nil
			}
			if n.Kind == datum.KindFloat {
				return datum.Int(datum.Round(n.F)), nil
			}
			return n, nil
		}
		return datum.Void, nil
	})

	vm.RegisterBuiltinFunction("float", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		a := arg(args, 0)
		switch a.Kind {
		case datum.KindInt:
			return datum.Float(float64(a.I)), nil
		case datum.KindFloat:
			return a, nil
		case datum.KindString:
			n, ok := datum.ParseNumber(strings.TrimSpace(a.S))
			if !ok {
				return a, nil
			}
			f, _ := datum.ToFloat(n)
			return datum.Float(f), nil
		}
		return a, nil
	})

	vm.RegisterBuiltinFunction("symbol", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		a := arg(args, 0)
		switch a.Kind {
		case datum.KindSymbol:
			return a, nil
		case datum.KindString:
			if a.S == "" {
				return datum.Symbol("EMPTY"), nil
			}
			return datum.Symbol(a.S), nil
		}
		return datum.Void, nil
	})

	vm.RegisterBuiltinFunction("charToNum", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		r, _ := utf8.DecodeRuneInString(t.vm.argString(args, 0))
		if r == utf8.RuneError {
			return datum.Int(0), nil
		}
		return datum.Int(int64(r)), nil
	})

	vm.RegisterBuiltinFunction("numToChar", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		n, err := argInt(args, 0)
		if err != nil {
			return datum.Void, err
		}
		if n <= 0 {
			return datum.String(""), nil
		}
		return datum.String(string(rune(n))), nil
	})

	predicate := func(name string, fn func(d datum.Datum) bool) {
		vm.RegisterBuiltinFunction(name, func(t *Task, args []datum.Datum) (datum.Datum, error) {
			return datum.Bool(fn(arg(args, 0))), nil
		})
	}
	predicate("stringP", func(d datum.Datum) bool { return d.Kind == datum.KindString })
	predicate("integerP", func(d datum.Datum) bool { return d.Kind == datum.KindInt })
	predicate("floatP", func(d datum.Datum) bool { return d.Kind == datum.KindFloat })
	predicate("symbolP", func(d datum.Datum) bool { return d.Kind == datum.KindSymbol })
	predicate("voidP", func(d datum.Datum) bool { return d.IsVoid() })
	predicate("listP", func(d datum.Datum) bool { return d.IsList() || d.Kind == datum.KindPropList })
	predicate("objectP", func(d datum.Datum) bool {
		switch d.Kind {
		case datum.KindVoid, datum.KindInt, datum.KindFloat, datum.KindString, datum.KindSymbol:
			return false
		}
		return true
	})

	// ilk(v) returns the type symbol; ilk(v, #type) tests it.
	vm.RegisterBuiltinFunction("ilk", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		a := arg(args, 0)
		if len(args) > 1 {
			want := strings.ToLower(t.vm.argString(args, 1))
			got := strings.ToLower(a.Ilk())
			switch want {
			case "list":
				return datum.Bool(a.Kind == datum.KindList || a.Kind == datum.KindPropList), nil
			case "linearlist":
				return datum.Bool(a.Kind == datum.KindList), nil
			case "number":
				return datum.Bool(a.IsNumber()), nil
			case "object":
				return datum.Bool(a.Kind != datum.KindVoid), nil
			}
			return datum.Bool(got == want), nil
		}
		return datum.Symbol(a.Ilk()), nil
	})
}
