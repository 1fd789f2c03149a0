package vm

import (
	"github.com/zurustar/dirplayer/pkg/datum"
)

// listBuiltin wraps a list primitive so that an instance passed as the
// first argument gets its own handler of the same name when it has one.
func (vm *VM) listBuiltin(name string, minArgs int, fn BuiltinFunc) {
	vm.RegisterBuiltinFunction(name, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if t.instanceDefines(args, name) {
			return datum.Void, errNotApplicable
		}
		if err := needArgs(name, args, minArgs); err != nil {
			return datum.Void, err
		}
		return fn(t, args)
	})
}

func (t *Task) instanceDefines(args []datum.Datum, name string) bool {
	if len(args) == 0 || args[0].Kind != datum.KindInstance {
		return false
	}
	_, ok, err := t.findInstanceHandler(args[0], name)
	return ok && err == nil
}

func index(args []datum.Datum, i int) (int, error) {
	n, err := argInt(args, i)
	return int(n), err
}

func (vm *VM) registerListBuiltins() {
	vm.RegisterBuiltinFunction("list", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return t.vm.arena.NewList(args...), nil
	})

	vm.RegisterBuiltinFunction("propList", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if len(args)%2 != 0 {
			return datum.Void, NewTypeError("propList needs property and value pairs")
		}
		entries := make([]datum.PropEntry, 0, len(args)/2)
		for i := 0; i < len(args); i += 2 {
			entries = append(entries, datum.PropEntry{Key: args[i], Value: args[i+1]})
		}
		return t.vm.arena.NewPropList(entries...), nil
	})

	vm.listBuiltin("count", 1, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		n, err := t.vm.arena.Count(args[0])
		return datum.Int(int64(n)), err
	})

	vm.listBuiltin("getAt", 2, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		i, err := index(args, 1)
		if err != nil {
			return datum.Void, err
		}
		return t.vm.arena.GetAt(args[0], i)
	})

	vm.listBuiltin("setAt", 3, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		i, err := index(args, 1)
		if err != nil {
			return datum.Void, err
		}
		return datum.Void, t.vm.arena.SetAt(args[0], i, args[2])
	})

	vm.listBuiltin("append", 2, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return datum.Void, t.vm.arena.Append(args[0], args[1])
	})

	vm.listBuiltin("add", 2, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return datum.Void, t.vm.arena.ListAdd(args[0], args[1])
	})

	vm.listBuiltin("addAt", 3, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		i, err := index(args, 1)
		if err != nil {
			return datum.Void, err
		}
		return datum.Void, t.vm.arena.AddAt(args[0], i, args[2])
	})

	vm.listBuiltin("deleteAt", 2, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		i, err := index(args, 1)
		if err != nil {
			return datum.Void, err
		}
		return datum.Void, t.vm.arena.DeleteAt(args[0], i)
	})

	vm.listBuiltin("deleteOne", 2, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		ok, err := t.vm.arena.DeleteOne(args[0], args[1])
		return datum.Bool(ok), err
	})

	vm.listBuiltin("deleteAll", 1, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		arena := t.vm.arena
		switch args[0].Kind {
		case datum.KindList:
			l, err := arena.List(args[0])
			if err != nil {
				return datum.Void, err
			}
			l.Items = l.Items[:0]
		case datum.KindPropList:
			p, err := arena.PropList(args[0])
			if err != nil {
				return datum.Void, err
			}
			p.Entries = p.Entries[:0]
		default:
			return datum.Void, NewTypeError("deleteAll expects a list, got %s", args[0].Ilk())
		}
		return datum.Void, nil
	})

	vm.listBuiltin("getPos", 2, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		n, err := t.vm.arena.GetPos(args[0], args[1])
		return datum.Int(int64(n)), err
	})

	vm.listBuiltin("getOne", 2, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return t.vm.arena.GetOne(args[0], args[1])
	})

	vm.listBuiltin("getLast", 1, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return t.vm.arena.GetLast(args[0])
	})

	vm.listBuiltin("getFirst", 1, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		n, err := t.vm.arena.Count(args[0])
		if err != nil || n == 0 {
			return datum.Void, err
		}
		return t.vm.arena.GetAt(args[0], 1)
	})

	vm.listBuiltin("sort", 1, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return datum.Void, t.vm.arena.Sort(args[0])
	})

	vm.listBuiltin("duplicate", 1, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return t.vm.arena.Duplicate(args[0])
	})

	vm.RegisterBuiltinFunction("max", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return t.vm.extreme(args, 1)
	})
	vm.RegisterBuiltinFunction("min", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return t.vm.extreme(args, -1)
	})

	vm.listBuiltin("getProp", 2, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if args[0].Kind == datum.KindInstance {
			return t.instanceProp(args[0], args[1], true)
		}
		return t.vm.arena.GetProp(args[0], args[1])
	})

	vm.listBuiltin("getaProp", 2, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if args[0].Kind == datum.KindInstance {
			return t.instanceProp(args[0], args[1], false)
		}
		if args[0].Kind == datum.KindList {
			i, err := datum.ToInt(args[1])
			if err != nil {
				return datum.Void, err
			}
			return t.vm.arena.GetAt(args[0], int(i))
		}
		v, _, err := t.vm.arena.GetaProp(args[0], args[1])
		return v, err
	})

	setProp := func(t *Task, args []datum.Datum) (datum.Datum, error) {
		arena := t.vm.arena
		switch args[0].Kind {
		case datum.KindInstance:
			return datum.Void, arena.SetInstanceProp(args[0], arena.String(args[1]), args[2])
		case datum.KindList:
			i, err := datum.ToInt(args[1])
			if err != nil {
				return datum.Void, err
			}
			return datum.Void, arena.SetAt(args[0], int(i), args[2])
		}
		return datum.Void, arena.SetaProp(args[0], args[1], args[2])
	}
	vm.listBuiltin("setaProp", 3, setProp)
	vm.listBuiltin("setProp", 3, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if args[0].Kind == datum.KindPropList {
			return datum.Void, t.vm.arena.SetProp(args[0], args[1], args[2])
		}
		return setProp(t, args)
	})

	vm.listBuiltin("addProp", 3, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return datum.Void, t.vm.arena.AddProp(args[0], args[1], args[2])
	})

	vm.listBuiltin("deleteProp", 2, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if args[0].Kind == datum.KindList {
			i, err := datum.ToInt(args[1])
			if err != nil {
				return datum.Void, err
			}
			return datum.Void, t.vm.arena.DeleteAt(args[0], int(i))
		}
		_, err := t.vm.arena.DeleteProp(args[0], args[1])
		return datum.Void, err
	})

	vm.listBuiltin("getPropAt", 2, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		i, err := index(args, 1)
		if err != nil {
			return datum.Void, err
		}
		if args[0].Kind == datum.KindInstance {
			inst, err := t.vm.arena.Instance(args[0])
			if err != nil {
				return datum.Void, err
			}
			if i < 1 || i > len(inst.Props) {
				return datum.Void, NewIndexOutOfRangeError(i, len(inst.Props))
			}
			return datum.Symbol(inst.Props[i-1].Name), nil
		}
		return t.vm.arena.GetPropAt(args[0], i)
	})

	vm.listBuiltin("findPos", 2, func(t *Task, args []datum.Datum) (datum.Datum, error) {
		n, err := t.vm.arena.FindPos(args[0], args[1])
		if err != nil || n == 0 {
			return datum.Void, err
		}
		return datum.Int(int64(n)), nil
	})
}

// instanceProp reads a property of an instance or its ancestors. strict
// raises an error for a missing property, as getProp does.
func (t *Task) instanceProp(inst, key datum.Datum, strict bool) (datum.Datum, error) {
	name := t.vm.arena.String(key)
	v, ok, err := t.vm.arena.InstanceProp(inst, name)
	if err != nil {
		return datum.Void, err
	}
	if !ok && strict {
		return datum.Void, NewTypeError("property %s not found", name)
	}
	return v, nil
}

// extreme implements max and min over a single list argument or over the
// arguments themselves.
func (vm *VM) extreme(args []datum.Datum, sign int) (datum.Datum, error) {
	if len(args) == 1 && args[0].IsList() {
		if sign > 0 {
			return vm.arena.Max(args[0])
		}
		return vm.arena.Min(args[0])
	}
	if len(args) == 0 {
		return datum.Void, nil
	}
	best := args[0]
	for _, a := range args[1:] {
		c, err := vm.arena.Compare(a, best)
		if err != nil {
			return datum.Void, err
		}
		if c*sign > 0 {
			best = a
		}
	}
	return best, nil
}
