package vm

import (
	"strconv"
	"strings"
	"time"

	"github.com/zurustar/dirplayer/pkg/cast"
	"github.com/zurustar/dirplayer/pkg/datum"
)

func (vm *VM) registerObjectBuiltins() {
	// new creates script instances and, called on a timeout reference,
	// timeouts: timeout("t").new(period, #handler, target).
	vm.RegisterBuiltinFunction("new", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		a := arg(args, 0)
		switch a.Kind {
		case datum.KindTimeout:
			return t.vm.newTimeout(a.S, args[1:])
		case datum.KindScriptRef, datum.KindMemberRef, datum.KindString:
			mem, err := t.vm.findScript(a)
			if err != nil {
				return datum.Void, err
			}
			return t.newInstance(mem, args[1:])
		}
		return datum.Void, errNotApplicable
	})

	vm.RegisterBuiltinFunction("script", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if err := needArgs("script", args, 1); err != nil {
			return datum.Void, err
		}
		m, err := t.vm.resolveMember(args[0], arg(args, 1))
		if err != nil {
			return datum.Void, err
		}
		if m.Script == nil {
			return datum.Void, NewTypeError("%s is not a script", ScriptName(m))
		}
		return datum.ScriptRef(m.Lib, m.Number), nil
	})

	// handler(obj, #name) reports whether obj defines a handler.
	vm.RegisterBuiltinFunction("handler", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if err := needArgs("handler", args, 2); err != nil {
			return datum.Void, err
		}
		name := t.vm.argString(args, 1)
		switch args[0].Kind {
		case datum.KindInstance:
			_, ok, err := t.findInstanceHandler(args[0], name)
			return datum.Bool(ok), err
		case datum.KindScriptRef, datum.KindMemberRef:
			mem, err := t.vm.findScript(args[0])
			if err != nil {
				return datum.Void, err
			}
			_, ok := t.vm.handlerIn(mem, name)
			return datum.Bool(ok), nil
		}
		return datum.Int(0), nil
	})

	vm.RegisterBuiltinFunction("handlers", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		a := arg(args, 0)
		if a.Kind == datum.KindInstance {
			inst, err := t.vm.arena.Instance(a)
			if err != nil {
				return datum.Void, err
			}
			a = datum.ScriptRef(inst.ScriptLib, inst.ScriptMember)
		}
		mem, err := t.vm.findScript(a)
		if err != nil {
			return datum.Void, err
		}
		names := t.vm.movie.Names(mem.Lib)
		out := make([]datum.Datum, 0, len(mem.Script.Handlers))
		for _, h := range mem.Script.Handlers {
			if n, ok := names.Get(int(h.NameID)); ok {
				out = append(out, datum.Symbol(n))
			}
		}
		return t.vm.arena.NewList(out...), nil
	})

	// call(#handler, target, args...) sends to an instance or to every
	// instance of a list. Targets without the handler are skipped.
	vm.RegisterBuiltinFunction("call", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if err := needArgs("call", args, 2); err != nil {
			return datum.Void, err
		}
		name := t.vm.argString(args, 0)
		targets := []datum.Datum{args[1]}
		if args[1].IsList() {
			l, err := t.vm.arena.List(args[1])
			if err != nil {
				return datum.Void, err
			}
			targets = append([]datum.Datum(nil), l.Items...)
		}
		return t.callEach(targets, name, args[2:], false)
	})

	// callAncestor(#handler, me, args...) skips me's own script.
	vm.RegisterBuiltinFunction("callAncestor", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if err := needArgs("callAncestor", args, 2); err != nil {
			return datum.Void, err
		}
		name := t.vm.argString(args, 0)
		targets := []datum.Datum{args[1]}
		if args[1].IsList() {
			l, err := t.vm.arena.List(args[1])
			if err != nil {
				return datum.Void, err
			}
			targets = append([]datum.Datum(nil), l.Items...)
		}
		return t.callEach(targets, name, args[2:], true)
	})

	vm.RegisterBuiltinFunction("sendSprite", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if err := needArgs("sendSprite", args, 2); err != nil {
			return datum.Void, err
		}
		n, err := spriteNumber(args[0])
		if err != nil {
			return datum.Void, err
		}
		sp, ok := t.vm.stage.Sprite(n)
		if !ok {
			return datum.Void, NewIndexOutOfRangeError(n, len(t.vm.stage.Sprites))
		}
		return t.callEach(append([]datum.Datum(nil), sp.Behaviors...), t.vm.argString(args, 1), args[2:], false)
	})

	vm.RegisterBuiltinFunction("sendAllSprites", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if err := needArgs("sendAllSprites", args, 1); err != nil {
			return datum.Void, err
		}
		var behaviors []datum.Datum
		for _, sp := range t.vm.stage.Sprites {
			behaviors = append(behaviors, sp.Behaviors...)
		}
		return t.callEach(behaviors, t.vm.argString(args, 0), args[1:], false)
	})

	// member(id[, castLib]) refers to a member by number or name. Numbered
	// references need not exist.
	vm.RegisterBuiltinFunction("member", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return t.vm.memberRef(args)
	})

	vm.RegisterBuiltinFunction("field", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		ref, err := t.vm.memberRef(args)
		if err != nil {
			return datum.Void, err
		}
		switch t.vm.memberTypeOf(ref) {
		case cast.MemberText, cast.MemberButton, cast.MemberRTE, cast.MemberNull:
			return ref, nil
		}
		return datum.Void, NewTypeError("member %d of castLib %d is not a field", ref.J, ref.I)
	})

	vm.RegisterBuiltinFunction("sprite", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		n, err := spriteNumber(arg(args, 0))
		if err != nil {
			return datum.Void, err
		}
		if _, ok := t.vm.stage.Sprite(n); !ok {
			return datum.Void, NewIndexOutOfRangeError(n, len(t.vm.stage.Sprites))
		}
		return datum.SpriteRef(n), nil
	})

	vm.RegisterBuiltinFunction("castLib", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		a := arg(args, 0)
		if a.Kind == datum.KindString {
			c, ok := t.vm.movie.CastByName(a.S)
			if !ok {
				return datum.Void, NewTypeError("castLib %q not found", a.S)
			}
			return datum.CastLibRef(c.Number), nil
		}
		n, err := datum.ToInt(a)
		if err != nil {
			return datum.Void, err
		}
		if _, ok := t.vm.movie.Cast(int(n)); !ok {
			return datum.Void, NewTypeError("castLib %d not found", n)
		}
		return datum.CastLibRef(int(n)), nil
	})

	vm.RegisterBuiltinFunction("point", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		v, err := intArgs("point", args, 2)
		if err != nil {
			return datum.Void, err
		}
		return datum.Point(v[0], v[1]), nil
	})

	// rect(l, t, r, b) or rect(topLeft, bottomRight).
	vm.RegisterBuiltinFunction("rect", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if len(args) == 2 && args[0].Kind == datum.KindPoint && args[1].Kind == datum.KindPoint {
			return datum.Rect(args[0].P[0], args[0].P[1], args[1].P[0], args[1].P[1]), nil
		}
		v, err := intArgs("rect", args, 4)
		if err != nil {
			return datum.Void, err
		}
		return datum.Rect(v[0], v[1], v[2], v[3]), nil
	})

	// rgb(r, g, b) or rgb("#RRGGBB").
	vm.RegisterBuiltinFunction("rgb", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if len(args) == 1 && args[0].Kind == datum.KindString {
			hex := strings.TrimPrefix(args[0].S, "#")
			n, err := strconv.ParseUint(hex, 16, 32)
			if err != nil || len(hex) != 6 {
				return datum.Void, NewTypeError("invalid color %q", args[0].S)
			}
			return datum.RGB(int64(n>>16&0xff), int64(n>>8&0xff), int64(n&0xff)), nil
		}
		v, err := intArgs("rgb", args, 3)
		if err != nil {
			return datum.Void, err
		}
		return datum.RGB(v[0], v[1], v[2]), nil
	})

	vm.RegisterBuiltinFunction("paletteIndex", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		n, err := argInt(args, 0)
		if err != nil {
			return datum.Void, err
		}
		return datum.PaletteIndex(n), nil
	})

	vm.RegisterBuiltinFunction("timeout", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if err := needArgs("timeout", args, 1); err != nil {
			return datum.Void, err
		}
		return datum.Timeout(t.vm.argString(args, 0)), nil
	})

	vm.RegisterBuiltinFunction("forget", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		a := arg(args, 0)
		if a.Kind != datum.KindTimeout {
			return datum.Void, errNotApplicable
		}
		t.vm.timeouts.remove(a.S)
		return datum.Void, nil
	})
}

// callEach sends name to each target that defines it and returns the last
// result. With skipOwn the search starts at each target's ancestor.
func (t *Task) callEach(targets []datum.Datum, name string, args []datum.Datum, skipOwn bool) (datum.Datum, error) {
	result := datum.Void
	for _, target := range targets {
		if target.Kind != datum.KindInstance {
			continue
		}
		start := target
		if skipOwn {
			anc, err := t.vm.arena.Ancestor(target)
			if err != nil {
				return datum.Void, err
			}
			if anc.Kind != datum.KindInstance {
				continue
			}
			start = anc
		}
		ref, ok, err := t.findInstanceHandler(start, name)
		if err != nil {
			return datum.Void, err
		}
		if !ok {
			continue
		}
		v, err := t.result(t.invoke(ref, target, append([]datum.Datum{target}, args...)))
		if err != nil {
			return datum.Void, err
		}
		result = v
	}
	return result, nil
}

func (vm *VM) memberRef(args []datum.Datum) (datum.Datum, error) {
	if err := needArgs("member", args, 1); err != nil {
		return datum.Void, err
	}
	id, lib := args[0], arg(args, 1)
	if id.Kind == datum.KindMemberRef {
		return id, nil
	}
	if id.IsNumber() {
		l, n, err := vm.memberNumber(id, 0)
		if err != nil {
			return datum.Void, err
		}
		if !lib.IsVoid() {
			m, err := vm.resolveMember(datum.Int(int64(n)), lib)
			if err != nil {
				return datum.Void, err
			}
			l = m.Lib
		}
		return datum.MemberRef(l, n), nil
	}
	m, err := vm.resolveMember(id, lib)
	if err != nil {
		return datum.Void, err
	}
	return datum.MemberRef(m.Lib, m.Number), nil
}

func intArgs(name string, args []datum.Datum, n int) ([]int64, error) {
	if err := needArgs(name, args, n); err != nil {
		return nil, err
	}
	out := make([]int64, n)
	for i := range out {
		v, err := datum.Number(args[i])
		if err != nil {
			return nil, err
		}
		if v.Kind == datum.KindFloat {
			out[i] = datum.Round(v.F)
		} else {
			out[i] = v.I
		}
	}
	return out, nil
}

// newTimeout implements timeout(name).new(period, #handler[, target]).
func (vm *VM) newTimeout(name string, args []datum.Datum) (datum.Datum, error) {
	if err := needArgs("new", args, 2); err != nil {
		return datum.Void, err
	}
	ms, err := datum.ToInt(args[0])
	if err != nil {
		return datum.Void, err
	}
	if ms <= 0 {
		return datum.Void, NewTypeError("timeout period must be positive, got %d", ms)
	}
	vm.addTimeout(&Timeout{
		Name:    name,
		Period:  time.Duration(ms) * time.Millisecond,
		Handler: vm.arena.String(args[1]),
		Target:  arg(args, 2),
	})
	return datum.Timeout(name), nil
}
