package vm

import (
	"errors"
	"strings"

	"github.com/zurustar/dirplayer/pkg/cast"
	"github.com/zurustar/dirplayer/pkg/datum"
	"github.com/zurustar/dirplayer/pkg/lingo"
	"github.com/zurustar/dirplayer/pkg/movie"
)

// errNotApplicable lets a builtin decline a call so dispatch continues
// with instance and movie handlers.
var errNotApplicable = errors.New("builtin not applicable")

// handlerRef is a resolved handler with the context it runs in.
type handlerRef struct {
	member  *movie.Member
	handler *lingo.Handler
	name    string
}

func (vm *VM) handlerIn(mem *movie.Member, name string) (handlerRef, bool) {
	if mem == nil || mem.Script == nil || vm.movie == nil {
		return handlerRef{}, false
	}
	h, _, ok := mem.Script.HandlerByName(vm.movie.Names(mem.Lib), name)
	if !ok {
		return handlerRef{}, false
	}
	n, _ := vm.movie.Names(mem.Lib).Get(int(h.NameID))
	return handlerRef{member: mem, handler: h, name: n}, true
}

func (vm *VM) handlerAt(mem *movie.Member, i int) (handlerRef, bool) {
	if mem == nil || mem.Script == nil || i < 0 || i >= len(mem.Script.Handlers) {
		return handlerRef{}, false
	}
	h := mem.Script.Handlers[i]
	n, _ := vm.movie.Names(mem.Lib).Get(int(h.NameID))
	return handlerRef{member: mem, handler: h, name: n}, true
}

func (vm *VM) movieScripts() []*movie.Member {
	if vm.movie == nil {
		return nil
	}
	return vm.movie.MovieScripts()
}

func (vm *VM) scriptOf(inst *datum.InstanceData) (*movie.Member, bool) {
	if vm.movie == nil {
		return nil, false
	}
	return vm.movie.Member(inst.ScriptLib, inst.ScriptMember)
}

// findInstanceHandler looks for name in the instance's script, then along
// its ancestor chain.
func (t *Task) findInstanceHandler(inst datum.Datum, name string) (handlerRef, bool, error) {
	vm := t.vm
	chain, err := vm.arena.Ancestors(inst)
	if err != nil {
		return handlerRef{}, false, err
	}
	for _, d := range chain {
		data, err := vm.arena.Instance(d)
		if err != nil {
			return handlerRef{}, false, err
		}
		mem, ok := vm.scriptOf(data)
		if !ok {
			continue
		}
		if ref, ok := vm.handlerIn(mem, name); ok {
			return ref, true, nil
		}
	}
	return handlerRef{}, false, nil
}

// invoke runs a handler in a new scope and returns the finished scope.
func (t *Task) invoke(ref handlerRef, receiver datum.Datum, args []datum.Datum) (*Scope, error) {
	vm := t.vm
	s := &Scope{
		Member:      ref.member,
		Script:      ref.member.Script,
		Handler:     ref.handler,
		ScriptName:  ScriptName(ref.member),
		HandlerName: ref.name,
		Names:       vm.movie.Names(ref.member.Lib),
		Receiver:    receiver,
		Args:        args,
		Locals:      make(map[string]datum.Datum),
	}
	if c, ok := vm.movie.Cast(ref.member.Lib); ok {
		s.Options = c.Options
	}
	if err := t.pushScope(s); err != nil {
		return nil, err
	}
	defer t.popScope()
	if err := t.run(s); err != nil {
		return s, err
	}
	return s, nil
}

// call resolves name in dispatch order and runs it:
//
//  1. builtin primitives
//  2. the handler of the instance passed as first argument, then its
//     ancestors
//  3. the behaviors of a sprite passed as first argument
//  4. movie scripts
func (t *Task) call(name string, args []datum.Datum) (datum.Datum, error) {
	vm := t.vm
	if fn, ok := vm.builtins[strings.ToLower(name)]; ok {
		v, err := fn(t, args)
		if !errors.Is(err, errNotApplicable) {
			return v, err
		}
	}
	if len(args) > 0 {
		switch args[0].Kind {
		case datum.KindInstance:
			ref, ok, err := t.findInstanceHandler(args[0], name)
			if err != nil {
				return datum.Void, err
			}
			if ok {
				return t.result(t.invoke(ref, args[0], args))
			}
		case datum.KindSpriteRef:
			if sp, ok := vm.stage.Sprite(int(args[0].I)); ok {
				for _, b := range sp.Behaviors {
					ref, ok, err := t.findInstanceHandler(b, name)
					if err != nil {
						return datum.Void, err
					}
					if ok {
						callArgs := append([]datum.Datum{b}, args[1:]...)
						return t.result(t.invoke(ref, b, callArgs))
					}
				}
			}
		case datum.KindScriptRef:
			if mem, ok := vm.movie.Member(int(args[0].I), int(args[0].J)); ok {
				if ref, ok := vm.handlerIn(mem, name); ok {
					return t.result(t.invoke(ref, args[0], args))
				}
			}
		}
	}
	for _, mem := range vm.movieScripts() {
		if ref, ok := vm.handlerIn(mem, name); ok {
			return t.result(t.invoke(ref, datum.Void, args))
		}
	}
	return datum.Void, NewHandlerNotFoundError(name)
}

func (t *Task) result(s *Scope, err error) (datum.Datum, error) {
	if err != nil {
		return datum.Void, err
	}
	if top := t.Top(); top != nil {
		top.lastCall = s.Result
	}
	return s.Result, nil
}

// newInstance creates an instance of a parent script, declares its
// properties and runs its new handler with args.
func (t *Task) newInstance(mem *movie.Member, args []datum.Datum) (datum.Datum, error) {
	vm := t.vm
	inst := vm.instantiate(mem)
	ref, ok := vm.handlerIn(mem, "new")
	if !ok {
		return inst, nil
	}
	s, err := t.invoke(ref, inst, append([]datum.Datum{inst}, args...))
	if err != nil {
		return datum.Void, err
	}
	if s.Result.IsVoid() {
		return inst, nil
	}
	return s.Result, nil
}

func (vm *VM) instantiate(mem *movie.Member) datum.Datum {
	inst := vm.arena.NewInstance(mem.Lib, mem.Number, ScriptName(mem))
	names := vm.movie.Names(mem.Lib)
	for _, id := range mem.Script.PropertyNameIDs {
		if n, ok := names.Get(int(id)); ok && !strings.EqualFold(n, datum.AncestorProp) {
			_ = vm.arena.DeclareProp(inst, n)
		}
	}
	return inst
}

func (vm *VM) newBehavior(mem *movie.Member, channel int) datum.Datum {
	inst := vm.instantiate(mem)
	if channel > 0 {
		_ = vm.arena.SetInstanceProp(inst, "spriteNum", datum.Int(int64(channel)))
	}
	return inst
}

// findScript resolves a script by member reference, name or number.
func (vm *VM) findScript(d datum.Datum) (*movie.Member, error) {
	if vm.movie == nil {
		return nil, ErrNoMovie
	}
	var mem *movie.Member
	var ok bool
	switch d.Kind {
	case datum.KindScriptRef, datum.KindMemberRef:
		mem, ok = vm.movie.Member(int(d.I), int(d.J))
	case datum.KindString, datum.KindSymbol:
		mem, ok = vm.movie.FindMember(d.S)
	case datum.KindInt:
		mem, ok = vm.movie.Member(1, int(d.I))
	}
	if !ok || mem == nil {
		return nil, NewTypeError("script not found: %s", vm.arena.Format(d))
	}
	if mem.Script == nil || mem.Type != cast.MemberScript {
		return nil, NewTypeError("%s is not a script", ScriptName(mem))
	}
	return mem, nil
}

// Call runs a handler by name outside any event, as the evaluator does.
// Breakpoints are ignored.
func (vm *VM) Call(name string, args ...datum.Datum) (datum.Datum, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.callDetached(name, args)
}

func (vm *VM) callDetached(name string, args []datum.Datum) (datum.Datum, error) {
	if vm.movie == nil {
		return datum.Void, ErrNoMovie
	}
	var result datum.Datum
	vm.taskSeq++
	t := &Task{ID: vm.taskSeq, Event: name, noBreak: true}
	vm.start(t, func(t *Task) error {
		v, err := t.call(name, args)
		result = v
		return err
	})
	if t.State == TaskSuspendedAsync {
		return datum.Void, nil
	}
	if err := vm.finishTask(t); err != nil {
		return datum.Void, err
	}
	return result, nil
}
