package vm

import (
	"strings"

	"github.com/zurustar/dirplayer/pkg/datum"
	"github.com/zurustar/dirplayer/pkg/opcode"
)

func (t *Task) executeCall(s *Scope, op opcode.OpCode) error {
	vm := t.vm
	args, noRet, err := t.popArgs(s)
	if err != nil {
		return err
	}
	var v datum.Datum
	switch op.Cmd {
	case opcode.LocalCall:
		ref, ok := vm.handlerAt(s.Member, int(op.Obj))
		if !ok {
			return NewInvalidOperationError("local handler %d out of range", op.Obj)
		}
		receiver := s.Receiver
		if len(args) > 0 && args[0].Kind == datum.KindInstance {
			if r, ok, _ := t.findInstanceHandler(args[0], ref.name); ok && r.member == ref.member {
				receiver = args[0]
			}
		}
		v, err = t.result(t.invoke(ref, receiver, args))

	case opcode.ExtCall, opcode.ObjCall:
		name, err2 := s.name(op.Obj)
		if err2 != nil {
			return err2
		}
		v, err = t.call(name, args)

	case opcode.ObjCallV4:
		cv, err2 := t.popContextVar(s, int(op.Obj))
		if err2 != nil {
			return err2
		}
		obj, err2 := t.getVar(s, cv)
		if err2 != nil {
			return err2
		}
		if len(args) == 0 || args[0].Kind != datum.KindSymbol {
			return NewTypeError("object call needs a method symbol")
		}
		v, err = t.call(args[0].S, append([]datum.Datum{obj}, args[1:]...))

	case opcode.TellCall:
		name, err2 := s.name(op.Obj)
		if err2 != nil {
			return err2
		}
		v, err = t.tellCall(name, args)

	case opcode.NewObj:
		kind, err2 := s.name(op.Obj)
		if err2 != nil {
			return err2
		}
		if !strings.EqualFold(kind, "script") || len(args) == 0 {
			return NewTypeError("cannot create new %s", kind)
		}
		mem, err2 := vm.findScript(args[0])
		if err2 != nil {
			return err2
		}
		v, err = t.newInstance(mem, args[1:])
	}
	if err != nil {
		return err
	}
	s.lastCall = v
	if !noRet {
		s.push(v)
	}
	return nil
}

// tellCall sends name to the innermost tell target. Instances and sprites
// receive it like an event; anything else falls back to a normal call.
func (t *Task) tellCall(name string, args []datum.Datum) (datum.Datum, error) {
	if len(t.tell) == 0 {
		return t.call(name, args)
	}
	target := t.tell[len(t.tell)-1]
	switch target.Kind {
	case datum.KindInstance, datum.KindSpriteRef:
		return t.call(name, append([]datum.Datum{target}, args...))
	}
	return t.call(name, args)
}
