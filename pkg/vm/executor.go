package vm

import (
	"errors"
	"image"
	"math"
	"strings"

	"github.com/zurustar/dirplayer/pkg/datum"
	"github.com/zurustar/dirplayer/pkg/lingo"
	"github.com/zurustar/dirplayer/pkg/opcode"
)

// stop is returned by execute when the handler returns.
const stop = -1

// run executes s from its current index until ret or the end of its
// bytecode. Errors carry the position of the failing instruction.
func (t *Task) run(s *Scope) error {
	code := s.Handler.Bytecode
	for s.Index < len(code) {
		if err := t.checkpoint(s); err != nil {
			return err
		}
		next, err := t.execute(s, code[s.Index])
		if err != nil {
			if isCancelled(err) || errors.Is(err, errAbort) {
				return err
			}
			return at(s, err)
		}
		if next == stop || s.exit {
			return nil
		}
		s.Index = next
	}
	return nil
}

// execute runs one instruction and returns the index of the next one.
func (t *Task) execute(s *Scope, op opcode.OpCode) (int, error) {
	next := s.Index + 1
	var err error
	switch op.Cmd {
	case opcode.Ret, opcode.RetFactory:
		s.Stack = s.Stack[:0]
		return stop, nil

	case opcode.Jmp:
		return t.jump(s, op.Pos+int(op.Obj))
	case opcode.EndRepeat:
		return t.jump(s, op.Pos-int(op.Obj))
	case opcode.JmpIfZ:
		v, err := s.pop()
		if err != nil {
			return 0, err
		}
		if !datum.Truthy(v) {
			return t.jump(s, op.Pos+int(op.Obj))
		}

	case opcode.PushZero, opcode.PushInt8, opcode.PushInt16, opcode.PushInt32,
		opcode.PushFloat32, opcode.PushCons, opcode.PushSymb,
		opcode.PushArgList, opcode.PushArgListNoRet, opcode.PushList,
		opcode.PushPropList, opcode.Swap, opcode.Peek, opcode.Pop:
		err = t.executeStack(s, op)

	case opcode.Mul, opcode.Add, opcode.Sub, opcode.Div, opcode.Mod, opcode.Inv:
		err = t.executeArithmetic(s, op)

	case opcode.Lt, opcode.LtEq, opcode.NtEq, opcode.Eq, opcode.Gt, opcode.GtEq,
		opcode.And, opcode.Or, opcode.Not:
		err = t.executeComparison(s, op)

	case opcode.JoinStr, opcode.JoinPadStr, opcode.ContainsStr, opcode.Contains0Str,
		opcode.GetChunk, opcode.HiliteChunk, opcode.GetField:
		err = t.executeString(s, op)

	case opcode.OntoSpr, opcode.IntoSpr:
		err = t.executeSpriteTest(s, op)

	case opcode.GetGlobal, opcode.GetGlobal2, opcode.SetGlobal, opcode.SetGlobal2,
		opcode.GetProp, opcode.SetProp, opcode.GetParam, opcode.SetParam,
		opcode.GetLocal, opcode.SetLocal, opcode.PushVarRef:
		err = t.executeVariable(s, op)

	case opcode.Put, opcode.PutChunk, opcode.DeleteChunk, opcode.PushChunkVarRef:
		err = t.executePut(s, op)

	case opcode.Get, opcode.Set, opcode.GetMovieProp, opcode.SetMovieProp,
		opcode.GetObjProp, opcode.SetObjProp, opcode.GetChainedProp,
		opcode.GetTopLevelProp, opcode.TheBuiltin:
		err = t.executeProperty(s, op)

	case opcode.LocalCall, opcode.ExtCall, opcode.ObjCall, opcode.ObjCallV4,
		opcode.TellCall, opcode.NewObj:
		err = t.executeCall(s, op)

	case opcode.StartTell:
		v, err := s.pop()
		if err != nil {
			return 0, err
		}
		t.tell = append(t.tell, v)
	case opcode.EndTell:
		if len(t.tell) > 0 {
			t.tell = t.tell[:len(t.tell)-1]
		}

	case opcode.CallJavaScript:
		return 0, NewInvalidOperationError("calljavascript is not supported")

	default:
		return 0, NewInvalidOperationError("unknown opcode %s", op.Cmd)
	}
	if err != nil {
		return 0, err
	}
	return next, nil
}

// jump returns the index of the instruction at byte offset pos. A target
// past the last instruction ends the handler.
func (t *Task) jump(s *Scope, pos int) (int, error) {
	if i, ok := s.Handler.IndexOf(pos); ok {
		return i, nil
	}
	code := s.Handler.Bytecode
	if len(code) == 0 || pos > code[len(code)-1].Pos {
		return len(code), nil
	}
	return 0, NewInvalidOperationError("jump to %d does not land on an instruction", pos)
}

func literalDatum(lit lingo.Literal) datum.Datum {
	switch lit.Kind {
	case lingo.LiteralString:
		return datum.String(lit.Str)
	case lingo.LiteralInt:
		return datum.Int(int64(lit.Int))
	case lingo.LiteralFloat:
		return datum.Float(lit.Float)
	}
	return datum.Void
}

// popArgs pops an argument list and returns a copy of its items.
func (t *Task) popArgs(s *Scope) ([]datum.Datum, bool, error) {
	v, err := s.pop()
	if err != nil {
		return nil, false, err
	}
	if v.Kind != datum.KindArgList && v.Kind != datum.KindArgListNoRet {
		return nil, false, NewInvalidOperationError("expected an argument list, got %s", v.Ilk())
	}
	l, err := t.vm.arena.List(v)
	if err != nil {
		return nil, false, err
	}
	return append([]datum.Datum(nil), l.Items...), v.Kind == datum.KindArgListNoRet, nil
}

func (t *Task) executeStack(s *Scope, op opcode.OpCode) error {
	arena := t.vm.arena
	switch op.Cmd {
	case opcode.PushZero:
		s.push(datum.Int(0))
	case opcode.PushInt8, opcode.PushInt16, opcode.PushInt32:
		s.push(datum.Int(op.Obj))
	case opcode.PushFloat32:
		s.push(datum.Float(float64(math.Float32frombits(uint32(op.Obj)))))
	case opcode.PushCons:
		lit, ok := s.Script.Literal(op.Obj, s.Options)
		if !ok {
			return NewInvalidOperationError("literal %d out of range", op.Obj)
		}
		s.push(literalDatum(lit))
	case opcode.PushSymb:
		n, err := s.name(op.Obj)
		if err != nil {
			return err
		}
		s.push(datum.Symbol(n))
	case opcode.PushArgList, opcode.PushArgListNoRet:
		items, err := s.popN(int(op.Obj))
		if err != nil {
			return err
		}
		s.push(arena.NewArgList(op.Cmd == opcode.PushArgListNoRet, items...))
	case opcode.PushList:
		items, _, err := t.popArgs(s)
		if err != nil {
			return err
		}
		s.push(arena.NewList(items...))
	case opcode.PushPropList:
		items, _, err := t.popArgs(s)
		if err != nil {
			return err
		}
		if len(items)%2 != 0 {
			return NewTypeError("property list literal has %d values", len(items))
		}
		entries := make([]datum.PropEntry, 0, len(items)/2)
		for i := 0; i < len(items); i += 2 {
			entries = append(entries, datum.PropEntry{Key: items[i], Value: items[i+1]})
		}
		s.push(arena.NewPropList(entries...))
	case opcode.Swap:
		v, err := s.popN(2)
		if err != nil {
			return err
		}
		s.push(v[1])
		s.push(v[0])
	case opcode.Peek:
		i := len(s.Stack) - 1 - int(op.Obj)
		if i < 0 || i >= len(s.Stack) {
			return NewInvalidOperationError("peek %d past the operand stack", op.Obj)
		}
		s.push(s.Stack[i])
	case opcode.Pop:
		if _, err := s.popN(int(op.Obj)); err != nil {
			return err
		}
	}
	return nil
}

func (t *Task) executeArithmetic(s *Scope, op opcode.OpCode) error {
	arena := t.vm.arena
	if op.Cmd == opcode.Inv {
		x, err := s.pop()
		if err != nil {
			return err
		}
		v, err := arena.Negate(x)
		if err != nil {
			return err
		}
		s.push(v)
		return nil
	}
	y, err := s.pop()
	if err != nil {
		return err
	}
	x, err := s.pop()
	if err != nil {
		return err
	}
	var ar datum.Op
	switch op.Cmd {
	case opcode.Add:
		ar = datum.OpAdd
	case opcode.Sub:
		ar = datum.OpSub
	case opcode.Mul:
		ar = datum.OpMul
	case opcode.Div:
		ar = datum.OpDiv
	case opcode.Mod:
		ar = datum.OpMod
	}
	v, err := arena.Arith(ar, x, y)
	if err != nil {
		return err
	}
	s.push(v)
	return nil
}

func (t *Task) executeComparison(s *Scope, op opcode.OpCode) error {
	arena := t.vm.arena
	if op.Cmd == opcode.Not {
		x, err := s.pop()
		if err != nil {
			return err
		}
		s.push(datum.Bool(!datum.Truthy(x)))
		return nil
	}
	y, err := s.pop()
	if err != nil {
		return err
	}
	x, err := s.pop()
	if err != nil {
		return err
	}
	switch op.Cmd {
	case opcode.And:
		s.push(datum.Bool(datum.Truthy(x) && datum.Truthy(y)))
	case opcode.Or:
		s.push(datum.Bool(datum.Truthy(x) || datum.Truthy(y)))
	case opcode.Eq:
		s.push(datum.Bool(arena.Equal(x, y)))
	case opcode.NtEq:
		s.push(datum.Bool(!arena.Equal(x, y)))
	default:
		c, err := arena.Compare(x, y)
		if err != nil {
			return err
		}
		var r bool
		switch op.Cmd {
		case opcode.Lt:
			r = c < 0
		case opcode.LtEq:
			r = c <= 0
		case opcode.Gt:
			r = c > 0
		case opcode.GtEq:
			r = c >= 0
		}
		s.push(datum.Bool(r))
	}
	return nil
}

func (t *Task) executeString(s *Scope, op opcode.OpCode) error {
	vm := t.vm
	switch op.Cmd {
	case opcode.JoinStr, opcode.JoinPadStr:
		y, err := s.pop()
		if err != nil {
			return err
		}
		x, err := s.pop()
		if err != nil {
			return err
		}
		s.push(vm.arena.Join(x, y, op.Cmd == opcode.JoinPadStr))
	case opcode.ContainsStr, opcode.Contains0Str:
		needle, err := s.pop()
		if err != nil {
			return err
		}
		subject, err := s.pop()
		if err != nil {
			return err
		}
		s.push(datum.Bool(vm.contains(subject, needle, op.Cmd == opcode.Contains0Str)))
	case opcode.GetChunk:
		str, err := s.pop()
		if err != nil {
			return err
		}
		exprs, err := t.popChunkRef(s)
		if err != nil {
			return err
		}
		s.push(datum.String(datum.GetChunk(vm.arena.String(str), exprs...)))
	case opcode.HiliteChunk:
		if _, err := t.popField(s); err != nil {
			return err
		}
		if _, err := t.popChunkRef(s); err != nil {
			return err
		}
	case opcode.GetField:
		mem, err := t.popField(s)
		if err != nil {
			return err
		}
		s.push(datum.String(fieldText(mem)))
	}
	return nil
}

// contains implements "subject contains needle" and, with prefix, "needle
// starts subject". Matching ignores case.
func (vm *VM) contains(subject, needle datum.Datum, prefix bool) bool {
	n := strings.ToLower(vm.arena.String(needle))
	match := func(str string) bool {
		str = strings.ToLower(str)
		if prefix {
			return strings.HasPrefix(str, n)
		}
		return strings.Contains(str, n)
	}
	switch subject.Kind {
	case datum.KindVoid:
		return false
	case datum.KindString:
		return match(subject.S)
	case datum.KindList:
		l, err := vm.arena.List(subject)
		if err != nil {
			return false
		}
		for _, it := range l.Items {
			if it.Kind == datum.KindString && match(it.S) {
				return true
			}
		}
		return false
	}
	return match(vm.arena.String(subject))
}

func (t *Task) executeSpriteTest(s *Scope, op opcode.OpCode) error {
	target, err := s.pop()
	if err != nil {
		return err
	}
	source, err := s.pop()
	if err != nil {
		return err
	}
	a, err := t.spriteRect(source)
	if err != nil {
		return err
	}
	b, err := t.spriteRect(target)
	if err != nil {
		return err
	}
	if op.Cmd == opcode.OntoSpr {
		s.push(datum.Bool(a.Overlaps(b)))
	} else {
		s.push(datum.Bool(!a.Empty() && a.In(b)))
	}
	return nil
}

func (t *Task) spriteRect(d datum.Datum) (image.Rectangle, error) {
	n, err := spriteNumber(d)
	if err != nil {
		return image.Rectangle{}, err
	}
	sp, ok := t.vm.stage.Sprite(n)
	if !ok {
		return image.Rectangle{}, NewIndexOutOfRangeError(n, len(t.vm.stage.Sprites))
	}
	return sp.Rect(), nil
}

func spriteNumber(d datum.Datum) (int, error) {
	if d.Kind == datum.KindSpriteRef {
		return int(d.I), nil
	}
	n, err := datum.ToInt(d)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
