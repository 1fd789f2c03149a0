package vm

import (
	"strings"

	"github.com/zurustar/dirplayer/pkg/cast"
	"github.com/zurustar/dirplayer/pkg/datum"
	"github.com/zurustar/dirplayer/pkg/movie"
	"github.com/zurustar/dirplayer/pkg/opcode"
)

// Variable types selected by the low nibble of put and the operand of the
// context variable opcodes.
const (
	varGlobal  = 1
	varGlobal2 = 2
	varProp    = 3
	varArg     = 4
	varLocal   = 5
	varField   = 6
)

func (t *Task) executeVariable(s *Scope, op opcode.OpCode) error {
	vm := t.vm
	switch op.Cmd {
	case opcode.GetGlobal, opcode.GetGlobal2:
		n, err := s.name(op.Obj)
		if err != nil {
			return err
		}
		v, _ := vm.global(n)
		s.push(v)
	case opcode.SetGlobal, opcode.SetGlobal2:
		n, err := s.name(op.Obj)
		if err != nil {
			return err
		}
		v, err := s.pop()
		if err != nil {
			return err
		}
		vm.setGlobal(n, v)
	case opcode.GetProp:
		n, err := s.name(op.Obj)
		if err != nil {
			return err
		}
		v, err := t.scriptProp(s, n)
		if err != nil {
			return err
		}
		s.push(v)
	case opcode.SetProp:
		n, err := s.name(op.Obj)
		if err != nil {
			return err
		}
		v, err := s.pop()
		if err != nil {
			return err
		}
		return t.setScriptProp(s, n, v)
	case opcode.GetParam:
		i := s.varIndex(op.Obj)
		if i >= 0 && i < len(s.Args) {
			s.push(s.Args[i])
		} else {
			s.push(datum.Void)
		}
	case opcode.SetParam:
		v, err := s.pop()
		if err != nil {
			return err
		}
		return s.setArg(s.varIndex(op.Obj), v)
	case opcode.GetLocal:
		n, err := s.localName(s.varIndex(op.Obj))
		if err != nil {
			return err
		}
		s.push(s.Locals[n])
	case opcode.SetLocal:
		n, err := s.localName(s.varIndex(op.Obj))
		if err != nil {
			return err
		}
		v, err := s.pop()
		if err != nil {
			return err
		}
		s.Locals[n] = v
	case opcode.PushVarRef:
		n, err := s.name(op.Obj)
		if err != nil {
			return err
		}
		s.push(t.varRef(s, n))
	}
	return nil
}

func (s *Scope) setArg(i int, v datum.Datum) error {
	if i < 0 || i > MaxStackDepth*16 {
		return NewInvalidOperationError("argument %d out of range", i)
	}
	for len(s.Args) <= i {
		s.Args = append(s.Args, datum.Void)
	}
	s.Args[i] = v
	return nil
}

// varRef classifies a name the way a handler body sees it.
func (t *Task) varRef(s *Scope, name string) datum.Datum {
	if _, ok := s.Local(name); ok {
		return datum.VarRef(datum.VarLocal, name)
	}
	if _, ok := s.Arg(name); ok {
		return datum.VarRef(datum.VarParam, name)
	}
	if s.Receiver.Kind == datum.KindInstance && t.vm.arena.HasProp(s.Receiver, name) {
		return datum.VarRef(datum.VarProperty, name)
	}
	return datum.VarRef(datum.VarGlobal, name)
}

// scriptProp reads a property of the running script: the receiver's
// instance property, or the script's own property when it runs without an
// instance.
func (t *Task) scriptProp(s *Scope, name string) (datum.Datum, error) {
	vm := t.vm
	if s.Receiver.Kind == datum.KindInstance {
		v, ok, err := vm.arena.InstanceProp(s.Receiver, name)
		if err != nil {
			return datum.Void, err
		}
		if !ok {
			return datum.Void, NewTypeError("property %s not found on %s", name, vm.arena.Format(s.Receiver))
		}
		return v, nil
	}
	if s.Member == nil {
		return datum.Void, nil
	}
	for k, v := range vm.statics[memberKey{s.Member.Lib, s.Member.Number}] {
		if strings.EqualFold(k, name) {
			return v, nil
		}
	}
	return datum.Void, nil
}

func (t *Task) setScriptProp(s *Scope, name string, v datum.Datum) error {
	vm := t.vm
	if s.Receiver.Kind == datum.KindInstance {
		return vm.arena.SetInstanceProp(s.Receiver, name, v)
	}
	if s.Member == nil {
		return NewInvalidOperationError("property %s set outside a script", name)
	}
	key := memberKey{s.Member.Lib, s.Member.Number}
	props := vm.statics[key]
	if props == nil {
		props = make(map[string]datum.Datum)
		vm.statics[key] = props
	}
	for k := range props {
		if strings.EqualFold(k, name) {
			props[k] = v
			return nil
		}
	}
	props[name] = v
	return nil
}

// contextVar is the variable operand of put, putchunk, deletechunk and
// pushchunkvarref.
type contextVar struct {
	kind  int
	name  string
	index int
	field *movie.Member
}

// popContextVar pops a variable reference of the given type. Field
// references carry a cast library from version 500 on.
func (t *Task) popContextVar(s *Scope, varType int) (contextVar, error) {
	if varType == varField {
		mem, err := t.popField(s)
		if err != nil {
			return contextVar{}, err
		}
		return contextVar{kind: varField, field: mem}, nil
	}
	id, err := s.pop()
	if err != nil {
		return contextVar{}, err
	}
	switch varType {
	case varGlobal, varGlobal2, varProp:
		var name string
		if id.Kind == datum.KindInt {
			if name, err = s.name(id.I); err != nil {
				return contextVar{}, err
			}
		} else {
			name = t.vm.arena.String(id)
		}
		return contextVar{kind: varType, name: name}, nil
	case varArg, varLocal:
		n, err := datum.ToInt(id)
		if err != nil {
			return contextVar{}, err
		}
		cv := contextVar{kind: varType, index: s.varIndex(n)}
		if varType == varLocal {
			if cv.name, err = s.localName(cv.index); err != nil {
				return contextVar{}, err
			}
		}
		return cv, nil
	}
	return contextVar{}, NewInvalidOperationError("unknown variable type %d", varType)
}

func (t *Task) getVar(s *Scope, cv contextVar) (datum.Datum, error) {
	switch cv.kind {
	case varGlobal, varGlobal2:
		v, _ := t.vm.global(cv.name)
		return v, nil
	case varProp:
		return t.scriptProp(s, cv.name)
	case varArg:
		if cv.index < len(s.Args) {
			return s.Args[cv.index], nil
		}
		return datum.Void, nil
	case varLocal:
		return s.Locals[cv.name], nil
	case varField:
		return datum.String(fieldText(cv.field)), nil
	}
	return datum.Void, nil
}

func (t *Task) setVar(s *Scope, cv contextVar, v datum.Datum) error {
	switch cv.kind {
	case varGlobal, varGlobal2:
		t.vm.setGlobal(cv.name, v)
	case varProp:
		return t.setScriptProp(s, cv.name, v)
	case varArg:
		return s.setArg(cv.index, v)
	case varLocal:
		s.Locals[cv.name] = v
	case varField:
		return t.vm.setFieldText(cv.field, t.vm.arena.String(v))
	}
	return nil
}

// popField pops a field reference: the member id, preceded on the stack by
// its cast library from version 500 on.
func (t *Task) popField(s *Scope) (*movie.Member, error) {
	lib := datum.Int(0)
	if s.Options.Version >= 500 {
		v, err := s.pop()
		if err != nil {
			return nil, err
		}
		lib = v
	}
	id, err := s.pop()
	if err != nil {
		return nil, err
	}
	return t.vm.resolveMember(id, lib)
}

// resolveMember finds a member by number or name, optionally within a cast
// library given by number or name.
func (vm *VM) resolveMember(id, lib datum.Datum) (*movie.Member, error) {
	if vm.movie == nil {
		return nil, ErrNoMovie
	}
	if id.Kind == datum.KindMemberRef {
		if m, ok := vm.movie.Member(int(id.I), int(id.J)); ok {
			return m, nil
		}
		return nil, NewTypeError("member %d of castLib %d not found", id.J, id.I)
	}
	var c *movie.CastLib
	switch lib.Kind {
	case datum.KindString:
		c, _ = vm.movie.CastByName(lib.S)
	case datum.KindCastLibRef, datum.KindInt:
		if lib.I > 0 {
			c, _ = vm.movie.Cast(int(lib.I))
		}
	}
	if id.Kind == datum.KindString {
		if c != nil {
			for _, m := range c.MemberList() {
				if strings.EqualFold(m.Name, id.S) {
					return m, nil
				}
			}
		} else if m, ok := vm.movie.FindMember(id.S); ok {
			return m, nil
		}
		return nil, NewTypeError("member %q not found", id.S)
	}
	n, err := datum.ToInt(id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c, _ = vm.movie.Cast(1)
	}
	if c != nil {
		if m, ok := c.Member(int(n)); ok {
			return m, nil
		}
	}
	return nil, NewTypeError("member %d not found", n)
}

func fieldText(m *movie.Member) string {
	if m == nil || m.Text == nil {
		return ""
	}
	return m.Text.Text
}

func (vm *VM) setFieldText(m *movie.Member, text string) error {
	if m.Type != cast.MemberText && m.Type != cast.MemberButton && m.Type != cast.MemberRTE {
		return NewTypeError("%s is not a field", ScriptName(m))
	}
	if m.Text == nil {
		m.Text = &cast.Text{}
	}
	m.Text.Text = text
	vm.notify(NotifyCastMemberChanged, MemberInfoOf(m))
	return nil
}

// popChunkRef pops the eight chunk bounds pushed before a chunk
// expression and returns the selected ranges, outermost first.
func (t *Task) popChunkRef(s *Scope) ([]datum.ChunkExpr, error) {
	v, err := s.popN(8)
	if err != nil {
		return nil, err
	}
	var b [8]int
	for i, d := range v {
		n, err := datum.ToInt(d)
		if err != nil {
			return nil, err
		}
		b[i] = int(n)
	}
	// Pushed as first/last char, word, item, line.
	ranges := []struct {
		typ         datum.ChunkType
		first, last int
	}{
		{datum.ChunkLine, b[6], b[7]},
		{datum.ChunkItem, b[4], b[5]},
		{datum.ChunkWord, b[2], b[3]},
		{datum.ChunkChar, b[0], b[1]},
	}
	var out []datum.ChunkExpr
	for _, r := range ranges {
		if r.first == 0 {
			continue
		}
		out = append(out, datum.ChunkExpr{Type: r.typ, First: r.first, Last: r.last, Delim: t.vm.itemDelim})
	}
	if len(out) == 0 {
		return nil, NewInvalidOperationError("empty chunk expression")
	}
	return out, nil
}

func putMode(putType int64) (datum.PutMode, error) {
	switch putType {
	case 1:
		return datum.PutInto, nil
	case 2:
		return datum.PutAfter, nil
	case 3:
		return datum.PutBefore, nil
	}
	return 0, NewInvalidOperationError("unknown put type %d", putType)
}

func (t *Task) executePut(s *Scope, op opcode.OpCode) error {
	arena := t.vm.arena
	switch op.Cmd {
	case opcode.PushChunkVarRef:
		cv, err := t.popContextVar(s, int(op.Obj))
		if err != nil {
			return err
		}
		v, err := t.getVar(s, cv)
		if err != nil {
			return err
		}
		s.push(v)
	case opcode.Put:
		mode, err := putMode(op.Obj >> 4)
		if err != nil {
			return err
		}
		cv, err := t.popContextVar(s, int(op.Obj&0x0f))
		if err != nil {
			return err
		}
		v, err := s.pop()
		if err != nil {
			return err
		}
		if mode == datum.PutInto {
			return t.setVar(s, cv, v)
		}
		cur, err := t.getVar(s, cv)
		if err != nil {
			return err
		}
		if mode == datum.PutAfter {
			return t.setVar(s, cv, datum.String(arena.String(cur)+arena.String(v)))
		}
		return t.setVar(s, cv, datum.String(arena.String(v)+arena.String(cur)))
	case opcode.PutChunk:
		mode, err := putMode(op.Obj >> 4)
		if err != nil {
			return err
		}
		cv, err := t.popContextVar(s, int(op.Obj&0x0f))
		if err != nil {
			return err
		}
		exprs, err := t.popChunkRef(s)
		if err != nil {
			return err
		}
		v, err := s.pop()
		if err != nil {
			return err
		}
		cur, err := t.getVar(s, cv)
		if err != nil {
			return err
		}
		out := datum.PutChunk(arena.String(cur), mode, arena.String(v), exprs...)
		return t.setVar(s, cv, datum.String(out))
	case opcode.DeleteChunk:
		cv, err := t.popContextVar(s, int(op.Obj))
		if err != nil {
			return err
		}
		exprs, err := t.popChunkRef(s)
		if err != nil {
			return err
		}
		cur, err := t.getVar(s, cv)
		if err != nil {
			return err
		}
		return t.setVar(s, cv, datum.String(datum.DeleteChunk(arena.String(cur), exprs...)))
	}
	return nil
}
