package lingo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zurustar/dirplayer/pkg/opcode"
)

// Disassembler renders bytecode as text. Names, Script and Options are all
// optional; missing or inconsistent tables fall back to raw operands.
type Disassembler struct {
	Script  *Script
	Names   Names
	Options Options
}

// Handler renders every instruction of h, one per line.
func (d Disassembler) Handler(h *Handler) string {
	var b strings.Builder
	fmt.Fprintf(&b, "on %s", d.name(int(h.NameID)))
	for i, id := range h.ArgNameIDs {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		b.WriteString(d.name(int(id)))
	}
	b.WriteByte('\n')
	for _, op := range h.Bytecode {
		b.WriteString("  ")
		b.WriteString(d.Line(h, op))
		b.WriteByte('\n')
	}
	b.WriteString("end\n")
	return b.String()
}

// Line renders a single instruction: "[pos] mnemonic operand".
func (d Disassembler) Line(h *Handler, op opcode.OpCode) string {
	s := fmt.Sprintf("[%d] %s", op.Pos, op.Cmd)
	if !op.Cmd.HasOperand() {
		return s
	}
	return s + " " + d.Operand(h, op)
}

// Operand returns the human-readable form of an instruction's operand.
func (d Disassembler) Operand(h *Handler, op opcode.OpCode) string {
	raw := strconv.FormatInt(op.Obj, 10)
	switch op.Cmd {
	case opcode.Jmp, opcode.JmpIfZ:
		return fmt.Sprintf("[%d]", int64(op.Pos)+op.Obj)
	case opcode.EndRepeat:
		return fmt.Sprintf("[%d]", int64(op.Pos)-op.Obj)
	case opcode.PushFloat32:
		if op.Obj < math.MinInt32 || op.Obj > math.MaxUint32 {
			return raw
		}
		f := math.Float32frombits(uint32(op.Obj))
		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	case opcode.ExtCall, opcode.ObjCall, opcode.ObjCallV4, opcode.TellCall,
		opcode.GetObjProp, opcode.SetObjProp, opcode.PushSymb, opcode.PushVarRef,
		opcode.GetProp, opcode.SetProp, opcode.GetChainedProp,
		opcode.GetMovieProp, opcode.SetMovieProp, opcode.GetTopLevelProp,
		opcode.GetGlobal, opcode.GetGlobal2, opcode.SetGlobal, opcode.SetGlobal2,
		opcode.NewObj:
		if n, ok := d.Names.Get(int(op.Obj)); ok {
			return n
		}
	case opcode.GetLocal, opcode.SetLocal:
		if h != nil {
			if n, ok := d.varName(h.LocalNameIDs, op.Obj); ok {
				return n
			}
		}
	case opcode.GetParam, opcode.SetParam:
		if h != nil {
			if n, ok := d.varName(h.ArgNameIDs, op.Obj); ok {
				return n
			}
		}
	case opcode.PushCons:
		if d.Script != nil {
			if lit, ok := d.Script.Literal(op.Obj, d.Options); ok {
				return lit.String()
			}
		}
	case opcode.LocalCall:
		if d.Script != nil && op.Obj >= 0 && op.Obj < int64(len(d.Script.Handlers)) {
			if n, ok := d.Names.Get(int(d.Script.Handlers[op.Obj].NameID)); ok {
				return n
			}
		}
	case opcode.Get, opcode.Set:
		return fmt.Sprintf("type=%d", op.Obj)
	}
	return raw
}

func (d Disassembler) varName(ids []uint16, obj int64) (string, bool) {
	i := obj / d.Options.VariableMultiplier()
	if i < 0 || i >= int64(len(ids)) {
		return "", false
	}
	return d.Names.Get(int(ids[i]))
}

func (d Disassembler) name(id int) string {
	if n, ok := d.Names.Get(id); ok {
		return n
	}
	return "#" + strconv.Itoa(id)
}
