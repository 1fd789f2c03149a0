// Package opcode defines the Lingo bytecode instruction set.
// This package is the foundation that both the script decoder and the VM
// depend on. The decoder produces OpCode sequences, and the VM executes them.
package opcode

import "fmt"

// Cmd represents an OpCode command.
// Values below 0x40 are single-byte instructions. Values from 0x40 take an
// operand; the encoded byte selects its width (see OperandWidth) and Base
// folds it back onto the 0x40-0x7f range.
type Cmd uint8

// Single-byte instructions.
const (
	Invalid Cmd = 0x00

	// Ret returns from the current handler. The return value is the
	// scope's result (set by SetResult or left void).
	Ret Cmd = 0x01

	// RetFactory returns from a factory method (D4 style).
	RetFactory Cmd = 0x02

	// PushZero pushes Int 0.
	PushZero Cmd = 0x03

	// Arithmetic. Stack: [a, b] -> [a op b]
	Mul Cmd = 0x04
	Add Cmd = 0x05
	Sub Cmd = 0x06
	Div Cmd = 0x07
	Mod Cmd = 0x08

	// Inv negates the top of stack.
	Inv Cmd = 0x09

	// JoinStr concatenates two values as strings (&).
	JoinStr Cmd = 0x0a

	// JoinPadStr concatenates with a separating space (&&).
	JoinPadStr Cmd = 0x0b

	// Comparison. Stack: [a, b] -> [Int 0|1]
	Lt   Cmd = 0x0c
	LtEq Cmd = 0x0d
	NtEq Cmd = 0x0e
	Eq   Cmd = 0x0f
	Gt   Cmd = 0x10
	GtEq Cmd = 0x11

	// Logic.
	And Cmd = 0x12
	Or  Cmd = 0x13
	Not Cmd = 0x14

	// ContainsStr tests "a contains b" (case-insensitive substring).
	ContainsStr Cmd = 0x15

	// Contains0Str tests "a starts b".
	Contains0Str Cmd = 0x16

	// GetChunk pops a chunk reference (8 ints) and a string and pushes the
	// selected chunk.
	GetChunk Cmd = 0x17

	// HiliteChunk selects a chunk of a field. No visible effect here.
	HiliteChunk Cmd = 0x18

	// OntoSpr / IntoSpr test sprite intersection / containment.
	OntoSpr Cmd = 0x19
	IntoSpr Cmd = 0x1a

	// GetField pops a field reference and pushes its text.
	GetField Cmd = 0x1b

	// StartTell / EndTell bracket a tell block.
	StartTell Cmd = 0x1c
	EndTell   Cmd = 0x1d

	// PushList converts the arglist on top of the stack into a list.
	PushList Cmd = 0x1e

	// PushPropList converts the arglist on top of the stack into a prop list.
	PushPropList Cmd = 0x1f

	// Swap exchanges the top two stack entries.
	Swap Cmd = 0x21

	// CallJavaScript is a Shockwave 3D / JS bridge instruction.
	CallJavaScript Cmd = 0x26
)

// Instructions with an operand.
const (
	PushInt8         Cmd = 0x41
	PushArgListNoRet Cmd = 0x42
	PushArgList      Cmd = 0x43
	PushCons         Cmd = 0x44
	PushSymb         Cmd = 0x45
	PushVarRef       Cmd = 0x46
	GetGlobal2       Cmd = 0x48
	GetGlobal        Cmd = 0x49
	GetProp          Cmd = 0x4a
	GetParam         Cmd = 0x4b
	GetLocal         Cmd = 0x4c
	SetGlobal2       Cmd = 0x4e
	SetGlobal        Cmd = 0x4f
	SetProp          Cmd = 0x50
	SetParam         Cmd = 0x51
	SetLocal         Cmd = 0x52

	// Jmp jumps forward by the operand (relative to the instruction).
	Jmp Cmd = 0x53

	// EndRepeat jumps backward by the operand.
	EndRepeat Cmd = 0x54

	// JmpIfZ pops a value and jumps forward when it is false.
	JmpIfZ Cmd = 0x55

	// LocalCall calls handler number obj of the current script.
	LocalCall Cmd = 0x56

	// ExtCall calls a handler by name (operand = name id).
	ExtCall Cmd = 0x57

	// ObjCallV4 calls a method on a D4 object.
	ObjCallV4 Cmd = 0x58

	// Put implements "put x into/after/before var".
	// Operand: high nibble = put type, low nibble = variable type.
	Put Cmd = 0x59

	// PutChunk implements "put x into/after/before chunk of var".
	PutChunk Cmd = 0x5a

	// DeleteChunk implements "delete chunk of var".
	DeleteChunk Cmd = 0x5b

	// Get / Set read and write "the" properties. Operand = property type.
	Get Cmd = 0x5c
	Set Cmd = 0x5d

	GetMovieProp    Cmd = 0x5f
	SetMovieProp    Cmd = 0x60
	GetObjProp      Cmd = 0x61
	SetObjProp      Cmd = 0x62
	TellCall        Cmd = 0x63
	Peek            Cmd = 0x64
	Pop             Cmd = 0x65
	TheBuiltin      Cmd = 0x66
	ObjCall         Cmd = 0x67
	PushChunkVarRef Cmd = 0x6d
	PushInt16       Cmd = 0x6e
	PushInt32       Cmd = 0x6f
	GetChainedProp  Cmd = 0x70

	// PushFloat32 pushes the float whose IEEE single bits are the operand.
	PushFloat32     Cmd = 0x71
	GetTopLevelProp Cmd = 0x72

	// NewObj instantiates a script. Operand = name id of the object type.
	NewObj Cmd = 0x73
)

var names = map[Cmd]string{
	Ret:              "ret",
	RetFactory:       "retfactory",
	PushZero:         "pushzero",
	Mul:              "mul",
	Add:              "add",
	Sub:              "sub",
	Div:              "div",
	Mod:              "mod",
	Inv:              "inv",
	JoinStr:          "joinstr",
	JoinPadStr:       "joinpadstr",
	Lt:               "lt",
	LtEq:             "lteq",
	NtEq:             "nteq",
	Eq:               "eq",
	Gt:               "gt",
	GtEq:             "gteq",
	And:              "and",
	Or:               "or",
	Not:              "not",
	ContainsStr:      "containsstr",
	Contains0Str:     "contains0str",
	GetChunk:         "getchunk",
	HiliteChunk:      "hilitechunk",
	OntoSpr:          "ontospr",
	IntoSpr:          "intospr",
	GetField:         "getfield",
	StartTell:        "starttell",
	EndTell:          "endtell",
	PushList:         "pushlist",
	PushPropList:     "pushproplist",
	Swap:             "swap",
	CallJavaScript:   "calljavascript",
	PushInt8:         "pushint8",
	PushArgListNoRet: "pusharglistnoret",
	PushArgList:      "pusharglist",
	PushCons:         "pushcons",
	PushSymb:         "pushsymb",
	PushVarRef:       "pushvarref",
	GetGlobal2:       "getglobal2",
	GetGlobal:        "getglobal",
	GetProp:          "getprop",
	GetParam:         "getparam",
	GetLocal:         "getlocal",
	SetGlobal2:       "setglobal2",
	SetGlobal:        "setglobal",
	SetProp:          "setprop",
	SetParam:         "setparam",
	SetLocal:         "setlocal",
	Jmp:              "jmp",
	EndRepeat:        "endrepeat",
	JmpIfZ:           "jmpifz",
	LocalCall:        "localcall",
	ExtCall:          "extcall",
	ObjCallV4:        "objcallv4",
	Put:              "put",
	PutChunk:         "putchunk",
	DeleteChunk:      "deletechunk",
	Get:              "get",
	Set:              "set",
	GetMovieProp:     "getmovieprop",
	SetMovieProp:     "setmovieprop",
	GetObjProp:       "getobjprop",
	SetObjProp:       "setobjprop",
	TellCall:         "tellcall",
	Peek:             "peek",
	Pop:              "pop",
	TheBuiltin:       "thebuiltin",
	ObjCall:          "objcall",
	PushChunkVarRef:  "pushchunkvarref",
	PushInt16:        "pushint16",
	PushInt32:        "pushint32",
	GetChainedProp:   "getchainedprop",
	PushFloat32:      "pushfloat32",
	GetTopLevelProp:  "gettoplevelprop",
	NewObj:           "newobj",
}

var byName map[string]Cmd

func init() {
	byName = make(map[string]Cmd, len(names))
	for c, n := range names {
		byName[n] = c
	}
}

// String returns the mnemonic used in disassembly.
func (c Cmd) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("unknown_%02x", uint8(c))
}

// Known reports whether c is a defined instruction.
func (c Cmd) Known() bool {
	_, ok := names[c]
	return ok
}

// HasOperand reports whether the instruction carries an operand.
func (c Cmd) HasOperand() bool { return c >= 0x40 }

// Lookup returns the instruction with the given mnemonic.
func Lookup(name string) (Cmd, bool) {
	c, ok := byName[name]
	return c, ok
}

// Base maps an encoded opcode byte to its instruction.
func Base(b byte) Cmd {
	if b >= 0x40 {
		return Cmd(0x40 + b%0x40)
	}
	return Cmd(b)
}

// OperandWidth returns the operand size in bytes for an encoded opcode byte.
func OperandWidth(b byte) int {
	switch {
	case b >= 0xc0:
		return 4
	case b >= 0x80:
		return 2
	case b >= 0x40:
		return 1
	}
	return 0
}

// Encode returns the opcode byte for c with an operand of the given width.
func Encode(c Cmd, width int) byte {
	if c < 0x40 {
		return byte(c)
	}
	switch width {
	case 4:
		return byte(c) + 0x80
	case 2:
		return byte(c) + 0x40
	}
	return byte(c)
}

// OpCode is one decoded bytecode record.
type OpCode struct {
	Cmd Cmd
	// Obj is the operand (0 for single-byte instructions). PushInt8 and
	// PushInt16 operands are sign-extended.
	Obj int64
	// Pos is the byte offset of the instruction within the handler.
	Pos int
}

func (o OpCode) String() string {
	if o.Cmd.HasOperand() {
		return fmt.Sprintf("[%d] %s %d", o.Pos, o.Cmd, o.Obj)
	}
	return fmt.Sprintf("[%d] %s", o.Pos, o.Cmd)
}
