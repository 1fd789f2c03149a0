package lingo

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/zurustar/dirplayer/pkg/chunk"
	"github.com/zurustar/dirplayer/pkg/opcode"
	"github.com/zurustar/dirplayer/pkg/textenc"
	"golang.org/x/text/encoding"
)

// Script flags.
const (
	FlagUnused      = 1 << 0
	FlagFuncsGlobal = 1 << 1
	FlagVarsGlobal  = 1 << 2
	FlagEventScript = 1 << 8
	FlagFactoryDef  = 1 << 11
)

// Script is a decoded Lscr chunk.
type Script struct {
	Number          uint16
	ParentNumber    uint16
	Flags           uint32
	CastID          uint32
	FactoryNameID   uint16
	PropertyNameIDs []uint16
	GlobalNameIDs   []uint16
	Handlers        []*Handler
	Literals        []Literal
}

// Handler is one compiled handler.
type Handler struct {
	NameID        uint16
	ArgNameIDs    []uint16
	LocalNameIDs  []uint16
	GlobalNameIDs []uint16
	Bytecode      []opcode.OpCode

	// byPos maps a byte offset to an index in Bytecode.
	byPos map[int]int
}

// IndexOf returns the bytecode index of the instruction at byte offset pos.
func (h *Handler) IndexOf(pos int) (int, bool) {
	if h.byPos == nil {
		for i, op := range h.Bytecode {
			if op.Pos == pos {
				return i, true
			}
		}
		return 0, false
	}
	i, ok := h.byPos[pos]
	return i, ok
}

// Options configures script decoding.
type Options struct {
	// Version is the human director version (400, 500, ...).
	Version int
	// CapitalX is set for scripts whose context chunk is LctX.
	CapitalX bool
	// Encoding decodes string literals; nil means Mac Roman.
	Encoding encoding.Encoding
}

// VariableMultiplier returns the factor by which local, argument and
// literal operands are scaled in this script format.
func (o Options) VariableMultiplier() int64 {
	if o.CapitalX {
		return 1
	}
	if o.Version >= 500 {
		return 8
	}
	return 6
}

const handlerRecordSize = 42

// DecodeScript decodes an Lscr chunk.
func DecodeScript(data []byte, opts Options) (*Script, error) {
	r := chunk.NewReader(data, binary.BigEndian)
	r.Seek(16)
	r.U16() // header length
	s := &Script{}
	s.Number = r.U16()
	r.U16()
	s.ParentNumber = r.U16()

	r.Seek(38)
	s.Flags = r.U32()
	r.U16()
	s.CastID = r.U32()
	s.FactoryNameID = r.U16()
	r.U16() // handler vector count
	r.U32() // handler vector offset
	r.U32() // handler vector size
	propCount := int(r.U16())
	propOffset := int(r.U32())
	globalCount := int(r.U16())
	globalOffset := int(r.U32())
	handlerCount := int(r.U16())
	handlerOffset := int(r.U32())
	literalCount := int(r.U16())
	literalOffset := int(r.U32())
	r.U32() // literal data length
	literalDataOffset := int(r.U32())
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: script header: %w", ErrDecode, r.Err())
	}

	var err error
	if s.PropertyNameIDs, err = readIDTable(r, propCount, propOffset); err != nil {
		return nil, fmt.Errorf("%w: properties: %w", ErrDecode, err)
	}
	if s.GlobalNameIDs, err = readIDTable(r, globalCount, globalOffset); err != nil {
		return nil, fmt.Errorf("%w: globals: %w", ErrDecode, err)
	}

	recordSize := handlerRecordSize
	if opts.CapitalX {
		recordSize += 4
	}
	if handlerOffset+handlerCount*recordSize > len(data) {
		return nil, fmt.Errorf("%w: %d handler records at %d run past the chunk", ErrDecode, handlerCount, handlerOffset)
	}
	records := make([]handlerRecord, handlerCount)
	for i := range records {
		r.Seek(handlerOffset + i*recordSize)
		records[i] = readHandlerRecord(r)
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: handler records: %w", ErrDecode, r.Err())
	}
	for i, rec := range records {
		h, err := rec.decode(data)
		if err != nil {
			return nil, fmt.Errorf("%w: handler %d: %w", ErrDecode, i, err)
		}
		s.Handlers = append(s.Handlers, h)
	}

	s.Literals, err = readLiterals(r, literalCount, literalOffset, literalDataOffset, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: literals: %w", ErrDecode, err)
	}
	return s, nil
}

// Literal returns the literal selected by a PushCons operand.
func (s *Script) Literal(obj int64, opts Options) (Literal, bool) {
	i := obj / opts.VariableMultiplier()
	if i < 0 || i >= int64(len(s.Literals)) {
		return Literal{}, false
	}
	return s.Literals[i], true
}

// HandlerByName returns the handler whose name id resolves to name.
func (s *Script) HandlerByName(names Names, name string) (*Handler, int, bool) {
	for i, h := range s.Handlers {
		if n, ok := names.Get(int(h.NameID)); ok && equalFold(n, name) {
			return h, i, true
		}
	}
	return nil, 0, false
}

type handlerRecord struct {
	nameID         uint16
	compiledLen    int
	compiledOffset int
	argCount       int
	argOffset      int
	localCount     int
	localOffset    int
	globalCount    int
	globalOffset   int
}

func readHandlerRecord(r *chunk.Reader) handlerRecord {
	var h handlerRecord
	h.nameID = r.U16()
	r.U16() // vector pos
	h.compiledLen = int(r.U32())
	h.compiledOffset = int(r.U32())
	h.argCount = int(r.U16())
	h.argOffset = int(r.U32())
	h.localCount = int(r.U16())
	h.localOffset = int(r.U32())
	h.globalCount = int(r.U16())
	h.globalOffset = int(r.U32())
	return h
}

func (rec handlerRecord) decode(data []byte) (*Handler, error) {
	r := chunk.NewReader(data, binary.BigEndian)
	h := &Handler{NameID: rec.nameID, byPos: make(map[int]int)}
	var err error
	if h.ArgNameIDs, err = readIDTable(r, rec.argCount, rec.argOffset); err != nil {
		return nil, fmt.Errorf("arguments: %w", err)
	}
	if h.LocalNameIDs, err = readIDTable(r, rec.localCount, rec.localOffset); err != nil {
		return nil, fmt.Errorf("locals: %w", err)
	}
	if h.GlobalNameIDs, err = readIDTable(r, rec.globalCount, rec.globalOffset); err != nil {
		return nil, fmt.Errorf("globals: %w", err)
	}
	if rec.compiledOffset+rec.compiledLen > len(data) || rec.compiledOffset+rec.compiledLen < rec.compiledOffset {
		return nil, fmt.Errorf("bytecode [%d,+%d) runs past the chunk", rec.compiledOffset, rec.compiledLen)
	}
	h.Bytecode, err = DecodeBytecode(data[rec.compiledOffset : rec.compiledOffset+rec.compiledLen])
	if err != nil {
		return nil, err
	}
	for i, op := range h.Bytecode {
		h.byPos[op.Pos] = i
	}
	return h, nil
}

// DecodeBytecode splits raw handler bytecode into records.
func DecodeBytecode(code []byte) ([]opcode.OpCode, error) {
	r := chunk.NewReader(code, binary.BigEndian)
	var out []opcode.OpCode
	for !r.EOF() {
		pos := r.Pos()
		b := r.U8()
		cmd := opcode.Base(b)
		var obj int64
		signed := cmd == opcode.PushInt8 || cmd == opcode.PushInt16
		switch opcode.OperandWidth(b) {
		case 4:
			obj = int64(r.I32())
		case 2:
			if signed {
				obj = int64(r.I16())
			} else {
				obj = int64(r.U16())
			}
		case 1:
			if cmd == opcode.PushInt8 {
				obj = int64(r.I8())
			} else {
				obj = int64(r.U8())
			}
		}
		if r.Err() != nil {
			return out, fmt.Errorf("operand of %s at %d: %w", cmd, pos, r.Err())
		}
		out = append(out, opcode.OpCode{Cmd: cmd, Obj: obj, Pos: pos})
	}
	return out, nil
}

// EncodeBytecode is the inverse of DecodeBytecode. Operands use the
// narrowest width that decodes back to the same value.
func EncodeBytecode(ops []opcode.OpCode) []byte {
	var out []byte
	for _, op := range ops {
		if !op.Cmd.HasOperand() {
			out = append(out, byte(op.Cmd))
			continue
		}
		switch operandWidth(op) {
		case 1:
			out = append(out, opcode.Encode(op.Cmd, 1), byte(op.Obj))
		case 2:
			out = append(out, opcode.Encode(op.Cmd, 2))
			out = binary.BigEndian.AppendUint16(out, uint16(op.Obj))
		default:
			out = append(out, opcode.Encode(op.Cmd, 4))
			out = binary.BigEndian.AppendUint32(out, uint32(op.Obj))
		}
	}
	return out
}

func operandWidth(op opcode.OpCode) int {
	v := op.Obj
	switch op.Cmd {
	case opcode.PushInt8:
		if v >= math.MinInt8 && v <= math.MaxInt8 {
			return 1
		}
		if v >= math.MinInt16 && v <= math.MaxInt16 {
			return 2
		}
	case opcode.PushInt16:
		if v >= 0 && v <= math.MaxUint8 {
			return 1
		}
		if v >= math.MinInt16 && v <= math.MaxInt16 {
			return 2
		}
	default:
		if v >= 0 && v <= math.MaxUint8 {
			return 1
		}
		if v >= 0 && v <= math.MaxUint16 {
			return 2
		}
	}
	return 4
}

func readIDTable(r *chunk.Reader, count, offset int) ([]uint16, error) {
	if count == 0 {
		return nil, nil
	}
	r.Seek(offset)
	ids := make([]uint16, 0, count)
	for i := 0; i < count; i++ {
		ids = append(ids, r.U16())
	}
	if r.Err() != nil {
		return nil, r.Err()
	}
	return ids, nil
}

func readLiterals(r *chunk.Reader, count, offset, dataOffset int, opts Options) ([]Literal, error) {
	type record struct {
		kind   LiteralKind
		offset uint32
	}
	r.Seek(offset)
	records := make([]record, 0, count)
	for i := 0; i < count; i++ {
		var kind uint32
		if opts.Version >= 500 {
			kind = r.U32()
		} else {
			kind = uint32(r.U16())
		}
		records = append(records, record{LiteralKind(kind), r.U32()})
		if r.Err() != nil {
			return nil, r.Err()
		}
	}

	out := make([]Literal, len(records))
	for i, rec := range records {
		lit := Literal{Kind: rec.kind}
		switch rec.kind {
		case LiteralInt:
			lit.Int = int32(rec.offset)
		case LiteralString, LiteralFloat:
			r.Seek(dataOffset + int(rec.offset))
			n := int(r.U32())
			b := r.Bytes(n)
			if r.Err() != nil {
				return nil, fmt.Errorf("literal %d: %w", i, r.Err())
			}
			if rec.kind == LiteralString {
				if n > 0 && b[n-1] == 0 {
					b = b[:n-1]
				}
				lit.Str = textenc.Decode(opts.Encoding, b)
			} else {
				switch n {
				case 8:
					lit.Float = math.Float64frombits(binary.BigEndian.Uint64(b))
				case 10:
					lit.Float = Float80(b)
				}
			}
		default:
			lit.Kind = LiteralInvalid
		}
		out[i] = lit
	}
	return out, nil
}
