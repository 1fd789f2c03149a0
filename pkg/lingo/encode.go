package lingo

import (
	"encoding/binary"
	"math"

	"github.com/zurustar/dirplayer/pkg/chunk"
)

// EncodeNames builds an Lnam chunk body.
func EncodeNames(names Names) []byte {
	w := chunk.NewWriter(binary.BigEndian)
	w.U32(0).U32(0).U32(0).U32(0)
	w.U16(20).U16(uint16(len(names)))
	for _, n := range names {
		w.PascalString(n)
	}
	total := uint32(w.Len())
	w.PutU32(8, total)
	w.PutU32(12, total)
	return w.Bytes()
}

// EncodeContext builds an Lctx chunk body.
func EncodeContext(ctx *Context) []byte {
	const entriesOffset = 42
	w := chunk.NewWriter(binary.BigEndian)
	w.U32(0).U32(0)
	w.U32(uint32(len(ctx.Entries))).U32(uint32(len(ctx.Entries)))
	w.U16(entriesOffset).U16(12)
	w.U32(0).U32(0).U32(0)
	w.U32(ctx.NamesID)
	w.U16(uint16(len(ctx.Entries))).U16(ctx.Flags).U16(0xffff)
	w.Pad(entriesOffset)
	for _, e := range ctx.Entries {
		w.U32(0).I32(e.SectionID).U16(4).U16(0)
	}
	return w.Bytes()
}

// EncodeScript builds an Lscr chunk body. Handler bytecode is taken from
// Bytecode via EncodeBytecode.
func EncodeScript(s *Script, opts Options) []byte {
	const headerLen = 92
	recordSize := handlerRecordSize
	if opts.CapitalX {
		recordSize += 4
	}

	w := chunk.NewWriter(binary.BigEndian)
	w.Pad(headerLen)

	propOffset := w.Len()
	for _, id := range s.PropertyNameIDs {
		w.U16(id)
	}
	globalOffset := w.Len()
	for _, id := range s.GlobalNameIDs {
		w.U16(id)
	}

	handlerOffset := w.Len()
	w.Pad(handlerOffset + len(s.Handlers)*recordSize)
	for i, h := range s.Handlers {
		code := EncodeBytecode(h.Bytecode)
		codeOffset := w.Len()
		w.Raw(code)
		if w.Len()%2 == 1 {
			w.U8(0)
		}
		table := func(ids []uint16) int {
			off := w.Len()
			for _, id := range ids {
				w.U16(id)
			}
			return off
		}
		argOffset := table(h.ArgNameIDs)
		localOffset := table(h.LocalNameIDs)
		globOffset := table(h.GlobalNameIDs)

		at := handlerOffset + i*recordSize
		w.PutU16(at, h.NameID)
		w.PutU16(at+2, uint16(i))
		w.PutU32(at+4, uint32(len(code)))
		w.PutU32(at+8, uint32(codeOffset))
		w.PutU16(at+12, uint16(len(h.ArgNameIDs)))
		w.PutU32(at+14, uint32(argOffset))
		w.PutU16(at+18, uint16(len(h.LocalNameIDs)))
		w.PutU32(at+20, uint32(localOffset))
		w.PutU16(at+24, uint16(len(h.GlobalNameIDs)))
		w.PutU32(at+26, uint32(globOffset))
	}

	literalOffset := w.Len()
	recLen := 8
	if opts.Version < 500 {
		recLen = 6
	}
	w.Pad(literalOffset + len(s.Literals)*recLen)
	dataOffset := w.Len()
	for i, lit := range s.Literals {
		at := literalOffset + i*recLen
		var value uint32
		switch lit.Kind {
		case LiteralInt:
			value = uint32(lit.Int)
		case LiteralString:
			value = uint32(w.Len() - dataOffset)
			w.U32(uint32(len(lit.Str) + 1)).Raw([]byte(lit.Str)).U8(0)
		case LiteralFloat:
			value = uint32(w.Len() - dataOffset)
			w.U32(8).U32(uint32(math.Float64bits(lit.Float) >> 32)).U32(uint32(math.Float64bits(lit.Float)))
		}
		if recLen == 8 {
			w.PutU32(at, uint32(lit.Kind))
			w.PutU32(at+4, value)
		} else {
			w.PutU16(at, uint16(lit.Kind))
			w.PutU32(at+2, value)
		}
	}
	dataLen := w.Len() - dataOffset

	total := uint32(w.Len())
	w.PutU32(8, total)
	w.PutU32(12, total)
	w.PutU16(16, headerLen)
	w.PutU16(18, s.Number)
	w.PutU16(22, s.ParentNumber)
	w.PutU32(38, s.Flags)
	w.PutU32(44, s.CastID)
	w.PutU16(48, s.FactoryNameID)
	w.PutU16(60, uint16(len(s.PropertyNameIDs)))
	w.PutU32(62, uint32(propOffset))
	w.PutU16(66, uint16(len(s.GlobalNameIDs)))
	w.PutU32(68, uint32(globalOffset))
	w.PutU16(72, uint16(len(s.Handlers)))
	w.PutU32(74, uint32(handlerOffset))
	w.PutU16(78, uint16(len(s.Literals)))
	w.PutU32(80, uint32(literalOffset))
	w.PutU32(84, uint32(dataLen))
	w.PutU32(88, uint32(dataOffset))
	return w.Bytes()
}
