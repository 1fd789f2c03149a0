package chunk

import (
	"encoding/binary"
)

// Builder assembles an uncompressed (MV93) container. It is used to produce
// small movies for tooling and tests.
type Builder struct {
	order  binary.ByteOrder
	codec  FourCC
	chunks []builtChunk
}

type builtChunk struct {
	tag     FourCC
	payload []byte
}

// firstUserID is the id of the first chunk added with Add. Ids 0-2 are the
// RIFX, imap and mmap entries.
const firstUserID = 3

// NewBuilder returns a builder for a RIFX (big-endian) or XFIR container.
func NewBuilder(bigEndian bool) *Builder {
	b := &Builder{order: binary.LittleEndian, codec: TagMV93}
	if bigEndian {
		b.order = binary.BigEndian
	}
	return b
}

// Order returns the byte order payloads should be written in.
func (b *Builder) Order() binary.ByteOrder { return b.order }

// Add appends a chunk and returns the id it will have in the memory map.
func (b *Builder) Add(tag FourCC, payload []byte) uint32 {
	b.chunks = append(b.chunks, builtChunk{tag: tag, payload: payload})
	return uint32(firstUserID + len(b.chunks) - 1)
}

// NextID returns the id the next Add call will assign.
func (b *Builder) NextID() uint32 { return uint32(firstUserID + len(b.chunks)) }

// Bytes lays out the container.
func (b *Builder) Bytes() []byte {
	const (
		imapOffset   = 12
		imapBodyLen  = 24
		mmapOffset   = imapOffset + 8 + imapBodyLen
		mmapHeadLen  = 24
		mmapEntryLen = 20
	)
	entries := firstUserID + len(b.chunks)
	mmapBodyLen := mmapHeadLen + entries*mmapEntryLen

	offsets := make([]int, len(b.chunks))
	pos := mmapOffset + 8 + mmapBodyLen
	for i, c := range b.chunks {
		offsets[i] = pos
		pos += 8 + len(c.payload)
		if pos%2 == 1 {
			pos++
		}
	}
	out := make([]byte, pos)
	put32 := func(at int, v uint32) { b.order.PutUint32(out[at:], v) }
	put16 := func(at int, v uint16) { b.order.PutUint16(out[at:], v) }

	magic := TagXFIR
	if b.order == binary.BigEndian {
		magic = TagRIFX
	}
	binary.BigEndian.PutUint32(out[0:], uint32(magic))
	put32(4, uint32(pos-8))
	put32(8, uint32(b.codec))

	put32(imapOffset, uint32(TagImap))
	put32(imapOffset+4, imapBodyLen)
	put32(imapOffset+8, 1)
	put32(imapOffset+12, mmapOffset)

	put32(mmapOffset, uint32(TagMmap))
	put32(mmapOffset+4, uint32(mmapBodyLen))
	put16(mmapOffset+8, mmapHeadLen)
	put16(mmapOffset+10, mmapEntryLen)
	put32(mmapOffset+12, uint32(entries))
	put32(mmapOffset+16, uint32(entries))
	put32(mmapOffset+20, 0xffffffff)
	put32(mmapOffset+24, 0xffffffff)
	put32(mmapOffset+28, 0xffffffff)

	entry := func(i int, tag FourCC, length, offset int) {
		at := mmapOffset + 8 + mmapHeadLen + i*mmapEntryLen
		put32(at, uint32(tag))
		put32(at+4, uint32(length))
		put32(at+8, uint32(offset))
		put32(at+16, 0xffffffff)
	}
	entry(0, TagRIFX, pos-8, 0)
	entry(1, TagImap, imapBodyLen, imapOffset)
	entry(2, TagMmap, mmapBodyLen, mmapOffset)
	for i, c := range b.chunks {
		entry(firstUserID+i, c.tag, len(c.payload), offsets[i])
		put32(offsets[i], uint32(c.tag))
		put32(offsets[i]+4, uint32(len(c.payload)))
		copy(out[offsets[i]+8:], c.payload)
	}
	return out
}

// Writer is the inverse of Reader, used to build chunk payloads.
type Writer struct {
	order binary.ByteOrder
	buf   []byte
}

// NewWriter creates a writer using the given byte order.
func NewWriter(order binary.ByteOrder) *Writer {
	if order == nil {
		order = binary.BigEndian
	}
	return &Writer{order: order}
}

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Len() int      { return len(w.buf) }

func (w *Writer) U8(v uint8) *Writer { w.buf = append(w.buf, v); return w }

func (w *Writer) U16(v uint16) *Writer {
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) U32(v uint32) *Writer {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

func (w *Writer) I16(v int16) *Writer { return w.U16(uint16(v)) }
func (w *Writer) I32(v int32) *Writer { return w.U32(uint32(v)) }

func (w *Writer) Raw(b []byte) *Writer { w.buf = append(w.buf, b...); return w }

// PascalString writes a u8 length followed by the bytes.
func (w *Writer) PascalString(s string) *Writer {
	w.buf = append(w.buf, byte(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

// Varint writes v in the encoding read by Reader.Varint.
func (w *Writer) Varint(v uint32) *Writer {
	w.buf = AppendVarint(w.buf, v)
	return w
}

// Pad appends zero bytes until the length is n.
func (w *Writer) Pad(n int) *Writer {
	for len(w.buf) < n {
		w.buf = append(w.buf, 0)
	}
	return w
}

// PutU32 overwrites four bytes at off.
func (w *Writer) PutU32(off int, v uint32) { w.order.PutUint32(w.buf[off:], v) }

// PutU16 overwrites two bytes at off.
func (w *Writer) PutU16(off int, v uint16) { w.order.PutUint16(w.buf[off:], v) }

// AppendVarint appends the big-endian base-128 encoding of v.
func AppendVarint(dst []byte, v uint32) []byte {
	var tmp [5]byte
	i := len(tmp) - 1
	tmp[i] = byte(v & 0x7f)
	v >>= 7
	for v != 0 {
		i--
		tmp[i] = byte(v&0x7f) | 0x80
		v >>= 7
	}
	return append(dst, tmp[i:]...)
}
