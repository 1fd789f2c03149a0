package chunk

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Reader is a bounds-checked cursor over a byte slice.
//
// Reads never panic. The first out-of-range read records an error that wraps
// ErrTruncated; every later read returns a zero value, so decoders can read a
// whole struct and check Err once at the end.
type Reader struct {
	data  []byte
	pos   int
	order binary.ByteOrder
	err   error
}

// NewReader creates a reader over data using the given byte order.
func NewReader(data []byte, order binary.ByteOrder) *Reader {
	if order == nil {
		order = binary.BigEndian
	}
	return &Reader{data: data, order: order}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Order returns the byte order used for multi-byte integers.
func (r *Reader) Order() binary.ByteOrder { return r.order }

// SetOrder switches the byte order for subsequent reads.
func (r *Reader) SetOrder(order binary.ByteOrder) { r.order = order }

// Len returns the total length of the underlying buffer.
func (r *Reader) Len() int { return len(r.data) }

// Pos returns the current offset.
func (r *Reader) Pos() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	if r.pos >= len(r.data) {
		return 0
	}
	return len(r.data) - r.pos
}

// EOF reports whether the cursor is at or beyond the end of the buffer.
func (r *Reader) EOF() bool { return r.pos >= len(r.data) }

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(off int) {
	if r.err != nil {
		return
	}
	if off < 0 || off > len(r.data) {
		r.fail(off, 0)
		return
	}
	r.pos = off
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) {
	if r.check(n) {
		r.pos += n
	}
}

func (r *Reader) fail(off, n int) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, buffer is %d bytes", ErrTruncated, n, off, len(r.data))
	}
}

// check validates that n bytes are available at the cursor.
func (r *Reader) check(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > len(r.data) || r.pos+n < r.pos {
		r.fail(r.pos, n)
		return false
	}
	return true
}

// Bytes returns the next n bytes without copying.
func (r *Reader) Bytes(n int) []byte {
	if !r.check(n) {
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *Reader) U8() uint8 {
	if !r.check(1) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *Reader) I8() int8 { return int8(r.U8()) }

func (r *Reader) U16() uint16 {
	if !r.check(2) {
		return 0
	}
	v := r.order.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *Reader) I16() int16 { return int16(r.U16()) }

func (r *Reader) U32() uint32 {
	if !r.check(4) {
		return 0
	}
	v := r.order.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *Reader) I32() int32 { return int32(r.U32()) }

// F32 reads an IEEE single.
func (r *Reader) F32() float32 { return math.Float32frombits(r.U32()) }

// F64 reads an IEEE double.
func (r *Reader) F64() float64 {
	if !r.check(8) {
		return 0
	}
	v := r.order.Uint64(r.data[r.pos:])
	r.pos += 8
	return math.Float64frombits(v)
}

// FourCC reads a four character code in the reader's byte order.
func (r *Reader) FourCC() FourCC { return FourCC(r.U32()) }

// Varint reads a big-endian base-128 integer: seven bits per byte, high bit set
// on every byte except the last.
func (r *Reader) Varint() uint32 {
	var v uint32
	for i := 0; i < 5; i++ {
		b := r.U8()
		if r.err != nil {
			return 0
		}
		v = v<<7 | uint32(b&0x7f)
		if b&0x80 == 0 {
			return v
		}
	}
	if r.err == nil {
		r.err = fmt.Errorf("%w: varint longer than 5 bytes at offset %d", ErrTruncated, r.pos)
	}
	return 0
}

// PascalString reads a length-prefixed (u8) string as raw bytes.
func (r *Reader) PascalString() []byte {
	n := int(r.U8())
	return r.Bytes(n)
}

// CString reads bytes up to (and consuming) a NUL terminator.
func (r *Reader) CString() []byte {
	if r.err != nil {
		return nil
	}
	end := bytes.IndexByte(r.data[r.pos:], 0)
	if end < 0 {
		r.fail(r.pos, len(r.data)-r.pos+1)
		return nil
	}
	b := r.data[r.pos : r.pos+end]
	r.pos += end + 1
	return b
}

// Zlib inflates the next n bytes.
func (r *Reader) Zlib(n, limit int) []byte {
	raw := r.Bytes(n)
	if r.err != nil {
		return nil
	}
	out, err := Inflate(raw, limit)
	if err != nil {
		r.err = err
		return nil
	}
	return out
}

// Sub returns a reader over the next n bytes and advances past them.
func (r *Reader) Sub(n int) *Reader {
	b := r.Bytes(n)
	sub := NewReader(b, r.order)
	if r.err != nil {
		sub.err = r.err
	}
	return sub
}

// MaxInflate bounds a zlib section whose inflated size is not declared.
const MaxInflate = 64 << 20

// Inflate decompresses a zlib stream of at most limit bytes; a
// non-positive limit means MaxInflate.
func Inflate(raw []byte, limit int) ([]byte, error) {
	if limit <= 0 || limit > MaxInflate {
		limit = MaxInflate
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: zlib header: %w", ErrMalformedContainer, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: zlib body: %w", ErrMalformedContainer, err)
	}
	if len(out) > limit {
		return nil, fmt.Errorf("%w: zlib stream inflates beyond %d bytes", ErrMalformedContainer, limit)
	}
	return out, nil
}
