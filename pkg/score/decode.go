package score

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding"

	"github.com/zurustar/dirplayer/pkg/chunk"
	"github.com/zurustar/dirplayer/pkg/textenc"
)

// spriteFields is the number of bytes of a channel record that Sprite
// interprets; the rest of RecordSize is ignored.
const spriteFields = 18

// maxFrameBuffer bounds channels*recordSize. Delta offsets are 16-bit, so a
// real score never needs more than a small fraction of it.
const maxFrameBuffer = 1 << 20

// Decode decodes a VWSC chunk. Intervals are read from the entries that
// follow the frame data, three entries per interval.
func Decode(data []byte) (*Score, error) {
	r := chunk.NewReader(data, binary.BigEndian)
	r.U32()
	r.U32()
	r.U32()
	count := int(r.U32())
	r.U32()
	r.U32()
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrDecode, r.Err())
	}
	if count < 1 || count > r.Remaining()/4 {
		return nil, fmt.Errorf("%w: %d entries", ErrDecode, count)
	}
	offsets := make([]int, count+1)
	for i := range offsets {
		offsets[i] = int(r.U32())
	}
	base := r.Pos()
	entries := make([][]byte, count)
	for i := 0; i < count; i++ {
		if offsets[i+1] < offsets[i] {
			return nil, fmt.Errorf("%w: entry %d has negative length", ErrDecode, i)
		}
		r.Seek(base + offsets[i])
		entries[i] = r.Bytes(offsets[i+1] - offsets[i])
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: entries: %w", ErrDecode, r.Err())
	}

	s, err := decodeFrames(entries[0])
	if err != nil {
		return nil, err
	}
	if len(entries) > 3 {
		s.Intervals = decodeIntervals(entries[3:])
	}
	return s, nil
}

func decodeFrames(data []byte) (*Score, error) {
	r := chunk.NewReader(data, binary.BigEndian)
	r.U32()
	r.U32()
	frameCount := int(r.U32())
	version := r.U16()
	recordSize := int(r.U16())
	channels := int(r.U16())
	r.U16()
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: frame header: %w", ErrDecode, r.Err())
	}
	if recordSize < spriteFields {
		return nil, fmt.Errorf("%w: sprite record size %d", ErrDecode, recordSize)
	}
	if channels*recordSize > maxFrameBuffer {
		return nil, fmt.Errorf("%w: %d channels of %d bytes", ErrDecode, channels, recordSize)
	}

	s := New(channels)
	s.FramesVersion = version
	s.RecordSize = recordSize
	buf := make([]byte, channels*recordSize)
	touched := make([]bool, channels)
	frame := 0
	for !r.EOF() {
		length := int(r.U16())
		if r.Err() != nil || length == 0 {
			break
		}
		if length < 2 {
			return nil, fmt.Errorf("%w: frame %d length %d", ErrDecode, frame+1, length)
		}
		fr := r.Sub(length - 2)
		if r.Err() != nil {
			return nil, fmt.Errorf("%w: frame %d: %w", ErrDecode, frame+1, r.Err())
		}
		frame++
		clear(touched)
		for !fr.EOF() {
			size := int(fr.U16())
			off := int(fr.U16())
			delta := fr.Bytes(size)
			if fr.Err() != nil {
				return nil, fmt.Errorf("%w: frame %d delta: %w", ErrDecode, frame, fr.Err())
			}
			if off+size > len(buf) {
				return nil, fmt.Errorf("%w: frame %d delta %d+%d exceeds channel buffer", ErrDecode, frame, off, size)
			}
			copy(buf[off:], delta)
			for ch := off / recordSize; size > 0 && ch <= (off+size-1)/recordSize; ch++ {
				touched[ch] = true
			}
		}
		for ch, t := range touched {
			if t {
				s.AddKeyframe(frame, ch, readSprite(buf[ch*recordSize:]))
			}
		}
	}
	s.FrameCount = max(frameCount, frame)
	return s, nil
}

func readSprite(b []byte) Sprite {
	be := binary.BigEndian
	return Sprite{
		Type:      b[0],
		Ink:       b[1] & 0x3f,
		ForeColor: b[2],
		BackColor: b[3],
		CastLib:   be.Uint16(b[4:]),
		Member:    be.Uint16(b[6:]),
		Unknown:   be.Uint16(b[8:]),
		LocV:      int16(be.Uint16(b[10:])),
		LocH:      int16(be.Uint16(b[12:])),
		Height:    be.Uint16(b[14:]),
		Width:     be.Uint16(b[16:]),
	}
}

func decodeIntervals(entries [][]byte) []Interval {
	var out []Interval
	for i := 0; i+1 < len(entries); i += 3 {
		primary, secondary := entries[i], entries[i+1]
		if len(primary) == 0 || len(secondary) == 0 {
			continue
		}
		p := chunk.NewReader(primary, binary.BigEndian)
		iv := Interval{Start: int(p.U32()), End: int(p.U32())}
		p.U32()
		p.U32()
		iv.Channel = int(p.U32())
		q := chunk.NewReader(secondary, binary.BigEndian)
		iv.CastLib = q.U16()
		iv.Member = q.U16()
		if p.Err() == nil && q.Err() == nil {
			out = append(out, iv)
		}
	}
	return out
}

// DecodeLabels decodes a VWLB chunk: a u16 count, count+1 (frame, name
// offset) pairs, a u32 names length and the name bytes.
func DecodeLabels(data []byte, enc encoding.Encoding) ([]Label, error) {
	r := chunk.NewReader(data, binary.BigEndian)
	count := int(r.U16())
	if count > r.Remaining()/4 {
		return nil, fmt.Errorf("%w: %d labels", ErrDecode, count)
	}
	frames := make([]int, count+1)
	offs := make([]int, count+1)
	for i := 0; i <= count; i++ {
		frames[i] = int(r.U16())
		offs[i] = int(r.U16())
	}
	n := int(r.U32())
	names := r.Bytes(n)
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: labels: %w", ErrDecode, r.Err())
	}
	labels := make([]Label, 0, count)
	for i := 0; i < count; i++ {
		start, end := offs[i], offs[i+1]
		if i == count-1 && end < start {
			end = len(names)
		}
		if start > end || end > len(names) {
			return nil, fmt.Errorf("%w: label %d name range %d..%d", ErrDecode, i, start, end)
		}
		labels = append(labels, Label{Frame: frames[i], Name: textenc.Decode(enc, names[start:end])})
	}
	return labels, nil
}
