package cast

import (
	"encoding/binary"
	"fmt"
	"image/color"
	"math"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/zurustar/dirplayer/pkg/chunk"
	"github.com/zurustar/dirplayer/pkg/textenc"
)

// DecodePalette decodes a CLUT chunk: up to 256 entries of three big-endian
// 16-bit components, of which the high byte is kept.
func DecodePalette(data []byte) (color.Palette, error) {
	n := len(data) / 6
	if n == 0 {
		return nil, fmt.Errorf("%w: palette: %d bytes", ErrDecode, len(data))
	}
	n = min(n, 256)
	pal := make(color.Palette, n)
	for i := range pal {
		e := data[i*6:]
		pal[i] = color.RGBA{R: e[0], G: e[2], B: e[4], A: 0xff}
	}
	return pal, nil
}

// EncodePalette is the inverse of DecodePalette.
func EncodePalette(pal color.Palette) []byte {
	out := make([]byte, 0, len(pal)*6)
	for _, c := range pal {
		r, g, b, _ := c.RGBA()
		out = append(out, byte(r>>8), byte(r), byte(g>>8), byte(g), byte(b>>8), byte(b))
	}
	return out
}

// Text is a decoded STXT chunk.
type Text struct {
	// Text keeps the stored line breaks (CR).
	Text   string
	Styles []byte
}

const textHeaderLen = 12

// DecodeText decodes an STXT chunk, converting the text with enc.
func DecodeText(data []byte, enc encoding.Encoding) (*Text, error) {
	r := chunk.NewReader(data, binary.BigEndian)
	if off := r.U32(); r.Err() == nil && off != textHeaderLen {
		return nil, fmt.Errorf("%w: text: header length %d", ErrDecode, off)
	}
	textLen := int(r.U32())
	styleLen := int(r.U32())
	raw := r.Bytes(textLen)
	styles := r.Bytes(styleLen)
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: text: %w", ErrDecode, r.Err())
	}
	return &Text{Text: textenc.Decode(enc, raw), Styles: styles}, nil
}

// Export returns the text with line breaks normalised to "\n".
func (t *Text) Export() string {
	s := strings.ReplaceAll(t.Text, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// EncodeText builds an STXT chunk.
func EncodeText(text string, enc encoding.Encoding) ([]byte, error) {
	raw, err := textenc.Encode(enc, text)
	if err != nil {
		return nil, err
	}
	w := chunk.NewWriter(binary.BigEndian)
	w.U32(textHeaderLen).U32(uint32(len(raw))).U32(0).Raw(raw)
	return w.Bytes(), nil
}

// Sound is a decoded "snd " resource. Only the header is interpreted; the
// sample data stays opaque.
type Sound struct {
	Format     uint16
	Encoding   uint8
	SampleRate uint32
	SampleSize uint16
	Channels   uint16
	Frames     uint32
	Data       []byte
}

const (
	soundCmdSound  = 0x50
	soundCmdBuffer = 0x51

	soundHeaderStandard   = 0x00
	soundHeaderCompressed = 0xfe
	soundHeaderExtended   = 0xff
)

// DecodeSound decodes a Sound Manager resource (format 1 or 2).
func DecodeSound(data []byte) (*Sound, error) {
	r := chunk.NewReader(data, binary.BigEndian)
	s := &Sound{Format: r.U16(), Channels: 1, SampleSize: 8}
	switch s.Format {
	case 1:
		n := int(r.U16())
		r.Skip(n * 6)
	case 2:
		r.U16()
	default:
		if r.Err() == nil {
			return nil, fmt.Errorf("%w: sound: format %d", ErrDecode, s.Format)
		}
	}
	cmds := int(r.U16())
	header := -1
	for i := 0; i < cmds && r.Err() == nil; i++ {
		cmd := r.U16() & 0x7fff
		r.U16()
		p2 := r.U32()
		if (cmd == soundCmdBuffer || cmd == soundCmdSound) && header < 0 {
			header = int(p2)
		}
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: sound: %w", ErrDecode, r.Err())
	}
	if header < 0 {
		return nil, fmt.Errorf("%w: sound: no buffer command", ErrDecode)
	}

	r.Seek(header)
	r.U32()
	lenOrChannels := r.U32()
	s.SampleRate = r.U32() >> 16
	r.U32()
	r.U32()
	s.Encoding = r.U8()
	r.U8()
	switch s.Encoding {
	case soundHeaderStandard:
		s.Frames = lenOrChannels
	case soundHeaderExtended, soundHeaderCompressed:
		s.Channels = uint16(lenOrChannels)
		s.Frames = r.U32()
		if rate := extendedRate(r.Bytes(10)); rate > 0 {
			s.SampleRate = rate
		}
		if s.Encoding == soundHeaderExtended {
			r.Skip(12)
			s.SampleSize = r.U16()
			r.Skip(14)
		} else {
			r.Skip(20)
			r.Skip(6)
			s.SampleSize = r.U16()
		}
	default:
		return nil, fmt.Errorf("%w: sound: header encoding %#x", ErrDecode, s.Encoding)
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: sound header: %w", ErrDecode, r.Err())
	}
	s.Data = r.Bytes(r.Remaining())
	return s, nil
}

// extendedRate converts an 80-bit extended sample rate.
func extendedRate(b []byte) uint32 {
	if len(b) < 10 {
		return 0
	}
	exp := int(binary.BigEndian.Uint16(b)&0x7fff) - 16383 - 63
	mant := binary.BigEndian.Uint64(b[2:])
	v := math.Ldexp(float64(mant), exp)
	if v <= 0 || v > math.MaxUint32 {
		return 0
	}
	return uint32(v + 0.5)
}

// Duration returns the sound length in milliseconds, or 0 when unknown.
func (s *Sound) Duration() int {
	if s.SampleRate == 0 {
		return 0
	}
	return int(uint64(s.Frames) * 1000 / uint64(s.SampleRate))
}

// EncodeSound builds a format-1 resource with a standard header (8-bit
// mono) or an extended header otherwise.
func EncodeSound(s *Sound) []byte {
	w := chunk.NewWriter(binary.BigEndian)
	w.U16(1).U16(1).U16(5).U32(0x80)
	w.U16(1).U16(0x8000 | soundCmdBuffer).U16(0)
	hdr := w.Len() + 4
	w.U32(uint32(hdr))
	ext := s.Channels > 1 || s.SampleSize > 8
	w.U32(0)
	if ext {
		w.U32(uint32(s.Channels))
	} else {
		w.U32(s.Frames)
	}
	w.U32(s.SampleRate << 16).U32(0).U32(0)
	if ext {
		w.U8(soundHeaderExtended).U8(0x3c)
		w.U32(s.Frames)
		w.Raw(extendedBytes(s.SampleRate))
		w.U32(0).U32(0).U32(0).U16(s.SampleSize)
		w.Pad(w.Len() + 14)
	} else {
		w.U8(soundHeaderStandard).U8(0x3c)
	}
	w.Raw(s.Data)
	return w.Bytes()
}

func extendedBytes(v uint32) []byte {
	out := make([]byte, 10)
	if v == 0 {
		return out
	}
	exp := 0
	mant := uint64(v)
	for mant&(1<<63) == 0 {
		mant <<= 1
		exp++
	}
	binary.BigEndian.PutUint16(out, uint16(16383+63-exp))
	binary.BigEndian.PutUint64(out[2:], mant)
	return out
}
