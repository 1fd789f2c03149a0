package cast

import (
	"encoding/binary"
	"fmt"
	"image"

	"golang.org/x/text/encoding"

	"github.com/zurustar/dirplayer/pkg/chunk"
	"github.com/zurustar/dirplayer/pkg/textenc"
)

// MemberType is the kind of a cast member.
type MemberType uint32

const (
	MemberNull         MemberType = 0
	MemberBitmap       MemberType = 1
	MemberFilmLoop     MemberType = 2
	MemberText         MemberType = 3
	MemberPalette      MemberType = 4
	MemberPicture      MemberType = 5
	MemberSound        MemberType = 6
	MemberButton       MemberType = 7
	MemberShape        MemberType = 8
	MemberMovie        MemberType = 9
	MemberDigitalVideo MemberType = 10
	MemberScript       MemberType = 11
	MemberRTE          MemberType = 12
	MemberFont         MemberType = 15
)

var memberTypeNames = map[MemberType]string{
	MemberNull:         "empty",
	MemberBitmap:       "bitmap",
	MemberFilmLoop:     "filmLoop",
	MemberText:         "field",
	MemberPalette:      "palette",
	MemberPicture:      "picture",
	MemberSound:        "sound",
	MemberButton:       "button",
	MemberShape:        "shape",
	MemberMovie:        "movie",
	MemberDigitalVideo: "digitalVideo",
	MemberScript:       "script",
	MemberRTE:          "richText",
	MemberFont:         "font",
}

// String returns the Lingo symbol name of the type.
func (t MemberType) String() string {
	if n, ok := memberTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("unknown(%d)", uint32(t))
}

// ScriptType distinguishes score, movie and parent scripts.
type ScriptType uint16

const (
	ScriptInvalid ScriptType = 0
	ScriptScore   ScriptType = 1
	ScriptMovie   ScriptType = 3
	ScriptParent  ScriptType = 7
)

func (t ScriptType) String() string {
	switch t {
	case ScriptScore:
		return "score"
	case ScriptMovie:
		return "movie"
	case ScriptParent:
		return "parent"
	}
	return "invalid"
}

// Member is a decoded CASt record. Media payloads are decoded separately
// from the member's key table children.
type Member struct {
	Type       MemberType
	Name       string
	ScriptText string
	// ScriptID is the Lscr index (1-based in the Lctx) of the member's
	// script, or 0.
	ScriptID  uint32
	Flags     uint8
	InfoFlags uint32

	Specific []byte

	ScriptType ScriptType
	Bitmap     *BitmapInfo
	Shape      *ShapeInfo
	FilmLoop   *FilmLoopInfo
}

// BitmapInfo is the type-specific record of a bitmap member.
type BitmapInfo struct {
	RowBytes   uint16
	Rect       image.Rectangle
	RegX, RegY int16
	BitDepth   uint8
	// PaletteCastLib and PaletteID locate the palette member. Negative
	// ids name built-in palettes.
	PaletteCastLib int16
	PaletteID      int16
}

// Width returns the bitmap width in pixels.
func (b *BitmapInfo) Width() int { return b.Rect.Dx() }

// Height returns the bitmap height in pixels.
func (b *BitmapInfo) Height() int { return b.Rect.Dy() }

// ShapeInfo is the type-specific record of a shape member.
type ShapeInfo struct {
	ShapeType  uint16
	RegX, RegY int16
	Width      uint16
	Height     uint16
	Color      uint8
}

// FilmLoopInfo is the type-specific record of a film loop member.
type FilmLoopInfo struct {
	RegX, RegY    int16
	Width, Height uint16
	Center        bool
	Crop          bool
	Sound         bool
	Loops         bool
}

// DecodeMember decodes a CASt chunk. Names and script text are converted
// with enc.
func DecodeMember(data []byte, version int, enc encoding.Encoding) (*Member, error) {
	r := chunk.NewReader(data, binary.BigEndian)
	m := &Member{}
	var info []byte
	if version >= 500 {
		m.Type = MemberType(r.U32())
		infoLen := int(r.U32())
		specLen := int(r.U32())
		info = r.Bytes(infoLen)
		m.Specific = r.Bytes(specLen)
	} else {
		specLen := int(r.U16())
		infoLen := int(r.U32())
		m.Type = MemberType(r.U8())
		specLen--
		if specLen > 0 {
			m.Flags = r.U8()
			specLen--
		}
		if specLen < 0 {
			specLen = 0
		}
		m.Specific = r.Bytes(specLen)
		info = r.Bytes(infoLen)
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: member: %w", ErrDecode, r.Err())
	}
	if len(info) > 0 {
		if err := m.decodeInfo(info, enc); err != nil {
			return nil, err
		}
	}
	m.decodeSpecific()
	return m, nil
}

func (m *Member) decodeInfo(info []byte, enc encoding.Encoding) error {
	r := chunk.NewReader(info, binary.BigEndian)
	dataOffset := int(r.U32())
	r.U32()
	r.U32()
	m.InfoFlags = r.U32()
	m.ScriptID = r.U32()
	if r.Err() != nil {
		return fmt.Errorf("%w: member info: %w", ErrDecode, r.Err())
	}
	if dataOffset >= len(info) {
		return nil
	}
	r.Seek(dataOffset)
	items := readItemList(r)
	if r.Err() != nil {
		return fmt.Errorf("%w: member info list: %w", ErrDecode, r.Err())
	}
	m.ScriptText = textenc.Decode(enc, items.item(0))
	m.Name = textenc.Decode(enc, items.pascal(1))
	return nil
}

// decodeSpecific fills the typed view of Specific. Short records leave the
// typed field nil.
func (m *Member) decodeSpecific() {
	r := chunk.NewReader(m.Specific, binary.BigEndian)
	switch m.Type {
	case MemberScript:
		m.ScriptType = ScriptType(r.U16())
		if r.Err() != nil {
			m.ScriptType = ScriptInvalid
		}
	case MemberBitmap:
		b := &BitmapInfo{RowBytes: r.U16() & 0x0fff}
		top, left, bottom, right := int(r.I16()), int(r.I16()), int(r.I16()), int(r.I16())
		b.Rect = image.Rect(left, top, right, bottom)
		r.Skip(8)
		b.RegY = r.I16()
		b.RegX = r.I16()
		r.U8()
		if r.Err() != nil {
			return
		}
		b.BitDepth = 1
		if !r.EOF() {
			b.BitDepth = r.U8()
			b.PaletteCastLib = r.I16()
			b.PaletteID = r.I16()
			if r.Err() != nil {
				b.BitDepth, b.PaletteCastLib, b.PaletteID = 1, 0, 0
			}
		}
		m.Bitmap = b
	case MemberShape:
		s := &ShapeInfo{ShapeType: r.U16()}
		s.RegY = r.I16()
		s.RegX = r.I16()
		s.Height = r.U16()
		s.Width = r.U16()
		r.U16()
		s.Color = r.U8()
		if r.Err() == nil {
			m.Shape = s
		}
	case MemberFilmLoop:
		f := &FilmLoopInfo{RegY: r.I16(), RegX: r.I16()}
		f.Height = r.U16()
		f.Width = r.U16()
		r.Skip(3)
		flags := r.U8()
		f.Center = flags&0x01 != 0
		f.Crop = flags&0x02 == 0
		f.Sound = flags&0x08 != 0
		f.Loops = flags&0x20 == 0
		if r.Err() == nil {
			m.FilmLoop = f
		}
	}
}

// EncodeMember builds a CASt chunk in the D5+ layout.
func EncodeMember(m *Member) []byte {
	iw := chunk.NewWriter(binary.BigEndian)
	const infoHeader = 20
	iw.U32(infoHeader).U32(0).U32(0).U32(m.InfoFlags).U32(m.ScriptID)
	writeItemList(iw, [][]byte{[]byte(m.ScriptText), pascalBytes([]byte(m.Name))})

	spec := m.Specific
	if spec == nil {
		spec = m.encodeSpecific()
	}
	w := chunk.NewWriter(binary.BigEndian)
	w.U32(uint32(m.Type)).U32(uint32(iw.Len())).U32(uint32(len(spec)))
	w.Raw(iw.Bytes()).Raw(spec)
	return w.Bytes()
}

func (m *Member) encodeSpecific() []byte {
	w := chunk.NewWriter(binary.BigEndian)
	switch {
	case m.Type == MemberScript:
		w.U16(uint16(m.ScriptType))
	case m.Bitmap != nil:
		b := m.Bitmap
		w.U16(b.RowBytes)
		w.I16(int16(b.Rect.Min.Y)).I16(int16(b.Rect.Min.X)).I16(int16(b.Rect.Max.Y)).I16(int16(b.Rect.Max.X))
		w.Pad(w.Len() + 8)
		w.I16(b.RegY).I16(b.RegX).U8(0)
		w.U8(b.BitDepth).I16(b.PaletteCastLib).I16(b.PaletteID)
	case m.Shape != nil:
		s := m.Shape
		w.U16(s.ShapeType).I16(s.RegY).I16(s.RegX).U16(s.Height).U16(s.Width).U16(0).U8(s.Color)
	}
	return w.Bytes()
}
