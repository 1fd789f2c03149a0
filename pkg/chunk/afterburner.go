package chunk

import "fmt"

// Compression identifies an Afterburner compression scheme.
type Compression uint8

const (
	CompressionUnknown Compression = iota
	CompressionNone
	CompressionZlib
	CompressionSound
	CompressionFontMap
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZlib:
		return "zlib"
	case CompressionSound:
		return "sound"
	case CompressionFontMap:
		return "fontmap"
	}
	return "unknown"
}

// MoaID is the 16-byte GUID naming a compression scheme in Fcdr.
type MoaID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 uint32
	Data5 uint32
}

func (m MoaID) String() string {
	return fmt.Sprintf("%08X-%04X-%04X-%08X-%08X", m.Data1, m.Data2, m.Data3, m.Data4, m.Data5)
}

var (
	moaZlib    = MoaID{0xAC99E904, 0x0070, 0x0B36, 0x00080000, 0x347A3707}
	moaZlib2   = MoaID{0xAC99E904, 0x0070, 0x0B36, 0x00000800, 0x07377A34}
	moaNull    = MoaID{0xAC99982E, 0x005D, 0x0D50, 0x00080000, 0x347A3707}
	moaSound   = MoaID{0x7204A889, 0xAFD0, 0x11CF, 0xA00022A2, 0x4C445323}
	moaFontMap = MoaID{0x8A4679A1, 0x3720, 0x11D0, 0xA0002392, 0xB16808C9}
)

func classify(id MoaID) Compression {
	switch id {
	case moaZlib, moaZlib2:
		return CompressionZlib
	case moaNull:
		return CompressionNone
	case moaSound:
		return CompressionSound
	case moaFontMap:
		return CompressionFontMap
	}
	return CompressionUnknown
}

// ilsResourceID is the resource holding the initial load segment.
const ilsResourceID = 2

// minABMPEntry is the smallest encoded ABMP entry: five one-byte varints
// and a fourCC.
const minABMPEntry = 9

func readMoaID(r *Reader) MoaID {
	return MoaID{r.U32(), r.U16(), r.U16(), r.U32(), r.U32()}
}

func (c *Container) readAfterburnerMap(r *Reader) error {
	wrap := func(section string, err error) error {
		return fmt.Errorf("%w: %s: %w", ErrMalformedContainer, section, err)
	}
	expect := func(want FourCC) error {
		got := r.FourCC()
		if r.Err() != nil {
			return wrap(want.String(), r.Err())
		}
		if got != want {
			return fmt.Errorf("%w: expected %q, found %q", ErrMalformedContainer, want.String(), got.String())
		}
		return nil
	}

	// Fver
	if err := expect(TagFver); err != nil {
		return err
	}
	fverLen := int(r.Varint())
	start := r.Pos()
	c.version = r.Varint()
	if c.version >= 0x401 {
		r.Varint() // imap version
		r.Varint() // director version
	}
	if c.version >= 0x501 {
		c.versionString = string(r.PascalString())
	}
	if r.Err() != nil {
		return wrap("Fver", r.Err())
	}
	if r.Pos()-start != fverLen {
		r.Seek(start + fverLen)
	}

	// Fcdr
	if err := expect(TagFcdr); err != nil {
		return err
	}
	fcdrLen := int(r.Varint())
	fcdr := r.Zlib(fcdrLen, MaxInflate)
	if r.Err() != nil {
		return wrap("Fcdr", r.Err())
	}
	fr := NewReader(fcdr, r.Order())
	n := int(fr.U16())
	schemes := make([]Compression, n)
	for i := range schemes {
		schemes[i] = classify(readMoaID(fr))
	}
	for i := 0; i < n; i++ {
		fr.CString() // description
	}
	if fr.Err() != nil {
		return wrap("Fcdr table", fr.Err())
	}

	// ABMP
	if err := expect(TagABMP); err != nil {
		return err
	}
	abmpLen := int(r.Varint())
	abmpEnd := r.Pos() + abmpLen
	r.Varint() // compression type
	abmpSize := int(r.Varint())
	if r.Err() != nil {
		return wrap("ABMP", r.Err())
	}
	abmp := r.Zlib(abmpEnd-r.Pos(), abmpSize)
	if r.Err() != nil {
		return wrap("ABMP", r.Err())
	}
	ar := NewReader(abmp, r.Order())
	ar.Varint()
	ar.Varint()
	count := int(ar.Varint())
	if count > ar.Remaining()/minABMPEntry {
		return fmt.Errorf("%w: ABMP claims %d entries in %d bytes", ErrMalformedContainer, count, ar.Remaining())
	}
	entries := make([]Header, 0, count)
	for i := 0; i < count && ar.Err() == nil; i++ {
		id := ar.Varint()
		offset := int(int32(ar.Varint()))
		compSize := int(ar.Varint())
		uncompSize := int(ar.Varint())
		scheme := int(ar.Varint())
		tag := FourCC(ar.U32())
		comp := CompressionUnknown
		if scheme >= 0 && scheme < len(schemes) {
			comp = schemes[scheme]
		}
		entries = append(entries, Header{
			FourCC:             tag,
			ID:                 id,
			Offset:             offset,
			Length:             compSize,
			UncompressedLength: uncompSize,
			Compression:        comp,
		})
	}
	if ar.Err() != nil {
		return wrap("ABMP entries", ar.Err())
	}

	// FGEI and the initial load segment.
	if err := expect(TagFGEI); err != nil {
		return err
	}
	var ils *Header
	for i := range entries {
		if entries[i].ID == ilsResourceID {
			ils = &entries[i]
			break
		}
	}
	if ils == nil {
		return fmt.Errorf("%w: ABMP has no entry for the initial load segment", ErrMalformedContainer)
	}
	r.Varint()
	c.ilsBodyOffset = r.Pos()
	ilsData := r.Zlib(ils.Length, ils.UncompressedLength)
	if r.Err() != nil {
		return wrap("ILS", r.Err())
	}

	lengths := make(map[uint32]int, len(entries))
	for _, e := range entries {
		lengths[e.ID] = e.Length
	}
	ilsRange := Header{Offset: c.ilsBodyOffset, Length: ils.Length}
	resident := make(map[uint32]bool)
	ir := NewReader(ilsData, r.Order())
	for !ir.EOF() && ir.Err() == nil {
		id := ir.Varint()
		n, ok := lengths[id]
		if !ok {
			return fmt.Errorf("%w: ILS references unknown resource %d", ErrMalformedContainer, id)
		}
		body := ir.Bytes(n)
		if ir.Err() != nil {
			break
		}
		c.cache[id] = body
		resident[id] = true
	}
	if ir.Err() != nil {
		return wrap("ILS body", ir.Err())
	}

	for _, e := range entries {
		switch {
		case e.ID == ilsResourceID:
			e.FourCC = TagILS
			e.Offset, e.Length = ilsRange.Offset, ilsRange.Length
		case resident[e.ID]:
			// Lives inside the inflated ILS; expose the segment range.
			e.Offset, e.Length = ilsRange.Offset, ilsRange.Length
			e.UncompressedLength = len(c.cache[e.ID])
		case e.Offset < 0:
			continue
		default:
			e.Offset += c.ilsBodyOffset
		}
		if err := c.addHeader(e); err != nil {
			return err
		}
	}
	return nil
}
