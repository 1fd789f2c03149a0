package cast

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding"

	"github.com/zurustar/dirplayer/pkg/chunk"
	"github.com/zurustar/dirplayer/pkg/textenc"
)

// LibraryEntry is one cast library listed in MCsL.
type LibraryEntry struct {
	Name      string
	Path      string
	Preload   uint16
	MinMember uint16
	MaxMember uint16
	// ID is the owner id of the library's CAS* in the key table.
	ID uint32
}

// DecodeCastList decodes MCsL. The list is big-endian except for the
// preload field, which follows the container order.
func DecodeCastList(data []byte, order binary.ByteOrder, enc encoding.Encoding) ([]LibraryEntry, error) {
	r := chunk.NewReader(data, binary.BigEndian)
	dataOffset := int(r.U32())
	r.U16()
	count := int(r.U16())
	perCast := int(r.U16())
	r.U16()
	r.Seek(dataOffset)
	items := readItemList(r)
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: cast list: %w", ErrDecode, r.Err())
	}
	if perCast < 4 && count > 0 {
		return nil, fmt.Errorf("%w: cast list: %d items per cast", ErrDecode, perCast)
	}

	libs := make([]LibraryEntry, 0, count)
	for i := 0; i < count; i++ {
		base := i * perCast
		e := LibraryEntry{
			Name:    textenc.Decode(enc, items.pascal(base+1)),
			Path:    textenc.Decode(enc, items.pascal(base+2)),
			Preload: items.u16(base+3, order),
		}
		if b := items.item(base + 4); len(b) >= 8 {
			e.MinMember = binary.BigEndian.Uint16(b)
			e.MaxMember = binary.BigEndian.Uint16(b[2:])
			e.ID = binary.BigEndian.Uint32(b[4:])
		}
		libs = append(libs, e)
	}
	return libs, nil
}

// EncodeCastList is the inverse of DecodeCastList.
func EncodeCastList(libs []LibraryEntry, order binary.ByteOrder) []byte {
	const headerLen = 12
	const perCast = 4
	// Library i occupies items i*perCast+1 .. i*perCast+4.
	items := [][]byte{nil}
	for _, l := range libs {
		pre := make([]byte, 2)
		order.PutUint16(pre, l.Preload)
		ids := make([]byte, 8)
		binary.BigEndian.PutUint16(ids, l.MinMember)
		binary.BigEndian.PutUint16(ids[2:], l.MaxMember)
		binary.BigEndian.PutUint32(ids[4:], l.ID)
		items = append(items, pascalBytes([]byte(l.Name)), pascalBytes([]byte(l.Path)), pre, ids)
	}
	w := chunk.NewWriter(binary.BigEndian)
	w.U32(headerLen).U16(0).U16(uint16(len(libs))).U16(perCast).U16(0)
	writeItemList(w, items)
	return w.Bytes()
}

// DecodeCastAssoc decodes CAS*: big-endian member section ids, one per slot.
// Slot i holds member number minMember+i; zero means empty.
func DecodeCastAssoc(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: cast association: length %d is not a multiple of 4", ErrDecode, len(data))
	}
	r := chunk.NewReader(data, binary.BigEndian)
	ids := make([]uint32, 0, len(data)/4)
	for !r.EOF() {
		ids = append(ids, r.U32())
	}
	return ids, nil
}

// EncodeCastAssoc is the inverse of DecodeCastAssoc.
func EncodeCastAssoc(ids []uint32) []byte {
	w := chunk.NewWriter(binary.BigEndian)
	for _, id := range ids {
		w.U32(id)
	}
	return w.Bytes()
}
