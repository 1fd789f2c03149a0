package cast

import (
	"encoding/binary"
	"fmt"

	"github.com/zurustar/dirplayer/pkg/chunk"
)

// KeyEntry links a child chunk to the owner it belongs to (a cast member, a
// cast library or the movie itself).
type KeyEntry struct {
	SectionID uint32
	CastID    uint32
	Tag       chunk.FourCC
}

// KeyTable is the decoded KEY* chunk.
type KeyTable struct {
	EntrySize  uint16
	EntrySize2 uint16
	Used       uint32
	Entries    []KeyEntry
}

// DecodeKeyTable decodes KEY* using the container byte order.
func DecodeKeyTable(data []byte, order binary.ByteOrder) (*KeyTable, error) {
	r := chunk.NewReader(data, order)
	kt := &KeyTable{EntrySize: r.U16(), EntrySize2: r.U16()}
	count := int(r.U32())
	kt.Used = r.U32()
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: key table: %w", ErrDecode, r.Err())
	}
	if count > r.Remaining()/12 {
		return nil, fmt.Errorf("%w: key table: %d entries do not fit in %d bytes", ErrDecode, count, r.Remaining())
	}
	kt.Entries = make([]KeyEntry, 0, count)
	for i := 0; i < count; i++ {
		kt.Entries = append(kt.Entries, KeyEntry{SectionID: r.U32(), CastID: r.U32(), Tag: r.FourCC()})
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: key table: %w", ErrDecode, r.Err())
	}
	return kt, nil
}

// Child returns the section id of the first child of owner with the tag.
func (kt *KeyTable) Child(owner uint32, tag chunk.FourCC) (uint32, bool) {
	for _, e := range kt.Entries {
		if e.CastID == owner && e.Tag == tag {
			return e.SectionID, true
		}
	}
	return 0, false
}

// Children returns every child of owner.
func (kt *KeyTable) Children(owner uint32) []KeyEntry {
	var out []KeyEntry
	for _, e := range kt.Entries {
		if e.CastID == owner {
			out = append(out, e)
		}
	}
	return out
}

// Encode serialises the table.
func (kt *KeyTable) Encode(order binary.ByteOrder) []byte {
	w := chunk.NewWriter(order)
	w.U16(12).U16(12).U32(uint32(len(kt.Entries))).U32(uint32(len(kt.Entries)))
	for _, e := range kt.Entries {
		w.U32(e.SectionID).U32(e.CastID).U32(uint32(e.Tag))
	}
	return w.Bytes()
}
