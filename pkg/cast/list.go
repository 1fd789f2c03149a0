package cast

import (
	"encoding/binary"

	"github.com/zurustar/dirplayer/pkg/chunk"
)

// itemList is the offset-table list shared by the cast list and member info
// records: u16 count, count u32 offsets, u32 total length, then the items.
type itemList [][]byte

func readItemList(r *chunk.Reader) itemList {
	count := int(r.U16())
	offsets := make([]uint32, 0, min(count, r.Remaining()/4))
	for i := 0; i < count && r.Err() == nil; i++ {
		offsets = append(offsets, r.U32())
	}
	total := int(r.U32())
	if r.Err() != nil {
		return nil
	}
	base := r.Pos()
	items := make(itemList, len(offsets))
	for i, off := range offsets {
		end := total
		if i+1 < len(offsets) {
			end = int(offsets[i+1])
		}
		start := int(off)
		if start > end || base+end > r.Len() {
			continue
		}
		r.Seek(base + start)
		items[i] = r.Bytes(end - start)
	}
	return items
}

func (l itemList) item(i int) []byte {
	if i < 0 || i >= len(l) {
		return nil
	}
	return l[i]
}

// pascal decodes item i as a Pascal string.
func (l itemList) pascal(i int) []byte {
	b := l.item(i)
	if len(b) == 0 {
		return nil
	}
	n := int(b[0])
	if n > len(b)-1 {
		n = len(b) - 1
	}
	return b[1 : 1+n]
}

func (l itemList) u16(i int, order binary.ByteOrder) uint16 {
	b := l.item(i)
	if len(b) < 2 {
		return 0
	}
	return order.Uint16(b)
}

// writeItemList is the inverse of readItemList.
func writeItemList(w *chunk.Writer, items [][]byte) {
	w.U16(uint16(len(items)))
	off := 0
	for _, it := range items {
		w.U32(uint32(off))
		off += len(it)
	}
	w.U32(uint32(off))
	for _, it := range items {
		w.Raw(it)
	}
}

func pascalBytes(s []byte) []byte {
	if len(s) > 255 {
		s = s[:255]
	}
	return append([]byte{byte(len(s))}, s...)
}
