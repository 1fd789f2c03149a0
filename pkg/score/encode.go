package score

import (
	"encoding/binary"
	"sort"

	"github.com/zurustar/dirplayer/pkg/chunk"
)

const defaultRecordSize = 24

// Encode builds a VWSC chunk. Each keyframe is written as a full-record
// delta of its channel.
func Encode(s *Score) []byte {
	size := s.RecordSize
	if size < spriteFields {
		size = defaultRecordSize
	}
	channels := s.ChannelCount()

	fw := chunk.NewWriter(binary.BigEndian)
	fw.U32(0).U32(0).U32(uint32(s.FrameCount)).U16(s.FramesVersion).U16(uint16(size)).U16(uint16(channels)).U16(uint16(channels))
	for frame := 1; frame <= s.FrameCount; frame++ {
		dw := chunk.NewWriter(binary.BigEndian)
		for ch := 0; ch < channels; ch++ {
			for _, kf := range s.Keyframes(ch) {
				if kf.Frame != frame {
					continue
				}
				dw.U16(uint16(size)).U16(uint16(ch * size))
				dw.Raw(writeSprite(kf.Sprite, size))
			}
		}
		fw.U16(uint16(dw.Len() + 2)).Raw(dw.Bytes())
	}

	entries := [][]byte{fw.Bytes(), nil, nil}
	ivs := append([]Interval(nil), s.Intervals...)
	sort.SliceStable(ivs, func(i, j int) bool { return ivs[i].Start < ivs[j].Start })
	for _, iv := range ivs {
		p := chunk.NewWriter(binary.BigEndian)
		p.U32(uint32(iv.Start)).U32(uint32(iv.End)).U32(0).U32(0).U32(uint32(iv.Channel))
		p.U16(0).U32(0).U16(0).U32(0).U32(0).U32(0).U32(0)
		q := chunk.NewWriter(binary.BigEndian)
		q.U16(iv.CastLib).U16(iv.Member).U32(0)
		entries = append(entries, p.Bytes(), q.Bytes(), nil)
	}

	w := chunk.NewWriter(binary.BigEndian)
	w.U32(0).U32(0).U32(0).U32(uint32(len(entries))).U32(0).U32(0)
	off := 0
	for _, e := range entries {
		w.U32(uint32(off))
		off += len(e)
	}
	w.U32(uint32(off))
	for _, e := range entries {
		w.Raw(e)
	}
	w.PutU32(0, uint32(w.Len()))
	return w.Bytes()
}

func writeSprite(sp Sprite, size int) []byte {
	w := chunk.NewWriter(binary.BigEndian)
	w.U8(sp.Type).U8(sp.Ink).U8(sp.ForeColor).U8(sp.BackColor)
	w.U16(sp.CastLib).U16(sp.Member).U16(sp.Unknown)
	w.I16(sp.LocV).I16(sp.LocH).U16(sp.Height).U16(sp.Width)
	w.Pad(size)
	return w.Bytes()
}

// EncodeLabels builds a VWLB chunk.
func EncodeLabels(labels []Label) []byte {
	w := chunk.NewWriter(binary.BigEndian)
	w.U16(uint16(len(labels)))
	off := 0
	for _, l := range labels {
		w.U16(uint16(l.Frame)).U16(uint16(off))
		off += len(l.Name)
	}
	w.U16(0).U16(uint16(off))
	w.U32(uint32(off))
	for _, l := range labels {
		w.Raw([]byte(l.Name))
	}
	return w.Bytes()
}
