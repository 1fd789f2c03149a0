package lingo

import (
	"encoding/binary"
	"fmt"

	"github.com/zurustar/dirplayer/pkg/chunk"
	"github.com/zurustar/dirplayer/pkg/textenc"
	"golang.org/x/text/encoding"
)

// Context is a script context: the list of Lscr sections belonging to one
// cast and the id of the shared name table.
type Context struct {
	Entries []ContextEntry
	NamesID uint32
	Flags   uint16
}

// ContextEntry points at one Lscr section. SectionID is -1 for empty slots.
type ContextEntry struct {
	SectionID int32
}

// DecodeContext decodes an Lctx or LctX chunk.
func DecodeContext(data []byte) (*Context, error) {
	r := chunk.NewReader(data, binary.BigEndian)
	r.Skip(8)
	count := int(r.U32())
	r.U32()
	entriesOffset := int(r.U16())
	r.Skip(2 + 12)
	ctx := &Context{NamesID: r.U32()}
	r.U16() // valid count
	ctx.Flags = r.U16()
	r.U16() // free pointer
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: script context header: %w", ErrDecode, r.Err())
	}
	if count < 0 || entriesOffset+count*12 > len(data) {
		return nil, fmt.Errorf("%w: script context declares %d entries past the chunk end", ErrDecode, count)
	}

	r.Seek(entriesOffset)
	ctx.Entries = make([]ContextEntry, count)
	for i := range ctx.Entries {
		r.U32()
		ctx.Entries[i].SectionID = r.I32()
		r.U16()
		r.U16()
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: script context entries: %w", ErrDecode, r.Err())
	}
	return ctx, nil
}

// Names is a Lingo name table.
type Names []string

// Get returns the name with the given id.
func (n Names) Get(id int) (string, bool) {
	if id < 0 || id >= len(n) {
		return "", false
	}
	return n[id], true
}

// Lookup returns the id of a name, compared case-insensitively.
func (n Names) Lookup(name string) (int, bool) {
	for i, s := range n {
		if equalFold(s, name) {
			return i, true
		}
	}
	return 0, false
}

// DecodeNames decodes an Lnam chunk.
func DecodeNames(data []byte, enc encoding.Encoding) (Names, error) {
	r := chunk.NewReader(data, binary.BigEndian)
	r.Skip(16)
	offset := int(r.U16())
	count := int(r.U16())
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: name table header: %w", ErrDecode, r.Err())
	}
	r.Seek(offset)
	names := make(Names, 0, count)
	for i := 0; i < count; i++ {
		b := r.PascalString()
		if r.Err() != nil {
			return nil, fmt.Errorf("%w: name %d of %d: %w", ErrDecode, i, count, r.Err())
		}
		names = append(names, textenc.Decode(enc, b))
	}
	return names, nil
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
