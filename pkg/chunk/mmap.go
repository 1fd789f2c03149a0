package chunk

import "fmt"

// readMemoryMap parses the imap/mmap pair of an uncompressed container.
// r is positioned right after the codec tag.
func (c *Container) readMemoryMap(r *Reader) error {
	if tag := r.FourCC(); tag != TagImap {
		if r.Err() != nil {
			return fmt.Errorf("%w: imap: %w", ErrMalformedContainer, r.Err())
		}
		return fmt.Errorf("%w: expected imap, found %q", ErrMalformedContainer, tag.String())
	}
	r.U32() // imap length
	r.U32() // map count
	mmapOffset := int(r.U32())
	if r.Err() != nil {
		return fmt.Errorf("%w: imap: %w", ErrMalformedContainer, r.Err())
	}

	r.Seek(mmapOffset)
	if tag := r.FourCC(); tag != TagMmap {
		if r.Err() != nil {
			return fmt.Errorf("%w: mmap at %d: %w", ErrMalformedContainer, mmapOffset, r.Err())
		}
		return fmt.Errorf("%w: expected mmap at %d, found %q", ErrMalformedContainer, mmapOffset, tag.String())
	}
	r.U32() // mmap length
	headerLen := int(r.U16())
	entryLen := int(r.U16())
	r.U32() // max count
	used := int(r.U32())
	if r.Err() != nil {
		return fmt.Errorf("%w: mmap header: %w", ErrMalformedContainer, r.Err())
	}
	if entryLen < 20 {
		return fmt.Errorf("%w: mmap entry length %d is shorter than 20", ErrMalformedContainer, entryLen)
	}

	// headerLen counts from the start of the mmap body (after tag and length).
	entriesStart := mmapOffset + 8 + headerLen
	if used < 0 || entriesStart+used*entryLen > len(c.data) {
		return fmt.Errorf("%w: mmap declares %d entries beyond the buffer", ErrMalformedContainer, used)
	}

	for i := 0; i < used; i++ {
		r.Seek(entriesStart + i*entryLen)
		tag := r.FourCC()
		length := int(r.U32())
		offset := int(r.U32())
		if r.Err() != nil {
			return fmt.Errorf("%w: mmap entry %d: %w", ErrMalformedContainer, i, r.Err())
		}
		if tag == TagFree || tag == TagJunk {
			continue
		}
		// Stored chunks repeat their tag and length before the payload.
		h := Header{FourCC: tag, ID: uint32(i), Offset: offset + 8, Length: length}
		if err := c.addHeader(h); err != nil {
			return err
		}
	}
	return nil
}
