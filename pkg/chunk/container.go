package chunk

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
)

// Header describes one chunk. Offset and Length locate the stored bytes in the
// container buffer; for Afterburner chunks these are the compressed bytes.
type Header struct {
	FourCC FourCC
	ID     uint32
	Offset int
	Length int

	// Afterburner only.
	UncompressedLength int
	Compression        Compression
}

// End returns Offset+Length.
func (h Header) End() int { return h.Offset + h.Length }

// Codec identifies the container flavour.
type Codec uint8

const (
	CodecMemoryMap Codec = iota
	CodecAfterburner
)

func (c Codec) String() string {
	if c == CodecAfterburner {
		return "afterburner"
	}
	return "mmap"
}

// Container is a parsed RIFX file.
type Container struct {
	data    []byte
	order   binary.ByteOrder
	codec   Codec
	tag     FourCC
	headers []Header
	byID    map[uint32]int

	// Afterburner state.
	version       uint32
	versionString string
	ilsBodyOffset int

	mu    sync.Mutex
	cache map[uint32][]byte
}

// Parse reads the container header and chunk map. Only map structures are
// decoded; payloads stay in data until requested with Data.
func Parse(data []byte) (*Container, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the 12-byte header", ErrMalformedContainer, len(data))
	}

	r := NewReader(data, binary.BigEndian)
	magic := r.FourCC()
	switch magic {
	case TagRIFX:
	case TagXFIR:
		r.SetOrder(binary.LittleEndian)
	default:
		return nil, fmt.Errorf("%w: bad magic %q", ErrMalformedContainer, magic.String())
	}

	length := int(r.U32())
	if length+8 > len(data) {
		return nil, fmt.Errorf("%w: header declares %d bytes but buffer holds %d", ErrMalformedContainer, length+8, len(data))
	}
	codec := r.FourCC()

	c := &Container{
		data:  data,
		order: r.Order(),
		byID:  make(map[uint32]int),
		cache: make(map[uint32][]byte),
	}

	var err error
	switch codec {
	case TagMV93, TagMC95:
		c.codec = CodecMemoryMap
		c.tag = codec
		err = c.readMemoryMap(r)
	case TagFGDM, TagFGDC:
		c.codec = CodecAfterburner
		c.tag = codec
		err = c.readAfterburnerMap(r)
	default:
		return nil, fmt.Errorf("%w: unknown codec %q", ErrMalformedContainer, codec.String())
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(c.headers, func(i, j int) bool { return c.headers[i].ID < c.headers[j].ID })
	for i, h := range c.headers {
		c.byID[h.ID] = i
	}
	return c, nil
}

// Order returns the byte order of integers in this container.
func (c *Container) Order() binary.ByteOrder { return c.order }

// BigEndian reports whether the container is RIFX rather than XFIR.
func (c *Container) BigEndian() bool { return c.order == binary.BigEndian }

// Codec returns the container flavour.
func (c *Container) Codec() Codec { return c.codec }

// CodecTag returns the raw codec tag (MV93, FGDM, ...).
func (c *Container) CodecTag() FourCC { return c.tag }

// Version returns the Afterburner Fver version and string, if any.
func (c *Container) Version() (uint32, string) { return c.version, c.versionString }

// Size returns the length of the underlying buffer.
func (c *Container) Size() int { return len(c.data) }

// Headers returns a copy of all chunk headers ordered by id.
func (c *Container) Headers() []Header {
	out := make([]Header, len(c.headers))
	copy(out, c.headers)
	return out
}

// ByID returns the header with the given id.
func (c *Container) ByID(id uint32) (Header, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Header{}, false
	}
	return c.headers[i], true
}

// Find returns the index-th chunk (0-based, in id order) with the given tag.
func (c *Container) Find(tag FourCC, index int) (Header, bool) {
	n := 0
	for _, h := range c.headers {
		if h.FourCC != tag {
			continue
		}
		if n == index {
			return h, true
		}
		n++
	}
	return Header{}, false
}

// First returns the first chunk with any of the given tags.
func (c *Container) First(tags ...FourCC) (Header, bool) {
	for _, h := range c.headers {
		for _, t := range tags {
			if h.FourCC == t {
				return h, true
			}
		}
	}
	return Header{}, false
}

// All returns every chunk with the given tag.
func (c *Container) All(tag FourCC) []Header {
	var out []Header
	for _, h := range c.headers {
		if h.FourCC == tag {
			out = append(out, h)
		}
	}
	return out
}

// Data returns the decoded payload of a chunk.
func (c *Container) Data(id uint32) ([]byte, error) {
	h, ok := c.ByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.cache[id]; ok {
		return b, nil
	}

	if h.Offset < 0 || h.Length < 0 || h.End() > len(c.data) {
		return nil, fmt.Errorf("%w: chunk %d %q [%d,%d) exceeds buffer of %d bytes",
			ErrMalformedContainer, id, h.FourCC.String(), h.Offset, h.End(), len(c.data))
	}
	raw := c.data[h.Offset:h.End()]

	if c.codec == CodecMemoryMap {
		return raw, nil
	}

	out, err := c.decompress(h, raw)
	if err != nil {
		return nil, err
	}
	c.cache[id] = out
	return out, nil
}

// DataOf returns the payload of the chunk with the given id, checking its tag.
func (c *Container) DataOf(tag FourCC, id uint32) ([]byte, error) {
	h, ok := c.ByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q id %d", ErrNotFound, tag.String(), id)
	}
	if h.FourCC != tag {
		return nil, fmt.Errorf("%w: chunk %d is %q, expected %q", ErrMalformedContainer, id, h.FourCC.String(), tag.String())
	}
	return c.Data(id)
}

func (c *Container) decompress(h Header, raw []byte) ([]byte, error) {
	if h.Length == 0 && h.UncompressedLength == 0 {
		return []byte{}, nil
	}
	switch h.Compression {
	case CompressionZlib:
		if h.UncompressedLength < 0 || h.UncompressedLength > MaxInflate {
			return nil, fmt.Errorf("%w: chunk %d declares %d inflated bytes",
				ErrMalformedContainer, h.ID, h.UncompressedLength)
		}
		out, err := Inflate(raw, h.UncompressedLength)
		if err != nil {
			return nil, fmt.Errorf("chunk %d %q: %w", h.ID, h.FourCC.String(), err)
		}
		if len(out) != h.UncompressedLength {
			return nil, fmt.Errorf("%w: chunk %d inflated to %d bytes, map says %d",
				ErrMalformedContainer, h.ID, len(out), h.UncompressedLength)
		}
		return out, nil
	case CompressionNone, CompressionUnknown:
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: chunk %d %q uses %s", ErrUnsupportedCompression, h.ID, h.FourCC.String(), h.Compression)
	}
}

// addHeader validates a header against the buffer before exposing it.
func (c *Container) addHeader(h Header) error {
	if h.Offset < 0 || h.Length < 0 || h.End() > len(c.data) || h.End() < h.Offset {
		return fmt.Errorf("%w: chunk %d %q [%d,+%d) exceeds buffer of %d bytes",
			ErrMalformedContainer, h.ID, h.FourCC.String(), h.Offset, h.Length, len(c.data))
	}
	c.headers = append(c.headers, h)
	return nil
}
