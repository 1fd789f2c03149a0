package chunk

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParse_MemoryMap(t *testing.T) {
	for _, big := range []bool{true, false} {
		name := "XFIR"
		if big {
			name = "RIFX"
		}
		t.Run(name, func(t *testing.T) {
			b := NewBuilder(big)
			keyID := b.Add(TagKeyTable, []byte{1, 2, 3, 4})
			lnamID := b.Add(TagLnam, []byte("hello"))

			c, err := Parse(b.Bytes())
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if c.Codec() != CodecMemoryMap {
				t.Errorf("Codec() = %v", c.Codec())
			}
			if c.BigEndian() != big {
				t.Errorf("BigEndian() = %v, want %v", c.BigEndian(), big)
			}

			data, err := c.DataOf(TagLnam, lnamID)
			if err != nil {
				t.Fatalf("DataOf() error = %v", err)
			}
			if string(data) != "hello" {
				t.Errorf("payload = %q", data)
			}

			h, ok := c.First(TagKeyTable)
			if !ok || h.ID != keyID {
				t.Errorf("First(KEY*) = %+v, %v", h, ok)
			}
			if _, err := c.DataOf(TagLscr, keyID); !errors.Is(err, ErrMalformedContainer) {
				t.Errorf("DataOf with wrong tag: err = %v", err)
			}
			if _, err := c.Data(999); !errors.Is(err, ErrNotFound) {
				t.Errorf("Data(999): err = %v", err)
			}
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	valid := NewBuilder(true)
	valid.Add(TagLnam, []byte("x"))
	good := valid.Bytes()

	badLength := append([]byte(nil), good...)
	binary.BigEndian.PutUint32(badLength[4:], uint32(len(good)*2))

	badCodec := append([]byte(nil), good...)
	copy(badCodec[8:], "ABCD")

	// Point the last mmap entry far past the end of the buffer.
	badEntry := append([]byte(nil), good...)
	last := 12 + 8 + 24 + 8 + 24 + 3*20
	binary.BigEndian.PutUint32(badEntry[last+8:], 1<<20)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte("RIFX")},
		{"bad magic", append([]byte("JUNK"), good[4:]...)},
		{"length past end", badLength},
		{"unknown codec", badCodec},
		{"entry past end", badEntry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if !errors.Is(err, ErrMalformedContainer) {
				t.Errorf("Parse() error = %v, want ErrMalformedContainer", err)
			}
		})
	}
}

func deflate(t testing.TB, raw []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// buildAfterburner produces an FGDM container with one ILS-resident chunk
// (KEY*, id 3) and one standalone zlib chunk (Lnam, id 4).
func buildAfterburner(t testing.TB, keyData, lnamData []byte) []byte {
	return buildAfterburnerCount(t, keyData, lnamData, 3)
}

// buildAfterburnerCount writes the three ABMP entries under a declared
// entry count of count.
func buildAfterburnerCount(t testing.TB, keyData, lnamData []byte, count uint32) []byte {
	order := binary.BigEndian

	ils := NewWriter(order).Varint(3).Raw(keyData).Bytes()
	ilsZ := deflate(t, ils)
	lnamZ := deflate(t, lnamData)

	fcdr := NewWriter(order).U16(1).
		U32(moaZlib.Data1).U16(moaZlib.Data2).U16(moaZlib.Data3).U32(moaZlib.Data4).U32(moaZlib.Data5).
		Raw([]byte("zlib\x00")).Bytes()
	fcdrZ := deflate(t, fcdr)

	abmp := NewWriter(order).Varint(0).Varint(0).Varint(count)
	abmp.Varint(2).Varint(0).Varint(uint32(len(ilsZ))).Varint(uint32(len(ils))).Varint(0).U32(uint32(TagILS))
	abmp.Varint(3).Varint(0xffffffff).Varint(uint32(len(keyData))).Varint(uint32(len(keyData))).Varint(0).U32(uint32(TagKeyTable))
	abmp.Varint(4).Varint(uint32(len(ilsZ))).Varint(uint32(len(lnamZ))).Varint(uint32(len(lnamData))).Varint(0).U32(uint32(TagLnam))
	abmpRaw := abmp.Bytes()
	abmpZ := deflate(t, abmpRaw)
	abmpBody := NewWriter(order).Varint(0).Varint(uint32(len(abmpRaw))).Raw(abmpZ).Bytes()

	fver := NewWriter(order).Varint(0x501).Varint(0).Varint(0x4c7).PascalString("test").Bytes()

	w := NewWriter(order)
	w.U32(uint32(TagRIFX)).U32(0).U32(uint32(TagFGDM))
	w.U32(uint32(TagFver)).Varint(uint32(len(fver))).Raw(fver)
	w.U32(uint32(TagFcdr)).Varint(uint32(len(fcdrZ))).Raw(fcdrZ)
	w.U32(uint32(TagABMP)).Varint(uint32(len(abmpBody))).Raw(abmpBody)
	w.U32(uint32(TagFGEI)).Varint(0)
	w.Raw(ilsZ).Raw(lnamZ)
	w.PutU32(4, uint32(w.Len()-8))
	return w.Bytes()
}

func TestParse_Afterburner(t *testing.T) {
	key := []byte{0, 12, 0, 12, 0, 0, 0, 1}
	lnam := bytes.Repeat([]byte("names"), 10)

	c, err := Parse(buildAfterburner(t, key, lnam))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if c.Codec() != CodecAfterburner {
		t.Fatalf("Codec() = %v", c.Codec())
	}
	if v, s := c.Version(); v != 0x501 || s != "test" {
		t.Errorf("Version() = %#x %q", v, s)
	}

	got, err := c.DataOf(TagKeyTable, 3)
	if err != nil || !bytes.Equal(got, key) {
		t.Errorf("ILS resident chunk = %v, %v", got, err)
	}
	got, err = c.DataOf(TagLnam, 4)
	if err != nil || !bytes.Equal(got, lnam) {
		t.Errorf("standalone chunk = %q, %v", got, err)
	}
	for _, h := range c.Headers() {
		if h.Offset < 0 || h.End() > c.Size() {
			t.Errorf("header %+v outside buffer of %d bytes", h, c.Size())
		}
	}
}

func TestParse_AfterburnerTruncated(t *testing.T) {
	data := buildAfterburner(t, []byte{1, 2, 3, 4}, []byte("lnam"))
	for _, n := range []int{16, 24, len(data) / 2, len(data) - 3} {
		trunc := append([]byte(nil), data[:n]...)
		binary.BigEndian.PutUint32(trunc[4:], uint32(n-8))
		if _, err := Parse(trunc); !errors.Is(err, ErrMalformedContainer) {
			t.Errorf("Parse(%d bytes) error = %v, want ErrMalformedContainer", n, err)
		}
	}
}

func TestParse_AfterburnerEntryCount(t *testing.T) {
	for _, count := range []uint32{4, 1000, 0xffffffff} {
		data := buildAfterburnerCount(t, []byte{1, 2, 3, 4}, []byte("lnam"), count)
		if _, err := Parse(data); !errors.Is(err, ErrMalformedContainer) {
			t.Errorf("count %d: Parse() error = %v, want ErrMalformedContainer", count, err)
		}
	}
}

func TestInflate_Limit(t *testing.T) {
	plain := make([]byte, 1<<20)
	z := deflate(t, plain)

	out, err := Inflate(z, len(plain))
	if err != nil || len(out) != len(plain) {
		t.Fatalf("Inflate(exact) = %d bytes, %v", len(out), err)
	}
	tests := []struct {
		name  string
		limit int
	}{
		{"below size", len(plain) - 1},
		{"tiny", 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Inflate(z, tt.limit); !errors.Is(err, ErrMalformedContainer) {
				t.Errorf("Inflate(limit %d) error = %v, want ErrMalformedContainer", tt.limit, err)
			}
		})
	}
}

func TestProperty_HeadersWithinBuffer(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	b := NewBuilder(true)
	b.Add(TagKeyTable, make([]byte, 32))
	b.Add(TagLnam, []byte("abc"))
	b.Add(TagLscr, make([]byte, 100))
	base := b.Bytes()

	properties.Property("a corrupted container either fails or stays in bounds", prop.ForAll(
		func(pos int, val uint8, pos2 int, val2 uint8) bool {
			data := append([]byte(nil), base...)
			data[pos%len(data)] = val
			data[pos2%len(data)] = val2
			c, err := Parse(data)
			if err != nil {
				return errors.Is(err, ErrMalformedContainer)
			}
			for _, h := range c.Headers() {
				if h.Offset < 0 || h.Length < 0 || h.End() > len(data) {
					return false
				}
				if _, err := c.Data(h.ID); err != nil {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 1<<16),
		gen.UInt8(),
		gen.IntRange(0, 1<<16),
		gen.UInt8(),
	))

	properties.TestingRun(t)
}

func TestFourCC(t *testing.T) {
	if ParseFourCC("snd") != TagSound {
		t.Errorf("ParseFourCC(snd) = %q", ParseFourCC("snd"))
	}
	if TagKeyTable.String() != "KEY*" {
		t.Errorf("String() = %q", TagKeyTable.String())
	}
	if got := FourCC(0x00414243).String(); got != "?ABC" {
		t.Errorf("non-printable String() = %q", got)
	}
}
