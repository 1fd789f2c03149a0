package cast

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/zurustar/dirplayer/pkg/chunk"
	"github.com/zurustar/dirplayer/pkg/textenc"
	"golang.org/x/image/bmp"
)

func TestHumanVersion(t *testing.T) {
	tests := []struct {
		raw  uint16
		want int
	}{
		{0, 200},
		{1028, 300},
		{1201, 500},
		{1223, 600},
		{1224, 700},
		{1410, 800},
		{1851, 1000},
		{1951, 1200},
	}
	for _, tt := range tests {
		if got := HumanVersion(tt.raw); got != tt.want {
			t.Errorf("HumanVersion(%d) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestConfig_RoundTrip(t *testing.T) {
	for _, tt := range []struct {
		name   string
		raw    uint16
		little bool
	}{
		{"d5 big endian", 1201, false},
		{"d7 little endian", 1224, true},
		{"d8.5", 1700, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			src := &Config{
				FileVersion: 0x45d,
				Stage:       image.Rect(0, 0, 640, 480),
				MinMember:   1,
				MaxMember:   12,
				RawVersion:  tt.raw,
				FrameRate:   15,
				BitDepth:    8,
				StageR:      10,
				StageG:      20,
				StageB:      30,
			}
			got, err := DecodeConfig(src.Encode(tt.little), tt.little)
			if err != nil {
				t.Fatalf("DecodeConfig() error = %v", err)
			}
			if !got.ChecksumOK {
				t.Errorf("checksum %#x does not verify", got.Checksum)
			}
			if got.Stage != src.Stage || got.FrameRate != 15 || got.MaxMember != 12 {
				t.Errorf("DecodeConfig() = %+v", got)
			}
			if got.Version != HumanVersion(tt.raw) {
				t.Errorf("Version = %d", got.Version)
			}
		})
	}
}

func TestConfig_BadChecksumIsNotFatal(t *testing.T) {
	data := (&Config{RawVersion: 1201, FrameRate: 30, Stage: image.Rect(0, 0, 10, 10)}).Encode(false)
	data[len(data)-1] ^= 0xff
	c, err := DecodeConfig(data, false)
	if err != nil {
		t.Fatalf("DecodeConfig() error = %v", err)
	}
	if c.ChecksumOK {
		t.Error("corrupted checksum verified")
	}
	if _, err := DecodeConfig(data[:20], false); !errors.Is(err, ErrDecode) {
		t.Errorf("short config: err = %v", err)
	}
}

func TestKeyTable(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		kt := &KeyTable{Entries: []KeyEntry{
			{SectionID: 10, CastID: 1024, Tag: chunk.TagCastAssoc},
			{SectionID: 11, CastID: 5, Tag: chunk.TagBitmap},
			{SectionID: 12, CastID: 5, Tag: chunk.TagPalette},
		}}
		got, err := DecodeKeyTable(kt.Encode(order), order)
		if err != nil {
			t.Fatalf("%v: DecodeKeyTable() error = %v", order, err)
		}
		if id, ok := got.Child(5, chunk.TagBitmap); !ok || id != 11 {
			t.Errorf("%v: Child() = %d, %v", order, id, ok)
		}
		if n := len(got.Children(5)); n != 2 {
			t.Errorf("%v: Children() = %d entries", order, n)
		}
	}
	bad := (&KeyTable{Entries: []KeyEntry{{}, {}}}).Encode(binary.BigEndian)
	if _, err := DecodeKeyTable(bad[:20], binary.BigEndian); !errors.Is(err, ErrDecode) {
		t.Errorf("truncated key table: err = %v", err)
	}
}

func TestCastListAndAssoc(t *testing.T) {
	libs := []LibraryEntry{
		{Name: "Internal", MinMember: 1, MaxMember: 20, ID: 1024},
		{Name: "Shared", Path: "Shared.cst", Preload: 2, MinMember: 1, MaxMember: 5, ID: 1025},
	}
	got, err := DecodeCastList(EncodeCastList(libs, binary.LittleEndian), binary.LittleEndian, nil)
	if err != nil {
		t.Fatalf("DecodeCastList() error = %v", err)
	}
	if len(got) != 2 || got[1] != libs[1] || got[0] != libs[0] {
		t.Errorf("DecodeCastList() = %+v", got)
	}

	ids, err := DecodeCastAssoc(EncodeCastAssoc([]uint32{7, 0, 9}))
	if err != nil || len(ids) != 3 || ids[1] != 0 || ids[2] != 9 {
		t.Errorf("DecodeCastAssoc() = %v, %v", ids, err)
	}
	if _, err := DecodeCastAssoc([]byte{1, 2, 3}); !errors.Is(err, ErrDecode) {
		t.Errorf("odd association: err = %v", err)
	}
}

func TestDecodeMember(t *testing.T) {
	tests := []struct {
		name  string
		in    *Member
		check func(t *testing.T, m *Member)
	}{
		{
			name: "script",
			in:   &Member{Type: MemberScript, Name: "main", ScriptText: "on startMovie\r  go 1\rend", ScriptID: 2, ScriptType: ScriptMovie},
			check: func(t *testing.T, m *Member) {
				if m.ScriptType != ScriptMovie || m.ScriptID != 2 || m.Name != "main" {
					t.Errorf("member = %+v", m)
				}
			},
		},
		{
			name: "bitmap",
			in: &Member{Type: MemberBitmap, Name: "logo", Bitmap: &BitmapInfo{
				RowBytes: 4, Rect: image.Rect(0, 0, 3, 2), RegX: 1, RegY: 1, BitDepth: 8, PaletteID: -1,
			}},
			check: func(t *testing.T, m *Member) {
				b := m.Bitmap
				if b == nil || b.Width() != 3 || b.Height() != 2 || b.BitDepth != 8 || b.PaletteID != -1 {
					t.Errorf("bitmap = %+v", b)
				}
			},
		},
		{
			name: "shape",
			in:   &Member{Type: MemberShape, Shape: &ShapeInfo{ShapeType: 1, Width: 50, Height: 20, Color: 3}},
			check: func(t *testing.T, m *Member) {
				if m.Shape == nil || m.Shape.Width != 50 || m.Shape.Color != 3 {
					t.Errorf("shape = %+v", m.Shape)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeMember(EncodeMember(tt.in), 500, nil)
			if err != nil {
				t.Fatalf("DecodeMember() error = %v", err)
			}
			if m.Type != tt.in.Type || m.ScriptText != tt.in.ScriptText {
				t.Errorf("type/text = %v %q", m.Type, m.ScriptText)
			}
			tt.check(t, m)
		})
	}
}

func TestDecodeMember_OldLayout(t *testing.T) {
	// specific length (type + flags + 2 bytes), info length 0, type, flags.
	data := []byte{0, 4, 0, 0, 0, 0, byte(MemberScript), 0x10, 0, 1}
	m, err := DecodeMember(data, 400, nil)
	if err != nil {
		t.Fatalf("DecodeMember() error = %v", err)
	}
	if m.Type != MemberScript || m.Flags != 0x10 || m.ScriptType != ScriptScore {
		t.Errorf("member = %+v", m)
	}
	if _, err := DecodeMember(data[:5], 400, nil); !errors.Is(err, ErrDecode) {
		t.Errorf("truncated member: err = %v", err)
	}
}

func TestMemberTypeString(t *testing.T) {
	if MemberText.String() != "field" || MemberType(99).String() != "unknown(99)" {
		t.Errorf("String() = %q %q", MemberText, MemberType(99))
	}
}

func TestDecodeBitmap(t *testing.T) {
	info := &BitmapInfo{Rect: image.Rect(0, 0, 4, 2), BitDepth: 8}
	raw := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	t.Run("raw", func(t *testing.T) {
		b, err := DecodeBitmap(raw, info)
		if err != nil {
			t.Fatal(err)
		}
		if b.Index(3, 1) != 8 || b.Short {
			t.Errorf("Index(3,1) = %d, short = %v", b.Index(3, 1), b.Short)
		}
	})
	t.Run("packbits", func(t *testing.T) {
		b, err := DecodeBitmap([]byte{0xfd, 9, 0x03, 1, 2, 3, 4}, info)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(b.Data, []byte{9, 9, 9, 9, 1, 2, 3, 4}) {
			t.Errorf("Data = %v", b.Data)
		}
	})
	t.Run("short stream", func(t *testing.T) {
		b, err := DecodeBitmap([]byte{0xfe, 7}, info)
		if err != nil {
			t.Fatal(err)
		}
		if !b.Short || len(b.Data) != 8 {
			t.Errorf("short = %v, len = %d", b.Short, len(b.Data))
		}
	})
	t.Run("one bit", func(t *testing.T) {
		b, err := DecodeBitmap([]byte{0xa0, 0, 0x50, 0}, &BitmapInfo{Rect: image.Rect(0, 0, 4, 2), BitDepth: 1})
		if err != nil {
			t.Fatal(err)
		}
		img := b.Image(nil).(*image.Paletted)
		if img.ColorIndexAt(0, 0) != 1 || img.ColorIndexAt(1, 0) != 0 || img.ColorIndexAt(1, 1) != 1 {
			t.Errorf("pixels = %v", img.Pix)
		}
	})
	t.Run("bad depth", func(t *testing.T) {
		if _, err := DecodeBitmap(raw, &BitmapInfo{Rect: info.Rect, BitDepth: 3}); !errors.Is(err, ErrDecode) {
			t.Errorf("err = %v", err)
		}
	})
	t.Run("rect larger than payload", func(t *testing.T) {
		huge := &BitmapInfo{Rect: image.Rect(-32768, -32768, 32767, 32767), BitDepth: 32}
		if _, err := DecodeBitmap([]byte{0, 1}, huge); !errors.Is(err, ErrDecode) {
			t.Errorf("err = %v", err)
		}
	})
	t.Run("row bytes below width", func(t *testing.T) {
		narrow := &BitmapInfo{RowBytes: 2, Rect: info.Rect, BitDepth: 8}
		if _, err := DecodeBitmap(raw, narrow); !errors.Is(err, ErrDecode) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestBitmap_WriteBMP(t *testing.T) {
	info := &BitmapInfo{Rect: image.Rect(0, 0, 2, 1), BitDepth: 32}
	// One row: A plane, R plane, G plane, B plane.
	b, err := DecodeBitmap([]byte{0, 0, 255, 0, 0, 255, 0, 0}, info)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := b.WriteBMP(&buf, nil); err != nil {
		t.Fatalf("WriteBMP() error = %v", err)
	}
	img, err := bmp.Decode(&buf)
	if err != nil {
		t.Fatalf("bmp.Decode() error = %v", err)
	}
	r, g, _, _ := img.At(0, 0).RGBA()
	if r>>8 != 255 || g != 0 {
		t.Errorf("pixel (0,0) = %v", img.At(0, 0))
	}
	_, g, _, _ = img.At(1, 0).RGBA()
	if g>>8 != 255 {
		t.Errorf("pixel (1,0) = %v", img.At(1, 0))
	}
}

func TestProperty_PackBitsRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("unpack(pack(x)) == x", prop.ForAll(
		func(data []byte) bool {
			return bytes.Equal(unpackBits(PackBits(data), len(data)), data)
		},
		gen.SliceOf(gen.UInt8Range(0, 3)),
	))
	properties.Property("garbage never panics", prop.ForAll(
		func(data []byte) bool {
			_, err := DecodeBitmap(data, &BitmapInfo{Rect: image.Rect(0, 0, 5, 3), BitDepth: 4})
			return err == nil
		},
		gen.SliceOf(gen.UInt8()),
	))
	properties.Property("pixel storage stays proportional to the payload", prop.ForAll(
		func(w, h int, data []byte) bool {
			b, err := DecodeBitmap(data, &BitmapInfo{Rect: image.Rect(0, 0, w, h), BitDepth: 32})
			if err != nil {
				return errors.Is(err, ErrDecode)
			}
			return len(b.Data) <= max(maxShortPad, len(data)*maxPackBitsRatio)
		},
		gen.IntRange(1, 65535),
		gen.IntRange(1, 65535),
		gen.SliceOf(gen.UInt8()),
	))
	properties.TestingRun(t)
}

func TestPalette(t *testing.T) {
	pal := color.Palette{color.RGBA{255, 0, 0, 255}, color.RGBA{0, 128, 255, 255}}
	got, err := DecodePalette(EncodePalette(pal))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1] != pal[1] {
		t.Errorf("DecodePalette() = %v", got)
	}
	if _, err := DecodePalette([]byte{1, 2}); !errors.Is(err, ErrDecode) {
		t.Errorf("short palette: err = %v", err)
	}
}

func TestText(t *testing.T) {
	enc, err := textenc.Lookup("macroman")
	if err != nil {
		t.Fatal(err)
	}
	data, err := EncodeText("café\rline2\r\nline3", enc)
	if err != nil {
		t.Fatal(err)
	}
	txt, err := DecodeText(data, enc)
	if err != nil {
		t.Fatalf("DecodeText() error = %v", err)
	}
	if txt.Text != "café\rline2\r\nline3" {
		t.Errorf("Text = %q", txt.Text)
	}
	if got := txt.Export(); got != "café\nline2\nline3" {
		t.Errorf("Export() = %q", got)
	}
	if _, err := DecodeText([]byte{0, 0, 0, 16, 0, 0, 0, 0, 0, 0, 0, 0}, nil); !errors.Is(err, ErrDecode) {
		t.Errorf("bad header: err = %v", err)
	}
}

func TestSound(t *testing.T) {
	tests := []struct {
		name string
		in   Sound
	}{
		{"standard", Sound{SampleRate: 22050, SampleSize: 8, Channels: 1, Frames: 4, Data: []byte{1, 2, 3, 4}}},
		{"extended", Sound{SampleRate: 44100, SampleSize: 16, Channels: 2, Frames: 1, Data: []byte{0, 1, 0, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := DecodeSound(EncodeSound(&tt.in))
			if err != nil {
				t.Fatalf("DecodeSound() error = %v", err)
			}
			if s.SampleRate != tt.in.SampleRate || s.Channels != tt.in.Channels || s.SampleSize != tt.in.SampleSize || s.Frames != tt.in.Frames {
				t.Errorf("DecodeSound() = %+v", s)
			}
			if !bytes.Equal(s.Data, tt.in.Data) {
				t.Errorf("Data = %v", s.Data)
			}
		})
	}
	if _, err := DecodeSound([]byte{0, 9}); !errors.Is(err, ErrDecode) {
		t.Errorf("unknown format: err = %v", err)
	}
}
