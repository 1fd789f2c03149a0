package textenc

import (
	"testing"

	"golang.org/x/text/encoding/japanese"
)

func TestDecode(t *testing.T) {
	sjis, err := Lookup("shift-jis")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		enc  string
		in   []byte
		want string
	}{
		{"ascii", "macroman", []byte("hello"), "hello"},
		{"mac roman e-acute", "macroman", []byte{0x8e}, "é"},
		{"mac roman bullet", "", []byte{0xa5}, "•"},
		{"shift-jis", "sjis", []byte{0x82, 0xa0}, "あ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Lookup(tt.enc)
			if err != nil {
				t.Fatal(err)
			}
			if got := Decode(enc, tt.in); got != tt.want {
				t.Errorf("Decode() = %q, want %q", got, tt.want)
			}
		})
	}
	if sjis != japanese.ShiftJIS {
		t.Error("sjis lookup mismatch")
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, err := Lookup("ebcdic"); err == nil {
		t.Error("expected error")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	enc, _ := Lookup("macroman")
	b, err := Encode(enc, "café")
	if err != nil {
		t.Fatal(err)
	}
	if got := Decode(enc, b); got != "café" {
		t.Errorf("round trip = %q", got)
	}
}
