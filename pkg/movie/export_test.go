package movie

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/zurustar/dirplayer/pkg/cast"
	"github.com/zurustar/dirplayer/pkg/chunk"
)

func TestExport(t *testing.T) {
	b := sampleBuilder(true)
	pal := color.Palette{
		color.RGBA{A: 0xff},
		color.RGBA{R: 0xff, A: 0xff},
		color.RGBA{G: 0xff, A: 0xff},
		color.RGBA{B: 0xff, A: 0xff},
		color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	}
	b.AddMember(6, &cast.Member{Type: cast.MemberPalette, Name: "Colors"}, map[chunk.FourCC][]byte{
		chunk.TagPalette: cast.EncodePalette(pal),
	})
	m, err := Load("test.dir", b.Bytes(), Options{Logger: quiet()})
	if err != nil {
		t.Fatal(err)
	}
	logo, _ := m.Member(1, 4)
	logo.Bitmap.PaletteID = 5

	dir := filepath.Join(t.TempDir(), "out")
	files, err := m.Export(dir)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Export() = %+v", files)
	}

	f, err := os.Open(filepath.Join(dir, "1_4_Logo.bmp"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := bmp.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if r, g, _, _ := img.At(0, 0).RGBA(); r>>8 != 0xff || g != 0 {
		t.Errorf("pixel (0,0) = %v, want red", img.At(0, 0))
	}

	text, err := os.ReadFile(filepath.Join(dir, "1_5_Greeting.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != "hello\nworld" {
		t.Errorf("text = %q", text)
	}
}

func TestPalette_Fallback(t *testing.T) {
	m, err := Load("test.dir", sampleBuilder(false).Bytes(), Options{Logger: quiet()})
	if err != nil {
		t.Fatal(err)
	}
	logo, _ := m.Member(1, 4)
	tests := []struct {
		name string
		id   int16
	}{
		{"built in", -1},
		{"missing member", 40},
		{"not a palette", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logo.Bitmap.PaletteID = tt.id
			if got := m.Palette(logo); got != nil {
				t.Errorf("Palette() = %v, want nil", got)
			}
		})
	}
}

func TestExportName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Logo", "1_2_Logo"},
		{"a/b:c", "1_2_a_b_c"},
		{"  ", "1_2"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			mem := &Member{Member: &cast.Member{Name: tt.name}, Lib: 1, Number: 2}
			if got := exportName(mem); got != tt.want {
				t.Errorf("exportName(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}
