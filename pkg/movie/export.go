package movie

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
)

// Exported is one file written by Export.
type Exported struct {
	Lib    int
	Number int
	Path   string
}

// Palette returns the palette a bitmap member draws with, or nil for the
// default palette of its depth. Stored palette ids are zero-based member
// numbers; negative ids are built-in palettes.
func (m *Movie) Palette(mem *Member) color.Palette {
	if mem.Bitmap == nil || mem.Bitmap.PaletteID < 0 {
		return nil
	}
	lib := int(mem.Bitmap.PaletteCastLib)
	if lib <= 0 {
		lib = mem.Lib
	}
	if p, ok := m.Member(lib, int(mem.Bitmap.PaletteID)+1); ok && p.Palette != nil {
		return p.Palette
	}
	return nil
}

// Export writes every decoded bitmap as BMP and every text member as UTF-8
// text into dir, which is created if needed. Files are named
// "<lib>_<member>_<name>" with the extension of their format.
func (m *Movie) Export(dir string) ([]Exported, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	var out []Exported
	for _, lib := range m.Casts {
		for _, mem := range lib.MemberList() {
			var (
				data []byte
				ext  string
			)
			switch {
			case mem.BitmapData != nil:
				var buf bytes.Buffer
				if err := mem.BitmapData.WriteBMP(&buf, m.Palette(mem)); err != nil {
					return out, fmt.Errorf("member %d of castLib %d: %w", mem.Number, mem.Lib, err)
				}
				data, ext = buf.Bytes(), ".bmp"
			case mem.Text != nil:
				data, ext = []byte(mem.Text.Export()), ".txt"
			default:
				continue
			}
			path := filepath.Join(dir, exportName(mem)+ext)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return out, fmt.Errorf("write %s: %w", path, err)
			}
			out = append(out, Exported{Lib: mem.Lib, Number: mem.Number, Path: path})
			if m.opts.Logger != nil {
				m.opts.Logger.Debug("member exported", "lib", mem.Lib, "member", mem.Number, "path", path)
			}
		}
	}
	return out, nil
}

func exportName(mem *Member) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < ' ' {
			return '_'
		}
		return r
	}, strings.TrimSpace(mem.Name))
	if name == "" {
		return fmt.Sprintf("%d_%d", mem.Lib, mem.Number)
	}
	return fmt.Sprintf("%d_%d_%s", mem.Lib, mem.Number, name)
}
