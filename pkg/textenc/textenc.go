// Package textenc converts movie strings (Mac Roman, Shift-JIS and the
// like) to and from UTF-8.
package textenc

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Default is the encoding name used when none is configured.
const Default = "macroman"

// Lookup resolves a text_encoding name from the configuration.
func Lookup(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "macroman", "mac", "macintosh":
		return charmap.Macintosh, nil
	case "shift-jis", "shift_jis", "sjis":
		return japanese.ShiftJIS, nil
	case "windows-1252", "cp1252", "latin1":
		return charmap.Windows1252, nil
	case "utf-8", "utf8":
		return encoding.Nop, nil
	}
	return nil, fmt.Errorf("unknown text encoding %q", name)
}

// Decode converts data to UTF-8. A nil enc is Mac Roman.
func Decode(enc encoding.Encoding, data []byte) string {
	if enc == nil {
		enc = charmap.Macintosh
	}
	if isASCII(data) {
		return string(data)
	}
	reader := transform.NewReader(strings.NewReader(string(data)), enc.NewDecoder())
	out, err := io.ReadAll(reader)
	if err != nil {
		return string(data)
	}
	return string(out)
}

// Encode converts s back to the movie encoding.
func Encode(enc encoding.Encoding, s string) ([]byte, error) {
	if enc == nil {
		enc = charmap.Macintosh
	}
	out, _, err := transform.String(enc.NewEncoder(), s)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= 0x80 {
			return false
		}
	}
	return true
}
