// Package cast decodes movie metadata and cast member resources: the movie
// config, key table, cast list, cast association tables, member records and
// the media they point at (bitmaps, palettes, text, sounds).
//
// Every decoder is a pure function over a byte slice. Decoders read only the
// fields they know and ignore trailing bytes.
package cast

import "errors"

// ErrDecode is returned when a resource cannot be decoded.
var ErrDecode = errors.New("decode error")

// HumanVersion maps the raw director version stored in the config chunk to
// the marketing version number (1201 -> 500, 1951 -> 1200, ...).
func HumanVersion(raw uint16) int {
	switch {
	case raw >= 1951:
		return 1200
	case raw >= 1922:
		return 1150
	case raw >= 1921:
		return 1100
	case raw >= 1851:
		return 1000
	case raw >= 1700:
		return 850
	case raw >= 1410:
		return 800
	case raw >= 1224:
		return 700
	case raw >= 1218:
		return 600
	case raw >= 1201:
		return 500
	case raw >= 1117:
		return 404
	case raw >= 1115:
		return 400
	case raw >= 1029:
		return 310
	case raw >= 1028:
		return 300
	}
	return 200
}
