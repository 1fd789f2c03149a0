package lingo

import (
	"encoding/binary"
	"math"
	"strconv"
)

// LiteralKind is the type tag of a script literal.
type LiteralKind uint32

const (
	LiteralInvalid LiteralKind = 0
	LiteralString  LiteralKind = 1
	LiteralInt     LiteralKind = 4
	LiteralFloat   LiteralKind = 9
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralString:
		return "string"
	case LiteralInt:
		return "int"
	case LiteralFloat:
		return "float"
	}
	return "invalid"
}

// Literal is a constant from the script's literal pool.
type Literal struct {
	Kind  LiteralKind
	Str   string
	Int   int32
	Float float64
}

func (l Literal) String() string {
	switch l.Kind {
	case LiteralString:
		return strconv.Quote(l.Str)
	case LiteralInt:
		return strconv.FormatInt(int64(l.Int), 10)
	case LiteralFloat:
		return strconv.FormatFloat(l.Float, 'g', -1, 64)
	}
	return "<void>"
}

// Float80 converts a big-endian 80-bit SANE extended value to float64.
// Values outside the float64 range saturate to +/-Inf.
func Float80(b []byte) float64 {
	if len(b) < 10 {
		return 0
	}
	exponent := binary.BigEndian.Uint16(b[0:2])
	sign := uint64(exponent&0x8000) << 48
	exponent &= 0x7fff
	fraction := binary.BigEndian.Uint64(b[2:10]) & 0x7fffffffffffffff

	var exp uint64
	switch exponent {
	case 0:
		exp = 0
	case 0x7fff:
		exp = 0x7ff
	default:
		norm := int64(exponent) - 0x3fff
		if norm < -0x3fe || norm >= 0x3ff {
			return math.Float64frombits(sign | 0x7ff<<52)
		}
		exp = uint64(norm + 0x3ff)
	}
	return math.Float64frombits(sign | exp<<52 | fraction>>11)
}
