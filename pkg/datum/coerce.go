package datum

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseNumber parses s as an integer or float literal. Surrounding spaces
// are ignored.
func ParseNumber(s string) (Datum, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Void, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(n), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) {
		return Float(f), true
	}
	return Void, false
}

// Number coerces d to an integer or float datum. Void counts as 0 and
// strings are parsed; everything else is a type error.
func Number(d Datum) (Datum, error) {
	switch d.Kind {
	case KindInt, KindFloat:
		return d, nil
	case KindVoid:
		return Int(0), nil
	case KindString:
		if n, ok := ParseNumber(d.S); ok {
			return n, nil
		}
		return Void, fmt.Errorf("%w: %q is not a number", ErrType, d.S)
	}
	return Void, fmt.Errorf("%w: expected number, got %s", ErrType, d.Kind)
}

// ToInt coerces d to an integer. Floats are truncated.
func ToInt(d Datum) (int64, error) {
	n, err := Number(d)
	if err != nil {
		return 0, err
	}
	if n.Kind == KindFloat {
		return int64(n.F), nil
	}
	return n.I, nil
}

// ToFloat coerces d to a float.
func ToFloat(d Datum) (float64, error) {
	n, err := Number(d)
	if err != nil {
		return 0, err
	}
	if n.Kind == KindInt {
		return float64(n.I), nil
	}
	return n.F, nil
}

// Truthy reports whether d counts as true in a condition. Numbers are true
// when non-zero, void is false, numeric strings follow their value and every
// reference or composite is true.
func Truthy(d Datum) bool {
	switch d.Kind {
	case KindVoid:
		return false
	case KindInt:
		return d.I != 0
	case KindFloat:
		return d.F != 0
	case KindString:
		n, ok := ParseNumber(d.S)
		return ok && Truthy(n)
	}
	return true
}

// Round returns the nearest integer, halves away from zero.
func Round(f float64) int64 {
	return int64(math.Round(f))
}
