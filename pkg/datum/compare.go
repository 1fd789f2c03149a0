package datum

import (
	"cmp"
	"fmt"
	"strings"
)

// Equal reports whether x and y are equal under the language's coercion
// rules. Numbers compare numerically, a number and a string compare
// numerically when the string parses, strings compare exactly, symbols
// compare case-insensitively, void equals void and 0, and lists compare
// element-wise.
func (a *Arena) Equal(x, y Datum) bool {
	return a.equal(x, y, 0)
}

func (a *Arena) equal(x, y Datum, depth int) bool {
	if depth > MaxAncestorDepth {
		return false
	}
	if x.IsNumber() && y.IsNumber() {
		return numericCompare(x, y) == 0
	}
	switch {
	case x.IsNumber() && y.Kind == KindString:
		n, ok := ParseNumber(y.S)
		return ok && numericCompare(x, n) == 0
	case x.Kind == KindString && y.IsNumber():
		n, ok := ParseNumber(x.S)
		return ok && numericCompare(n, y) == 0
	case x.Kind == KindVoid && y.Kind == KindInt:
		return y.I == 0
	case x.Kind == KindInt && y.Kind == KindVoid:
		return x.I == 0
	}
	if x.IsList() && y.IsList() {
		if x.H == y.H {
			return true
		}
		lx, errx := a.List(x)
		ly, erry := a.List(y)
		if errx != nil || erry != nil || len(lx.Items) != len(ly.Items) {
			return false
		}
		for i := range lx.Items {
			if !a.equal(lx.Items[i], ly.Items[i], depth+1) {
				return false
			}
		}
		return true
	}
	if x.Kind != y.Kind {
		return false
	}
	switch x.Kind {
	case KindVoid:
		return true
	case KindString:
		return x.S == y.S
	case KindSymbol, KindTimeout:
		return strings.EqualFold(x.S, y.S)
	case KindPropList:
		if x.H == y.H {
			return true
		}
		px, errx := a.PropList(x)
		py, erry := a.PropList(y)
		if errx != nil || erry != nil || len(px.Entries) != len(py.Entries) {
			return false
		}
		for i := range px.Entries {
			if !a.equal(px.Entries[i].Key, py.Entries[i].Key, depth+1) ||
				!a.equal(px.Entries[i].Value, py.Entries[i].Value, depth+1) {
				return false
			}
		}
		return true
	case KindInstance:
		return x.H == y.H
	case KindPoint, KindRect, KindColor:
		return x.P == y.P && x.I == y.I
	case KindMemberRef, KindScriptRef:
		return x.I == y.I && x.J == y.J
	case KindSpriteRef, KindCastLibRef:
		return x.I == y.I
	case KindVarRef:
		return x.I == y.I && x.S == y.S
	}
	return false
}

// Compare orders x and y: -1, 0 or +1. Numbers compare numerically; a
// number and a string compare numerically when the string parses and
// lexically otherwise; strings compare lexically and symbols
// case-insensitively. Void sorts below every other value. Values with no
// ordering yield ErrType unless they are equal.
func (a *Arena) Compare(x, y Datum) (int, error) {
	switch {
	case x.Kind == KindVoid && y.Kind == KindVoid:
		return 0, nil
	case x.Kind == KindVoid:
		return -1, nil
	case y.Kind == KindVoid:
		return 1, nil
	}
	if x.IsNumber() && y.IsNumber() {
		return numericCompare(x, y), nil
	}
	if x.IsNumber() && y.Kind == KindString {
		if n, ok := ParseNumber(y.S); ok {
			return numericCompare(x, n), nil
		}
		return strings.Compare(a.String(x), y.S), nil
	}
	if x.Kind == KindString && y.IsNumber() {
		if n, ok := ParseNumber(x.S); ok {
			return numericCompare(n, y), nil
		}
		return strings.Compare(x.S, a.String(y)), nil
	}
	if x.Kind == KindString && y.Kind == KindString {
		return strings.Compare(x.S, y.S), nil
	}
	if x.Kind == KindSymbol && y.Kind == KindSymbol {
		return strings.Compare(strings.ToLower(x.S), strings.ToLower(y.S)), nil
	}
	if a.Equal(x, y) {
		return 0, nil
	}
	return 0, fmt.Errorf("%w: cannot compare %s with %s", ErrType, x.Kind, y.Kind)
}

func numericCompare(x, y Datum) int {
	if x.Kind == KindInt && y.Kind == KindInt {
		return cmp.Compare(x.I, y.I)
	}
	return cmp.Compare(floatOf(x), floatOf(y))
}

func floatOf(d Datum) float64 {
	if d.Kind == KindInt {
		return float64(d.I)
	}
	return d.F
}
