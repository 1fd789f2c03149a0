// Package datum implements the dynamically typed value model of the Lingo
// virtual machine.
//
// A Datum is a small tagged value. Scalars (integers, floats, strings,
// symbols, points, rects, references) are stored inline; composite values
// (lists, property lists, script instances, argument lists) live in an Arena
// and a Datum only carries their Handle. Copying a Datum copies the handle, so
// every copy aliases the same composite.
package datum

import (
	"errors"
	"strings"
)

var (
	// ErrType is returned when an operation is applied to operands of the
	// wrong type.
	ErrType = errors.New("type error")
	// ErrIndexOutOfRange is returned for list and chunk indexes outside the
	// valid range.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrDivideByZero is returned by Div and Mod with a zero divisor.
	ErrDivideByZero = errors.New("division by zero")
)

// MaxAncestorDepth bounds ancestor chain traversal.
const MaxAncestorDepth = 100

// Kind identifies the variant held by a Datum.
type Kind uint8

const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindString
	KindSymbol
	KindList
	KindPropList
	KindInstance
	KindScriptRef
	KindMemberRef
	KindSpriteRef
	KindCastLibRef
	KindPoint
	KindRect
	KindColor
	KindTimeout
	KindArgList
	KindArgListNoRet
	KindVarRef
)

var kindNames = [...]string{
	KindVoid:         "void",
	KindInt:          "integer",
	KindFloat:        "float",
	KindString:       "string",
	KindSymbol:       "symbol",
	KindList:         "list",
	KindPropList:     "propList",
	KindInstance:     "instance",
	KindScriptRef:    "script",
	KindMemberRef:    "member",
	KindSpriteRef:    "sprite",
	KindCastLibRef:   "castLib",
	KindPoint:        "point",
	KindRect:         "rect",
	KindColor:        "color",
	KindTimeout:      "timeout",
	KindArgList:      "argList",
	KindArgListNoRet: "argListNoRet",
	KindVarRef:       "varRef",
}

// String returns the ilk name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Composite reports whether values of this kind live in an arena.
func (k Kind) Composite() bool {
	switch k {
	case KindList, KindPropList, KindInstance, KindArgList, KindArgListNoRet:
		return true
	}
	return false
}

// Handle identifies a composite value in an Arena. The zero handle is never
// allocated.
type Handle uint32

// Datum is a single runtime value. The zero Datum is void.
//
// Field use by kind:
//
//	Int, SpriteRef, CastLibRef   I
//	Float                        F
//	String, Symbol, Timeout      S
//	MemberRef, ScriptRef         I = cast library, J = member number
//	Point                        P[0], P[1]
//	Rect                         P[0..3] (left, top, right, bottom)
//	Color                        P[0..2] (r, g, b); I = 1 for a palette index in P[0]
//	VarRef                       S = name, I = variable kind
//	List, PropList, Instance,
//	ArgList, ArgListNoRet        H
type Datum struct {
	Kind Kind
	I    int64
	J    int64
	F    float64
	S    string
	P    [4]int64
	H    Handle
}

// Void is the void datum.
var Void = Datum{}

// Int returns an integer datum.
func Int(n int64) Datum { return Datum{Kind: KindInt, I: n} }

// Float returns a float datum.
func Float(f float64) Datum { return Datum{Kind: KindFloat, F: f} }

// String returns a string datum.
func String(s string) Datum { return Datum{Kind: KindString, S: s} }

// Symbol returns a symbol datum. The leading '#' is stripped if present.
func Symbol(name string) Datum {
	return Datum{Kind: KindSymbol, S: strings.TrimPrefix(name, "#")}
}

// Bool returns 1 for true and 0 for false; the language has no separate
// boolean type.
func Bool(b bool) Datum {
	if b {
		return Int(1)
	}
	return Int(0)
}

// Point returns a point datum.
func Point(x, y int64) Datum { return Datum{Kind: KindPoint, P: [4]int64{x, y}} }

// Rect returns a rect datum.
func Rect(left, top, right, bottom int64) Datum {
	return Datum{Kind: KindRect, P: [4]int64{left, top, right, bottom}}
}

// RGB returns an rgb color datum.
func RGB(r, g, b int64) Datum { return Datum{Kind: KindColor, P: [4]int64{r, g, b}} }

// PaletteIndex returns a palette index color datum.
func PaletteIndex(n int64) Datum { return Datum{Kind: KindColor, I: 1, P: [4]int64{n}} }

// MemberRef returns a cast member reference.
func MemberRef(lib, member int) Datum {
	return Datum{Kind: KindMemberRef, I: int64(lib), J: int64(member)}
}

// ScriptRef returns a reference to the script of a cast member.
func ScriptRef(lib, member int) Datum {
	return Datum{Kind: KindScriptRef, I: int64(lib), J: int64(member)}
}

// SpriteRef returns a sprite channel reference.
func SpriteRef(channel int) Datum { return Datum{Kind: KindSpriteRef, I: int64(channel)} }

// CastLibRef returns a cast library reference.
func CastLibRef(n int) Datum { return Datum{Kind: KindCastLibRef, I: int64(n)} }

// Timeout returns a reference to a named timeout object.
func Timeout(name string) Datum { return Datum{Kind: KindTimeout, S: name} }

// Variable kinds carried by a VarRef.
const (
	VarGlobal int64 = iota + 1
	VarLocal
	VarParam
	VarProperty
	VarField
)

// VarRef returns a reference to a named variable.
func VarRef(kind int64, name string) Datum { return Datum{Kind: KindVarRef, I: kind, S: name} }

// IsVoid reports whether d is void.
func (d Datum) IsVoid() bool { return d.Kind == KindVoid }

// IsNumber reports whether d is an integer or a float.
func (d Datum) IsNumber() bool { return d.Kind == KindInt || d.Kind == KindFloat }

// IsList reports whether d is a linear list or an argument list.
func (d Datum) IsList() bool {
	return d.Kind == KindList || d.Kind == KindArgList || d.Kind == KindArgListNoRet
}

// Ilk returns the symbol name used by the ilk() primitive.
func (d Datum) Ilk() string { return d.Kind.String() }
