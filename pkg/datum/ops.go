package datum

import (
	"fmt"
	"math"
)

// Op is a binary arithmetic operator.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "mod"
	}
	return "?"
}

// Add returns x + y.
func (a *Arena) Add(x, y Datum) (Datum, error) { return a.Arith(OpAdd, x, y) }

// Sub returns x - y.
func (a *Arena) Sub(x, y Datum) (Datum, error) { return a.Arith(OpSub, x, y) }

// Mul returns x * y.
func (a *Arena) Mul(x, y Datum) (Datum, error) { return a.Arith(OpMul, x, y) }

// Div returns x / y. Integer division truncates.
func (a *Arena) Div(x, y Datum) (Datum, error) { return a.Arith(OpDiv, x, y) }

// Mod returns x mod y.
func (a *Arena) Mod(x, y Datum) (Datum, error) { return a.Arith(OpMod, x, y) }

// Arith applies op to x and y.
//
// Integers combine into integers with 32-bit wrap-around; a float operand
// makes the result a float. Void counts as 0 and numeric strings are
// parsed. Points and rects combine component-wise with each other, with
// lists of the same length and with numbers. Lists combine element-wise
// with lists (over the shorter length) and with scalars, producing a new
// list. Colors add and subtract channel-wise.
func (a *Arena) Arith(op Op, x, y Datum) (Datum, error) {
	switch {
	case isGeometry(x) || isGeometry(y):
		return a.geometryArith(op, x, y)
	case x.IsList() || y.IsList():
		return a.listArith(op, x, y)
	case x.Kind == KindColor && y.Kind == KindColor && (op == OpAdd || op == OpSub):
		if x.I != 0 || y.I != 0 {
			break
		}
		var out [4]int64
		for i := 0; i < 3; i++ {
			v, _ := intArith(op, x.P[i], y.P[i])
			out[i] = min(max(v, 0), 255)
		}
		return Datum{Kind: KindColor, P: out}, nil
	}
	nx, err := Number(x)
	if err != nil {
		return Void, fmt.Errorf("%w: %s %s %s", ErrType, x.Kind, op, y.Kind)
	}
	ny, err := Number(y)
	if err != nil {
		return Void, fmt.Errorf("%w: %s %s %s", ErrType, x.Kind, op, y.Kind)
	}
	return numberArith(op, nx, ny)
}

func numberArith(op Op, x, y Datum) (Datum, error) {
	if x.Kind == KindInt && y.Kind == KindInt {
		n, err := intArith(op, x.I, y.I)
		if err != nil {
			return Void, err
		}
		return Int(n), nil
	}
	fx, fy := floatOf(x), floatOf(y)
	switch op {
	case OpAdd:
		return Float(fx + fy), nil
	case OpSub:
		return Float(fx - fy), nil
	case OpMul:
		return Float(fx * fy), nil
	case OpDiv:
		if fy == 0 {
			return Void, ErrDivideByZero
		}
		return Float(fx / fy), nil
	case OpMod:
		if fy == 0 {
			return Void, ErrDivideByZero
		}
		return Float(math.Mod(fx, fy)), nil
	}
	return Void, fmt.Errorf("%w: unknown operator %d", ErrType, op)
}

func intArith(op Op, x, y int64) (int64, error) {
	var r int64
	switch op {
	case OpAdd:
		r = x + y
	case OpSub:
		r = x - y
	case OpMul:
		r = x * y
	case OpDiv:
		if y == 0 {
			return 0, ErrDivideByZero
		}
		r = x / y
	case OpMod:
		if y == 0 {
			return 0, ErrDivideByZero
		}
		r = x % y
	default:
		return 0, fmt.Errorf("%w: unknown operator %d", ErrType, op)
	}
	return int64(int32(r)), nil
}

func isGeometry(d Datum) bool { return d.Kind == KindPoint || d.Kind == KindRect }

func geometryLen(d Datum) int {
	if d.Kind == KindPoint {
		return 2
	}
	return 4
}

// components returns the integer components of a geometry value or of a
// list of numbers with exactly n elements.
func (a *Arena) components(d Datum, n int) ([]Datum, bool) {
	if isGeometry(d) {
		if geometryLen(d) != n {
			return nil, false
		}
		out := make([]Datum, n)
		for i := range out {
			out[i] = Int(d.P[i])
		}
		return out, true
	}
	if d.IsList() {
		l, err := a.List(d)
		if err != nil || len(l.Items) != n {
			return nil, false
		}
		return l.Items, true
	}
	return nil, false
}

func (a *Arena) geometryArith(op Op, x, y Datum) (Datum, error) {
	shape := x
	if !isGeometry(x) {
		shape = y
	}
	n := geometryLen(shape)
	xs, xok := a.components(x, n)
	ys, yok := a.components(y, n)
	switch {
	case xok && yok:
	case xok && !y.IsList() && !isGeometry(y):
		ys = repeat(y, n)
	case yok && !x.IsList() && !isGeometry(x):
		xs = repeat(x, n)
	default:
		return Void, fmt.Errorf("%w: %s %s %s", ErrType, x.Kind, op, y.Kind)
	}
	out := Datum{Kind: shape.Kind}
	for i := 0; i < n; i++ {
		r, err := a.Arith(op, xs[i], ys[i])
		if err != nil {
			return Void, err
		}
		v, err := ToInt(r)
		if err != nil {
			return Void, err
		}
		out.P[i] = v
	}
	return out, nil
}

func repeat(d Datum, n int) []Datum {
	out := make([]Datum, n)
	for i := range out {
		out[i] = d
	}
	return out
}

func (a *Arena) listArith(op Op, x, y Datum) (Datum, error) {
	var out []Datum
	switch {
	case x.IsList() && y.IsList():
		lx, err := a.List(x)
		if err != nil {
			return Void, err
		}
		ly, err := a.List(y)
		if err != nil {
			return Void, err
		}
		n := min(len(lx.Items), len(ly.Items))
		out = make([]Datum, 0, n)
		for i := 0; i < n; i++ {
			r, err := a.Arith(op, lx.Items[i], ly.Items[i])
			if err != nil {
				return Void, err
			}
			out = append(out, r)
		}
	case x.IsList():
		lx, err := a.List(x)
		if err != nil {
			return Void, err
		}
		for _, it := range lx.Items {
			r, err := a.Arith(op, it, y)
			if err != nil {
				return Void, err
			}
			out = append(out, r)
		}
	default:
		ly, err := a.List(y)
		if err != nil {
			return Void, err
		}
		for _, it := range ly.Items {
			r, err := a.Arith(op, x, it)
			if err != nil {
				return Void, err
			}
			out = append(out, r)
		}
	}
	return a.NewList(out...), nil
}

// Negate returns -x.
func (a *Arena) Negate(x Datum) (Datum, error) {
	switch x.Kind {
	case KindInt:
		return Int(int64(int32(-x.I))), nil
	case KindFloat:
		return Float(-x.F), nil
	case KindVoid:
		return Int(0), nil
	case KindPoint, KindRect:
		out := x
		for i := range out.P {
			out.P[i] = -out.P[i]
		}
		return out, nil
	case KindList:
		l, err := a.List(x)
		if err != nil {
			return Void, err
		}
		out := make([]Datum, len(l.Items))
		for i, it := range l.Items {
			if out[i], err = a.Negate(it); err != nil {
				return Void, err
			}
		}
		return a.NewList(out...), nil
	case KindString:
		n, err := Number(x)
		if err != nil {
			return Void, err
		}
		return a.Negate(n)
	}
	return Void, fmt.Errorf("%w: cannot negate %s", ErrType, x.Kind)
}

// Join concatenates the string forms of x and y, with a space between them
// when pad is set.
func (a *Arena) Join(x, y Datum, pad bool) Datum {
	if pad {
		return String(a.String(x) + " " + a.String(y))
	}
	return String(a.String(x) + a.String(y))
}
