package datum

import (
	"errors"
	"testing"
)

func TestArith(t *testing.T) {
	a := NewArena()
	tests := []struct {
		name string
		op   Op
		x, y Datum
		want Datum
	}{
		{"int add", OpAdd, Int(2), Int(3), Int(5)},
		{"int float", OpAdd, Int(2), Float(0.5), Float(2.5)},
		{"void is zero", OpAdd, Void, Int(7), Int(7)},
		{"numeric string", OpMul, String("4"), Int(3), Int(12)},
		{"float string", OpSub, String("1.5"), Int(1), Float(0.5)},
		{"int division truncates", OpDiv, Int(7), Int(2), Int(3)},
		{"float division", OpDiv, Float(7), Int(2), Float(3.5)},
		{"mod", OpMod, Int(7), Int(3), Int(1)},
		{"wraps at 32 bits", OpAdd, Int(2147483647), Int(1), Int(-2147483648)},
		{"point add", OpAdd, Point(1, 2), Point(10, 20), Point(11, 22)},
		{"point times int", OpMul, Point(1, 2), Int(3), Point(3, 6)},
		{"rect minus int", OpSub, Rect(10, 10, 20, 20), Int(5), Rect(5, 5, 15, 15)},
		{"rect plus list", OpAdd, Rect(0, 0, 1, 1), a.NewList(Int(1), Int(2), Int(3), Int(4)), Rect(1, 2, 4, 5)},
		{"rgb add clamps", OpAdd, RGB(200, 10, 0), RGB(100, 10, 0), RGB(255, 20, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Arith(tt.op, tt.x, tt.y)
			if err != nil {
				t.Fatalf("Arith() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Arith() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestArith_Lists(t *testing.T) {
	a := NewArena()
	x := a.NewList(Int(1), Int(2), Int(3))
	y := a.NewList(Int(10), Int(20))

	sum, err := a.Add(x, y)
	if err != nil {
		t.Fatal(err)
	}
	if got := a.Format(sum); got != "[11, 22]" {
		t.Errorf("list + list = %s", got)
	}
	scaled, err := a.Mul(x, Int(2))
	if err != nil {
		t.Fatal(err)
	}
	if got := a.Format(scaled); got != "[2, 4, 6]" {
		t.Errorf("list * 2 = %s", got)
	}
	if got := a.Format(x); got != "[1, 2, 3]" {
		t.Errorf("operand modified: %s", got)
	}
}

func TestArith_Errors(t *testing.T) {
	a := NewArena()
	tests := []struct {
		name string
		op   Op
		x, y Datum
		want error
	}{
		{"non numeric string", OpAdd, String("abc"), Int(1), ErrType},
		{"symbol", OpAdd, Symbol("a"), Int(1), ErrType},
		{"instance", OpSub, a.NewInstance(1, 1, "s"), Int(1), ErrType},
		{"int division by zero", OpDiv, Int(1), Int(0), ErrDivideByZero},
		{"float division by zero", OpDiv, Float(1), Int(0), ErrDivideByZero},
		{"point plus symbol", OpAdd, Point(1, 1), Symbol("x"), ErrType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Arith(tt.op, tt.x, tt.y); !errors.Is(err, tt.want) {
				t.Errorf("Arith() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEqualAndCompare(t *testing.T) {
	a := NewArena()
	eq := []struct {
		name string
		x, y Datum
		want bool
	}{
		{"int float", Int(1), Float(1), true},
		{"int numeric string", Int(5), String("5"), true},
		{"int word", Int(5), String("five"), false},
		{"strings exact", String("Abc"), String("abc"), false},
		{"symbols fold", Symbol("Abc"), Symbol("abc"), true},
		{"void void", Void, Void, true},
		{"void zero", Void, Int(0), true},
		{"void empty string", Void, String(""), false},
		{"lists", a.NewList(Int(1), String("a")), a.NewList(Int(1), String("a")), true},
		{"list lengths", a.NewList(Int(1)), a.NewList(Int(1), Int(2)), false},
		{"members", MemberRef(1, 2), MemberRef(1, 2), true},
		{"points", Point(1, 2), Point(2, 1), false},
	}
	for _, tt := range eq {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Equal(tt.x, tt.y); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}

	cmp := []struct {
		name string
		x, y Datum
		want int
	}{
		{"numbers", Int(1), Float(1.5), -1},
		{"numeric string", String("10"), Int(9), 1},
		{"lexical fallback", Int(5), String("abc"), -1},
		{"strings", String("b"), String("a"), 1},
		{"void is bottom", Void, Int(-100), -1},
		{"void above nothing", String(""), Void, 1},
	}
	for _, tt := range cmp {
		t.Run("compare "+tt.name, func(t *testing.T) {
			got, err := a.Compare(tt.x, tt.y)
			if err != nil {
				t.Fatalf("Compare() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Compare() = %d, want %d", got, tt.want)
			}
		})
	}
	if _, err := a.Compare(Point(1, 1), Int(1)); !errors.Is(err, ErrType) {
		t.Errorf("Compare(point, int) error = %v", err)
	}
}

func TestFormat(t *testing.T) {
	a := NewArena()
	pl := a.NewPropList(PropEntry{Symbol("a"), Int(1)}, PropEntry{String("b"), a.NewList()})
	tests := []struct {
		d        Datum
		str, lit string
	}{
		{Int(42), "42", "42"},
		{Float(1.5), "1.5000", "1.5000"},
		{String("hi"), "hi", `"hi"`},
		{Symbol("#foo"), "foo", "#foo"},
		{Void, "", "<Void>"},
		{pl, `[#a: 1, "b": []]`, `[#a: 1, "b": []]`},
		{a.NewPropList(), "[:]", "[:]"},
		{Point(1, 2), "point(1, 2)", "point(1, 2)"},
		{MemberRef(1, 3), "(member 3 of castLib 1)", "(member 3 of castLib 1)"},
	}
	for _, tt := range tests {
		t.Run(tt.lit, func(t *testing.T) {
			if got := a.String(tt.d); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
			if got := a.Format(tt.d); got != tt.lit {
				t.Errorf("Format() = %q, want %q", got, tt.lit)
			}
		})
	}
}

func TestCoercion(t *testing.T) {
	if n, err := ToInt(Float(2.9)); err != nil || n != 2 {
		t.Errorf("ToInt(2.9) = %d, %v", n, err)
	}
	if n, err := ToInt(String(" 12 ")); err != nil || n != 12 {
		t.Errorf("ToInt(\" 12 \") = %d, %v", n, err)
	}
	if _, err := ToFloat(Symbol("x")); !errors.Is(err, ErrType) {
		t.Errorf("ToFloat(#x) error = %v", err)
	}
	for _, d := range []Datum{Int(1), Float(0.1), String("3"), NewArena().NewList()} {
		if !Truthy(d) {
			t.Errorf("Truthy(%+v) = false", d)
		}
	}
	for _, d := range []Datum{Void, Int(0), String("abc"), String("0")} {
		if Truthy(d) {
			t.Errorf("Truthy(%+v) = true", d)
		}
	}
}

func TestCollect(t *testing.T) {
	a := NewArena()
	inner := a.NewList(Int(1))
	root := a.NewPropList(PropEntry{Symbol("x"), inner})
	inst := a.NewInstance(1, 1, "parent")
	anc := a.NewInstance(1, 2, "ancestor")
	if err := a.SetAncestor(inst, anc); err != nil {
		t.Fatal(err)
	}
	a.NewList(Int(2)) // garbage
	a.NewList(Int(3)) // garbage

	if freed := a.Collect(root, inst); freed != 2 {
		t.Errorf("Collect() freed %d, want 2", freed)
	}
	if a.Len() != 4 {
		t.Errorf("Len() = %d, want 4", a.Len())
	}
	if _, err := a.List(inner); err != nil {
		t.Errorf("reachable list freed: %v", err)
	}
	if _, err := a.Instance(anc); err != nil {
		t.Errorf("ancestor freed: %v", err)
	}
	// Freed handles are reused.
	l := a.NewList()
	if int(l.H) > 6 {
		t.Errorf("handle %d not reused", l.H)
	}
}
