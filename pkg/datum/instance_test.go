package datum

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSetAncestor_RejectsCycles(t *testing.T) {
	a := NewArena()
	x := a.NewInstance(1, 1, "x")
	y := a.NewInstance(1, 2, "y")
	z := a.NewInstance(1, 3, "z")

	if err := a.SetAncestor(x, y); err != nil {
		t.Fatal(err)
	}
	if err := a.SetInstanceProp(y, "ancestor", z); err != nil {
		t.Fatal(err)
	}
	if err := a.SetAncestor(z, x); !errors.Is(err, ErrType) {
		t.Errorf("cycle z -> x: error = %v", err)
	}
	if err := a.SetAncestor(x, x); !errors.Is(err, ErrType) {
		t.Errorf("self ancestor: error = %v", err)
	}
	if err := a.SetAncestor(x, Int(3)); !errors.Is(err, ErrType) {
		t.Errorf("non-instance ancestor: error = %v", err)
	}
	chain, err := a.Ancestors(x)
	if err != nil || len(chain) != 3 || chain[2] != z {
		t.Errorf("Ancestors() = %v, %v", chain, err)
	}
	if anc, _, _ := a.InstanceProp(x, "ANCESTOR"); anc != y {
		t.Errorf("ancestor property = %+v", anc)
	}
	if err := a.SetAncestor(x, Void); err != nil {
		t.Fatal(err)
	}
	if chain, _ := a.Ancestors(x); len(chain) != 1 {
		t.Errorf("cleared chain = %v", chain)
	}
}

func TestSetAncestor_DepthLimit(t *testing.T) {
	a := NewArena()
	cur := a.NewInstance(1, 1, "root")
	var err error
	for i := 0; i < MaxAncestorDepth+5 && err == nil; i++ {
		next := a.NewInstance(1, 1, "link")
		err = a.SetAncestor(next, cur)
		cur = next
	}
	if !errors.Is(err, ErrType) {
		t.Errorf("deep chain error = %v", err)
	}
}

// TestProperty_AncestorResolution builds a chain of n instances, declares a
// property on the instance at depth k and checks lookup and write-through
// behaviour from the head of the chain.
func TestProperty_AncestorResolution(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("property at depth k resolves from the head", prop.ForAll(
		func(n, k int, v int64) bool {
			k = k % n
			a := NewArena()
			chain := make([]Datum, n)
			for i := range chain {
				chain[i] = a.NewInstance(1, i+1, "s")
			}
			for i := 0; i+1 < n; i++ {
				if err := a.SetAncestor(chain[i], chain[i+1]); err != nil {
					return false
				}
			}
			if err := a.SetInstanceProp(chain[k], "pValue", Int(v)); err != nil {
				return false
			}

			got, ok, err := a.InstanceProp(chain[0], "pvalue")
			if err != nil || !ok || got != Int(v) {
				return false
			}

			// A write from the head creates a local slot and leaves the
			// ancestor's value alone.
			if err := a.SetInstanceProp(chain[0], "pValue", String("local")); err != nil {
				return false
			}
			head, _, _ := a.InstanceProp(chain[0], "pValue")
			owner, _, _ := a.InstanceProp(chain[k], "pValue")
			if k == 0 {
				return head == String("local") && owner == String("local")
			}
			return head == String("local") && owner == Int(v)
		},
		gen.IntRange(1, 40),
		gen.IntRange(0, 1000),
		gen.Int64(),
	))

	properties.Property("missing property is not found", prop.ForAll(
		func(n int) bool {
			a := NewArena()
			head := a.NewInstance(1, 1, "s")
			cur := head
			for i := 1; i < n; i++ {
				next := a.NewInstance(1, i+1, "s")
				if err := a.SetAncestor(cur, next); err != nil {
					return false
				}
				cur = next
			}
			_, ok, err := a.InstanceProp(head, "nothing")
			return err == nil && !ok
		},
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}
