package datum

import (
	"fmt"
	"strings"
)

// AncestorProp is the instance property that holds the ancestor link.
const AncestorProp = "ancestor"

func (inst *InstanceData) slot(name string) int {
	for i, p := range inst.Props {
		if strings.EqualFold(p.Name, name) {
			return i
		}
	}
	return -1
}

// Ancestors returns the instance followed by its ancestors, nearest first.
// The walk stops after MaxAncestorDepth links.
func (a *Arena) Ancestors(d Datum) ([]Datum, error) {
	if _, err := a.Instance(d); err != nil {
		return nil, err
	}
	chain := []Datum{d}
	h := d.H
	for depth := 0; ; depth++ {
		inst, err := a.instance(h)
		if err != nil {
			return nil, err
		}
		if inst.Ancestor == 0 {
			return chain, nil
		}
		if depth >= MaxAncestorDepth {
			return nil, fmt.Errorf("%w: ancestor chain deeper than %d", ErrType, MaxAncestorDepth)
		}
		h = inst.Ancestor
		chain = append(chain, Datum{Kind: KindInstance, H: h})
	}
}

// Ancestor returns the ancestor of an instance, or void.
func (a *Arena) Ancestor(d Datum) (Datum, error) {
	inst, err := a.Instance(d)
	if err != nil {
		return Void, err
	}
	if inst.Ancestor == 0 {
		return Void, nil
	}
	return Datum{Kind: KindInstance, H: inst.Ancestor}, nil
}

// SetAncestor links d to anc. anc must be void or an instance whose chain
// does not contain d.
func (a *Arena) SetAncestor(d, anc Datum) error {
	inst, err := a.Instance(d)
	if err != nil {
		return err
	}
	if anc.IsVoid() {
		inst.Ancestor = 0
		return nil
	}
	chain, err := a.Ancestors(anc)
	if err != nil {
		return err
	}
	if len(chain) >= MaxAncestorDepth {
		return fmt.Errorf("%w: ancestor chain deeper than %d", ErrType, MaxAncestorDepth)
	}
	for _, c := range chain {
		if c.H == d.H {
			return fmt.Errorf("%w: ancestor cycle", ErrType)
		}
	}
	inst.Ancestor = anc.H
	return nil
}

// InstanceProp reads a property: the instance's own slot first, then each
// ancestor in order. The ancestor property itself yields the ancestor.
func (a *Arena) InstanceProp(d Datum, name string) (Datum, bool, error) {
	if strings.EqualFold(name, AncestorProp) {
		anc, err := a.Ancestor(d)
		return anc, err == nil, err
	}
	chain, err := a.Ancestors(d)
	if err != nil {
		return Void, false, err
	}
	for _, c := range chain {
		inst, err := a.instance(c.H)
		if err != nil {
			return Void, false, err
		}
		if i := inst.slot(name); i >= 0 {
			return inst.Props[i].Value, true, nil
		}
	}
	return Void, false, nil
}

// HasProp reports whether the instance or one of its ancestors declares
// name.
func (a *Arena) HasProp(d Datum, name string) bool {
	_, ok, err := a.InstanceProp(d, name)
	return ok && err == nil
}

// SetInstanceProp writes a property on the instance itself, creating the
// slot when needed; ancestors are never modified. Writing the ancestor
// property relinks the chain.
func (a *Arena) SetInstanceProp(d Datum, name string, v Datum) error {
	if strings.EqualFold(name, AncestorProp) {
		return a.SetAncestor(d, v)
	}
	inst, err := a.Instance(d)
	if err != nil {
		return err
	}
	if i := inst.slot(name); i >= 0 {
		inst.Props[i].Value = v
		return nil
	}
	inst.Props = append(inst.Props, Property{Name: name, Value: v})
	return nil
}

// DeclareProp adds a void slot for name unless the instance already has one.
func (a *Arena) DeclareProp(d Datum, name string) error {
	inst, err := a.Instance(d)
	if err != nil {
		return err
	}
	if inst.slot(name) < 0 {
		inst.Props = append(inst.Props, Property{Name: name})
	}
	return nil
}
