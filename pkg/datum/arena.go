package datum

import "fmt"

// ListData is the storage of a linear list.
type ListData struct {
	Items  []Datum
	Sorted bool
}

// PropEntry is one key/value pair of a property list.
type PropEntry struct {
	Key   Datum
	Value Datum
}

// PropListData is the storage of a property list. Keys keep insertion order.
type PropListData struct {
	Entries []PropEntry
	Sorted  bool
}

// Property is one named slot of a script instance.
type Property struct {
	Name  string
	Value Datum
}

// InstanceData is the storage of a script instance.
type InstanceData struct {
	// Script identifies the cast member whose script was instantiated.
	ScriptLib    int
	ScriptMember int
	ScriptName   string
	Props        []Property
	// Ancestor is zero when the instance has no ancestor.
	Ancestor Handle
}

type object struct {
	kind  Kind
	list  *ListData
	props *PropListData
	inst  *InstanceData
	mark  bool
}

// Arena owns every composite value of a VM. It is not safe for concurrent
// use; the VM serialises access.
type Arena struct {
	// FloatPrecision is the number of decimals used when floats are
	// rendered as strings.
	FloatPrecision int

	objs []*object
	free []Handle
	live int
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{FloatPrecision: 4, objs: []*object{nil}}
}

// Reset drops every composite value.
func (a *Arena) Reset() {
	a.objs = []*object{nil}
	a.free = nil
	a.live = 0
}

// Len returns the number of live composite values.
func (a *Arena) Len() int { return a.live }

func (a *Arena) alloc(o *object) Handle {
	a.live++
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		a.objs[h] = o
		return h
	}
	a.objs = append(a.objs, o)
	return Handle(len(a.objs) - 1)
}

func (a *Arena) get(h Handle) *object {
	if h == 0 || int(h) >= len(a.objs) {
		return nil
	}
	return a.objs[h]
}

// NewList allocates a linear list holding items.
func (a *Arena) NewList(items ...Datum) Datum {
	return a.newList(KindList, items)
}

// NewArgList allocates an argument list. noRet selects the variant whose
// call result is discarded.
func (a *Arena) NewArgList(noRet bool, items ...Datum) Datum {
	if noRet {
		return a.newList(KindArgListNoRet, items)
	}
	return a.newList(KindArgList, items)
}

func (a *Arena) newList(kind Kind, items []Datum) Datum {
	l := &ListData{Items: append([]Datum(nil), items...)}
	h := a.alloc(&object{kind: kind, list: l})
	return Datum{Kind: kind, H: h}
}

// NewPropList allocates a property list.
func (a *Arena) NewPropList(entries ...PropEntry) Datum {
	p := &PropListData{Entries: append([]PropEntry(nil), entries...)}
	h := a.alloc(&object{kind: KindPropList, props: p})
	return Datum{Kind: KindPropList, H: h}
}

// NewInstance allocates a script instance with no properties.
func (a *Arena) NewInstance(lib, member int, name string) Datum {
	inst := &InstanceData{ScriptLib: lib, ScriptMember: member, ScriptName: name}
	h := a.alloc(&object{kind: KindInstance, inst: inst})
	return Datum{Kind: KindInstance, H: h}
}

// List returns the storage of a list or argument list datum.
func (a *Arena) List(d Datum) (*ListData, error) {
	if !d.IsList() {
		return nil, fmt.Errorf("%w: expected list, got %s", ErrType, d.Kind)
	}
	o := a.get(d.H)
	if o == nil || o.list == nil {
		return nil, fmt.Errorf("%w: dangling list handle %d", ErrType, d.H)
	}
	return o.list, nil
}

// PropList returns the storage of a property list datum.
func (a *Arena) PropList(d Datum) (*PropListData, error) {
	if d.Kind != KindPropList {
		return nil, fmt.Errorf("%w: expected propList, got %s", ErrType, d.Kind)
	}
	o := a.get(d.H)
	if o == nil || o.props == nil {
		return nil, fmt.Errorf("%w: dangling propList handle %d", ErrType, d.H)
	}
	return o.props, nil
}

// Instance returns the storage of a script instance datum.
func (a *Arena) Instance(d Datum) (*InstanceData, error) {
	if d.Kind != KindInstance {
		return nil, fmt.Errorf("%w: expected instance, got %s", ErrType, d.Kind)
	}
	return a.instance(d.H)
}

func (a *Arena) instance(h Handle) (*InstanceData, error) {
	o := a.get(h)
	if o == nil || o.inst == nil {
		return nil, fmt.Errorf("%w: dangling instance handle %d", ErrType, h)
	}
	return o.inst, nil
}

// Lookup returns the composite datum for a handle, for inspection by
// handle id.
func (a *Arena) Lookup(h Handle) (Datum, bool) {
	o := a.get(h)
	if o == nil {
		return Void, false
	}
	return Datum{Kind: o.kind, H: h}, true
}

// Collect frees every composite value not reachable from roots and returns
// the number of values freed.
func (a *Arena) Collect(roots ...Datum) int {
	for _, o := range a.objs {
		if o != nil {
			o.mark = false
		}
	}
	var stack []Handle
	push := func(d Datum) {
		if d.Kind.Composite() {
			stack = append(stack, d.H)
		}
	}
	for _, r := range roots {
		push(r)
	}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		o := a.get(h)
		if o == nil || o.mark {
			continue
		}
		o.mark = true
		switch {
		case o.list != nil:
			for _, it := range o.list.Items {
				push(it)
			}
		case o.props != nil:
			for _, e := range o.props.Entries {
				push(e.Key)
				push(e.Value)
			}
		case o.inst != nil:
			for _, p := range o.inst.Props {
				push(p.Value)
			}
			if o.inst.Ancestor != 0 {
				stack = append(stack, o.inst.Ancestor)
			}
		}
	}
	freed := 0
	for i := 1; i < len(a.objs); i++ {
		o := a.objs[i]
		if o == nil || o.mark {
			continue
		}
		a.objs[i] = nil
		a.free = append(a.free, Handle(i))
		a.live--
		freed++
	}
	return freed
}
