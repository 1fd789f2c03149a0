package datum

import (
	"fmt"
	"slices"
	"strings"
)

// Count returns the number of elements of a list or property list, or the
// number of properties of an instance.
func (a *Arena) Count(d Datum) (int, error) {
	switch {
	case d.IsList():
		l, err := a.List(d)
		if err != nil {
			return 0, err
		}
		return len(l.Items), nil
	case d.Kind == KindPropList:
		p, err := a.PropList(d)
		if err != nil {
			return 0, err
		}
		return len(p.Entries), nil
	case d.Kind == KindInstance:
		inst, err := a.Instance(d)
		if err != nil {
			return 0, err
		}
		return len(inst.Props), nil
	}
	return 0, fmt.Errorf("%w: count of %s", ErrType, d.Kind)
}

func outOfRange(i, n int) error {
	return fmt.Errorf("%w: index %d, count %d", ErrIndexOutOfRange, i, n)
}

// GetAt returns the element at 1-based index i. For a property list it
// returns the i-th value.
func (a *Arena) GetAt(d Datum, i int) (Datum, error) {
	if d.Kind == KindPropList {
		p, err := a.PropList(d)
		if err != nil {
			return Void, err
		}
		if i < 1 || i > len(p.Entries) {
			return Void, outOfRange(i, len(p.Entries))
		}
		return p.Entries[i-1].Value, nil
	}
	if isGeometry(d) {
		if i < 1 || i > geometryLen(d) {
			return Void, outOfRange(i, geometryLen(d))
		}
		return Int(d.P[i-1]), nil
	}
	l, err := a.List(d)
	if err != nil {
		return Void, err
	}
	if i < 1 || i > len(l.Items) {
		return Void, outOfRange(i, len(l.Items))
	}
	return l.Items[i-1], nil
}

// SetAt stores v at 1-based index i. A linear list grows with void
// elements when i is past the end; a property list only replaces existing
// values.
func (a *Arena) SetAt(d Datum, i int, v Datum) error {
	if d.Kind == KindPropList {
		p, err := a.PropList(d)
		if err != nil {
			return err
		}
		if i < 1 || i > len(p.Entries) {
			return outOfRange(i, len(p.Entries))
		}
		p.Entries[i-1].Value = v
		return nil
	}
	l, err := a.List(d)
	if err != nil {
		return err
	}
	if i < 1 {
		return outOfRange(i, len(l.Items))
	}
	for len(l.Items) < i {
		l.Items = append(l.Items, Void)
	}
	l.Items[i-1] = v
	l.Sorted = false
	return nil
}

// Append adds v to the end of a list.
func (a *Arena) Append(d Datum, v Datum) error {
	l, err := a.List(d)
	if err != nil {
		return err
	}
	l.Items = append(l.Items, v)
	l.Sorted = false
	return nil
}

// ListAdd adds v to a list, keeping sorted lists sorted.
func (a *Arena) ListAdd(d Datum, v Datum) error {
	l, err := a.List(d)
	if err != nil {
		return err
	}
	if !l.Sorted {
		l.Items = append(l.Items, v)
		return nil
	}
	i, _ := slices.BinarySearchFunc(l.Items, v, a.order)
	for i < len(l.Items) && a.order(l.Items[i], v) == 0 {
		i++
	}
	l.Items = slices.Insert(l.Items, i, v)
	return nil
}

// AddAt inserts v before 1-based index i. Indexes past the end pad the list
// with void.
func (a *Arena) AddAt(d Datum, i int, v Datum) error {
	l, err := a.List(d)
	if err != nil {
		return err
	}
	if i < 1 {
		return outOfRange(i, len(l.Items))
	}
	for len(l.Items) < i-1 {
		l.Items = append(l.Items, Void)
	}
	l.Items = slices.Insert(l.Items, i-1, v)
	l.Sorted = false
	return nil
}

// DeleteAt removes the element at 1-based index i.
func (a *Arena) DeleteAt(d Datum, i int) error {
	if d.Kind == KindPropList {
		p, err := a.PropList(d)
		if err != nil {
			return err
		}
		if i < 1 || i > len(p.Entries) {
			return outOfRange(i, len(p.Entries))
		}
		p.Entries = slices.Delete(p.Entries, i-1, i)
		return nil
	}
	l, err := a.List(d)
	if err != nil {
		return err
	}
	if i < 1 || i > len(l.Items) {
		return outOfRange(i, len(l.Items))
	}
	l.Items = slices.Delete(l.Items, i-1, i)
	return nil
}

// DeleteOne removes the first element equal to v. It reports whether an
// element was removed.
func (a *Arena) DeleteOne(d Datum, v Datum) (bool, error) {
	pos, err := a.GetPos(d, v)
	if err != nil || pos == 0 {
		return false, err
	}
	return true, a.DeleteAt(d, pos)
}

// GetPos returns the 1-based position of the first element equal to v, or
// 0. For a property list the values are searched.
func (a *Arena) GetPos(d Datum, v Datum) (int, error) {
	if d.Kind == KindPropList {
		p, err := a.PropList(d)
		if err != nil {
			return 0, err
		}
		for i, e := range p.Entries {
			if a.Equal(e.Value, v) {
				return i + 1, nil
			}
		}
		return 0, nil
	}
	l, err := a.List(d)
	if err != nil {
		return 0, err
	}
	for i, it := range l.Items {
		if a.Equal(it, v) {
			return i + 1, nil
		}
	}
	return 0, nil
}

// GetOne returns the position of v in a list, or the key of the first
// property whose value equals v. It returns 0 when v is absent.
func (a *Arena) GetOne(d Datum, v Datum) (Datum, error) {
	if d.Kind == KindPropList {
		p, err := a.PropList(d)
		if err != nil {
			return Void, err
		}
		for _, e := range p.Entries {
			if a.Equal(e.Value, v) {
				return e.Key, nil
			}
		}
		return Int(0), nil
	}
	pos, err := a.GetPos(d, v)
	if err != nil {
		return Void, err
	}
	return Int(int64(pos)), nil
}

// GetLast returns the last element of a list or the last value of a
// property list, or void when it is empty.
func (a *Arena) GetLast(d Datum) (Datum, error) {
	n, err := a.Count(d)
	if err != nil || n == 0 {
		return Void, err
	}
	return a.GetAt(d, n)
}

// order is a total order used for sorting: Compare when defined, otherwise
// by kind.
func (a *Arena) order(x, y Datum) int {
	if c, err := a.Compare(x, y); err == nil {
		return c
	}
	return int(x.Kind) - int(y.Kind)
}

// Sort sorts a list by value or a property list by key. The list stays
// sorted for later ListAdd and AddProp calls.
func (a *Arena) Sort(d Datum) error {
	if d.Kind == KindPropList {
		p, err := a.PropList(d)
		if err != nil {
			return err
		}
		slices.SortStableFunc(p.Entries, func(x, y PropEntry) int { return a.order(x.Key, y.Key) })
		p.Sorted = true
		return nil
	}
	l, err := a.List(d)
	if err != nil {
		return err
	}
	slices.SortStableFunc(l.Items, a.order)
	l.Sorted = true
	return nil
}

// Duplicate returns a deep copy of a list or property list. Other values
// are returned unchanged.
func (a *Arena) Duplicate(d Datum) (Datum, error) {
	return a.duplicate(d, 0)
}

func (a *Arena) duplicate(d Datum, depth int) (Datum, error) {
	if depth > maxFormatDepth {
		return Void, fmt.Errorf("%w: list nested too deeply", ErrType)
	}
	switch {
	case d.IsList():
		l, err := a.List(d)
		if err != nil {
			return Void, err
		}
		items := make([]Datum, len(l.Items))
		for i, it := range l.Items {
			if items[i], err = a.duplicate(it, depth+1); err != nil {
				return Void, err
			}
		}
		out := a.newList(KindList, items)
		nl, _ := a.List(out)
		nl.Sorted = l.Sorted
		return out, nil
	case d.Kind == KindPropList:
		p, err := a.PropList(d)
		if err != nil {
			return Void, err
		}
		entries := make([]PropEntry, len(p.Entries))
		for i, e := range p.Entries {
			entries[i].Key = e.Key
			if entries[i].Value, err = a.duplicate(e.Value, depth+1); err != nil {
				return Void, err
			}
		}
		out := a.NewPropList(entries...)
		np, _ := a.PropList(out)
		np.Sorted = p.Sorted
		return out, nil
	}
	return d, nil
}

// Max returns the largest element of a list, or void when it is empty.
func (a *Arena) Max(d Datum) (Datum, error) { return a.extreme(d, 1) }

// Min returns the smallest element of a list, or void when it is empty.
func (a *Arena) Min(d Datum) (Datum, error) { return a.extreme(d, -1) }

func (a *Arena) extreme(d Datum, sign int) (Datum, error) {
	l, err := a.List(d)
	if err != nil {
		return Void, err
	}
	if len(l.Items) == 0 {
		return Void, nil
	}
	best := l.Items[0]
	for _, it := range l.Items[1:] {
		c, err := a.Compare(it, best)
		if err != nil {
			return Void, err
		}
		if c*sign > 0 {
			best = it
		}
	}
	return best, nil
}

// keyMatches reports whether a symbol key matches a symbol or string
// name, ignoring case.
func keyMatches(k, name Datum) bool {
	textual := func(d Datum) bool { return d.Kind == KindSymbol || d.Kind == KindString }
	if (k.Kind == KindSymbol && textual(name)) || (name.Kind == KindSymbol && textual(k)) {
		return strings.EqualFold(k.S, name.S)
	}
	return false
}

func (a *Arena) findProp(p *PropListData, key Datum) int {
	for i, e := range p.Entries {
		if keyMatches(e.Key, key) || a.Equal(e.Key, key) {
			return i
		}
	}
	return -1
}

// GetProp returns the value stored under key. Symbol keys match
// case-insensitively. A missing key is an index error.
func (a *Arena) GetProp(d Datum, key Datum) (Datum, error) {
	v, ok, err := a.GetaProp(d, key)
	if err != nil {
		return Void, err
	}
	if !ok {
		return Void, fmt.Errorf("%w: property %s not found", ErrIndexOutOfRange, a.Format(key))
	}
	return v, nil
}

// GetaProp returns the value stored under key and whether it exists.
func (a *Arena) GetaProp(d Datum, key Datum) (Datum, bool, error) {
	p, err := a.PropList(d)
	if err != nil {
		return Void, false, err
	}
	i := a.findProp(p, key)
	if i < 0 {
		return Void, false, nil
	}
	return p.Entries[i].Value, true, nil
}

// SetProp replaces the value under an existing key.
func (a *Arena) SetProp(d Datum, key, v Datum) error {
	p, err := a.PropList(d)
	if err != nil {
		return err
	}
	i := a.findProp(p, key)
	if i < 0 {
		return fmt.Errorf("%w: property %s not found", ErrIndexOutOfRange, a.Format(key))
	}
	p.Entries[i].Value = v
	return nil
}

// SetaProp replaces the value under key or adds the key when missing.
func (a *Arena) SetaProp(d Datum, key, v Datum) error {
	p, err := a.PropList(d)
	if err != nil {
		return err
	}
	if i := a.findProp(p, key); i >= 0 {
		p.Entries[i].Value = v
		return nil
	}
	return a.AddProp(d, key, v)
}

// AddProp adds a key/value pair, keeping sorted property lists sorted.
// Duplicate keys are allowed.
func (a *Arena) AddProp(d Datum, key, v Datum) error {
	p, err := a.PropList(d)
	if err != nil {
		return err
	}
	e := PropEntry{Key: key, Value: v}
	if !p.Sorted {
		p.Entries = append(p.Entries, e)
		return nil
	}
	i := 0
	for i < len(p.Entries) && a.order(p.Entries[i].Key, key) <= 0 {
		i++
	}
	p.Entries = slices.Insert(p.Entries, i, e)
	return nil
}

// DeleteProp removes the first entry under key. It reports whether an
// entry was removed.
func (a *Arena) DeleteProp(d Datum, key Datum) (bool, error) {
	p, err := a.PropList(d)
	if err != nil {
		return false, err
	}
	i := a.findProp(p, key)
	if i < 0 {
		return false, nil
	}
	p.Entries = slices.Delete(p.Entries, i, i+1)
	return true, nil
}

// GetPropAt returns the key at 1-based index i.
func (a *Arena) GetPropAt(d Datum, i int) (Datum, error) {
	p, err := a.PropList(d)
	if err != nil {
		return Void, err
	}
	if i < 1 || i > len(p.Entries) {
		return Void, outOfRange(i, len(p.Entries))
	}
	return p.Entries[i-1].Key, nil
}

// FindPos returns the 1-based position of key, or 0.
func (a *Arena) FindPos(d Datum, key Datum) (int, error) {
	p, err := a.PropList(d)
	if err != nil {
		return 0, err
	}
	return a.findProp(p, key) + 1, nil
}
