package vm

import (
	"sort"
	"strconv"

	"github.com/zurustar/dirplayer/pkg/datum"
	"github.com/zurustar/dirplayer/pkg/movie"
)

const (
	snapshotDepth = 6
	snapshotItems = 256
)

// Value is a resolved, detached view of a datum.
type Value struct {
	Ilk    string  `cbor:"ilk"`
	Text   string  `cbor:"text"`
	Handle uint32  `cbor:"handle,omitempty"`
	Keys   []Value `cbor:"keys,omitempty"`
	Items  []Value `cbor:"items,omitempty"`
	// Truncated is set when nested items were cut at the depth or length
	// limit.
	Truncated bool `cbor:"truncated,omitempty"`
}

// NamedValue pairs a variable name with its value.
type NamedValue struct {
	Name  string `cbor:"name"`
	Value Value  `cbor:"value"`
}

// ScopeInfo is a detached view of one call scope.
type ScopeInfo struct {
	ID       int          `cbor:"id"`
	Script   string       `cbor:"script"`
	Handler  string       `cbor:"handler"`
	Index    int          `cbor:"index"`
	Line     string       `cbor:"line,omitempty"`
	Receiver Value        `cbor:"receiver"`
	Args     []NamedValue `cbor:"args,omitempty"`
	Locals   []NamedValue `cbor:"locals,omitempty"`
	Stack    []Value      `cbor:"stack,omitempty"`
}

// TaskInfo is a detached view of a task's call stack.
type TaskInfo struct {
	ID      int         `cbor:"id"`
	Event   string      `cbor:"event"`
	State   string      `cbor:"state"`
	AsyncID string      `cbor:"asyncId,omitempty"`
	Scopes  []ScopeInfo `cbor:"scopes"`
}

// ScriptErrorInfo describes an uncaught script error.
type ScriptErrorInfo struct {
	Type    ErrorType `cbor:"type"`
	Message string    `cbor:"message"`
	Script  string    `cbor:"script"`
	Handler string    `cbor:"handler"`
	Index   int       `cbor:"index"`
	Event   string    `cbor:"event"`
}

// MovieInfo summarizes the loaded movie.
type MovieInfo struct {
	Name       string   `cbor:"name"`
	Version    int      `cbor:"version"`
	FrameRate  int      `cbor:"frameRate"`
	FrameCount int      `cbor:"frameCount"`
	Width      int      `cbor:"width"`
	Height     int      `cbor:"height"`
	Casts      int      `cbor:"casts"`
	Issues     []string `cbor:"issues,omitempty"`
}

// CastInfo summarizes a cast library.
type CastInfo struct {
	Number   int    `cbor:"number"`
	Name     string `cbor:"name"`
	Path     string `cbor:"path,omitempty"`
	External bool   `cbor:"external,omitempty"`
	Members  int    `cbor:"members"`
}

// MemberInfo summarizes a cast member.
type MemberInfo struct {
	Lib    int    `cbor:"lib"`
	Number int    `cbor:"number"`
	Name   string `cbor:"name"`
	Type   string `cbor:"type"`
	Script string `cbor:"script,omitempty"`
}

// SpriteInfo is a detached view of a sprite channel.
type SpriteInfo struct {
	Channel   int  `cbor:"channel"`
	CastLib   int  `cbor:"castLib"`
	Member    int  `cbor:"member"`
	LocH      int  `cbor:"locH"`
	LocV      int  `cbor:"locV"`
	Width     int  `cbor:"width"`
	Height    int  `cbor:"height"`
	Ink       int  `cbor:"ink"`
	Visible   bool `cbor:"visible"`
	Puppet    bool `cbor:"puppet,omitempty"`
	Behaviors int  `cbor:"behaviors,omitempty"`
}

// FrameInfo describes the current frame and its occupied channels.
type FrameInfo struct {
	Frame   int          `cbor:"frame"`
	Label   string       `cbor:"label,omitempty"`
	Sprites []SpriteInfo `cbor:"sprites,omitempty"`
}

// AsyncRequestInfo describes a pending resource request.
type AsyncRequestInfo struct {
	ID    string `cbor:"id"`
	NetID int    `cbor:"netId"`
	URL   string `cbor:"url"`
	Kind  string `cbor:"kind"`
}

// Snapshot returns a detached view of d.
func (vm *VM) Snapshot(d datum.Datum) Value {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.snapshot(d, snapshotDepth)
}

// Inspect returns the datum behind an arena handle.
func (vm *VM) Inspect(h datum.Handle) (Value, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	d, ok := vm.arena.Lookup(h)
	if !ok {
		return Value{}, false
	}
	v := vm.snapshot(d, snapshotDepth)
	vm.notify(NotifyDatumSnapshot, v)
	return v, true
}

func (vm *VM) snapshot(d datum.Datum, depth int) Value {
	v := Value{Ilk: d.Ilk(), Handle: uint32(d.H)}
	if !d.Kind.Composite() {
		v.Text = vm.arena.Format(d)
		return v
	}
	if depth <= 0 {
		v.Text = "..."
		v.Truncated = true
		return v
	}
	v.Text = vm.arena.Format(d)
	switch d.Kind {
	case datum.KindPropList:
		pl, err := vm.arena.PropList(d)
		if err != nil {
			return v
		}
		for i, e := range pl.Entries {
			if i >= snapshotItems {
				v.Truncated = true
				break
			}
			v.Keys = append(v.Keys, vm.snapshot(e.Key, depth-1))
			v.Items = append(v.Items, vm.snapshot(e.Value, depth-1))
		}
	case datum.KindInstance:
		inst, err := vm.arena.Instance(d)
		if err != nil {
			return v
		}
		for _, p := range inst.Props {
			v.Keys = append(v.Keys, Value{Ilk: "symbol", Text: "#" + p.Name})
			v.Items = append(v.Items, vm.snapshot(p.Value, depth-1))
		}
		if inst.Ancestor != 0 {
			anc, _ := vm.arena.Lookup(inst.Ancestor)
			v.Keys = append(v.Keys, Value{Ilk: "symbol", Text: "#" + datum.AncestorProp})
			v.Items = append(v.Items, vm.snapshot(anc, depth-1))
		}
	default:
		l, err := vm.arena.List(d)
		if err != nil {
			return v
		}
		for i, it := range l.Items {
			if i >= snapshotItems {
				v.Truncated = true
				break
			}
			v.Items = append(v.Items, vm.snapshot(it, depth-1))
		}
	}
	return v
}

func (vm *VM) globalsSnapshot() []NamedValue {
	out := make([]NamedValue, 0, len(vm.globals))
	for _, g := range vm.globals {
		out = append(out, NamedValue{Name: g.name, Value: vm.snapshot(g.value, snapshotDepth)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (vm *VM) scopeInfo(s *Scope) ScopeInfo {
	info := ScopeInfo{
		ID:       s.ID,
		Script:   s.ScriptName,
		Handler:  s.HandlerName,
		Index:    s.Index,
		Receiver: vm.snapshot(s.Receiver, 1),
	}
	if op, ok := s.current(); ok && vm.movie != nil && s.Member != nil {
		info.Line = vm.movie.Disassembler(s.Member).Line(s.Handler, op)
	}
	for i, a := range s.Args {
		name := s.argName(i)
		if name == "" {
			name = "arg" + strconv.Itoa(i+1)
		}
		info.Args = append(info.Args, NamedValue{Name: name, Value: vm.snapshot(a, 2)})
	}
	for k, v := range s.Locals {
		info.Locals = append(info.Locals, NamedValue{Name: k, Value: vm.snapshot(v, 2)})
	}
	sort.Slice(info.Locals, func(i, j int) bool { return info.Locals[i].Name < info.Locals[j].Name })
	for _, d := range s.Stack {
		info.Stack = append(info.Stack, vm.snapshot(d, 1))
	}
	return info
}

func (vm *VM) taskInfo(t *Task) TaskInfo {
	info := TaskInfo{ID: t.ID, Event: t.Event, State: t.State.String()}
	if t.State == TaskSuspendedAsync {
		info.AsyncID = t.AsyncID.String()
	}
	for _, s := range t.scopes {
		info.Scopes = append(info.Scopes, vm.scopeInfo(s))
	}
	return info
}

func (vm *VM) tasksSnapshot() []TaskInfo {
	out := make([]TaskInfo, 0, len(vm.tasks))
	for _, t := range vm.tasks {
		out = append(out, vm.taskInfo(t))
	}
	return out
}

func (vm *VM) movieInfo() MovieInfo {
	m := vm.movie
	if m == nil {
		return MovieInfo{}
	}
	info := MovieInfo{
		Name:      m.Name,
		Version:   m.Version,
		FrameRate: m.FrameRate,
		Width:     m.Stage.Dx(),
		Height:    m.Stage.Dy(),
		Casts:     len(m.Casts),
	}
	if m.Score != nil {
		info.FrameCount = m.Score.FrameCount
	}
	for _, is := range m.Issues {
		info.Issues = append(info.Issues, is.Error())
	}
	return info
}

func (vm *VM) castInfo() []CastInfo {
	if vm.movie == nil {
		return nil
	}
	out := make([]CastInfo, 0, len(vm.movie.Casts))
	for _, c := range vm.movie.Casts {
		out = append(out, CastInfo{
			Number:   c.Number,
			Name:     c.Name,
			Path:     c.Path,
			External: c.External,
			Members:  len(c.Members),
		})
	}
	return out
}

// MemberInfoOf summarizes a loaded member.
func MemberInfoOf(m *movie.Member) MemberInfo {
	info := MemberInfo{Lib: m.Lib, Number: m.Number, Name: m.Name, Type: m.Type.String()}
	if m.Script != nil {
		info.Script = m.ScriptType.String()
	}
	return info
}

func (vm *VM) frameInfo() FrameInfo {
	info := FrameInfo{Frame: vm.stage.Frame}
	if vm.movie != nil && vm.movie.Score != nil {
		info.Label = vm.movie.Score.LabelAt(vm.stage.Frame)
	}
	for _, sp := range vm.stage.Sprites {
		if sp.Member == 0 {
			continue
		}
		info.Sprites = append(info.Sprites, SpriteInfo{
			Channel:   sp.Channel,
			CastLib:   sp.CastLib,
			Member:    sp.Member,
			LocH:      sp.LocH,
			LocV:      sp.LocV,
			Width:     sp.Width,
			Height:    sp.Height,
			Ink:       sp.Ink,
			Visible:   sp.Visible,
			Puppet:    sp.Puppet,
			Behaviors: len(sp.Behaviors),
		})
	}
	return info
}

// FrameState returns the current frame with its sprites.
func (vm *VM) FrameState() FrameInfo {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.frameInfo()
}

// MovieInfo summarizes the loaded movie.
func (vm *VM) MovieInfo() MovieInfo {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.movieInfo()
}

// CastList summarizes the cast libraries.
func (vm *VM) CastList() []CastInfo {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.castInfo()
}
