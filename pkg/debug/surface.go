// Package debug is the host's query and command surface over a running
// player: scripts, disassembly, call stacks, globals, breakpoints and
// expression evaluation. Every result is a detached snapshot.
package debug

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zurustar/dirplayer/pkg/datum"
	"github.com/zurustar/dirplayer/pkg/engine"
	"github.com/zurustar/dirplayer/pkg/lingo"
	"github.com/zurustar/dirplayer/pkg/movie"
	"github.com/zurustar/dirplayer/pkg/vm"
)

var (
	// ErrNoScript is returned for a member that does not exist or carries
	// no script.
	ErrNoScript = errors.New("no such script")
	// ErrNoHandler is returned when a script lacks the named handler.
	ErrNoHandler = errors.New("no such handler")
	// ErrNoDatum is returned for a handle the arena does not know.
	ErrNoDatum = errors.New("no such datum")
)

// Surface answers debug queries for one player.
type Surface struct {
	p *engine.Player
}

// NewSurface returns the surface of p.
func NewSurface(p *engine.Player) *Surface {
	return &Surface{p: p}
}

// ScriptInfo lists one script member.
type ScriptInfo struct {
	Lib      int      `cbor:"lib"`
	Member   int      `cbor:"member"`
	Name     string   `cbor:"name"`
	Kind     string   `cbor:"kind"`
	Handlers []string `cbor:"handlers"`
}

// HandlerInfo describes one handler of a script.
type HandlerInfo struct {
	Name   string   `cbor:"name"`
	Args   []string `cbor:"args,omitempty"`
	Locals []string `cbor:"locals,omitempty"`
	Length int      `cbor:"length"`
}

// ScriptDetail is a script with its handlers, properties and literals.
type ScriptDetail struct {
	ScriptInfo `cbor:"script"`
	Properties []string      `cbor:"properties,omitempty"`
	Globals    []string      `cbor:"globals,omitempty"`
	Literals   []string      `cbor:"literals,omitempty"`
	Detail     []HandlerInfo `cbor:"detail"`
}

// Instruction is one disassembled bytecode instruction.
type Instruction struct {
	Index      int    `cbor:"index"`
	Pos        int    `cbor:"pos"`
	Text       string `cbor:"text"`
	Breakpoint bool   `cbor:"breakpoint,omitempty"`
	Current    bool   `cbor:"current,omitempty"`
}

// State is the player's execution state.
type State struct {
	Loaded    bool                  `cbor:"loaded"`
	Playing   bool                  `cbor:"playing"`
	Halted    bool                  `cbor:"halted"`
	Frame     int                   `cbor:"frame"`
	Tempo     int                   `cbor:"tempo"`
	Suspended bool                  `cbor:"suspended"`
	Task      int                   `cbor:"task,omitempty"`
	Script    string                `cbor:"script,omitempty"`
	Handler   string                `cbor:"handler,omitempty"`
	Index     int                   `cbor:"index,omitempty"`
	Pending   []vm.AsyncRequestInfo `cbor:"pending,omitempty"`
}

func (s *Surface) movie() (*movie.Movie, error) {
	m := s.p.VM().Movie()
	if m == nil {
		return nil, engine.ErrNoMovie
	}
	return m, nil
}

// ListScripts lists every script member in library and member order.
func (s *Surface) ListScripts() ([]ScriptInfo, error) {
	m, err := s.movie()
	if err != nil {
		return nil, err
	}
	var out []ScriptInfo
	for _, mem := range m.ScriptMembers() {
		out = append(out, scriptInfo(m, mem))
	}
	return out, nil
}

func scriptInfo(m *movie.Movie, mem *movie.Member) ScriptInfo {
	names := namesOf(m, mem)
	info := ScriptInfo{
		Lib:    mem.Lib,
		Member: mem.Number,
		Name:   vm.ScriptName(mem),
		Kind:   mem.ScriptType.String(),
	}
	for _, h := range mem.Script.Handlers {
		info.Handlers = append(info.Handlers, nameOf(names, h.NameID))
	}
	return info
}

func namesOf(m *movie.Movie, mem *movie.Member) lingo.Names {
	if c, ok := m.Cast(mem.Lib); ok {
		return c.Names
	}
	return nil
}

func optionsOf(m *movie.Movie, mem *movie.Member) lingo.Options {
	if c, ok := m.Cast(mem.Lib); ok {
		return c.Options
	}
	return lingo.Options{Version: m.Version}
}

func nameOf(names lingo.Names, id uint16) string {
	if n, ok := names.Get(int(id)); ok {
		return n
	}
	return fmt.Sprintf("#%d", id)
}

func namesFor(names lingo.Names, ids []uint16) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, nameOf(names, id))
	}
	return out
}

func (s *Surface) script(lib, member int) (*movie.Movie, *movie.Member, error) {
	m, err := s.movie()
	if err != nil {
		return nil, nil, err
	}
	mem, ok := m.Member(lib, member)
	if !ok || mem.Script == nil {
		return nil, nil, fmt.Errorf("member %d of castLib %d: %w", member, lib, ErrNoScript)
	}
	return m, mem, nil
}

// ScriptDetail describes a script member.
func (s *Surface) ScriptDetail(lib, member int) (ScriptDetail, error) {
	m, mem, err := s.script(lib, member)
	if err != nil {
		return ScriptDetail{}, err
	}
	names := namesOf(m, mem)
	sc := mem.Script
	d := ScriptDetail{
		ScriptInfo: scriptInfo(m, mem),
		Properties: namesFor(names, sc.PropertyNameIDs),
		Globals:    namesFor(names, sc.GlobalNameIDs),
	}
	for _, l := range sc.Literals {
		d.Literals = append(d.Literals, l.String())
	}
	for _, h := range sc.Handlers {
		d.Detail = append(d.Detail, HandlerInfo{
			Name:   nameOf(names, h.NameID),
			Args:   namesFor(names, h.ArgNameIDs),
			Locals: namesFor(names, h.LocalNameIDs),
			Length: len(h.Bytecode),
		})
	}
	return d, nil
}

// Disassemble renders a handler, marking breakpoints and the instruction a
// stopped task is about to run.
func (s *Surface) Disassemble(lib, member int, handler string) ([]Instruction, error) {
	m, mem, err := s.script(lib, member)
	if err != nil {
		return nil, err
	}
	names := namesOf(m, mem)
	var h *lingo.Handler
	for _, cand := range mem.Script.Handlers {
		if strings.EqualFold(nameOf(names, cand.NameID), handler) {
			h = cand
			break
		}
	}
	if h == nil {
		return nil, fmt.Errorf("%s in %s: %w", handler, vm.ScriptName(mem), ErrNoHandler)
	}

	script := vm.ScriptName(mem)
	marks := map[int]bool{}
	for _, bp := range s.p.Breakpoints() {
		if bp.Enabled && strings.EqualFold(bp.Script, script) && strings.EqualFold(bp.Handler, handler) {
			marks[bp.Index] = true
		}
	}
	current := -1
	if st := s.ExecutionState(); st.Suspended && strings.EqualFold(st.Script, script) && strings.EqualFold(st.Handler, handler) {
		current = st.Index
	}

	dis := lingo.Disassembler{Script: mem.Script, Names: names, Options: optionsOf(m, mem)}
	out := make([]Instruction, 0, len(h.Bytecode))
	for i, op := range h.Bytecode {
		out = append(out, Instruction{
			Index:      i,
			Pos:        op.Pos,
			Text:       dis.Line(h, op),
			Breakpoint: marks[i],
			Current:    i == current,
		})
	}
	return out, nil
}

// ConsoleOutput returns the message window lines.
func (s *Surface) ConsoleOutput() []string { return s.p.VM().Console() }

// CallStack returns the call stack of every live task.
func (s *Surface) CallStack() []vm.TaskInfo { return s.p.VM().Tasks() }

// ExecutionState reports playback and the innermost scope of a task
// stopped at a breakpoint.
func (s *Surface) ExecutionState() State {
	v := s.p.VM()
	st := State{
		Loaded:  v.Movie() != nil,
		Playing: s.p.Playing(),
		Halted:  v.Halted(),
		Frame:   s.p.Frame(),
		Tempo:   v.Tempo(),
		Pending: v.PendingRequests(),
	}
	for _, t := range v.Tasks() {
		if t.State != vm.TaskSuspendedBreakpoint.String() || len(t.Scopes) == 0 {
			continue
		}
		top := t.Scopes[len(t.Scopes)-1]
		st.Suspended = true
		st.Task = t.ID
		st.Script, st.Handler, st.Index = top.Script, top.Handler, top.Index
	}
	return st
}

// Eval evaluates a Lingo expression.
func (s *Surface) Eval(text string) (vm.Value, error) { return s.p.Eval(text) }

// InspectDatum resolves an arena handle taken from an earlier snapshot.
func (s *Surface) InspectDatum(handle uint32) (vm.Value, error) {
	v, ok := s.p.VM().Inspect(datum.Handle(handle))
	if !ok {
		return vm.Value{}, fmt.Errorf("handle %d: %w", handle, ErrNoDatum)
	}
	return v, nil
}

// Globals lists the global variables.
func (s *Surface) Globals() []vm.NamedValue { return s.p.VM().Globals() }

// Breakpoints lists the breakpoints.
func (s *Surface) Breakpoints() []vm.Breakpoint { return s.p.Breakpoints() }

// SetBreakpoint adds the breakpoint given as "script:handler:index".
func (s *Surface) SetBreakpoint(spec string) (vm.Breakpoint, error) {
	bp, err := vm.ParseBreakpoint(spec)
	if err != nil {
		return vm.Breakpoint{}, err
	}
	s.p.AddBreakpoint(bp)
	return bp, nil
}

// RemoveBreakpoint deletes the breakpoint given as "script:handler:index".
func (s *Surface) RemoveBreakpoint(spec string) error {
	bp, err := vm.ParseBreakpoint(spec)
	if err != nil {
		return err
	}
	if !s.p.RemoveBreakpoint(bp.Script, bp.Handler, bp.Index) {
		return fmt.Errorf("breakpoint %s not set", bp)
	}
	return nil
}

// Snapshot collects the whole debugger view at once.
func (s *Surface) Snapshot() Snapshot {
	return Snapshot{
		Version:     SnapshotVersion,
		State:       s.ExecutionState(),
		Frame:       s.p.VM().FrameState(),
		Tasks:       s.CallStack(),
		Globals:     s.Globals(),
		Breakpoints: s.Breakpoints(),
		Console:     s.ConsoleOutput(),
	}
}
