package vm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Breakpoint stops a task before the instruction at Index of the named
// handler runs.
type Breakpoint struct {
	Script  string `toml:"script"`
	Handler string `toml:"handler"`
	Index   int    `toml:"index"`
	Enabled bool   `toml:"enabled"`
}

func (b Breakpoint) String() string {
	return fmt.Sprintf("%s:%s:%d", b.Script, b.Handler, b.Index)
}

type bpKey struct {
	script, handler string
	index           int
}

func keyOf(script, handler string, index int) bpKey {
	return bpKey{strings.ToLower(script), strings.ToLower(handler), index}
}

// ParseBreakpoint parses "script:handler:index". The script part may itself
// contain colons; the last two fields are always handler and index.
func ParseBreakpoint(s string) (Breakpoint, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return Breakpoint{}, fmt.Errorf("breakpoint %q: want script:handler:index", s)
	}
	idx, err := strconv.Atoi(strings.TrimSpace(s[i+1:]))
	if err != nil || idx < 0 {
		return Breakpoint{}, fmt.Errorf("breakpoint %q: bad index", s)
	}
	rest := s[:i]
	j := strings.LastIndex(rest, ":")
	if j < 0 {
		return Breakpoint{}, fmt.Errorf("breakpoint %q: want script:handler:index", s)
	}
	bp := Breakpoint{
		Script:  strings.TrimSpace(rest[:j]),
		Handler: strings.TrimSpace(rest[j+1:]),
		Index:   idx,
		Enabled: true,
	}
	if bp.Script == "" || bp.Handler == "" {
		return Breakpoint{}, fmt.Errorf("breakpoint %q: empty script or handler", s)
	}
	return bp, nil
}

type breakpointSet map[bpKey]*Breakpoint

func (bs breakpointSet) hit(s *Scope) bool {
	if len(bs) == 0 {
		return false
	}
	bp, ok := bs[keyOf(s.ScriptName, s.HandlerName, s.Index)]
	return ok && bp.Enabled
}

func (bs breakpointSet) list() []Breakpoint {
	out := make([]Breakpoint, 0, len(bs))
	for _, bp := range bs {
		out = append(out, *bp)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !strings.EqualFold(a.Script, b.Script) {
			return strings.ToLower(a.Script) < strings.ToLower(b.Script)
		}
		if !strings.EqualFold(a.Handler, b.Handler) {
			return strings.ToLower(a.Handler) < strings.ToLower(b.Handler)
		}
		return a.Index < b.Index
	})
	return out
}

// AddBreakpoint adds or re-enables a breakpoint.
func (vm *VM) AddBreakpoint(bp Breakpoint) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	bp.Enabled = true
	vm.breakpoints[keyOf(bp.Script, bp.Handler, bp.Index)] = &bp
	vm.notifyBreakpoints()
}

// RemoveBreakpoint deletes a breakpoint. It reports whether one existed.
func (vm *VM) RemoveBreakpoint(script, handler string, index int) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	k := keyOf(script, handler, index)
	if _, ok := vm.breakpoints[k]; !ok {
		return false
	}
	delete(vm.breakpoints, k)
	vm.notifyBreakpoints()
	return true
}

// ToggleBreakpoint adds the breakpoint if missing, otherwise flips its
// enabled flag. It returns the new enabled state.
func (vm *VM) ToggleBreakpoint(script, handler string, index int) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	k := keyOf(script, handler, index)
	bp, ok := vm.breakpoints[k]
	if !ok {
		bp = &Breakpoint{Script: script, Handler: handler, Index: index}
		vm.breakpoints[k] = bp
	}
	bp.Enabled = !bp.Enabled || !ok
	vm.notifyBreakpoints()
	return bp.Enabled
}

// Breakpoints lists all breakpoints ordered by script, handler and index.
func (vm *VM) Breakpoints() []Breakpoint {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.breakpoints.list()
}

// ClearBreakpoints removes every breakpoint.
func (vm *VM) ClearBreakpoints() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.breakpoints = breakpointSet{}
	vm.notifyBreakpoints()
}

func (vm *VM) notifyBreakpoints() {
	vm.notify(NotifyBreakpointListChanged, vm.breakpoints.list())
}
