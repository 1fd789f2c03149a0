package vm

import (
	"fmt"
	"strings"

	"github.com/zurustar/dirplayer/pkg/datum"
	"github.com/zurustar/dirplayer/pkg/lingo"
	"github.com/zurustar/dirplayer/pkg/movie"
	"github.com/zurustar/dirplayer/pkg/opcode"
)

// Scope is the activation record of one handler call. The operand stack
// belongs to the scope and is never shared with callers or callees.
type Scope struct {
	ID          int
	Member      *movie.Member
	Script      *lingo.Script
	Handler     *lingo.Handler
	ScriptName  string
	HandlerName string
	Names       lingo.Names
	Options     lingo.Options

	// Receiver is the instance the handler runs for, or Void for movie
	// and frame scripts.
	Receiver datum.Datum
	Args     []datum.Datum
	Locals   map[string]datum.Datum
	Stack    []datum.Datum

	// Index is the position in Handler.Bytecode of the next instruction.
	Index  int
	Passed bool
	// Result is what ret returns and what "the result" reads after a call.
	Result datum.Datum

	// exit ends the handler after the current instruction (pass).
	exit bool
	// lastCall is the value returned by the most recent call made from
	// this scope.
	lastCall datum.Datum
}

// ScriptName returns the name breakpoints and errors use for a script
// member: its cast member name, or a reference when it has none.
func ScriptName(m *movie.Member) string {
	if m == nil {
		return ""
	}
	if m.Name != "" {
		return m.Name
	}
	return fmt.Sprintf("member %d of castLib %d", m.Number, m.Lib)
}

func (s *Scope) push(d datum.Datum) { s.Stack = append(s.Stack, d) }

func (s *Scope) pop() (datum.Datum, error) {
	if len(s.Stack) == 0 {
		return datum.Void, NewInvalidOperationError("operand stack underflow")
	}
	d := s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
	return d, nil
}

func (s *Scope) popN(n int) ([]datum.Datum, error) {
	if n < 0 || n > len(s.Stack) {
		return nil, NewInvalidOperationError("operand stack underflow")
	}
	out := make([]datum.Datum, n)
	copy(out, s.Stack[len(s.Stack)-n:])
	s.Stack = s.Stack[:len(s.Stack)-n]
	return out, nil
}

func (s *Scope) current() (opcode.OpCode, bool) {
	if s.Handler == nil || s.Index < 0 || s.Index >= len(s.Handler.Bytecode) {
		return opcode.OpCode{}, false
	}
	return s.Handler.Bytecode[s.Index], true
}

func (s *Scope) name(id int64) (string, error) {
	n, ok := s.Names.Get(int(id))
	if !ok {
		return "", NewInvalidOperationError("name id %d out of range", id)
	}
	return n, nil
}

// varIndex converts a local or parameter operand to a slot index.
func (s *Scope) varIndex(obj int64) int {
	return int(obj / s.Options.VariableMultiplier())
}

func (s *Scope) argName(i int) string {
	if s.Handler == nil || i < 0 || i >= len(s.Handler.ArgNameIDs) {
		return ""
	}
	n, _ := s.Names.Get(int(s.Handler.ArgNameIDs[i]))
	return n
}

func (s *Scope) localName(i int) (string, error) {
	if s.Handler == nil || i < 0 || i >= len(s.Handler.LocalNameIDs) {
		return "", NewInvalidOperationError("local %d out of range", i)
	}
	return s.name(int64(s.Handler.LocalNameIDs[i]))
}

// Local returns the value of a local by name, ignoring case.
func (s *Scope) Local(name string) (datum.Datum, bool) {
	if v, ok := s.Locals[name]; ok {
		return v, true
	}
	for k, v := range s.Locals {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return datum.Void, false
}

// Arg returns the value of the argument with the given name.
func (s *Scope) Arg(name string) (datum.Datum, bool) {
	if s.Handler == nil {
		return datum.Void, false
	}
	for i := range s.Handler.ArgNameIDs {
		if strings.EqualFold(s.argName(i), name) {
			if i < len(s.Args) {
				return s.Args[i], true
			}
			return datum.Void, true
		}
	}
	return datum.Void, false
}

// roots lists the datums the scope keeps alive.
func (s *Scope) roots() []datum.Datum {
	out := make([]datum.Datum, 0, len(s.Args)+len(s.Locals)+len(s.Stack)+2)
	out = append(out, s.Receiver, s.Result, s.lastCall)
	out = append(out, s.Args...)
	out = append(out, s.Stack...)
	for _, v := range s.Locals {
		out = append(out, v)
	}
	return out
}
