package vm

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/zurustar/dirplayer/pkg/cast"
	"github.com/zurustar/dirplayer/pkg/lingo"
	"github.com/zurustar/dirplayer/pkg/movie"
	"github.com/zurustar/dirplayer/pkg/opcode"
)

func quiet() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// testMovie assembles scripts with a movie.Builder and loads them.
type testMovie struct {
	*movie.Builder
}

func newTestMovie() *testMovie {
	return &testMovie{Builder: movie.NewBuilder()}
}

// script adds a script member. Literals are string constants pushed with
// pushcons by index.
func (m *testMovie) script(number int, name string, kind cast.ScriptType, literals []string, handlers ...*lingo.Handler) *lingo.Script {
	s := &lingo.Script{Handlers: handlers}
	for _, l := range literals {
		s.Literals = append(s.Literals, lingo.Literal{Kind: lingo.LiteralString, Str: l})
	}
	m.AddScript(number, name, kind, s)
	return s
}

// props declares instance properties of a parent script.
func (m *testMovie) props(s *lingo.Script, names ...string) {
	for _, n := range names {
		s.PropertyNameIDs = append(s.PropertyNameIDs, m.Name(n))
	}
}

func (m *testMovie) load(t *testing.T, opts ...Option) *VM {
	t.Helper()
	mv, err := movie.Load("test.dir", m.Bytes(), movie.Options{Logger: quiet()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(mv.Issues) != 0 {
		t.Fatalf("Load() issues = %v", mv.Issues)
	}
	v := New(append([]Option{WithLogger(quiet())}, opts...)...)
	v.LoadMovie(mv)
	t.Cleanup(v.Unload)
	return v
}

func op(cmd opcode.Cmd, obj int64) opcode.OpCode {
	return opcode.OpCode{Cmd: cmd, Obj: obj}
}

func op0(cmd opcode.Cmd) opcode.OpCode {
	return opcode.OpCode{Cmd: cmd}
}

// size is the encoded length of ops, used to compute jump offsets.
func size(ops ...opcode.OpCode) int {
	return len(lingo.EncodeBytecode(ops))
}

// local scales a local or argument slot for a version 500 script.
func local(i int) int64 { return int64(i) * 8 }

func concat(parts ...[]opcode.OpCode) []opcode.OpCode {
	var out []opcode.OpCode
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// callExt calls name with the n values pushed by code, leaving the result
// on the stack unless noRet.
func (m *testMovie) callExt(name string, noRet bool, n int, code ...opcode.OpCode) []opcode.OpCode {
	list := opcode.PushArgList
	if noRet {
		list = opcode.PushArgListNoRet
	}
	out := append([]opcode.OpCode(nil), code...)
	return append(out, op(list, int64(n)), op(opcode.ExtCall, int64(m.Name(name))))
}

func (m *testMovie) setGlobal(name string) opcode.OpCode {
	return op(opcode.SetGlobal, int64(m.Name(name)))
}

func (m *testMovie) getGlobal(name string) opcode.OpCode {
	return op(opcode.GetGlobal, int64(m.Name(name)))
}

func pushInt(n int64) opcode.OpCode { return op(opcode.PushInt8, n) }

func globalText(t *testing.T, v *VM, name string) string {
	t.Helper()
	var out string
	v.Do(func(v *VM) {
		d, _ := v.global(name)
		out = v.arena.Format(d)
	})
	return out
}

// fakeClock is a settable clock safe for the timer goroutine.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// recorder collects notifications.
type recorder struct {
	mu   sync.Mutex
	seen []Notification
}

func record(v *VM, kind NotificationKind) *recorder {
	r := &recorder{}
	v.Subscribe(kind, func(n Notification) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.seen = append(r.seen, n)
	})
	return r
}

func (r *recorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.seen...)
}
