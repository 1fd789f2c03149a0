package engine

import (
	"image"
	"log/slog"
	"strings"
	"testing"

	"github.com/zurustar/dirplayer/pkg/cast"
	"github.com/zurustar/dirplayer/pkg/chunk"
	"github.com/zurustar/dirplayer/pkg/lingo"
	"github.com/zurustar/dirplayer/pkg/movie"
	"github.com/zurustar/dirplayer/pkg/opcode"
	"github.com/zurustar/dirplayer/pkg/score"
)

func quiet() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func op(cmd opcode.Cmd, obj int64) opcode.OpCode { return opcode.OpCode{Cmd: cmd, Obj: obj} }

// tracer builds scripts whose handlers each put a fixed line.
type tracer struct {
	*movie.Builder
}

func newTracer() *tracer {
	return &tracer{Builder: movie.NewBuilder()}
}

// script adds a script member where every handler in events puts
// "<name>:<event>". Behavior handlers take me.
func (m *tracer) script(number int, name string, kind cast.ScriptType, events ...string) {
	s := &lingo.Script{}
	var args []string
	if kind != cast.ScriptMovie {
		args = []string{"me"}
	}
	for i, ev := range events {
		s.Literals = append(s.Literals, lingo.Literal{Kind: lingo.LiteralString, Str: name + ":" + ev})
		s.Handlers = append(s.Handlers, m.Handler(ev, args, nil,
			op(opcode.PushCons, int64(i)*8),
			op(opcode.PushArgListNoRet, 1),
			op(opcode.ExtCall, int64(m.Name("put"))),
			op(opcode.Ret, 0),
		))
	}
	m.AddScript(number, name, kind, s)
}

// handler adds a movie script with one handler running code.
func (m *tracer) handler(number int, event string, code ...opcode.OpCode) {
	m.AddScript(number, "h"+event, cast.ScriptMovie, &lingo.Script{
		Handlers: []*lingo.Handler{m.Handler(event, nil, nil, append(code, op(opcode.Ret, 0))...)},
	})
}

func (m *tracer) call(name string, args ...int64) []opcode.OpCode {
	var out []opcode.OpCode
	for _, a := range args {
		out = append(out, op(opcode.PushInt8, a))
	}
	return append(out, op(opcode.PushArgListNoRet, int64(len(args))), op(opcode.ExtCall, int64(m.Name(name))))
}

// tracedMovie has a movie script, a frame script on frames 1-2 and a
// button behavior on sprite 1 for frames 1-3. The button covers
// (10,10)-(30,30).
func tracedMovie() *tracer {
	m := newTracer()
	m.script(1, "movie", cast.ScriptMovie, "prepareMovie", "startMovie", "stopMovie", "keyDown")
	m.script(2, "frame", cast.ScriptScore, "beginSprite", "prepareFrame", "enterFrame", "exitFrame", "endSprite")
	m.script(3, "button", cast.ScriptScore, "mouseEnter", "mouseLeave", "mouseDown", "mouseUp", "mouseUpOutside")
	m.AddMember(4, &cast.Member{
		Type:   cast.MemberBitmap,
		Name:   "Button",
		Bitmap: &cast.BitmapInfo{Rect: image.Rect(0, 0, 20, 20), BitDepth: 8},
	}, map[chunk.FourCC][]byte{chunk.TagBitmap: {0}})

	s := score.New(2)
	s.AddKeyframe(1, 1, score.Sprite{CastLib: 1, Member: 4, LocH: 10, LocV: 10, Width: 20, Height: 20})
	s.FrameCount = 3
	s.Intervals = []score.Interval{
		{Start: 1, End: 2, Channel: score.FrameScriptChannel, CastLib: 1, Member: 2},
		{Start: 1, End: 3, Channel: 1, CastLib: 1, Member: 3},
	}
	m.Score = s
	return m
}

func load(t *testing.T, m *tracer, opts ...Option) *Player {
	t.Helper()
	p := New(append([]Option{WithLogger(quiet())}, opts...)...)
	if err := p.LoadMovieBytes("test.dir", m.Bytes()); err != nil {
		t.Fatalf("LoadMovieBytes() error = %v", err)
	}
	t.Cleanup(p.VM().Unload)
	return p
}

// console returns the put lines since the previous call, without the
// "-- " prefix and quotes.
type console struct {
	p    *Player
	seen int
}

func (c *console) next() []string {
	lines := c.p.VM().Console()
	out := []string{}
	for _, l := range lines[c.seen:] {
		out = append(out, strings.Trim(strings.TrimPrefix(l, "-- "), `"`))
	}
	c.seen = len(lines)
	return out
}

func global(t *testing.T, p *Player, name string) string {
	t.Helper()
	for _, g := range p.VM().Globals() {
		if strings.EqualFold(g.Name, name) {
			return g.Value.Text
		}
	}
	return "<missing>"
}
