package engine

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/zurustar/dirplayer/pkg/opcode"
	"github.com/zurustar/dirplayer/pkg/vm"
)

func TestPlay_StartMovieSetsGlobal(t *testing.T) {
	m := newTracer()
	m.handler(1, "startMovie", op(opcode.PushInt8, 42), op(opcode.SetGlobal, int64(m.Name("gAnswer"))))
	p := load(t, m)

	if err := p.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if got := global(t, p, "gAnswer"); got != "42" {
		t.Errorf("gAnswer = %s, want 42", got)
	}
	if p.Frame() != 1 || !p.Playing() {
		t.Errorf("Frame() = %d, Playing() = %v", p.Frame(), p.Playing())
	}
}

func TestCommands_NeedMovie(t *testing.T) {
	p := New(WithLogger(quiet()))
	for name, call := range map[string]func() error{
		"Play":      p.Play,
		"Reset":     p.Reset,
		"GoToFrame": func() error { return p.GoToFrame(1) },
		"MouseDown": func() error { return p.MouseDown(0, 0) },
		"KeyDown":   func() error { return p.KeyDown(36, "a") },
	} {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, ErrNoMovie) {
				t.Errorf("error = %v, want ErrNoMovie", err)
			}
		})
	}
}

func TestTick_FrameEventOrder(t *testing.T) {
	p := load(t, tracedMovie())
	out := &console{p: p}

	if err := p.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	steps := []struct {
		frame int
		want  []string
	}{
		{1, []string{"movie:prepareMovie", "frame:beginSprite", "frame:prepareFrame", "movie:startMovie", "frame:enterFrame"}},
		{2, []string{"frame:exitFrame", "frame:prepareFrame", "frame:enterFrame"}},
		{3, []string{"frame:exitFrame", "frame:endSprite"}},
		{1, []string{"frame:beginSprite", "frame:prepareFrame", "frame:enterFrame"}},
	}
	for i, step := range steps {
		if i > 0 {
			if err := p.Tick(); err != nil {
				t.Fatalf("Tick() error = %v", err)
			}
		}
		if got := out.next(); !slices.Equal(got, step.want) {
			t.Errorf("step %d: console = %q, want %q", i, got, step.want)
		}
		if p.Frame() != step.frame {
			t.Errorf("step %d: Frame() = %d, want %d", i, p.Frame(), step.frame)
		}
	}
}

func TestTick_AttachesSpriteBehaviors(t *testing.T) {
	p := load(t, tracedMovie())
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	sp, ok := p.VM().SpriteState(1)
	if !ok || len(sp.Behaviors) != 1 || sp.Member != 4 {
		t.Fatalf("SpriteState(1) = %+v, %v", sp, ok)
	}
	if sp.Rect().Dx() != 20 {
		t.Errorf("sprite rect = %v", sp.Rect())
	}
}

func TestTick_GoOverridesNextFrame(t *testing.T) {
	m := newTracer()
	m.handler(1, "exitFrame", m.call("go", 3)...)
	m.Score = tracedMovie().Score
	m.Score.Intervals = nil
	p := load(t, m)

	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	if err := p.Tick(); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if p.Frame() != 3 {
		t.Errorf("Frame() = %d, want 3", p.Frame())
	}
}

func TestTick_StopsAfterHalt(t *testing.T) {
	m := newTracer()
	m.handler(1, "enterFrame", m.call("halt")...)
	p := load(t, m)

	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	if err := p.Tick(); err != nil {
		t.Fatal(err)
	}
	if p.Playing() {
		t.Error("Playing() = true after halt")
	}
	if p.Frame() != 1 {
		t.Errorf("Frame() = %d, want 1", p.Frame())
	}
}

func TestTick_EmptyScoreStaysOnFrameOne(t *testing.T) {
	m := newTracer()
	m.handler(1, "startMovie")
	p := load(t, m)
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if err := p.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	if p.Frame() != 1 {
		t.Errorf("Frame() = %d, want 1", p.Frame())
	}
}

func TestGoToFrame(t *testing.T) {
	p := load(t, tracedMovie())
	out := &console{p: p}

	tests := []struct {
		name    string
		frame   int
		wantErr bool
		want    []string
	}{
		{name: "zero", frame: 0, wantErr: true},
		{name: "past end", frame: 4, wantErr: true},
		{name: "first", frame: 1, want: []string{"frame:beginSprite"}},
		{name: "no frame script", frame: 3, want: []string{"frame:endSprite"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.GoToFrame(tt.frame)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GoToFrame(%d) error = %v, wantErr %v", tt.frame, err, tt.wantErr)
			}
			if got := out.next(); len(got) != len(tt.want) || !slices.Equal(got, tt.want) {
				t.Errorf("console = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMouse_EnterLeaveAndClick(t *testing.T) {
	p := load(t, tracedMovie())
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	out := &console{p: p}
	out.next()

	steps := []struct {
		name string
		act  func() error
		want []string
	}{
		{"enter", func() error { return p.MouseMove(15, 15) }, []string{"button:mouseEnter"}},
		{"within", func() error { return p.MouseMove(16, 16) }, []string{}},
		{"leave", func() error { return p.MouseMove(100, 100) }, []string{"button:mouseLeave"}},
		{"down", func() error {
			if err := p.MouseMove(20, 20); err != nil {
				return err
			}
			return p.MouseDown(20, 20)
		}, []string{"button:mouseEnter", "button:mouseDown"}},
		{"up", func() error { return p.MouseUp(20, 20) }, []string{"button:mouseUp"}},
		{"up outside", func() error {
			if err := p.MouseDown(20, 20); err != nil {
				return err
			}
			return p.MouseUp(200, 200)
		}, []string{"button:mouseDown", "button:mouseUpOutside"}},
		{"key", func() error { return p.KeyDown(0, "a") }, []string{"movie:keyDown"}},
	}
	for _, step := range steps {
		if err := step.act(); err != nil {
			t.Fatalf("%s: error = %v", step.name, err)
		}
		if got := out.next(); !slices.Equal(got, step.want) {
			t.Errorf("%s: console = %q, want %q", step.name, got, step.want)
		}
	}
}

func TestReset_ReloadsState(t *testing.T) {
	m := newTracer()
	m.handler(1, "startMovie", op(opcode.PushInt8, 7), op(opcode.SetGlobal, int64(m.Name("gSeen"))))
	p := load(t, m)
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	p.AddBreakpoint(vm.Breakpoint{Script: "hstartMovie", Handler: "startMovie", Index: 0, Enabled: true})

	if err := p.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if p.Playing() || p.Frame() != 0 {
		t.Errorf("after Reset: Playing() = %v, Frame() = %d", p.Playing(), p.Frame())
	}
	if got := global(t, p, "gSeen"); got != "<missing>" {
		t.Errorf("gSeen = %s after Reset", got)
	}
	if len(p.Breakpoints()) != 1 {
		t.Errorf("Breakpoints() = %v, want kept", p.Breakpoints())
	}
}

func TestTick_WaitsWhileStoppedAtBreakpoint(t *testing.T) {
	p := load(t, tracedMovie())
	p.AddBreakpoint(vm.Breakpoint{Script: "frame", Handler: "exitFrame", Index: 0, Enabled: true})
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	if err := p.Tick(); err != nil {
		t.Fatal(err)
	}
	for range 2 {
		if err := p.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	if p.Frame() != 1 {
		t.Fatalf("Frame() = %d while stopped, want 1", p.Frame())
	}
	p.RemoveBreakpoint("frame", "exitFrame", 0)
	if err := p.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if err := p.Tick(); err != nil {
		t.Fatal(err)
	}
	if p.Frame() != 2 {
		t.Errorf("Frame() = %d after resume, want 2", p.Frame())
	}
}

func TestRun_StopsOnHalt(t *testing.T) {
	m := newTracer()
	m.handler(1, "exitFrame", m.call("halt")...)
	p := load(t, m, WithFPS(200))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !p.VM().Halted() {
		t.Error("Halted() = false")
	}
}

func TestRun_Timeout(t *testing.T) {
	p := load(t, tracedMovie(), WithTimeout(30*time.Millisecond), WithFPS(60))
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if p.Playing() {
		t.Error("Playing() = true after timeout")
	}
}

func TestOnFrame(t *testing.T) {
	p := load(t, tracedMovie())
	var frames []int
	p.OnFrame(func(f int) { frames = append(frames, f) })
	if err := p.Play(); err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if err := p.Tick(); err != nil {
			t.Fatal(err)
		}
	}
	if want := []int{1, 2, 3, 1}; !slices.Equal(frames, want) {
		t.Errorf("frames = %v, want %v", frames, want)
	}
}
