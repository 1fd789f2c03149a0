// Package engine drives a loaded movie: it owns the frame counter, turns
// host input into VM events and exposes the host command surface.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding"

	"github.com/zurustar/dirplayer/pkg/fileutil"
	"github.com/zurustar/dirplayer/pkg/movie"
	"github.com/zurustar/dirplayer/pkg/vm"
)

// ErrNoMovie is returned by commands that need a loaded movie.
var ErrNoMovie = errors.New("no movie loaded")

// DefaultFPS is used when neither the movie nor the configuration sets a
// usable frame rate.
const DefaultFPS = 15

// Player is the host-facing movie player. All methods are safe for
// concurrent use; VM work is serialized by the VM itself.
type Player struct {
	mu  sync.Mutex
	vm  *vm.VM
	log *slog.Logger

	fps         int
	stageW      int
	stageH      int
	enc         encoding.Encoding
	fsys        fileutil.FileSystem
	timeout     time.Duration
	now         func() time.Time
	onFrameDone func(frame int)
	vmOpts      []vm.Option

	name    string
	data    []byte
	dir     string
	loadFS  fileutil.FileSystem
	loaded  bool
	playing bool
	started bool
	frame   int
	// exited is set once exitFrame was sent for the current frame.
	exited bool

	behaviors map[int][]span
	hover     int
	pressed   int
	buttons   bool
}

// Option configures a Player.
type Option func(*Player)

// WithLogger sets the logger for the player and its VM.
func WithLogger(log *slog.Logger) Option {
	return func(p *Player) {
		if log != nil {
			p.log = log
		}
	}
}

// WithFPS overrides the movie's frame rate.
func WithFPS(fps int) Option {
	return func(p *Player) { p.fps = fps }
}

// WithStageSize overrides the stage size reported to scripts.
func WithStageSize(w, h int) Option {
	return func(p *Player) { p.stageW, p.stageH = w, h }
}

// WithTextEncoding sets the encoding of names and text; nil is Mac Roman.
func WithTextEncoding(enc encoding.Encoding) Option {
	return func(p *Player) { p.enc = enc }
}

// WithFileSystem sets where movies and linked casts are read from.
func WithFileSystem(fsys fileutil.FileSystem) Option {
	return func(p *Player) { p.fsys = fsys }
}

// WithTimeout stops Run after d. Zero runs until halt or cancellation.
func WithTimeout(d time.Duration) Option {
	return func(p *Player) { p.timeout = d }
}

// WithClock replaces the wall clock used by the scheduler.
func WithClock(now func() time.Time) Option {
	return func(p *Player) { p.now = now }
}

// WithVMOptions passes options to the VM.
func WithVMOptions(opts ...vm.Option) Option {
	return func(p *Player) { p.vmOpts = append(p.vmOpts, opts...) }
}

// New creates a player with no movie.
func New(opts ...Option) *Player {
	p := &Player{
		log:       slog.Default(),
		now:       time.Now,
		behaviors: map[int][]span{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.vm = vm.New(append([]vm.Option{vm.WithLogger(p.log)}, p.vmOpts...)...)
	return p
}

// VM returns the player's virtual machine.
func (p *Player) VM() *vm.VM { return p.vm }

// LoadMovie reads and loads a movie file. Linked casts are looked up next
// to it.
func (p *Player) LoadMovie(path string) error {
	fsys := p.fsys
	if fsys == nil {
		fsys = fileutil.NewRealFS("")
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read movie: %w", err)
	}
	return p.load(filepath.Base(path), data, fsys, filepath.Dir(path))
}

// LoadMovieBytes loads a movie from memory. Linked casts resolve against
// the configured file system, if any.
func (p *Player) LoadMovieBytes(name string, data []byte) error {
	return p.load(name, data, p.fsys, "")
}

func (p *Player) load(name string, data []byte, fsys fileutil.FileSystem, dir string) error {
	m, err := movie.Load(name, data, movie.Options{
		Encoding: p.enc,
		FS:       fsys,
		Dir:      dir,
		Logger:   p.log,
	})
	if err != nil {
		return fmt.Errorf("load movie %s: %w", name, err)
	}
	for _, is := range m.Issues {
		p.log.Warn("decode issue", "movie", name, "issue", is.Error(), "type", vm.ClassifyError(is))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.vm.LoadMovie(m)
	if p.fps > 0 {
		p.vm.SetTempo(p.fps)
	}
	if p.stageW > 0 && p.stageH > 0 {
		p.vm.SetStageSize(p.stageW, p.stageH)
	}
	p.name, p.data, p.loadFS, p.dir = name, data, fsys, dir
	p.loaded = true
	p.playing, p.started = false, false
	p.frame = 0
	p.exited = false
	p.behaviors = map[int][]span{}
	p.hover, p.pressed, p.buttons = 0, 0, false
	p.log.Info("movie ready", "name", name, "frames", frameCount(m), "fps", p.vm.Tempo())
	return nil
}

// Reset reloads the current movie from the bytes it was loaded from. All
// globals, timeouts, tasks and breakpoint stops are discarded; breakpoints
// themselves are kept.
func (p *Player) Reset() error {
	p.mu.Lock()
	if !p.loaded {
		p.mu.Unlock()
		return ErrNoMovie
	}
	name, data, fsys, dir := p.name, p.data, p.loadFS, p.dir
	p.mu.Unlock()
	p.log.Info("movie reset", "name", name)
	return p.load(name, data, fsys, dir)
}

// Play starts or continues playback. The first call runs prepareMovie,
// enters frame 1 and sends startMovie.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return ErrNoMovie
	}
	if p.playing {
		return nil
	}
	p.playing = true
	if p.started {
		return nil
	}
	p.started = true
	var errs []error
	errs = append(errs, p.vm.Dispatch(vm.Event{Name: vm.EventPrepareMovie}))
	errs = append(errs, p.enterFrame(max(p.frame, 1), true)...)
	return errors.Join(errs...)
}

// Stop pauses playback and sends stopMovie.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return nil
	}
	p.playing = false
	p.log.Info("playback stopped", "frame", p.frame)
	return p.vm.Dispatch(vm.Event{Name: vm.EventStopMovie})
}

// Playing reports whether the player advances frames on Tick.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Frame returns the current frame, 0 before playback starts.
func (p *Player) Frame() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame
}

// SetStageSize sets the stage size reported to scripts.
func (p *Player) SetStageSize(w, h int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stageW, p.stageH = w, h
	p.vm.SetStageSize(w, h)
}

// Run plays the movie, advancing one frame per scheduler tick, until the
// movie halts, the timeout passes or ctx is cancelled. Script errors are
// logged and do not stop playback.
func (p *Player) Run(ctx context.Context) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.Play(); err != nil {
		p.log.Error("script error", "error", err)
	}
	sched, err := NewScheduler(tempoOr(p.vm.Tempo()), p.now, p.log)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := p.Stop(); err != nil {
				p.log.Error("script error", "error", err)
			}
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && p.timeout > 0 {
				p.log.Info("timeout reached", "timeout", p.timeout)
				return nil
			}
			return ctx.Err()
		case <-sched.Ready():
			for n := sched.Take(); n > 0; n-- {
				if err := p.Tick(); err != nil {
					p.log.Error("script error", "error", err)
				}
			}
			if p.vm.Halted() {
				p.log.Info("movie halted", "frame", p.Frame())
				return nil
			}
			if err := sched.SetTempo(tempoOr(p.vm.Tempo())); err != nil {
				p.log.Warn("tempo ignored", "fps", p.vm.Tempo(), "error", err)
			}
		}
	}
}

// OnFrame registers fn to run after every frame the player enters.
func (p *Player) OnFrame(fn func(frame int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFrameDone = fn
}

// Subscribe registers a notification callback, see vm.VM.Subscribe.
func (p *Player) Subscribe(kind vm.NotificationKind, fn func(vm.Notification)) int {
	return p.vm.Subscribe(kind, fn)
}

// Unsubscribe removes a notification callback.
func (p *Player) Unsubscribe(id int) { p.vm.Unsubscribe(id) }

// AddBreakpoint adds or re-enables a breakpoint.
func (p *Player) AddBreakpoint(bp vm.Breakpoint) { p.vm.AddBreakpoint(bp) }

// RemoveBreakpoint deletes a breakpoint.
func (p *Player) RemoveBreakpoint(script, handler string, index int) bool {
	return p.vm.RemoveBreakpoint(script, handler, index)
}

// ToggleBreakpoint flips a breakpoint, adding it if missing.
func (p *Player) ToggleBreakpoint(script, handler string, index int) bool {
	return p.vm.ToggleBreakpoint(script, handler, index)
}

// Breakpoints lists the breakpoints.
func (p *Player) Breakpoints() []vm.Breakpoint { return p.vm.Breakpoints() }

// Resume continues a task stopped at a breakpoint.
func (p *Player) Resume() error { return p.vm.Resume() }

// StepInto runs the stopped task to its next instruction.
func (p *Player) StepInto() error { return p.vm.StepInto() }

// StepOver runs the stopped task to the next instruction of its handler.
func (p *Player) StepOver() error { return p.vm.StepOver() }

// StepOut runs the stopped task until its handler returns.
func (p *Player) StepOut() error { return p.vm.StepOut() }

// Eval evaluates an expression against the current VM state.
func (p *Player) Eval(text string) (vm.Value, error) { return p.vm.Eval(text) }

// ProvideAsyncResource answers a pending network request.
func (p *Player) ProvideAsyncResource(id uuid.UUID, data []byte) error {
	return p.vm.ProvideAsyncResource(id, data)
}

func tempoOr(fps int) int {
	if fps < MinFPS || fps > MaxFPS {
		return DefaultFPS
	}
	return fps
}

func frameCount(m *movie.Movie) int {
	if m == nil || m.Score == nil {
		return 0
	}
	return m.Score.FrameCount
}
