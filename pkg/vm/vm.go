// Package vm is the Lingo bytecode interpreter. It owns the runtime state of
// one loaded movie:
//   - globals, the datum arena and script instances
//   - call stacks of the running and suspended tasks
//   - breakpoints and stepping
//   - event dispatch, timeouts and pending async requests
//
// Every exported method is safe for concurrent use. Script execution itself
// is single threaded: a host call blocks until the task it started or
// resumed finishes or suspends.
package vm

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zurustar/dirplayer/pkg/datum"
	"github.com/zurustar/dirplayer/pkg/logger"
	"github.com/zurustar/dirplayer/pkg/movie"
)

// MaxStackDepth is the maximum call depth of a task.
const MaxStackDepth = 1000

// DefaultConsoleLines bounds the retained console output.
const DefaultConsoleLines = 1000

type globalVar struct {
	name  string
	value datum.Datum
}

type memberKey struct{ lib, member int }

// VM executes the scripts of one movie at a time.
type VM struct {
	mu  sync.Mutex
	log *slog.Logger

	movie   *movie.Movie
	arena   *datum.Arena
	globals map[string]*globalVar
	// statics holds properties of scripts used without an instance.
	statics map[memberKey]map[string]datum.Datum

	builtins map[string]BuiltinFunc

	tasks    []*Task
	taskSeq  int
	scopeSeq int

	breakpoints breakpointSet
	queue       *EventQueue
	order       DispatchOrder
	propagate   map[string]bool

	stage     *Stage
	actorList datum.Datum
	itemDelim rune
	// props holds settable movie properties without dedicated state.
	props      map[string]datum.Datum
	timerStart int64
	// globalsChanged is set by global writes and cleared when the change
	// is announced.
	globalsChanged bool

	timeouts      *timeoutTable
	timer         *Timer
	timerQueue    *EventQueue
	timerInterval time.Duration

	async map[uuid.UUID]*AsyncRequest
	// net keeps every request of the movie by net id for netDone and
	// netTextResult.
	net    map[int]*AsyncRequest
	netSeq int

	subsMu  sync.Mutex
	subs    map[int]subscription
	subSeq  int
	console []string
	maxCons int

	clock  func() time.Time
	epoch  time.Time
	random *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
}

// Option is a functional option for configuring the VM.
type Option func(*VM)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(vm *VM) {
		vm.log = log
	}
}

// WithDispatchOrder sets the order event targets are tried in.
func WithDispatchOrder(order DispatchOrder) Option {
	return func(vm *VM) {
		if len(order) > 0 {
			vm.order = order
		}
	}
}

// WithAlwaysPropagate names events that reach every target even when an
// earlier one handled them.
func WithAlwaysPropagate(events ...string) Option {
	return func(vm *VM) {
		for _, e := range events {
			vm.propagate[strings.ToLower(e)] = true
		}
	}
}

// WithClock replaces the wall clock used for ticks, the timer and
// timeouts.
func WithClock(clock func() time.Time) Option {
	return func(vm *VM) {
		vm.clock = clock
	}
}

// WithTimerInterval sets how often the timeout goroutine checks for due
// timeouts.
func WithTimerInterval(d time.Duration) Option {
	return func(vm *VM) {
		if d > 0 {
			vm.timerInterval = d
		}
	}
}

// WithRandomSeed makes random() deterministic.
func WithRandomSeed(seed int64) Option {
	return func(vm *VM) {
		vm.random = rand.New(rand.NewSource(seed))
	}
}

// WithConsoleLines bounds the console buffer.
func WithConsoleLines(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.maxCons = n
		}
	}
}

// WithBreakpoints installs breakpoints before any script runs.
func WithBreakpoints(bps ...Breakpoint) Option {
	return func(vm *VM) {
		for _, bp := range bps {
			bp.Enabled = true
			b := bp
			vm.breakpoints[keyOf(b.Script, b.Handler, b.Index)] = &b
		}
	}
}

// New creates a VM with no movie loaded.
func New(opts ...Option) *VM {
	vm := &VM{
		log:           logger.GetLogger(),
		arena:         datum.NewArena(),
		globals:       make(map[string]*globalVar),
		statics:       make(map[memberKey]map[string]datum.Datum),
		builtins:      make(map[string]BuiltinFunc),
		breakpoints:   breakpointSet{},
		queue:         NewEventQueue(),
		order:         DefaultDispatchOrder(),
		propagate:     make(map[string]bool),
		stage:         NewStage(0),
		itemDelim:     ',',
		props:         make(map[string]datum.Datum),
		timeouts:      newTimeoutTable(),
		timerQueue:    NewEventQueue(),
		timerInterval: DefaultTimerInterval,
		async:         make(map[uuid.UUID]*AsyncRequest),
		net:           make(map[int]*AsyncRequest),
		subs:          make(map[int]subscription),
		maxCons:       DefaultConsoleLines,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(vm)
	}
	if vm.random == nil {
		vm.random = rand.New(rand.NewSource(vm.clock().UnixNano()))
	}
	vm.epoch = vm.clock()
	vm.ctx, vm.cancel = context.WithCancel(context.Background())
	vm.actorList = vm.arena.NewList()
	vm.registerBuiltins()
	return vm
}

// Logger returns the VM's logger.
func (vm *VM) Logger() *slog.Logger { return vm.log }

// LoadMovie unloads the current movie, resets all runtime state and makes
// m current.
func (vm *VM) LoadMovie(m *movie.Movie) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.unload()
	vm.movie = m
	channels := 0
	if m.Score != nil {
		channels = max(m.Score.ChannelCount()-1, 0)
	}
	vm.stage = NewStage(channels)
	vm.stage.Tempo = m.FrameRate
	vm.stage.Width, vm.stage.Height = m.Stage.Dx(), m.Stage.Dy()
	vm.log.Info("movie loaded", "name", m.Name, "version", m.Version, "casts", len(m.Casts), "channels", channels)
	vm.notify(NotifyMovieLoaded, vm.movieInfo())
	vm.notify(NotifyCastListChanged, vm.castInfo())
	vm.notify(NotifyScoreChanged, vm.frameInfo())
}

// Unload cancels suspended tasks, stops timeouts and clears all state.
func (vm *VM) Unload() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.unload()
}

func (vm *VM) unload() {
	vm.cancel()
	for len(vm.tasks) > 0 {
		t := vm.tasks[0]
		if t.State == TaskSuspendedBreakpoint || t.State == TaskSuspendedAsync {
			vm.resume(t, resumeCmd{cancel: true})
			if t.err != nil && !isCancelled(t.err) {
				vm.log.Warn("task ended with error during unload", "task", t.ID, "error", t.err)
			}
			continue
		}
		vm.afterYield(t)
		vm.tasks = vm.tasks[1:]
	}
	vm.stopTimer()
	vm.timeouts.clear()
	vm.queue.Clear()
	vm.async = make(map[uuid.UUID]*AsyncRequest)
	vm.net = make(map[int]*AsyncRequest)
	vm.netSeq = 0
	vm.arena.Reset()
	vm.globals = make(map[string]*globalVar)
	vm.statics = make(map[memberKey]map[string]datum.Datum)
	vm.actorList = vm.arena.NewList()
	vm.itemDelim = ','
	vm.props = make(map[string]datum.Datum)
	vm.timerStart = 0
	vm.globalsChanged = false
	vm.arena.FloatPrecision = 4
	vm.stage = NewStage(0)
	vm.movie = nil
	vm.console = nil
	vm.epoch = vm.clock()
	vm.ctx, vm.cancel = context.WithCancel(context.Background())
}

// Movie returns the loaded movie, or nil.
func (vm *VM) Movie() *movie.Movie {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.movie
}

// Context is cancelled when the movie is unloaded.
func (vm *VM) Context() context.Context {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.ctx
}

// Arena exposes the datum arena. Callers must hold the VM through Do.
func (vm *VM) Arena() *datum.Arena { return vm.arena }

// Do runs fn with the VM locked. fn must not call other VM methods.
func (vm *VM) Do(fn func(vm *VM)) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	fn(vm)
}

// Global returns a global variable, ignoring case.
func (vm *VM) Global(name string) (datum.Datum, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.global(name)
}

func (vm *VM) global(name string) (datum.Datum, bool) {
	g, ok := vm.globals[strings.ToLower(name)]
	if !ok {
		return datum.Void, false
	}
	return g.value, true
}

// SetGlobal assigns a global variable.
func (vm *VM) SetGlobal(name string, d datum.Datum) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.setGlobal(name, d)
	vm.announceGlobals()
}

func (vm *VM) setGlobal(name string, d datum.Datum) {
	k := strings.ToLower(name)
	vm.globalsChanged = true
	if g, ok := vm.globals[k]; ok {
		g.value = d
		return
	}
	vm.globals[k] = &globalVar{name: name, value: d}
}

// Globals returns a snapshot of all globals ordered by name.
func (vm *VM) Globals() []NamedValue {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.globalsSnapshot()
}

// Tasks returns snapshots of the live tasks.
func (vm *VM) Tasks() []TaskInfo {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.tasksSnapshot()
}

// Console returns the retained console output.
func (vm *VM) Console() []string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return append([]string(nil), vm.console...)
}

func (vm *VM) print(line string) {
	vm.console = append(vm.console, line)
	if over := len(vm.console) - vm.maxCons; over > 0 {
		vm.console = vm.console[over:]
	}
	vm.log.Info("put", "text", line)
	vm.notify(NotifyDebugMessage, line)
}

// Collect frees unreachable composite datums. It only runs when no task is
// live, since suspended tasks may hold datums outside any scope. It returns
// the number of freed objects.
func (vm *VM) Collect() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.collect()
}

func (vm *VM) collect() int {
	if len(vm.tasks) > 0 {
		return 0
	}
	roots := []datum.Datum{vm.actorList}
	for _, g := range vm.globals {
		roots = append(roots, g.value)
	}
	for _, v := range vm.props {
		roots = append(roots, v)
	}
	for _, props := range vm.statics {
		for _, v := range props {
			roots = append(roots, v)
		}
	}
	roots = append(roots, vm.stage.roots()...)
	roots = append(roots, vm.timeouts.roots()...)
	for _, q := range append(vm.queue.Snapshot(), vm.timerQueue.Snapshot()...) {
		roots = append(roots, q.Target)
		roots = append(roots, q.Args...)
	}
	freed := vm.arena.Collect(roots...)
	if freed > 0 {
		vm.log.Debug("arena collected", "freed", freed, "live", vm.arena.Len())
	}
	return freed
}

func (vm *VM) ticks() int64 {
	return vm.clock().Sub(vm.epoch).Milliseconds() * 60 / 1000
}

func (vm *VM) milliseconds() int64 {
	return vm.clock().Sub(vm.epoch).Milliseconds()
}
