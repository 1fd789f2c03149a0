package vm

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zurustar/dirplayer/pkg/datum"
)

// Standard event names. Handlers are matched ignoring case.
const (
	EventPrepareMovie = "prepareMovie"
	EventStartMovie   = "startMovie"
	EventStopMovie    = "stopMovie"
	EventPrepareFrame = "prepareFrame"
	EventEnterFrame   = "enterFrame"
	EventExitFrame    = "exitFrame"
	EventStepFrame    = "stepFrame"
	EventBeginSprite  = "beginSprite"
	EventEndSprite    = "endSprite"
	EventMouseDown    = "mouseDown"
	EventMouseUp      = "mouseUp"
	EventMouseUpOut   = "mouseUpOutside"
	EventMouseEnter   = "mouseEnter"
	EventMouseLeave   = "mouseLeave"
	EventMouseWithin  = "mouseWithin"
	EventKeyDown      = "keyDown"
	EventKeyUp        = "keyUp"
	EventIdle         = "idle"
	EventTimeout      = "timeout"
)

// Event is a host stimulus or timer firing to be dispatched to scripts.
type Event struct {
	Name string
	Args []datum.Datum
	// Channel is the sprite the event targets, 0 for none.
	Channel int
	// Broadcast sends the event to the behaviors of every sprite.
	Broadcast bool
	// SpriteOnly skips the frame and movie stages (mouseEnter and kin).
	SpriteOnly bool
	// Target, when an instance, receives the event alone (timeouts).
	Target    datum.Datum
	Timestamp time.Time
}

// DispatchTarget is one stage of event dispatch.
type DispatchTarget string

const (
	TargetSprite DispatchTarget = "sprite"
	TargetFrame  DispatchTarget = "frame"
	TargetMovie  DispatchTarget = "movie"
)

// DispatchOrder lists the stages an event passes through. Dispatch stops
// after the first stage with a handler that did not pass.
type DispatchOrder []DispatchTarget

// DefaultDispatchOrder is sprite behaviors, then the frame script, then
// movie scripts.
func DefaultDispatchOrder() DispatchOrder {
	return DispatchOrder{TargetSprite, TargetFrame, TargetMovie}
}

// ParseDispatchOrder parses stage names such as ["sprite", "frame",
// "movie"].
func ParseDispatchOrder(names []string) (DispatchOrder, error) {
	var out DispatchOrder
	seen := map[DispatchTarget]bool{}
	for _, n := range names {
		t := DispatchTarget(strings.ToLower(strings.TrimSpace(n)))
		switch t {
		case TargetSprite, TargetFrame, TargetMovie:
		default:
			return nil, fmt.Errorf("unknown dispatch target %q", n)
		}
		if seen[t] {
			return nil, fmt.Errorf("duplicate dispatch target %q", n)
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

// DefaultQueueSize is the default maximum size of the event queue.
const DefaultQueueSize = 1000

// EventQueue holds events that arrive while a task is stopped at a
// breakpoint. It is ordered by timestamp and drops the oldest event when
// full.
type EventQueue struct {
	events  []*Event
	maxSize int
	mu      sync.Mutex
}

// NewEventQueue creates a new event queue with the default maximum size.
func NewEventQueue() *EventQueue {
	return NewEventQueueWithSize(DefaultQueueSize)
}

// NewEventQueueWithSize creates an event queue holding at most maxSize
// events.
func NewEventQueueWithSize(maxSize int) *EventQueue {
	if maxSize <= 0 {
		maxSize = DefaultQueueSize
	}
	return &EventQueue{
		events:  make([]*Event, 0, 16),
		maxSize: maxSize,
	}
}

// Push adds an event, assigning a timestamp if it has none.
func (eq *EventQueue) Push(event *Event) {
	eq.mu.Lock()
	defer eq.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if len(eq.events) >= eq.maxSize {
		eq.events = eq.events[1:]
	}
	eq.events = append(eq.events, event)
	sort.SliceStable(eq.events, func(i, j int) bool {
		return eq.events[i].Timestamp.Before(eq.events[j].Timestamp)
	})
}

// Pop removes and returns the oldest event.
func (eq *EventQueue) Pop() (*Event, bool) {
	eq.mu.Lock()
	defer eq.mu.Unlock()

	if len(eq.events) == 0 {
		return nil, false
	}
	event := eq.events[0]
	eq.events = eq.events[1:]
	return event, true
}

// Len returns the number of queued events.
func (eq *EventQueue) Len() int {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	return len(eq.events)
}

// Clear drops every queued event.
func (eq *EventQueue) Clear() {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	eq.events = eq.events[:0]
}

// Snapshot returns the queued events in order.
func (eq *EventQueue) Snapshot() []Event {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	out := make([]Event, len(eq.events))
	for i, e := range eq.events {
		out[i] = *e
	}
	return out
}

// Dispatch delivers ev to scripts. While a task is stopped at a breakpoint
// the event is queued and delivered after the task resumes. The returned
// error is the uncaught script error, if any; the VM stays usable either
// way.
func (vm *VM) Dispatch(ev Event) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.movie == nil {
		return ErrNoMovie
	}
	if vm.suspendedTask() != nil {
		if ev.Timestamp.IsZero() {
			ev.Timestamp = vm.clock()
		}
		vm.queue.Push(&ev)
		vm.log.Debug("event queued while suspended", "event", ev.Name)
		return nil
	}
	return vm.dispatch(ev)
}

func (vm *VM) dispatch(ev Event) error {
	vm.taskSeq++
	t := &Task{ID: vm.taskSeq, Event: ev.Name}
	vm.start(t, func(t *Task) error {
		_, err := t.dispatch(ev)
		return err
	})
	return vm.finishTask(t)
}

// finishTask reports the outcome of a task after it yields to the host.
func (vm *VM) finishTask(t *Task) error {
	vm.announceGlobals()
	switch t.State {
	case TaskSuspendedBreakpoint:
		vm.notify(NotifyScopeListChanged, vm.tasksSnapshot())
		return nil
	case TaskSuspendedAsync:
		return nil
	case TaskErrored:
		if isCancelled(t.err) {
			return nil
		}
		re := at(nil, t.err)
		vm.log.Error("script error", "event", t.Event, "error", re)
		vm.notify(NotifyScriptError, ScriptErrorInfo{
			Type:    re.Type,
			Message: re.Message,
			Script:  re.Script,
			Handler: re.Handler,
			Index:   re.Index,
			Event:   t.Event,
		})
		vm.notify(NotifyScopeListChanged, vm.tasksSnapshot())
		return re
	}
	vm.collect()
	return nil
}

func (vm *VM) announceGlobals() {
	if !vm.globalsChanged {
		return
	}
	vm.globalsChanged = false
	vm.notify(NotifyGlobalListChanged, vm.globalsSnapshot())
}

func (vm *VM) drainQueued() {
	for vm.suspendedTask() == nil {
		ev, ok := vm.queue.Pop()
		if !ok {
			return
		}
		if err := vm.dispatch(*ev); err != nil {
			vm.log.Debug("queued event failed", "event", ev.Name, "error", err)
		}
	}
}

// dispatch runs on the task goroutine and reports whether any handler
// consumed the event.
func (t *Task) dispatch(ev Event) (bool, error) {
	vm := t.vm
	if ev.Target.Kind == datum.KindInstance {
		return t.sendTo(ev.Target, ev.Name, ev.Args)
	}
	if strings.EqualFold(ev.Name, EventStepFrame) {
		return t.stepActors()
	}
	always := vm.propagate[strings.ToLower(ev.Name)]
	handledAny := false
	for _, target := range vm.order {
		if ev.SpriteOnly && target != TargetSprite {
			continue
		}
		var handled bool
		var err error
		switch target {
		case TargetSprite:
			handled, err = t.dispatchSprites(ev)
		case TargetFrame:
			handled, err = t.dispatchInstances(vm.stage.FrameScript, ev.Name, ev.Args)
		case TargetMovie:
			handled, err = t.dispatchMovie(ev.Name, ev.Args)
		}
		if err != nil {
			return handledAny, err
		}
		handledAny = handledAny || handled
		if handled && !always {
			break
		}
	}
	return handledAny, nil
}

func (t *Task) dispatchSprites(ev Event) (bool, error) {
	st := t.vm.stage
	var channels []int
	switch {
	case ev.Broadcast:
		for _, sp := range st.Sprites {
			if len(sp.Behaviors) > 0 {
				channels = append(channels, sp.Channel)
			}
		}
	case ev.Channel > 0:
		channels = []int{ev.Channel}
	}
	handled := false
	for _, ch := range channels {
		sp, ok := st.Sprite(ch)
		if !ok {
			continue
		}
		h, err := t.dispatchInstances(sp.Behaviors, ev.Name, ev.Args)
		if err != nil {
			return handled, err
		}
		handled = handled || h
	}
	return handled, nil
}

// dispatchInstances sends the event to every instance that defines a
// handler for it. It reports whether one of them did not pass.
func (t *Task) dispatchInstances(insts []datum.Datum, name string, args []datum.Datum) (bool, error) {
	handled := false
	for _, inst := range append([]datum.Datum(nil), insts...) {
		h, err := t.sendTo(inst, name, args)
		if err != nil {
			return handled, err
		}
		handled = handled || h
	}
	return handled, nil
}

func (t *Task) sendTo(inst datum.Datum, name string, args []datum.Datum) (bool, error) {
	target, ok, err := t.findInstanceHandler(inst, name)
	if err != nil || !ok {
		return false, err
	}
	callArgs := append([]datum.Datum{inst}, args...)
	s, err := t.invoke(target, inst, callArgs)
	if err != nil {
		return false, err
	}
	return !s.Passed, nil
}

func (t *Task) dispatchMovie(name string, args []datum.Datum) (bool, error) {
	for _, mem := range t.vm.movieScripts() {
		target, ok := t.vm.handlerIn(mem, name)
		if !ok {
			continue
		}
		s, err := t.invoke(target, datum.Void, args)
		if err != nil {
			return false, err
		}
		if !s.Passed {
			return true, nil
		}
	}
	return false, nil
}

func (t *Task) stepActors() (bool, error) {
	vm := t.vm
	l, err := vm.arena.List(vm.actorList)
	if err != nil {
		return false, nil
	}
	actors := append([]datum.Datum(nil), l.Items...)
	handled := false
	for _, a := range actors {
		if a.Kind != datum.KindInstance {
			continue
		}
		h, err := t.sendTo(a, EventStepFrame, nil)
		if err != nil {
			return handled, err
		}
		handled = handled || h
	}
	return handled, nil
}

// BeginSprite attaches a behavior script to a channel (0 for the frame
// script) and sends it beginSprite.
func (vm *VM) BeginSprite(channel, lib, member int) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.movie == nil {
		return ErrNoMovie
	}
	mem, ok := vm.movie.Member(lib, member)
	if !ok || mem.Script == nil {
		return NewTypeError("member %d of castLib %d is not a script", member, lib)
	}
	inst := vm.newBehavior(mem, channel)
	if channel == 0 {
		vm.stage.FrameScript = append(vm.stage.FrameScript, inst)
	} else {
		sp, ok := vm.stage.Sprite(channel)
		if !ok {
			return NewIndexOutOfRangeError(channel, len(vm.stage.Sprites))
		}
		sp.Behaviors = append(sp.Behaviors, inst)
	}
	if vm.suspendedTask() != nil {
		vm.queue.Push(&Event{Name: EventBeginSprite, Target: inst, Timestamp: vm.clock()})
		return nil
	}
	return vm.dispatch(Event{Name: EventBeginSprite, Target: inst})
}

// EndSprite sends endSprite to the behaviors of a channel and detaches
// them.
func (vm *VM) EndSprite(channel int) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	var insts []datum.Datum
	if channel == 0 {
		insts, vm.stage.FrameScript = vm.stage.FrameScript, nil
	} else if sp, ok := vm.stage.Sprite(channel); ok {
		insts, sp.Behaviors = sp.Behaviors, nil
	}
	if len(insts) == 0 || vm.movie == nil {
		return nil
	}
	if vm.suspendedTask() != nil {
		for _, inst := range insts {
			vm.queue.Push(&Event{Name: EventEndSprite, Target: inst, Timestamp: vm.clock()})
		}
		return nil
	}
	var first error
	for _, inst := range insts {
		if err := vm.dispatch(Event{Name: EventEndSprite, Target: inst}); err != nil && first == nil {
			first = err
		}
	}
	return first
}
