package vm

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zurustar/dirplayer/pkg/datum"
)

// DefaultTimerInterval is how often the timer goroutine looks for due
// timeouts.
const DefaultTimerInterval = 10 * time.Millisecond

// Timeout is a named, repeating timer created by timeout("name").new(...).
type Timeout struct {
	Name    string
	Period  time.Duration
	Handler string
	// Target receives the handler call; void sends it to movie scripts.
	Target     datum.Datum
	Persistent bool

	next time.Time
}

// timeoutTable is shared with the timer goroutine and has its own lock.
type timeoutTable struct {
	mu    sync.Mutex
	items map[string]*Timeout
}

func newTimeoutTable() *timeoutTable {
	return &timeoutTable{items: make(map[string]*Timeout)}
}

func (tt *timeoutTable) add(to *Timeout) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.items[strings.ToLower(to.Name)] = to
}

func (tt *timeoutTable) remove(name string) bool {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	k := strings.ToLower(name)
	_, ok := tt.items[k]
	delete(tt.items, k)
	return ok
}

func (tt *timeoutTable) get(name string) (Timeout, bool) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	to, ok := tt.items[strings.ToLower(name)]
	if !ok {
		return Timeout{}, false
	}
	return *to, true
}

func (tt *timeoutTable) update(name string, fn func(to *Timeout)) bool {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	to, ok := tt.items[strings.ToLower(name)]
	if ok {
		fn(to)
	}
	return ok
}

func (tt *timeoutTable) clear() {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.items = make(map[string]*Timeout)
}

func (tt *timeoutTable) len() int {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	return len(tt.items)
}

// list returns copies of the timeouts ordered by name.
func (tt *timeoutTable) list() []Timeout {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	out := make([]Timeout, 0, len(tt.items))
	for _, to := range tt.items {
		out = append(out, *to)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (tt *timeoutTable) roots() []datum.Datum {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	out := make([]datum.Datum, 0, len(tt.items))
	for _, to := range tt.items {
		out = append(out, to.Target)
	}
	return out
}

// due returns the events of every timeout whose period elapsed by now and
// schedules each one's next firing. A timeout that fell several periods
// behind fires once.
func (tt *timeoutTable) due(now time.Time) []Event {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	var out []Event
	for _, to := range tt.items {
		if to.Period <= 0 || now.Before(to.next) {
			continue
		}
		to.next = to.next.Add(to.Period)
		if !to.next.After(now) {
			to.next = now.Add(to.Period)
		}
		out = append(out, Event{
			Name:      to.Handler,
			Args:      []datum.Datum{datum.Timeout(to.Name)},
			Target:    to.Target,
			Timestamp: now,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Args[0].S) < strings.ToLower(out[j].Args[0].S)
	})
	return out
}

// Timer pushes the events of due timeouts to a queue from its own
// goroutine. The execution context drains the queue.
type Timer struct {
	interval time.Duration
	table    *timeoutTable
	queue    *EventQueue
	clock    func() time.Time

	ticker  *time.Ticker
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
}

// NewTimer creates a stopped timer. A non-positive interval selects
// DefaultTimerInterval.
func NewTimer(interval time.Duration, table *timeoutTable, queue *EventQueue, clock func() time.Time) *Timer {
	if interval <= 0 {
		interval = DefaultTimerInterval
	}
	return &Timer{interval: interval, table: table, queue: queue, clock: clock}
}

// Start launches the timer goroutine unless it is running.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	t.ticker = time.NewTicker(t.interval)
	go t.run()
}

func (t *Timer) run() {
	defer close(t.doneCh)
	for {
		select {
		case <-t.stopCh:
			return
		case _, ok := <-t.ticker.C:
			if !ok {
				return
			}
			for _, ev := range t.table.due(t.clock()) {
				e := ev
				t.queue.Push(&e)
			}
		}
	}
}

// Stop ends the timer goroutine and waits for it to exit.
func (t *Timer) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stopCh)
	doneCh := t.doneCh
	t.mu.Unlock()

	<-doneCh

	t.mu.Lock()
	t.ticker.Stop()
	t.ticker = nil
	t.stopCh = nil
	t.doneCh = nil
	t.mu.Unlock()
}

// IsRunning reports whether the timer goroutine is active.
func (t *Timer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Interval returns the polling interval.
func (t *Timer) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

func (vm *VM) startTimer() {
	if vm.timer == nil {
		vm.timer = NewTimer(vm.timerInterval, vm.timeouts, vm.timerQueue, vm.clock)
	}
	vm.timer.Start()
}

func (vm *VM) stopTimer() {
	if vm.timer != nil {
		vm.timer.Stop()
	}
	vm.timerQueue.Clear()
}

// addTimeout creates or replaces a timeout, first firing one period from
// now.
func (vm *VM) addTimeout(to *Timeout) {
	to.next = vm.clock().Add(to.Period)
	vm.timeouts.add(to)
	vm.log.Debug("timeout created", "name", to.Name, "period", to.Period, "handler", to.Handler)
	vm.startTimer()
}

// Timeouts returns the active timeouts.
func (vm *VM) Timeouts() []Timeout {
	return vm.timeouts.list()
}

// ForgetTimeout removes a timeout by name.
func (vm *VM) ForgetTimeout(name string) bool {
	return vm.timeouts.remove(name)
}

// DrainTimers dispatches the timeout events the timer goroutine queued.
// While a task is stopped at a breakpoint they are held for later.
func (vm *VM) DrainTimers() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	var first error
	for {
		ev, ok := vm.timerQueue.Pop()
		if !ok {
			return first
		}
		if err := vm.dispatchTimeout(*ev); err != nil && first == nil {
			first = err
		}
	}
}

// FireDueTimers dispatches the timeouts due at now without the timer
// goroutine. It returns the first script error.
func (vm *VM) FireDueTimers(now time.Time) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	var first error
	for _, ev := range vm.timeouts.due(now) {
		if err := vm.dispatchTimeout(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (vm *VM) dispatchTimeout(ev Event) error {
	if vm.movie == nil {
		return nil
	}
	if _, ok := vm.timeouts.get(ev.Args[0].S); !ok {
		return nil
	}
	if vm.suspendedTask() != nil {
		vm.queue.Push(&ev)
		return nil
	}
	return vm.dispatch(ev)
}

func (vm *VM) timeoutProp(name, prop string) (datum.Datum, error) {
	to, ok := vm.timeouts.get(name)
	if !ok {
		if strings.EqualFold(prop, "name") {
			return datum.String(name), nil
		}
		return datum.Void, NewTypeError("timeout %q does not exist", name)
	}
	switch strings.ToLower(prop) {
	case "name":
		return datum.String(to.Name), nil
	case "period":
		return datum.Int(to.Period.Milliseconds()), nil
	case "timeouthandler":
		return datum.Symbol(to.Handler), nil
	case "target":
		return to.Target, nil
	case "persistent":
		return datum.Bool(to.Persistent), nil
	}
	return datum.Void, NewTypeError("timeout has no property %s", prop)
}

func (vm *VM) setTimeoutProp(name, prop string, v datum.Datum) error {
	var err error
	ok := vm.timeouts.update(name, func(to *Timeout) {
		switch strings.ToLower(prop) {
		case "period":
			var ms int64
			if ms, err = datum.ToInt(v); err == nil {
				to.Period = time.Duration(ms) * time.Millisecond
				to.next = vm.clock().Add(to.Period)
			}
		case "timeouthandler":
			to.Handler = vm.arena.String(v)
		case "target":
			to.Target = v
		case "persistent":
			to.Persistent = datum.Truthy(v)
		default:
			err = NewTypeError("timeout property %s cannot be set", prop)
		}
	})
	if !ok {
		return NewTypeError("timeout %q does not exist", name)
	}
	return err
}
