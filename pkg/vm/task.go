package vm

import (
	"errors"

	"github.com/google/uuid"

	"github.com/zurustar/dirplayer/pkg/datum"
)

// TaskState is the execution state of a task, which is the state of its
// innermost scope.
type TaskState int

const (
	TaskRunning TaskState = iota
	TaskSuspendedBreakpoint
	TaskSuspendedAsync
	TaskReturned
	TaskErrored
)

func (s TaskState) String() string {
	switch s {
	case TaskRunning:
		return "running"
	case TaskSuspendedBreakpoint:
		return "suspendedBreakpoint"
	case TaskSuspendedAsync:
		return "suspendedAsync"
	case TaskReturned:
		return "returned"
	case TaskErrored:
		return "errored"
	}
	return "unknown"
}

// Task is one event dispatch. It runs on its own goroutine but only while
// the host call that started or resumed it is blocked waiting, so at most
// one task executes at any time.
type Task struct {
	ID    int
	Event string
	State TaskState

	// AsyncID identifies the request a TaskSuspendedAsync task waits on.
	AsyncID uuid.UUID

	vm     *VM
	scopes []*Scope
	tell   []datum.Datum
	err    error

	resumeCh chan resumeCmd
	yieldCh  chan struct{}

	// step is set by the step commands; base is the depth and scope the
	// step started from.
	step     StepPredicate
	stepBase StepOrigin
	// noBreak disables breakpoints and stepping, used for evaluation.
	noBreak bool
}

type resumeCmd struct {
	cancel bool
}

// Scopes returns the task's call stack, outermost first.
func (t *Task) Scopes() []*Scope { return t.scopes }

// Depth returns the number of active scopes.
func (t *Task) Depth() int { return len(t.scopes) }

// Top returns the innermost scope.
func (t *Task) Top() *Scope {
	if len(t.scopes) == 0 {
		return nil
	}
	return t.scopes[len(t.scopes)-1]
}

// Err returns the error the task ended with.
func (t *Task) Err() error { return t.err }

func (t *Task) live() bool {
	return t.State == TaskRunning || t.State == TaskSuspendedBreakpoint || t.State == TaskSuspendedAsync
}

// start runs fn on a new goroutine and blocks until the task finishes or
// suspends. The caller holds vm.mu.
func (vm *VM) start(t *Task, fn func(t *Task) error) {
	t.vm = vm
	t.resumeCh = make(chan resumeCmd)
	t.yieldCh = make(chan struct{})
	t.State = TaskRunning
	vm.tasks = append(vm.tasks, t)
	go func() {
		err := fn(t)
		if errors.Is(err, errAbort) {
			err = nil
		}
		if err != nil {
			t.err = err
			t.State = TaskErrored
		} else {
			t.State = TaskReturned
		}
		t.scopes = nil
		t.yieldCh <- struct{}{}
	}()
	<-t.yieldCh
	vm.afterYield(t)
}

// resume hands control back to a suspended task and waits for it to yield
// again. The caller holds vm.mu.
func (vm *VM) resume(t *Task, cmd resumeCmd) {
	t.resumeCh <- cmd
	<-t.yieldCh
	vm.afterYield(t)
}

func (vm *VM) afterYield(t *Task) {
	if t.live() {
		return
	}
	for i, x := range vm.tasks {
		if x == t {
			vm.tasks = append(vm.tasks[:i], vm.tasks[i+1:]...)
			break
		}
	}
}

// suspend is called on the task goroutine. It parks the task in state and
// waits for the host to resume or cancel it.
func (t *Task) suspend(state TaskState) error {
	t.State = state
	t.yieldCh <- struct{}{}
	cmd := <-t.resumeCh
	if cmd.cancel {
		t.State = TaskRunning
		e := NewRuntimeError(ErrorCancelled, "movie unloaded")
		e.Cause = ErrCancelled
		return e
	}
	t.State = TaskRunning
	return nil
}

func (t *Task) pushScope(s *Scope) error {
	if len(t.scopes) >= MaxStackDepth {
		return NewStackOverflowError(len(t.scopes) + 1)
	}
	t.vm.scopeSeq++
	s.ID = t.vm.scopeSeq
	t.scopes = append(t.scopes, s)
	return nil
}

func (t *Task) popScope() {
	if len(t.scopes) > 0 {
		t.scopes = t.scopes[:len(t.scopes)-1]
	}
}

func (t *Task) roots() []datum.Datum {
	var out []datum.Datum
	for _, s := range t.scopes {
		out = append(out, s.roots()...)
	}
	return append(out, t.tell...)
}

func isCancelled(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Type == ErrorCancelled
	}
	return errors.Is(err, ErrCancelled)
}
