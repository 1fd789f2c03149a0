package vm

// StepOrigin records where a step command started.
type StepOrigin struct {
	Depth   int
	ScopeID int
}

// StepPredicate decides, before each instruction, whether a stepping task
// should stop. depth is the current call depth and s the current scope.
type StepPredicate func(origin StepOrigin, depth int, s *Scope) bool

var (
	// StepIntoPredicate stops at the very next instruction, in whatever
	// scope it runs.
	StepIntoPredicate StepPredicate = func(StepOrigin, int, *Scope) bool { return true }

	// StepOverPredicate stops at the next instruction that is not inside a
	// call made from the origin scope.
	StepOverPredicate StepPredicate = func(o StepOrigin, depth int, _ *Scope) bool { return depth <= o.Depth }

	// StepOutPredicate stops once the origin scope has returned.
	StepOutPredicate StepPredicate = func(o StepOrigin, depth int, _ *Scope) bool { return depth < o.Depth }
)

// checkpoint runs before every instruction on the task goroutine. It
// suspends the task when a breakpoint or an active step predicate matches.
func (t *Task) checkpoint(s *Scope) error {
	if t.noBreak {
		return nil
	}
	stop := false
	if t.step != nil && t.step(t.stepBase, len(t.scopes), s) {
		stop = true
	}
	if !stop && t.vm.breakpoints.hit(s) {
		stop = true
		t.vm.log.Debug("breakpoint hit", "script", s.ScriptName, "handler", s.HandlerName, "index", s.Index)
	}
	if !stop {
		return nil
	}
	t.step = nil
	return t.suspend(TaskSuspendedBreakpoint)
}

// SuspendedTask returns the most recently suspended breakpoint task.
func (vm *VM) SuspendedTask() (*Task, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	t := vm.suspendedTask()
	return t, t != nil
}

func (vm *VM) suspendedTask() *Task {
	for i := len(vm.tasks) - 1; i >= 0; i-- {
		if vm.tasks[i].State == TaskSuspendedBreakpoint {
			return vm.tasks[i]
		}
	}
	return nil
}

// Resume continues the task stopped at a breakpoint until it finishes or
// stops again.
func (vm *VM) Resume() error { return vm.continueWith(nil) }

// StepInto runs the suspended task to the next instruction.
func (vm *VM) StepInto() error { return vm.continueWith(StepIntoPredicate) }

// StepOver runs the suspended task to the next instruction of the current
// handler or its caller.
func (vm *VM) StepOver() error { return vm.continueWith(StepOverPredicate) }

// StepOut runs the suspended task until the current handler returns.
func (vm *VM) StepOut() error { return vm.continueWith(StepOutPredicate) }

// StepUntil resumes the suspended task with a custom predicate.
func (vm *VM) StepUntil(p StepPredicate) error { return vm.continueWith(p) }

func (vm *VM) continueWith(p StepPredicate) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	t := vm.suspendedTask()
	if t == nil {
		return ErrNotSuspended
	}
	t.step = p
	t.stepBase = StepOrigin{Depth: len(t.scopes)}
	if top := t.Top(); top != nil {
		t.stepBase.ScopeID = top.ID
	}
	vm.resume(t, resumeCmd{})
	err := vm.finishTask(t)
	vm.drainQueued()
	return err
}
