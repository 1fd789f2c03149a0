package vm

import (
	"github.com/zurustar/dirplayer/pkg/datum"
	"github.com/zurustar/dirplayer/pkg/eval"
)

// evalEnv resolves expression names on a task. scope, when set, supplies
// locals, arguments and the receiver's properties.
type evalEnv struct {
	t     *Task
	scope *Scope
}

func (e evalEnv) Arena() *datum.Arena { return e.t.vm.arena }

func (e evalEnv) Variable(name string) (datum.Datum, bool) {
	vm := e.t.vm
	if s := e.scope; s != nil {
		if v, ok := s.Local(name); ok {
			return v, true
		}
		if v, ok := s.Arg(name); ok {
			return v, true
		}
		if s.Receiver.Kind == datum.KindInstance {
			if v, ok, err := vm.arena.InstanceProp(s.Receiver, name); err == nil && ok {
				return v, true
			}
		}
	}
	return vm.global(name)
}

func (e evalEnv) TheProp(name string) (datum.Datum, error) {
	return e.t.theProp(e.scope, name)
}

func (e evalEnv) Prop(obj datum.Datum, name string) (datum.Datum, error) {
	return e.t.chainedProp(e.scope, obj, name)
}

func (e evalEnv) Call(name string, args []datum.Datum) (datum.Datum, error) {
	return e.t.call(name, args)
}

// Eval evaluates a Lingo expression. While a task is stopped at a
// breakpoint, names resolve against its innermost scope first. Breakpoints
// do not fire during evaluation.
func (vm *VM) Eval(text string) (Value, error) {
	expr, err := eval.Parse(text)
	if err != nil {
		return Value{}, err
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	var scope *Scope
	if st := vm.suspendedTask(); st != nil {
		scope = st.Top()
	}
	var out Value
	vm.taskSeq++
	t := &Task{ID: vm.taskSeq, Event: "eval", noBreak: true}
	vm.start(t, func(t *Task) error {
		v, err := eval.Evaluate(expr, evalEnv{t: t, scope: scope})
		if err != nil {
			return err
		}
		out = vm.snapshot(v, snapshotDepth)
		return nil
	})
	if t.State == TaskSuspendedAsync {
		return Value{}, NewInvalidOperationError("expression is waiting on a network request")
	}
	if err := vm.finishTask(t); err != nil {
		return Value{}, err
	}
	return out, nil
}
