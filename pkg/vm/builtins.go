package vm

import (
	"errors"
	"strings"

	"github.com/zurustar/dirplayer/pkg/datum"
)

// BuiltinFunc implements a primitive handler. It runs on the task
// goroutine with the calling scope on top of t's stack. Returning
// errNotApplicable hands the call on to script handlers.
type BuiltinFunc func(t *Task, args []datum.Datum) (datum.Datum, error)

// errAbort unwinds the whole task without reporting an error (abort, halt).
var errAbort = errors.New("abort")

// RegisterBuiltinFunction registers a primitive handler. Names are matched
// ignoring case and replace any earlier registration.
func (vm *VM) RegisterBuiltinFunction(name string, fn BuiltinFunc) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.builtins[strings.ToLower(name)] = fn
}

// IsBuiltin reports whether name is a primitive handler.
func (vm *VM) IsBuiltin(name string) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	_, ok := vm.builtins[strings.ToLower(name)]
	return ok
}

func (vm *VM) registerBuiltins() {
	vm.registerControlBuiltins()
	vm.registerListBuiltins()
	vm.registerStringBuiltins()
	vm.registerMathBuiltins()
	vm.registerObjectBuiltins()
	vm.registerNetBuiltins()
}

func needArgs(name string, args []datum.Datum, n int) error {
	if len(args) < n {
		return NewTypeError("%s requires %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

func arg(args []datum.Datum, i int) datum.Datum {
	if i < len(args) {
		return args[i]
	}
	return datum.Void
}

func argInt(args []datum.Datum, i int) (int64, error) {
	if i >= len(args) {
		return 0, NewTypeError("missing argument %d", i+1)
	}
	return datum.ToInt(args[i])
}

func (vm *VM) argString(args []datum.Datum, i int) string {
	return vm.arena.String(arg(args, i))
}

func (vm *VM) registerControlBuiltins() {
	// return sets the value ret hands back to the caller.
	vm.RegisterBuiltinFunction("return", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if top := t.Top(); top != nil {
			top.Result = arg(args, 0)
		}
		return datum.Void, nil
	})

	vm.RegisterBuiltinFunction("pass", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if top := t.Top(); top != nil {
			top.Passed = true
			top.exit = true
		}
		return datum.Void, nil
	})

	stopEvent := func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if top := t.Top(); top != nil {
			top.Passed = false
		}
		return datum.Void, nil
	}
	vm.RegisterBuiltinFunction("dontPassEvent", stopEvent)
	vm.RegisterBuiltinFunction("stopEvent", stopEvent)

	vm.RegisterBuiltinFunction("nothing", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return datum.Void, nil
	})

	// put writes its arguments to the message window.
	vm.RegisterBuiltinFunction("put", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = t.vm.arena.Format(a)
		}
		t.vm.print("-- " + strings.Join(parts, " "))
		return datum.Void, nil
	})

	vm.RegisterBuiltinFunction("alert", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		msg := t.vm.argString(args, 0)
		t.vm.log.Warn("alert", "message", msg)
		t.vm.print("alert: " + msg)
		return datum.Void, nil
	})

	vm.RegisterBuiltinFunction("go", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return datum.Void, t.vm.goTo(arg(args, 0), len(args) > 1)
	})
	vm.RegisterBuiltinFunction("play", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return datum.Void, t.vm.goTo(arg(args, 0), len(args) > 1)
	})
	vm.RegisterBuiltinFunction("goLoop", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return datum.Void, t.vm.goTo(datum.Symbol("loop"), false)
	})
	vm.RegisterBuiltinFunction("goNext", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return datum.Void, t.vm.goTo(datum.Symbol("next"), false)
	})
	vm.RegisterBuiltinFunction("goPrevious", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return datum.Void, t.vm.goTo(datum.Symbol("previous"), false)
	})

	halt := func(t *Task, args []datum.Datum) (datum.Datum, error) {
		t.vm.stage.Halted = true
		t.vm.log.Info("movie halted by script")
		return datum.Void, errAbort
	}
	vm.RegisterBuiltinFunction("halt", halt)
	vm.RegisterBuiltinFunction("quit", halt)
	vm.RegisterBuiltinFunction("abort", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return datum.Void, errAbort
	})

	vm.RegisterBuiltinFunction("updateStage", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		t.vm.stage.UpdateCount++
		return datum.Void, nil
	})

	vm.RegisterBuiltinFunction("puppetTempo", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		n, err := argInt(args, 0)
		if err != nil {
			return datum.Void, err
		}
		if n > 0 {
			t.vm.stage.Tempo = int(n)
		}
		return datum.Void, nil
	})

	vm.RegisterBuiltinFunction("puppetSprite", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if err := needArgs("puppetSprite", args, 2); err != nil {
			return datum.Void, err
		}
		n, err := spriteNumber(args[0])
		if err != nil {
			return datum.Void, err
		}
		sp, ok := t.vm.stage.Sprite(n)
		if !ok {
			return datum.Void, NewIndexOutOfRangeError(n, len(t.vm.stage.Sprites))
		}
		sp.Puppet = datum.Truthy(args[1])
		return datum.Void, nil
	})

	vm.RegisterBuiltinFunction("startTimer", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		t.vm.timerStart = t.vm.ticks()
		return datum.Void, nil
	})

	noop := func(t *Task, args []datum.Datum) (datum.Datum, error) {
		return datum.Void, nil
	}
	for _, name := range []string{"beep", "cursor", "preLoad", "preLoadMember", "unLoad", "unLoadMember", "puppetSound", "puppetTransition", "puppetPalette", "zoomBox"} {
		vm.RegisterBuiltinFunction(name, noop)
	}

	vm.RegisterBuiltinFunction("marker", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		vm := t.vm
		if vm.movie.Score == nil {
			return datum.Int(0), nil
		}
		a := arg(args, 0)
		if a.Kind == datum.KindString {
			n, _ := vm.movie.Score.LabelFrame(a.S)
			return datum.Int(int64(n)), nil
		}
		n, err := datum.ToInt(a)
		if err != nil {
			return datum.Void, err
		}
		return datum.Int(int64(vm.movie.Score.Marker(vm.stage.Frame, int(n)))), nil
	})

	vm.RegisterBuiltinFunction("label", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		if t.vm.movie.Score == nil {
			return datum.Int(0), nil
		}
		n, _ := t.vm.movie.Score.LabelFrame(t.vm.argString(args, 0))
		return datum.Int(int64(n)), nil
	})

	vm.RegisterBuiltinFunction("param", func(t *Task, args []datum.Datum) (datum.Datum, error) {
		n, err := argInt(args, 0)
		if err != nil {
			return datum.Void, err
		}
		top := t.Top()
		if top == nil || n < 1 || int(n) > len(top.Args) {
			return datum.Void, nil
		}
		return top.Args[n-1], nil
	})
}

// goTo records a frame jump for the scheduler. Frame targets are numbers,
// labels, or the symbols #loop, #next and #previous. Jumps to other movies
// are not supported.
func (vm *VM) goTo(target datum.Datum, otherMovie bool) error {
	if otherMovie {
		return NewTypeError("go to another movie is not supported")
	}
	sc := vm.movie.Score
	frame := 0
	switch target.Kind {
	case datum.KindInt, datum.KindFloat:
		n, err := datum.ToInt(target)
		if err != nil {
			return err
		}
		frame = int(n)
	case datum.KindString:
		if sc == nil {
			return NewTypeError("no score for label %q", target.S)
		}
		n, ok := sc.LabelFrame(target.S)
		if !ok {
			return NewTypeError("label not found: %s", target.S)
		}
		frame = n
	case datum.KindSymbol:
		cur := vm.stage.Frame
		labelled := sc != nil && len(sc.Labels) > 0
		switch strings.ToLower(target.S) {
		case "loop":
			frame = cur
			if labelled {
				frame = sc.Marker(cur, 0)
			}
		case "next":
			frame = cur + 1
			if labelled {
				frame = sc.Marker(cur, 1)
			}
		case "previous":
			frame = cur - 1
			if labelled {
				frame = sc.Marker(cur, -1)
			}
		default:
			return NewTypeError("unknown frame target #%s", target.S)
		}
	default:
		return NewTypeError("cannot go to %s", target.Ilk())
	}
	if frame < 1 {
		frame = 1
	}
	vm.stage.NextFrame = frame
	return nil
}
