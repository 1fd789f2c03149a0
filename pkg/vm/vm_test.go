package vm

import (
	"errors"
	"strings"
	"testing"

	"github.com/zurustar/dirplayer/pkg/cast"
	"github.com/zurustar/dirplayer/pkg/datum"
	"github.com/zurustar/dirplayer/pkg/opcode"
)

func lit(i int) opcode.OpCode { return op(opcode.PushCons, local(i)) }

func TestDispatch_Arithmetic(t *testing.T) {
	m := newTestMovie()
	m.script(1, "main", cast.ScriptMovie, nil,
		m.Handler("startMovie", nil, nil,
			pushInt(40), pushInt(2), op0(opcode.Add),
			m.setGlobal("gResult"),
			op0(opcode.Ret),
		),
	)
	v := m.load(t)
	if err := v.Dispatch(Event{Name: EventStartMovie}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got := globalText(t, v, "gresult"); got != "42" {
		t.Errorf("gResult = %s, want 42", got)
	}
}

// sumLoop sums 1..10 in a repeat loop.
func sumLoop(m *testMovie) []opcode.OpCode {
	init := []opcode.OpCode{op0(opcode.PushZero), op(opcode.SetLocal, local(0)), pushInt(1), op(opcode.SetLocal, local(1))}
	cond := []opcode.OpCode{op(opcode.GetLocal, local(1)), pushInt(10), op0(opcode.LtEq)}
	body := []opcode.OpCode{
		op(opcode.GetLocal, local(0)), op(opcode.GetLocal, local(1)), op0(opcode.Add), op(opcode.SetLocal, local(0)),
		op(opcode.GetLocal, local(1)), pushInt(1), op0(opcode.Add), op(opcode.SetLocal, local(1)),
	}
	jmpAt := size(init...) + size(cond...)
	jmpLen := size(op(opcode.JmpIfZ, 0))
	endAt := jmpAt + jmpLen + size(body...)
	endLen := size(op(opcode.EndRepeat, 0))
	tail := []opcode.OpCode{op(opcode.GetLocal, local(0)), m.setGlobal("gSum"), op0(opcode.Ret)}
	return concat(init, cond,
		[]opcode.OpCode{op(opcode.JmpIfZ, int64(endAt+endLen-jmpAt))},
		body,
		[]opcode.OpCode{op(opcode.EndRepeat, int64(endAt-size(init...)))},
		tail,
	)
}

func TestDispatch_LoopWithLocals(t *testing.T) {
	m := newTestMovie()
	m.script(1, "main", cast.ScriptMovie, nil,
		m.Handler("startMovie", nil, []string{"sum", "i"}, sumLoop(m)...),
	)
	v := m.load(t)
	if err := v.Dispatch(Event{Name: EventStartMovie}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got := globalText(t, v, "gSum"); got != "55" {
		t.Errorf("gSum = %s, want 55", got)
	}
}

func TestCall_ReturnValue(t *testing.T) {
	m := newTestMovie()
	m.script(1, "main", cast.ScriptMovie, nil,
		m.Handler("double", []string{"x"}, nil, concat(
			m.callExt("return", true, 1, op(opcode.GetParam, local(0)), pushInt(2), op0(opcode.Mul)),
			[]opcode.OpCode{op0(opcode.Ret)},
		)...),
		m.Handler("startMovie", nil, nil, concat(
			m.callExt("double", false, 1, pushInt(21)),
			[]opcode.OpCode{m.setGlobal("gResult"), op0(opcode.Ret)},
		)...),
	)
	v := m.load(t)
	if err := v.Dispatch(Event{Name: EventStartMovie}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got := globalText(t, v, "gResult"); got != "42" {
		t.Errorf("gResult = %s, want 42", got)
	}
	got, err := v.Call("double", datum.Int(5))
	if err != nil || got.Kind != datum.KindInt || got.I != 10 {
		t.Errorf("Call(double, 5) = %v, %v", got, err)
	}
}

func TestDispatch_HandlerNotFoundIsRecoverable(t *testing.T) {
	m := newTestMovie()
	m.script(1, "main", cast.ScriptMovie, nil,
		m.Handler("mouseUp", nil, nil, concat(
			m.callExt("noSuchHandler", true, 0),
			[]opcode.OpCode{pushInt(1), m.setGlobal("gAfter"), op0(opcode.Ret)},
		)...),
		m.Handler("startMovie", nil, nil, pushInt(7), m.setGlobal("gStarted"), op0(opcode.Ret)),
	)
	v := m.load(t)
	errs := record(v, NotifyScriptError)

	err := v.Dispatch(Event{Name: EventMouseUp})
	if !errors.Is(err, ErrHandlerNotFound) {
		t.Fatalf("Dispatch() error = %v, want ErrHandlerNotFound", err)
	}
	var re *RuntimeError
	if !errors.As(err, &re) || re.Script != "main" || re.Handler != "mouseUp" || re.Index != 1 {
		t.Errorf("error position = %+v", re)
	}
	if got := globalText(t, v, "gAfter"); got != "<Void>" {
		t.Errorf("handler continued after the error: gAfter = %s", got)
	}
	if n := errs.all(); len(n) != 1 || n[0].Payload.(ScriptErrorInfo).Type != ErrorHandlerNotFound {
		t.Errorf("script-error notifications = %+v", n)
	}

	if err := v.Dispatch(Event{Name: EventStartMovie}); err != nil {
		t.Fatalf("next Dispatch() error = %v", err)
	}
	if got := globalText(t, v, "gStarted"); got != "7" {
		t.Errorf("gStarted = %s, want 7", got)
	}
	if len(v.Tasks()) != 0 {
		t.Errorf("tasks left after error: %+v", v.Tasks())
	}
}

func TestDispatch_UnhandledEventIsIgnored(t *testing.T) {
	m := newTestMovie()
	m.script(1, "main", cast.ScriptMovie, nil, m.Handler("startMovie", nil, nil, op0(opcode.Ret)))
	v := m.load(t)
	if err := v.Dispatch(Event{Name: EventKeyDown}); err != nil {
		t.Errorf("Dispatch() error = %v", err)
	}
}

func TestDispatch_Order(t *testing.T) {
	// Each handler appends its tag to gOrder; the sprite behavior passes.
	appendTag := func(m *testMovie, pass bool) []opcode.OpCode {
		code := []opcode.OpCode{m.getGlobal("gOrder"), lit(0), op0(opcode.JoinStr), m.setGlobal("gOrder")}
		if pass {
			code = append(code, m.callExt("pass", true, 0)...)
		}
		return append(code, op0(opcode.Ret))
	}
	build := func() *testMovie {
		m := newTestMovie()
		m.script(1, "main", cast.ScriptMovie, []string{"m"},
			m.Handler("mouseUp", nil, nil, appendTag(m, false)...))
		m.script(2, "behavior", cast.ScriptScore, []string{"s"},
			m.Handler("mouseUp", []string{"me"}, nil, appendTag(m, true)...))
		m.script(3, "frame", cast.ScriptScore, []string{"f"},
			m.Handler("mouseUp", []string{"me"}, nil, appendTag(m, false)...))
		return m
	}
	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{"default order stops at the frame script", nil, `"sf"`},
		{"always propagate reaches movie scripts", []Option{WithAlwaysPropagate("mouseUp")}, `"sfm"`},
		{"movie first", []Option{WithDispatchOrder(DispatchOrder{TargetMovie, TargetSprite, TargetFrame})}, `"m"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := build().load(t, tt.opts...)
			v.SetGlobal("gOrder", datum.String(""))
			if err := v.BeginSprite(1, 1, 2); err != nil {
				t.Fatal(err)
			}
			if err := v.BeginSprite(0, 1, 3); err != nil {
				t.Fatal(err)
			}
			if err := v.Dispatch(Event{Name: EventMouseUp, Channel: 1}); err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if got := globalText(t, v, "gOrder"); got != tt.want {
				t.Errorf("gOrder = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHalt(t *testing.T) {
	m := newTestMovie()
	m.script(1, "main", cast.ScriptMovie, nil,
		m.Handler("startMovie", nil, nil, concat(
			m.callExt("halt", true, 0),
			[]opcode.OpCode{pushInt(1), m.setGlobal("gAfter"), op0(opcode.Ret)},
		)...),
	)
	v := m.load(t)
	if err := v.Dispatch(Event{Name: EventStartMovie}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !v.Halted() {
		t.Error("Halted() = false")
	}
	if got := globalText(t, v, "gAfter"); got != "<Void>" {
		t.Errorf("gAfter = %s, want void", got)
	}
}

func TestStackOverflow(t *testing.T) {
	m := newTestMovie()
	m.script(1, "main", cast.ScriptMovie, nil,
		m.Handler("recurse", nil, nil, concat(m.callExt("recurse", true, 0), []opcode.OpCode{op0(opcode.Ret)})...),
	)
	v := m.load(t)
	_, err := v.Call("recurse")
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("Call() error = %v, want ErrStackOverflow", err)
	}
	if ClassifyError(err) != ErrorStackOverflow {
		t.Errorf("ClassifyError() = %s", ClassifyError(err))
	}
}

func TestInstances(t *testing.T) {
	m := newTestMovie()
	// parent script "counter": property count; new(me, start) and bump(me).
	parent := m.script(2, "counter", cast.ScriptParent, nil,
		m.Handler("new", []string{"me", "start"}, nil,
			op(opcode.GetParam, local(1)), op(opcode.SetProp, int64(m.Name("count"))),
			op0(opcode.Ret),
		),
		m.Handler("bump", []string{"me"}, nil, concat(
			[]opcode.OpCode{
				op(opcode.GetProp, int64(m.Name("count"))), pushInt(1), op0(opcode.Add),
				op(opcode.SetProp, int64(m.Name("count"))),
			},
			m.callExt("return", true, 1, op(opcode.GetProp, int64(m.Name("count")))),
			[]opcode.OpCode{op0(opcode.Ret)},
		)...),
	)
	m.props(parent, "count")
	m.script(1, "main", cast.ScriptMovie, []string{"counter"},
		m.Handler("startMovie", nil, []string{"obj"}, concat(
			m.callExt("script", false, 1, lit(0)),
			[]opcode.OpCode{pushInt(10), op(opcode.PushArgList, 2), op(opcode.ExtCall, int64(m.Name("new"))),
				op(opcode.SetLocal, local(0))},
			m.callExt("bump", true, 1, op(opcode.GetLocal, local(0))),
			m.callExt("bump", false, 1, op(opcode.GetLocal, local(0))),
			[]opcode.OpCode{m.setGlobal("gCount"), op0(opcode.Ret)},
		)...),
	)
	v := m.load(t)
	if err := v.Dispatch(Event{Name: EventStartMovie}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got := globalText(t, v, "gCount"); got != "12" {
		t.Errorf("gCount = %s, want 12", got)
	}
}

func TestEval(t *testing.T) {
	m := newTestMovie()
	m.script(1, "main", cast.ScriptMovie, nil,
		m.Handler("double", []string{"x"}, nil, concat(
			m.callExt("return", true, 1, op(opcode.GetParam, local(0)), pushInt(2), op0(opcode.Mul)),
			[]opcode.OpCode{op0(opcode.Ret)},
		)...),
	)
	v := m.load(t)
	v.SetGlobal("gName", datum.String("stage"))
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3", "7"},
		{"double(20) + 2", "42"},
		{`gName & "!"`, `"stage!"`},
		{"count([1, 2, 3])", "3"},
		{"getProp([#a: 5], #a)", "5"},
		{"the frame", "0"},
		{"abs(-3)", "3"},
		{"sqrt(16)", "4"},
		{"bitAnd(6, 3)", "2"},
		{`value("2 + 3")`, "5"},
		{`offset("lo", "Hello")`, "4"},
		{"point(1, 2) + point(3, 4)", "point(4, 6)"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := v.Eval(tt.src)
			if err != nil {
				t.Fatalf("Eval(%q) error = %v", tt.src, err)
			}
			if got.Text != tt.want {
				t.Errorf("Eval(%q) = %s, want %s", tt.src, got.Text, tt.want)
			}
		})
	}

	if _, err := v.Eval("1 +"); err == nil {
		t.Error("Eval accepted a syntax error")
	}
	if _, err := v.Eval("nosuch(1)"); !errors.Is(err, ErrHandlerNotFound) {
		t.Errorf("Eval(nosuch(1)) error = %v", err)
	}
}

func TestUnload_ClearsState(t *testing.T) {
	m := newTestMovie()
	m.script(1, "main", cast.ScriptMovie, nil, m.Handler("startMovie", nil, nil, op0(opcode.Ret)))
	v := m.load(t)
	v.SetGlobal("gKeep", datum.String("x"))
	v.Unload()
	if _, ok := v.Global("gKeep"); ok {
		t.Error("global survived unload")
	}
	if err := v.Dispatch(Event{Name: EventStartMovie}); !errors.Is(err, ErrNoMovie) {
		t.Errorf("Dispatch after unload error = %v", err)
	}
}

func TestPut_WritesConsole(t *testing.T) {
	m := newTestMovie()
	m.script(1, "main", cast.ScriptMovie, []string{"hello"},
		m.Handler("startMovie", nil, nil, concat(
			m.callExt("put", true, 2, lit(0), pushInt(3)),
			[]opcode.OpCode{op0(opcode.Ret)},
		)...),
	)
	v := m.load(t)
	msgs := record(v, NotifyDebugMessage)
	if err := v.Dispatch(Event{Name: EventStartMovie}); err != nil {
		t.Fatal(err)
	}
	cons := v.Console()
	if len(cons) != 1 || !strings.Contains(cons[0], `"hello" 3`) {
		t.Errorf("Console() = %q", cons)
	}
	if len(msgs.all()) != 1 {
		t.Errorf("debug-message notifications = %d", len(msgs.all()))
	}
}
