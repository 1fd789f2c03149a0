package vm

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/dirplayer/pkg/cast"
	"github.com/zurustar/dirplayer/pkg/opcode"
)

func TestProperty_EventQueueChronologicalOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("events are dequeued in chronological order", prop.ForAll(
		func(offsets []int) bool {
			queue := NewEventQueue()
			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			for i, off := range offsets {
				queue.Push(&Event{Name: strconv.Itoa(i), Timestamp: base.Add(time.Duration(off) * time.Millisecond)})
			}
			var prev time.Time
			for i := range offsets {
				ev, ok := queue.Pop()
				if !ok {
					return false
				}
				if i > 0 && ev.Timestamp.Before(prev) {
					return false
				}
				prev = ev.Timestamp
			}
			_, ok := queue.Pop()
			return !ok
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.Property("equal timestamps keep arrival order", prop.ForAll(
		func(n int) bool {
			queue := NewEventQueue()
			ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			for i := 0; i < n; i++ {
				queue.Push(&Event{Name: strconv.Itoa(i), Timestamp: ts})
			}
			for i := 0; i < n; i++ {
				ev, ok := queue.Pop()
				if !ok || ev.Name != strconv.Itoa(i) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 50),
	))

	properties.Property("a full queue drops the oldest events", prop.ForAll(
		func(size, extra int) bool {
			queue := NewEventQueueWithSize(size)
			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			for i := 0; i < size+extra; i++ {
				queue.Push(&Event{Name: strconv.Itoa(i), Timestamp: base.Add(time.Duration(i))})
			}
			if queue.Len() != size {
				return false
			}
			ev, _ := queue.Pop()
			return ev.Name == strconv.Itoa(extra)
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}

// arithMovie computes a <op> b into gResult on startMovie and sets gAfter
// on mouseUp.
func arithMovie(a, b int64, cmd opcode.Cmd) *testMovie {
	m := newTestMovie()
	m.script(1, "main", cast.ScriptMovie, nil,
		m.Handler("startMovie", nil, nil, pushInt(a), pushInt(b), op0(cmd), m.setGlobal("gResult"), op0(opcode.Ret)),
		m.Handler("mouseUp", nil, nil, pushInt(1), m.setGlobal("gAfter"), op0(opcode.Ret)),
	)
	return m
}

func TestProperty_IntegerArithmetic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	ops := []struct {
		cmd opcode.Cmd
		fn  func(a, b int64) int64
	}{
		{opcode.Add, func(a, b int64) int64 { return a + b }},
		{opcode.Sub, func(a, b int64) int64 { return a - b }},
		{opcode.Mul, func(a, b int64) int64 { return a * b }},
	}

	properties.Property("integer operators match Go arithmetic", prop.ForAll(
		func(a, b int64, which int) bool {
			o := ops[which]
			v := arithMovie(a, b, o.cmd).load(t)
			if err := v.Dispatch(Event{Name: EventStartMovie}); err != nil {
				return false
			}
			return globalText(t, v, "gResult") == strconv.FormatInt(o.fn(a, b), 10)
		},
		gen.Int64Range(-100, 100),
		gen.Int64Range(-100, 100),
		gen.IntRange(0, len(ops)-1),
	))

	properties.Property("division by zero aborts only the current event", prop.ForAll(
		func(a int64) bool {
			v := arithMovie(a, 0, opcode.Div).load(t)
			err := v.Dispatch(Event{Name: EventStartMovie})
			var re *RuntimeError
			if !errors.As(err, &re) || re.Type != ErrorDivisionByZero || re.Handler != "startMovie" || re.Index != 2 {
				return false
			}
			if err := v.Dispatch(Event{Name: EventMouseUp}); err != nil {
				return false
			}
			return globalText(t, v, "gAfter") == "1" && len(v.Tasks()) == 0
		},
		gen.Int64Range(-100, 100),
	))

	properties.TestingRun(t)
}
