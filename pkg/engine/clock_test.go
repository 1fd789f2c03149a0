package engine

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNewFrameClock_RejectsRate(t *testing.T) {
	for _, fps := range []int{0, -1, MaxFPS + 1} {
		if _, err := NewFrameClock(fps); err == nil {
			t.Errorf("NewFrameClock(%d) error = nil", fps)
		}
	}
}

func TestFrameClock_TickAt(t *testing.T) {
	tests := []struct {
		name    string
		fps     int
		changes []TempoChange
		elapsed time.Duration
		want    int
	}{
		{name: "start", fps: 10, elapsed: 0, want: 0},
		{name: "just before first", fps: 10, elapsed: 99 * time.Millisecond, want: 0},
		{name: "one second", fps: 10, elapsed: time.Second, want: 10},
		{name: "60fps", fps: 60, elapsed: 500 * time.Millisecond, want: 30},
		{
			name:    "faster after tick 10",
			fps:     10,
			changes: []TempoChange{{Tick: 10, FPS: 20}},
			elapsed: 1500 * time.Millisecond,
			want:    20,
		},
		{
			name:    "slower after tick 5",
			fps:     10,
			changes: []TempoChange{{Tick: 5, FPS: 2}},
			elapsed: 1500 * time.Millisecond,
			want:    7,
		},
		{
			name:    "before the change",
			fps:     10,
			changes: []TempoChange{{Tick: 10, FPS: 50}},
			elapsed: 500 * time.Millisecond,
			want:    5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := NewFrameClock(tt.fps)
			if err != nil {
				t.Fatal(err)
			}
			for _, c := range tt.changes {
				if err := fc.SetTempo(c.Tick, c.FPS); err != nil {
					t.Fatal(err)
				}
			}
			if got := fc.TickAt(tt.elapsed); got != tt.want {
				t.Errorf("TickAt(%v) = %d, want %d", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestFrameClock_SetTempoReplacesLaterEntries(t *testing.T) {
	fc, _ := NewFrameClock(10)
	_ = fc.SetTempo(20, 30)
	_ = fc.SetTempo(10, 5)
	if len(fc.tempoMap) != 2 || fc.FPS() != 5 {
		t.Errorf("tempoMap = %v", fc.tempoMap)
	}
	_ = fc.SetTempo(0, 25)
	if len(fc.tempoMap) != 1 || fc.tempoMap[0] != (TempoChange{Tick: 0, FPS: 25}) {
		t.Errorf("tempoMap = %v", fc.tempoMap)
	}
	if err := fc.SetTempo(3, 0); err == nil {
		t.Error("SetTempo(3, 0) error = nil")
	}
}

func TestFrameClock_AdvanceAndReset(t *testing.T) {
	fc, _ := NewFrameClock(10)
	if n := fc.Advance(250 * time.Millisecond); n != 2 {
		t.Errorf("Advance = %d, want 2", n)
	}
	if n := fc.Advance(250 * time.Millisecond); n != 0 {
		t.Errorf("repeat Advance = %d, want 0", n)
	}
	if n := fc.Advance(time.Second); n != 8 || fc.CurrentTick() != 10 {
		t.Errorf("Advance = %d, CurrentTick = %d", n, fc.CurrentTick())
	}
	_ = fc.SetTempo(10, 20)
	fc.Reset()
	if fc.CurrentTick() != 0 || fc.FPS() != 20 || len(fc.tempoMap) != 1 {
		t.Errorf("after Reset: tick %d, fps %d, map %v", fc.CurrentTick(), fc.FPS(), fc.tempoMap)
	}
}

// StartOf is the inverse of TickAt at tick boundaries, across tempo changes.
func TestProperty_StartOfInvertsTickAt(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("TickAt(StartOf(n)) == n", prop.ForAll(
		func(fps1, fps2, change, tick int) bool {
			fc, _ := NewFrameClock(fps1)
			_ = fc.SetTempo(change, fps2)
			return fc.TickAt(fc.StartOf(tick)) == tick
		},
		gen.IntRange(1, 120),
		gen.IntRange(1, 120),
		gen.IntRange(1, 500),
		gen.IntRange(0, 2000),
	))

	properties.Property("ticks never go backwards", prop.ForAll(
		func(fps int, a, b int64) bool {
			fc, _ := NewFrameClock(fps)
			if a > b {
				a, b = b, a
			}
			return fc.TickAt(time.Duration(a)*time.Millisecond) <= fc.TickAt(time.Duration(b)*time.Millisecond)
		},
		gen.IntRange(1, MaxFPS),
		gen.Int64Range(0, 100000),
		gen.Int64Range(0, 100000),
	))

	properties.TestingRun(t)
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestScheduler_PollAndTake(t *testing.T) {
	clock := &stepClock{now: time.Unix(0, 0)}
	s, err := NewScheduler(10, clock.Now, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	s.start = clock.Now()

	s.poll()
	select {
	case <-s.Ready():
		t.Fatal("Ready before the first tick")
	default:
	}

	clock.Advance(300 * time.Millisecond)
	s.poll()
	select {
	case <-s.Ready():
	default:
		t.Fatal("Ready not signalled")
	}
	if n := s.Take(); n != 3 {
		t.Errorf("Take() = %d, want 3", n)
	}
	if n := s.Take(); n != 0 {
		t.Errorf("second Take() = %d, want 0", n)
	}

	clock.Advance(2 * time.Second)
	s.poll()
	if n := s.Take(); n != MaxCatchUp {
		t.Errorf("Take() after stall = %d, want %d", n, MaxCatchUp)
	}
}

func TestScheduler_SetTempo(t *testing.T) {
	clock := &stepClock{now: time.Unix(0, 0)}
	s, _ := NewScheduler(10, clock.Now, nil)
	s.start = clock.Now()

	clock.Advance(time.Second)
	s.poll()
	s.Take()
	if err := s.SetTempo(20); err != nil {
		t.Fatal(err)
	}
	clock.Advance(100 * time.Millisecond)
	s.poll()
	if n := s.Take(); n != 2 {
		t.Errorf("Take() at 20fps = %d, want 2", n)
	}
	if s.FPS() != 20 {
		t.Errorf("FPS() = %d", s.FPS())
	}
	if err := s.SetTempo(0); err == nil {
		t.Error("SetTempo(0) error = nil")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s, _ := NewScheduler(MaxFPS, nil, slog.New(slog.DiscardHandler))
	s.Start()
	s.Start()
	if !s.IsRunning() {
		t.Fatal("IsRunning() = false")
	}
	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("no tick within 2s")
	}
	s.Stop()
	s.Stop()
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}
