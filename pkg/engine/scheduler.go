package engine

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultPollInterval is how often the scheduler goroutine checks the
	// clock.
	DefaultPollInterval = 2 * time.Millisecond

	// MaxCatchUp bounds the frames delivered at once after a stall.
	MaxCatchUp = 4
)

// Scheduler produces frame ticks from its own goroutine. Ticks are counted
// rather than queued: the execution context receives a signal on Ready and
// collects the pending count with Take, so the goroutine never blocks on
// a slow frame.
type Scheduler struct {
	mu       sync.Mutex
	clock    *FrameClock
	now      func() time.Time
	start    time.Time
	interval time.Duration
	pending  int
	log      *slog.Logger

	ready   chan struct{}
	ticker  *time.Ticker
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewScheduler creates a stopped scheduler at fps. A nil now uses
// time.Now.
func NewScheduler(fps int, now func() time.Time, log *slog.Logger) (*Scheduler, error) {
	clock, err := NewFrameClock(fps)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		clock:    clock,
		now:      now,
		interval: DefaultPollInterval,
		log:      log,
		ready:    make(chan struct{}, 1),
	}, nil
}

// Start launches the goroutine and restarts the clock at tick 0.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.start = s.now()
	s.clock.Reset()
	s.pending = 0
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.ticker = time.NewTicker(s.interval)
	go s.run()
	s.log.Debug("scheduler started", "fps", s.clock.FPS())
}

func (s *Scheduler) run() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.ticker.C:
			s.poll()
		}
	}
}

// poll adds the ticks that became due and signals Ready.
func (s *Scheduler) poll() {
	s.mu.Lock()
	n := s.clock.Advance(s.now().Sub(s.start))
	s.pending += n
	pending := s.pending
	s.mu.Unlock()
	if pending == 0 {
		return
	}
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Stop ends the goroutine and waits for it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh

	s.mu.Lock()
	s.ticker.Stop()
	s.ticker = nil
	s.stopCh = nil
	s.doneCh = nil
	s.mu.Unlock()
}

// IsRunning reports whether the goroutine is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Ready receives a value whenever ticks are pending.
func (s *Scheduler) Ready() <-chan struct{} { return s.ready }

// Take returns the pending ticks, at most MaxCatchUp. Ticks beyond that
// are dropped.
func (s *Scheduler) Take() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.pending
	s.pending = 0
	if n > MaxCatchUp {
		s.log.Debug("frames dropped", "count", n-MaxCatchUp, "tick", s.clock.CurrentTick())
		n = MaxCatchUp
	}
	return n
}

// FPS returns the current frame rate.
func (s *Scheduler) FPS() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.FPS()
}

// SetTempo changes the frame rate from the current tick on.
func (s *Scheduler) SetTempo(fps int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fps == s.clock.FPS() {
		return nil
	}
	if err := s.clock.SetTempo(s.clock.CurrentTick(), fps); err != nil {
		return err
	}
	s.log.Debug("tempo changed", "fps", fps, "tick", s.clock.CurrentTick())
	return nil
}
