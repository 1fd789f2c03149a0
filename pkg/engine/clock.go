package engine

import (
	"fmt"
	"time"
)

// Frame rate limits accepted by the clock.
const (
	MinFPS = 1
	MaxFPS = 999
)

// FrameClock calculates frame ticks from elapsed wall-clock time.
//
// Wall-clock time is the only timing source: the tick for a given elapsed
// time is recomputed from the tempo map, so slow frames never accumulate
// drift. A tempo change (puppetTempo, the fps setting) takes effect at the
// tick where it was made and only affects later ticks.
//
// FrameClock is not safe for concurrent use; Scheduler guards it.
type FrameClock struct {
	tempoMap []TempoChange

	lastDelivered int
}

// TempoChange sets the frame rate from Tick onwards.
type TempoChange struct {
	Tick int
	FPS  int
}

// NewFrameClock creates a clock running at fps from tick 0.
func NewFrameClock(fps int) (*FrameClock, error) {
	if err := validFPS(fps); err != nil {
		return nil, err
	}
	return &FrameClock{tempoMap: []TempoChange{{Tick: 0, FPS: fps}}}, nil
}

func validFPS(fps int) error {
	if fps < MinFPS || fps > MaxFPS {
		return fmt.Errorf("invalid frame rate: %d (must be between %d and %d)", fps, MinFPS, MaxFPS)
	}
	return nil
}

// SetTempo changes the frame rate from tick on. Later entries of the tempo
// map are discarded.
func (fc *FrameClock) SetTempo(tick, fps int) error {
	if err := validFPS(fps); err != nil {
		return err
	}
	i := len(fc.tempoMap)
	for i > 0 && fc.tempoMap[i-1].Tick >= tick {
		i--
	}
	if i == 0 {
		tick = 0
	}
	fc.tempoMap = append(fc.tempoMap[:i], TempoChange{Tick: tick, FPS: fps})
	return nil
}

// FPS returns the current frame rate.
func (fc *FrameClock) FPS() int {
	return fc.tempoMap[len(fc.tempoMap)-1].FPS
}

// TickAt returns the tick reached after elapsed time, walking the tempo
// map segment by segment.
func (fc *FrameClock) TickAt(elapsed time.Duration) int {
	if elapsed <= 0 {
		return 0
	}
	var segStart time.Duration
	for i, tc := range fc.tempoMap {
		if i+1 == len(fc.tempoMap) {
			return tc.Tick + ticksIn(elapsed-segStart, tc.FPS)
		}
		next := fc.tempoMap[i+1].Tick
		segLen := durationOf(next-tc.Tick, tc.FPS)
		if segStart+segLen > elapsed {
			return tc.Tick + ticksIn(elapsed-segStart, tc.FPS)
		}
		segStart += segLen
	}
	return 0
}

// StartOf returns the elapsed time at which tick begins.
func (fc *FrameClock) StartOf(tick int) time.Duration {
	var at time.Duration
	for i, tc := range fc.tempoMap {
		end := tick
		if i+1 < len(fc.tempoMap) && fc.tempoMap[i+1].Tick < tick {
			end = fc.tempoMap[i+1].Tick
		}
		if end <= tc.Tick {
			break
		}
		at += durationOf(end-tc.Tick, tc.FPS)
	}
	return at
}

// Advance returns how many ticks became due since the last call, and
// records them as delivered.
func (fc *FrameClock) Advance(elapsed time.Duration) int {
	tick := fc.TickAt(elapsed)
	if tick <= fc.lastDelivered {
		return 0
	}
	n := tick - fc.lastDelivered
	fc.lastDelivered = tick
	return n
}

// CurrentTick returns the last delivered tick.
func (fc *FrameClock) CurrentTick() int {
	return fc.lastDelivered
}

// Reset returns to tick 0 keeping the current frame rate.
func (fc *FrameClock) Reset() {
	fc.tempoMap = []TempoChange{{Tick: 0, FPS: fc.FPS()}}
	fc.lastDelivered = 0
}

func ticksIn(d time.Duration, fps int) int {
	return int(d * time.Duration(fps) / time.Second)
}

// durationOf rounds up so that a tick never starts before its exact time.
func durationOf(ticks, fps int) time.Duration {
	f := time.Duration(fps)
	return (time.Duration(ticks)*time.Second + f - 1) / f
}
