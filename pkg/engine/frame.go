package engine

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/zurustar/dirplayer/pkg/score"
	"github.com/zurustar/dirplayer/pkg/vm"
)

// span is one script attachment: a score interval for sprite channels, or
// the frame script member for channel 0.
type span struct {
	start, end  int
	lib, member int
}

// Tick delivers queued timer events and advances one frame: exitFrame is
// sent to the current frame, then the next frame is entered. The next
// frame is the one requested by go, else the following frame; playback
// loops to frame 1 after the last frame. Nothing advances while a task is
// stopped at a breakpoint.
func (p *Player) Tick() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	errs := []error{p.vm.DrainTimers()}
	if !p.loaded || !p.playing || p.stopped() {
		return errors.Join(errs...)
	}
	if p.halt() {
		return errors.Join(errs...)
	}

	next, jumped := p.vm.TakeNextFrame()
	if !jumped && !p.exited {
		p.exited = true
		errs = append(errs, p.vm.Dispatch(vm.Event{Name: vm.EventExitFrame}))
		if p.stopped() || p.halt() {
			return errors.Join(errs...)
		}
		next, jumped = p.vm.TakeNextFrame()
	}
	if !jumped {
		next = p.frame + 1
	}
	errs = append(errs, p.enterFrame(p.wrap(next), false)...)
	return errors.Join(errs...)
}

// GoToFrame moves the playhead to frame n. Only the score state of n is
// resolved and behaviors are attached or detached; no frame events are
// sent.
func (p *Player) GoToFrame(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return ErrNoMovie
	}
	if count := frameCount(p.vm.Movie()); n < 1 || (count > 0 && n > count) {
		return fmt.Errorf("frame %d out of range (1-%d)", n, max(count, 1))
	}
	p.frame = n
	p.vm.SetFrame(n)
	p.vm.ApplyScore(n)
	return errors.Join(p.syncBehaviors(n)...)
}

// enterFrame makes frame current and sends the entry events. startMovie
// follows prepareFrame of the first frame.
func (p *Player) enterFrame(frame int, first bool) []error {
	p.frame = frame
	p.exited = false
	p.vm.SetFrame(frame)
	p.vm.ApplyScore(frame)
	errs := p.syncBehaviors(frame)
	errs = append(errs, p.vm.Dispatch(vm.Event{Name: vm.EventPrepareFrame}))
	if first {
		errs = append(errs, p.vm.Dispatch(vm.Event{Name: vm.EventStartMovie}))
	}
	errs = append(errs,
		p.vm.Dispatch(vm.Event{Name: vm.EventEnterFrame}),
		p.vm.Dispatch(vm.Event{Name: vm.EventStepFrame}),
	)
	if p.onFrameDone != nil {
		p.onFrameDone(frame)
	}
	return errs
}

// syncBehaviors ends the behaviors of channels whose attachment changed
// and begins the new ones. Ends go first, both in channel order.
func (p *Player) syncBehaviors(frame int) []error {
	m := p.vm.Movie()
	if m == nil || m.Score == nil {
		return nil
	}
	want := map[int][]span{}
	var frameSpan span
	for _, iv := range m.Score.IntervalsAt(frame) {
		sp := span{start: iv.Start, end: iv.End, lib: libOf(iv.CastLib), member: int(iv.Member)}
		if iv.Channel == score.FrameScriptChannel {
			frameSpan = sp
			continue
		}
		want[iv.Channel] = append(want[iv.Channel], sp)
	}
	if lib, mem, ok := m.Score.FrameScript(frame); ok {
		if frameSpan.member != int(mem) || frameSpan.lib != libOf(lib) {
			frameSpan = span{lib: libOf(lib), member: int(mem)}
		}
		want[score.FrameScriptChannel] = []span{frameSpan}
	}

	var errs []error
	for _, ch := range sortedChannels(p.behaviors) {
		if slices.Equal(p.behaviors[ch], want[ch]) {
			continue
		}
		errs = append(errs, p.vm.EndSprite(ch))
		delete(p.behaviors, ch)
	}
	for _, ch := range sortedChannels(want) {
		if _, ok := p.behaviors[ch]; ok {
			continue
		}
		for _, sp := range want[ch] {
			if err := p.vm.BeginSprite(ch, sp.lib, sp.member); err != nil {
				errs = append(errs, err)
			}
		}
		p.behaviors[ch] = want[ch]
	}
	return errs
}

// stopped reports whether a task is stopped at a breakpoint.
func (p *Player) stopped() bool {
	_, ok := p.vm.SuspendedTask()
	return ok
}

// halt stops playback once a script called halt.
func (p *Player) halt() bool {
	if !p.vm.Halted() {
		return false
	}
	if p.playing {
		p.playing = false
		p.log.Info("movie halted", "frame", p.frame)
	}
	return true
}

func (p *Player) wrap(frame int) int {
	count := frameCount(p.vm.Movie())
	if frame < 1 || count == 0 || frame > count {
		return 1
	}
	return frame
}

func libOf(lib uint16) int {
	if lib == 0 {
		return 1
	}
	return int(lib)
}

func sortedChannels(m map[int][]span) []int {
	out := make([]int, 0, len(m))
	for ch := range m {
		out = append(out, ch)
	}
	sort.Ints(out)
	return out
}
