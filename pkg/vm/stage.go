package vm

import (
	"image"

	"github.com/zurustar/dirplayer/pkg/datum"
	"github.com/zurustar/dirplayer/pkg/score"
)

// Sprite is the runtime state of one score channel.
type Sprite struct {
	Channel   int
	Type      int
	CastLib   int
	Member    int
	LocH      int
	LocV      int
	Width     int
	Height    int
	Ink       int
	Blend     int
	ForeColor int
	BackColor int
	Visible   bool
	// Puppet channels ignore the score until puppetSprite(n, FALSE).
	Puppet bool
	// Behaviors are the script instances attached to the sprite span.
	Behaviors []datum.Datum
	// Props keeps sprite properties that have no effect here, such as
	// trails or moveableSprite.
	Props map[string]datum.Datum
}

// Rect returns the sprite's bounding box. loc is the top left corner.
func (s *Sprite) Rect() image.Rectangle {
	return image.Rect(s.LocH, s.LocV, s.LocH+s.Width, s.LocV+s.Height)
}

// MemberRef returns the sprite's member as a datum, or Void when empty.
func (s *Sprite) MemberRef() datum.Datum {
	if s.Member == 0 {
		return datum.Void
	}
	return datum.MemberRef(s.CastLib, s.Member)
}

// Stage holds the playback state scripts can observe through "the"
// properties.
type Stage struct {
	Frame     int
	NextFrame int // pending go to, 0 if none
	Tempo     int
	Width     int
	Height    int
	Sprites   []*Sprite // index 0 is channel 1
	// FrameScript holds the instances of the current frame's script.
	FrameScript []datum.Datum

	MouseH, MouseV int
	MouseDown      bool
	ClickOn        int
	RollOver       int
	Key            string
	KeyCode        int
	LastClick      int64
	LastEvent      int64
	Halted         bool
	Paused         bool
	ExitLock       bool
	UpdateCount    int
}

// NewStage returns a stage with channels empty sprite channels.
func NewStage(channels int) *Stage {
	st := &Stage{}
	st.ensure(channels)
	return st
}

func (st *Stage) ensure(n int) {
	for len(st.Sprites) < n {
		st.Sprites = append(st.Sprites, &Sprite{Channel: len(st.Sprites) + 1, Visible: true, Blend: 100})
	}
}

// Sprite returns channel n, growing the table as needed.
func (st *Stage) Sprite(n int) (*Sprite, bool) {
	if n < 1 || n > 1000 {
		return nil, false
	}
	st.ensure(n)
	return st.Sprites[n-1], true
}

// Apply copies an aggregated score record into channel n unless the
// channel is a puppet.
func (st *Stage) Apply(n int, rec score.Sprite) {
	sp, ok := st.Sprite(n)
	if !ok || sp.Puppet {
		return
	}
	sp.Type = int(rec.Type)
	sp.CastLib = int(rec.CastLib)
	if sp.CastLib == 0 && rec.Member != 0 {
		sp.CastLib = 1
	}
	sp.Member = int(rec.Member)
	sp.LocH, sp.LocV = int(rec.LocH), int(rec.LocV)
	sp.Width, sp.Height = int(rec.Width), int(rec.Height)
	sp.Ink = int(rec.Ink)
	sp.ForeColor, sp.BackColor = int(rec.ForeColor), int(rec.BackColor)
}

// HitTest returns the topmost visible sprite containing (x, y), or 0.
func (st *Stage) HitTest(x, y int) int {
	p := image.Pt(x, y)
	for i := len(st.Sprites) - 1; i >= 0; i-- {
		sp := st.Sprites[i]
		if sp.Member == 0 || !sp.Visible {
			continue
		}
		if p.In(sp.Rect()) {
			return sp.Channel
		}
	}
	return 0
}

func (st *Stage) roots() []datum.Datum {
	out := append([]datum.Datum(nil), st.FrameScript...)
	for _, sp := range st.Sprites {
		out = append(out, sp.Behaviors...)
		for _, v := range sp.Props {
			out = append(out, v)
		}
	}
	return out
}

// SetFrame records the current frame. Called by the scheduler.
func (vm *VM) SetFrame(frame int) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.stage.Frame = frame
	vm.notify(NotifyFrameChanged, vm.frameInfo())
}

// TakeNextFrame returns and clears a frame requested by go.
func (vm *VM) TakeNextFrame() (int, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	n := vm.stage.NextFrame
	vm.stage.NextFrame = 0
	return n, n > 0
}

// Halted reports whether a script called halt.
func (vm *VM) Halted() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.stage.Halted
}

// Tempo returns the frame rate, including puppetTempo changes.
func (vm *VM) Tempo() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.stage.Tempo
}

// SetTempo overrides the frame rate.
func (vm *VM) SetTempo(fps int) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if fps > 0 {
		vm.stage.Tempo = fps
	}
}

// SetStageSize sets the stage dimensions reported to scripts.
func (vm *VM) SetStageSize(w, h int) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.stage.Width, vm.stage.Height = w, h
}

// ApplyScore updates every non-puppet channel from the score's aggregated
// state at frame.
func (vm *VM) ApplyScore(frame int) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.movie == nil || vm.movie.Score == nil {
		return
	}
	for ch, rec := range vm.movie.Score.FrameState(frame) {
		if ch == score.FrameScriptChannel {
			continue
		}
		vm.stage.Apply(ch, rec)
	}
}

// SpriteState returns a copy of channel n.
func (vm *VM) SpriteState(n int) (Sprite, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	sp, ok := vm.stage.Sprite(n)
	if !ok {
		return Sprite{}, false
	}
	c := *sp
	c.Behaviors = append([]datum.Datum(nil), sp.Behaviors...)
	return c, true
}

// SetPointer records the pointer position and button state. It returns
// the channel under the pointer.
func (vm *VM) SetPointer(x, y int, down bool) int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.stage.MouseH, vm.stage.MouseV = x, y
	vm.stage.MouseDown = down
	vm.stage.LastEvent = vm.ticks()
	return vm.stage.HitTest(x, y)
}

// SetKey records the last key pressed.
func (vm *VM) SetKey(code int, key string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.stage.KeyCode = code
	vm.stage.Key = key
	vm.stage.LastEvent = vm.ticks()
}
