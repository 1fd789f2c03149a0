// Package score decodes the VWSC timeline and VWLB frame labels and answers
// "what is in channel C at frame N" queries.
//
// Frames are 1-based. The stored frame data is a sequence of deltas over a
// channel buffer; every channel touched by a frame's delta gets a keyframe at
// that frame, and a channel keeps its keyframe record until the next one.
package score

import (
	"errors"
	"sort"
	"strings"
)

// ErrDecode is returned when score or label data cannot be decoded.
var ErrDecode = errors.New("score decode error")

// FrameScriptChannel is the channel whose member is the frame script.
const FrameScriptChannel = 0

// Sprite is one channel record.
type Sprite struct {
	Type      uint8
	Ink       uint8
	ForeColor uint8
	BackColor uint8
	CastLib   uint16
	Member    uint16
	Unknown   uint16
	LocV      int16
	LocH      int16
	Height    uint16
	Width     uint16
}

// Empty reports whether the record names no member.
func (s Sprite) Empty() bool { return s.Member == 0 && s.Type == 0 }

// Keyframe is a channel record that takes effect at Frame.
type Keyframe struct {
	Frame  int
	Sprite Sprite
}

// Interval attaches a script member to a channel for a range of frames.
// Channel 0 holds frame scripts.
type Interval struct {
	Start, End int
	Channel    int
	CastLib    uint16
	Member     uint16
}

// Contains reports whether frame lies in the interval.
func (iv Interval) Contains(frame int) bool { return frame >= iv.Start && frame <= iv.End }

// Label names a frame.
type Label struct {
	Frame int
	Name  string
}

// Score is the decoded timeline.
type Score struct {
	FrameCount    int
	FramesVersion uint16
	RecordSize    int
	Intervals     []Interval
	Labels        []Label

	keyframes [][]Keyframe
}

// New creates an empty score with the given channel count.
func New(channels int) *Score {
	s := &Score{}
	s.SetChannelCount(channels)
	return s
}

// ChannelCount returns the number of channels, including the frame script
// channel.
func (s *Score) ChannelCount() int { return len(s.keyframes) }

// SetChannelCount grows or shrinks the channel table. Removed channels lose
// their keyframes.
func (s *Score) SetChannelCount(n int) {
	if n < 0 {
		n = 0
	}
	if n <= len(s.keyframes) {
		s.keyframes = s.keyframes[:n]
		return
	}
	s.keyframes = append(s.keyframes, make([][]Keyframe, n-len(s.keyframes))...)
}

// AddKeyframe records sp in channel at frame, replacing an existing
// keyframe at the same frame.
func (s *Score) AddKeyframe(frame, channel int, sp Sprite) {
	if channel < 0 || frame < 1 {
		return
	}
	if channel >= len(s.keyframes) {
		s.SetChannelCount(channel + 1)
	}
	if frame > s.FrameCount {
		s.FrameCount = frame
	}
	list := s.keyframes[channel]
	i := sort.Search(len(list), func(i int) bool { return list[i].Frame >= frame })
	if i < len(list) && list[i].Frame == frame {
		list[i].Sprite = sp
		return
	}
	list = append(list, Keyframe{})
	copy(list[i+1:], list[i:])
	list[i] = Keyframe{Frame: frame, Sprite: sp}
	s.keyframes[channel] = list
}

// Keyframes returns the keyframes of channel in frame order.
func (s *Score) Keyframes(channel int) []Keyframe {
	if channel < 0 || channel >= len(s.keyframes) {
		return nil
	}
	return s.keyframes[channel]
}

// SpriteAt returns the aggregated record of channel at frame: the latest
// keyframe at or before frame. ok is false before the first keyframe.
func (s *Score) SpriteAt(frame, channel int) (Sprite, bool) {
	list := s.Keyframes(channel)
	i := sort.Search(len(list), func(i int) bool { return list[i].Frame > frame })
	if i == 0 {
		return Sprite{}, false
	}
	return list[i-1].Sprite, true
}

// FrameState returns the aggregated record of every channel at frame.
func (s *Score) FrameState(frame int) []Sprite {
	out := make([]Sprite, len(s.keyframes))
	for ch := range s.keyframes {
		out[ch], _ = s.SpriteAt(frame, ch)
	}
	return out
}

// IntervalsAt returns the intervals covering frame, ordered by channel.
func (s *Score) IntervalsAt(frame int) []Interval {
	var out []Interval
	for _, iv := range s.Intervals {
		if iv.Contains(frame) {
			out = append(out, iv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// FrameScript returns the frame script member at frame: a channel-0
// interval, or else the member recorded in the frame script channel.
func (s *Score) FrameScript(frame int) (castLib, member uint16, ok bool) {
	for _, iv := range s.Intervals {
		if iv.Channel == FrameScriptChannel && iv.Contains(frame) {
			return iv.CastLib, iv.Member, true
		}
	}
	if sp, found := s.SpriteAt(frame, FrameScriptChannel); found && sp.Member != 0 {
		return sp.CastLib, sp.Member, true
	}
	return 0, 0, false
}

// LabelFrame resolves a label name, ignoring case.
func (s *Score) LabelFrame(name string) (int, bool) {
	for _, l := range s.Labels {
		if strings.EqualFold(l.Name, name) {
			return l.Frame, true
		}
	}
	return 0, false
}

// LabelAt returns the label of the last labelled frame at or before frame.
func (s *Score) LabelAt(frame int) string {
	name, best := "", 0
	for _, l := range s.Labels {
		if l.Frame <= frame && l.Frame >= best {
			name, best = l.Name, l.Frame
		}
	}
	return name
}

// Marker returns the labelled frame n markers away from frame: 0 is the
// current marker, 1 the next, -1 the previous.
func (s *Score) Marker(frame, n int) int {
	frames := make([]int, 0, len(s.Labels))
	for _, l := range s.Labels {
		frames = append(frames, l.Frame)
	}
	sort.Ints(frames)
	cur := -1
	for i, f := range frames {
		if f <= frame {
			cur = i
		}
	}
	i := cur + n
	switch {
	case len(frames) == 0:
		return 1
	case i < 0:
		return frames[0]
	case i >= len(frames):
		return frames[len(frames)-1]
	}
	return frames[i]
}
