package engine

import (
	"errors"

	"github.com/zurustar/dirplayer/pkg/vm"
)

// MouseDown presses the button at (x, y) and sends mouseDown to the sprite
// under the pointer.
func (p *Player) MouseDown(x, y int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return ErrNoMovie
	}
	ch := p.vm.SetPointer(x, y, true)
	p.buttons, p.pressed = true, ch
	return p.vm.Dispatch(vm.Event{Name: vm.EventMouseDown, Channel: ch})
}

// MouseUp releases the button at (x, y). A release away from the sprite
// that was pressed sends mouseUpOutside to that sprite instead of mouseUp.
func (p *Player) MouseUp(x, y int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return ErrNoMovie
	}
	ch := p.vm.SetPointer(x, y, false)
	pressed := p.pressed
	p.buttons, p.pressed = false, 0
	if pressed > 0 && ch != pressed {
		return p.vm.Dispatch(vm.Event{Name: vm.EventMouseUpOut, Channel: pressed, SpriteOnly: true})
	}
	return p.vm.Dispatch(vm.Event{Name: vm.EventMouseUp, Channel: ch})
}

// MouseMove moves the pointer. Crossing sprite bounds sends mouseLeave and
// mouseEnter; moving within a sprite sends mouseWithin. These go to sprite
// behaviors only.
func (p *Player) MouseMove(x, y int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return ErrNoMovie
	}
	ch := p.vm.SetPointer(x, y, p.buttons)
	var errs []error
	switch {
	case ch != p.hover:
		if p.hover > 0 {
			errs = append(errs, p.vm.Dispatch(vm.Event{Name: vm.EventMouseLeave, Channel: p.hover, SpriteOnly: true}))
		}
		if ch > 0 {
			errs = append(errs, p.vm.Dispatch(vm.Event{Name: vm.EventMouseEnter, Channel: ch, SpriteOnly: true}))
		}
		p.hover = ch
	case ch > 0:
		errs = append(errs, p.vm.Dispatch(vm.Event{Name: vm.EventMouseWithin, Channel: ch, SpriteOnly: true}))
	}
	return errors.Join(errs...)
}

// KeyDown records the key and sends keyDown.
func (p *Player) KeyDown(code int, char string) error {
	return p.key(vm.EventKeyDown, code, char)
}

// KeyUp records the key and sends keyUp.
func (p *Player) KeyUp(code int, char string) error {
	return p.key(vm.EventKeyUp, code, char)
}

func (p *Player) key(name string, code int, char string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return ErrNoMovie
	}
	p.vm.SetKey(code, char)
	return p.vm.Dispatch(vm.Event{Name: name})
}
