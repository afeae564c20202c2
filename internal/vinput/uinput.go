package vinput

import (
	"fmt"
	"sync"

	"github.com/ThomasT75/uinput"
)

// UinputPointer is a PointerSink backed by a virtual /dev/uinput mouse,
// used when the compositor exposes no virtual-pointer Wayland global.
//
// uinput mice only accept relative motion, so Move tracks the last
// absolute position it was given and converts to a delta.
type UinputPointer struct {
	mu      sync.Mutex
	mouse   uinput.Mouse
	lastX   int32
	lastY   int32
	hasLast bool
}

// NewUinputPointer opens a virtual mouse at /dev/uinput. Callers should
// fall back to a no-op sink when this returns an error, since lacking
// the device node is a normal headless/container condition, not fatal
// to the rest of the publisher.
func NewUinputPointer() (*UinputPointer, error) {
	mouse, err := uinput.CreateMouse("/dev/uinput", []byte("wayvnc Virtual Mouse"))
	if err != nil {
		return nil, fmt.Errorf("vinput: create virtual mouse: %w: %w", ErrNoDriver, err)
	}
	return &UinputPointer{mouse: mouse}, nil
}

func (p *UinputPointer) Move(x, y int32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.hasLast {
		p.lastX, p.lastY = x, y
		p.hasLast = true
		return
	}
	dx, dy := x-p.lastX, y-p.lastY
	p.lastX, p.lastY = x, y
	if dx != 0 || dy != 0 {
		_ = p.mouse.Move(dx, dy)
	}
}

// Button codes follow the RFB pointer-event button-mask bit positions
// (0=left, 1=middle, 2=right); anything else is ignored.
func (p *UinputPointer) Button(code uint32, pressed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch code {
	case 0:
		if pressed {
			_ = p.mouse.LeftPress()
		} else {
			_ = p.mouse.LeftRelease()
		}
	case 1:
		if pressed {
			_ = p.mouse.MiddlePress()
		} else {
			_ = p.mouse.MiddleRelease()
		}
	case 2:
		if pressed {
			_ = p.mouse.RightPress()
		} else {
			_ = p.mouse.RightRelease()
		}
	}
}

func (p *UinputPointer) Axis(dx, dy float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if dy != 0 {
		_ = p.mouse.Wheel(false, int32(dy))
	}
	if dx != 0 {
		_ = p.mouse.Wheel(true, int32(dx))
	}
}

func (p *UinputPointer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mouse.Close()
}

// UinputKeyboard is a KeyboardSink backed by a virtual /dev/uinput
// keyboard, taking already-translated evdev keycodes (see
// internal/input.Keymap).
type UinputKeyboard struct {
	mu       sync.Mutex
	keyboard uinput.Keyboard
}

func NewUinputKeyboard() (*UinputKeyboard, error) {
	kb, err := uinput.CreateKeyboard("/dev/uinput", []byte("wayvnc Virtual Keyboard"))
	if err != nil {
		return nil, fmt.Errorf("vinput: create virtual keyboard: %w: %w", ErrNoDriver, err)
	}
	return &UinputKeyboard{keyboard: kb}, nil
}

func (k *UinputKeyboard) Key(keycode uint32, pressed bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if pressed {
		_ = k.keyboard.KeyDown(int(keycode))
	} else {
		_ = k.keyboard.KeyUp(int(keycode))
	}
}

func (k *UinputKeyboard) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.keyboard.Close()
}
