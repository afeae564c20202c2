// Package wlvinput binds zwlr_virtual_pointer_manager_v1 and
// zwp_virtual_keyboard_manager_v1 behind vinput's PointerDriver/
// KeyboardDriver, the compositor-injection alternative to the uinput
// fallback in internal/vinput/uinput.go. Only available when the seat
// granting those globals is the one VNC input is being forwarded to; when
// a global is absent the driver constructors return a "not bound" error.
package wlvinput

import (
	"fmt"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	virtualkeyboard "github.com/rajveermalviya/go-wayland/wayland/unstable/virtual-keyboard"
	virtualpointer "github.com/rajveermalviya/go-wayland/wayland/unstable/wlr-virtual-pointer"

	"github.com/wayvnc-go/wayvnc/internal/logger"
	"github.com/wayvnc-go/wayvnc/internal/wlclient"
)

// Manager watches the registry for the two virtual-input manager
// globals, binding whichever the compositor advertises.
type Manager struct {
	session *wlclient.Session

	pointerMgr  *virtualpointer.ZwlrVirtualPointerManagerV1
	keyboardMgr *virtualkeyboard.ZwpVirtualKeyboardManagerV1
}

// NewManager binds session's registry. Must run before the initial
// Roundtrip, matching wlcapture.NewManager's contract.
func NewManager(session *wlclient.Session) *Manager {
	m := &Manager{session: session}

	session.Registry.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		switch e.Interface {
		case "zwlr_virtual_pointer_manager_v1":
			mgr := virtualpointer.NewZwlrVirtualPointerManagerV1(session.Registry.Context())
			if err := session.Registry.Bind(e.Name, e.Interface, e.Version, mgr); err != nil {
				logger.Errorf("bind zwlr_virtual_pointer_manager_v1: %v", err)
				return
			}
			m.pointerMgr = mgr
		case "zwp_virtual_keyboard_manager_v1":
			mgr := virtualkeyboard.NewZwpVirtualKeyboardManagerV1(session.Registry.Context())
			if err := session.Registry.Bind(e.Name, e.Interface, e.Version, mgr); err != nil {
				logger.Errorf("bind zwp_virtual_keyboard_manager_v1: %v", err)
				return
			}
			m.keyboardMgr = mgr
		}
	})

	return m
}

func (m *Manager) HasPointer() bool  { return m.pointerMgr != nil }
func (m *Manager) HasKeyboard() bool { return m.keyboardMgr != nil }

// NewPointerDriver creates a virtual pointer on seat.
func (m *Manager) NewPointerDriver(seat *client.Seat) (*pointerDriver, error) {
	if m.pointerMgr == nil {
		return nil, fmt.Errorf("wlvinput: zwlr_virtual_pointer_manager_v1 not bound")
	}
	obj, err := m.pointerMgr.CreateVirtualPointer(seat)
	if err != nil {
		return nil, fmt.Errorf("wlvinput: create_virtual_pointer: %w", err)
	}
	return &pointerDriver{obj: obj}, nil
}

// NewKeyboardDriver creates a virtual keyboard for seat. keymapFD/size
// must describe an XKB keymap the caller has already loaded;
// callers that only need evdev keycode forwarding over an existing
// layout pass the compositor's own default keymap through unchanged.
func (m *Manager) NewKeyboardDriver(seat *client.Seat, keymapFormat uint32, keymapFD uintptr, keymapSize uint32) (*keyboardDriver, error) {
	if m.keyboardMgr == nil {
		return nil, fmt.Errorf("wlvinput: zwp_virtual_keyboard_manager_v1 not bound")
	}
	obj, err := m.keyboardMgr.CreateVirtualKeyboard(seat)
	if err != nil {
		return nil, fmt.Errorf("wlvinput: create_virtual_keyboard: %w", err)
	}
	if err := obj.Keymap(keymapFormat, keymapFD, keymapSize); err != nil {
		_ = obj.Destroy()
		return nil, fmt.Errorf("wlvinput: keymap: %w", err)
	}
	return &keyboardDriver{obj: obj}, nil
}

// pointerDriver adapts zwlr_virtual_pointer_v1 to vinput.PointerDriver.
type pointerDriver struct {
	obj *virtualpointer.ZwlrVirtualPointerV1
}

func (d *pointerDriver) MotionAbsolute(x, y, width, height uint32) error {
	return d.obj.MotionAbsolute(0, x, y, width, height)
}

func (d *pointerDriver) Button(code uint32, pressed bool) error {
	state := uint32(0)
	if pressed {
		state = 1
	}
	return d.obj.Button(0, code, state)
}

func (d *pointerDriver) Axis(dx, dy float64) error {
	if dx != 0 {
		if err := d.obj.Axis(0, 0, toFixed(dx)); err != nil {
			return err
		}
	}
	if dy != 0 {
		if err := d.obj.Axis(0, 1, toFixed(dy)); err != nil {
			return err
		}
	}
	return nil
}

func (d *pointerDriver) Frame() error  { return d.obj.Frame() }
func (d *pointerDriver) Destroy() error { return d.obj.Destroy() }

// toFixed converts a float64 delta to wl_fixed_t (24.8 fixed point), the
// representation wl_pointer.axis and its virtual-pointer mirror use.
func toFixed(v float64) int32 { return int32(v * 256) }

// keyboardDriver adapts zwp_virtual_keyboard_v1 to vinput.KeyboardDriver.
type keyboardDriver struct {
	obj *virtualkeyboard.ZwpVirtualKeyboardV1
}

func (d *keyboardDriver) Key(keycode uint32, pressed bool) error {
	state := uint32(0)
	if pressed {
		state = 1
	}
	return d.obj.Key(0, keycode, state)
}

func (d *keyboardDriver) Destroy() error { return d.obj.Destroy() }
