package vinput

import "fmt"

// PointerDriver is the narrow surface zwlr_virtual_pointer_v1 (up to v2)
// gives a pointer sink: absolute motion, button, and axis requests, plus
// the frame that commits a batch of them.
// Concrete binding lives in internal/wlvinput, alongside the output/seat
// registry bindings in wlregistry/bind.go; this package only consumes it.
type PointerDriver interface {
	MotionAbsolute(x, y, width, height uint32) error
	Button(code uint32, pressed bool) error
	Axis(dx, dy float64) error
	Frame() error
	Destroy() error
}

// KeyboardDriver is the narrow surface zwp_virtual_keyboard_v1 gives a
// keyboard sink; no other virtual-keyboard protocol is bound.
type KeyboardDriver interface {
	Key(keycode uint32, pressed bool) error
	Destroy() error
}

// WaylandPointer adapts a PointerDriver to the PointerSink interface.
type WaylandPointer struct {
	driver       PointerDriver
	outputWidth  uint32
	outputHeight uint32
}

// NewWaylandPointer wraps driver; outputWidth/outputHeight are the
// captured output's dimensions, since motion_absolute is normalized to
// them (zwlr_virtual_pointer_v1's motion_absolute request semantics).
func NewWaylandPointer(driver PointerDriver, outputWidth, outputHeight int32) *WaylandPointer {
	return &WaylandPointer{driver: driver, outputWidth: uint32(outputWidth), outputHeight: uint32(outputHeight)}
}

func (p *WaylandPointer) Move(x, y int32) {
	if err := p.driver.MotionAbsolute(uint32(x), uint32(y), p.outputWidth, p.outputHeight); err != nil {
		return
	}
	_ = p.driver.Frame()
}

func (p *WaylandPointer) Button(code uint32, pressed bool) {
	if err := p.driver.Button(code, pressed); err != nil {
		return
	}
	_ = p.driver.Frame()
}

func (p *WaylandPointer) Axis(dx, dy float64) {
	if err := p.driver.Axis(dx, dy); err != nil {
		return
	}
	_ = p.driver.Frame()
}

func (p *WaylandPointer) Close() error { return p.driver.Destroy() }

// WaylandKeyboard adapts a KeyboardDriver to the KeyboardSink interface.
type WaylandKeyboard struct {
	driver KeyboardDriver
}

func NewWaylandKeyboard(driver KeyboardDriver) *WaylandKeyboard {
	return &WaylandKeyboard{driver: driver}
}

func (k *WaylandKeyboard) Key(keycode uint32, pressed bool) {
	_ = k.driver.Key(keycode, pressed)
}

func (k *WaylandKeyboard) Close() error { return k.driver.Destroy() }

// ErrNoDriver is returned by the uinput fallback constructors when
// /dev/uinput is unavailable (e.g. missing kernel module or permissions).
var ErrNoDriver = fmt.Errorf("vinput: no input driver available")
