// Package vinput models the virtual-pointer/virtual-keyboard adaptor
// shims that sit outside this repo's scope: the narrow sink interfaces
// the RFB engine's input callbacks drive. It also ships a uinput-backed
// fallback for compositors or dev setups that lack the Wayland
// virtual-input protocols.
package vinput

// PointerSink receives pointer events translated from the RFB engine's
// wire protocol into compositor input.
type PointerSink interface {
	Move(x, y int32)
	Button(code uint32, pressed bool)
	Axis(dx, dy float64)
	Close() error
}

// KeyboardSink receives keyboard events.
type KeyboardSink interface {
	Key(keycode uint32, pressed bool)
	Close() error
}
