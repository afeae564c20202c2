package capture

import (
	"fmt"

	"github.com/wayvnc-go/wayvnc/internal/buffer"
	"github.com/wayvnc-go/wayvnc/internal/wlregistry"
)

// Backend identifies which compositor protocol a session was created
// against.
type Backend int

const (
	BackendNone Backend = iota
	BackendExt
	BackendWlr
	BackendDesktop
)

// Manager reports which capture-capable globals the compositor connection
// has bound, and builds the low-level driver for a chosen backend. The
// concrete implementation lives in internal/wlcapture, which owns the
// Wayland capture-protocol bindings this package only consumes.
type Manager interface {
	HasExtImageCopyCapture() bool
	HasWlrScreencopy() bool
	RateLimit() float64

	NewExtDriver(source wlregistry.ImageSource) (ExtDriver, error)
	NewExtCursorDriver(source wlregistry.ImageSource, seat *wlregistry.Seat) (ExtDriver, error)
	NewWlrDriver(output *wlregistry.Output) (WlrDriver, error)

	Pool() *buffer.Pool
}

// Create implements the dispatch rule: a desktop aggregator if
// source is a Desktop; else ext-image-copy-capture if both its manager
// globals are present; else wlroots-screencopy; else no session is
// possible.
func Create(mgr Manager, source wlregistry.ImageSource, renderCursor bool) (Session, error) {
	if desktop, ok := source.(*wlregistry.Desktop); ok {
		return NewDesktopCaptureSession(desktop, func(sub wlregistry.ImageSource) (Session, error) {
			return Create(mgr, sub, renderCursor)
		}), nil
	}

	if mgr.HasExtImageCopyCapture() {
		driver, err := mgr.NewExtDriver(source)
		if err != nil {
			return nil, fmt.Errorf("capture: ext driver for %s: %w", source.Describe(), err)
		}
		sess := NewExtCaptureSession(source, driver, mgr.Pool(), mgr.RateLimit())
		bindExtSession(driver, sess)
		return sess, nil
	}

	if mgr.HasWlrScreencopy() {
		output, ok := source.(*wlregistry.Output)
		if !ok {
			return nil, fmt.Errorf("capture: wlroots-screencopy only supports output sources, got %s", source.Describe())
		}
		driver, err := mgr.NewWlrDriver(output)
		if err != nil {
			return nil, fmt.Errorf("capture: wlr driver for %s: %w", source.Describe(), err)
		}
		sess := NewWlrCaptureSession(source, driver, mgr.Pool(), mgr.RateLimit())
		if binder, ok := driver.(WlrSessionBinder); ok {
			binder.BindWlrSession(sess)
		}
		return sess, nil
	}

	return nil, fmt.Errorf("capture: no screencopy protocol available for %s", source.Describe())
}

// CreateCursor implements the "create_cursor(source, seat) is
// only supported by the ext backend".
func CreateCursor(mgr Manager, source wlregistry.ImageSource, seat *wlregistry.Seat) (Session, error) {
	if !mgr.HasExtImageCopyCapture() {
		return nil, fmt.Errorf("capture: cursor capture requires ext-image-copy-capture")
	}
	driver, err := mgr.NewExtCursorDriver(source, seat)
	if err != nil {
		return nil, fmt.Errorf("capture: ext cursor driver for %s: %w", source.Describe(), err)
	}
	sess := NewExtCaptureSession(source, driver, mgr.Pool(), mgr.RateLimit())
	bindExtSession(driver, sess)
	if ces, ok := driver.(CursorEventSource); ok {
		ces.SetCursorCallbacks(
			func() {
				if sess.onCursorEnter != nil {
					sess.onCursorEnter()
				}
			},
			func() {
				if sess.onCursorLeave != nil {
					sess.onCursorLeave()
				}
			},
			func(x, y int32) {
				if sess.onCursorHotspot != nil {
					sess.onCursorHotspot(x, y)
				}
			},
		)
	}
	return sess, nil
}

// bindExtSession wires driver's event delivery into sess's Handle*
// methods when driver implements ExtSessionBinder (the real wlcapture
// binding does; test doubles generally don't and are left driving
// Handle* directly).
func bindExtSession(driver ExtDriver, sess *ExtCaptureSession) {
	if binder, ok := driver.(ExtSessionBinder); ok {
		binder.BindExtSession(sess)
	}
}
