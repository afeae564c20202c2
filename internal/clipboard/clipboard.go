// Package clipboard models the two data-control Wayland protocols
// (ext_data_control_manager_v1 and its predecessor
// zwlr_data_control_manager_v1) as variants of one interface. Neither
// protocol changes the shape of the operation — offer a selection, read
// a selection — so one ClipboardChannel interface and a thin per-protocol
// driver is enough; no separate retries/state-machine layer is warranted
// the way capture needs one.
package clipboard

// Direction distinguishes the two data flows the Clipboard channel data
// model names.
type Direction int

const (
	ToCompositor Direction = iota
	FromCompositor
)

// Selection is one clipboard offer: the MIME types a side advertises and
// the payload once requested.
type Selection struct {
	Direction Direction
	MimeTypes []string
	Payload   []byte
}

// driver is the narrow per-protocol surface both zwlr_data_control_v1
// and ext_data_control_v1 offer: set the local selection, read whatever
// the compositor currently holds, and tear down. Concrete bindings live
// in internal/wlclipboard.
type driver interface {
	SetSelection(mimeTypes []string, payload []byte) error
	ReadSelection() (Selection, error)
	Destroy() error
}

// ClipboardChannel is the seam internal/publish drives from
// rfb.Session's OnClipboardRequest/OnClipboardSet callbacks.
type ClipboardChannel interface {
	Set(mimeTypes []string, payload []byte) error
	Get() (Selection, error)
	Close() error
}

// wlrDataControl backs zwlr_data_control_manager_v1, the older of the
// two protocols; still the only one some compositors ship.
type wlrDataControl struct {
	driver driver
}

func NewWlrDataControl(d driver) ClipboardChannel { return &wlrDataControl{driver: d} }

func (c *wlrDataControl) Set(mimeTypes []string, payload []byte) error {
	return c.driver.SetSelection(mimeTypes, payload)
}

func (c *wlrDataControl) Get() (Selection, error) { return c.driver.ReadSelection() }
func (c *wlrDataControl) Close() error            { return c.driver.Destroy() }

// extDataControl backs ext_data_control_manager_v1, the upstreamed
// successor protocol. Behaviorally identical to
// wlrDataControl from this package's point of view; kept as a distinct
// type so internal/wlclipboard's global-detection logic can construct the
// right one without either side needing to know about the other.
type extDataControl struct {
	driver driver
}

func NewExtDataControl(d driver) ClipboardChannel { return &extDataControl{driver: d} }

func (c *extDataControl) Set(mimeTypes []string, payload []byte) error {
	return c.driver.SetSelection(mimeTypes, payload)
}

func (c *extDataControl) Get() (Selection, error) { return c.driver.ReadSelection() }
func (c *extDataControl) Close() error            { return c.driver.Destroy() }
