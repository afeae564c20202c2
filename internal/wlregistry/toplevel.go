package wlregistry

import "github.com/wayvnc-go/wayvnc/internal/observer"

// Toplevel is one ext_foreign_toplevel_list handle,
// exposed as an ImageSource so it can feed the capture pipeline the same
// way an Output does.
type Toplevel struct {
	Identifier string
	AppID      string
	Title      string
	OnClosed   func()

	width, height  int32
	geometryChange observer.Observable
	powerChange    observer.Observable
}

// NewToplevel creates a toplevel image source from the identifier/app_id
// pair the compositor reported.
func NewToplevel(identifier, appID, title string) *Toplevel {
	return &Toplevel{Identifier: identifier, AppID: appID, Title: title}
}

// Close fires OnClosed and is called on the foreign handle's `closed`
// event.
func (t *Toplevel) Close() {
	if t.OnClosed != nil {
		t.OnClosed()
	}
}

func (t *Toplevel) Dimensions() (int32, int32) { return t.width, t.height }
func (t *Toplevel) Transform() Transform       { return TransformNormal }
func (t *Toplevel) PowerState() Power          { return PowerOn }
func (t *Toplevel) AcquirePowerOn() int        { return 1 }
func (t *Toplevel) ReleasePowerOn()            {}
func (t *Toplevel) Describe() string           { return t.Title }

func (t *Toplevel) GeometryChange() *observer.Observable { return &t.geometryChange }
func (t *Toplevel) PowerChange() *observer.Observable     { return &t.powerChange }
