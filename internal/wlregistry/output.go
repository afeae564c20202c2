package wlregistry

import "github.com/wayvnc-go/wayvnc/internal/observer"

// PowerBinding is the narrow surface wlr-output-power gives an Output:
// request the output powered on and release that request. Power-mode
// changes do not arrive through it; the bind layer reports them with
// SetPower. A nil binding means the extension
// global was absent when this output was created.
type PowerBinding interface {
	RequestOn() error
	Release()
}

// Output is a single Wayland output, created on a registry `global`
// announcement of a wl_output and destroyed on its `global_remove`.
type Output struct {
	ID          uint32
	Width       int32
	Height      int32
	X, Y        int32
	transform   Transform
	Make        string
	Model       string
	Name        string
	Description string
	power       Power
	IsHeadless  bool

	binding PowerBinding

	// boundObject is the underlying wl_output protocol object this node
	// was created from, stashed as `any` so this package stays free of a
	// go-wayland import; capture-driver binding code recovers it with a
	// type assertion.
	boundObject any

	geometryChange observer.Observable
	powerChange    observer.Observable
}

// NewOutput creates an output node; binding may be nil if the
// wlr-output-power global wasn't present.
func NewOutput(id uint32, binding PowerBinding) *Output {
	return &Output{ID: id, power: PowerUnknown, binding: binding}
}

// SetGeometry records the xdg-output/wl_output geometry, firing
// geometry_change.
func (o *Output) SetGeometry(x, y, width, height int32, name string) {
	o.X, o.Y, o.Width, o.Height = x, y, width, height
	if name != "" {
		o.Name = name
	}
	o.geometryChange.Notify(o)
}

// SetPower is called when the wlr-output-power extension reports a
// power-mode change, or reset to PowerUnknown by ReleasePowerOn.
func (o *Output) SetPower(p Power) {
	if o.power == p {
		return
	}
	o.power = p
	o.powerChange.Notify(o)
}

func (o *Output) Dimensions() (int32, int32) { return o.Width, o.Height }
func (o *Output) Transform() Transform       { return o.transform }
func (o *Output) PowerState() Power          { return o.power }

// AcquirePowerOn implements the acquire_power_on: requests ON
// and returns 1 if already powered on, 0 if a request was issued, -1 if
// the extension is absent.
func (o *Output) AcquirePowerOn() int {
	if o.binding == nil {
		return -1
	}
	if o.power == PowerOn {
		return 1
	}
	_ = o.binding.RequestOn()
	return 0
}

// ReleasePowerOn destroys the power object; the output reverts to
// Unknown until the next explicit notification.
func (o *Output) ReleasePowerOn() {
	if o.binding == nil {
		return
	}
	o.binding.Release()
	o.SetPower(PowerUnknown)
}

func (o *Output) Describe() string {
	if o.Description != "" {
		return o.Description
	}
	return o.Name
}

func (o *Output) GeometryChange() *observer.Observable { return &o.geometryChange }
func (o *Output) PowerChange() *observer.Observable     { return &o.powerChange }

// SetBoundObject stashes the underlying wire-protocol object this Output
// was bound from (e.g. a *client.Output), opaque to this package so it
// stays free of a go-wayland import; capture-driver binding code recovers
// it with a type assertion.
func (o *Output) SetBoundObject(obj any) { o.boundObject = obj }

// BoundObject returns whatever was last passed to SetBoundObject, or nil.
func (o *Output) BoundObject() any { return o.boundObject }
