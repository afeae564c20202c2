// Package wlregistry implements the output/seat/toplevel bookkeeping:
// compositor globals are turned into long-lived Output, Seat, and
// Toplevel nodes, kept in sync via the observer bus as the compositor's
// topology changes. The connection itself comes from internal/wlclient;
// this package's bind layer (bind.go) binds the globals and turns their
// events into calls on the types here.
package wlregistry

import "github.com/wayvnc-go/wayvnc/internal/observer"

// Power is an image source's backing-output power state.
type Power int

const (
	PowerUnknown Power = iota
	PowerOn
	PowerOff
)

func (p Power) String() string {
	switch p {
	case PowerOn:
		return "on"
	case PowerOff:
		return "off"
	default:
		return "unknown"
	}
}

// Transform is one of the eight Wayland-defined output transforms
// (rotations/flips); values match wl_output.transform's enum ordinals.
type Transform int

const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

// ImageSource is the abstract capability node every capturable surface
// implements: dimensions, transform, power state, power acquire/release,
// and a description, plus geometry_change/power_change observables.
// Output, Toplevel, and Desktop all implement it.
type ImageSource interface {
	Dimensions() (width, height int32)
	Transform() Transform
	PowerState() Power
	// AcquirePowerOn requests ON and returns 1 if already on, 0 if a
	// request was issued, -1 if no power extension is available.
	AcquirePowerOn() int
	ReleasePowerOn()
	Describe() string

	GeometryChange() *observer.Observable
	PowerChange() *observer.Observable
}
