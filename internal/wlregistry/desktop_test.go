package wlregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wayvnc-go/wayvnc/internal/observer"
)

// S5: outputs A, B both report ON; aggregate reports ON. A transitions
// to OFF; aggregate reports Unknown (mixed). B transitions to OFF;
// aggregate reports OFF (one notification delivered).
func TestDesktopPowerAggregationScenarioS5(t *testing.T) {
	d := NewDesktop()
	a := NewOutput(1, nil)
	b := NewOutput(2, nil)

	var transitions []Power
	d.AddOutput(a)
	d.AddOutput(b)

	record := func() { transitions = append(transitions, d.PowerState()) }

	a.SetPower(PowerOn)
	b.SetPower(PowerOn)
	record()
	assert.Equal(t, PowerOn, d.PowerState())

	a.SetPower(PowerOff)
	record()
	assert.Equal(t, PowerUnknown, d.PowerState(), "mixed power reports Unknown")

	notifications := 0
	obs := observer.New(d.PowerChange(), func(any) { notifications++ })
	defer obs.Deinit()

	b.SetPower(PowerOff)
	record()
	assert.Equal(t, PowerOff, d.PowerState())
	assert.Equal(t, 1, notifications, "one notification delivered")
}

func TestDesktopPowerAggregationEmptyIsUnknown(t *testing.T) {
	d := NewDesktop()
	assert.Equal(t, PowerUnknown, d.PowerState())
}

func TestDesktopDimensionsIsUnionBoundingBox(t *testing.T) {
	d := NewDesktop()
	a := NewOutput(1, nil)
	a.SetGeometry(0, 0, 1920, 1080, "A")
	b := NewOutput(2, nil)
	b.SetGeometry(1920, 0, 1280, 1024, "B")

	d.AddOutput(a)
	d.AddOutput(b)

	w, h := d.Dimensions()
	assert.Equal(t, int32(3200), w)
	assert.Equal(t, int32(1080), h)
}

func TestDesktopRemoveOutputStopsAggregating(t *testing.T) {
	d := NewDesktop()
	a := NewOutput(1, nil)
	d.AddOutput(a)
	a.SetPower(PowerOn)
	assert.Equal(t, PowerOn, d.PowerState())

	d.RemoveOutput(a)
	assert.Equal(t, PowerUnknown, d.PowerState())

	a.SetPower(PowerOff)
	assert.Equal(t, PowerUnknown, d.PowerState(), "detached output must no longer affect the aggregate")
}

func TestOutputAcquirePowerOnWithoutBindingReturnsMinusOne(t *testing.T) {
	o := NewOutput(1, nil)
	assert.Equal(t, -1, o.AcquirePowerOn())
}

type fakePowerBinding struct {
	requested int
	released  bool
}

func (f *fakePowerBinding) RequestOn() error {
	f.requested++
	return nil
}
func (f *fakePowerBinding) Release() { f.released = true }

func TestOutputAcquirePowerOnRequestsThenNoopsWhenOn(t *testing.T) {
	binding := &fakePowerBinding{}
	o := NewOutput(1, binding)

	assert.Equal(t, 0, o.AcquirePowerOn())
	assert.Equal(t, 1, binding.requested)

	o.SetPower(PowerOn)
	assert.Equal(t, 1, o.AcquirePowerOn(), "already-on output does not re-request")
	assert.Equal(t, 1, binding.requested)
}

func TestOutputReleasePowerOnResetsToUnknown(t *testing.T) {
	binding := &fakePowerBinding{}
	o := NewOutput(1, binding)
	o.SetPower(PowerOn)

	o.ReleasePowerOn()
	assert.True(t, binding.released)
	assert.Equal(t, PowerUnknown, o.PowerState())
}
