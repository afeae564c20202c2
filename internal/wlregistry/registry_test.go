package wlregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryOutputLifecycle(t *testing.T) {
	r := NewRegistry()
	o := NewOutput(1, nil)
	r.AddOutput(o)

	got, ok := r.Output(1)
	require.True(t, ok)
	assert.Same(t, o, got)
	assert.Len(t, r.Outputs(), 1)
	assert.Contains(t, r.Desktop().Outputs(), o)

	r.RemoveOutput(1)
	_, ok = r.Output(1)
	assert.False(t, ok)
	assert.Empty(t, r.Desktop().Outputs())
}

func TestRegistrySeatLifecycle(t *testing.T) {
	r := NewRegistry()
	r.AddSeat(&Seat{ID: 5, Capabilities: SeatCapabilityPointer | SeatCapabilityKeyboard, Name: "seat0"})

	seats := r.Seats()
	require.Len(t, seats, 1)
	assert.True(t, seats[0].HasPointer())
	assert.True(t, seats[0].HasKeyboard())

	r.RemoveSeat(5)
	assert.Empty(t, r.Seats())
}

func TestRegistryToplevelCloseFiresCallback(t *testing.T) {
	r := NewRegistry()
	closed := false
	tl := NewToplevel("win-1", "app.id", "Title")
	tl.OnClosed = func() { closed = true }

	r.AddToplevel(tl)
	assert.Len(t, r.Toplevels(), 1)

	r.RemoveToplevel("win-1")
	assert.True(t, closed)
	assert.Empty(t, r.Toplevels())
}
