package observer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyLIFOOrder(t *testing.T) {
	var subject Observable
	var order []int

	obsA := New(&subject, func(any) { order = append(order, 1) })
	obsB := New(&subject, func(any) { order = append(order, 2) })
	obsC := New(&subject, func(any) { order = append(order, 3) })
	defer obsA.Deinit()
	defer obsB.Deinit()
	defer obsC.Deinit()

	subject.Notify(nil)

	assert.Equal(t, []int{3, 2, 1}, order)
}

// TestSelfDetachDuringNotify verifies that an observer which detaches
// itself mid-notification does not crash, and the remaining observers
// still get notified.
func TestSelfDetachDuringNotify(t *testing.T) {
	var subject Observable
	var delivered []string

	var self *Observer
	self = New(&subject, func(any) {
		delivered = append(delivered, "self")
		self.Deinit()
	})
	other := New(&subject, func(any) {
		delivered = append(delivered, "other")
	})
	defer other.Deinit()

	require.NotPanics(t, func() {
		subject.Notify(nil)
	})
	assert.ElementsMatch(t, []string{"self", "other"}, delivered)

	delivered = nil
	subject.Notify(nil)
	assert.Equal(t, []string{"other"}, delivered)
}

func TestObservableDeinitSeversLinks(t *testing.T) {
	var subject Observable
	o := New(&subject, func(any) {})

	subject.Deinit()
	assert.NotPanics(t, func() { o.Deinit() })

	// Notify after Deinit should be a no-op, not a panic.
	assert.NotPanics(t, func() { subject.Notify(nil) })
}

func TestDestroyingSubjectBeforeObserverLeavesDeinitSafe(t *testing.T) {
	subject := &Observable{}
	o := New(subject, func(any) {})
	subject.Deinit()
	subject = nil
	_ = subject
	o.Deinit()
}
