package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayvnc-go/wayvnc/internal/buffer"
	"github.com/wayvnc-go/wayvnc/internal/wlregistry"
)

type fakeSubSession struct {
	started int
	stopped int
	source  wlregistry.ImageSource
	onDone  func(Result, *buffer.Buffer, wlregistry.ImageSource)
}

func (s *fakeSubSession) Start(immediate bool) error { s.started++; return nil }
func (s *fakeSubSession) Stop()                      { s.stopped++ }
func (s *fakeSubSession) Destroy()                   {}
func (s *fakeSubSession) Capabilities() Capabilities  { return CapabilityTransform }
func (s *fakeSubSession) OnDone(f func(Result, *buffer.Buffer, wlregistry.ImageSource)) {
	s.onDone = f
}
func (s *fakeSubSession) SetRateFormat(RateFormatFunc)            {}
func (s *fakeSubSession) OnCursorEnter(func())                    {}
func (s *fakeSubSession) OnCursorLeave(func())                     {}
func (s *fakeSubSession) OnCursorHotspot(func(x, y int32))         {}

func TestDesktopCaptureSessionFansStartAcrossOutputs(t *testing.T) {
	desktop := wlregistry.NewDesktop()
	a := newTestOutput()
	b := wlregistry.NewOutput(2, nil)
	b.SetGeometry(1920, 0, 1920, 1080, "WL-2")
	desktop.AddOutput(a)
	desktop.AddOutput(b)

	var subs []*fakeSubSession
	sess := NewDesktopCaptureSession(desktop, func(source wlregistry.ImageSource) (Session, error) {
		sub := &fakeSubSession{source: source}
		subs = append(subs, sub)
		return sub, nil
	})

	require.NoError(t, sess.Start(false))
	require.Len(t, subs, 2)
	assert.Equal(t, 1, subs[0].started)
	assert.Equal(t, 1, subs[1].started)

	sess.Stop()
	assert.Equal(t, 1, subs[0].stopped)
	assert.Equal(t, 1, subs[1].stopped)
}

func TestDesktopCaptureSessionTrampolinePreservesOriginatingSource(t *testing.T) {
	desktop := wlregistry.NewDesktop()
	a := newTestOutput()
	desktop.AddOutput(a)

	var subs []*fakeSubSession
	sess := NewDesktopCaptureSession(desktop, func(source wlregistry.ImageSource) (Session, error) {
		sub := &fakeSubSession{source: source}
		subs = append(subs, sub)
		return sub, nil
	})

	var gotSource wlregistry.ImageSource
	sess.OnDone(func(r Result, buf *buffer.Buffer, source wlregistry.ImageSource) {
		gotSource = source
	})

	require.NoError(t, sess.Start(false))
	require.Len(t, subs, 1)
	subs[0].onDone(ResultDone, nil, a)

	assert.Same(t, a, gotSource)
}
