package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayvnc-go/wayvnc/internal/buffer"
	"github.com/wayvnc-go/wayvnc/internal/wlregistry"
)

type fakeWlrDriver struct {
	captureCalls int
	copyCalls    int
	destroyed    bool
}

func (d *fakeWlrDriver) CaptureFrame(overlayCursor bool) error { d.captureCalls++; return nil }
func (d *fakeWlrDriver) Copy(buf *buffer.Buffer, withDamage bool) error {
	d.copyCalls++
	return nil
}
func (d *fakeWlrDriver) Destroy() { d.destroyed = true }

func newTestOutput() *wlregistry.Output {
	o := wlregistry.NewOutput(1, nil)
	o.SetGeometry(0, 0, 1920, 1080, "WL-1")
	return o
}

func TestWlrCaptureSessionHappyPath(t *testing.T) {
	driver := &fakeWlrDriver{}
	pool := buffer.NewPool(buffer.NewRegistry(), nil)
	out := newTestOutput()

	sess := NewWlrCaptureSession(out, driver, pool, 30)
	var results []Result
	sess.OnDone(func(r Result, buf *buffer.Buffer, src wlregistry.ImageSource) {
		results = append(results, r)
		assert.Same(t, out, src)
	})

	require.NoError(t, sess.Start(false))
	assert.Equal(t, 1, driver.captureCalls)

	sess.HandleBufferInfo(buffer.FourccXRGB8888, 1920, 1080, 7680)
	assert.Equal(t, 1, driver.copyCalls)

	sess.HandleFlags(true)
	sess.HandleReady(1000)

	require.Len(t, results, 1)
	assert.Equal(t, ResultDone, results[0])
	assert.Equal(t, 1, pool.OutstandingCount())
}

func TestWlrCaptureSessionRejectsConcurrentStart(t *testing.T) {
	driver := &fakeWlrDriver{}
	pool := buffer.NewPool(buffer.NewRegistry(), nil)
	out := newTestOutput()

	sess := NewWlrCaptureSession(out, driver, pool, 30)
	require.NoError(t, sess.Start(false))
	assert.Error(t, sess.Start(false))
}

func TestWlrCaptureSessionFailedReissues(t *testing.T) {
	driver := &fakeWlrDriver{}
	pool := buffer.NewPool(buffer.NewRegistry(), nil)
	out := newTestOutput()

	sess := NewWlrCaptureSession(out, driver, pool, 30)
	sess.shouldStart = true
	sess.state = wlrCopying

	sess.HandleFailed()
	assert.Equal(t, 1, driver.captureCalls, "failed frame re-issues CaptureFrame")
}

func TestWlrCaptureSessionSchedulesNextViaDelaySmoother(t *testing.T) {
	driver := &fakeWlrDriver{}
	pool := buffer.NewPool(buffer.NewRegistry(), nil)
	out := newTestOutput()

	sess := NewWlrCaptureSession(out, driver, pool, 30)
	require.NoError(t, sess.Start(false))
	sess.HandleBufferInfo(buffer.FourccXRGB8888, 1920, 1080, 7680)
	sess.startTime = time.Unix(0, 0)
	sess.clock = fixedClock{at: time.Unix(0, 0).Add(5 * time.Millisecond)}
	sess.HandleReady(1)

	assert.GreaterOrEqual(t, sess.NextDelay(), time.Duration(0))

	require.NoError(t, sess.FireTimer())
	assert.Equal(t, 2, driver.captureCalls)
	assert.Equal(t, time.Duration(-1), sess.NextDelay())
}

type fixedClock struct{ at time.Time }

func (f fixedClock) Now() time.Time { return f.at }
