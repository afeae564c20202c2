package capture

import (
	"fmt"
	"time"

	"github.com/wayvnc-go/wayvnc/internal/buffer"
	"github.com/wayvnc-go/wayvnc/internal/region"
	"github.com/wayvnc-go/wayvnc/internal/wlregistry"
)

// wlrState is the two-phase wlroots-screencopy state machine: request a
// frame, learn its buffer description, copy, await ready/failed.
type wlrState int

const (
	wlrIdle wlrState = iota
	wlrWaitingBufferInfo
	wlrCopying
)

// WlrDriver is the narrow surface the wlroots-screencopy protocol gives a
// session: request a frame object against the output, copy into an
// acquired buffer, and tear the frame down. Wire-level event delivery
// (buffer, flags, damage, ready, failed) is assumed provided and reaches
// this state machine through the Handle* methods below, not through this
// interface.
type WlrDriver interface {
	CaptureFrame(overlayCursor bool) error
	Copy(buf *buffer.Buffer, withDamage bool) error
	Destroy()
}

// WlrSessionBinder is implemented by WlrDriver values that need a
// reference back to the session they serve, so that the wl_buffer/frame
// events they receive over the wire can be delivered into the session's
// own Handle* methods. Create wires this automatically whenever the
// driver it receives from the Manager implements it.
type WlrSessionBinder interface {
	BindWlrSession(sess *WlrCaptureSession)
}

// WlrCaptureSession implements Session against the wlroots-screencopy
// protocol. Unlike the ext backend it has no format
// negotiation phase: the compositor dictates the buffer description for
// each frame, and the pool is reconfigured to match it.
type WlrCaptureSession struct {
	source wlregistry.ImageSource
	driver WlrDriver
	pool   *buffer.Pool
	rate   *rateLimiter
	smooth *delaySmoother
	clock  clock

	state        wlrState
	shouldStart  bool
	startTime    time.Time
	current      *buffer.Buffer
	pendingDelay time.Duration

	onDone     func(Result, *buffer.Buffer, wlregistry.ImageSource)
	rateFormat RateFormatFunc
}

// NewWlrCaptureSession wires a session against source, backed by pool and
// rate-limited at rateHz.
func NewWlrCaptureSession(source wlregistry.ImageSource, driver WlrDriver, pool *buffer.Pool, rateHz float64) *WlrCaptureSession {
	return &WlrCaptureSession{
		source: source,
		driver: driver,
		pool:   pool,
		rate:   newRateLimiter(rateHz),
		smooth: newDelaySmoother(rateHz),
		clock:  realClock{},
		state:  wlrIdle,
	}
}

func (s *WlrCaptureSession) OnDone(f func(Result, *buffer.Buffer, wlregistry.ImageSource)) { s.onDone = f }
func (s *WlrCaptureSession) SetRateFormat(f RateFormatFunc)                                { s.rateFormat = f }

// wlroots-screencopy has no cursor session support (that's the ext
// backend's job per the dispatch rule in Create), so these are no-ops.
func (s *WlrCaptureSession) OnCursorEnter(func())            {}
func (s *WlrCaptureSession) OnCursorLeave(func())             {}
func (s *WlrCaptureSession) OnCursorHotspot(func(x, y int32)) {}

func (s *WlrCaptureSession) Capabilities() Capabilities {
	return CapabilityTransform
}

// Start implements the capture-then-smooth-then-reschedule
// loop. Unlike the ext backend's immediate-reset behavior, wlroots-
// screencopy has no notion of "immediate": every frame is whatever the
// compositor currently holds.
func (s *WlrCaptureSession) Start(immediate bool) error {
	if s.state != wlrIdle {
		return fmt.Errorf("capture: session already has a frame in flight")
	}
	s.shouldStart = true
	return s.beginFrame()
}

func (s *WlrCaptureSession) Stop() {
	s.shouldStart = false
}

func (s *WlrCaptureSession) Destroy() {
	s.driver.Destroy()
	s.state = wlrIdle
	if s.current != nil {
		_ = s.pool.Release(s.current)
		s.current = nil
	}
}

func (s *WlrCaptureSession) beginFrame() error {
	s.startTime = s.clock.Now()
	s.state = wlrWaitingBufferInfo
	return s.driver.CaptureFrame(true)
}

// HandleBufferInfo/HandleLinuxDmabuf record the compositor's per-frame
// buffer description.
func (s *WlrCaptureSession) HandleBufferInfo(fourcc uint32, width, height, stride int32) {
	s.reconfigureAndCopy(buffer.Config{
		Type:   buffer.TypeShm,
		Width:  width,
		Height: height,
		Stride: stride,
		Format: fourcc,
	})
}

func (s *WlrCaptureSession) HandleLinuxDmabuf(fourcc uint32, width, height int32, deviceNode string, modifiers []uint64) {
	s.reconfigureAndCopy(buffer.Config{
		Type:       buffer.TypeDMABuf,
		Width:      width,
		Height:     height,
		Format:     fourcc,
		Modifiers:  modifiers,
		DeviceNode: deviceNode,
	})
}

func (s *WlrCaptureSession) reconfigureAndCopy(cfg buffer.Config) {
	if s.rateFormat != nil && s.rateFormat(cfg.Type, buffer.DomainOutput, cfg.Format, 0) <= 0 {
		s.fail(fmt.Errorf("capture: format rejected by rate_format hook"))
		return
	}
	if _, err := s.pool.Reconfig(cfg); err != nil {
		s.fail(fmt.Errorf("capture: reconfig pool: %w", err))
		return
	}

	buf, err := s.pool.Acquire()
	if err != nil {
		s.fail(fmt.Errorf("capture: acquire buffer: %w", err))
		return
	}
	buf.Domain = buffer.DomainOutput
	// wlroots-screencopy buffers are y-inverted by default; HandleFlags
	// corrects this once the compositor's buffer_done flags event arrives.
	buf.YInverted = true
	s.current = buf
	s.state = wlrCopying

	// This backend ignores the source's reported damage rectangles and
	// always issues a plain copy rather than copy_with_damage.
	if err := s.driver.Copy(buf, false); err != nil {
		s.fail(fmt.Errorf("capture: copy: %w", err))
	}
}

// HandleFlags records the buffer_done y-inverted flag.
func (s *WlrCaptureSession) HandleFlags(yInverted bool) {
	if s.current != nil {
		s.current.YInverted = yInverted
	}
}

// HandleDamage is wired for protocol completeness but, as noted in
// reconfigureAndCopy, its rectangles are not consulted when deciding what
// to copy; they are only accumulated into the buffer's frame-damage.
func (s *WlrCaptureSession) HandleDamage(rect region.Rect) {
	if s.current != nil {
		s.current.FrameDamage.Union(rect)
	}
}

// HandleReady implements the delay-smoothing reschedule: it exponentially
// smooths the observed capture delay and arms the next capture at
// max(0, period-smoothedDelay).
func (s *WlrCaptureSession) HandleReady(pts uint64) {
	if s.current == nil {
		return
	}
	now := s.clock.Now()
	s.current.PTS = pts
	s.current.BufferDamage.Clear()

	done := s.current
	s.current = nil
	s.state = wlrIdle

	if s.onDone != nil {
		s.onDone(ResultDone, done, s.source)
	}

	wait := s.smooth.observe(s.startTime, now)
	if s.shouldStart {
		s.scheduleNext(wait)
	}
}

// HandleFailed re-issues the frame request.
func (s *WlrCaptureSession) HandleFailed() {
	s.current = nil
	s.state = wlrIdle
	if s.shouldStart {
		_ = s.beginFrame()
	}
}

func (s *WlrCaptureSession) fail(err error) {
	s.current = nil
	s.state = wlrIdle
	if s.onDone != nil {
		s.onDone(ResultFailed, nil, s.source)
	}
	_ = err // the error detail is dropped; OnDone only receives ResultFailed
}

// scheduleNext is the hook the wlclient event-loop timer infrastructure
// calls after `wait` elapses to begin the next frame (mirrors how
// ExtCaptureSession relies on its caller's timer to re-invoke Start).
func (s *WlrCaptureSession) scheduleNext(wait time.Duration) {
	if wait <= 0 {
		_ = s.beginFrame()
		return
	}
	// The real event loop arms a one-shot timer for `wait` that calls
	// beginFrame; tests drive this directly via NextDelay/FireTimer.
	s.pendingDelay = wait
}

// NextDelay returns the delay armed by the last HandleReady call, or -1 if
// none is pending. Exposed for the timer-driving event loop and for tests.
func (s *WlrCaptureSession) NextDelay() time.Duration {
	if s.pendingDelay == 0 {
		return -1
	}
	return s.pendingDelay
}

// FireTimer is called by the event loop once NextDelay has elapsed; it
// clears the pending delay and begins the next frame.
func (s *WlrCaptureSession) FireTimer() error {
	s.pendingDelay = 0
	if !s.shouldStart {
		return nil
	}
	return s.beginFrame()
}
