package capture

import (
	"fmt"

	"github.com/wayvnc-go/wayvnc/internal/buffer"
	"github.com/wayvnc-go/wayvnc/internal/region"
	"github.com/wayvnc-go/wayvnc/internal/wlregistry"
)

// extState is the ext-image-copy-capture session state machine:
// Idle -> Constraining -> Ready <-> Capturing -> Ready/Failed/Fatal.
// Spelled out as an explicit enum rather than a timer+callback+bool
// tri-state.
type extState int

const (
	extIdle extState = iota
	extConstraining
	extReady
	extCapturing
	extFatal
)

// ExtDriver is the narrow surface the ext-image-copy-capture protocol
// gives a session: issue the constrain request, issue a capture against
// an acquired buffer, and tear the session down. Wire-level event
// delivery (shm_format, done, damage, ready, ...) is assumed provided and
// reaches this state machine through the Handle* methods below, not
// through this interface.
type ExtDriver interface {
	Constrain() error
	Capture(buf *buffer.Buffer, bufferDamage []region.Rect) error
	Destroy()
}

// ExtSessionBinder is implemented by ExtDriver values that need a
// reference back to the session they serve, so that the session/frame
// events they receive over the wire (shm_format, dmabuf_format, done,
// damage, ready, failed, ...) can be delivered into the session's own
// Handle* methods. Create/CreateCursor wire this automatically whenever
// the driver they receive from the Manager implements it.
type ExtSessionBinder interface {
	BindExtSession(sess *ExtCaptureSession)
}

// CursorEventSource is implemented by ExtDriver values returned from
// Manager.NewExtCursorDriver; CreateCursor wires its callbacks to the
// cursor session's own OnCursorEnter/OnCursorLeave/OnCursorHotspot hooks.
type CursorEventSource interface {
	SetCursorCallbacks(onEnter, onLeave func(), onHotspot func(x, y int32))
}

// ExtCaptureSession implements Session against the ext-image-copy-capture
// protocol.
type ExtCaptureSession struct {
	source wlregistry.ImageSource
	driver ExtDriver
	pool   *buffer.Pool
	rate   *rateLimiter
	clock  clock

	state            extState
	haveConstraints  bool
	candidates       []FormatCandidate
	shouldStart      bool
	immediateRequest bool
	framesDelivered  int
	current          *buffer.Buffer

	onDone          func(Result, *buffer.Buffer, wlregistry.ImageSource)
	rateFormat      RateFormatFunc
	onCursorEnter   func()
	onCursorLeave   func()
	onCursorHotspot func(x, y int32)
}

// NewExtCaptureSession wires a session against source, backed by pool and
// rate-limited at rateHz.
func NewExtCaptureSession(source wlregistry.ImageSource, driver ExtDriver, pool *buffer.Pool, rateHz float64) *ExtCaptureSession {
	return &ExtCaptureSession{
		source: source,
		driver: driver,
		pool:   pool,
		rate:   newRateLimiter(rateHz),
		clock:  realClock{},
		state:  extIdle,
	}
}

func (s *ExtCaptureSession) OnDone(f func(Result, *buffer.Buffer, wlregistry.ImageSource)) { s.onDone = f }
func (s *ExtCaptureSession) SetRateFormat(f RateFormatFunc)                                { s.rateFormat = f }
func (s *ExtCaptureSession) OnCursorEnter(f func())                                        { s.onCursorEnter = f }
func (s *ExtCaptureSession) OnCursorLeave(f func())                                         { s.onCursorLeave = f }
func (s *ExtCaptureSession) OnCursorHotspot(f func(x, y int32))                             { s.onCursorHotspot = f }

func (s *ExtCaptureSession) Capabilities() Capabilities {
	return CapabilityCursor | CapabilityTransform
}

// Start schedules a capture subject to the rate limiter. When immediate is
// set and this session has already delivered a frame, it first tears the
// capture session down and constrains a fresh one so the next frame is a
// full one; the rate limiter still applies to that frame.
func (s *ExtCaptureSession) Start(immediate bool) error {
	if s.state == extCapturing {
		return fmt.Errorf("capture: session already has a frame in flight")
	}
	if s.state == extFatal {
		return fmt.Errorf("capture: session is terminally failed")
	}

	s.shouldStart = true
	s.immediateRequest = s.immediateRequest || immediate

	if s.state == extIdle {
		s.state = extConstraining
		return s.driver.Constrain()
	}
	if s.state == extConstraining {
		return nil // will be picked up once constraints resolve (step 3)
	}
	// Ready: decide immediately or rate-limit.
	return s.maybeStart()
}

func (s *ExtCaptureSession) Stop() {
	s.shouldStart = false
}

func (s *ExtCaptureSession) Destroy() {
	s.driver.Destroy()
	s.state = extFatal
}

// HandleShmFormat/HandleDmabufFormat/HandleDmabufDevice/HandleBufferSize
// accumulate one constraint event each.
func (s *ExtCaptureSession) HandleShmFormat(fourcc uint32) {
	s.candidates = append(s.candidates, FormatCandidate{Type: buffer.TypeShm, Fourcc: fourcc})
}

func (s *ExtCaptureSession) HandleDmabufFormat(fourcc uint32, modifiers []uint64) {
	for _, m := range modifiers {
		s.candidates = append(s.candidates, FormatCandidate{Type: buffer.TypeDMABuf, Fourcc: fourcc, Modifier: m})
	}
}

// HandleConstraintsDone implements step 2: rate every candidate, sort,
// prefer dmabuf, reconfigure the pool, and transition to Ready.
func (s *ExtCaptureSession) HandleConstraintsDone(deviceNode string) error {
	if s.rateFormat == nil {
		return fmt.Errorf("capture: no rate_format hook installed")
	}

	best := FormatCandidate{}
	haveBest := false
	preferDMABuf := false
	for i := range s.candidates {
		c := &s.candidates[i]
		c.Score = s.rateFormat(c.Type, buffer.DomainOutput, c.Fourcc, c.Modifier)
		if c.Score > 0 && c.Type == buffer.TypeDMABuf {
			preferDMABuf = true
		}
	}
	for _, c := range s.candidates {
		if c.Score <= 0 || (preferDMABuf && c.Type != buffer.TypeDMABuf) {
			continue
		}
		if !haveBest || c.Score > best.Score {
			best = c
			haveBest = true
		}
	}
	if !haveBest {
		return fmt.Errorf("capture: no format candidate scored above zero")
	}

	cfg := buffer.Config{Type: best.Type, Format: best.Fourcc}
	if preferDMABuf && best.Type == buffer.TypeDMABuf {
		cfg.DeviceNode = deviceNode
		for _, c := range s.candidates {
			if c.Type == buffer.TypeDMABuf && c.Fourcc == best.Fourcc && c.Score == best.Score {
				cfg.Modifiers = append(cfg.Modifiers, c.Modifier)
			}
		}
	}

	w, h := s.source.Dimensions()
	cfg.Width, cfg.Height = w, h
	if cfg.Type == buffer.TypeShm {
		cfg.Stride = w * 4
	}

	if _, err := s.pool.Reconfig(cfg); err != nil {
		return fmt.Errorf("capture: reconfig pool: %w", err)
	}

	s.candidates = s.candidates[:0]
	s.haveConstraints = true
	s.state = extReady

	if s.shouldStart {
		return s.maybeStart()
	}
	return nil
}

// HandleNewConstraintEvent resets cached constraints when the compositor
// emits anything after a prior `done`.
func (s *ExtCaptureSession) HandleNewConstraintEvent() {
	if s.haveConstraints {
		s.haveConstraints = false
		s.candidates = s.candidates[:0]
		s.state = extConstraining
	}
}

func (s *ExtCaptureSession) maybeStart() error {
	now := s.clock.Now()

	if s.immediateRequest && s.framesDelivered > 0 {
		s.driver.Destroy()
		s.framesDelivered = 0
		s.state = extConstraining
		s.immediateRequest = false
		return s.driver.Constrain()
	}

	captureNow, _ := s.rate.decide(now)
	if !captureNow {
		return nil // caller's timer infrastructure re-invokes Start at waitUntil
	}

	buf, err := s.pool.Acquire()
	if err != nil {
		return fmt.Errorf("capture: acquire buffer: %w", err)
	}
	buf.Domain = buffer.DomainOutput
	// ext-image-copy-capture buffers are not y-inverted unless a future
	// transform event says otherwise; set explicitly rather than inheriting
	// whatever the shared pool last left on the buffer.
	buf.YInverted = false
	s.current = buf
	s.state = extCapturing

	return s.driver.Capture(buf, buf.BufferDamage.Rects())
}

// HandleReady implements step 6.
func (s *ExtCaptureSession) HandleReady(pts uint64) {
	if s.current == nil {
		return
	}
	s.current.PTS = pts
	s.current.BufferDamage.Clear()
	s.rate.markDone(s.clock.Now())
	s.framesDelivered++
	s.state = extReady

	done := s.current
	s.current = nil
	if s.onDone != nil {
		s.onDone(ResultDone, done, s.source)
	}

	if s.shouldStart {
		_ = s.maybeStart()
	}
}

// HandleDamage accumulates one compositor-reported damage rectangle into
// the in-flight buffer's frame-damage.
func (s *ExtCaptureSession) HandleDamage(rect region.Rect) {
	if s.current != nil {
		s.current.FrameDamage.Union(rect)
	}
}

// HandleFailed implements step 7: restart on buffer_constraints, else
// report Fatal.
func (s *ExtCaptureSession) HandleFailed(bufferConstraints bool) {
	s.current = nil
	if bufferConstraints {
		s.state = extConstraining
		_ = s.driver.Constrain()
		return
	}
	s.state = extFatal
	if s.onDone != nil {
		s.onDone(ResultFatal, nil, s.source)
	}
}
