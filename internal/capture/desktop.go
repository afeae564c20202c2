package capture

import (
	"fmt"

	"github.com/wayvnc-go/wayvnc/internal/buffer"
	"github.com/wayvnc-go/wayvnc/internal/wlregistry"
)

// SubSessionFactory creates a per-output capture session for one edge of a
// desktop aggregator. Supplied by Create so the
// desktop backend doesn't need to know which concrete backend each output
// is captured with.
type SubSessionFactory func(source wlregistry.ImageSource) (Session, error)

// DesktopCaptureSession implements Session against a desktop image source
// by fanning a single logical capture across every one of its outputs.
// Sub-session on_done callbacks are funneled through a
// single trampoline that preserves each sub-capture's own source so the
// publisher can tell outputs apart.
type DesktopCaptureSession struct {
	desktop *wlregistry.Desktop
	makeSub SubSessionFactory

	subs []Session

	onDone     func(Result, *buffer.Buffer, wlregistry.ImageSource)
	rateFormat RateFormatFunc
}

// NewDesktopCaptureSession wires a desktop aggregator session; makeSub is
// invoked once per output the desktop holds at the first Start (or the
// first Start after Destroy). Outputs added to the desktop afterwards are
// not captured by an already-started session.
func NewDesktopCaptureSession(desktop *wlregistry.Desktop, makeSub SubSessionFactory) *DesktopCaptureSession {
	return &DesktopCaptureSession{desktop: desktop, makeSub: makeSub}
}

func (s *DesktopCaptureSession) OnDone(f func(Result, *buffer.Buffer, wlregistry.ImageSource)) {
	s.onDone = f
}

func (s *DesktopCaptureSession) SetRateFormat(f RateFormatFunc) {
	s.rateFormat = f
	for _, sub := range s.subs {
		sub.SetRateFormat(f)
	}
}

func (s *DesktopCaptureSession) OnCursorEnter(func())            {}
func (s *DesktopCaptureSession) OnCursorLeave(func())             {}
func (s *DesktopCaptureSession) OnCursorHotspot(func(x, y int32)) {}

func (s *DesktopCaptureSession) Capabilities() Capabilities {
	return CapabilityTransform
}

// Start iterates the desktop's edges and starts a per-output sub-capture,
// each configured with the same rate-limit and dmabuf flag as the caller
// originally gave the factory.
func (s *DesktopCaptureSession) Start(immediate bool) error {
	if s.subs == nil {
		for _, out := range s.desktop.Outputs() {
			if err := s.addOutput(out); err != nil {
				return err
			}
		}
	}
	for _, sub := range s.subs {
		if err := sub.Start(immediate); err != nil {
			return fmt.Errorf("capture: desktop sub-session start: %w", err)
		}
	}
	return nil
}

func (s *DesktopCaptureSession) addOutput(out *wlregistry.Output) error {
	sub, err := s.makeSub(out)
	if err != nil {
		return fmt.Errorf("capture: desktop sub-session for %s: %w", out.Describe(), err)
	}
	sub.SetRateFormat(s.rateFormat)
	sub.OnDone(func(result Result, buf *buffer.Buffer, source wlregistry.ImageSource) {
		if s.onDone != nil {
			// source is the sub-session's own originating output, not the
			// desktop: the trampoline preserves it so the publisher can
			// identify which output produced the buffer.
			s.onDone(result, buf, source)
		}
	})
	s.subs = append(s.subs, sub)
	return nil
}

func (s *DesktopCaptureSession) Stop() {
	for _, sub := range s.subs {
		sub.Stop()
	}
}

func (s *DesktopCaptureSession) Destroy() {
	for _, sub := range s.subs {
		sub.Destroy()
	}
	s.subs = nil
}
