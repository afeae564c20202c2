// Package publish is the glue that ties the capture pipeline to the RFB
// engine: it owns the active capture session, the damage refinery, and the
// RFB engine handle. Its Dispatcher type, built around a Publisher, is
// the controlplane.Dispatcher that answers wayvncctl's commands.
package publish

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wayvnc-go/wayvnc/internal/auth"
	"github.com/wayvnc-go/wayvnc/internal/buffer"
	"github.com/wayvnc-go/wayvnc/internal/capture"
	"github.com/wayvnc-go/wayvnc/internal/clipboard"
	"github.com/wayvnc-go/wayvnc/internal/controlplane"
	"github.com/wayvnc-go/wayvnc/internal/damage"
	"github.com/wayvnc-go/wayvnc/internal/gpu"
	"github.com/wayvnc-go/wayvnc/internal/input"
	"github.com/wayvnc-go/wayvnc/internal/logger"
	"github.com/wayvnc-go/wayvnc/internal/region"
	"github.com/wayvnc-go/wayvnc/internal/rfb"
	"github.com/wayvnc-go/wayvnc/internal/vinput"
	"github.com/wayvnc-go/wayvnc/internal/wlregistry"
)

// clientRecord tracks one connected VNC client beyond what rfb.ClientInfo
// carries, for client-list's connected_at.
type clientRecord struct {
	info        rfb.ClientInfo
	connectedAt time.Time
}

// Publisher wires a capture session's output into an RFB engine, forwards
// RFB input callbacks into the virtual-input sinks, and provides the
// operations the Dispatcher's command table calls.
type Publisher struct {
	registry *wlregistry.Registry
	mgr      capture.Manager
	rfbSess  rfb.Session
	authn    auth.Authenticator
	keymap   input.Keymap
	pointer  vinput.PointerSink
	keyboard vinput.KeyboardSink
	clip     clipboard.ClipboardChannel
	conv     gpu.ColorConverter
	server   *controlplane.Server

	preferDMABuf bool

	mu        sync.Mutex
	source    wlregistry.ImageSource
	session   capture.Session
	refinery  *damage.Refinery
	lastPTS   uint64
	clients   map[string]*clientRecord
	attached  bool
	pressMask uint8
}

// New builds a Publisher around its collaborators. server may be nil
// until SetServer is called (the control-plane socket is created after
// the publisher, since its Dispatcher wraps the publisher).
func New(registry *wlregistry.Registry, mgr capture.Manager, rfbSess rfb.Session, authn auth.Authenticator, keymap input.Keymap, pointer vinput.PointerSink, keyboard vinput.KeyboardSink, clip clipboard.ClipboardChannel, conv gpu.ColorConverter, preferDMABuf bool) *Publisher {
	p := &Publisher{
		registry:     registry,
		mgr:          mgr,
		rfbSess:      rfbSess,
		authn:        authn,
		keymap:       keymap,
		pointer:      pointer,
		keyboard:     keyboard,
		clip:         clip,
		conv:         conv,
		preferDMABuf: preferDMABuf,
		clients:      make(map[string]*clientRecord),
	}

	rfbSess.OnPointerEvent(p.handlePointerEvent)
	rfbSess.OnKeyEvent(p.handleKeyEvent)
	rfbSess.OnClipboardRequest(p.handleClipboardRequest)
	rfbSess.OnClipboardSet(p.handleClipboardSet)
	rfbSess.OnClientConnect(p.handleClientConnect)
	rfbSess.OnClientDisconnect(p.handleClientDisconnect)

	return p
}

// SetServer attaches the control-plane server this publisher broadcasts
// events through. Must be called before Attach for capture-changed events
// to reach subscribers.
func (p *Publisher) SetServer(s *controlplane.Server) { p.server = s }

// Attach starts capturing source and streaming updates into the RFB
// engine, replacing any previously attached source.
func (p *Publisher) Attach(source wlregistry.ImageSource) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil {
		p.session.Stop()
		p.session.Destroy()
	}

	sess, err := capture.Create(p.mgr, source, true)
	if err != nil {
		return fmt.Errorf("publish: attach %s: %w", source.Describe(), err)
	}

	w, h := source.Dimensions()
	if err := p.rfbSess.SetFramebuffer(w, h, rfb.PixelFormat{Fourcc: buffer.FourccXRGB8888}); err != nil {
		return fmt.Errorf("publish: set framebuffer for %s: %w", source.Describe(), err)
	}

	p.source = source
	p.session = sess
	p.refinery = damage.NewRefinery(w, h)
	p.attached = true

	sess.OnDone(p.handleCaptureDone)
	sess.SetRateFormat(p.rateFormat)
	if err := sess.Start(true); err != nil {
		return fmt.Errorf("publish: start capture on %s: %w", source.Describe(), err)
	}

	if p.server != nil {
		p.server.BroadcastEvent(controlplane.EventCaptureChanged, controlplane.CaptureChangedEvent{Output: source.Describe()})
	}
	return nil
}

// rateFormat is the capture.RateFormatFunc installed on every session this
// publisher attaches: it accepts the two pixel formats the RFB engine
// understands natively and prefers dmabuf over shm when preferDMABuf is
// set, but only for the linear modifier (the only one the dumb-buffer
// dmabuf backend in internal/buffer can ever produce).
func (p *Publisher) rateFormat(typ buffer.Type, domain buffer.Domain, fourcc uint32, modifier uint64) int {
	switch fourcc {
	case buffer.FourccXRGB8888, buffer.FourccARGB8888:
	default:
		return 0
	}

	switch typ {
	case buffer.TypeDMABuf:
		if !p.preferDMABuf || modifier != 0 {
			return 0
		}
		return 100
	case buffer.TypeShm:
		return 50
	default:
		return 0
	}
}

// Detach stops the active capture session without disconnecting clients.
func (p *Publisher) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.detachLocked()
}

func (p *Publisher) detachLocked() {
	if p.session != nil {
		p.session.Stop()
		p.session.Destroy()
		p.session = nil
	}
	p.source = nil
	p.attached = false
	if p.server != nil {
		p.server.BroadcastEvent(controlplane.EventDetached, struct{}{})
	}
}

// handleCaptureDone is installed as the active session's OnDone callback.
// On success it refines damage and pushes the update; on fatal failure it
// detaches so the publisher doesn't spin against a dead source.
func (p *Publisher) handleCaptureDone(result capture.Result, buf *buffer.Buffer, source wlregistry.ImageSource) {
	switch result {
	case capture.ResultDone:
		p.pushFrame(buf, source)
	case capture.ResultFatal:
		logger.Errorf("publish: fatal capture failure on %s, detaching", source.Describe())
		p.Detach()
	case capture.ResultFailed:
		logger.Warnf("publish: capture retry on %s", source.Describe())
	}
}

func (p *Publisher) pushFrame(buf *buffer.Buffer, source wlregistry.ImageSource) {
	p.mu.Lock()
	refinery := p.refinery
	p.mu.Unlock()
	if refinery == nil {
		return
	}

	hint := buf.FrameDamage.Bounds()
	if hint.Empty() {
		w, h := source.Dimensions()
		hint = region.Rect{X1: 0, Y1: 0, X2: w, Y2: h}
	}

	dirty, err := refinery.Refine(hint, buf)
	if err != nil {
		logger.Errorf("publish: refine damage: %v", err)
		return
	}
	if dirty.Empty() {
		return
	}

	if err := p.rfbSess.PushUpdate(buf, dirty); err != nil {
		logger.Errorf("publish: push update: %v", err)
	}
}

// handlePointerEvent translates one RFB pointer event into the virtual
// pointer sink's absolute-motion/button calls.
func (p *Publisher) handlePointerEvent(x, y int32, buttonMask uint8) {
	if p.pointer == nil {
		return
	}
	p.pointer.Move(x, y)

	p.mu.Lock()
	prev := p.pressMask
	p.pressMask = buttonMask
	p.mu.Unlock()

	for bit := uint8(0); bit < 8; bit++ {
		mask := uint8(1) << bit
		was, is := prev&mask != 0, buttonMask&mask != 0
		if was != is {
			p.pointer.Button(uint32(bit), is)
		}
	}
}

func (p *Publisher) handleKeyEvent(keysym uint32, down bool) {
	if p.keyboard == nil || p.keymap == nil {
		return
	}
	keycode, ok := p.keymap.Lookup(keysym)
	if !ok {
		return
	}
	p.keyboard.Key(keycode, down)
}

func (p *Publisher) handleClipboardRequest() []byte {
	if p.clip == nil {
		return nil
	}
	sel, err := p.clip.Get()
	if err != nil {
		logger.Warnf("publish: clipboard read: %v", err)
		return nil
	}
	return sel.Payload
}

func (p *Publisher) handleClipboardSet(data []byte) {
	if p.clip == nil {
		return
	}
	if err := p.clip.Set([]string{"text/plain;charset=utf-8"}, data); err != nil {
		logger.Warnf("publish: clipboard write: %v", err)
	}
}

func (p *Publisher) handleClientConnect(c rfb.ClientInfo) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	p.mu.Lock()
	p.clients[c.ID] = &clientRecord{info: c, connectedAt: time.Now()}
	count := len(p.clients)
	p.mu.Unlock()

	if p.server != nil {
		p.server.BroadcastEvent(controlplane.EventClientConnected, controlplane.ClientConnectedEvent{
			ID:              c.ID,
			ConnectionCount: count,
			Hostname:        c.Hostname,
			Username:        c.Username,
		})
	}
}

func (p *Publisher) handleClientDisconnect(id string) {
	p.mu.Lock()
	delete(p.clients, id)
	p.mu.Unlock()

	if p.server != nil {
		p.server.BroadcastEvent(controlplane.EventClientDisconnected, controlplane.ClientDisconnectedEvent{ID: id})
	}
}

// Authenticate is the seam the RFB engine binding calls before admitting
// a client, backed by the configured auth.Authenticator.
func (p *Publisher) Authenticate(username, password string) error {
	return p.authn.Authenticate(username, password)
}
