// Package rfb defines the minimal interface a VNC/RFB protocol engine
// must satisfy to plug into this repo: the publisher hands it
// framebuffers and damage regions, and it calls back for keyboard,
// pointer, clipboard, and client lifecycle events. The actual RFB wire
// protocol implementation is a separate, embeddable library outside
// this repo's scope.
package rfb

import (
	"github.com/wayvnc-go/wayvnc/internal/buffer"
	"github.com/wayvnc-go/wayvnc/internal/region"
)

// PixelFormat describes the framebuffer layout the publisher hands the
// engine.
type PixelFormat struct {
	Fourcc    uint32
	YInverted bool
}

// ClientInfo is one connected VNC client, backing `client-list` and the `client-connected`/`client-disconnected` events.
type ClientInfo struct {
	ID        string
	Hostname  string
	Username  string
	Seat      string
}

// Session is the external RFB/VNC engine's interface as this core
// consumes it. A concrete binding over the real embedded library lives
// outside this repo; Stub substitutes an inert implementation so the
// rest of the pipeline links and runs without one.
type Session interface {
	SetFramebuffer(width, height int32, format PixelFormat) error
	PushUpdate(buf *buffer.Buffer, dirty region.Region) error

	OnPointerEvent(func(x, y int32, buttonMask uint8))
	OnKeyEvent(func(keysym uint32, down bool))
	OnClipboardRequest(func() []byte)
	OnClipboardSet(func(data []byte))
	OnClientConnect(func(c ClientInfo))
	OnClientDisconnect(func(id string))

	Clients() []ClientInfo
	DisconnectClient(id string) error

	Close() error
}
