package rfb

import (
	"fmt"
	"sync"

	"github.com/wayvnc-go/wayvnc/internal/buffer"
	"github.com/wayvnc-go/wayvnc/internal/region"
)

// Stub is a Session that accepts no network connections: it satisfies
// every call in this interface but never calls back. It lets cmd/wayvnc
// link and run the rest of the pipeline — capture, damage, control
// plane — without a real VNC listener attached.
type Stub struct {
	mu           sync.Mutex
	onPointer    func(x, y int32, buttonMask uint8)
	onKey        func(keysym uint32, down bool)
	onClipReq    func() []byte
	onClipSet    func(data []byte)
	onConnect    func(c ClientInfo)
	onDisconnect func(id string)
}

func NewStub() *Stub { return &Stub{} }

func (s *Stub) SetFramebuffer(width, height int32, format PixelFormat) error { return nil }
func (s *Stub) PushUpdate(buf *buffer.Buffer, dirty region.Region) error    { return nil }

func (s *Stub) OnPointerEvent(f func(x, y int32, buttonMask uint8)) { s.onPointer = f }
func (s *Stub) OnKeyEvent(f func(keysym uint32, down bool))         { s.onKey = f }
func (s *Stub) OnClipboardRequest(f func() []byte)                 { s.onClipReq = f }
func (s *Stub) OnClipboardSet(f func(data []byte))                 { s.onClipSet = f }
func (s *Stub) OnClientConnect(f func(c ClientInfo))               { s.onConnect = f }
func (s *Stub) OnClientDisconnect(f func(id string))               { s.onDisconnect = f }

func (s *Stub) Clients() []ClientInfo { return nil }

func (s *Stub) DisconnectClient(id string) error {
	return fmt.Errorf("rfb: stub session has no connected clients")
}

func (s *Stub) Close() error { return nil }
