// Package wlclipboard binds the real zwlr_data_control_manager_v1 and
// ext_data_control_manager_v1 globals behind clipboard.ClipboardChannel,
// the way internal/wlcapture binds the screencopy globals behind
// capture.Manager: one Manager watches the registry for whichever
// protocol the compositor advertises, and hands back a small adapter
// satisfying clipboard's unexported driver interface.
package wlclipboard

import (
	"fmt"
	"io"
	"os"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	extdatacontrol "github.com/rajveermalviya/go-wayland/wayland/staging/ext-data-control"
	wlrdatacontrol "github.com/rajveermalviya/go-wayland/wayland/unstable/wlr-data-control"

	"github.com/wayvnc-go/wayvnc/internal/clipboard"
	"github.com/wayvnc-go/wayvnc/internal/logger"
	"github.com/wayvnc-go/wayvnc/internal/wlclient"
)

// Manager watches the registry for a data-control manager global and
// exposes whichever of wlr/ext it found.
type Manager struct {
	session *wlclient.Session

	wlrMgr *wlrdatacontrol.ZwlrDataControlManagerV1
	extMgr *extdatacontrol.ExtDataControlManagerV1
}

// NewManager binds session's registry, recording zwlr_data_control_manager_v1
// and ext_data_control_manager_v1 globals as either is announced. Must run
// before the initial Roundtrip, matching wlcapture.NewManager's contract.
func NewManager(session *wlclient.Session) *Manager {
	m := &Manager{session: session}

	session.Registry.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		switch e.Interface {
		case "zwlr_data_control_manager_v1":
			mgr := wlrdatacontrol.NewZwlrDataControlManagerV1(session.Registry.Context())
			if err := session.Registry.Bind(e.Name, e.Interface, e.Version, mgr); err != nil {
				logger.Errorf("bind zwlr_data_control_manager_v1: %v", err)
				return
			}
			m.wlrMgr = mgr
		case "ext_data_control_manager_v1":
			mgr := extdatacontrol.NewExtDataControlManagerV1(session.Registry.Context())
			if err := session.Registry.Bind(e.Name, e.Interface, e.Version, mgr); err != nil {
				logger.Errorf("bind ext_data_control_manager_v1: %v", err)
				return
			}
			m.extMgr = mgr
		}
	})

	return m
}

func (m *Manager) HasExt() bool { return m.extMgr != nil }
func (m *Manager) HasWlr() bool { return m.wlrMgr != nil }

// NewChannel constructs whichever protocol's ClipboardChannel the
// compositor offers for seat, preferring ext_data_control_v1, matching
// internal/capture.Create's "prefer the upstreamed ext protocol" rule.
func (m *Manager) NewChannel(seat *client.Seat) (clipboard.ClipboardChannel, error) {
	switch {
	case m.extMgr != nil:
		device, err := m.extMgr.GetDataDevice(seat)
		if err != nil {
			return nil, fmt.Errorf("wlclipboard: get_data_device: %w", err)
		}
		return clipboard.NewExtDataControl(newExtDriver(m.extMgr, device)), nil
	case m.wlrMgr != nil:
		device, err := m.wlrMgr.GetDataDevice(seat)
		if err != nil {
			return nil, fmt.Errorf("wlclipboard: get_data_device: %w", err)
		}
		return clipboard.NewWlrDataControl(newWlrDriver(m.wlrMgr, device)), nil
	default:
		return nil, fmt.Errorf("wlclipboard: no data-control manager bound")
	}
}

// pendingOffer tracks the MIME types advertised by a not-yet-selected
// data offer, shared by both driver variants below.
type pendingOffer struct {
	mimeTypes []string
}

// receivePipe runs the "write fd end to the client, read the other end
// ourselves" exchange every data-control receive request uses: open a
// pipe, hand the write end to the compositor via receive, close our copy
// of the write end, and read everything the compositor writes to the
// read end.
func receivePipe(receive func(mimeType string, fd uintptr) error, mimeType string) ([]byte, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("wlclipboard: pipe: %w", err)
	}
	if err := receive(mimeType, w.Fd()); err != nil {
		r.Close()
		w.Close()
		return nil, fmt.Errorf("wlclipboard: receive: %w", err)
	}
	w.Close()
	defer r.Close()
	return io.ReadAll(r)
}

// sendPipe runs the source side of the same exchange: the compositor
// hands us a write-end fd in its send event and we write payload to it.
func sendPipe(fd uintptr, payload []byte) {
	f := os.NewFile(fd, "wlclipboard-send")
	defer f.Close()
	_, _ = f.Write(payload)
}
