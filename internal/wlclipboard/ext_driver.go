package wlclipboard

import (
	"fmt"
	"sync"

	extdatacontrol "github.com/rajveermalviya/go-wayland/wayland/staging/ext-data-control"

	"github.com/wayvnc-go/wayvnc/internal/clipboard"
)

// extDriver adapts ext_data_control_device_v1/source_v1/offer_v1 to
// clipboard's driver interface.
type extDriver struct {
	mgr    *extdatacontrol.ExtDataControlManagerV1
	device *extdatacontrol.ExtDataControlDeviceV1

	mu      sync.Mutex
	current *extdatacontrol.ExtDataControlOfferV1
	offers  map[*extdatacontrol.ExtDataControlOfferV1]*pendingOffer
}

func newExtDriver(mgr *extdatacontrol.ExtDataControlManagerV1, device *extdatacontrol.ExtDataControlDeviceV1) *extDriver {
	d := &extDriver{mgr: mgr, device: device, offers: map[*extdatacontrol.ExtDataControlOfferV1]*pendingOffer{}}

	device.SetDataOfferHandler(func(e extdatacontrol.ExtDataControlDeviceV1DataOfferEvent) {
		offer := e.ID
		d.mu.Lock()
		d.offers[offer] = &pendingOffer{}
		d.mu.Unlock()

		offer.SetOfferHandler(func(oe extdatacontrol.ExtDataControlOfferV1OfferEvent) {
			d.mu.Lock()
			if p, ok := d.offers[offer]; ok {
				p.mimeTypes = append(p.mimeTypes, oe.MimeType)
			}
			d.mu.Unlock()
		})
	})

	device.SetSelectionHandler(func(e extdatacontrol.ExtDataControlDeviceV1SelectionEvent) {
		d.mu.Lock()
		d.current = e.ID
		d.mu.Unlock()
	})

	return d
}

func (d *extDriver) SetSelection(mimeTypes []string, payload []byte) error {
	source, err := d.mgr.CreateDataSource()
	if err != nil {
		return fmt.Errorf("wlclipboard: create_data_source: %w", err)
	}
	for _, mt := range mimeTypes {
		if err := source.Offer(mt); err != nil {
			return fmt.Errorf("wlclipboard: offer %q: %w", mt, err)
		}
	}
	source.SetSendHandler(func(e extdatacontrol.ExtDataControlSourceV1SendEvent) {
		sendPipe(e.Fd, payload)
	})
	source.SetCancelledHandler(func(_ extdatacontrol.ExtDataControlSourceV1CancelledEvent) {
		_ = source.Destroy()
	})
	return d.device.SetSelection(source)
}

func (d *extDriver) ReadSelection() (clipboard.Selection, error) {
	d.mu.Lock()
	offer := d.current
	var mimeTypes []string
	if offer != nil {
		if p, ok := d.offers[offer]; ok {
			mimeTypes = append(mimeTypes, p.mimeTypes...)
		}
	}
	d.mu.Unlock()

	if offer == nil || len(mimeTypes) == 0 {
		return clipboard.Selection{Direction: clipboard.FromCompositor}, nil
	}

	payload, err := receivePipe(func(mimeType string, fd uintptr) error {
		return offer.Receive(mimeType, fd)
	}, mimeTypes[0])
	if err != nil {
		return clipboard.Selection{}, err
	}
	return clipboard.Selection{Direction: clipboard.FromCompositor, MimeTypes: mimeTypes, Payload: payload}, nil
}

func (d *extDriver) Destroy() error {
	return d.device.Destroy()
}
