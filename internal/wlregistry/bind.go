package wlregistry

import (
	"github.com/rajveermalviya/go-wayland/wayland/client"
	toplevellist "github.com/rajveermalviya/go-wayland/wayland/staging/ext-foreign-toplevel-list"
	xdgoutput "github.com/rajveermalviya/go-wayland/wayland/unstable/xdg-output"
	outputpower "github.com/rajveermalviya/go-wayland/wayland/unstable/wlr-output-power"

	"github.com/wayvnc-go/wayvnc/internal/logger"
	"github.com/wayvnc-go/wayvnc/internal/wlclient"
)

// Bind attaches a global_handler/global_remove_handler pair to session's
// registry that populates r as wl_output and wl_seat globals arrive.
// xdgOutputManager/powerManager may be nil if the
// corresponding compositor extension isn't advertised; outputs created
// before those globals are seen get no power binding and default
// geometry, matching "acquire_power_on returns -1 if the extension is
// absent".
func Bind(session *wlclient.Session, r *Registry) {
	var xdgOutputManager *xdgoutput.ZxdgOutputManagerV1
	var powerManager *outputpower.ZwlrOutputPowerManagerV1

	session.Registry.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		switch e.Interface {
		case "wl_output":
			bindOutput(session, r, e.Name, e.Version, xdgOutputManager, powerManager)
		case "wl_seat":
			bindSeat(session, r, e.Name, e.Version)
		case "zxdg_output_manager_v1":
			m := xdgoutput.NewZxdgOutputManagerV1(session.Registry.Context())
			if err := session.Registry.Bind(e.Name, e.Interface, e.Version, m); err != nil {
				logger.Errorf("bind zxdg_output_manager_v1: %v", err)
				return
			}
			xdgOutputManager = m
		case "zwlr_output_power_manager_v1":
			m := outputpower.NewZwlrOutputPowerManagerV1(session.Registry.Context())
			if err := session.Registry.Bind(e.Name, e.Interface, e.Version, m); err != nil {
				logger.Errorf("bind zwlr_output_power_manager_v1: %v", err)
				return
			}
			powerManager = m
		case "ext_foreign_toplevel_list_v1":
			bindToplevelManager(session, r, e.Name, e.Version)
		}
	})

	session.Registry.SetGlobalRemoveHandler(func(e client.RegistryGlobalRemoveEvent) {
		r.RemoveOutput(e.Name)
		r.RemoveSeat(e.Name)
	})
}

func bindOutput(session *wlclient.Session, r *Registry, name, version uint32, xdgMgr *xdgoutput.ZxdgOutputManagerV1, powerMgr *outputpower.ZwlrOutputPowerManagerV1) {
	wlOutput := client.NewOutput(session.Registry.Context())
	if err := session.Registry.Bind(name, "wl_output", version, wlOutput); err != nil {
		logger.Errorf("bind wl_output: %v", err)
		return
	}

	var binding PowerBinding
	if powerMgr != nil {
		powerObj, err := powerMgr.GetOutputPower(wlOutput)
		if err != nil {
			logger.Errorf("get_output_power: %v", err)
		} else {
			binding = &powerBinding{obj: powerObj}
		}
	}

	o := NewOutput(name, binding)

	wlOutput.SetGeometryHandler(func(e client.OutputGeometryEvent) {
		o.Make = e.Make
		o.Model = e.Model
		o.SetGeometry(o.X, o.Y, o.Width, o.Height, o.Name)
	})
	wlOutput.SetModeHandler(func(e client.OutputModeEvent) {
		o.SetGeometry(o.X, o.Y, e.Width, e.Height, o.Name)
	})
	wlOutput.SetNameHandler(func(e client.OutputNameEvent) {
		o.SetGeometry(o.X, o.Y, o.Width, o.Height, e.Name)
	})
	wlOutput.SetDescriptionHandler(func(e client.OutputDescriptionEvent) {
		o.Description = e.Description
	})

	if xdgMgr != nil {
		xdgOut, err := xdgMgr.GetXdgOutput(wlOutput)
		if err != nil {
			logger.Errorf("get_xdg_output: %v", err)
		} else {
			xdgOut.SetLogicalPositionHandler(func(e xdgoutput.ZxdgOutputV1LogicalPositionEvent) {
				o.SetGeometry(e.X, e.Y, o.Width, o.Height, o.Name)
			})
			xdgOut.SetLogicalSizeHandler(func(e xdgoutput.ZxdgOutputV1LogicalSizeEvent) {
				o.SetGeometry(o.X, o.Y, e.Width, e.Height, o.Name)
			})
			xdgOut.SetNameHandler(func(e xdgoutput.ZxdgOutputV1NameEvent) {
				o.SetGeometry(o.X, o.Y, o.Width, o.Height, e.Name)
			})
		}
	}

	if powerMgr != nil && binding != nil {
		binding.(*powerBinding).obj.SetModeHandler(func(e outputpower.ZwlrOutputPowerV1ModeEvent) {
			if e.Mode == 1 {
				o.SetPower(PowerOn)
			} else {
				o.SetPower(PowerOff)
			}
		})
		binding.(*powerBinding).obj.SetFailedHandler(func(_ outputpower.ZwlrOutputPowerV1FailedEvent) {
			o.SetPower(PowerUnknown)
		})
	}

	o.SetBoundObject(wlOutput)
	r.AddOutput(o)
}

func bindSeat(session *wlclient.Session, r *Registry, name, version uint32) {
	wlSeat := client.NewSeat(session.Registry.Context())
	if err := session.Registry.Bind(name, "wl_seat", version, wlSeat); err != nil {
		logger.Errorf("bind wl_seat: %v", err)
		return
	}

	s := &Seat{ID: name}
	s.SetBoundObject(wlSeat)
	wlSeat.SetCapabilitiesHandler(func(e client.SeatCapabilitiesEvent) {
		s.Capabilities = uint32(e.Capabilities)
	})
	wlSeat.SetNameHandler(func(e client.SeatNameEvent) {
		s.Name = e.Name
	})

	r.AddSeat(s)
}

// powerBinding adapts a bound zwlr_output_power_v1 object to the narrow
// PowerBinding interface Output consumes.
type powerBinding struct {
	obj *outputpower.ZwlrOutputPowerV1
}

func (p *powerBinding) RequestOn() error {
	return p.obj.SetMode(1)
}

func (p *powerBinding) Release() {
	if err := p.obj.Destroy(); err != nil {
		logger.Errorf("release output power binding: %v", err)
	}
}
