package publish

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/wayvnc-go/wayvnc/internal/controlplane"
	"github.com/wayvnc-go/wayvnc/internal/wlregistry"
)

// Version strings surfaced by the `version` command.
// RFBLib/EventLib describe the external collaborators this repo doesn't
// implement; they're reported as "external" since no
// concrete binding is compiled in.
const (
	VersionWayvnc = "0.1.0"
	VersionRFBLib = "external"
	VersionEvent  = "external"
)

// WayvncExitFunc is called once by the `wayvnc-exit` command. Wired by
// cmd/wayvnc to its own shutdown path.
type WayvncExitFunc func()

var _ controlplane.Dispatcher = (*Dispatcher)(nil)

// Dispatcher adapts a Publisher to controlplane.Dispatcher, owning the
// command table. Kept separate from Publisher so the wire-decoding
// concerns (unmarshal params, map to RPCError) don't leak into the
// capture/RFB wiring above.
type Dispatcher struct {
	pub      *Publisher
	registry *wlregistry.Registry
	onExit   WayvncExitFunc
}

// NewDispatcher builds the command-table glue around pub.
func NewDispatcher(pub *Publisher, registry *wlregistry.Registry, onExit WayvncExitFunc) *Dispatcher {
	return &Dispatcher{pub: pub, registry: registry, onExit: onExit}
}

func badParams(err error) *controlplane.RPCError {
	return &controlplane.RPCError{Code: controlplane.CodeEINVAL, Message: fmt.Sprintf("bad params: %v", err)}
}

func internalErr(err error) *controlplane.RPCError {
	return &controlplane.RPCError{Code: controlplane.CodeEIO, Message: err.Error()}
}

// Dispatch implements controlplane.Dispatcher. event-receive never
// reaches here; controlplane.Server answers it directly.
func (d *Dispatcher) Dispatch(client *controlplane.Client, method string, params json.RawMessage) (json.RawMessage, *controlplane.RPCError) {
	switch method {
	case controlplane.MethodAttach:
		return d.attach(params)
	case controlplane.MethodDetach:
		return d.detach()
	case controlplane.MethodHelp:
		return d.help(params)
	case controlplane.MethodVersion:
		return d.version()
	case controlplane.MethodClientList:
		return d.clientList()
	case controlplane.MethodClientDisconnect:
		return d.clientDisconnect(params)
	case controlplane.MethodOutputList:
		return d.outputList()
	case controlplane.MethodOutputCycle:
		return d.outputCycle()
	case controlplane.MethodOutputSet:
		return d.outputSet(params)
	case controlplane.MethodWayvncExit:
		return d.wayvncExit()
	default:
		return nil, &controlplane.RPCError{Code: controlplane.CodeENOENT, Message: fmt.Sprintf("unimplemented method %q", method)}
	}
}

func (d *Dispatcher) attach(raw json.RawMessage) (json.RawMessage, *controlplane.RPCError) {
	var params controlplane.AttachParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badParams(err)
		}
	}

	source, err := d.resolveSource(params.Display)
	if err != nil {
		return nil, badParams(err)
	}
	if err := d.pub.Attach(source); err != nil {
		return nil, internalErr(err)
	}
	return nil, nil
}

func (d *Dispatcher) resolveSource(display string) (wlregistry.ImageSource, error) {
	if display == "" {
		outputs := d.registry.Outputs()
		if len(outputs) == 0 {
			return nil, fmt.Errorf("no outputs available")
		}
		return outputs[0], nil
	}
	for _, o := range d.registry.Outputs() {
		if o.Name == display {
			return o, nil
		}
	}
	return nil, fmt.Errorf("no such output %q", display)
}

func (d *Dispatcher) detach() (json.RawMessage, *controlplane.RPCError) {
	d.pub.Detach()
	return nil, nil
}

func (d *Dispatcher) help(raw json.RawMessage) (json.RawMessage, *controlplane.RPCError) {
	var params controlplane.HelpParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, badParams(err)
		}
	}

	if params.Command != nil {
		return marshalOK(map[string]string{"help": helpForCommand(*params.Command)})
	}
	if params.EventName != nil {
		return marshalOK(map[string]string{"help": helpForEvent(*params.EventName)})
	}

	names := append([]string(nil), controlplane.AllMethods...)
	sort.Strings(names)
	return marshalOK(map[string][]string{"commands": names})
}

func helpForCommand(name string) string {
	return fmt.Sprintf("%s: see wayvncctl(1)", name)
}

func helpForEvent(name string) string {
	return fmt.Sprintf("%s: see wayvncctl(1) EVENTS", name)
}

func (d *Dispatcher) version() (json.RawMessage, *controlplane.RPCError) {
	return marshalOK(controlplane.VersionData{Wayvnc: VersionWayvnc, RFBLib: VersionRFBLib, EventLib: VersionEvent})
}

func (d *Dispatcher) clientList() (json.RawMessage, *controlplane.RPCError) {
	d.pub.mu.Lock()
	defer d.pub.mu.Unlock()

	out := make([]controlplane.ClientInfo, 0, len(d.pub.clients))
	for _, c := range d.pub.clients {
		out = append(out, controlplane.ClientInfo{
			ID:       c.info.ID,
			Hostname: c.info.Hostname,
			Username: c.info.Username,
			Seat:     c.info.Seat,
		})
	}
	return marshalOK(out)
}

func (d *Dispatcher) clientDisconnect(raw json.RawMessage) (json.RawMessage, *controlplane.RPCError) {
	var params controlplane.ClientDisconnectParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, badParams(err)
	}
	if err := d.pub.rfbSess.DisconnectClient(params.ID); err != nil {
		return nil, internalErr(err)
	}
	return nil, nil
}

func (d *Dispatcher) outputList() (json.RawMessage, *controlplane.RPCError) {
	d.pub.mu.Lock()
	current := d.pub.source
	d.pub.mu.Unlock()

	outputs := d.registry.Outputs()
	out := make([]controlplane.OutputInfo, 0, len(outputs))
	for _, o := range outputs {
		w, h := o.Dimensions()
		out = append(out, controlplane.OutputInfo{
			Name:        o.Name,
			Description: o.Describe(),
			Width:       w,
			Height:      h,
			Captured:    current == wlregistry.ImageSource(o),
			Power:       o.PowerState().String(),
		})
	}
	return marshalOK(out)
}

// outputCycle advances capture to the output after the currently
// attached one, wrapping around.
func (d *Dispatcher) outputCycle() (json.RawMessage, *controlplane.RPCError) {
	outputs := d.registry.Outputs()
	if len(outputs) == 0 {
		return nil, internalErr(fmt.Errorf("no outputs available"))
	}

	d.pub.mu.Lock()
	current := d.pub.source
	d.pub.mu.Unlock()

	next := outputs[0]
	for i, o := range outputs {
		if wlregistry.ImageSource(o) == current {
			next = outputs[(i+1)%len(outputs)]
			break
		}
	}

	if err := d.pub.Attach(next); err != nil {
		return nil, internalErr(err)
	}
	return nil, nil
}

func (d *Dispatcher) outputSet(raw json.RawMessage) (json.RawMessage, *controlplane.RPCError) {
	var params controlplane.OutputSetParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, badParams(err)
	}
	source, err := d.resolveSource(params.OutputName)
	if err != nil {
		return nil, badParams(err)
	}
	if err := d.pub.Attach(source); err != nil {
		return nil, internalErr(err)
	}
	return nil, nil
}

func (d *Dispatcher) wayvncExit() (json.RawMessage, *controlplane.RPCError) {
	if d.onExit != nil {
		go d.onExit()
	}
	return nil, nil
}

func marshalOK(v any) (json.RawMessage, *controlplane.RPCError) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, internalErr(err)
	}
	return b, nil
}
