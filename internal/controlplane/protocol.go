// Package controlplane implements a Unix-socket line-framed JSON-RPC
// control plane: a server that dispatches enumerated commands and
// broadcasts events to subscribed clients, and a client that parses
// responses/events, reconnects on ECONNRESET, and pretty-prints output.
// Wire framing is newline-agnostic concatenated JSON objects, decoded
// with encoding/json.Decoder's streaming Decode.
package controlplane

import "encoding/json"

// Request is one client->server call. Responses are
// requests with no Method that instead carry Code/Data; events are
// requests with a Method but no ID.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
	ID     any             `json:"id,omitempty"`
}

// Response is one server->client reply. Code 0 is success;
// nonzero is failure, with Data commonly carrying {"error": "..."}.
type Response struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data,omitempty"`
	ID   any             `json:"id,omitempty"`
}

// Event is a server->client unsolicited notification: a Request-shaped
// object with a Method and Params but no ID.
type Event struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Error codes, matching errno-style semantics even though delivered
// over JSON rather than a syscall boundary.
const (
	CodeOK           = 0
	CodeENOENT       = 2  // unknown_method
	CodeEIO          = 5  // internal
	CodeEINVAL       = 22 // bad_params
	CodeECONNRESET   = 104
)

// RPCError is a user-facing control-plane error: always surfaced to the
// requesting control client only, never logged above DEBUG.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string { return e.Message }

// Method names, matching the command table exactly.
const (
	MethodAttach            = "attach"
	MethodDetach             = "detach"
	MethodHelp               = "help"
	MethodVersion            = "version"
	MethodEventReceive       = "event-receive"
	MethodClientList         = "client-list"
	MethodClientDisconnect   = "client-disconnect"
	MethodOutputList         = "output-list"
	MethodOutputCycle        = "output-cycle"
	MethodOutputSet          = "output-set"
	MethodWayvncExit         = "wayvnc-exit"
)

// Event names, matching the event table.
const (
	EventCaptureChanged     = "capture-changed"
	EventClientConnected    = "client-connected"
	EventClientDisconnected = "client-disconnected"
	EventDetached           = "detached"
)

// AllMethods is the list surfaced in an unknown_method response's
// "commands" field.
var AllMethods = []string{
	MethodAttach, MethodDetach, MethodHelp, MethodVersion, MethodEventReceive,
	MethodClientList, MethodClientDisconnect, MethodOutputList, MethodOutputCycle,
	MethodOutputSet, MethodWayvncExit,
}

// AttachParams is the `attach` method's param object.
type AttachParams struct {
	Display string `json:"display"`
}

// HelpParams is the `help` method's param object: exactly one of Command
// or EventName may be set.
type HelpParams struct {
	Command   *string `json:"command,omitempty"`
	EventName *string `json:"event,omitempty"`
}

// VersionData is the `version` method's success payload.
type VersionData struct {
	Wayvnc   string `json:"wayvnc"`
	RFBLib   string `json:"rfb-lib"`
	EventLib string `json:"event-lib"`
}

// ClientInfo is one entry of `client-list`'s array.
type ClientInfo struct {
	ID       string `json:"id"`
	Hostname string `json:"hostname,omitempty"`
	Username string `json:"username,omitempty"`
	Seat     string `json:"seat,omitempty"`
}

// ClientDisconnectParams is `client-disconnect`'s param object.
type ClientDisconnectParams struct {
	ID string `json:"id"`
}

// OutputInfo is one entry of `output-list`'s array.
type OutputInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Width       int32  `json:"width"`
	Height      int32  `json:"height"`
	Captured    bool   `json:"captured"`
	Power       string `json:"power"`
}

// OutputSetParams is `output-set`'s param object.
type OutputSetParams struct {
	OutputName string `json:"output-name"`
}

// CaptureChangedEvent is the `capture-changed` event's param object.
type CaptureChangedEvent struct {
	Output string `json:"output"`
}

// ClientConnectedEvent is the `client-connected` event's param object.
type ClientConnectedEvent struct {
	ID               string `json:"id"`
	ConnectionCount  int    `json:"connection_count"`
	Hostname         string `json:"hostname,omitempty"`
	Username         string `json:"username,omitempty"`
}

// ClientDisconnectedEvent is the `client-disconnected` event's param object.
type ClientDisconnectedEvent struct {
	ID string `json:"id"`
}

// newErrorData builds a Response.Data payload of {"error": message}.
func newErrorData(message string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"error": message})
	return b
}

// newCommandsErrorData builds the unknown_method payload of
// {"error": message, "commands": [...]}.
func newCommandsErrorData(message string, commands []string) json.RawMessage {
	b, _ := json.Marshal(struct {
		Error    string   `json:"error"`
		Commands []string `json:"commands"`
	}{message, commands})
	return b
}
