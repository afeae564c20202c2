// Package ctlclient formats wayvncctl's request/response/event traffic
// for a terminal: compact one-object-per-line JSON, or a per-command
// "pretty" rendering, matching the two output formats. Request
// dispatch itself stays in internal/controlplane; this package only
// turns its Response/Event values into text.
package ctlclient

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wayvnc-go/wayvnc/internal/controlplane"
)

// Format selects compact JSON or human-friendly pretty-printing.
type Format int

const (
	FormatPretty Format = iota
	FormatJSON
)

// Printer writes responses and events to an output stream in the
// selected format.
type Printer struct {
	w      io.Writer
	format Format
}

func NewPrinter(w io.Writer, format Format) *Printer {
	return &Printer{w: w, format: format}
}

// PrintResponse renders one method's Response. method names which
// command produced it, since Response itself doesn't carry the name.
func (p *Printer) PrintResponse(method string, resp controlplane.Response) error {
	if p.format == FormatJSON {
		return p.printJSONLine(resp)
	}
	return p.printPrettyResponse(method, resp)
}

// PrintEvent renders one broadcast Event.
func (p *Printer) PrintEvent(ev controlplane.Event) error {
	if p.format == FormatJSON {
		return p.printJSONLine(ev)
	}
	return p.printPrettyEvent(ev)
}

func (p *Printer) printJSONLine(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ctlclient: marshal: %w", err)
	}
	_, err = fmt.Fprintln(p.w, string(b))
	return err
}

func (p *Printer) printPrettyResponse(method string, resp controlplane.Response) error {
	if resp.Code != controlplane.CodeOK {
		var errData struct {
			Error    string   `json:"error"`
			Commands []string `json:"commands,omitempty"`
		}
		_ = json.Unmarshal(resp.Data, &errData)
		_, err := fmt.Fprintf(p.w, "error: %s (code %d)\n", errData.Error, resp.Code)
		if len(errData.Commands) > 0 {
			sort.Strings(errData.Commands)
			fmt.Fprintf(p.w, "known commands: %s\n", strings.Join(errData.Commands, ", "))
		}
		return err
	}

	switch method {
	case controlplane.MethodVersion:
		return p.prettyVersion(resp.Data)
	case controlplane.MethodClientList:
		return p.prettyClientList(resp.Data)
	case controlplane.MethodOutputList:
		return p.prettyOutputList(resp.Data)
	default:
		if len(resp.Data) == 0 {
			_, err := fmt.Fprintln(p.w, "ok")
			return err
		}
		return p.printYAMLish(resp.Data)
	}
}

func (p *Printer) prettyVersion(data json.RawMessage) error {
	var v controlplane.VersionData
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("ctlclient: unmarshal version: %w", err)
	}
	_, err := fmt.Fprintf(p.w, "wayvnc: %s\nrfb-lib: %s\nevent-lib: %s\n", v.Wayvnc, v.RFBLib, v.EventLib)
	return err
}

func (p *Printer) prettyClientList(data json.RawMessage) error {
	var clients []controlplane.ClientInfo
	if err := json.Unmarshal(data, &clients); err != nil {
		return fmt.Errorf("ctlclient: unmarshal client list: %w", err)
	}
	if len(clients) == 0 {
		_, err := fmt.Fprintln(p.w, "no clients connected")
		return err
	}
	for _, c := range clients {
		if _, err := fmt.Fprintf(p.w, "%s  host=%s  user=%s  seat=%s\n", c.ID, c.Hostname, c.Username, c.Seat); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) prettyOutputList(data json.RawMessage) error {
	var outputs []controlplane.OutputInfo
	if err := json.Unmarshal(data, &outputs); err != nil {
		return fmt.Errorf("ctlclient: unmarshal output list: %w", err)
	}
	for _, o := range outputs {
		marker := " "
		if o.Captured {
			marker = "*"
		}
		if _, err := fmt.Fprintf(p.w, "%s %-12s %4dx%-4d power=%-8s %s\n", marker, o.Name, o.Width, o.Height, o.Power, o.Description); err != nil {
			return err
		}
	}
	return nil
}

// printYAMLish renders an arbitrary JSON value as indented "key: value"
// lines.
func (p *Printer) printYAMLish(data json.RawMessage) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("ctlclient: unmarshal: %w", err)
	}
	return writeYAMLish(p.w, v, 0)
}

func (p *Printer) printPrettyEvent(ev controlplane.Event) error {
	if _, err := fmt.Fprintf(p.w, "%s:\n", ev.Method); err != nil {
		return err
	}
	return p.printYAMLish(ev.Params)
}

func writeYAMLish(w io.Writer, v any, indent int) error {
	pad := strings.Repeat("  ", indent)
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			switch child := val[k].(type) {
			case map[string]any, []any:
				if _, err := fmt.Fprintf(w, "%s%s:\n", pad, k); err != nil {
					return err
				}
				if err := writeYAMLish(w, child, indent+1); err != nil {
					return err
				}
			default:
				if _, err := fmt.Fprintf(w, "%s%s: %v\n", pad, k, child); err != nil {
					return err
				}
			}
		}
	case []any:
		for _, item := range val {
			if _, err := fmt.Fprintf(w, "%s- %v\n", pad, item); err != nil {
				return err
			}
		}
	default:
		_, err := fmt.Fprintf(w, "%s%v\n", pad, val)
		return err
	}
	return nil
}
