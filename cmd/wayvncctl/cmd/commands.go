package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wayvnc-go/wayvnc/internal/controlplane"
)

// call issues one request/response round trip over a fresh connection
// and prints the result: each invocation of wayvncctl is its own
// one-shot connection.
func call(method string, params any) error {
	c, printer, err := dial()
	if err != nil {
		return err
	}
	defer c.Close()

	resp, err := c.Call(method, params)
	if err != nil {
		return err
	}
	return printer.PrintResponse(method, resp)
}

var attachDisplay string

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Attach capture to an output (empty display selects the first one)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(controlplane.MethodAttach, controlplane.AttachParams{Display: attachDisplay})
	},
}

func init() {
	attachCmd.Flags().StringVarP(&attachDisplay, "output", "o", "", "Output name to attach")
}

var detachCmd = &cobra.Command{
	Use:   "detach",
	Short: "Detach the current capture session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(controlplane.MethodDetach, nil)
	},
}

var clientListCmd = &cobra.Command{
	Use:   "client-list",
	Short: "List connected VNC clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(controlplane.MethodClientList, nil)
	},
}

var clientDisconnectID string

var clientDisconnectCmd = &cobra.Command{
	Use:   "client-disconnect",
	Short: "Disconnect one VNC client by ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(controlplane.MethodClientDisconnect, controlplane.ClientDisconnectParams{ID: clientDisconnectID})
	},
}

func init() {
	clientDisconnectCmd.Flags().StringVarP(&clientDisconnectID, "id", "i", "", "Client ID to disconnect")
	clientDisconnectCmd.MarkFlagRequired("id")
}

var outputListCmd = &cobra.Command{
	Use:   "output-list",
	Short: "List outputs and which one is currently captured",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(controlplane.MethodOutputList, nil)
	},
}

var outputCycleCmd = &cobra.Command{
	Use:   "output-cycle",
	Short: "Capture the next output in the list, wrapping around",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(controlplane.MethodOutputCycle, nil)
	},
}

var outputSetName string

var outputSetCmd = &cobra.Command{
	Use:   "output-set",
	Short: "Capture a named output",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(controlplane.MethodOutputSet, controlplane.OutputSetParams{OutputName: outputSetName})
	},
}

func init() {
	outputSetCmd.Flags().StringVarP(&outputSetName, "output", "o", "", "Output name to capture")
	outputSetCmd.MarkFlagRequired("output")
}

var wayvncExitCmd = &cobra.Command{
	Use:   "wayvnc-exit",
	Short: "Ask the server to shut down",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(controlplane.MethodWayvncExit, nil)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the server's version info",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(controlplane.MethodVersion, nil)
	},
}

var eventReceiveCmd = &cobra.Command{
	Use:   "event-receive",
	Short: "Subscribe to server events and print them until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, printer, err := dial()
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Register(); err != nil {
			return fmt.Errorf("wayvncctl: %w", err)
		}
		return c.Run(func(method string, params json.RawMessage) {
			_ = printer.PrintEvent(controlplane.Event{Method: method, Params: params})
		})
	},
}
