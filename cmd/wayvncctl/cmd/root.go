package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wayvnc-go/wayvnc/internal/controlplane"
	"github.com/wayvnc-go/wayvnc/internal/ctlclient"
)

var (
	// Version is set during build.
	Version = "0.1.0-dev"

	socketPath string
	jsonOutput bool
	waitFlag   int

	rootCmd = &cobra.Command{
		Use:          "wayvncctl",
		Short:        "wayvncctl - control a running wayvnc server over its Unix socket",
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "S", defaultSocketPath(), "Control socket path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit one compact JSON object per line instead of pretty text")
	rootCmd.PersistentFlags().IntVarP(&waitFlag, "wait", "w", controlplane.WaitNone, "Wait up to N milliseconds for the socket to appear (-1 = forever)")

	rootCmd.AddCommand(attachCmd, detachCmd, clientListCmd, clientDisconnectCmd,
		outputListCmd, outputCycleCmd, outputSetCmd, eventReceiveCmd, wayvncExitCmd, versionCmd)
}

func defaultSocketPath() string {
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		return xdg + "/wayvncctl"
	}
	return fmt.Sprintf("/tmp/wayvncctl-%d", os.Getuid())
}

// dial waits for the socket per --wait, then connects and returns a
// printer for the selected output format.
func dial() (*controlplane.Client, *ctlclient.Printer, error) {
	if waitFlag != controlplane.WaitNone {
		timeout := time.Duration(waitFlag) // preserves the WaitForever(-1) sentinel: only exactly 0 means fail-fast
		if waitFlag > 0 {
			timeout = time.Duration(waitFlag) * time.Millisecond
		}
		if err := controlplane.WaitForSocket(socketPath, timeout); err != nil {
			return nil, nil, err
		}
	}

	c, err := controlplane.Dial(socketPath)
	if err != nil {
		return nil, nil, err
	}

	format := ctlclient.FormatPretty
	if jsonOutput {
		format = ctlclient.FormatJSON
	}
	return c, ctlclient.NewPrinter(os.Stdout, format), nil
}
