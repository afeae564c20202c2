package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Version is set during build.
	Version = "0.1.0-dev"

	rootCmd = &cobra.Command{
		Use:   "wayvnc",
		Short: "wayvnc - a VNC server for wlroots based Wayland compositors",
		Long: `wayvnc exports a Wayland compositor's output over the RFB/VNC protocol
and forwards VNC input back into the compositor as virtual pointer and
keyboard events.`,
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

	rootCmd.AddCommand(serveCmd)
}
