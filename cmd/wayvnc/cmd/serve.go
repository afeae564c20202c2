package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rajveermalviya/go-wayland/wayland/client"
	"github.com/spf13/cobra"

	"github.com/wayvnc-go/wayvnc/internal/auth"
	"github.com/wayvnc-go/wayvnc/internal/buffer"
	"github.com/wayvnc-go/wayvnc/internal/clipboard"
	"github.com/wayvnc-go/wayvnc/internal/config"
	"github.com/wayvnc-go/wayvnc/internal/controlplane"
	"github.com/wayvnc-go/wayvnc/internal/gpu"
	"github.com/wayvnc-go/wayvnc/internal/input"
	"github.com/wayvnc-go/wayvnc/internal/logger"
	"github.com/wayvnc-go/wayvnc/internal/optparse"
	"github.com/wayvnc-go/wayvnc/internal/poweroff"
	"github.com/wayvnc-go/wayvnc/internal/publish"
	"github.com/wayvnc-go/wayvnc/internal/rfb"
	"github.com/wayvnc-go/wayvnc/internal/vinput"
	"github.com/wayvnc-go/wayvnc/internal/wlcapture"
	"github.com/wayvnc-go/wayvnc/internal/wlclient"
	"github.com/wayvnc-go/wayvnc/internal/wlclipboard"
	"github.com/wayvnc-go/wayvnc/internal/wlregistry"
	"github.com/wayvnc-go/wayvnc/internal/wlvinput"
)

// serveFlags is the declarative option table for `wayvnc serve`: output
// selection, config path, control socket path, cursor rendering (the
// render-cursor flag is parsed but has no effect: the publisher always
// asks capture to include the cursor). Parsed
// with optparse rather than cobra's own pflag set so clustering and
// attached-value short options (-ofoo) work the same way the rest of
// the CLI's flags do; serveCmd disables cobra's flag parsing and hands
// the raw argv to Parse instead.
var serveFlags = optparse.Spec{
	Options: []optparse.Option{
		{Name: "output", Short: 'o', Long: "output", TakesValue: true},
		{Name: "config", Short: 'C', Long: "config", TakesValue: true},
		{Name: "socket", Short: 'S', Long: "socket", TakesValue: true},
		{Name: "render-cursor", Short: 'r', Long: "render-cursor"},
	},
}

var serveCmd = &cobra.Command{
	Use:                "serve",
	Short:              "Run the VNC server against the current Wayland session",
	DisableFlagParsing: true,
	RunE:               runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	opts, err := optparse.Parse(serveFlags, args)
	if err != nil {
		return fmt.Errorf("wayvnc: %w", err)
	}

	if err := config.InitFromPath(opts.Values["config"]); err != nil {
		return fmt.Errorf("wayvnc: load config: %w", err)
	}
	cfg := config.Get()
	logger.SetLevel(cfg.LogLevel)

	if output, ok := opts.Values["output"]; ok {
		cfg.Capture.Output = output
	}
	socketPath := cfg.Control.SocketPath
	if s, ok := opts.Values["socket"]; ok {
		socketPath = s
	}
	renderCursor := opts.Bools["render-cursor"]

	session, err := wlclient.Connect("")
	if err != nil {
		return fmt.Errorf("wayvnc: %w", err)
	}
	defer session.Close()

	registry := wlregistry.NewRegistry()
	wlregistry.Bind(session, registry)

	bufRegistry := buffer.NewRegistry()
	capMgr := wlcapture.NewManager(session, bufRegistry, cfg.Capture.RateLimit)
	clipMgrBinding := wlclipboard.NewManager(session)
	vinputMgr := wlvinput.NewManager(session)

	// Two roundtrips: the first delivers every `global` announcement and
	// lets each handler above issue its own bind+sub-protocol requests;
	// the second collects whatever those sub-protocol objects reply with
	// (xdg-output geometry, output-power mode, seat capabilities).
	if err := session.Roundtrip(); err != nil {
		return fmt.Errorf("wayvnc: initial roundtrip: %w", err)
	}
	if err := session.Roundtrip(); err != nil {
		return fmt.Errorf("wayvnc: second roundtrip: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := session.Run(ctx); err != nil {
			logger.Errorf("wayland dispatch loop: %v", err)
		}
	}()

	var authn auth.Authenticator = auth.NoAuth{}
	if cfg.Auth.Enable && cfg.Auth.StaticToken != "" {
		authn = auth.StaticToken{Token: cfg.Auth.StaticToken}
	}

	keymap := input.NewUSLayout()

	pointer, keyboard := buildInputSinks(registry, vinputMgr)
	clip := buildClipboard(registry, clipMgrBinding)
	conv := gpu.Unsupported{}
	rfbSess := rfb.NewStub()

	pub := publish.New(registry, capMgr, rfbSess, authn, keymap, pointer, keyboard, clip, conv, cfg.Capture.PreferDMABuf)
	dispatcher := publish.NewDispatcher(pub, registry, func() { cancel(); os.Exit(0) })

	if socketPath == "" {
		socketPath = defaultSocketPath()
	}
	server, err := controlplane.New(socketPath, dispatcher)
	if err != nil {
		return fmt.Errorf("wayvnc: control socket: %w", err)
	}
	pub.SetServer(server)

	inhibitor, err := poweroff.Inhibit("wayvnc", "VNC client attached")
	if err != nil {
		logger.Warnf("wayvnc: sleep inhibit unavailable: %v", err)
	} else {
		defer inhibitor.Close()
	}

	if outputs := registry.Outputs(); len(outputs) > 0 {
		target := outputs[0]
		if cfg.Capture.Output != "" {
			for _, o := range outputs {
				if o.Name == cfg.Capture.Output {
					target = o
					break
				}
			}
		}
		if err := pub.Attach(target); err != nil {
			logger.Warnf("wayvnc: initial attach failed: %v", err)
		}
	}
	_ = renderCursor

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		server.Close()
		cancel()
		os.Exit(0)
	}()

	return server.Serve()
}

// buildInputSinks constructs the pointer/keyboard sinks. The pointer uses
// the compositor's virtual-pointer global when the first seat has one and
// uinput otherwise; the keyboard is always uinput-backed. A sink whose
// device cannot be created is returned as nil.
func buildInputSinks(registry *wlregistry.Registry, mgr *wlvinput.Manager) (vinput.PointerSink, vinput.KeyboardSink) {
	seats := registry.Seats()
	if len(seats) > 0 {
		if wlSeat, ok := seats[0].BoundObject().(*client.Seat); ok {
			outW, outH := int32(1920), int32(1080)
			if outputs := registry.Outputs(); len(outputs) > 0 {
				outW, outH = outputs[0].Dimensions()
			}
			if mgr.HasPointer() {
				if drv, err := mgr.NewPointerDriver(wlSeat); err == nil {
					pointer := vinput.NewWaylandPointer(drv, outW, outH)
					var keyboard vinput.KeyboardSink
					if kb, err := vinput.NewUinputKeyboard(); err == nil {
						keyboard = kb
					}
					return pointer, keyboard
				}
			}
		}
	}

	var pointer vinput.PointerSink
	if p, err := vinput.NewUinputPointer(); err != nil {
		logger.Warnf("wayvnc: uinput pointer unavailable: %v", err)
	} else {
		pointer = p
	}
	var keyboard vinput.KeyboardSink
	if kb, err := vinput.NewUinputKeyboard(); err != nil {
		logger.Warnf("wayvnc: uinput keyboard unavailable: %v", err)
	} else {
		keyboard = kb
	}
	return pointer, keyboard
}

// buildClipboard picks ext-data-control over wlr-data-control for the
// first seat that has one bound, matching capture's own ext-over-wlr
// preference.
func buildClipboard(registry *wlregistry.Registry, mgr *wlclipboard.Manager) clipboard.ClipboardChannel {
	seats := registry.Seats()
	if len(seats) == 0 {
		return nil
	}
	wlSeat, ok := seats[0].BoundObject().(*client.Seat)
	if !ok {
		return nil
	}
	ch, err := mgr.NewChannel(wlSeat)
	if err != nil {
		logger.Warnf("wayvnc: clipboard channel unavailable: %v", err)
		return nil
	}
	return ch
}

func defaultSocketPath() string {
	if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
		return xdg + "/wayvncctl"
	}
	return fmt.Sprintf("/tmp/wayvncctl-%d", os.Getuid())
}
