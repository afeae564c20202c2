// Package wlclient owns the single Wayland display connection and its
// dispatch loop. It is the seam between this program's business logic and
// the wire-protocol marshalling provided by a client library — everything
// past Connect talks to github.com/rajveermalviya/go-wayland/wayland/client
// directly. The binding packages (wlregistry, wlcapture, wlclipboard,
// wlvinput) and the serve command import that library as well.
package wlclient

import (
	"context"
	"fmt"

	"github.com/rajveermalviya/go-wayland/wayland/client"

	"github.com/wayvnc-go/wayvnc/internal/logger"
)

// Session wraps one connected Wayland display and runs its dispatch loop
// on a dedicated goroutine, matching the "dispatcher goroutine owns the
// display's Dispatch loop" concurrency idiom.
type Session struct {
	Display  *client.Display
	Registry *client.Registry

	errs chan error
}

// Connect opens display (empty string selects $WAYLAND_DISPLAY) and
// fetches the global registry.
func Connect(display string) (*Session, error) {
	dsp, err := client.Connect(display)
	if err != nil {
		return nil, fmt.Errorf("wlclient: connect: %w", err)
	}

	reg, err := dsp.GetRegistry()
	if err != nil {
		dsp.Context().Close()
		return nil, fmt.Errorf("wlclient: get_registry: %w", err)
	}

	return &Session{Display: dsp, Registry: reg, errs: make(chan error, 1)}, nil
}

// Run drives the display's dispatch loop until ctx is canceled or a fatal
// protocol error occurs, and returns that error, if any.
func (s *Session) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if err := s.Display.Context().Dispatch(); err != nil {
				logger.Errorf("wayland dispatch: %v", err)
				s.errs <- err
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		<-done
		return ctx.Err()
	case <-done:
		select {
		case err := <-s.errs:
			return err
		default:
			return nil
		}
	}
}

// Roundtrip blocks until every request issued so far has been processed
// by the compositor, used to collect the burst of `global` events after
// GetRegistry and the burst of format events after a capture session's
// `done`.
func (s *Session) Roundtrip() error {
	callback, err := s.Display.Sync()
	if err != nil {
		return fmt.Errorf("wlclient: sync: %w", err)
	}
	defer callback.Destroy()

	done := make(chan struct{})
	callback.SetDoneHandler(func(_ client.CallbackDoneEvent) {
		close(done)
	})

	for {
		if err := s.Display.Context().Dispatch(); err != nil {
			return fmt.Errorf("wlclient: dispatch during roundtrip: %w", err)
		}
		select {
		case <-done:
			return nil
		default:
		}
	}
}

// Close disconnects from the compositor.
func (s *Session) Close() error {
	return s.Display.Context().Close()
}
