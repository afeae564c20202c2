// Package capture implements a polymorphic screencopy interface: a
// capture session against an image source, backed by whichever
// compositor protocol (ext-image-copy-capture or wlroots-screencopy) is
// available, plus a desktop aggregator that fans one logical capture
// across every output.
package capture

import (
	"time"

	"github.com/wayvnc-go/wayvnc/internal/buffer"
	"github.com/wayvnc-go/wayvnc/internal/wlregistry"
)

// Result is the outcome reported to a session's on_done callback.
type Result int

const (
	ResultDone Result = iota
	ResultFailed
	ResultFatal
)

func (r Result) String() string {
	switch r {
	case ResultDone:
		return "done"
	case ResultFailed:
		return "failed"
	case ResultFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Capabilities is the bitmask get_capabilities reports.
type Capabilities uint32

const (
	CapabilityCursor    Capabilities = 1 << 0
	CapabilityTransform Capabilities = 1 << 1
)

// FormatCandidate is one advertised (type, fourcc, modifier) tuple,
// carrying the client-assigned rating.
type FormatCandidate struct {
	Type     buffer.Type
	Domain   buffer.Domain
	Fourcc   uint32
	Modifier uint64
	Score    int
}

// RateFormatFunc rates a candidate; zero disables it.
type RateFormatFunc func(typ buffer.Type, domain buffer.Domain, fourcc uint32, modifier uint64) int

// Session is the polymorphic capture object both backends implement.
// Client-supplied callbacks (OnDone, cursor hooks) must be installed
// before the first Start call.
type Session interface {
	Start(immediate bool) error
	Stop()
	Destroy()
	Capabilities() Capabilities

	OnDone(func(result Result, buf *buffer.Buffer, source wlregistry.ImageSource))
	SetRateFormat(RateFormatFunc)

	OnCursorEnter(func())
	OnCursorLeave(func())
	OnCursorHotspot(func(x, y int32))
}

// clock is the injectable time source every rate-limit/delay-smoothing
// computation goes through, so tests can drive it deterministically.
type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
