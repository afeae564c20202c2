// Package gpu models the GL/EGL dmabuf color-conversion path: the seam the
// publisher calls when a captured dmabuf's fourcc doesn't match what the
// RFB engine wants and no CPU-side conversion is cheap enough.
//
// Unsupported is the only implementation this repo ships; a GL/EGL-backed
// ColorConverter is expected to be injected by a build that links that
// dependency.
package gpu

import (
	"errors"

	"github.com/wayvnc-go/wayvnc/internal/buffer"
)

// ErrUnsupported is returned by Unsupported's Convert, and by any
// ColorConverter asked to produce a format it cannot reach.
var ErrUnsupported = errors.New("gpu: color conversion not available in this build")

// ColorConverter turns a captured buffer of one fourcc into a new buffer
// of another, for compositors that hand back a dmabuf format the RFB
// engine can't consume directly.
type ColorConverter interface {
	Convert(src *buffer.Buffer, dstFourcc uint32) (*buffer.Buffer, error)
}

// Unsupported is the default ColorConverter: it always fails. Publishers
// configured with it must restrict their negotiated capture formats to
// ones the RFB engine accepts natively (buffer.FourccXRGB8888 is always
// safe).
type Unsupported struct{}

func (Unsupported) Convert(*buffer.Buffer, uint32) (*buffer.Buffer, error) {
	return nil, ErrUnsupported
}
