// Package buffer implements the buffer and buffer-pool model: a
// rectangular pixel container backed by shared memory or a GPU DMA-buf,
// checked out from an insertion-ordered free list that is recreated
// whenever its configuration changes.
package buffer

import (
	"fmt"

	"github.com/wayvnc-go/wayvnc/internal/region"
)

// Fourcc pixel formats the capture pipeline is expected to negotiate.
// Matches the `DRM_FORMAT_*` values compositors advertise over
// wl_shm/linux-dmabuf.
const (
	FourccXRGB8888 uint32 = 0x34325258 // 'XR24'
	FourccARGB8888 uint32 = 0x34325241 // 'AR24'
)

// Type distinguishes the two buffer backends: shared memory and DMA-buf.
type Type int

const (
	TypeShm Type = iota
	TypeDMABuf
)

func (t Type) String() string {
	if t == TypeDMABuf {
		return "dmabuf"
	}
	return "shm"
}

// Domain distinguishes an output-capture buffer from a cursor-image
// buffer.
type Domain int

const (
	DomainOutput Domain = iota
	DomainCursor
)

// Config is the tuple every free buffer in a Pool must match. Dmabuf matching ignores Stride (driver-chosen); see Buffer.Matches.
type Config struct {
	Type       Type
	Width      int32
	Height     int32
	Stride     int32
	Format     uint32
	Modifiers  []uint64 // allowed dmabuf modifiers, highest-preference first
	DeviceNode string   // dmabuf-device compositor advertised, e.g. /dev/dri/renderD128
}

// Satisfiable reports whether a config can ever be realized: a dmabuf
// config with no candidate modifiers is not.
func (c Config) Satisfiable() bool {
	if c.Type == TypeDMABuf && len(c.Modifiers) == 0 {
		return false
	}
	return c.Width > 0 && c.Height > 0
}

// Buffer is a rectangular pixel container, checked out exclusively while
// owned by a capturer or the publisher.
type Buffer struct {
	Type         Type
	Width        int32
	Height       int32
	Stride       int32
	Format       uint32
	Modifier     uint64
	YInverted    bool
	Domain       Domain
	PTS          uint64 // microseconds, presentation time of the last complete frame
	HotspotX     int32  // cursor buffers only
	HotspotY     int32

	// BufferDamage is pixels this buffer has NOT yet received from the
	// compositor since its last full paint; FrameDamage is pixels the
	// compositor DID write in the frame just captured. Both accumulate
	// across calls until explicitly cleared.
	BufferDamage region.Region
	FrameDamage  region.Region

	shm    *shmBacking
	dmabuf *dmabufBacking

	registry *Registry // nil until inserted into a pool backed by one
}

// Matches reports whether the buffer still satisfies config.
func (b *Buffer) Matches(c Config) bool {
	if b.Type != c.Type || b.Width != c.Width || b.Height != c.Height || b.Format != c.Format {
		return false
	}
	if c.Type == TypeShm && b.Stride != c.Stride {
		return false
	}
	return true
}

// Mapped returns a read/write view of the buffer's pixels. For dmabuf
// buffers the mapping is created lazily on first call.
func (b *Buffer) Mapped() ([]byte, error) {
	switch b.Type {
	case TypeShm:
		return b.shm.data, nil
	case TypeDMABuf:
		return b.dmabuf.mapForCPURead()
	default:
		return nil, fmt.Errorf("buffer: unknown type %v", b.Type)
	}
}

// FD returns the backing file descriptor callers hand to the compositor
// protocol objects (wl_shm_pool / linux_dmabuf params). It stays open,
// also after being wrapped into a protocol object, until the buffer is
// destroyed.
func (b *Buffer) FD() int {
	switch b.Type {
	case TypeShm:
		return b.shm.fd
	case TypeDMABuf:
		return b.dmabuf.fd
	default:
		return -1
	}
}

// Offset is the dmabuf plane offset the compositor reported at creation.
func (b *Buffer) Offset() uint32 {
	if b.dmabuf == nil {
		return 0
	}
	return b.dmabuf.offset
}

// destroy releases all backing resources. Called by the pool when a
// buffer no longer matches its configuration, never while checked out.
func (b *Buffer) destroy() error {
	switch b.Type {
	case TypeShm:
		return b.shm.close()
	case TypeDMABuf:
		return b.dmabuf.close()
	}
	return nil
}
