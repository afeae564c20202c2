package buffer

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// dmabuf GEM ioctls, encoded the way helix's api/pkg/drm/ioctl_linux.go
// precomputes DRM's _IOWR/_IOW macros by hand (DRM_IOCTL_BASE = 'd' =
// 0x64; these numeric values match the Linux uapi headers and are stable
// across architectures because every field in the structs below is a
// fixed-width type with no implicit padding beyond what's written out).
const (
	// DRM_IOCTL_MODE_CREATE_DUMB = _IOWR('d', 0xB2, struct drm_mode_create_dumb)
	ioctlModeCreateDumb = 0xc02064b2
	// DRM_IOCTL_MODE_MAP_DUMB = _IOWR('d', 0xB3, struct drm_mode_map_dumb)
	ioctlModeMapDumb = 0xc01064b3
	// DRM_IOCTL_MODE_DESTROY_DUMB = _IOWR('d', 0xB4, struct drm_mode_destroy_dumb)
	ioctlModeDestroyDumb = 0xc00464b4
	// DRM_IOCTL_PRIME_HANDLE_TO_FD = _IOWR('d', 0x2d, struct drm_prime_handle)
	ioctlPrimeHandleToFD = 0xc00c642d
	// DRM_IOCTL_GEM_CLOSE = _IOW('d', 0x09, struct drm_gem_close)
	ioctlGemClose = 0x40086409

	primeFDFlagCloexec = 0x1 // DRM_CLOEXEC
)

type drmModeCreateDumb struct {
	Height uint32
	Width  uint32
	BPP    uint32
	Flags  uint32
	// out
	Handle uint32
	Pitch  uint32
	Size   uint64
}

type drmModeMapDumb struct {
	Handle uint32
	Pad    uint32
	Offset uint64 // out
}

type drmModeDestroyDumb struct {
	Handle uint32
}

type drmPrimeHandle struct {
	Handle uint32
	Flags  uint32
	FD     int32 // out
}

// dmabufBacking is a GEM buffer object allocated on a DRM render node and
// exported as a dmabuf fd together with its offset, stride and modifier.
// The fd stays open until the buffer is destroyed, also after it has been
// wrapped into a compositor buffer. Mapping for CPU read is lazy.
//
// This allocates linear ("dumb") GEM buffers: it gives the capture
// pipeline a real dmabuf fd/offset/stride/modifier tuple without going
// through a GBM/EGL allocator (the GL/EGL renderer is an external
// collaborator, see internal/gpu). Tiled/compressed modifiers are
// therefore never selected by this backend; callers negotiating
// modifiers should treat DRM_FORMAT_MOD_LINEAR (0) as the only candidate
// dumb buffers can satisfy.
type dmabufBacking struct {
	drmFD    int
	handle   uint32
	fd       int
	size     uint64
	offset   uint32
	pitch    uint32
	mappedAt []byte
}

func newDmabufBacking(deviceNode string, width, height int32, bpp uint32) (*dmabufBacking, error) {
	drmFD, err := unix.Open(deviceNode, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open dmabuf device %s: %w", deviceNode, wrapBackendUnavailable(err))
	}

	create := drmModeCreateDumb{Height: uint32(height), Width: uint32(width), BPP: bpp}
	if err := ioctl(drmFD, ioctlModeCreateDumb, unsafe.Pointer(&create)); err != nil {
		unix.Close(drmFD)
		return nil, fmt.Errorf("DRM_IOCTL_MODE_CREATE_DUMB: %w", err)
	}

	prime := drmPrimeHandle{Handle: create.Handle, Flags: primeFDFlagCloexec}
	if err := ioctl(drmFD, ioctlPrimeHandleToFD, unsafe.Pointer(&prime)); err != nil {
		destroyDumb(drmFD, create.Handle)
		unix.Close(drmFD)
		return nil, fmt.Errorf("DRM_IOCTL_PRIME_HANDLE_TO_FD: %w", err)
	}

	return &dmabufBacking{
		drmFD:  drmFD,
		handle: create.Handle,
		fd:     int(prime.FD),
		size:   create.Size,
		pitch:  create.Pitch,
	}, nil
}

func (d *dmabufBacking) mapForCPURead() ([]byte, error) {
	if d.mappedAt != nil {
		return d.mappedAt, nil
	}

	m := drmModeMapDumb{Handle: d.handle}
	if err := ioctl(d.drmFD, ioctlModeMapDumb, unsafe.Pointer(&m)); err != nil {
		return nil, fmt.Errorf("DRM_IOCTL_MODE_MAP_DUMB: %w", err)
	}

	data, err := unix.Mmap(d.drmFD, int64(m.Offset), int(d.size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap dmabuf buffer: %w", err)
	}
	d.mappedAt = data
	return data, nil
}

func (d *dmabufBacking) close() error {
	if d.mappedAt != nil {
		unix.Munmap(d.mappedAt)
		d.mappedAt = nil
	}
	if d.fd >= 0 {
		unix.Close(d.fd)
		d.fd = -1
	}
	destroyDumb(d.drmFD, d.handle)
	err := unix.Close(d.drmFD)
	d.drmFD = -1
	return err
}

func destroyDumb(drmFD int, handle uint32) {
	closeReq := struct{ Handle, Pad uint32 }{Handle: handle}
	_ = ioctl(drmFD, ioctlGemClose, unsafe.Pointer(&closeReq))
	destroy := drmModeDestroyDumb{Handle: handle}
	_ = ioctl(drmFD, ioctlModeDestroyDumb, unsafe.Pointer(&destroy))
}

func ioctl(fd int, request uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), request, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
