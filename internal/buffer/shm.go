package buffer

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// shmBacking is the memory-mapped anonymous file backing a TypeShm Buffer.
// Created via memfd_create + ftruncate + mmap, exactly the pattern
// internal/drm's raw-ioctl style uses elsewhere in this tree: talk to the
// kernel directly through golang.org/x/sys/unix, no cgo.
type shmBacking struct {
	fd   int
	data []byte
	size int
}

func newShmBacking(size int) (*shmBacking, error) {
	fd, err := unix.MemfdCreate("wayvnc-shm-buffer", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", wrapBackendUnavailable(err))
	}

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ftruncate shm buffer to %d bytes: %w", size, err)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmap shm buffer: %w", err)
	}

	return &shmBacking{fd: fd, data: data, size: size}, nil
}

func (s *shmBacking) close() error {
	if s.data != nil {
		if err := unix.Munmap(s.data); err != nil {
			return fmt.Errorf("munmap shm buffer: %w", err)
		}
		s.data = nil
	}
	if s.fd >= 0 {
		err := unix.Close(s.fd)
		s.fd = -1
		return err
	}
	return nil
}

// wrapBackendUnavailable marks err as the "no shm service" failure mode
// so callers can distinguish it from OutOfMemory.
func wrapBackendUnavailable(err error) error {
	return &BackendUnavailableError{Type: TypeShm, Cause: err}
}

// BackendUnavailableError is returned by Pool.Acquire when the requested
// buffer type has no usable kernel/compositor service.
type BackendUnavailableError struct {
	Type  Type
	Cause error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("%s backend unavailable: %v", e.Type, e.Cause)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Cause }
