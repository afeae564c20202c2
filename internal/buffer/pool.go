package buffer

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// ErrOutOfMemory is returned by Acquire when buffer creation fails for
// resource-exhaustion reasons.
var ErrOutOfMemory = errors.New("buffer pool: out of memory")

// bytesPerPixel supports the formats buffer.Fourcc* declares; the damage
// refinery only supports 32bpp, so that's all the pool
// needs to size allocations for.
const bytesPerPixel = 4

// Pool is the insertion-ordered collection of free buffers plus the
// configuration every one of them must match.
type Pool struct {
	config    Config
	hasConfig bool
	free      []*Buffer
	outstand  int
	registry  *Registry
}

// NewPool creates a pool, optionally with an initial configuration; if
// omitted, the first Acquire call's caller must Reconfig before use.
func NewPool(registry *Registry, initial *Config) *Pool {
	p := &Pool{registry: registry}
	if initial != nil {
		p.config = *initial
		p.hasConfig = true
	}
	return p
}

// Config returns the pool's current configuration and whether one has
// been set yet.
func (p *Pool) Config() (Config, bool) {
	return p.config, p.hasConfig
}

// Reconfig applies newConfig. If it differs from the current one, every
// free buffer is destroyed.
// Returns false without changing anything if newConfig is unsatisfiable.
func (p *Pool) Reconfig(newConfig Config) (bool, error) {
	if !newConfig.Satisfiable() {
		return false, nil
	}
	if p.hasConfig && sameShape(p.config, newConfig) {
		// config unchanged (sameShape compares every field, modifiers and
		// device node included), so the free list stays as it is.
		p.config = newConfig
		return true, nil
	}

	for _, b := range p.free {
		if err := b.destroy(); err != nil {
			return false, fmt.Errorf("destroy stale buffer during reconfig: %w", err)
		}
		if p.registry != nil {
			p.registry.untrack(b)
		}
	}
	p.free = p.free[:0]
	p.config = newConfig
	p.hasConfig = true
	return true, nil
}

// sameShape reports whether cur and next are equal in every field,
// including Stride, DeviceNode and the Modifiers list — Config can't use
// == directly since Modifiers is a slice.
func sameShape(cur, next Config) bool {
	if cur.Type != next.Type || cur.Width != next.Width || cur.Height != next.Height ||
		cur.Stride != next.Stride || cur.Format != next.Format || cur.DeviceNode != next.DeviceNode {
		return false
	}
	if len(cur.Modifiers) != len(next.Modifiers) {
		return false
	}
	for i := range cur.Modifiers {
		if cur.Modifiers[i] != next.Modifiers[i] {
			return false
		}
	}
	return true
}

// Acquire pops a free buffer matching the config, or creates one.
func (p *Pool) Acquire() (*Buffer, error) {
	if !p.hasConfig {
		return nil, fmt.Errorf("buffer pool: Acquire called before a configuration was set")
	}

	for i := len(p.free) - 1; i >= 0; i-- {
		if p.free[i].Matches(p.config) {
			b := p.free[i]
			p.free = append(p.free[:i], p.free[i+1:]...)
			p.outstand++
			return b, nil
		}
	}

	b, err := p.create()
	if err != nil {
		return nil, err
	}
	if p.registry != nil {
		p.registry.track(b)
	}
	p.outstand++
	return b, nil
}

// Release returns buf to the pool: its buffer-damage is cleared, dmabuf
// mappings are dropped, and it's reinserted at the end of the free list if
// it still matches the config — otherwise it's destroyed.
func (p *Pool) Release(b *Buffer) error {
	p.outstand--
	b.BufferDamage.Clear()

	if b.Type == TypeDMABuf && b.dmabuf.mappedAt != nil {
		// CPU mappings are lazy, so drop them once the buffer is no longer
		// in active use.
		if err := unmapDmabuf(b.dmabuf); err != nil {
			return err
		}
	}

	if !b.Matches(p.config) {
		if p.registry != nil {
			p.registry.untrack(b)
		}
		return b.destroy()
	}

	p.free = append(p.free, b)
	return nil
}

// FreeCount and OutstandingCount back pool-idempotence tests.
func (p *Pool) FreeCount() int        { return len(p.free) }
func (p *Pool) OutstandingCount() int { return p.outstand }

func unmapDmabuf(d *dmabufBacking) error {
	if d.mappedAt == nil {
		return nil
	}
	err := unix.Munmap(d.mappedAt)
	d.mappedAt = nil
	return err
}

func (p *Pool) create() (*Buffer, error) {
	switch p.config.Type {
	case TypeShm:
		size := int(p.config.Stride) * int(p.config.Height)
		shm, err := newShmBacking(size)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOutOfMemory, err)
		}
		return &Buffer{
			Type:   TypeShm,
			Width:  p.config.Width,
			Height: p.config.Height,
			Stride: p.config.Stride,
			Format: p.config.Format,
			// YInverted is left at its zero value here: the shm pool is
			// shared by both screencopy backends, and only the capture
			// session that acquires the buffer knows which backend's
			// y-inverted convention applies (see capture.WlrCaptureSession
			// and capture.ExtCaptureSession, which set it explicitly).
			shm: shm,
		}, nil

	case TypeDMABuf:
		if p.config.DeviceNode == "" {
			return nil, wrapBackendUnavailable(fmt.Errorf("no dmabuf device node in pool config"))
		}
		d, err := newDmabufBacking(p.config.DeviceNode, p.config.Width, p.config.Height, bytesPerPixel*8)
		if err != nil {
			return nil, err
		}
		return &Buffer{
			Type:     TypeDMABuf,
			Width:    p.config.Width,
			Height:   p.config.Height,
			Stride:   int32(d.pitch),
			Format:   p.config.Format,
			Modifier: 0, // dumb buffers are always DRM_FORMAT_MOD_LINEAR
			// YInverted: see the shm case above, set by the owning session.
			dmabuf: d,
		}, nil

	default:
		return nil, fmt.Errorf("buffer pool: unknown type %v", p.config.Type)
	}
}
