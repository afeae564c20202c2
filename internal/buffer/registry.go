package buffer

import (
	"sync"

	"github.com/wayvnc-go/wayvnc/internal/region"
)

// Registry is the process-wide bookkeeping of live buffers: when one
// buffer's frame-damage is finalized, every *other* live buffer has that
// region unioned into its buffer-damage, so a buffer that's been sitting
// in the free list catches up on next acquire.
//
// A single Registry is normally shared by every Pool in the process.
type Registry struct {
	mu      sync.Mutex
	buffers map[*Buffer]struct{}
}

// NewRegistry creates an empty buffer registry.
func NewRegistry() *Registry {
	return &Registry{buffers: make(map[*Buffer]struct{})}
}

func (r *Registry) track(b *Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffers[b] = struct{}{}
	b.registry = r
}

func (r *Registry) untrack(b *Buffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buffers, b)
}

// DamageAll unions region into the buffer-damage of every tracked buffer
// except source, restricted to buffers of the given domain.
func (r *Registry) DamageAll(source *Buffer, dmg region.Region, domain Domain) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for b := range r.buffers {
		if b == source || b.Domain != domain {
			continue
		}
		b.BufferDamage.UnionRegion(dmg)
	}
}
