package wlregistry

import (
	"sort"
	"sync"
)

// Registry is the wayland session's bookkeeping of outputs, seats, and
// toplevels, and the single owner of the Desktop aggregator. It is driven by the bind layer (bind.go), which
// turns real Wayland registry events into calls on the methods below;
// nothing in this file touches the Wayland wire protocol.
type Registry struct {
	mu        sync.Mutex
	outputs   map[uint32]*Output
	seats     map[uint32]*Seat
	toplevels map[string]*Toplevel
	desktop   *Desktop
}

// NewRegistry creates an empty registry with its desktop aggregator.
func NewRegistry() *Registry {
	return &Registry{
		outputs:   make(map[uint32]*Output),
		seats:     make(map[uint32]*Seat),
		toplevels: make(map[string]*Toplevel),
		desktop:   NewDesktop(),
	}
}

// Desktop returns the fan-out image source aggregating every output.
func (r *Registry) Desktop() *Desktop { return r.desktop }

// AddOutput registers a newly bound wl_output.
func (r *Registry) AddOutput(o *Output) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[o.ID] = o
	r.desktop.AddOutput(o)
}

// RemoveOutput handles the output's global_remove.
func (r *Registry) RemoveOutput(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.outputs[id]
	if !ok {
		return
	}
	delete(r.outputs, id)
	r.desktop.RemoveOutput(o)
}

// Output looks up a bound output by its registry id.
func (r *Registry) Output(id uint32) (*Output, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.outputs[id]
	return o, ok
}

// Outputs returns a snapshot of every currently bound output, ordered by
// registry id.
func (r *Registry) Outputs() []*Output {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Output, 0, len(r.outputs))
	for _, o := range r.outputs {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddSeat registers a newly bound wl_seat.
func (r *Registry) AddSeat(s *Seat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seats[s.ID] = s
}

// RemoveSeat handles a seat's global_remove.
func (r *Registry) RemoveSeat(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seats, id)
}

// Seats returns a snapshot of every currently bound seat.
func (r *Registry) Seats() []*Seat {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Seat, 0, len(r.seats))
	for _, s := range r.seats {
		out = append(out, s)
	}
	return out
}

// AddToplevel registers a foreign-toplevel handle, recording its
// identifier, app_id, and title.
func (r *Registry) AddToplevel(t *Toplevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toplevels[t.Identifier] = t
}

// RemoveToplevel fires the toplevel's on_closed callback and forgets it.
func (r *Registry) RemoveToplevel(identifier string) {
	r.mu.Lock()
	t, ok := r.toplevels[identifier]
	if ok {
		delete(r.toplevels, identifier)
	}
	r.mu.Unlock()
	if ok {
		t.Close()
	}
}

// Toplevels returns a snapshot of every currently tracked toplevel.
func (r *Registry) Toplevels() []*Toplevel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Toplevel, 0, len(r.toplevels))
	for _, t := range r.toplevels {
		out = append(out, t)
	}
	return out
}
