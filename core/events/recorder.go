package events

import (
	"sync"

	"reflectledger/core/types"
)

// DefaultRecorderCapacity bounds the number of events retained in memory when
// no explicit capacity is supplied.
const DefaultRecorderCapacity = 512

// Describable is implemented by events that can render themselves into the
// serializable attribute form.
type Describable interface {
	Event() *types.Event
}

// Recorder is an Emitter that retains the most recent events in a bounded
// ring. It backs the event-log surface exposed over RPC.
type Recorder struct {
	mu       sync.Mutex
	capacity int
	entries  []*types.Event
}

// NewRecorder constructs a recorder holding up to capacity events. A
// non-positive capacity falls back to DefaultRecorderCapacity.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRecorderCapacity
	}
	return &Recorder{capacity: capacity}
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	described, ok := evt.(Describable)
	if !ok {
		return
	}
	entry := described.Event()
	if entry == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[len(r.entries)-r.capacity:]
	}
}

// Events returns a copy of the retained events, oldest first.
func (r *Recorder) Events() []*types.Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*types.Event, len(r.entries))
	copy(out, r.entries)
	return out
}
