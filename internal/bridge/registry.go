package bridge

import (
	"encoding/json"
	"sync"
)

// registry maps event names to handlers keyed by subscription id.
type registry struct {
	mu       sync.Mutex
	next     uint64
	handlers map[string]map[uint64]EventHandler
}

func newRegistry() *registry {
	return &registry{handlers: make(map[string]map[uint64]EventHandler)}
}

func (r *registry) add(event string, fn EventHandler) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	id := r.next
	if r.handlers[event] == nil {
		r.handlers[event] = make(map[uint64]EventHandler)
	}
	r.handlers[event][id] = fn

	return &Subscription{remove: func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.handlers[event], id)
		if len(r.handlers[event]) == 0 {
			delete(r.handlers, event)
		}
	}}
}

func (r *registry) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers[event])
}

// emit runs the handlers for event outside the lock so they may unsubscribe.
func (r *registry) emit(event string, data json.RawMessage) {
	r.mu.Lock()
	fns := make([]EventHandler, 0, len(r.handlers[event]))
	for _, fn := range r.handlers[event] {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(data)
	}
}
