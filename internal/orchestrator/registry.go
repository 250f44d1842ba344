package orchestrator

import (
	"sync"
	"sync/atomic"
)

// StreamRegistry is the process-wide map from stream id to its cooperative
// cancellation flag. Grounded on original_source/commands/chat.rs's
// ACTIVE_STREAMS (Arc<Mutex<HashMap<String, Arc<AtomicBool>>>>), translated
// to a Go mutex guarding a map of *atomic.Bool.
type StreamRegistry struct {
	mu      sync.Mutex
	streams map[string]*atomic.Bool
}

// NewStreamRegistry constructs an empty registry.
func NewStreamRegistry() *StreamRegistry {
	return &StreamRegistry{streams: make(map[string]*atomic.Bool)}
}

// Register creates and stores a fresh cancellation flag for streamID.
func (r *StreamRegistry) Register(streamID string) *atomic.Bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	flag := &atomic.Bool{}
	r.streams[streamID] = flag
	return flag
}

// Unregister removes streamID. Safe to call even if already absent.
func (r *StreamRegistry) Unregister(streamID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.streams, streamID)
}

// Cancel sets the named stream's cancellation flag. Unknown ids are no-ops.
func (r *StreamRegistry) Cancel(streamID string) {
	r.mu.Lock()
	flag, ok := r.streams[streamID]
	r.mu.Unlock()
	if ok {
		flag.Store(true)
	}
}

// CancelAll sets every currently registered stream's cancellation flag.
func (r *StreamRegistry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, flag := range r.streams {
		flag.Store(true)
	}
}

// IsRegistered reports whether streamID currently has a live entry.
func (r *StreamRegistry) IsRegistered(streamID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.streams[streamID]
	return ok
}
