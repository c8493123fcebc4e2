package api

import (
	"sync"

	"github.com/onionoriginals/originals-go/pkg/lifecycle"
)

// OriginalStore is an in-memory registry of Originals keyed by a
// server-assigned handle. A handle is necessary because an Original's own
// identifier (lifecycle.Original.ID) mutates across the peer → webvh →
// btco lifecycle: the daemon needs a stable key to address an Original by
// across those transitions, which the identifier itself cannot provide.
type OriginalStore struct {
	mu        sync.RWMutex
	originals map[string]*lifecycle.Original
}

// NewOriginalStore creates an empty store.
func NewOriginalStore() *OriginalStore {
	return &OriginalStore{originals: make(map[string]*lifecycle.Original)}
}

// Put registers an Original under handle.
func (s *OriginalStore) Put(handle string, o *lifecycle.Original) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.originals[handle] = o
}

// Get retrieves the Original registered under handle, if any.
func (s *OriginalStore) Get(handle string) (*lifecycle.Original, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.originals[handle]
	return o, ok
}
