package endpointtest

import "sync"

// IDStore is a concurrency-safe mapping from root path to extracted
// identifier values. It is written during Phase 1 (collection probing) and
// read during Phase 2 (parameterized probing); the sequential phase ordering
// guarantees a root path's IDs are complete before any Phase 2 read, but
// Phase 2 reads across overlapping group lifetimes still require the lock.
type IDStore struct {
	mu  sync.RWMutex
	ids map[string][]string
}

// NewIDStore creates an empty IDStore.
func NewIDStore() *IDStore {
	return &IDStore{ids: make(map[string][]string)}
}

// Add appends IDs for a root path, de-duplicating against values already
// stored while preserving first-occurrence order.
func (s *IDStore) Add(rootPath string, ids []string) {
	if len(ids) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.ids[rootPath]
	seen := make(map[string]bool, len(existing))
	for _, id := range existing {
		seen[id] = true
	}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			existing = append(existing, id)
		}
	}
	s.ids[rootPath] = existing
}

// Get returns a copy of the IDs stored for a root path.
func (s *IDStore) Get(rootPath string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.ids[rootPath]
	if len(stored) == 0 {
		return nil
	}
	out := make([]string, len(stored))
	copy(out, stored)
	return out
}
