package levelcache

import (
	"log"
	"sync"
	"time"
)

// DefaultTTL bounds how long a resolved plan id stays in the cache tiers.
// Staleness is handled by explicit invalidation on plan mutation, not by the
// TTL alone.
const DefaultTTL = time.Hour

// SharedStore is the process-external cache tier behind the in-memory map.
// Implementations: Redis (production) and an in-memory TTL map (tests,
// single-node setups).
type SharedStore interface {
	Get(key string) (uint, bool, error)
	Set(key string, value uint, ttl time.Duration) error
	Delete(key string) error
	Flush(pattern string) error
}

// Store maps plan fingerprints to resolved plan ids across two tiers: a
// process-local map consulted first, and a shared tier that survives process
// restarts. A shared-tier hit is promoted into memory.
type Store struct {
	mu     sync.RWMutex
	memory map[string]uint
	shared SharedStore
	ttl    time.Duration
}

// New creates a Store over the given shared tier. A non-positive ttl falls
// back to DefaultTTL.
func New(shared SharedStore, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		memory: make(map[string]uint),
		shared: shared,
		ttl:    ttl,
	}
}

// Get resolves a fingerprint to a plan id. Shared-tier errors degrade to a
// miss; the matcher then falls through to the database.
func (s *Store) Get(key string) (uint, bool) {
	s.mu.RLock()
	id, ok := s.memory[key]
	s.mu.RUnlock()
	if ok {
		return id, true
	}

	id, ok, err := s.shared.Get(key)
	if err != nil {
		log.Printf("levelcache: shared tier read failed: %v", err)
		return 0, false
	}
	if !ok {
		return 0, false
	}

	// Promote into memory for subsequent requests in this process.
	s.mu.Lock()
	s.memory[key] = id
	s.mu.Unlock()

	return id, true
}

// Set writes a resolved plan id into both tiers.
func (s *Store) Set(key string, id uint) {
	s.mu.Lock()
	s.memory[key] = id
	s.mu.Unlock()

	if err := s.shared.Set(key, id, s.ttl); err != nil {
		log.Printf("levelcache: shared tier write failed: %v", err)
	}
}

// Delete removes a single entry from both tiers.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.memory, key)
	s.mu.Unlock()

	if err := s.shared.Delete(key); err != nil {
		log.Printf("levelcache: shared tier delete failed: %v", err)
	}
}

// InvalidateAll clears both tiers. Must run on every out-of-band plan
// mutation; the cache must never return an id for a plan that no longer
// exists or no longer matches.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	s.memory = make(map[string]uint)
	s.mu.Unlock()

	if err := s.shared.Flush(KeyPrefix + "*"); err != nil {
		log.Printf("levelcache: shared tier flush failed: %v", err)
	}
}
