// Package sequence tracks the last-seen gateway sequence number per bound
// identity, read by heartbeat tasks and reset on reconnect.
package sequence

import "sync"

// Store holds the latest sequence number per identity. Safe for concurrent
// use by receive loops and heartbeat tasks; per-identity last-write-wins.
type Store struct {
	mu sync.RWMutex
	sn map[string]int64
}

// NewStore creates an empty sequence store.
func NewStore() *Store {
	return &Store{
		sn: make(map[string]int64),
	}
}

// Set records the latest sequence number seen for identity.
func (s *Store) Set(identity string, sn int64) {
	s.mu.Lock()
	s.sn[identity] = sn
	s.mu.Unlock()
}

// Get returns the last recorded sequence number, or 0 if none recorded.
func (s *Store) Get(identity string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sn[identity]
}

// Reset clears the sequence number for identity. Must be called on every
// reconnect: the server issues a fresh sequence space after session loss.
func (s *Store) Reset(identity string) {
	s.Set(identity, 0)
}
