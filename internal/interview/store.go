package interview

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Store keeps sessions keyed by identity. Implementations must be safe for concurrent use;
// per-identity ordering is the Manager's job.
type Store interface {
	Get(identity string) (*Session, bool)
	Upsert(session *Session)
	Remove(identity string)
}

const defaultStoreCapacity = 10000

// MemoryStore is a bounded in-process Store. The least recently touched
// sessions are forgotten first once capacity is reached.
type MemoryStore struct {
	cache *lru.Cache[string, *Session]
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(capacity int) (*MemoryStore, error) {
	if capacity <= 0 {
		capacity = defaultStoreCapacity
	}

	cache, err := lru.New[string, *Session](capacity)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}

	return &MemoryStore{cache: cache}, nil
}

// Get returns a copy of the stored session.
func (s *MemoryStore) Get(identity string) (*Session, bool) {
	session, ok := s.cache.Get(identity)
	if !ok {
		return nil, false
	}
	return session.Clone(), true
}

// Upsert stores a copy of session.
func (s *MemoryStore) Upsert(session *Session) {
	if session == nil {
		return
	}
	s.cache.Add(session.Identity, session.Clone())
}

func (s *MemoryStore) Remove(identity string) {
	s.cache.Remove(identity)
}

// Len returns the number of remembered sessions.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
