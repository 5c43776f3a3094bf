package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultCacheSize = 10000
	DefaultTTL       = 12 * time.Hour
)

// MemoryStore keeps sessions in process memory. Idle sessions expire after the TTL and
// the least recently used ones are evicted once the cache is full.
type MemoryStore struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *State]
}

func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{cache: expirable.NewLRU[string, *State](size, nil, ttl)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if st, ok := m.cache.Get(id); ok {
		// Reading counts as activity.
		m.cache.Add(id, st)
		return st.Clone(), nil
	}
	return NewState(), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*State) error) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.cache.Get(id)
	if ok {
		st = st.Clone()
	} else {
		st = NewState()
	}

	if err := fn(st); err != nil {
		return nil, err
	}

	// Re-adding refreshes the entry's expiry.
	m.cache.Add(id, st)
	return st.Clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Remove(id)
	return nil
}

func (m *MemoryStore) Health(_ context.Context) map[string]string {
	return map[string]string{
		"status":   "up",
		"backend":  "memory",
		"sessions": strconv.Itoa(m.cache.Len()),
	}
}
