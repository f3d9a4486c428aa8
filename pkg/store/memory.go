package store

import (
	"context"
	"sync"
	"time"

	"github.com/vnykmshr/gatelimit/pkg/common/clock"
	gferrors "github.com/vnykmshr/gatelimit/pkg/common/errors"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) live(now time.Time) bool {
	return e.expiresAt.IsZero() || now.Before(e.expiresAt)
}

// MemoryStore is an in-process CounterStore guarded by a single mutex.
// Expired entries are invisible immediately and reclaimed by Sweep.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	clock clock.Clock
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock sets the time source used for expiries.
func WithClock(c clock.Clock) MemoryOption {
	return func(s *MemoryStore) { s.clock = c }
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]memoryEntry),
		clock: clock.SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lookup returns the live entry for key. Callers must hold s.mu.
func (s *MemoryStore) lookup(key string) (memoryEntry, bool) {
	e, ok := s.items[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.live(s.clock.Now()) {
		delete(s.items, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = memoryEntry{value: v}
	return nil
}

func (s *MemoryStore) Incr(_ context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return 0, gferrors.ErrNotFound
	}
	return s.add(key, e, delta)
}

func (s *MemoryStore) IncrWithInit(_ context.Context, key string, delta, init int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		e = memoryEntry{value: FormatCounter(init)}
	}
	return s.add(key, e, delta)
}

// add applies delta to e and stores the result. Callers must hold s.mu.
func (s *MemoryStore) add(key string, e memoryEntry, delta int64) (int64, error) {
	n, err := ParseCounter(e.value)
	if err != nil {
		return 0, gferrors.NewOperationError("store.memory", "Incr", err).WithContext("key=" + key)
	}
	n += delta
	e.value = FormatCounter(n)
	s.items[key] = e
	return n, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return gferrors.ErrNotFound
	}
	e.expiresAt = s.clock.Now().Add(ttl)
	s.items[key] = e
	return nil
}

// Sweep deletes expired entries and reports how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for key, e := range s.items {
		if !e.live(now) {
			delete(s.items, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries held, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
