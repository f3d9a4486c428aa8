package testutil

import (
	"context"
	"sync"
	"time"
)

// MockClock implements Clock interface for testing with controllable time.
// This is used across limiter and store tests to avoid actual time delays.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a new MockClock starting at the given time.
// If zero time is provided, uses current time.
func NewMockClock(start time.Time) *MockClock {
	if start.IsZero() {
		start = time.Now()
	}
	return &MockClock{now: start}
}

// Now returns the current mock time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the mock clock forward by the given duration.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// Set sets the mock clock to a specific time.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// counterStore mirrors store.CounterStore so testutil does not import the
// package under test.
type counterStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Incr(ctx context.Context, key string, delta int64) (int64, error)
	IncrWithInit(ctx context.Context, key string, delta, init int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// FaultStore wraps a counter store and injects failures per operation.
// Hooks run before the wrapped call; a non-nil error short-circuits it.
type FaultStore struct {
	Inner counterStore

	mu     sync.Mutex
	faults map[string][]error
	calls  map[string]int
	before map[string]func(key string)
}

// NewFaultStore wraps inner.
func NewFaultStore(inner counterStore) *FaultStore {
	return &FaultStore{
		Inner:  inner,
		faults: make(map[string][]error),
		calls:  make(map[string]int),
		before: make(map[string]func(string)),
	}
}

// FailNext queues errs to be returned by the next calls of op, in order.
// A nil entry lets that call through.
func (f *FaultStore) FailNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = append(f.faults[op], errs...)
}

// Before registers a hook that runs before every call of op.
func (f *FaultStore) Before(op string, hook func(key string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.before[op] = hook
}

// Calls returns how many times op was invoked.
func (f *FaultStore) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FaultStore) enter(op, key string) error {
	f.mu.Lock()
	f.calls[op]++
	hook := f.before[op]
	var err error
	if queued := f.faults[op]; len(queued) > 0 {
		err = queued[0]
		f.faults[op] = queued[1:]
	}
	f.mu.Unlock()

	if hook != nil {
		hook(key)
	}
	return err
}

func (f *FaultStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := f.enter("Get", key); err != nil {
		return nil, err
	}
	return f.Inner.Get(ctx, key)
}

func (f *FaultStore) Set(ctx context.Context, key string, value []byte) error {
	if err := f.enter("Set", key); err != nil {
		return err
	}
	return f.Inner.Set(ctx, key, value)
}

func (f *FaultStore) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	if err := f.enter("Incr", key); err != nil {
		return 0, err
	}
	return f.Inner.Incr(ctx, key, delta)
}

func (f *FaultStore) IncrWithInit(ctx context.Context, key string, delta, init int64) (int64, error) {
	if err := f.enter("IncrWithInit", key); err != nil {
		return 0, err
	}
	return f.Inner.IncrWithInit(ctx, key, delta, init)
}

func (f *FaultStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := f.enter("Expire", key); err != nil {
		return err
	}
	return f.Inner.Expire(ctx, key, ttl)
}
