package store

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// CounterStore is the shared key-value store limiters keep their state in.
type CounterStore interface {
	// Get returns the raw value stored at key, or nil with no error when the
	// key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set overwrites the value at key and clears any expiry.
	Set(ctx context.Context, key string, value []byte) error

	// Incr atomically adds delta to the integer at key and returns the new
	// value. It returns errors.ErrNotFound when the key is absent.
	Incr(ctx context.Context, key string, delta int64) (int64, error)

	// IncrWithInit is like Incr, but an absent key is first seeded with init,
	// so the result is init+delta. An existing expiry is preserved.
	IncrWithInit(ctx context.Context, key string, delta, init int64) (int64, error)

	// Expire attaches or replaces the time-to-live of key. It returns
	// errors.ErrNotFound when the key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// ErrNotInteger is returned when Incr targets a value that is not a counter.
var ErrNotInteger = errors.New("value is not an integer")

// FormatCounter encodes a counter the way every backend exposes it through Get.
func FormatCounter(n int64) []byte {
	return strconv.AppendInt(nil, n, 10)
}

// ParseCounter decodes a value written by Incr or IncrWithInit.
func ParseCounter(value []byte) (int64, error) {
	n, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}
	return n, nil
}

func prefixed(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}
