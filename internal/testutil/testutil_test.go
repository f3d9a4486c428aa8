package testutil

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type nopStore struct{}

func (nopStore) Get(context.Context, string) ([]byte, error)        { return []byte("v"), nil }
func (nopStore) Set(context.Context, string, []byte) error          { return nil }
func (nopStore) Incr(context.Context, string, int64) (int64, error) { return 1, nil }
func (nopStore) IncrWithInit(context.Context, string, int64, int64) (int64, error) {
	return 2, nil
}
func (nopStore) Expire(context.Context, string, time.Duration) error { return nil }

func TestMockClock(t *testing.T) {
	start := time.Unix(1700000000, 0)
	clock := NewMockClock(start)

	AssertEqual(t, clock.Now(), start)

	clock.Advance(1500 * time.Millisecond)
	AssertEqual(t, clock.Now().UnixMilli(), start.UnixMilli()+1500)

	clock.Set(start)
	AssertEqual(t, clock.Now(), start)

	if NewMockClock(time.Time{}).Now().IsZero() {
		t.Error("zero start should default to current time")
	}
}

func TestFaultStore(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	fs := NewFaultStore(nopStore{})

	fs.FailNext("Expire", boom, nil)

	AssertErrorIs(t, fs.Expire(ctx, "k", time.Second), boom)
	AssertNoError(t, fs.Expire(ctx, "k", time.Second))
	AssertNoError(t, fs.Expire(ctx, "k", time.Second))
	AssertEqual(t, fs.Calls("Expire"), 3)

	var hooked string
	fs.Before("Get", func(key string) { hooked = key })
	v, err := fs.Get(ctx, "user:1")
	AssertNoError(t, err)
	AssertEqual(t, string(v), "v")
	AssertEqual(t, hooked, "user:1")

	n, err := fs.IncrWithInit(ctx, "k", -1, 3)
	AssertNoError(t, err)
	AssertEqual(t, n, int64(2))
}

func TestEventually(t *testing.T) {
	var flag int32
	go func() {
		time.Sleep(30 * time.Millisecond)
		atomic.StoreInt32(&flag, 1)
	}()

	Eventually(t, func() bool {
		return atomic.LoadInt32(&flag) == 1
	}, time.Second, 5*time.Millisecond)
}
