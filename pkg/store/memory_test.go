package store

import (
	"context"
	"testing"
	"time"

	"github.com/vnykmshr/gatelimit/internal/testutil"
)

func newMemoryHarness(t *testing.T) harness {
	t.Helper()
	clock := testutil.NewMockClock(time.Unix(1700000000, 0))
	return harness{
		store:   NewMemoryStore(WithClock(clock)),
		advance: clock.Advance,
	}
}

func TestMemoryStore(t *testing.T) {
	runCounterStoreSuite(t, newMemoryHarness)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	in := []byte{1, 2, 3}
	testutil.AssertNoError(t, s.Set(ctx, "k", in))
	in[0] = 9

	out, err := s.Get(ctx, "k")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, out[0], byte(1))

	out[1] = 9
	again, _ := s.Get(ctx, "k")
	testutil.AssertEqual(t, again[1], byte(2))
}

func TestMemoryStore_Sweep(t *testing.T) {
	clock := testutil.NewMockClock(time.Unix(1700000000, 0))
	s := NewMemoryStore(WithClock(clock))
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, err := s.IncrWithInit(ctx, key, -1, 10)
		testutil.AssertNoError(t, err)
	}
	testutil.AssertNoError(t, s.Expire(ctx, "a", time.Second))
	testutil.AssertNoError(t, s.Expire(ctx, "b", time.Minute))

	testutil.AssertEqual(t, s.Sweep(), 0)

	clock.Advance(2 * time.Second)
	testutil.AssertEqual(t, s.Len(), 3)
	testutil.AssertEqual(t, s.Sweep(), 1)
	testutil.AssertEqual(t, s.Len(), 2)

	clock.Advance(time.Hour)
	testutil.AssertEqual(t, s.Sweep(), 1)
	testutil.AssertEqual(t, s.Len(), 1)
}
