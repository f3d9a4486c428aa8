package leakybucket

import (
	"context"
	"strconv"
	"testing"

	"github.com/vnykmshr/gatelimit/pkg/store"
)

// mustNew creates a new limiter or panics on error (for benchmarks only)
func mustNew(rate, burst float64) *Limiter {
	l, err := New(store.NewMemoryStore(), rate, burst)
	if err != nil {
		panic(err)
	}
	return l
}

// BenchmarkIncomingCommit measures committed requests spread over many keys
func BenchmarkIncomingCommit(b *testing.B) {
	l := mustNew(1e6, 1e6)
	keys := make([]string, 1024)
	for i := range keys {
		keys[i] = "client-" + strconv.Itoa(i)
	}
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			l.Incoming(ctx, keys[i%len(keys)], true)
			i++
		}
	})
}

// BenchmarkIncomingDryRun measures read-only checks on a single hot key
func BenchmarkIncomingDryRun(b *testing.B) {
	l := mustNew(1e6, 1e6)
	ctx := context.Background()
	l.Incoming(ctx, "hot", true)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Incoming(ctx, "hot", false)
	}
}

// BenchmarkRecordCodec measures a decode and encode round of a bucket record
func BenchmarkRecordCodec(b *testing.B) {
	buf, _ := Record{Excess: 2500, Last: 1700000000123}.MarshalBinary()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var rec Record
		if err := rec.UnmarshalBinary(buf); err != nil {
			b.Fatal(err)
		}
		if _, err := rec.MarshalBinary(); err != nil {
			b.Fatal(err)
		}
	}
}
