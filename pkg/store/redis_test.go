package store

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/gatelimit/internal/testutil"
	gferrors "github.com/vnykmshr/gatelimit/pkg/common/errors"
)

func newRedisHarness(t *testing.T) harness {
	t.Helper()
	s, _, mr := newTestRedisStore(t, RedisConfig{Prefix: "test"})
	return harness{
		store:   s,
		advance: mr.FastForward,
	}
}

func newTestRedisStore(t *testing.T, config RedisConfig) (*RedisStore, *redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	config.Client = rdb
	s, err := NewRedisStore(config)
	testutil.AssertNoError(t, err)
	return s, rdb, mr
}

func TestRedisStore(t *testing.T) {
	runCounterStoreSuite(t, newRedisHarness)
}

func TestNewRedisStore_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config RedisConfig
	}{
		{"nil client", RedisConfig{}},
		{"negative timeout", RedisConfig{Client: redis.NewClient(&redis.Options{}), Timeout: -time.Second}},
		{"sub millisecond ttl", RedisConfig{Client: redis.NewClient(&redis.Options{}), RecordTTL: time.Microsecond}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.config.Client != nil {
				defer func() { _ = tt.config.Client.Close() }()
			}
			_, err := NewRedisStore(tt.config)
			if !gferrors.IsValidationError(err) {
				t.Errorf("got %v, want ValidationError", err)
			}
		})
	}
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	s, _, mr := newTestRedisStore(t, RedisConfig{Prefix: ":gatelimit:"})
	ctx := context.Background()

	_, err := s.IncrWithInit(ctx, "user:1", -1, 10)
	testutil.AssertNoError(t, err)

	got, err := mr.Get("gatelimit:user:1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got, "9")
}

func TestRedisStore_RecordTTL(t *testing.T) {
	s, _, mr := newTestRedisStore(t, RedisConfig{RecordTTL: time.Minute})
	ctx := context.Background()

	testutil.AssertNoError(t, s.Set(ctx, "rec", []byte{1}))
	testutil.AssertEqual(t, mr.TTL("rec"), time.Minute)

	mr.FastForward(time.Minute)
	v, err := s.Get(ctx, "rec")
	testutil.AssertNoError(t, err)
	if v != nil {
		t.Errorf("got %v, want nil after record TTL", v)
	}
}

func TestRedisStore_ServerDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	s, err := NewRedisStore(RedisConfig{Client: rdb, Timeout: 200 * time.Millisecond})
	testutil.AssertNoError(t, err)
	ctx := context.Background()

	_, err = s.Get(ctx, "k")
	var opErr *gferrors.OperationError
	if !errors.As(err, &opErr) || opErr.Module != "store.redis" || opErr.Operation != "Get" {
		t.Errorf("got %v, want store.redis.Get OperationError", err)
	}

	_, err = s.IncrWithInit(ctx, "k", -1, 1)
	testutil.AssertError(t, err)
	if gferrors.IsNotFound(err) {
		t.Error("connection failure must not look like a missing key")
	}

	testutil.AssertError(t, s.Expire(ctx, "k", time.Second))
	testutil.AssertError(t, s.Ping(ctx))
}

// silentListener accepts connections and never answers.
func silentListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	testutil.AssertNoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
		done  = make(chan struct{})
	)
	go func() {
		defer close(done)
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		<-done
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().String()
}

func TestRedisStore_TimeoutIsRetryable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         silentListener(t),
		ReadTimeout:  50 * time.Millisecond,
		WriteTimeout: 50 * time.Millisecond,
		MaxRetries:   -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	s, err := NewRedisStore(RedisConfig{Client: rdb, Timeout: 50 * time.Millisecond})
	testutil.AssertNoError(t, err)

	_, err = s.Get(context.Background(), "k")
	testutil.AssertErrorIs(t, err, gferrors.ErrTimeout)
	if !gferrors.IsRetryable(err) {
		t.Errorf("expected %v to be retryable", err)
	}
}
