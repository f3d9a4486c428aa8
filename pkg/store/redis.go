package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	gfcontext "github.com/vnykmshr/gatelimit/pkg/common/context"
	gferrors "github.com/vnykmshr/gatelimit/pkg/common/errors"
	"github.com/vnykmshr/gatelimit/pkg/common/validation"
)

// RedisConfig holds configuration for a Redis-backed store.
type RedisConfig struct {
	// Client is the Redis connection shared by all gateway instances.
	Client redis.UniversalClient

	// Prefix namespaces every key, joined with ":". Empty means no prefix.
	Prefix string

	// Timeout bounds each Redis round-trip. Zero relies on the caller's context.
	Timeout time.Duration

	// RecordTTL, if positive, is attached by Set so idle bucket records are
	// evicted by Redis. It must exceed the longest time a bucket needs to drain.
	RecordTTL time.Duration
}

// DefaultRedisConfig returns a default Redis store configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Prefix:  "gatelimit",
		Timeout: 500 * time.Millisecond,
	}
}

// RedisStore implements CounterStore on Redis. Increments run as a Lua script
// so seeding and adding happen in one atomic step.
type RedisStore struct {
	config     RedisConfig
	incrScript *redis.Script
}

// NewRedisStore creates a RedisStore. It does not contact the server.
func NewRedisStore(config RedisConfig) (*RedisStore, error) {
	if config.Client == nil {
		return nil, gferrors.NewValidationError("store.redis", "client", nil, "cannot be nil").
			WithHint("pass a *redis.Client or *redis.ClusterClient")
	}
	if config.Timeout < 0 {
		return nil, gferrors.NewValidationError("store.redis", "timeout", config.Timeout, "cannot be negative")
	}
	if config.RecordTTL != 0 {
		if err := validation.ValidatePositiveDuration("store.redis", "record_ttl", config.RecordTTL); err != nil {
			return nil, err
		}
	}
	config.Prefix = strings.Trim(config.Prefix, ":")

	return &RedisStore{
		config:     config,
		incrScript: redis.NewScript(luaIncrWithInit),
	}, nil
}

func (s *RedisStore) key(key string) string {
	return prefixed(s.config.Prefix, key)
}

func (s *RedisStore) opError(op, key string, err error) error {
	return gferrors.NewOperationError("store.redis", op, err).WithContext("key=" + key)
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := gfcontext.WithOptionalTimeout(ctx, s.config.Timeout)
	defer cancel()

	v, err := s.config.Client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, s.opError("Get", key, err)
	}
	return v, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := gfcontext.WithOptionalTimeout(ctx, s.config.Timeout)
	defer cancel()

	if err := s.config.Client.Set(ctx, s.key(key), value, s.config.RecordTTL).Err(); err != nil {
		return s.opError("Set", key, err)
	}
	return nil
}

func (s *RedisStore) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	return s.incr(ctx, "Incr", key, delta)
}

func (s *RedisStore) IncrWithInit(ctx context.Context, key string, delta, init int64) (int64, error) {
	return s.incr(ctx, "IncrWithInit", key, delta, init)
}

func (s *RedisStore) incr(ctx context.Context, op, key string, args ...interface{}) (int64, error) {
	ctx, cancel := gfcontext.WithOptionalTimeout(ctx, s.config.Timeout)
	defer cancel()

	n, err := s.incrScript.Run(ctx, s.config.Client, []string{s.key(key)}, args...).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, gferrors.ErrNotFound
	}
	if err != nil {
		if strings.Contains(err.Error(), "not an integer") {
			err = ErrNotInteger
		}
		return 0, s.opError(op, key, err)
	}
	return n, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ctx, cancel := gfcontext.WithOptionalTimeout(ctx, s.config.Timeout)
	defer cancel()

	ok, err := s.config.Client.PExpire(ctx, s.key(key), ttl).Result()
	if err != nil {
		return s.opError("Expire", key, err)
	}
	if !ok {
		return gferrors.ErrNotFound
	}
	return nil
}

// Ping checks connectivity to the Redis server.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := gfcontext.WithOptionalTimeout(ctx, s.config.Timeout)
	defer cancel()

	if err := s.config.Client.Ping(ctx).Err(); err != nil {
		return gferrors.NewOperationError("store.redis", "Ping", err)
	}
	return nil
}

// Lua script for atomic increment with an optional seed value
const luaIncrWithInit = `
-- KEYS[1]: counter key
-- ARGV[1]: delta
-- ARGV[2]: initial value (optional)

local key = KEYS[1]

if redis.call('EXISTS', key) == 0 then
    if ARGV[2] == nil then
        return false -- not found
    end
    redis.call('SET', key, ARGV[2])
end

-- INCRBY keeps any TTL already attached to the key
return redis.call('INCRBY', key, ARGV[1])
`
