/*
Package store provides the shared counter stores that limiters keep their
per-key state in.

A CounterStore is a small key-value contract: raw get and set for the leaky
bucket's binary records, atomic increment (optionally seeding a starting
value) for fixed-window counters, and expiry. Every method is safe for
unbounded concurrent callers, which is the only synchronization the limiters
rely on.

Three backends are available:

  - MemoryStore: a mutex-guarded map for a single process and for tests
  - RedisStore: Redis via go-redis, shared across gateway instances
  - MongoStore: a MongoDB collection with a TTL index

Basic usage:

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	counters, err := store.NewRedisStore(store.RedisConfig{
		Client: rdb,
		Prefix: "gatelimit",
	})
	if err != nil {
		log.Fatal(err)
	}

	limiter, err := fixedwindow.New(counters, 100, time.Minute)

Absent keys are reported as (nil, nil) by Get and as errors.ErrNotFound by
Incr and Expire. Backend failures are wrapped in *errors.OperationError with
the backend name as module.

MemoryStore never evicts expired entries on its own beyond lazily ignoring
them; use a Sweeper to reclaim memory on a cron schedule:

	sweeper, _ := store.NewSweeper(memStore, "@every 1m", nil)
	sweeper.Start()
	defer sweeper.Stop()
*/
package store
