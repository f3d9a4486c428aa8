// Command gatelimit is a rate limiting reverse proxy. Every request is checked
// against a leaky bucket or fixed window limiter whose state lives in memory,
// Redis or MongoDB, so several instances can share one budget per client.
//
// Configuration is read from the environment; see readConfig.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	"github.com/vnykmshr/gatelimit/pkg/gateway"
	"github.com/vnykmshr/gatelimit/pkg/metrics"
	"github.com/vnykmshr/gatelimit/pkg/ratelimit"
	"github.com/vnykmshr/gatelimit/pkg/ratelimit/fixedwindow"
	"github.com/vnykmshr/gatelimit/pkg/ratelimit/leakybucket"
	"github.com/vnykmshr/gatelimit/pkg/store"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		log.Fatalf("invalid UPSTREAM_URL: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := newRegistry(cfg)
	counters, closeStore, err := openStore(ctx, cfg, reg)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer closeStore()

	limiter, err := newLimiter(cfg, counters, reg)
	if err != nil {
		log.Fatalf("limiter error: %v", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("proxy error: %v", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	h := gateway.Middleware(gateway.Options{
		Limiter:             limiter,
		KeyHeader:           cfg.keyHeader,
		TrustXForwardedFor:  cfg.trustXFF,
		RejectStatus:        cfg.rejectStatus,
		RetryAfter:          cfg.retryAfter,
		MaxDelay:            cfg.maxDelay,
		FailOpen:            cfg.failOpen,
		UncommitOnError:     cfg.uncommitOnError,
		AddRateLimitHeaders: cfg.addHeaders,
	})(proxy)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
	servers := []*http.Server{srv}

	if cfg.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv := &http.Server{
			Addr:              cfg.metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		servers = append(servers, metricsSrv)

		go func() {
			log.Printf("metrics listening on %s", cfg.metricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics server error: %v", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, s := range servers {
			_ = s.Shutdown(shutdownCtx)
		}
	}()

	log.Printf("gateway listening on %s -> %s", cfg.listenAddr, target)
	log.Printf("store: kind=%s prefix=%q timeout=%s recordTTL=%s", cfg.storeKind, cfg.storePrefix, cfg.storeTimeout, cfg.recordTTL)
	switch cfg.limiterKind {
	case "fixed":
		log.Printf("limiter: fixed window limit=%d window=%s", cfg.limit, cfg.window)
	default:
		log.Printf("limiter: leaky bucket rate=%.3f burst=%.3f maxDelay=%s", cfg.rate, cfg.burst, cfg.maxDelay)
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

// newRegistry returns the default registry, or an unexported one when no
// metrics endpoint is configured.
func newRegistry(cfg config) *metrics.Registry {
	if cfg.metricsAddr == "" {
		return metrics.NewRegistryWithConfig(metrics.Config{Enabled: false})
	}
	return metrics.DefaultRegistry
}

// openStore connects the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg config, reg *metrics.Registry) (store.CounterStore, func(), error) {
	switch cfg.storeKind {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		closeFn := func() { _ = rdb.Close() }

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}

		s, err := store.NewRedisStore(store.RedisConfig{
			Client:    rdb,
			Prefix:    cfg.storePrefix,
			Timeout:   cfg.storeTimeout,
			RecordTTL: cfg.recordTTL,
		})
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		return s, closeFn, nil

	case "mongo":
		opts := options.Client().ApplyURI(cfg.mongoURI)
		if cfg.mongoTracing {
			opts.SetMonitor(otelmongo.NewMonitor())
		}
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connect: %w", err)
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = client.Ping(pingCtx, nil)
		cancel()
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("mongo ping: %w", err)
		}

		s, err := store.NewMongoStore(store.MongoConfig{
			Collection: client.Database(cfg.mongoDatabase).Collection(cfg.mongoColl),
			Prefix:     cfg.storePrefix,
			Timeout:    cfg.storeTimeout,
			RecordTTL:  cfg.recordTTL,
		})
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return s, closeFn, nil

	default:
		s := store.NewMemoryStore()
		sweeper, err := store.NewSweeper(s, cfg.sweepSchedule, func(removed int) {
			reg.StoreSweptKeys.Add(float64(removed))
		})
		if err != nil {
			return nil, nil, err
		}
		sweeper.Start()
		return s, func() { <-sweeper.Stop().Done() }, nil
	}
}

// newLimiter builds the configured limiter, instrumented with reg.
func newLimiter(cfg config, counters store.CounterStore, reg *metrics.Registry) (*ratelimit.MetricsLimiter, error) {
	switch cfg.limiterKind {
	case "fixed":
		l, err := fixedwindow.New(counters, cfg.limit, cfg.window)
		if err != nil {
			return nil, err
		}
		return ratelimit.NewWithMetrics(l, "fixedwindow", "gateway", reg), nil
	default:
		l, err := leakybucket.New(counters, cfg.rate, cfg.burst)
		if err != nil {
			return nil, err
		}
		return ratelimit.NewWithMetrics(l, "leakybucket", "gateway", reg), nil
	}
}
