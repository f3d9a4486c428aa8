package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type config struct {
	listenAddr  string
	metricsAddr string
	upstreamURL string

	storeKind     string
	storePrefix   string
	storeTimeout  time.Duration
	recordTTL     time.Duration
	sweepSchedule string
	redisAddr     string
	redisPassword string
	redisDB       int
	mongoURI      string
	mongoDatabase string
	mongoColl     string
	mongoTracing  bool

	limiterKind string
	rate        float64
	burst       float64
	limit       int64
	window      time.Duration

	keyHeader       string
	trustXFF        bool
	rejectStatus    int
	retryAfter      time.Duration
	maxDelay        time.Duration
	failOpen        bool
	uncommitOnError bool
	addHeaders      bool
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.metricsAddr = getenvDefault("METRICS_ADDR", ":9090")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")

	cfg.storeKind = strings.ToLower(getenvDefault("STORE", "memory"))
	cfg.storePrefix = getenvDefault("STORE_PREFIX", "gatelimit")
	cfg.storeTimeout = getenvDurationDefault("STORE_TIMEOUT", 500*time.Millisecond)
	cfg.recordTTL = getenvDurationDefault("RECORD_TTL", 0)
	cfg.sweepSchedule = getenvDefault("SWEEP_SCHEDULE", "@every 1m")
	cfg.redisAddr = getenvDefault("REDIS_ADDR", "localhost:6379")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)
	cfg.mongoURI = getenvDefault("MONGO_URI", "mongodb://localhost:27017")
	cfg.mongoDatabase = getenvDefault("MONGO_DATABASE", "gatelimit")
	cfg.mongoColl = getenvDefault("MONGO_COLLECTION", "counters")
	cfg.mongoTracing = getenvBoolDefault("MONGO_TRACING", true)

	cfg.limiterKind = strings.ToLower(getenvDefault("LIMITER", "leaky"))
	cfg.rate = getenvFloatDefault("RATE", 200)
	cfg.burst = getenvFloatDefault("BURST", 100)
	cfg.limit = int64(getenvIntDefault("LIMIT", 1000))
	cfg.window = getenvDurationDefault("WINDOW", time.Minute)

	cfg.keyHeader = os.Getenv("KEY_HEADER")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.rejectStatus = getenvIntDefault("REJECT_STATUS", http.StatusServiceUnavailable)
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", time.Second)
	cfg.maxDelay = getenvDurationDefault("MAX_DELAY", 0)
	cfg.failOpen = getenvBoolDefault("FAIL_OPEN", false)
	cfg.uncommitOnError = getenvBoolDefault("UNCOMMIT_ON_ERROR", false)
	cfg.addHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", false)

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	switch cfg.storeKind {
	case "memory", "redis", "mongo":
	default:
		return config{}, fmt.Errorf("STORE must be memory, redis or mongo, got %q", cfg.storeKind)
	}
	switch cfg.limiterKind {
	case "leaky", "fixed":
	default:
		return config{}, fmt.Errorf("LIMITER must be leaky or fixed, got %q", cfg.limiterKind)
	}
	if cfg.rejectStatus < 400 || cfg.rejectStatus > 599 {
		return config{}, fmt.Errorf("REJECT_STATUS must be a 4xx or 5xx status, got %d", cfg.rejectStatus)
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
