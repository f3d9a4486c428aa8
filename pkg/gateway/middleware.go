package gateway

import (
	"context"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	gfcontext "github.com/vnykmshr/gatelimit/pkg/common/context"
	gferrors "github.com/vnykmshr/gatelimit/pkg/common/errors"
	"github.com/vnykmshr/gatelimit/pkg/ratelimit"
)

// RequestIDHeader carries the request ID assigned to requests lacking one.
const RequestIDHeader = "X-Request-Id"

// Options configures Middleware.
type Options struct {
	// Limiter decides every request. Required.
	Limiter ratelimit.Limiter

	// KeyFn derives the key. Defaults to DefaultKeyFunc(KeyHeader, TrustXForwardedFor).
	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool

	// RejectStatus is the status of rejected requests. Defaults to 503.
	RejectStatus int

	// RetryAfter is advertised to rejected clients. Defaults to 1s.
	RetryAfter time.Duration

	// MaxDelay rejects accepted requests whose delay is longer. Zero waits
	// for any delay.
	MaxDelay time.Duration

	// FailOpen serves requests when the limiter fails with anything but a
	// rejection. Otherwise they get a 500.
	FailOpen bool

	// UncommitOnError gives the request back to the limiter when the
	// wrapped handler responds with a 5xx status.
	UncommitOnError bool

	// AddRateLimitHeaders exposes the key and the limiter's verdict.
	AddRateLimitHeaders bool

	// Logger receives limiter failures. Defaults to log.Default().
	Logger *log.Logger
}

// Middleware returns a handler wrapper applying opts.Limiter to each request.
// It panics if opts.Limiter is nil.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Limiter == nil {
		panic("gateway: Options.Limiter is required")
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = time.Second
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
				r.Header.Set(RequestIDHeader, id)
			}
			w.Header().Set(RequestIDHeader, id)

			key := opts.KeyFn(r)
			ctx := r.Context()

			res, err := opts.Limiter.Incoming(ctx, key, true)
			switch {
			case gferrors.IsRejected(err):
				reject(w, opts, key)
				return
			case err != nil:
				opts.Logger.Printf("gateway: limiter failed for key %q (request %s): %v", key, id, err)
				if opts.FailOpen {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			if opts.MaxDelay > 0 && res.Delay > opts.MaxDelay {
				uncommit(opts, key, id, r)
				reject(w, opts, key)
				return
			}

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key)
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
				w.Header().Set("X-RateLimit-Excess", strconv.FormatFloat(res.Excess, 'f', -1, 64))
				w.Header().Set("X-RateLimit-Delay", strconv.FormatInt(res.Delay.Milliseconds(), 10))
			}

			if res.Delay > 0 {
				if err := gfcontext.Sleep(ctx, res.Delay); err != nil {
					// client went away while queued
					uncommit(opts, key, id, r)
					return
				}
			}

			if !opts.UncommitOnError {
				next.ServeHTTP(w, r)
				return
			}

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			if sw.status >= http.StatusInternalServerError {
				uncommit(opts, key, id, r)
			}
		})
	}
}

func reject(w http.ResponseWriter, opts Options, key string) {
	if opts.AddRateLimitHeaders {
		w.Header().Set("X-RateLimit-Key", key)
		w.Header().Set("X-RateLimit-Remaining", "0")
	}
	secs := int(math.Ceil(opts.RetryAfter.Seconds()))
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
}

func uncommit(opts Options, key, id string, r *http.Request) {
	// the request context may already be canceled
	ctx := context.WithoutCancel(r.Context())
	if _, err := opts.Limiter.Uncommit(ctx, key); err != nil && !gferrors.IsNotFound(err) {
		opts.Logger.Printf("gateway: uncommit failed for key %q (request %s): %v", key, id, err)
	}
}

// statusWriter records the status written by the wrapped handler.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
