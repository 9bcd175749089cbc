package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Vuongsinguyen/VyBrows-Store/pkg/httputil"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/logger"
)

// RateLimitConfig holds the token bucket parameters applied per client.
type RateLimitConfig struct {
	RPS   float64
	Burst int
	// TTL is how long an idle client's bucket is kept.
	TTL time.Duration
}

// DefaultRateLimitConfig allows a short burst of checkout calls per client.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RPS:   2,
		Burst: 10,
		TTL:   3 * time.Minute,
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// bucketStore keeps one limiter per client key. Stale buckets are swept
// lazily on access rather than by a background goroutine.
type bucketStore struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	cfg       RateLimitConfig
	lastSweep time.Time
	now       func() time.Time
}

func newBucketStore(cfg RateLimitConfig) *bucketStore {
	return &bucketStore{
		buckets: make(map[string]*bucket),
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *bucketStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > s.cfg.TTL {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) > s.cfg.TTL {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(s.cfg.RPS), s.cfg.Burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

func (s *bucketStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// RateLimit enforces a per-client token bucket keyed by the connection's
// remote address. Session IDs are minted on demand, so they are not used as
// keys. A non-positive RPS disables limiting.
func RateLimit(cfg RateLimitConfig, l *slog.Logger) func(http.Handler) http.Handler {
	if cfg.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultRateLimitConfig().TTL
	}
	store := newBucketStore(cfg)
	return rateLimit(store, l)
}

func rateLimit(store *bucketStore, l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r)
			if !store.get(key).Allow() {
				l.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("client", key),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter(store.cfg.RPS)))
				httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:      "RATE_LIMITED",
						Message:   "too many requests",
						RequestID: logger.CorrelationIDFromContext(r.Context()),
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter is the whole number of seconds until one token refills.
func retryAfter(rps float64) int {
	return max(1, int(math.Ceil(1/rps)))
}

func rateLimitKey(r *http.Request) string {
	if addr, ok := clientAddr(r.RemoteAddr); ok {
		return addr.String()
	}
	return r.RemoteAddr
}
