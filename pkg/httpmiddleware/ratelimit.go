package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimitConfig configures the per-client sliding window limiter.
type RateLimitConfig struct {
	// Max requests per Window. Zero or less disables limiting.
	Max    int
	Window time.Duration
	// Key identifies the client. Defaults to the client IP.
	Key func(r *http.Request) string
	// Skip exempts requests, such as health probes, from limiting.
	Skip func(r *http.Request) bool
	// Logger receives one line per rejected request.
	Logger *zap.Logger
}

// window counts requests in the current and the previous fixed window.
type window struct {
	prev      float64
	curr      float64
	currStart time.Time
}

type limiter struct {
	max   int
	size  time.Duration
	now   func() time.Time
	mu    sync.Mutex
	byKey map[string]*window
}

func newLimiter(max int, size time.Duration) *limiter {
	return &limiter{
		max:   max,
		size:  size,
		now:   time.Now,
		byKey: make(map[string]*window),
	}
}

// take consumes one request for key. The previous window is weighted by the
// share of it still covered by the sliding window.
func (l *limiter) take(key string) (remaining int, reset time.Time, ok bool) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	win, found := l.byKey[key]
	if !found {
		win = &window{currStart: now}
		l.byKey[key] = win
	}
	if elapsed := now.Sub(win.currStart); elapsed >= l.size {
		win.prev = win.curr
		if elapsed >= 2*l.size {
			win.prev = 0
		}
		win.curr = 0
		win.currStart = now.Truncate(l.size)
	}

	overlap := max(0, 1-now.Sub(win.currStart).Seconds()/l.size.Seconds())
	used := win.prev*overlap + win.curr
	reset = win.currStart.Add(l.size)
	if used >= float64(l.max) {
		return 0, reset, false
	}
	win.curr++
	return max(0, int(float64(l.max)-used-1)), reset, true
}

// evict drops clients idle for two full windows.
func (l *limiter) evict() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, win := range l.byKey {
		if now.Sub(win.currStart) >= 2*l.size {
			delete(l.byKey, key)
		}
	}
}

// RateLimit rejects clients over the limit with 429 and a JSON error body.
// Every limited response carries X-RateLimit-Limit, X-RateLimit-Remaining
// and X-RateLimit-Reset. Idle clients are evicted until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Key == nil {
		cfg.Key = ClientIP
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	l := newLimiter(cfg.Max, cfg.Window)
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.evict()
			}
		}
	}()

	limit := strconv.Itoa(cfg.Max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := cfg.Key(r)
			remaining, reset, ok := l.take(key)

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !ok {
				retry := max(0, reset.Sub(l.now()))
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				cfg.Logger.Warn("Rate limit exceeded",
					zap.String("client", key),
					zap.String("path", r.URL.Path),
				)
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
