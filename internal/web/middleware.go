package web

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/justestif/go-spotify-custom-player/internal/logging"
)

// requestLogger attaches a per-request logger to the context and logs each
// completed request. It relies on middleware.RequestID running first.
func requestLogger(base *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLogger := base.With(
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)
			ctx := logging.WithLogger(r.Context(), reqLogger)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				reqLogger.Info("request completed", "status", status, "duration", time.Since(start))
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter controls how frequently a caller may perform an action.
type RateLimiter interface {
	Allow(key string) bool
}

// ipRateLimiter tracks request rates per key (typically an IP address) with expiration.
type ipRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

// NewIPRateLimiter constructs a per-key rate limiter that allows up to requests
// events per window with an additional burst capacity. Idle keys are forgotten
// after ttl.
func NewIPRateLimiter(requests int, window time.Duration, burst int, ttl time.Duration) RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &ipRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (l *ipRateLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	now := l.now()

	l.mu.Lock()
	v := l.visitorLocked(key, now)
	l.gcLocked(now)
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

func (l *ipRateLimiter) visitorLocked(key string, now time.Time) *visitor {
	if v, ok := l.visitors[key]; ok {
		v.lastSeen = now
		return v
	}

	v := &visitor{limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
	l.visitors[key] = v
	return v
}

func (l *ipRateLimiter) gcLocked(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, key)
		}
	}
}

// rateLimit rejects requests from clients over their limit with onLimit.
func rateLimit(limiter RateLimiter, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientIP(r)) {
				logging.FromContext(r.Context()).Warn("rate limit exceeded")
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the request's remote address without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
