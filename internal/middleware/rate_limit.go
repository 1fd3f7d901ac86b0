package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"wego-server/internal/shared/config"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP. Order submission is
// the hot path it protects.
type RateLimiter struct {
	config  config.RateLimitConfig
	clients map[string]*rate.Limiter
	mu      sync.RWMutex
	stop    chan struct{}
	once    sync.Once
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  cfg,
		clients: make(map[string]*rate.Limiter),
		stop:    make(chan struct{}),
	}

	if cfg.Enabled {
		go rl.cleanupClients(time.Minute)
	}

	return rl
}

// Stop ends the background cleanup.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.clients[ip]
	rl.mu.RUnlock()
	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, exists = rl.clients[ip]; !exists {
		limiter = rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize)
		rl.clients[ip] = limiter
	}
	return limiter
}

func (rl *RateLimiter) cleanupClients(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle(time.Now())
		}
	}
}

// evictIdle drops clients whose bucket has refilled completely.
func (rl *RateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, limiter := range rl.clients {
		if limiter.TokensAt(now) >= float64(rl.config.BurstSize) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.config.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		ip := getClientIP(r, rl.config.TrustProxy)
		limiter := rl.getLimiter(ip)

		if !limiter.Allow() {
			slog.Warn("Rate limit exceeded",
				"middleware", "rate_limit",
				"client_ip", ip,
				"method", r.Method,
				"path", r.URL.Path,
				"requests_per_second", rl.config.RequestsPerSecond,
				"burst_size", rl.config.BurstSize,
			)

			w.Header().Set("Retry-After", "1")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// first entry is the client
			if i := strings.IndexByte(xff, ','); i != -1 {
				return strings.TrimSpace(xff[:i])
			}
			return xff
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
