package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/kbukum/voicegate/errors"
)

// RateLimitConfig configures per-client token bucket limiting.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	// Burst is the bucket size.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// IdleTTL drops a client's bucket after this long without requests.
	IdleTTL time.Duration `yaml:"idle_ttl" mapstructure:"idle_ttl"`
	// KeyFunc extracts the client key. Defaults to the remote IP.
	KeyFunc func(*http.Request) string `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills zero values.
func (c *RateLimitConfig) ApplyDefaults() {
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 10
	}
	if c.Burst <= 0 {
		c.Burst = 20
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 10 * time.Minute
	}
	if c.KeyFunc == nil {
		c.KeyFunc = ClientIP
	}
}

// RateLimit returns middleware that answers 429 once a client exhausts its
// bucket. Probe paths are never limited.
func RateLimit(cfg RateLimitConfig) Middleware {
	cfg.ApplyDefaults()
	rl := &rateLimiter{cfg: cfg, clients: make(map[string]*client), now: time.Now}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if probePaths[r.URL.Path] || rl.allow(cfg.KeyFunc(r)) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", "1")
			writeError(w, apperrors.RateLimited(r.URL.Path))
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, else the remote host.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	cfg       RateLimitConfig
	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
	now       func() time.Time
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > rl.cfg.IdleTTL {
		for k, c := range rl.clients {
			if now.Sub(c.lastSeen) > rl.cfg.IdleTTL {
				delete(rl.clients, k)
			}
		}
		rl.lastSweep = now
	}

	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}
