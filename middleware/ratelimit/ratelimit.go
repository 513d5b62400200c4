// Package ratelimit throttles requests per client IP with a token bucket.
package ratelimit

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/time/rate"
)

const TextCodeRateLimited = "RATE_LIMITED"

// ErrRateLimited is returned when a client runs out of tokens
var ErrRateLimited = goerrors.New("rate limit exceeded, try again later", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeRateLimited).
	WithCode(fiber.StatusTooManyRequests)

type Config struct {
	// Rate is the number of requests per second refilled into the bucket
	Rate float64
	// Burst is the bucket size
	Burst int
	// IdleTTL is how long an idle client is remembered
	IdleTTL time.Duration
	// CleanupInterval is how often idle clients are dropped
	CleanupInterval time.Duration
	// KeyFunc derives the client key, the request IP by default
	KeyFunc func(*fiber.Ctx) string
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per client
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	clients map[string]*client
	now     func() time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a limiter and starts its janitor. Call Close to stop it.
func New(cfg Config) *Limiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *fiber.Ctx) string {
			return c.IP()
		}
	}

	l := &Limiter{
		cfg:     cfg,
		clients: make(map[string]*client),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Handler returns the fiber middleware
func (l *Limiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.Allow(l.cfg.KeyFunc(c)) {
			c.Set(fiber.HeaderRetryAfter, "1")
			return ErrRateLimited
		}
		return c.Next()
	}
}

// Allow reports whether key may make a request now
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	cl, ok := l.clients[key]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(rate.Limit(l.cfg.Rate), l.cfg.Burst)}
		l.clients[key] = cl
	}
	cl.lastSeen = l.now()
	l.mu.Unlock()

	return cl.limiter.Allow()
}

// Len returns the number of tracked clients
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Sweep drops clients idle for longer than IdleTTL
func (l *Limiter) Sweep() {
	cutoff := l.now().Add(-l.cfg.IdleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, cl := range l.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}

// Close stops the janitor and waits for it to exit
func (l *Limiter) Close() error {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
	<-l.done
	return nil
}

func (l *Limiter) janitor() {
	defer close(l.done)

	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
