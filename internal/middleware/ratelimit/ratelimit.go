// Package ratelimit provides a token bucket limiter keyed by user, so one
// chatty client cannot starve the pipeline for everyone else.
package ratelimit

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fleetassist/backend/pkg/logger"
)

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
	lastSeen   time.Time
}

type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	capacity   float64
	refillRate float64 // tokens per second
	stop       chan struct{}
}

// NewLimiter builds a limiter allowing maxPerMinute requests per key with
// bursts up to the same size. A background sweep drops buckets idle for
// ten minutes.
func NewLimiter(maxPerMinute int) *Limiter {
	if maxPerMinute <= 0 {
		maxPerMinute = 60
	}

	l := &Limiter{
		buckets:    make(map[string]*bucket),
		capacity:   float64(maxPerMinute),
		refillRate: float64(maxPerMinute) / 60.0,
		stop:       make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow consumes one token for key, reporting whether the request may
// proceed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.capacity, lastRefill: time.Now()}
		l.buckets[key] = b
	}
	l.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.lastSeen = now

	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * l.refillRate
	if b.tokens > l.capacity {
		b.tokens = l.capacity
	}
	b.lastRefill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (l *Limiter) Close() {
	close(l.stop)
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-10 * time.Minute)
			l.mu.Lock()
			for key, b := range l.buckets {
				b.mu.Lock()
				idle := b.lastSeen.Before(cutoff)
				b.mu.Unlock()
				if idle {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Middleware enforces the limit per user key, falling back to the client
// IP for anonymous requests.
func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-User-ID")
		if key == "" {
			key = c.IP()
		}

		if !l.Allow(key) {
			logger.Warn("rate limit exceeded",
				zap.String("key", key),
				zap.String("path", c.Path()))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please slow down and try again shortly.",
			})
		}

		return c.Next()
	}
}
