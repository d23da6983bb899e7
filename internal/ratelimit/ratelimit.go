// Package ratelimit tracks per-key request budgets over fixed windows.
// Bank data APIs cap calls per account and endpoint per day, and spending
// the budget early leaves the account dark until the window resets.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter provides fixed-window rate limiting per key.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
	now     func() time.Time

	requests int
	window   time.Duration
}

type clientInfo struct {
	windowStart time.Time
	requests    int
}

// Config holds rate limiter configuration
type Config struct {
	// Requests allowed per key within one Window. Zero or less disables
	// limiting.
	Requests int
	Window   time.Duration
}

// DefaultConfig matches the GoCardless per-account daily allowance.
func DefaultConfig() Config {
	return Config{
		Requests: 4,
		Window:   24 * time.Hour,
	}
}

// NewLimiter creates a new rate limiter
func NewLimiter(config Config) *Limiter {
	return NewLimiterWithClock(config, time.Now)
}

// NewLimiterWithClock is NewLimiter with an explicit time source.
func NewLimiterWithClock(config Config, now func() time.Time) *Limiter {
	if config.Window <= 0 {
		config.Window = DefaultConfig().Window
	}
	return &Limiter{
		clients:  make(map[string]*clientInfo),
		now:      now,
		requests: config.Requests,
		window:   config.Window,
	}
}

// Allow reports whether one more request for key fits the budget, and
// spends it when it does.
func (rl *Limiter) Allow(key string) bool {
	if rl == nil || rl.requests <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.cleanupStaleEntries(now)

	client, exists := rl.clients[key]
	if !exists || now.Sub(client.windowStart) >= rl.window {
		rl.clients[key] = &clientInfo{windowStart: now, requests: 1}
		return true
	}
	if client.requests >= rl.requests {
		return false
	}
	client.requests++
	return true
}

// Remaining returns the requests left for key in its current window.
func (rl *Limiter) Remaining(key string) int {
	if rl == nil || rl.requests <= 0 {
		return -1
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	client, exists := rl.clients[key]
	if !exists || rl.now().Sub(client.windowStart) >= rl.window {
		return rl.requests
	}
	return rl.requests - client.requests
}

// ResetAt returns when key's current window ends, or the zero time when
// the key has no open window.
func (rl *Limiter) ResetAt(key string) time.Time {
	if rl == nil {
		return time.Time{}
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	client, exists := rl.clients[key]
	if !exists {
		return time.Time{}
	}
	return client.windowStart.Add(rl.window)
}

// cleanupStaleEntries drops keys whose window closed. Caller holds mu.
func (rl *Limiter) cleanupStaleEntries(now time.Time) {
	for key, client := range rl.clients {
		if now.Sub(client.windowStart) >= rl.window {
			delete(rl.clients, key)
		}
	}
}
