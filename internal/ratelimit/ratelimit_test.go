package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	rl := NewLimiterWithClock(Config{Requests: 2, Window: 24 * time.Hour}, func() time.Time { return now })

	tests := []struct {
		name    string
		key     string
		advance time.Duration
		want    bool
	}{
		{"first", "acc-a/transactions", 0, true},
		{"second", "acc-a/transactions", time.Hour, true},
		{"over budget", "acc-a/transactions", time.Hour, false},
		{"other endpoint", "acc-a/balances", 0, true},
		{"other account", "acc-b/transactions", 0, true},
		{"window reset", "acc-a/transactions", 22 * time.Hour, true},
	}

	for _, tt := range tests {
		now = now.Add(tt.advance)
		if got := rl.Allow(tt.key); got != tt.want {
			t.Errorf("%s: Allow(%q) = %v, want %v", tt.name, tt.key, got, tt.want)
		}
	}
}

func TestLimiter_RemainingAndReset(t *testing.T) {
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	now := start
	rl := NewLimiterWithClock(Config{Requests: 4, Window: 24 * time.Hour}, func() time.Time { return now })

	if got := rl.Remaining("k"); got != 4 {
		t.Fatalf("Remaining() = %d, want 4", got)
	}
	rl.Allow("k")
	rl.Allow("k")
	if got := rl.Remaining("k"); got != 2 {
		t.Fatalf("Remaining() = %d, want 2", got)
	}
	if got := rl.ResetAt("k"); !got.Equal(start.Add(24 * time.Hour)) {
		t.Fatalf("ResetAt() = %v", got)
	}

	now = now.Add(25 * time.Hour)
	rl.Allow("other")
	if len(rl.clients) != 1 {
		t.Fatalf("stale key should be cleaned up, have %d", len(rl.clients))
	}
}

func TestLimiter_Disabled(t *testing.T) {
	rl := NewLimiter(Config{Requests: 0})
	for i := 0; i < 100; i++ {
		if !rl.Allow("k") {
			t.Fatal("a zero budget disables limiting")
		}
	}
	var nilLimiter *Limiter
	if !nilLimiter.Allow("k") {
		t.Fatal("nil limiter allows everything")
	}
}
