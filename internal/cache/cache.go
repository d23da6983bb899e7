// Package cache holds small in-process caches for upstream credentials and
// lookups that are expensive to repeat.
package cache

import "time"

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value that has not expired
	Get(key string) (T, bool)

	// Set stores a value using the cache's default TTL
	Set(key string, data T)

	// SetWithTTL stores a value that expires after ttl
	SetWithTTL(key string, data T, ttl time.Duration)

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}

// Clock returns the current time. Caches take one so expiry can be tested.
type Clock func() time.Time
