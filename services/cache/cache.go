package cache

import (
	"strconv"
	"time"
)

// CacheService represents a generic cache service
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// BlockGuard records that a site answered "too many requests" so that runs
// started during the block window fail fast instead of hammering it again.
// A nil guard or one without a cache never blocks.
type BlockGuard struct {
	cache CacheService
	key   string
	ttl   time.Duration
	now   func() time.Time
}

// NewBlockGuard creates a guard storing its marker under key for ttl
func NewBlockGuard(cache CacheService, key string, ttl time.Duration) *BlockGuard {
	return &BlockGuard{cache: cache, key: key, ttl: ttl, now: time.Now}
}

// Blocked reports whether the marker is present and how long it has left
func (g *BlockGuard) Blocked() (bool, time.Duration) {
	if g == nil || g.cache == nil {
		return false, 0
	}
	val, err := g.cache.Get(g.key)
	if err != nil {
		return false, 0
	}
	until, err := strconv.ParseInt(string(val), 10, 64)
	if err != nil {
		return true, g.ttl
	}
	left := time.Unix(until, 0).Sub(g.now())
	if left < 0 {
		left = 0
	}
	return true, left
}

// Block stores the marker for the guard's ttl
func (g *BlockGuard) Block() error {
	if g == nil || g.cache == nil {
		return nil
	}
	until := g.now().Add(g.ttl).Unix()
	return g.cache.Set(g.key, []byte(strconv.FormatInt(until, 10)), g.ttl)
}

// TTL is the block window
func (g *BlockGuard) TTL() time.Duration {
	if g == nil {
		return 0
	}
	return g.ttl
}
