// Package cache caches dispatch outcomes. Scoring is deterministic for a
// given catalog version, so a (catalog version, task) pair can be safely
// served from cache until the catalog is reloaded.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rosterlabs/roster/pkg/models"
)

// Outcome is a cached dispatch result. NoMatch outcomes are cached too:
// re-scoring an unmatched task against an unchanged catalog cannot
// produce a different answer.
type Outcome struct {
	Handle  *models.DispatchHandle `json:"handle,omitempty"`
	NoMatch bool                   `json:"no_match"`
}

// Entry represents a cached outcome
type Entry struct {
	Key       string    `json:"key"`
	Outcome   Outcome   `json:"outcome"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Hits      int64     `json:"hits"`
}

// Config defines cache configuration
type Config struct {
	Enabled       bool          `json:"enabled"`
	DefaultTTL    time.Duration `json:"default_ttl"`
	MaxSize       int           `json:"max_size"`
	CleanupPeriod time.Duration `json:"cleanup_period"`
}

// DefaultConfig returns sensible defaults for caching
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultTTL:    5 * time.Minute,
		MaxSize:       10000,
		CleanupPeriod: time.Minute,
	}
}

// Backend is the interface for cache storage backends
type Backend interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, outcome Outcome, ttl time.Duration) error
	Clear(ctx context.Context)
	Close() error
}

// Stats tracks cache performance
type Stats struct {
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
	Evictions    int64   `json:"evictions"`
	TotalEntries int64   `json:"total_entries"`
	HitRate      float64 `json:"hit_rate"`
}

// Cache provides dispatch outcome caching with an in-memory default and
// an optional Redis backend.
type Cache struct {
	backend Backend
	config  *Config
	entries map[string]*Entry
	mu      sync.RWMutex
	stats   Stats
	done    chan struct{}
}

// New creates a new in-memory cache instance
func New(config *Config) *Cache {
	if config == nil {
		config = DefaultConfig()
	}

	c := &Cache{
		config:  config,
		entries: make(map[string]*Entry),
		done:    make(chan struct{}),
	}

	if config.Enabled && config.CleanupPeriod > 0 {
		go c.cleanupLoop()
	}

	return c
}

// NewFromRedis creates a cache instance backed by Redis
func NewFromRedis(redisCache *RedisCache) *Cache {
	return &Cache{
		backend: redisCache,
		config:  redisCache.config,
		done:    make(chan struct{}),
	}
}

// GenerateKey creates a cache key from the catalog version and the task.
// Hints participate order-independently.
func GenerateKey(catalogVersion uint64, task *models.TaskSignature) string {
	hints := make([]string, len(task.Hints))
	for i, h := range task.Hints {
		hints[i] = strings.ToLower(strings.TrimSpace(h))
	}
	sort.Strings(hints)

	hasher := sha256.New()
	fmt.Fprintf(hasher, "v%d:", catalogVersion)
	hasher.Write([]byte(task.Text))
	for _, h := range hints {
		hasher.Write([]byte{0})
		hasher.Write([]byte(h))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// Get retrieves a cached outcome if available and not expired
func (c *Cache) Get(ctx context.Context, key string) (*Entry, bool) {
	if !c.config.Enabled {
		return nil, false
	}

	if c.backend != nil {
		entry, ok := c.backend.Get(ctx, key)
		c.recordLookup(ok)
		return entry, ok
	}

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordLookup(false)
		return nil, false
	}
	if time.Now().After(entry.ExpiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		c.recordLookup(false)
		return nil, false
	}

	c.mu.Lock()
	entry.Hits++
	c.mu.Unlock()
	c.recordLookup(true)
	return entry, true
}

// Set stores an outcome under the given key
func (c *Cache) Set(ctx context.Context, key string, outcome Outcome) error {
	if !c.config.Enabled {
		return nil
	}

	if c.backend != nil {
		return c.backend.Set(ctx, key, outcome, c.config.DefaultTTL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.MaxSize > 0 && len(c.entries) >= c.config.MaxSize {
		c.evictOldestLocked()
	}

	now := time.Now()
	c.entries[key] = &Entry{
		Key:       key,
		Outcome:   outcome,
		CachedAt:  now,
		ExpiresAt: now.Add(c.config.DefaultTTL),
	}
	return nil
}

// Clear removes all entries. Called on catalog reload: outcomes computed
// against the old snapshot must not outlive it.
func (c *Cache) Clear(ctx context.Context) {
	if c.backend != nil {
		c.backend.Clear(ctx)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
}

// GetStats returns a snapshot of cache performance counters
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.TotalEntries = int64(len(c.entries))
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// Close stops the background cleanup goroutine and closes the backend
// connection when one is attached.
func (c *Cache) Close() {
	close(c.done)
	if c.backend != nil {
		if err := c.backend.Close(); err != nil {
			log.Printf("[Cache] Backend close failed: %v", err)
		}
	}
}

func (c *Cache) recordLookup(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
}

// evictOldestLocked drops the entry closest to expiry. Caller holds mu.
func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.ExpiresAt.Before(oldest) {
			oldestKey = key
			oldest = entry.ExpiresAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.stats.Evictions++
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.ExpiresAt) {
					delete(c.entries, key)
					c.stats.Evictions++
				}
			}
			c.mu.Unlock()
		}
	}
}
