package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "roster:dispatch:"

// RedisCache is a Redis-backed cache backend, for deployments where
// several rosterd replicas should share dispatch outcomes.
type RedisCache struct {
	client *redis.Client
	config *Config
}

// NewRedisCache connects to Redis using a redis:// URL.
func NewRedisCache(url string, config *Config) (*RedisCache, error) {
	if config == nil {
		config = DefaultConfig()
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisCache{client: client, config: config}, nil
}

// Get retrieves an entry from Redis.
func (r *RedisCache) Get(ctx context.Context, key string) (*Entry, bool) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[Cache] Redis get failed: %v", err)
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Printf("[Cache] Dropping undecodable redis entry: %v", err)
		r.client.Del(ctx, redisKeyPrefix+key)
		return nil, false
	}
	return &entry, true
}

// Set stores an entry in Redis with the given TTL.
func (r *RedisCache) Set(ctx context.Context, key string, outcome Outcome, ttl time.Duration) error {
	now := time.Now()
	entry := Entry{
		Key:       key,
		Outcome:   outcome,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	data, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := r.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Clear removes all roster cache keys.
func (r *RedisCache) Clear(ctx context.Context) {
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		r.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("[Cache] Redis clear failed: %v", err)
	}
}

// Close closes the Redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
