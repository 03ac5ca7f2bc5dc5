package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/letscience-intel-server/internal/domain"
)

const (
	defaultCacheTTL       = 6 * time.Hour
	defaultMemoryCacheTTL = 15 * time.Minute
	defaultMemoryMaxSize  = 1024
)

// cacheEnvelope wraps cached payloads with their timestamps
type cacheEnvelope struct {
	Data      json.RawMessage `json:"data"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func newEnvelope(value interface{}, ttl time.Duration, now time.Time) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache data: %w", err)
	}
	return json.Marshal(cacheEnvelope{Data: data, CachedAt: now, ExpiresAt: now.Add(ttl)})
}

// openEnvelope decodes a live envelope into dest. It reports false for
// corrupted or expired entries.
func openEnvelope(raw []byte, dest interface{}, now time.Time) bool {
	var env cacheEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false
	}
	if now.After(env.ExpiresAt) {
		return false
	}
	return json.Unmarshal(env.Data, dest) == nil
}

// CacheKey builds a namespaced key from the hash of its parts
func CacheKey(namespace string, parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = strings.ToLower(strings.TrimSpace(p))
	}
	hash := sha256.Sum256([]byte(strings.Join(normalized, "\x00")))
	return fmt.Sprintf("%s:%x", namespace, hash[:8])
}

// CacheClient handles Redis caching of connector responses
type CacheClient struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewCacheClient creates a new Redis cache client
func NewCacheClient(config domain.CacheConfig) (*CacheClient, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := config.DefaultTTL
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	return &CacheClient{redis: rdb, defaultTTL: ttl}, nil
}

// Get decodes the entry stored under key into dest. Corrupted and expired
// entries are deleted and reported as misses.
func (c *CacheClient) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s from cache: %w", key, err)
	}

	if !openEnvelope(raw, dest, time.Now()) {
		c.redis.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

// Set stores value under key. A zero ttl uses the client default.
func (c *CacheClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	raw, err := newEnvelope(value, ttl, time.Now())
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, key, raw, ttl).Err()
}

// Delete removes keys
func (c *CacheClient) Delete(ctx context.Context, keys ...string) error {
	return c.redis.Del(ctx, keys...).Err()
}

// InvalidatePattern removes all cached data matching a pattern
func (c *CacheClient) InvalidatePattern(ctx context.Context, pattern string) error {
	var keys []string
	iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys for pattern %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}

// Ping checks if Redis connection is alive
func (c *CacheClient) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *CacheClient) Close() error {
	return c.redis.Close()
}

// TieredCache keeps recent entries in an expiring in-process LRU and falls
// back to Redis when one is configured.
type TieredCache struct {
	memory *expirable.LRU[string, []byte]
	remote *CacheClient
	ttl    time.Duration
	logger *logrus.Logger
}

// NewTieredCache creates the cache. remote may be nil.
func NewTieredCache(config domain.CacheConfig, remote *CacheClient, logger *logrus.Logger) *TieredCache {
	size := config.MemoryMaxSize
	if size <= 0 {
		size = defaultMemoryMaxSize
	}
	memTTL := config.MemoryTTL
	if memTTL <= 0 {
		memTTL = defaultMemoryCacheTTL
	}
	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &TieredCache{
		memory: expirable.NewLRU[string, []byte](size, nil, memTTL),
		remote: remote,
		ttl:    ttl,
		logger: logger,
	}
}

// Get looks key up in memory, then in Redis. Redis hits are promoted to
// memory. Redis failures are logged and treated as misses.
func (t *TieredCache) Get(ctx context.Context, key string, dest interface{}) bool {
	if raw, ok := t.memory.Get(key); ok {
		if openEnvelope(raw, dest, time.Now()) {
			return true
		}
		t.memory.Remove(key)
	}
	if t.remote == nil {
		return false
	}

	found, err := t.remote.Get(ctx, key, dest)
	if err != nil {
		t.logger.WithError(err).WithField("key", key).Warn("Redis cache read failed")
		return false
	}
	if found {
		if raw, err := newEnvelope(dest, t.ttl, time.Now()); err == nil {
			t.memory.Add(key, raw)
		}
	}
	return found
}

// Set stores value in both tiers
func (t *TieredCache) Set(ctx context.Context, key string, value interface{}) {
	raw, err := newEnvelope(value, t.ttl, time.Now())
	if err != nil {
		t.logger.WithError(err).WithField("key", key).Warn("Failed to encode cache entry")
		return
	}
	t.memory.Add(key, raw)
	if t.remote == nil {
		return
	}
	if err := t.remote.Set(ctx, key, value, t.ttl); err != nil {
		t.logger.WithError(err).WithField("key", key).Warn("Redis cache write failed")
	}
}

// Invalidate removes key from both tiers
func (t *TieredCache) Invalidate(ctx context.Context, key string) {
	t.memory.Remove(key)
	if t.remote != nil {
		if err := t.remote.Delete(ctx, key); err != nil {
			t.logger.WithError(err).WithField("key", key).Warn("Redis cache delete failed")
		}
	}
}

// Len returns the number of in-memory entries
func (t *TieredCache) Len() int {
	return t.memory.Len()
}
