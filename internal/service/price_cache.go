package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"papertrade/internal/domain"
)

// PriceCache stores quotes for a limited time
type PriceCache interface {
	Get(ctx context.Context, key string) (domain.Quote, bool)
	Set(ctx context.Context, key string, quote domain.Quote, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

type memoryEntry struct {
	quote   domain.Quote
	expires time.Time
}

// MemoryPriceCache is a process-local PriceCache
type MemoryPriceCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryPriceCache creates an empty MemoryPriceCache
func NewMemoryPriceCache() *MemoryPriceCache {
	return &MemoryPriceCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryPriceCache) Get(_ context.Context, key string) (domain.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Quote{}, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return domain.Quote{}, false
	}
	return e.quote, true
}

func (c *MemoryPriceCache) Set(_ context.Context, key string, quote domain.Quote, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{quote: quote, expires: c.now().Add(ttl)}
}

func (c *MemoryPriceCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// RedisPriceCache shares cached quotes between processes through Redis.
// Redis errors are treated as cache misses.
type RedisPriceCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisPriceCache connects to redisURL and verifies the connection
func NewRedisPriceCache(ctx context.Context, redisURL, keyPrefix string) (*RedisPriceCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewRedisPriceCacheFromClient(client, keyPrefix), nil
}

// NewRedisPriceCacheFromClient wraps an existing client. An empty keyPrefix
// selects the default "papertrade:price:".
func NewRedisPriceCacheFromClient(client *redis.Client, keyPrefix string) *RedisPriceCache {
	if keyPrefix == "" {
		keyPrefix = "papertrade:price:"
	}
	return &RedisPriceCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisPriceCache) Get(ctx context.Context, key string) (domain.Quote, bool) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		return domain.Quote{}, false
	}
	var q domain.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Quote{}, false
	}
	return q, true
}

func (c *RedisPriceCache) Set(ctx context.Context, key string, quote domain.Quote, ttl time.Duration) {
	raw, err := json.Marshal(quote)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.keyPrefix+key, raw, ttl)
}

func (c *RedisPriceCache) Delete(ctx context.Context, key string) {
	c.client.Del(ctx, c.keyPrefix+key)
}

// Close releases the Redis connection pool
func (c *RedisPriceCache) Close() error {
	err := c.client.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}
