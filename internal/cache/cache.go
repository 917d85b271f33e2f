package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a two tier cache: an LRU in front of Redis. With a nil Redis client
// only the LRU tier is used.
type Cache struct {
	l1Cache *LRUCache
	l2Cache *redis.Client
	l2TTL   time.Duration
	prefix  string

	mu       sync.Mutex
	versions map[string]int64
}

func NewMultiTierCache(l1Capacity int, redisClient *redis.Client, l2TTL time.Duration) *Cache {
	return &Cache{
		l1Cache:  NewLRUCache(l1Capacity, l2TTL),
		l2Cache:  redisClient,
		l2TTL:    l2TTL,
		prefix:   "cache:",
		versions: make(map[string]int64),
	}
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	if val, found := c.l1Cache.Get(key); found {
		return val, true
	}

	if c.l2Cache == nil {
		return "", false
	}

	val, err := c.l2Cache.Get(ctx, c.prefix+key).Result()
	if err == nil {
		c.l1Cache.Set(key, val)
		return val, true
	}

	return "", false
}

func (c *Cache) Set(ctx context.Context, key string, value string) error {
	c.l1Cache.Set(key, value)
	if c.l2Cache == nil {
		return nil
	}
	return c.l2Cache.Set(ctx, c.prefix+key, value, c.l2TTL).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.l1Cache.Delete(key)
	if c.l2Cache == nil {
		return nil
	}
	if err := c.l2Cache.Del(ctx, c.prefix+key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete cache key %s: %w", key, err)
	}
	return nil
}

func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, found := c.Get(ctx, key)
	if !found {
		return false, nil
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		c.l1Cache.Delete(key)
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}

	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.Set(ctx, key, string(data))
}

// Version returns the generation of a group of keys. Entries are stored under
// VersionedKey, so bumping the version hides every older entry on all
// instances sharing the Redis tier.
func (c *Cache) Version(ctx context.Context, group string) (int64, error) {
	if c.l2Cache == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.versions[group], nil
	}

	v, err := c.l2Cache.Get(ctx, c.prefix+"version:"+group).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache version %s: %w", group, err)
	}
	return v, nil
}

// Bump moves a group to its next version.
func (c *Cache) Bump(ctx context.Context, group string) error {
	if c.l2Cache == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.versions[group]++
		return nil
	}

	if err := c.l2Cache.Incr(ctx, c.prefix+"version:"+group).Err(); err != nil {
		return fmt.Errorf("failed to bump cache version %s: %w", group, err)
	}
	return nil
}

func VersionedKey(key string, version int64) string {
	return key + ":v" + strconv.FormatInt(version, 10)
}

// PlanningKey is the cache key of the planning of one day.
func PlanningKey(date string) string {
	return "planning:" + date
}
