package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	dom "github.com/middle0128/Aitravel/internal/domain"
	"github.com/middle0128/Aitravel/internal/repo"

	"github.com/redis/go-redis/v9"
)

const keyList = "orders:list:"

// ListPage is one cached page of the order listing.
type ListPage struct {
	Items []dom.Order `json:"items"`
	Total int         `json:"total"`
}

// OrderCache caches pages of the order listing in Redis, keyed by the full
// filter. Any order or task write invalidates every page.
type OrderCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewOrderCache returns a new OrderCache.
func NewOrderCache(rdb *redis.Client, ttl time.Duration) *OrderCache {
	return &OrderCache{rdb: rdb, ttl: ttl}
}

// Key derives the cache key for a filter.
func Key(f repo.ListFilter) string {
	return keyList + fmt.Sprintf("%s:%s:%d:%d",
		strings.ToLower(strings.TrimSpace(f.Status)),
		strings.ToLower(strings.TrimSpace(f.Search)),
		f.Limit, f.Offset)
}

// GetPage returns the cached page or nil on miss.
func (c *OrderCache) GetPage(ctx context.Context, key string) (*ListPage, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var page ListPage
	if err := json.Unmarshal(b, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SetPage stores the page under the key.
func (c *OrderCache) SetPage(ctx context.Context, key string, page ListPage) error {
	b, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

// InvalidateAll removes every cached listing page (cache invalidation on write).
func (c *OrderCache) InvalidateAll(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, keyList+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
