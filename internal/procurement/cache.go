package procurement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	orderListVersionKey = "procurement:po:list:version"
	grnListVersionKey   = "procurement:grn:list:version"
)

// Cache wraps Redis-based caching of read views. Listing keys embed a scoped
// version counter, so bumping the order-list version invalidates every order
// listing at once without touching GRN listings, and vice versa. Detail and
// outstanding views are keyed per order and dropped individually.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client degrades to a
// pass-through that always invokes the loader.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// OrderListKey composes the cache key for one page of an order listing.
func (c *Cache) OrderListKey(ctx context.Context, filter OrderFilter, page, pageSize int) (string, error) {
	ver, err := c.version(ctx, orderListVersionKey)
	if err != nil {
		return "", err
	}
	parts := []string{
		"procurement", "po", "list",
		string(filter.Status), filter.Account,
		strconv.Itoa(page), strconv.Itoa(pageSize),
	}
	return fmt.Sprintf("%s:v%d", strings.Join(parts, ":"), ver), nil
}

// GRNListKey composes the cache key for one page of the GRN listing.
func (c *Cache) GRNListKey(ctx context.Context, page, pageSize int) (string, error) {
	ver, err := c.version(ctx, grnListVersionKey)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("procurement:grn:list:%d:%d:v%d", page, pageSize, ver), nil
}

// DetailKey composes the cache key for one order's detail view.
func (c *Cache) DetailKey(poNumber string) string {
	return "procurement:po:detail:" + poNumber
}

// OutstandingKey composes the cache key for one order's outstanding lines.
func (c *Cache) OutstandingKey(poNumber string) string {
	return "procurement:po:outstanding:" + poNumber
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if err != redis.Nil {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// BumpOrders invalidates every cached order listing.
func (c *Cache) BumpOrders(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, orderListVersionKey).Err()
}

// BumpGRNs invalidates every cached GRN listing.
func (c *Cache) BumpGRNs(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, grnListVersionKey).Err()
}

// DropOrder discards the cached detail and outstanding views of one order.
func (c *Cache) DropOrder(ctx context.Context, poNumber string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.DetailKey(poNumber), c.OutstandingKey(poNumber)).Err()
}

func (c *Cache) version(ctx context.Context, key string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, key, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}
