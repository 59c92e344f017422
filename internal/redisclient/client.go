package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	listVersionKey = "products:list:version"
	lastUpdatedKey = "products:last-updated"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) listVersion(ctx context.Context) (string, error) {
	ver, err := c.rdb.Get(ctx, listVersionKey).Result()
	if err == redis.Nil {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return ver, nil
}

// GetListPage returns a cached listing page, or found=false on a miss.
func (c *Client) GetListPage(ctx context.Context, hash string) ([]byte, bool, error) {
	ver, err := c.listVersion(ctx)
	if err != nil {
		return nil, false, err
	}

	payload, err := c.rdb.Get(ctx, fmt.Sprintf("products:list:%s:%s", ver, hash)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

// SetListPage caches one listing page under the current namespace version
func (c *Client) SetListPage(ctx context.Context, hash string, payload []byte, ttl time.Duration) error {
	ver, err := c.listVersion(ctx)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf("products:list:%s:%s", ver, hash), payload, ttl).Err()
}

// InvalidateListings bumps the listing namespace version so every cached
// page goes stale at once, and drops the cached last-updated timestamp.
func (c *Client) InvalidateListings(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, listVersionKey).Err(); err != nil {
		return err
	}
	return c.rdb.Del(ctx, lastUpdatedKey).Err()
}

// GetLastUpdated returns the cached last-updated timestamp, or found=false.
func (c *Client) GetLastUpdated(ctx context.Context) (string, bool, error) {
	val, err := c.rdb.Get(ctx, lastUpdatedKey).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetLastUpdated caches the last-updated timestamp
func (c *Client) SetLastUpdated(ctx context.Context, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, lastUpdatedKey, value, ttl).Err()
}
