package rediscache

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const keyPrefix = "darasa:"

// Cache keeps reports in Redis so that several API instances share them.
type Cache struct {
	client *redis.Client
}

// New connects to the Redis server at url (e.g. redis://localhost:6379/0).
func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis URL")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &Cache{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}
	return value, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, keyPrefix+key)
	}
	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		return errors.Wrap(err, "redis del")
	}
	return nil
}

// Incr bumps each counter in a single round trip. Counters are stored without expiration.
func (c *Cache) Incr(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Incr(ctx, keyPrefix+key)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "redis incr")
	}
	return nil
}

func (c *Cache) Counters(ctx context.Context, keys ...string) ([]int64, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, keyPrefix+key)
	}
	raw, err := c.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "redis mget")
	}
	return parseCounters(keys, raw)
}

// parseCounters reads MGET replies, a missing key counting as 0.
func parseCounters(keys []string, raw []interface{}) ([]int64, error) {
	if len(raw) != len(keys) {
		return nil, errors.Errorf("redis mget: got %d values for %d keys", len(raw), len(keys))
	}
	values := make([]int64, len(keys))
	for i, v := range raw {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, errors.Errorf("redis counter %s: unexpected %T", keys[i], v)
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "redis counter %s", keys[i])
		}
		values[i] = n
	}
	return values, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
