package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is a prefixed go-redis connection shared by the ledger backend.
type RedisClient struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(opts ...RedisOption) (*RedisClient, error) {
	cfg := defaultRedisConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	client := redis.NewClient(&cfg.Options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Options.Addr, err)
	}

	return &RedisClient{client: client, prefix: cfg.Prefix}, nil
}

// WrapRedisClient uses an existing client, e.g. a redismock client in tests.
func WrapRedisClient(client redis.UniversalClient, prefix string) *RedisClient {
	return &RedisClient{client: client, prefix: prefix}
}

func (c *RedisClient) Client() redis.UniversalClient {
	return c.client
}

// Key joins parts under the configured prefix.
func (c *RedisClient) Key(parts ...string) string {
	return JoinKey(c.prefix, parts...)
}

func (c *RedisClient) Close() error {
	return c.client.Close()
}
