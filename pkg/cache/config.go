package cache

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOption configures the Redis client.
type RedisOption func(*RedisConfig) error

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Options redis.Options
	Prefix  string
}

func defaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Options: redis.Options{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
			PoolTimeout:  30 * time.Second,
		},
		Prefix: "fincollect",
	}
}

// WithRedisURL applies a redis:// or rediss:// URL. It replaces the address,
// credentials and DB set by earlier options.
func WithRedisURL(rawURL string) RedisOption {
	return func(c *RedisConfig) error {
		if rawURL == "" {
			return nil
		}
		o, err := redis.ParseURL(rawURL)
		if err != nil {
			return fmt.Errorf("redis url: %w", err)
		}
		c.Options.Addr = o.Addr
		c.Options.Username = o.Username
		c.Options.Password = o.Password
		c.Options.DB = o.DB
		c.Options.TLSConfig = o.TLSConfig
		return nil
	}
}

// WithRedisAddr sets host:port.
func WithRedisAddr(addr string) RedisOption {
	return func(c *RedisConfig) error {
		if addr != "" {
			c.Options.Addr = addr
		}
		return nil
	}
}

func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) error {
		if password != "" {
			c.Options.Password = password
		}
		if db < 0 {
			return fmt.Errorf("redis db must be >= 0, got %d", db)
		}
		if db > 0 {
			c.Options.DB = db
		}
		return nil
	}
}

// WithRedisPoolSize sets the connection pool size.
func WithRedisPoolSize(n int) RedisOption {
	return func(c *RedisConfig) error {
		if n > 0 {
			c.Options.PoolSize = n
		}
		return nil
	}
}

// WithRedisPrefix sets the namespace every key is created under.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) error {
		if prefix != "" {
			c.Prefix = prefix
		}
		return nil
	}
}
