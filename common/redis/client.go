package redis

import (
	"context"
	"fmt"
	"strings"

	"cleantech-console/common/config"

	"github.com/go-redis/redis/v8"
)

// Client aliases the go-redis client so callers need not import it.
type Client = redis.Client

// Connect builds a client from cfg and pings it within ctx. The client is
// closed again when the ping fails.
func Connect(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Key joins parts with ":" into a namespaced key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Close closes client if it is non-nil.
func Close(client *Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
