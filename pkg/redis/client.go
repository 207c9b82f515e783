package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultDialTimeout = 5 * time.Second

// NewClientFromURL creates a Redis client from a URL
// (redis://[user:pass@]host:port/db) and verifies connectivity.
//
// The read timeout is disabled here: blocking stream reads carry their own
// per-call block duration, and a fixed socket read timeout would cut them off.
func NewClientFromURL(ctx context.Context, redisURL string) (*goredis.Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if opts.DialTimeout == 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = defaultDialTimeout
	}
	// -1 disables the socket read deadline so XREADGROUP BLOCK governs itself.
	opts.ReadTimeout = -1

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
