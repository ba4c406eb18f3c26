package redistools

import (
	"context"
	"fmt"
	"time"

	"github.com/Leopold1975/helpdesk/internal/pkg/config"
	"github.com/redis/go-redis/v9"
)

const maxPingDelay = time.Second * 10

// NewClient returns a client that has answered a ping.
func NewClient(ctx context.Context, cfg config.RedisCache) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{ //nolint:exhaustruct
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := Connect(ctx, rdb); err != nil {
		rdb.Close() //nolint:errcheck

		return nil, err
	}

	return rdb, nil
}

// Connect pings until redis answers, waiting one second longer after every failure.
func Connect(ctx context.Context, rdb *redis.Client) error {
	for delay := time.Second; ; delay += time.Second {
		err := rdb.Ping(ctx).Err()
		if err == nil {
			return nil
		}

		if delay > maxPingDelay {
			return fmt.Errorf("cannot ping redis db error: %w", err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("context error: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
}
