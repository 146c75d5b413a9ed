package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultAddr = "localhost:6379"

var (
	newRedisClient = func(opts *redis.Options) *redis.Client {
		return redis.NewClient(opts)
	}
	pingRedis = func(ctx context.Context, client *redis.Client) error {
		return client.Ping(ctx).Err()
	}
	parseRedisURL = redis.ParseURL
)

// Options turns a REDIS_URL value into client options. Both a bare
// host:port and a redis:// or rediss:// URL are accepted.
func Options(addr string) (*redis.Options, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := parseRedisURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return parsed, nil
	}
	return &redis.Options{Addr: addr}, nil
}

// InitRedis connects and pings. The caller decides whether a failure is fatal;
// the report cache works without Redis.
func InitRedis(ctx context.Context, addr string, logger *zap.Logger) (*redis.Client, error) {
	opts, err := Options(addr)
	if err != nil {
		return nil, err
	}

	client := newRedisClient(opts)
	if err := pingRedis(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to Redis at %s: %w", opts.Addr, err)
	}
	if logger != nil {
		logger.Info("connected to Redis", zap.String("addr", opts.Addr))
	}
	return client, nil
}
