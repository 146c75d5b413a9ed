package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"dex-sentinel/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	reportCachePrefix     = "report:"
	defaultReportCacheTTL = 10 * time.Minute
)

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// ReportCache keeps the latest report per token key in Redis. A nil
// client turns every call into a miss.
type ReportCache struct {
	redis RedisClient
	ttl   time.Duration
}

func NewReportCache(client RedisClient, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = defaultReportCacheTTL
	}
	return &ReportCache{redis: client, ttl: ttl}
}

func (c *ReportCache) Enabled() bool {
	return c != nil && c.redis != nil
}

func (c *ReportCache) Set(ctx context.Context, key domain.TokenKey, report domain.AnalyticsReport) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, reportCachePrefix+key.String(), data, c.ttl).Err()
}

// Get returns (nil, nil) on a miss.
func (c *ReportCache) Get(ctx context.Context, key domain.TokenKey) (*domain.AnalyticsReport, error) {
	if !c.Enabled() {
		return nil, nil
	}
	data, err := c.redis.Get(ctx, reportCachePrefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var report domain.AnalyticsReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
