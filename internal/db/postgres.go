package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var (
	newPool  = pgxpool.New
	pingPool = func(ctx context.Context, pool *pgxpool.Pool) error {
		return pool.Ping(ctx)
	}
)

// InitPostgres opens and pings a pool for dsn. An empty dsn returns (nil, nil):
// the alert archive is optional.
func InitPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*pgxpool.Pool, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, nil
	}
	pool, err := newPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pingPool(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if logger != nil {
		logger.Info("connected to Postgres")
	}
	return pool, nil
}
