package repository

import (
	"context"
	"strconv"
	"time"

	"dex-sentinel/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AlertRepository archives alert events in the alert_events table
// created by the embedded migrations.
type AlertRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewAlertRepository(pool PgxPool, tracer trace.Tracer) *AlertRepository {
	return &AlertRepository{pool: pool, tracer: tracer}
}

// InsertAlert stores event and fills in its ID and CreatedAt.
func (r *AlertRepository) InsertAlert(ctx context.Context, event *domain.AlertEvent) error {
	ctx, span := r.tracer.Start(ctx, "alert-repo.insert-alert")
	defer span.End()
	span.SetAttributes(attribute.String("token_key", event.TokenKey.String()))

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO alert_events (token_key, symbol, kind, message, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		event.TokenKey.String(), event.Symbol, string(event.Kind), event.Message, event.CreatedAt,
	).Scan(&event.ID)
}

// ListAlerts returns the newest alerts first, optionally for one token key.
func (r *AlertRepository) ListAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.AlertEvent, error) {
	ctx, span := r.tracer.Start(ctx, "alert-repo.list-alerts")
	defer span.End()

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}

	query := `SELECT id, token_key, symbol, kind, message, created_at FROM alert_events`
	args := []any{}
	if filter.TokenKey != "" {
		query += ` WHERE token_key = $1`
		args = append(args, filter.TokenKey.String())
	}
	args = append(args, limit)
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := make([]domain.AlertEvent, 0)
	for rows.Next() {
		var a domain.AlertEvent
		var key, kind string
		if err := rows.Scan(&a.ID, &key, &a.Symbol, &kind, &a.Message, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.TokenKey = domain.TokenKey(key)
		a.Kind = domain.AlertKind(kind)
		a.CreatedAt = a.CreatedAt.UTC()
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return alerts, nil
}

// DeleteBefore drops archived alerts older than cutoff and reports how many went.
func (r *AlertRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "alert-repo.delete-before")
	defer span.End()

	tag, err := r.pool.Exec(ctx, `DELETE FROM alert_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("rows_deleted", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}
