package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"dex-sentinel/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

type fakeRow struct {
	id  int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.id
	return nil
}

type fakeRows struct {
	pgx.Rows
	events []domain.AlertEvent
	pos    int
	closed bool
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.events)
}

func (r *fakeRows) Scan(dest ...any) error {
	e := r.events[r.pos-1]
	*(dest[0].(*int64)) = e.ID
	*(dest[1].(*string)) = e.TokenKey.String()
	*(dest[2].(*string)) = e.Symbol
	*(dest[3].(*string)) = string(e.Kind)
	*(dest[4].(*string)) = e.Message
	*(dest[5].(*time.Time)) = e.CreatedAt
	return nil
}

func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Close()     { r.closed = true }

type fakePool struct {
	lastSQL  string
	lastArgs []any
	rowID    int64
	rowErr   error
	rows     *fakeRows
	queryErr error
	execTag  pgconn.CommandTag
}

func (p *fakePool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.lastSQL, p.lastArgs = sql, args
	return p.execTag, nil
}

func (p *fakePool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.lastSQL, p.lastArgs = sql, args
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	return p.rows, nil
}

func (p *fakePool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	p.lastSQL, p.lastArgs = sql, args
	return fakeRow{id: p.rowID, err: p.rowErr}
}

func TestInsertAlertFillsIDAndTimestamp(t *testing.T) {
	pool := &fakePool{rowID: 42}
	repo := NewAlertRepository(pool, testTracer)

	event := &domain.AlertEvent{TokenKey: "solana-So111", Symbol: "SMP", Kind: domain.AlertKindPrice, Message: "PRICE ALERT"}
	require.NoError(t, repo.InsertAlert(context.Background(), event))

	assert.Equal(t, int64(42), event.ID)
	assert.False(t, event.CreatedAt.IsZero())
	assert.Contains(t, pool.lastSQL, "INSERT INTO alert_events")
	assert.Equal(t, []any{"solana-So111", "SMP", "price", "PRICE ALERT", event.CreatedAt}, pool.lastArgs)
}

func TestInsertAlertPropagatesError(t *testing.T) {
	pool := &fakePool{rowErr: errors.New("unique violation")}
	repo := NewAlertRepository(pool, testTracer)
	assert.Error(t, repo.InsertAlert(context.Background(), &domain.AlertEvent{}))
}

func TestListAlertsFiltersAndLimits(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := &fakeRows{events: []domain.AlertEvent{
		{ID: 2, TokenKey: "solana-So111", Symbol: "SMP", Kind: domain.AlertKindVolume, Message: "VOLUME ALERT", CreatedAt: at},
	}}
	pool := &fakePool{rows: rows}
	repo := NewAlertRepository(pool, testTracer)

	alerts, err := repo.ListAlerts(context.Background(), domain.AlertFilter{TokenKey: "solana-So111", Limit: 10_000})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertKindVolume, alerts[0].Kind)
	assert.Equal(t, at, alerts[0].CreatedAt)
	assert.True(t, rows.closed)
	assert.Contains(t, pool.lastSQL, "WHERE token_key = $1")
	assert.Contains(t, pool.lastSQL, "LIMIT $2")
	assert.Equal(t, []any{"solana-So111", maxAlertLimit}, pool.lastArgs)
}

func TestListAlertsUnfiltered(t *testing.T) {
	pool := &fakePool{rows: &fakeRows{}}
	repo := NewAlertRepository(pool, testTracer)

	alerts, err := repo.ListAlerts(context.Background(), domain.AlertFilter{})
	require.NoError(t, err)
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
	assert.NotContains(t, pool.lastSQL, "WHERE")
	assert.Equal(t, []any{defaultAlertLimit}, pool.lastArgs)

	pool.queryErr = errors.New("conn reset")
	_, err = repo.ListAlerts(context.Background(), domain.AlertFilter{})
	assert.Error(t, err)
}

func TestDeleteBefore(t *testing.T) {
	pool := &fakePool{execTag: pgconn.NewCommandTag("DELETE 7")}
	repo := NewAlertRepository(pool, testTracer)

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	n, err := repo.DeleteBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, []any{cutoff}, pool.lastArgs)
}
