package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedMigrations(t *testing.T) {
	migrations, err := LoadMigrations(MigrationsFS)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(migrations), 2)
	assert.Equal(t, int64(1), migrations[0].Version)
	assert.Equal(t, "alert_events", migrations[0].Name)
	assert.Contains(t, migrations[0].UpSQL, "CREATE TABLE IF NOT EXISTS alert_events")
	assert.NotEmpty(t, migrations[0].DownSQL)
	assert.Equal(t, int64(2), migrations[1].Version)
}

func TestLoadMigrationsRejectsBadSets(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"empty dir":    {},
		"bad name":     {"migrations/first.up.sql": {Data: []byte("SELECT 1")}},
		"missing down": {"migrations/0001_a.up.sql": {Data: []byte("SELECT 1")}},
		"empty file": {
			"migrations/0001_a.up.sql":   {Data: []byte("  ")},
			"migrations/0001_a.down.sql": {Data: []byte("SELECT 1")},
		},
		"name conflict": {
			"migrations/0001_a.up.sql":   {Data: []byte("SELECT 1")},
			"migrations/0001_b.down.sql": {Data: []byte("SELECT 1")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadMigrations(fsys)
			assert.Error(t, err)
		})
	}
}

type fakeRows struct {
	pgx.Rows
	versions []int64
	pos      int
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.versions)
}

func (r *fakeRows) Scan(dest ...any) error {
	*(dest[0].(*int64)) = r.versions[r.pos-1]
	return nil
}

func (r *fakeRows) Values() ([]any, error) {
	return []any{r.versions[r.pos-1]}, nil
}

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	return []pgconn.FieldDescription{{Name: "version"}}
}

func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Close()     {}

type fakeTx struct {
	pgx.Tx
	pool       *fakeMigrator
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx.pool.failOn != "" && strings.Contains(sql, tx.pool.failOn) {
		return pgconn.CommandTag{}, errors.New("boom")
	}
	tx.pool.txStatements = append(tx.pool.txStatements, sql)
	return pgconn.CommandTag{}, nil
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	tx.rolledBack = true
	return nil
}

type fakeMigrator struct {
	applied      []int64
	failOn       string
	execs        []string
	txStatements []string
	txs          []*fakeTx
}

func (m *fakeMigrator) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.execs = append(m.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (m *fakeMigrator) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return &fakeRows{versions: m.applied}, nil
}

func (m *fakeMigrator) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *fakeMigrator) Begin(ctx context.Context) (pgx.Tx, error) {
	tx := &fakeTx{pool: m}
	m.txs = append(m.txs, tx)
	return tx, nil
}

func testMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "one", UpSQL: "CREATE one", DownSQL: "DROP one"},
		{Version: 2, Name: "two", UpSQL: "CREATE two", DownSQL: "DROP two"},
	}
}

func TestMigrateUpSkipsApplied(t *testing.T) {
	pool := &fakeMigrator{applied: []int64{1}}

	n, err := MigrateUp(context.Background(), pool, testMigrations())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pool.txs, 1)
	assert.True(t, pool.txs[0].committed)
	assert.Equal(t, "CREATE two", pool.txStatements[0])
	assert.Contains(t, pool.execs[0], "schema_migrations")
}

func TestMigrateUpRollsBackOnFailure(t *testing.T) {
	pool := &fakeMigrator{failOn: "CREATE two"}

	n, err := MigrateUp(context.Background(), pool, testMigrations())
	require.Error(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pool.txs, 2)
	assert.True(t, pool.txs[1].rolledBack)
	assert.False(t, pool.txs[1].committed)
}

func TestMigrateDown(t *testing.T) {
	pool := &fakeMigrator{applied: []int64{2}}

	n, err := MigrateDown(context.Background(), pool, testMigrations(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "DROP two", pool.txStatements[0])

	_, err = MigrateDown(context.Background(), pool, testMigrations(), 0)
	assert.Error(t, err)

	pool = &fakeMigrator{applied: []int64{9}}
	_, err = MigrateDown(context.Background(), pool, testMigrations(), 1)
	assert.ErrorContains(t, err, "version 9")
}
