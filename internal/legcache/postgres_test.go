package legcache

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to the database named by TEST_POSTGRES_DSN, skipping
// the test when the variable is unset so the suite runs without Postgres.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgresRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, InitSchema(ctx, db))

	c := NewPostgres(db, "test-roundtrip")
	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, `DELETE FROM leg_costs WHERE namespace = 'test-roundtrip'`)
	})

	require.NoError(t, c.PutMany(ctx, 1, map[int64]float64{
		2: 120.5,
		3: 99.0,
	}))

	got, err := c.GetMany(ctx, 1, []int64{2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, map[int64]float64{2: 120.5, 3: 99.0}, got)
}

func TestPostgresUpsertOverwrites(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, InitSchema(ctx, db))

	c := NewPostgres(db, "test-upsert")
	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, `DELETE FROM leg_costs WHERE namespace = 'test-upsert'`)
	})

	require.NoError(t, c.PutMany(ctx, 1, map[int64]float64{2: 10.0}))
	require.NoError(t, c.PutMany(ctx, 1, map[int64]float64{2: 20.0}))

	got, err := c.GetMany(ctx, 1, []int64{2})
	require.NoError(t, err)
	assert.Equal(t, 20.0, got[2])
}

func TestPostgresNamespaceIsolation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, InitSchema(ctx, db))

	a := NewPostgres(db, "test-iso-a")
	b := NewPostgres(db, "test-iso-b")
	t.Cleanup(func() {
		_, _ = db.ExecContext(ctx, `DELETE FROM leg_costs WHERE namespace LIKE 'test-iso-%'`)
	})

	require.NoError(t, a.PutMany(ctx, 1, map[int64]float64{2: 11.0}))

	got, err := b.GetMany(ctx, 1, []int64{2})
	require.NoError(t, err)
	assert.Empty(t, got)
}
