package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mev-lab/internal/storage/migrations"
)

func TestMigrate_Idempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	// setupTestDB already migrated the database.
	n, err := pool.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	all, err := migrations.Postgres()
	require.NoError(t, err)

	var recorded int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&recorded))
	assert.Equal(t, len(all), recorded)
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	extra := []migrations.Migration{
		{Version: 900, Name: "ok", SQL: `CREATE TABLE scratch (id INT)`},
		{Version: 901, Name: "broken", SQL: `CREATE TABLE`},
	}
	_, err := pool.apply(ctx, extra)
	require.Error(t, err)

	var exists bool
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = 900)`).Scan(&exists))
	assert.False(t, exists, "900 should have been rolled back with 901")
}
