//go:build integration

package datastore

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	// Shared connection string for all tests in local dev
	sharedConnStr string
	containerOnce sync.Once
	containerErr  error
)

// getOrCreateSharedDatabase returns a connection string to the shared
// database. In CI, uses CI_DATABASE_URL. In local dev, starts a shared
// testcontainer once per package.
func getOrCreateSharedDatabase(t *testing.T) string {
	if ciDatabaseURL := os.Getenv("CI_DATABASE_URL"); ciDatabaseURL != "" {
		t.Log("Using external PostgreSQL from CI_DATABASE_URL")
		return ciDatabaseURL
	}

	containerOnce.Do(func() {
		ctx := context.Background()
		t.Log("Starting shared PostgreSQL testcontainer for all tests")

		pgContainer, err := postgres.Run(ctx,
			"postgres:17-alpine",
			postgres.WithDatabase("test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			containerErr = fmt.Errorf("failed to start postgres container: %w", err)
			return
		}

		connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			containerErr = fmt.Errorf("failed to get connection string: %w", err)
			return
		}
		sharedConnStr = connStr
	})

	require.NoError(t, containerErr, "Failed to setup shared test container")
	return sharedConnStr
}

// setupStore opens a fresh pool against the shared database, applies
// migrations, and truncates the records table so each test starts clean.
func setupStore(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	db, err := stdsql.Open("pgx", getOrCreateSharedDatabase(t))
	require.NoError(t, err)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	store, err := NewPostgresStoreFromDB(db, "test")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, "TRUNCATE records")
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPostgresStorePutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	err := store.Put(ctx, "flights", "EY123:2026-01-20", []byte(`{"status": "delayed"}`),
		map[string]string{"flight_number": "EY123", "status": "delayed"})
	require.NoError(t, err)

	rec, err := store.Get(ctx, "flights", "EY123:2026-01-20")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "delayed"}`, string(rec.Value))
	assert.Equal(t, "EY123", rec.Indexes["flight_number"])
	assert.WithinDuration(t, time.Now(), rec.UpdatedAt, time.Minute)
}

func TestPostgresStoreUpsert(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	require.NoError(t, store.Put(ctx, "flights", "EY123", []byte(`{"n": 1}`), map[string]string{"status": "delayed"}))
	require.NoError(t, store.Put(ctx, "flights", "EY123", []byte(`{"n": 2}`), map[string]string{"status": "cancelled"}))

	rec, err := store.Get(ctx, "flights", "EY123")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n": 2}`, string(rec.Value))
	assert.Equal(t, "cancelled", rec.Indexes["status"])
}

func TestPostgresStoreQueryBySecondaryIndex(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	require.NoError(t, store.Put(ctx, "flights", "EY456", []byte(`{}`), map[string]string{"status": "delayed"}))
	require.NoError(t, store.Put(ctx, "flights", "EY123", []byte(`{}`), map[string]string{"status": "delayed"}))
	require.NoError(t, store.Put(ctx, "flights", "EY789", []byte(`{}`), map[string]string{"status": "on_time"}))
	require.NoError(t, store.Put(ctx, "crew", "C1", []byte(`{}`), map[string]string{"status": "delayed"}))

	recs, err := store.Query(ctx, "flights", "status", "delayed")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "EY123", recs[0].Key)
	assert.Equal(t, "EY456", recs[1].Key)
}

func TestPostgresStoreGetNotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.Get(context.Background(), "flights", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	require.NoError(t, store.Put(ctx, "flights", "EY123", []byte(`{}`), nil))
	require.NoError(t, store.Delete(ctx, "flights", "EY123"))

	_, err := store.Get(ctx, "flights", "EY123")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Delete(ctx, "flights", "missing"))
}

func TestPostgresStoreHealth(t *testing.T) {
	store := setupStore(t)

	health, err := Health(context.Background(), store.DB())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.GreaterOrEqual(t, health.OpenConnections, 0)
}
