package datastore

import (
	"context"
	stdsql "database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql
)

//go:embed migrations
var migrationsFS embed.FS

// PostgresStore implements Store on a single PostgreSQL table holding every
// logical key/value table, with secondary-index values in a JSONB column
// queried through a GIN index.
type PostgresStore struct {
	db *stdsql.DB
}

// DB returns the underlying database connection for health checks and
// direct queries.
func (s *PostgresStore) DB() *stdsql.DB {
	return s.db
}

// NewPostgresStore opens a pooled connection, pings it, and applies any
// pending migrations before returning.
func NewPostgresStore(ctx context.Context, cfg Config) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db, cfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing connection and applies pending
// migrations (useful for tests that manage their own container/pool).
func NewPostgresStoreFromDB(db *stdsql.DB, database string) (*PostgresStore, error) {
	if err := runMigrations(db, Config{Database: database}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// runMigrations applies pending schema migrations using golang-migrate with
// the migration files embedded into the binary, so production deployments
// need no external files.
func runMigrations(db *stdsql.DB, cfg Config) error {
	hasMigrations, err := hasEmbeddedMigrations()
	if err != nil {
		return fmt.Errorf("failed to check embedded migrations: %w", err)
	}
	if !hasMigrations {
		return fmt.Errorf("no embedded migration files found — binary may be built incorrectly")
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, cfg.Database, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Close only the migration source driver. We must NOT call m.Close()
	// because that also closes the database driver, which calls db.Close()
	// on the shared *sql.DB passed via postgres.WithInstance().
	if err := sourceDriver.Close(); err != nil {
		return fmt.Errorf("failed to close migration source: %w", err)
	}

	return nil
}

// hasEmbeddedMigrations checks if the embedded FS contains any .sql migration files
func hasEmbeddedMigrations() (bool, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			return true, nil
		}
	}
	return false, nil
}

// Put implements Store.
func (s *PostgresStore) Put(ctx context.Context, table, key string, value []byte, indexes map[string]string) error {
	idx, err := json.Marshal(indexes)
	if err != nil {
		return fmt.Errorf("datastore: marshal indexes: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (table_name, key, value, indexes, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (table_name, key)
		DO UPDATE SET value = EXCLUDED.value, indexes = EXCLUDED.indexes, updated_at = now()`,
		table, key, value, idx)
	if err != nil {
		return fmt.Errorf("datastore: put %s/%s: %w", table, key, err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, table, key string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT value, indexes, updated_at FROM records
		WHERE table_name = $1 AND key = $2`,
		table, key)

	rec := &Record{Table: table, Key: key}
	var idx []byte
	if err := row.Scan(&rec.Value, &idx, &rec.UpdatedAt); err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("datastore: get %s/%s: %w", table, key, err)
	}
	if err := unmarshalIndexes(idx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Query implements Store: a secondary-index lookup via the JSONB indexes
// column, served by the GIN index created in the initial migration.
func (s *PostgresStore) Query(ctx context.Context, table, index, value string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value, indexes, updated_at FROM records
		WHERE table_name = $1 AND indexes @> jsonb_build_object($2::text, $3::text)
		ORDER BY key`,
		table, index, value)
	if err != nil {
		return nil, fmt.Errorf("datastore: query %s by %s: %w", table, index, err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec := &Record{Table: table}
		var idx []byte
		if err := rows.Scan(&rec.Key, &rec.Value, &idx, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("datastore: scan %s row: %w", table, err)
		}
		if err := unmarshalIndexes(idx, rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("datastore: query %s by %s: %w", table, index, err)
	}
	return out, nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, table, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE table_name = $1 AND key = $2`, table, key)
	if err != nil {
		return fmt.Errorf("datastore: delete %s/%s: %w", table, key, err)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ Store = (*PostgresStore)(nil)

// HealthStatus represents datastore health and connection pool statistics.
type HealthStatus struct {
	Status          string        `json:"status"`
	ResponseTime    int64         `json:"response_time_ms"`
	OpenConnections int           `json:"open_connections"`
	InUse           int           `json:"in_use"`
	Idle            int           `json:"idle"`
	WaitCount       int64         `json:"wait_count"`
	MaxOpenConns    int           `json:"max_open_conns"`
}

// Health checks database connectivity and returns connection pool statistics.
func Health(ctx context.Context, db *stdsql.DB) (*HealthStatus, error) {
	start := time.Now()

	if err := db.PingContext(ctx); err != nil {
		return &HealthStatus{
			Status:       "unhealthy",
			ResponseTime: time.Since(start).Milliseconds(),
		}, err
	}

	stats := db.Stats()
	return &HealthStatus{
		Status:          "healthy",
		ResponseTime:    time.Since(start).Milliseconds(),
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
		MaxOpenConns:    stats.MaxOpenConnections,
	}, nil
}

func unmarshalIndexes(idx []byte, rec *Record) error {
	if len(idx) == 0 {
		return nil
	}
	if err := json.Unmarshal(idx, &rec.Indexes); err != nil {
		return fmt.Errorf("datastore: unmarshal indexes for %s/%s: %w", rec.Table, rec.Key, err)
	}
	return nil
}
