package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

var (
	gooseOnce sync.Once
	gooseErr  error
	// gooseMu serializes goose calls; goose keeps its settings in package state.
	gooseMu sync.Mutex
)

func setupGoose() error {
	gooseOnce.Do(func() {
		goose.SetBaseFS(migrationsFS)
		goose.SetLogger(goose.NopLogger())
		gooseErr = goose.SetDialect("postgres")
	})
	return gooseErr
}

func withGoose(pool *pgxpool.Pool, fn func(*sql.DB) error) error {
	if err := setupGoose(); err != nil {
		return err
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()
	return fn(sqlDB)
}

// embeddedMigrations lists the migration files compiled into the binary.
func embeddedMigrations() (goose.Migrations, error) {
	if err := setupGoose(); err != nil {
		return nil, err
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()
	return goose.CollectMigrations(migrationsDir, 0, goose.MaxVersion)
}

// Migrate applies every pending migration. Safe to call on each start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("running database migrations")
	err := withGoose(pool, func(sqlDB *sql.DB) error {
		return goose.UpContext(ctx, sqlDB, migrationsDir)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	v, _ := Version(ctx, pool)
	slog.Info("database migrations complete", "version", v)
	return nil
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(ctx context.Context, pool *pgxpool.Pool) error {
	err := withGoose(pool, func(sqlDB *sql.DB) error {
		return goose.DownContext(ctx, sqlDB, migrationsDir)
	})
	if err != nil {
		return fmt.Errorf("rolling back migration: %w", err)
	}
	return nil
}

// Version returns the current schema version.
func Version(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	var v int64
	err := withGoose(pool, func(sqlDB *sql.DB) error {
		var err error
		v, err = goose.GetDBVersionContext(ctx, sqlDB)
		return err
	})
	return v, err
}

// MigrationStatus is one migration file and whether it has been applied.
type MigrationStatus struct {
	Version int64  `json:"version"`
	Source  string `json:"source"`
	Applied bool   `json:"applied"`
}

// Status lists the embedded migrations against the current schema version.
func Status(ctx context.Context, pool *pgxpool.Pool) ([]MigrationStatus, error) {
	current, err := Version(ctx, pool)
	if err != nil {
		return nil, err
	}
	migrations, err := embeddedMigrations()
	if err != nil {
		return nil, fmt.Errorf("collecting migrations: %w", err)
	}
	out := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		out = append(out, MigrationStatus{Version: m.Version, Source: m.Source, Applied: m.Version <= current})
	}
	return out, nil
}
