// Package database opens the configured storage backend and applies the
// embedded goose migrations to it.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"readtrac/db"
	"readtrac/internal/logging"
)

type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Config selects and parameterizes the backend.
type Config struct {
	Driver       string        `koanf:"driver"`
	Path         string        `koanf:"path"`
	DSN          string        `koanf:"dsn"`
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// DB is an open storage backend. SQL is always set; Pool only for PostgreSQL.
type DB struct {
	Backend Backend
	SQL     *sql.DB
	Pool    *pgxpool.Pool
}

// Open connects to the backend named by cfg.Driver and verifies the connection.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	switch Backend(strings.ToLower(cfg.Driver)) {
	case BackendSQLite, "":
		return openSQLite(ctx, cfg.Path)
	case BackendPostgres:
		return openPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func openSQLite(ctx context.Context, path string) (*DB, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_journal_mode=WAL", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	logging.Info().Str("path", path).Msg("sqlite database opened")
	return &DB{Backend: BackendSQLite, SQL: conn}, nil
}

func openPostgres(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping database (%s): %w", RedactDSN(dsn), err)
	}
	logging.Info().Str("dsn", RedactDSN(dsn)).Msg("database connection OK")
	return &DB{Backend: BackendPostgres, SQL: stdlib.OpenDBFromPool(pool), Pool: pool}, nil
}

// Ping checks that the backend is reachable.
func (d *DB) Ping(ctx context.Context) error {
	if d.Pool != nil {
		return d.Pool.Ping(ctx)
	}
	return d.SQL.PingContext(ctx)
}

func (d *DB) Close() error {
	err := d.SQL.Close()
	if d.Pool != nil {
		d.Pool.Close()
	}
	return err
}

func (d *DB) dialect() string {
	if d.Backend == BackendPostgres {
		return "postgres"
	}
	return "sqlite3"
}

// MigrationsDir is the directory inside db.Migrations for the backend.
func (d *DB) MigrationsDir() string {
	return "migrations/" + string(d.Backend)
}

// Migrate runs a goose command (up, down, status, version) against the
// embedded migrations.
func (d *DB) Migrate(ctx context.Context, command string) error {
	goose.SetBaseFS(db.Migrations)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect(d.dialect()); err != nil {
		return err
	}
	dir := d.MigrationsDir()

	switch command {
	case "up":
		return goose.UpContext(ctx, d.SQL, dir)
	case "down":
		return goose.DownContext(ctx, d.SQL, dir)
	case "status":
		return goose.StatusContext(ctx, d.SQL, dir)
	case "version":
		return goose.VersionContext(ctx, d.SQL, dir)
	default:
		return fmt.Errorf("unknown migrate command %q: use up, down, status, version", command)
	}
}

// RedactDSN hides the credentials part of a connection string.
func RedactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}

// gooseLogger sends goose output through zerolog.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	logging.Info().Str("component", "migrate").Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (gooseLogger) Fatalf(format string, v ...any) {
	logging.Error().Str("component", "migrate").Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
	os.Exit(1)
}
