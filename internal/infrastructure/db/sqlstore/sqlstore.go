// Package sqlstore implements the credential and audit stores on SQL
// databases through sqlx. PostgreSQL (pgx) and SQLite are supported; the
// schema is managed by embedded goose migrations.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/99minutos/credential-service/internal/infrastructure/db/sqlstore/migrations"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultTimeout = 10 * time.Second
)

// Config selects the backend and its data source.
type Config struct {
	Driver  string
	DSN     string
	Timeout time.Duration
}

type dialect struct {
	driverName   string
	gooseDialect string
}

var dialects = map[string]dialect{
	DriverPostgres: {driverName: "pgx", gooseDialect: "postgres"},
	DriverSQLite:   {driverName: "sqlite3", gooseDialect: "sqlite3"},
}

// Open connects, verifies connectivity and applies pending migrations.
func Open(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := sqlx.ConnectContext(connectCtx, d.driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore connect: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// a single writer avoids SQLITE_BUSY under concurrent registrations
		db.SetMaxOpenConns(1)
	}

	if err := Migrate(connectCtx, db, d.gooseDialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the embedded migrations.
func Migrate(ctx context.Context, db *sqlx.DB, gooseDialect string) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("sqlstore: goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, "."); err != nil {
		return fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return nil
}

// Pinger adapts a database handle to the readiness check.
type Pinger struct {
	db *sqlx.DB
}

func NewPinger(db *sqlx.DB) *Pinger { return &Pinger{db: db} }

func (p *Pinger) Name() string { return p.db.DriverName() }

func (p *Pinger) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }
