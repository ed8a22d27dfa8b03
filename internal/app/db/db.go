/*
Package db opens the relational store that holds the credential table and keeps
its schema current with embedded goose migrations.

A postgres:// or postgresql:// URL selects PostgreSQL through a pgx pool; any
other value is treated as a local SQLite file path.
*/
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"lobbychat/internal/pkg/logx"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedMigrations embed.FS

// Dialect names the SQL flavour behind a Conn.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// goose keeps its base FS and dialect in package globals.
var migrateMu sync.Mutex

// Conn is an open database handle together with its dialect.
type Conn struct {
	*sql.DB

	Dialect Dialect

	// pool is set for PostgreSQL; closing Conn closes it after the sql.DB wrapper.
	pool *pgxpool.Pool
}

// Close releases the database handle and, for PostgreSQL, the underlying pool.
func (c *Conn) Close() error {
	err := c.DB.Close()
	if c.pool != nil {
		c.pool.Close()
	}
	return err
}

// Open connects to databaseURL and applies all pending migrations.
func Open(ctx context.Context, databaseURL string) (*Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var (
		conn *Conn
		err  error
	)

	if isPostgresURL(databaseURL) {
		conn, err = openPostgres(ctx, databaseURL)
	} else {
		conn, err = openSQLite(ctx, databaseURL)
	}
	if err != nil {
		return nil, err
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

func isPostgresURL(u string) bool {
	return strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://")
}

func openPostgres(ctx context.Context, dsn string) (*Conn, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Conn{
		DB:      stdlib.OpenDBFromPool(pool),
		Dialect: DialectPostgres,
		pool:    pool,
	}, nil
}

func openSQLite(ctx context.Context, path string) (*Conn, error) {
	path = strings.TrimPrefix(path, "sqlite3://")
	path = strings.TrimPrefix(path, "sqlite://")

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_journal_mode=WAL"
	}

	sqlDB, err := sql.Open(string(DialectSQLite), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %q: %w", path, err)
	}

	// One writer at a time; sqlite serialises writes anyway.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping sqlite database %q: %w", path, err)
	}

	return &Conn{DB: sqlDB, Dialect: DialectSQLite}, nil
}

// runMigrations applies all pending migrations for the connection's dialect.
func runMigrations(conn *Conn) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	dir := "migrations/sqlite"
	if conn.Dialect == DialectPostgres {
		dir = "migrations/postgres"
	}

	sub, err := fs.Sub(embedMigrations, dir)
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	goose.SetBaseFS(sub)
	goose.SetLogger(gooseLogger{logx.Component("migrations")})

	if err := goose.SetDialect(string(conn.Dialect)); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(conn.DB, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	logx.Info("Database migrations applied successfully.", "dialect", string(conn.Dialect))
	return nil
}

// gooseLogger routes goose output through zerolog.
type gooseLogger struct {
	logger zerolog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Debug().Msgf(strings.TrimSuffix(format, "\n"), v...)
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Fatal().Msgf(strings.TrimSuffix(format, "\n"), v...)
}
