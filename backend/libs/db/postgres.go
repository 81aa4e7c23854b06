package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Options configures the Postgres pool. Zero values fall back to defaults.
type Options struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// PingTimeout bounds each connectivity check.
	PingTimeout time.Duration
	// PingAttempts is how many times the pool is pinged before giving up,
	// so the service can start while Postgres is still booting.
	PingAttempts int
	RetryDelay   time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 25
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = 5
	}
	if o.MaxIdleConns > o.MaxOpenConns {
		o.MaxIdleConns = o.MaxOpenConns
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = time.Hour
	}
	if o.ConnMaxIdleTime <= 0 {
		o.ConnMaxIdleTime = 30 * time.Minute
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 5 * time.Second
	}
	if o.PingAttempts <= 0 {
		o.PingAttempts = 1
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	return o
}

// NewPostgresDB opens a pgx/stdlib backed *sql.DB pool and waits until it answers a ping.
func NewPostgresDB(ctx context.Context, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, errors.New("db: empty DSN")
	}
	opts = opts.withDefaults()

	db, err := sql.Open("pgx", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	if err := waitForPing(ctx, db, opts); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func waitForPing(ctx context.Context, db *sql.DB, opts Options) error {
	var err error
	for attempt := 1; attempt <= opts.PingAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == opts.PingAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("db: ping: %w", ctx.Err())
		case <-time.After(opts.RetryDelay):
		}
	}
	return fmt.Errorf("db: ping after %d attempt(s): %w", opts.PingAttempts, err)
}
