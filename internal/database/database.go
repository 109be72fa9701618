// Package database centralises sqlx connection helpers.  The driver is
// go-sql-driver/mysql, which also works with MariaDB.
//
// Public entry points:
//
//	Open(ctx, dsn)                     – conservative pool sizes.
//	OpenWithOptions(ctx, dsn, opts)    – fine-grained control.
//
// Both helpers Ping the database before returning so cmd/web can fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB when no
// longer needed.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Options tunes the pool and the boot-time ping retry.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         int           // extra ping attempts after the first
	RetryBackoff    time.Duration // sleep between attempts
}

// Defaults: 15 max open, 5 idle, 30-minute lifetime, two retries.
var Defaults = Options{
	MaxOpenConns:    15,
	MaxIdleConns:    5,
	ConnMaxLifetime: 30 * time.Minute,
	Retries:         2,
	RetryBackoff:    500 * time.Millisecond,
}

// Open returns a *sqlx.DB using Defaults.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, dsn, Defaults)
}

// OpenWithOptions opens a pool and pings it, retrying per opts.
func OpenWithOptions(ctx context.Context, dsn string, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	for attempt := 0; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if attempt >= opts.Retries {
			break
		}
		zap.S().Warnw("database ping failed, retrying",
			"attempt", attempt+1, "err", err)
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(opts.RetryBackoff):
		}
	}
	_ = db.Close()
	return nil, fmt.Errorf("database: ping: %w", err)
}

// WithPassword fills the single %s verb in a DSN template with password.
// A template without a verb is returned unchanged.
func WithPassword(template, password string) string {
	if !strings.Contains(template, "%s") {
		return template
	}
	return fmt.Sprintf(template, password)
}
