package utils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresDriver is the database/sql driver name registered by pgx stdlib.
const PostgresDriver = "pgx"

// ErrStoreUnavailable wraps every connectivity failure of the record store.
var ErrStoreUnavailable = errors.New("record store unavailable")

// PoolConfig sizes the pool shared by the record store and the audit log.
// Zero fields take the defaults of defaultPool.
type PoolConfig struct {
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var defaultPool = PoolConfig{
	MaxConns:        25,
	ConnMaxLifetime: 30 * time.Minute,
	ConnMaxIdleTime: 5 * time.Minute,
	PingTimeout:     5 * time.Second,
}

func (c PoolConfig) resolved() PoolConfig {
	if c.MaxConns <= 0 {
		c.MaxConns = defaultPool.MaxConns
	}
	// Idle connections never outnumber open ones.
	if c.MaxIdleConns <= 0 || c.MaxIdleConns > c.MaxConns {
		c.MaxIdleConns = c.MaxConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = defaultPool.ConnMaxLifetime
	}
	if c.ConnMaxIdleTime <= 0 {
		c.ConnMaxIdleTime = defaultPool.ConnMaxIdleTime
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = defaultPool.PingTimeout
	}
	return c
}

// OpenPostgres opens the record store pool and pings it. The DSN carries
// credentials, so it never appears in returned errors.
func OpenPostgres(ctx context.Context, dsn string, pool PoolConfig) (*sql.DB, error) {
	p := pool.resolved()
	db, err := sql.Open(PostgresDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid connection settings", ErrStoreUnavailable)
	}
	db.SetMaxOpenConns(p.MaxConns)
	db.SetMaxIdleConns(p.MaxIdleConns)
	db.SetConnMaxLifetime(p.ConnMaxLifetime)
	db.SetConnMaxIdleTime(p.ConnMaxIdleTime)

	if err := HealthCheck(ctx, db, p.PingTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// HealthCheck pings the record store within timeout.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// TxFunc is the unit of work executed inside a transaction.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// WithTx runs fn inside a transaction. The transaction is rolled back when fn
// returns an error or panics, and committed otherwise.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(ctx, tx)
}

// WithSchemaLock runs fn in a transaction holding the advisory lock named
// name. Replicas starting together apply DDL one at a time; the lock is
// released when the transaction ends.
func WithSchemaLock(ctx context.Context, db *sql.DB, name string, fn TxFunc) error {
	return WithTx(ctx, db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, SchemaLockKey(name)); err != nil {
			return fmt.Errorf("schema lock %s: %w", name, err)
		}
		return fn(ctx, tx)
	})
}

// SchemaLockKey maps a lock name onto the bigint key space of
// pg_advisory_xact_lock.
func SchemaLockKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("schema:" + name))
	return int64(h.Sum64())
}
