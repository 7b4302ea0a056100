package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Conn is the subset of pgx behavior repositories need. Both *pgxpool.Pool
// and pgx.Tx satisfy it.
type Conn interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type contextKey string

const connKey contextKey = "db_conn"

// WithConn returns a context carrying the given connection. Repositories
// prefer it over their pool, so everything inside a transaction sees the
// same snapshot.
func WithConn(ctx context.Context, c Conn) context.Context {
	return context.WithValue(ctx, connKey, c)
}

// ConnFromContext retrieves the connection stored by WithConn, or nil.
func ConnFromContext(ctx context.Context) Conn {
	c, _ := ctx.Value(connKey).(Conn)
	return c
}

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type poolTxRunner struct{ pool *pgxpool.Pool }

// NewTxRunner returns a TxRunner backed by the given pool.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &poolTxRunner{pool: pool}
}

// InTx begins a transaction, stows it in the context for repositories to
// pick up, and commits if fn returns nil. A context that already carries a
// connection joins the enclosing transaction instead of opening a new one.
func (r *poolTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ConnFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(WithConn(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
