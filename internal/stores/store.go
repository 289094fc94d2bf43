package stores

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Dialect selects the SQL flavor for placeholder binding and row locking.
type Dialect uint8

const (
	// DialectSQLite targets SQLite-compatible stores. SQLite serializes
	// writers per transaction, so no explicit row lock clause is emitted.
	DialectSQLite Dialect = iota
	// DialectPostgres targets PostgreSQL-compatible stores and emits
	// SELECT ... FOR UPDATE row locks inside transactions.
	DialectPostgres
)

// lockSuffix returns the row-lock clause appended to SELECTs that must
// serialize concurrent writers on the same session/challenge.
func (d Dialect) lockSuffix() string {
	if d == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// lockSuffixOf returns the row-lock clause scoped to the named table alias.
// Joined SELECTs use this so the lock stays on the mutable row and never
// extends to immutable rows shared across sessions.
func (d Dialect) lockSuffixOf(alias string) string {
	if d == DialectPostgres {
		return " FOR UPDATE OF " + alias
	}
	return ""
}

// rebind rewrites ? placeholders into the dialect's positional form.
// Queries in this package are written with ? throughout.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// querier is satisfied by both *sql.DB and *sql.Tx so that store methods can
// run standalone or composed inside a caller transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps the shared database handle with its dialect. All stores share one
// DB; none of them cache entity state across calls.
type DB struct {
	sql     *sql.DB
	dialect Dialect
}

// New wraps db for the given dialect.
func New(db *sql.DB, dialect Dialect) *DB {
	return &DB{sql: db, dialect: dialect}
}

// Handle exposes the underlying *sql.DB for callers composing their own
// transactions.
func (d *DB) Handle() *sql.DB {
	return d.sql
}

// withTx runs fn inside a transaction, committing on nil and rolling back
// wholesale on any error. State-transition failures inside fn therefore leave
// all prior state unchanged.
func (d *DB) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (d *DB) exec(ctx context.Context, q querier, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, d.dialect.rebind(query), args...)
}

func (d *DB) queryRow(ctx context.Context, q querier, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, d.dialect.rebind(query), args...)
}

func (d *DB) query(ctx context.Context, q querier, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, d.dialect.rebind(query), args...)
}
