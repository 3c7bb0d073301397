// Package database provides database connection management and utilities.
package database

import (
	"context"
	"database/sql"
	"errors"
)

type txKey struct{}

// Querier is satisfied by both *sql.DB and *sql.Tx so repositories run unchanged inside
// or outside a unit of work.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxManager scopes repository calls to a database transaction carried on the context.
type TxManager interface {
	// WithTx commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// WithSnapshot runs fn against one consistent read-only view. Nothing fn does is
	// committed.
	WithSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
}

var snapshotOptions = &sql.TxOptions{
	Isolation: sql.LevelRepeatableRead,
	ReadOnly:  true,
}

type sqlTxManager struct {
	db *sql.DB
}

// NewTxManager returns a TxManager backed by db.
func NewTxManager(db *sql.DB) TxManager {
	return &sqlTxManager{db: db}
}

// WithTx joins the transaction already on ctx when there is one; the outermost caller
// decides commit or rollback. A failed rollback is joined to fn's error so callers still
// classify the original cause.
func (m *sqlTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if HasTx(ctx) {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// WithSnapshot opens a REPEATABLE READ, read-only transaction and always rolls it back.
// Inside an existing transaction fn simply reuses it.
func (m *sqlTxManager) WithSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	if HasTx(ctx) {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, snapshotOptions)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	return fn(context.WithValue(ctx, txKey{}, tx))
}

// HasTx reports whether ctx carries a transaction.
func HasTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok
}

// GetTx returns the transaction on ctx, or db when there is none.
func GetTx(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}
