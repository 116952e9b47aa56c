package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNestedTx is returned by WithinTx when ctx already belongs to a
// transaction. A single-connection store would otherwise block forever.
var ErrNestedTx = errors.New("transaction already in progress")

// UnitOfWork runs a group of repository writes atomically. Callers build
// tx-scoped repositories from the DBTX passed to fn.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

type txKey struct{}

// InTx reports whether ctx was handed out by WithinTx.
func InTx(ctx context.Context) bool {
	return ctx.Value(txKey{}) != nil
}

type SQLiteUnitOfWork struct {
	db *sql.DB
}

func NewSQLiteUnitOfWork(db *sql.DB) *SQLiteUnitOfWork {
	return &SQLiteUnitOfWork{db: db}
}

// WithinTx commits when fn returns nil and rolls back on error or panic.
func (u *SQLiteUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	if InTx(ctx) {
		return ErrNestedTx
	}
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	done := false
	defer func() {
		if done {
			return
		}
		_ = tx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	if fnErr := fn(context.WithValue(ctx, txKey{}, tx), tx); fnErr != nil {
		done = true
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(fnErr, fmt.Errorf("rolling back: %w", rbErr))
		}
		return fnErr
	}

	done = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
