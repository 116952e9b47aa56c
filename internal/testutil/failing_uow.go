package testutil

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/alexanderramin/workledger/internal/db"
)

// FailingUoW wraps a real unit of work and makes the Nth write inside each
// transaction fail with Err, counting from 1. Reads pass through.
type FailingUoW struct {
	inner  db.UnitOfWork
	failOn int32
	err    error
}

func NewFailingUoW(database *sql.DB, failOn int, err error) *FailingUoW {
	return &FailingUoW{inner: db.NewSQLiteUnitOfWork(database), failOn: int32(failOn), err: err}
}

func (u *FailingUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	return u.inner.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return fn(ctx, &failingExec{DBTX: tx, failOn: u.failOn, err: u.err})
	})
}

type failingExec struct {
	db.DBTX
	writes atomic.Int32
	failOn int32
	err    error
}

func (f *failingExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if f.writes.Add(1) == f.failOn {
		return nil, f.err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
