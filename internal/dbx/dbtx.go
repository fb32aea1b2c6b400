// Package dbx holds the database/sql plumbing shared by the local key-value
// repository and the server document repository.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the query surface repositories are written against, so the same
// repository runs on a plain *sql.DB or inside WithTx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Beginner starts transactions. *sql.DB implements it.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// WithTx runs fn in one transaction: committed when fn returns nil, rolled
// back otherwise. A panic in fn rolls back and keeps unwinding.
//
// The local store writes a record and checks the quota in one call, so an
// over-quota write never becomes visible:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    if _, err := tx.ExecContext(ctx, upsertRecord, key, value); err != nil {
//	        return err
//	    }
//	    return checkQuota(ctx, tx)
//	})
func WithTx(ctx context.Context, db Beginner, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
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
