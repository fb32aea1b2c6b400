package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/soullink/internal/common"
	"github.com/dmitrijs2005/soullink/internal/dbx"
)

// DefaultQuota mirrors the per-origin allowance of browser local storage.
const DefaultQuota = 5 << 20

type SQLiteRepository struct {
	db    *sql.DB
	quota int64
}

// NewSQLiteRepository returns a repository over the local_storage table.
// A quota <= 0 disables the limit.
func NewSQLiteRepository(db *sql.DB, quota int64) *SQLiteRepository {
	return &SQLiteRepository{db: db, quota: quota}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get local_storage[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if r.quota > 0 {
			var others int64
			err := tx.QueryRowContext(ctx,
				`SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(value)), 0) FROM local_storage WHERE key <> ?`,
				key).Scan(&others)
			if err != nil {
				return fmt.Errorf("failed to measure local_storage: %w", err)
			}
			if need := others + int64(len(key)) + int64(len(value)); need > r.quota {
				return fmt.Errorf("local_storage[%s] needs %d of %d bytes: %w", key, need, r.quota, common.ErrQuotaExceeded)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO local_storage (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value)
		if err != nil {
			return fmt.Errorf("failed to set local_storage[%s]: %w", key, err)
		}
		return nil
	})
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM local_storage WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete local_storage[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) (map[string][]byte, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM local_storage`)
	if err != nil {
		return nil, fmt.Errorf("failed to list local_storage: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan local_storage row: %w", err)
		}
		result[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate local_storage rows: %w", err)
	}

	return result, nil
}

func (r *SQLiteRepository) Usage(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(value)), 0) FROM local_storage`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to measure local_storage: %w", err)
	}
	return n, nil
}
