package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var errOverQuota = errors.New("over quota")

func localStorage(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE local_storage (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)
	return db
}

func stored(t *testing.T, db *sql.DB, key string) (string, bool) {
	t.Helper()
	var v string
	err := db.QueryRow(`SELECT value FROM local_storage WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	require.NoError(t, err)
	return v, true
}

// putWithQuota mirrors the write path of the local record: upsert, then
// reject the transaction when the table grows past limit bytes.
func putWithQuota(ctx context.Context, db Beginner, key, value string, limit int) error {
	return WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO local_storage(key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value); err != nil {
			return err
		}
		var used int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(LENGTH(value)), 0) FROM local_storage`).Scan(&used); err != nil {
			return err
		}
		if used > limit {
			return errOverQuota
		}
		return nil
	})
}

func TestWithTx_CommitsRecordWithinQuota(t *testing.T) {
	db := localStorage(t)

	require.NoError(t, putWithQuota(context.Background(), db, "soullink_uid", "user_1", 64))

	v, ok := stored(t, db, "soullink_uid")
	require.True(t, ok)
	assert.Equal(t, "user_1", v)
}

func TestWithTx_OverQuotaKeepsPreviousRecord(t *testing.T) {
	ctx := context.Background()
	db := localStorage(t)
	require.NoError(t, putWithQuota(ctx, db, "state", "small", 16))

	err := putWithQuota(ctx, db, "state", "a record that no longer fits", 16)
	require.ErrorIs(t, err, errOverQuota)

	v, ok := stored(t, db, "state")
	require.True(t, ok)
	assert.Equal(t, "small", v)
}

func TestWithTx_PanicRollsBackAndPropagates(t *testing.T) {
	db := localStorage(t)

	assert.PanicsWithValue(t, "write aborted", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO local_storage(key, value) VALUES ('state', '{}')`)
			require.NoError(t, err)
			panic("write aborted")
		})
	})

	_, ok := stored(t, db, "state")
	assert.False(t, ok)
}

func TestWithTx_DocumentMergeCommitAndRollback(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO user_documents`).
		WithArgs("user_1", `{"companions":[]}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO user_documents`).
		WithArgs("user_1", `{"moments":[]}`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	merge := func(payload string) error {
		return WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO user_documents(user_id, doc) VALUES ($1, $2)`, "user_1", payload)
			return err
		})
	}

	require.NoError(t, merge(`{"companions":[]}`))
	require.EqualError(t, merge(`{"moments":[]}`), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginError(t *testing.T) {
	db := localStorage(t)
	require.NoError(t, db.Close())

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return nil
	})
	require.Error(t, err)
}
