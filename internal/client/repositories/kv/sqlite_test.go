package kv

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/soullink/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE local_storage (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)
	return db
}

func TestSQLiteRepository_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupDB(t), 0)

	got, err := repo.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Set(ctx, "k", []byte("v1")))
	require.NoError(t, repo.Set(ctx, "k", []byte("v2")))

	got, err = repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, repo.Delete(ctx, "k"))
	got, err = repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteRepository_ListAndUsage(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupDB(t), 0)

	require.NoError(t, repo.Set(ctx, "a", []byte("123")))
	require.NoError(t, repo.Set(ctx, "bb", []byte("4")))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("123"), "bb": []byte("4")}, all)

	n, err := repo.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1+3+2+1), n)
}

func TestSQLiteRepository_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupDB(t), 20)

	require.NoError(t, repo.Set(ctx, "uid", []byte("user_1")))

	err := repo.Set(ctx, "data", make([]byte, 16))
	require.ErrorIs(t, err, common.ErrQuotaExceeded)

	got, err := repo.Get(ctx, "data")
	require.NoError(t, err)
	assert.Nil(t, got, "rejected write must not be stored")

	require.NoError(t, repo.Set(ctx, "data", make([]byte, 7)))
}

func TestSQLiteRepository_QuotaIgnoresPreviousValueOfSameKey(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupDB(t), 12)

	require.NoError(t, repo.Set(ctx, "k", make([]byte, 10)))
	require.NoError(t, repo.Set(ctx, "k", make([]byte, 11)))
	require.ErrorIs(t, repo.Set(ctx, "k", make([]byte, 12)), common.ErrQuotaExceeded)
}
