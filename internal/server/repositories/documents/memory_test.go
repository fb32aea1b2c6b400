package documents

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/soullink/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_MergeIsTopLevel(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	_, err := r.Get(ctx, "u1")
	require.ErrorIs(t, err, common.ErrNotFound)

	doc, err := r.Merge(ctx, "u1", []byte(`{"companions":[{"id":"c1"}],"userProfile":{"name":"A","age":"20"}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"companions":[{"id":"c1"}],"userProfile":{"name":"A","age":"20"}}`, string(doc))

	doc, err = r.Merge(ctx, "u1", []byte(`{"userProfile":{"name":"B"},"lastUpdated":5}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"companions":[{"id":"c1"}],"userProfile":{"name":"B"},"lastUpdated":5}`, string(doc))

	got, err := r.Get(ctx, "u1")
	require.NoError(t, err)
	assert.JSONEq(t, string(doc), string(got))

	_, err = r.Get(ctx, "u2")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryRepository_RejectsNonObjects(t *testing.T) {
	r := NewMemoryRepository()
	for _, in := range []string{`[1,2]`, `null`, `"x"`, `{`} {
		_, err := r.Merge(context.Background(), "u1", []byte(in))
		assert.ErrorIs(t, err, common.ErrInvalidDocument, in)
	}
}

func TestMemoryRepository_ListUpdatedSince(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := base
	r.now = func() time.Time { tick = tick.Add(time.Minute); return tick }

	_, err := r.Merge(ctx, "a", []byte(`{"x":1}`))
	require.NoError(t, err)
	_, err = r.Merge(ctx, "b", []byte(`{"x":2}`))
	require.NoError(t, err)

	all, err := r.ListUpdatedSince(ctx, base)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].UserID)
	assert.Equal(t, "b", all[1].UserID)

	recent, err := r.ListUpdatedSince(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "b", recent[0].UserID)
	assert.JSONEq(t, `{"x":2}`, string(recent[0].Doc))
}
