package document

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/consult/backend/internal/model/content"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "data", "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUpsertGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	rec := content.Record{
		ID:        "doc-1",
		Type:      "case-study",
		Source:    "site",
		Title:     "Cloud migration for a retailer",
		Category:  "cloud",
		Vector:    []float32{0.25, -0.5, 1},
		Content:   "We moved 40 services to AWS.",
		Metadata:  map[string]any{"author": "team"},
		CreatedAt: time.Unix(1700000000, 0),
	}
	require.NoError(t, store.Upsert(ctx, rec))

	got, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Title, got.Title)
	assert.Equal(t, rec.Vector, got.Vector)
	assert.Equal(t, "team", got.Metadata["author"])
	assert.Equal(t, rec.CreatedAt.Unix(), got.CreatedAt.Unix())

	rec.Title = "Updated"
	require.NoError(t, store.Upsert(ctx, rec))
	got, err = store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Updated", got.Title)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGetMissingReturnsNil(t *testing.T) {
	got, err := newTestStore(t).Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Upsert(ctx, content.Record{ID: "a", Vector: []float32{1}}))

	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Delete(ctx, "a"))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListReturnsRecordsOldestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	empty, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Upsert(ctx, content.Record{ID: "new", Vector: []float32{1, 0}, CreatedAt: time.Unix(1700000100, 0)}))
	require.NoError(t, store.Upsert(ctx, content.Record{
		ID:        "old",
		Vector:    []float32{0, 1},
		Metadata:  map[string]any{"lang": "en"},
		CreatedAt: time.Unix(1700000000, 0),
	}))

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "old", records[0].ID)
	assert.Equal(t, []float32{0, 1}, records[0].Vector)
	assert.Equal(t, "en", records[0].Metadata["lang"])
	assert.Equal(t, "new", records[1].ID)
}
