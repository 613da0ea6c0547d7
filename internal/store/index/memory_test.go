package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/consult/backend/internal/model/content"
)

func TestQueryRanksByCosine(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Upsert(ctx, "x", []float32{1, 0, 0}, map[string]any{"category": "cloud", "type": "blog"}))
	require.NoError(t, idx.Upsert(ctx, "y", []float32{0, 1, 0}, map[string]any{"category": "ai", "type": "blog"}))
	require.NoError(t, idx.Upsert(ctx, "xy", []float32{1, 1, 0}, map[string]any{"category": "cloud", "type": "case-study"}))

	matches, err := idx.Query(ctx, []float32{1, 0, 0}, 2, content.Filter{})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "x", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Equal(t, "xy", matches[1].ID)

	matches, err = idx.Query(ctx, []float32{1, 0, 0}, 10, content.Filter{Type: "case-study"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "xy", matches[0].ID)
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 2}, nil))
	assert.Error(t, idx.Upsert(ctx, "b", []float32{1, 2, 3}, nil))
	assert.Error(t, idx.Upsert(ctx, "", []float32{1, 2}, nil))

	_, err := idx.Query(ctx, []float32{1}, 1, content.Filter{})
	assert.Error(t, err)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()
	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 2}, nil))
	require.NoError(t, idx.Delete(ctx, "a"))
	require.NoError(t, idx.Delete(ctx, "a"))
	assert.Equal(t, 0, idx.Len())

	// an empty index accepts a new dimensionality
	assert.NoError(t, idx.Upsert(ctx, "b", []float32{1, 2, 3}, nil))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 0}))
}
