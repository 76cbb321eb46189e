package vectorindex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openIndexes(t *testing.T) map[string]Index {
	t.Helper()
	persistent, err := OpenBadgerIndex("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = persistent.Close() })
	return map[string]Index{
		"memory": NewMemoryIndex(),
		"badger": persistent,
	}
}

func TestSearchOrdersByScore(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	for name, idx := range openIndexes(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, idx.Add(ctx, "exact", []float32{1, 0, 0}, now))
			require.NoError(t, idx.Add(ctx, "close", []float32{1, 0.2, 0}, now))
			require.NoError(t, idx.Add(ctx, "far", []float32{0, 1, 0}, now))

			neighbors, err := idx.Search(ctx, []float32{1, 0, 0}, now.Add(-time.Hour), 3, nil)
			require.NoError(t, err)
			require.Len(t, neighbors, 3)
			assert.Equal(t, "exact", neighbors[0].ID)
			assert.InDelta(t, 1.0, neighbors[0].Score, 1e-9)
			assert.Equal(t, "close", neighbors[1].ID)
			assert.Equal(t, "far", neighbors[2].ID)
		})
	}
}

func TestSearchAppliesWindowAndExclusions(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	for name, idx := range openIndexes(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, idx.Add(ctx, "recent", []float32{1, 0}, now.Add(-time.Hour)))
			require.NoError(t, idx.Add(ctx, "stale", []float32{1, 0}, now.Add(-40*24*time.Hour)))
			require.NoError(t, idx.Add(ctx, "self", []float32{1, 0}, now))

			neighbors, err := idx.Search(ctx, []float32{1, 0}, now.Add(-30*24*time.Hour), 8, []string{"self"})
			require.NoError(t, err)
			require.Len(t, neighbors, 1)
			assert.Equal(t, "recent", neighbors[0].ID)
		})
	}
}

func TestSearchSkipsUndefinedSimilarity(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	for name, idx := range openIndexes(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, idx.Add(ctx, "zero", []float32{0, 0}, now))
			require.NoError(t, idx.Add(ctx, "mismatched", []float32{1, 0, 0}, now))
			require.NoError(t, idx.Add(ctx, "usable", []float32{0.5, 0.5}, now))

			neighbors, err := idx.Search(ctx, []float32{1, 0}, now.Add(-time.Hour), 8, nil)
			require.NoError(t, err)
			require.Len(t, neighbors, 1)
			assert.Equal(t, "usable", neighbors[0].ID)
		})
	}
}

func TestAddReplacesEmbedding(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	for name, idx := range openIndexes(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, idx.Add(ctx, "a-1", []float32{0, 1}, now))
			require.NoError(t, idx.Add(ctx, "a-1", []float32{1, 0}, now))

			neighbors, err := idx.Search(ctx, []float32{1, 0}, now.Add(-time.Hour), 1, nil)
			require.NoError(t, err)
			require.Len(t, neighbors, 1)
			assert.InDelta(t, 1.0, neighbors[0].Score, 1e-9)
		})
	}
}

func TestBadgerEntryRoundTrip(t *testing.T) {
	published := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	embedding := []float32{0.1, -0.5, 3.25}

	decoded, got, err := decodeEntry(encodeEntry(embedding, published))
	require.NoError(t, err)
	assert.Equal(t, embedding, decoded)
	assert.True(t, published.Equal(got))

	_, _, err = decodeEntry([]byte{1, 2, 3})
	assert.Error(t, err)
}
