package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	embedder := NewHashEmbedder(DefaultDimensions)

	first, err := embedder.EmbedBatch(context.Background(), []string{"人工智能", "hello world"})
	require.NoError(t, err)
	second, err := embedder.EmbedBatch(context.Background(), []string{"人工智能", "hello world"})
	require.NoError(t, err)

	assert.Equal(t, first, second, "same text must always map to the same vector")
}

func TestHashEmbedderUnitNorm(t *testing.T) {
	embedder := NewHashEmbedder(DefaultDimensions)

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"some document chunk"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	require.Len(t, vectors[0], DefaultDimensions)

	var norm float64
	for _, v := range vectors[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-3)
}

func TestHashEmbedderDistinctTexts(t *testing.T) {
	embedder := NewHashEmbedder(DefaultDimensions)

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.NotEqual(t, vectors[0], vectors[1])
}

func TestHashEmbedderPreservesOrder(t *testing.T) {
	embedder := NewHashEmbedder(DefaultDimensions)

	batch, err := embedder.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	require.NoError(t, err)

	for i, text := range []string{"one", "two", "three"} {
		single, err := embedder.EmbedBatch(context.Background(), []string{text})
		require.NoError(t, err)
		assert.Equal(t, single[0], batch[i])
	}
}

func TestHashEmbedderEmptyBatch(t *testing.T) {
	embedder := NewHashEmbedder(DefaultDimensions)

	vectors, err := embedder.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestNewHashEmbedderDefaults(t *testing.T) {
	embedder := NewHashEmbedder(0)

	vectors, err := embedder.EmbedBatch(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Len(t, vectors[0], DefaultDimensions)
}
