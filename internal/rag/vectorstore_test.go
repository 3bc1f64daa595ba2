package rag

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEmbedding is a deterministic bag-of-words embedding so the store can be
// exercised without a remote embedding endpoint.
func testEmbedding(_ context.Context, text string) ([]float32, error) {
	vocab := []string{"salmon", "oyster", "steak", "pinot", "albariño", "malbec"}

	vec := make([]float32, len(vocab)+1)
	vec[len(vocab)] = 0.1 // keeps the vector non-zero for unknown text
	lower := strings.ToLower(text)
	for i, word := range vocab {
		vec[i] = float32(strings.Count(lower, word))
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

func TestVectorStoreSearch(t *testing.T) {
	store, err := NewVectorStore(t.TempDir(), testEmbedding)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "doc-1", "Grilled salmon loves pinot noir.", "Pairing Guide"))
	require.NoError(t, store.Upsert(ctx, "doc-2", "Oysters and albariño are a coastal classic.", "Coastal Notes"))
	require.NoError(t, store.Upsert(ctx, "doc-3", "Steak calls for malbec.", "Grill Notes"))

	results, err := store.SearchSimilar(ctx, "what wine for salmon tonight?", 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "doc-1", results[0].ID)
	assert.Equal(t, "Pairing Guide", results[0].Label)
	assert.Equal(t, "Grilled salmon loves pinot noir.", results[0].Content)
}

func TestVectorStoreEmptyReturnsNothing(t *testing.T) {
	store, err := NewVectorStore(t.TempDir(), testEmbedding)
	require.NoError(t, err)

	results, err := store.SearchSimilar(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorStoreClampsKToCount(t *testing.T) {
	store, err := NewVectorStore(t.TempDir(), testEmbedding)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, "doc-1", "Steak calls for malbec.", "Grill Notes"))

	results, err := store.SearchSimilar(ctx, "steak", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestVectorStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewVectorStore(dir, testEmbedding)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, "doc-1", "Oysters and albariño are a coastal classic.", "Coastal Notes"))

	reopened, err := NewVectorStore(dir, testEmbedding)
	require.NoError(t, err)

	results, err := reopened.SearchSimilar(ctx, "albariño with oysters", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-1", results[0].ID)
}
