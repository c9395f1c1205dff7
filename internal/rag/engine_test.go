package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, embedder Embedder) (*Engine, *Store) {
	t.Helper()
	root := t.TempDir()
	store := NewStore(root, embedder)
	return NewEngine(store, NewRegistry(root), embedder), store
}

func TestEngineSearchRelevanceOrder(t *testing.T) {
	embedder := newStubEmbedder(2)
	embedder.vectors["cats"] = []float32{1, 0}
	embedder.vectors["dogs"] = []float32{0, 1}
	embedder.vectors["kittens"] = []float32{0.9, 0.1}
	embedder.vectors["about cats"] = []float32{1, 0}

	engine, store := newTestEngine(t, embedder)
	ctx := context.Background()

	_, err := store.CreateOrAppend(ctx, "pets", mkChunks("cats", "dogs", "kittens"))
	require.NoError(t, err)

	results, err := engine.Search(ctx, "about cats", "pets", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "cats", results[0].Chunk.Text)
	assert.Equal(t, "kittens", results[1].Chunk.Text)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestEngineSearchDefaultTopK(t *testing.T) {
	embedder := newStubEmbedder(2)
	engine, store := newTestEngine(t, embedder)
	ctx := context.Background()

	texts := []string{"a", "b", "c", "d", "e", "f"}
	_, err := store.CreateOrAppend(ctx, "doc", mkChunks(texts...))
	require.NoError(t, err)

	// k<=0回落到默认值4
	results, err := engine.Search(ctx, "a", "doc", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)

	results, err = engine.Search(ctx, "a", "doc", -3)
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)
}

func TestEngineSearchEmptyQuery(t *testing.T) {
	engine, _ := newTestEngine(t, newStubEmbedder(2))

	_, err := engine.Search(context.Background(), "   ", "doc", 4)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestEngineSearchCollectionNotFound(t *testing.T) {
	embedder := newStubEmbedder(2)
	engine, store := newTestEngine(t, embedder)
	ctx := context.Background()

	_, err := store.CreateOrAppend(ctx, "existing", mkChunks("content"))
	require.NoError(t, err)

	_, err = engine.Search(ctx, "query", "nonexistent", 4)
	var notFound *CollectionNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nonexistent", notFound.CollectionID)
	assert.Equal(t, store.CollectionPath("nonexistent"), notFound.Path)
	// 诊断信息里带已知集合列表
	assert.Equal(t, []string{"existing"}, notFound.Known)
	assert.True(t, IsNotFound(err))
}

// 空集合返回空结果，不是错误
func TestEngineSearchEmptyCollection(t *testing.T) {
	embedder := newStubEmbedder(2)
	engine, store := newTestEngine(t, embedder)
	ctx := context.Background()

	require.NoError(t, store.Persist(ctx, "empty", NewIndex()))

	results, err := engine.Search(ctx, "query", "empty", 4)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestEngineSearchFewerRecordsThanK(t *testing.T) {
	embedder := newStubEmbedder(2)
	engine, store := newTestEngine(t, embedder)
	ctx := context.Background()

	_, err := store.CreateOrAppend(ctx, "small", mkChunks("only", "two"))
	require.NoError(t, err)

	results, err := engine.Search(ctx, "only", "small", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
