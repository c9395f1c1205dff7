package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryListMissingRoot(t *testing.T) {
	registry := NewRegistry(filepath.Join(t.TempDir(), "does-not-exist"))

	ids, err := registry.List()
	assert.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRegistryListSortedAndFiltered(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"zeta", "alpha", ".alpha.tmp-123", ".alpha.old"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, dir), 0o755))
	}
	// 根目录下的散文件也不算集合
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644))

	ids, err := NewRegistry(root).List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, ids)
}

func TestRegistryDescribeMissing(t *testing.T) {
	registry := NewRegistry(t.TempDir())

	info, err := registry.Describe("ghost")
	require.NoError(t, err)
	assert.Equal(t, "ghost", info.CollectionID)
	assert.False(t, info.Exists)
	assert.Empty(t, info.Files)
	assert.Zero(t, info.TotalSizeBytes)
}

func TestRegistryDescribePersistedCollection(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root, newStubEmbedder(4))
	_, err := store.CreateOrAppend(context.Background(), "doc1", mkChunks("alpha", "beta"))
	require.NoError(t, err)

	info, err := NewRegistry(root).Describe("doc1")
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, []string{"chunks.json", "manifest.json", "vectors.bin"}, info.Files)
	assert.Greater(t, info.TotalSizeBytes, int64(0))
}

// Describe用与写入相同的ID净化规则
func TestRegistryDescribeSanitizedID(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root, newStubEmbedder(4))
	_, err := store.CreateOrAppend(context.Background(), "my doc:v1", mkChunks("content"))
	require.NoError(t, err)

	info, err := NewRegistry(root).Describe("my doc:v1")
	require.NoError(t, err)
	assert.True(t, info.Exists)
}
