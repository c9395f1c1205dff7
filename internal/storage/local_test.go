package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreSaveOpenExists(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "notes.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "notes.txt", strings.NewReader("hello")))

	ok, err = store.Exists(ctx, "notes.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	r, err := store.Open(ctx, "notes.txt")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestLocalStoreOverwrite(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "notes.txt", strings.NewReader("old")))
	require.NoError(t, store.Save(ctx, "notes.txt", strings.NewReader("new")))

	r, err := store.Open(ctx, "notes.txt")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

// 路径穿越的文件名被拦截或钉死在目录内
func TestLocalStorePathTraversal(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStore(base)
	require.NoError(t, err)
	ctx := context.Background()

	err = store.Save(ctx, "../escape.txt", strings.NewReader("x"))
	if err == nil {
		// 被归一化到目录内也算拦住了
		ok, existsErr := store.Exists(ctx, "escape.txt")
		require.NoError(t, existsErr)
		assert.True(t, ok)
	}

	_, err = store.Open(ctx, "..")
	assert.Error(t, err)
}
