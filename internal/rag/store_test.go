package rag

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder 确定性的测试替身：同一文本永远得到同一向量
type stubEmbedder struct {
	dims    int
	vectors map[string][]float32
}

func newStubEmbedder(dims int) *stubEmbedder {
	return &stubEmbedder{dims: dims, vectors: map[string][]float32{}}
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.vectors[text]; ok {
		return vec, nil
	}
	vec := make([]float32, e.dims)
	for i, b := range []byte(text) {
		vec[i%e.dims] += float32(b)
	}
	return vec, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *stubEmbedder) Dimensions() int { return e.dims }
func (e *stubEmbedder) Ready() bool     { return true }

func mkChunks(texts ...string) []Chunk {
	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{Index: i, Text: t, SourceLocator: "offset=0", ByteLength: len(t)}
	}
	return chunks
}

func TestStoreCreateAndLoadRoundtrip(t *testing.T) {
	store := NewStore(t.TempDir(), newStubEmbedder(4))
	ctx := context.Background()

	inserted, err := store.CreateOrAppend(ctx, "doc1", mkChunks("alpha", "beta", "gamma"))
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	// 三个产物齐备
	dir := store.CollectionPath("doc1")
	for _, name := range []string{"vectors.bin", "chunks.json", "manifest.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	index, err := store.Load(ctx, "doc1")
	require.NoError(t, err)
	require.NotNil(t, index)
	assert.Equal(t, 3, index.Len())
	assert.Equal(t, 4, index.Dimensions())

	records := index.Records()
	assert.Equal(t, "alpha", records[0].Chunk.Text)
	assert.Equal(t, "gamma", records[2].Chunk.Text)
}

func TestStoreAppendAccumulates(t *testing.T) {
	store := NewStore(t.TempDir(), newStubEmbedder(4))
	ctx := context.Background()

	_, err := store.CreateOrAppend(ctx, "doc1", mkChunks("one", "two"))
	require.NoError(t, err)
	inserted, err := store.CreateOrAppend(ctx, "doc1", mkChunks("three"))
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	index, err := store.Load(ctx, "doc1")
	require.NoError(t, err)
	require.NotNil(t, index)
	assert.Equal(t, 3, index.Len())
	// 追加保序：旧记录在前
	assert.Equal(t, "one", index.Records()[0].Chunk.Text)
	assert.Equal(t, "three", index.Records()[2].Chunk.Text)
}

func TestStoreEmptyBatchRejected(t *testing.T) {
	store := NewStore(t.TempDir(), newStubEmbedder(4))
	ctx := context.Background()

	_, err := store.CreateOrAppend(ctx, "doc1", mkChunks("   ", "\n\t"))
	assert.ErrorIs(t, err, ErrEmptyBatch)

	// 失败的写入不该留下目录
	_, statErr := os.Stat(store.CollectionPath("doc1"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestStoreSanitizesCollectionID(t *testing.T) {
	store := NewStore(t.TempDir(), newStubEmbedder(4))
	ctx := context.Background()

	_, err := store.CreateOrAppend(ctx, "my doc:v1", mkChunks("content"))
	require.NoError(t, err)

	assert.Equal(t, "my_doc_v1", filepath.Base(store.CollectionPath("my doc:v1")))
	_, statErr := os.Stat(store.CollectionPath("my doc:v1"))
	assert.NoError(t, statErr)

	// 原始ID和净化后的ID指向同一个集合
	index, err := store.Load(ctx, "my doc:v1")
	require.NoError(t, err)
	require.NotNil(t, index)
	assert.Equal(t, 1, index.Len())
}

func TestStoreLoadMissingCollection(t *testing.T) {
	store := NewStore(t.TempDir(), newStubEmbedder(4))

	index, err := store.Load(context.Background(), "nonexistent")
	assert.NoError(t, err)
	assert.Nil(t, index)
}

func TestStoreMissingManifestTreatedAsAbsent(t *testing.T) {
	store := NewStore(t.TempDir(), newStubEmbedder(4))
	ctx := context.Background()

	_, err := store.CreateOrAppend(ctx, "doc1", mkChunks("content"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(store.CollectionPath("doc1"), "manifest.json")))

	index, err := store.Load(ctx, "doc1")
	assert.NoError(t, err)
	assert.Nil(t, index)
}

func TestStoreCorruptVectorsDetected(t *testing.T) {
	store := NewStore(t.TempDir(), newStubEmbedder(4))
	ctx := context.Background()

	_, err := store.CreateOrAppend(ctx, "doc1", mkChunks("alpha", "beta"))
	require.NoError(t, err)

	path := filepath.Join(store.CollectionPath("doc1"), "vectors.bin")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-5], 0o644))

	_, err = store.Load(ctx, "doc1")
	var corrupt *CorruptStoreError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, "vectors.bin", corrupt.Artifact)
}

func TestStoreCorruptManifestDetected(t *testing.T) {
	store := NewStore(t.TempDir(), newStubEmbedder(4))
	ctx := context.Background()

	_, err := store.CreateOrAppend(ctx, "doc1", mkChunks("alpha"))
	require.NoError(t, err)

	path := filepath.Join(store.CollectionPath("doc1"), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err = store.Load(ctx, "doc1")
	var corrupt *CorruptStoreError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, "manifest.json", corrupt.Artifact)
}

func TestStoreManifestCountMismatchDetected(t *testing.T) {
	store := NewStore(t.TempDir(), newStubEmbedder(4))
	ctx := context.Background()

	_, err := store.CreateOrAppend(ctx, "doc1", mkChunks("alpha"))
	require.NoError(t, err)

	path := filepath.Join(store.CollectionPath("doc1"), "manifest.json")
	m, err := readManifestFile(path)
	require.NoError(t, err)
	m.Count = 7
	require.NoError(t, writeManifestFile(path, m))

	_, err = store.Load(ctx, "doc1")
	var corrupt *CorruptStoreError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, "manifest.json", corrupt.Artifact)
}

func TestStorePersistOverwrites(t *testing.T) {
	store := NewStore(t.TempDir(), newStubEmbedder(4))
	ctx := context.Background()

	index := NewIndex()
	require.NoError(t, index.Append([]VectorRecord{{Vector: []float32{1, 2, 3, 4}, Chunk: Chunk{Text: "a"}}}))
	require.NoError(t, store.Persist(ctx, "doc1", index))
	require.NoError(t, store.Persist(ctx, "doc1", index))

	loaded, err := store.Load(ctx, "doc1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 1, loaded.Len())
}

// 并发追加同一集合不丢更新
func TestStoreConcurrentAppends(t *testing.T) {
	store := NewStore(t.TempDir(), newStubEmbedder(4))
	ctx := context.Background()

	const writers = 4
	const perWriter = 5

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			texts := make([]string, perWriter)
			for i := range texts {
				texts[i] = string(rune('a'+w)) + "-chunk"
			}
			_, errs[w] = store.CreateOrAppend(ctx, "shared", mkChunks(texts...))
		}(w)
	}
	wg.Wait()

	for w, err := range errs {
		require.NoError(t, err, "writer %d", w)
	}

	index, err := store.Load(ctx, "shared")
	require.NoError(t, err)
	require.NotNil(t, index)
	assert.Equal(t, writers*perWriter, index.Len())
}

// 锁被占用且ctx已取消时快速失败
func TestStoreBusyOnCanceledContext(t *testing.T) {
	store := NewStore(t.TempDir(), newStubEmbedder(4))

	require.NoError(t, store.acquire(context.Background(), "doc1"))
	defer store.release("doc1")

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.CreateOrAppend(canceled, "doc1", mkChunks("content"))
	assert.ErrorIs(t, err, ErrCollectionBusy)
}

// 不同集合的锁互不影响
func TestStoreIndependentCollectionLocks(t *testing.T) {
	store := NewStore(t.TempDir(), newStubEmbedder(4))

	require.NoError(t, store.acquire(context.Background(), "doc1"))
	defer store.release("doc1")

	_, err := store.CreateOrAppend(context.Background(), "doc2", mkChunks("content"))
	assert.NoError(t, err)
}

func TestStoreDimensionMismatchAcrossIngests(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	_, err := NewStore(root, newStubEmbedder(4)).CreateOrAppend(ctx, "doc1", mkChunks("alpha"))
	require.NoError(t, err)

	// 换了嵌入模型后维度对不上，必须拒绝而不是污染集合
	_, err = NewStore(root, newStubEmbedder(8)).CreateOrAppend(ctx, "doc1", mkChunks("beta"))
	var mismatch *DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 4, mismatch.Expected)
	assert.Equal(t, 8, mismatch.Got)
}
