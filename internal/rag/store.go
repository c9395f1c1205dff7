package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ctxai/orchestrator-go/internal/logger"
	"go.uber.org/zap"
)

// Store 文档集合向量仓库
// 每个集合对应根目录下的一个子目录，目录内是向量索引、分块元数据与清单三个文件
// 同一集合的写入串行化，不同集合的操作互不阻塞
type Store struct {
	root     string
	embedder Embedder

	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewStore 创建向量仓库，root不存在时首次写入会自动创建
func NewStore(root string, embedder Embedder) *Store {
	return &Store{
		root:     root,
		embedder: embedder,
		locks:    make(map[string]chan struct{}),
	}
}

// Root 仓库根目录
func (s *Store) Root() string {
	return s.root
}

// CollectionPath 集合在磁盘上的目录路径
func (s *Store) CollectionPath(collectionID string) string {
	return filepath.Join(s.root, SanitizeCollectionID(collectionID))
}

// SanitizeCollectionID 归一化集合ID中对文件系统不安全的字符
func SanitizeCollectionID(collectionID string) string {
	replacer := strings.NewReplacer(" ", "_", ":", "_")
	return replacer.Replace(collectionID)
}

// CreateOrAppend 向集合写入一批分块：向量化、与已有索引合并、原子落盘
// 集合不存在时新建。返回本次插入的记录数（不是合并后的总数）
func (s *Store) CreateOrAppend(ctx context.Context, collectionID string, chunks []Chunk) (int, error) {
	valid := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		valid = append(valid, c)
	}
	if len(valid) == 0 {
		return 0, fmt.Errorf("collection %q: %w", collectionID, ErrEmptyBatch)
	}

	// 向量化在拿锁之前做，嵌入调用是最慢的一步，不该挡住其他集合
	texts := make([]string, len(valid))
	for i, c := range valid {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, &EmbeddingProviderError{Operation: "ingest", CollectionID: collectionID, Cause: err}
	}
	if len(vectors) != len(valid) {
		return 0, &EmbeddingProviderError{
			Operation:    "ingest",
			CollectionID: collectionID,
			Cause:        fmt.Errorf("expected %d vectors, got %d", len(valid), len(vectors)),
		}
	}

	records := make([]VectorRecord, len(valid))
	for i := range valid {
		records[i] = VectorRecord{Vector: vectors[i], Chunk: valid[i]}
	}

	// 同一集合的读取-合并-落盘必须独占，否则并发写会丢更新
	if err := s.acquire(ctx, collectionID); err != nil {
		return 0, err
	}
	defer s.release(collectionID)

	index, err := s.Load(ctx, collectionID)
	if err != nil {
		return 0, err
	}
	if index == nil {
		index = NewIndex()
		logger.Info("creating new collection",
			zap.String("collection", collectionID),
			zap.String("path", s.CollectionPath(collectionID)))
	} else {
		logger.Info("appending to existing collection",
			zap.String("collection", collectionID),
			zap.Int("existing_records", index.Len()))
	}

	if err := index.Append(records); err != nil {
		if mismatch, ok := err.(*DimensionMismatchError); ok {
			mismatch.CollectionID = collectionID
		}
		return 0, err
	}

	if err := s.Persist(ctx, collectionID, index); err != nil {
		return 0, err
	}

	logger.Info("collection persisted",
		zap.String("collection", collectionID),
		zap.Int("inserted", len(records)),
		zap.Int("total_records", index.Len()))
	return len(records), nil
}

// Load 从磁盘加载集合索引
// 集合不存在（目录缺失、产物缺失）返回(nil, nil)，由调用方决定如何处理；
// 产物存在但解析失败返回CorruptStoreError
func (s *Store) Load(ctx context.Context, collectionID string) (*Index, error) {
	dir := s.CollectionPath(collectionID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	manifestPath := filepath.Join(dir, manifestFileName)
	if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
		// 没有清单说明上次写入没有完成，按不存在处理
		logger.Warn("collection directory exists but manifest is missing",
			zap.String("collection", collectionID), zap.String("path", dir))
		return nil, nil
	}
	m, err := readManifestFile(manifestPath)
	if err != nil {
		return nil, &CorruptStoreError{CollectionID: collectionID, Artifact: manifestFileName, Cause: err}
	}

	for _, name := range []string{vectorsFileName, chunksFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
			logger.Warn("collection is missing a required artifact",
				zap.String("collection", collectionID), zap.String("artifact", name))
			return nil, nil
		}
	}

	dim, vectors, err := readVectorsFile(filepath.Join(dir, vectorsFileName))
	if err != nil {
		return nil, &CorruptStoreError{CollectionID: collectionID, Artifact: vectorsFileName, Cause: err}
	}
	chunks, err := readChunksFile(filepath.Join(dir, chunksFileName))
	if err != nil {
		return nil, &CorruptStoreError{CollectionID: collectionID, Artifact: chunksFileName, Cause: err}
	}

	// 结构校验：三个产物必须对得上
	if len(vectors) != len(chunks) {
		return nil, &CorruptStoreError{
			CollectionID: collectionID,
			Artifact:     chunksFileName,
			Cause:        fmt.Errorf("%d vectors but %d chunk records", len(vectors), len(chunks)),
		}
	}
	if m.Count != len(vectors) || (m.Count > 0 && m.Dimensions != dim) {
		return nil, &CorruptStoreError{
			CollectionID: collectionID,
			Artifact:     manifestFileName,
			Cause:        fmt.Errorf("manifest declares %d records of dimension %d, found %d of dimension %d", m.Count, m.Dimensions, len(vectors), dim),
		}
	}

	index := NewIndex()
	records := make([]VectorRecord, len(vectors))
	for i := range vectors {
		records[i] = VectorRecord{Vector: vectors[i], Chunk: chunks[i]}
	}
	if err := index.Append(records); err != nil {
		return nil, &CorruptStoreError{CollectionID: collectionID, Artifact: vectorsFileName, Cause: err}
	}
	return index, nil
}

// Persist 把索引原子写入集合目录
// 先写到暂存目录再整体换名，任何时刻读者看到的都是旧版本或新版本，不会是半成品。
// 可重复调用，后写的完整覆盖先写的
func (s *Store) Persist(ctx context.Context, collectionID string, index *Index) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return &StoreWriteError{CollectionID: collectionID, Cause: err}
	}

	sanitized := SanitizeCollectionID(collectionID)
	staging, err := os.MkdirTemp(s.root, "."+sanitized+".tmp-")
	if err != nil {
		return &StoreWriteError{CollectionID: collectionID, Cause: err}
	}
	defer os.RemoveAll(staging)

	records := index.Records()
	vectors := make([][]float32, len(records))
	chunks := make([]Chunk, len(records))
	for i, rec := range records {
		vectors[i] = rec.Vector
		chunks[i] = rec.Chunk
	}

	vecSize, vecSum, err := writeVectorsFile(filepath.Join(staging, vectorsFileName), index.Dimensions(), vectors)
	if err != nil {
		return &StoreWriteError{CollectionID: collectionID, Cause: err}
	}
	chunkSize, chunkSum, err := writeChunksFile(filepath.Join(staging, chunksFileName), chunks)
	if err != nil {
		return &StoreWriteError{CollectionID: collectionID, Cause: err}
	}
	m := manifest{
		Version:    int(vectorsVersion),
		Dimensions: index.Dimensions(),
		Count:      index.Len(),
		Artifacts: []artifactRecord{
			{Name: vectorsFileName, Size: vecSize, Checksum: vecSum},
			{Name: chunksFileName, Size: chunkSize, Checksum: chunkSum},
		},
	}
	if err := writeManifestFile(filepath.Join(staging, manifestFileName), m); err != nil {
		return &StoreWriteError{CollectionID: collectionID, Cause: err}
	}

	// 换名前最后一次检查取消，之后的操作不再回头
	if err := ctx.Err(); err != nil {
		return &StoreWriteError{CollectionID: collectionID, Cause: err}
	}

	final := s.CollectionPath(collectionID)
	retired := filepath.Join(s.root, "."+sanitized+".old")
	os.RemoveAll(retired)
	if _, err := os.Stat(final); err == nil {
		if err := os.Rename(final, retired); err != nil {
			return &StoreWriteError{CollectionID: collectionID, Cause: err}
		}
	}
	if err := os.Rename(staging, final); err != nil {
		// 尽量恢复旧版本
		if _, statErr := os.Stat(retired); statErr == nil {
			os.Rename(retired, final)
		}
		return &StoreWriteError{CollectionID: collectionID, Cause: err}
	}
	os.RemoveAll(retired)
	return nil
}

// acquire 拿到集合的写锁，等待期间ctx取消则放弃
func (s *Store) acquire(ctx context.Context, collectionID string) error {
	s.mu.Lock()
	key := SanitizeCollectionID(collectionID)
	sem, ok := s.locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		s.locks[key] = sem
	}
	s.mu.Unlock()

	select {
	case sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("collection %q: %w", collectionID, ErrCollectionBusy)
	}
}

func (s *Store) release(collectionID string) {
	s.mu.Lock()
	sem := s.locks[SanitizeCollectionID(collectionID)]
	s.mu.Unlock()
	<-sem
}
