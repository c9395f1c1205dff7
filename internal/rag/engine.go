package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/ctxai/orchestrator-go/internal/logger"
	"go.uber.org/zap"
)

// DefaultTopK 检索默认返回的结果数
const DefaultTopK = 4

// Engine 检索引擎：把问题向量化后在指定集合上做top-k相似度检索
type Engine struct {
	store    *Store
	registry *Registry
	embedder Embedder
}

// NewEngine 创建检索引擎
// embedder必须与入库时使用的相同，否则向量空间对不上
func NewEngine(store *Store, registry *Registry, embedder Embedder) *Engine {
	return &Engine{
		store:    store,
		registry: registry,
		embedder: embedder,
	}
}

// Search 返回与问题最相关的k个分块，按相似度降序
// 集合记录数不足k时返回全部；集合为空返回空序列，不算错误
func (e *Engine) Search(ctx context.Context, query, collectionID string, k int) ([]ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = DefaultTopK
	}

	index, err := e.store.Load(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if index == nil {
		known, listErr := e.registry.List()
		if listErr != nil {
			logger.Warn("failed to enumerate collections for diagnostics", zap.Error(listErr))
		}
		return nil, &CollectionNotFoundError{
			CollectionID: collectionID,
			Path:         e.store.CollectionPath(collectionID),
			Known:        known,
		}
	}

	if index.Len() == 0 {
		return []ScoredChunk{}, nil
	}

	queryVector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &EmbeddingProviderError{Operation: "search", CollectionID: collectionID, Cause: err}
	}
	if dim := index.Dimensions(); dim != 0 && len(queryVector) != dim {
		return nil, &EmbeddingProviderError{
			Operation:    "search",
			CollectionID: collectionID,
			Cause:        fmt.Errorf("query embedded to %d dimensions, collection has %d", len(queryVector), dim),
		}
	}

	results := index.Search(queryVector, k)
	logger.Debug("similarity search completed",
		zap.String("collection", collectionID),
		zap.Int("k", k),
		zap.Int("results", len(results)))
	return results, nil
}
