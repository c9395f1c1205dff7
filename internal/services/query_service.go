package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ctxai/orchestrator-go/internal/errors"
	"github.com/ctxai/orchestrator-go/internal/logger"
	"github.com/ctxai/orchestrator-go/internal/rag"
)

// QueryService 问答服务：检索、生成、嵌入
type QueryService struct {
	engine    *rag.Engine
	embedder  rag.Embedder
	generator rag.Generator
	cache     *ResultCache
	metrics   *MetricsService
	topK      int
}

// AskResult 问答结果，带引用的上下文分块
type AskResult struct {
	Answer  string            `json:"answer"`
	Sources []rag.ScoredChunk `json:"sources"`
}

// NewQueryService 创建问答服务
func NewQueryService(engine *rag.Engine, embedder rag.Embedder, generator rag.Generator,
	cache *ResultCache, metrics *MetricsService, topK int) *QueryService {
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	return &QueryService{
		engine:    engine,
		embedder:  embedder,
		generator: generator,
		cache:     cache,
		metrics:   metrics,
		topK:      topK,
	}
}

// Search 在指定集合上做相似度检索，k不合法时用配置的默认值
func (s *QueryService) Search(ctx context.Context, collectionID, query string, k int) ([]rag.ScoredChunk, error) {
	if k <= 0 {
		k = s.topK
	}

	if cached, ok := s.cache.Get(ctx, collectionID, query, k); ok {
		s.metrics.ObserveSearch("cache_hit", 0)
		return cached, nil
	}

	started := time.Now()
	results, err := s.engine.Search(ctx, query, collectionID, k)
	if err != nil {
		s.metrics.ObserveSearch("error", time.Since(started).Seconds())
		return nil, errors.Translate(err)
	}
	s.metrics.ObserveSearch("ok", time.Since(started).Seconds())

	s.cache.Put(ctx, collectionID, query, k, results)
	return results, nil
}

// Ask 检索集合内最相关的分块并生成回答
// 集合内没有相关内容时直接说明，不调用生成模型
func (s *QueryService) Ask(ctx context.Context, collectionID, question string) (*AskResult, error) {
	results, err := s.Search(ctx, collectionID, question, s.topK)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &AskResult{
			Answer:  "No relevant content found in this collection.",
			Sources: []rag.ScoredChunk{},
		}, nil
	}

	answer, err := s.generator.Generate(ctx, buildPrompt(question, results))
	if err != nil {
		return nil, errors.NewExternalError("answer generation failed").WithCause(err)
	}

	logger.Info("question answered",
		zap.String("collection", collectionID),
		zap.Int("sources", len(results)))
	return &AskResult{Answer: answer, Sources: results}, nil
}

// Generate 不带检索的直接文本生成
func (s *QueryService) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.NewValidationError("prompt must not be empty")
	}
	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", errors.NewExternalError("text generation failed").WithCause(err)
	}
	return answer, nil
}

// Embed 返回文本的嵌入向量，供调试与外部集成
func (s *QueryService) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewValidationError("text must not be empty")
	}
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, errors.NewExternalError("embedding request failed").WithCause(err)
	}
	return vector, nil
}

// buildPrompt 把检索到的分块拼成带上下文的提问
func buildPrompt(question string, results []rag.ScoredChunk) string {
	var b strings.Builder
	b.WriteString("Answer the question based only on the following context. ")
	b.WriteString("If the context does not contain the answer, say so.\n\nContext:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, r.Chunk.Text)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
