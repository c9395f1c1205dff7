package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ctxai/orchestrator-go/internal/logger"
	"github.com/ctxai/orchestrator-go/internal/rag"
)

// ResultCache 检索结果的Redis缓存，可选组件
// 未配置时所有方法都是no-op，调用方不用区分
// 条目只按TTL过期，重新入库后的短暂陈旧窗口是接受的
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache 创建缓存，enabled为false时返回禁用实例
func NewResultCache(enabled bool, host, port string, db int, ttl time.Duration) *ResultCache {
	if !enabled {
		return &ResultCache{}
	}
	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port,
		DB:   db,
	})
	return &ResultCache{client: client, ttl: ttl}
}

// Ready 缓存是否可用
func (c *ResultCache) Ready() bool {
	return c.client != nil
}

func cacheKey(collectionID, query string, k int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s\x00%s\x00%d", collectionID, query, k)))
	return "search:" + hex.EncodeToString(sum[:16])
}

// Get 读取缓存的检索结果，未命中返回(nil, false)
func (c *ResultCache) Get(ctx context.Context, collectionID, query string, k int) ([]rag.ScoredChunk, bool) {
	if c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, cacheKey(collectionID, query, k)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Warn("result cache get failed", zap.Error(err))
		return nil, false
	}
	var results []rag.ScoredChunk
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, false
	}
	return results, true
}

// Put 写入检索结果，失败只记日志不影响主流程
func (c *ResultCache) Put(ctx context.Context, collectionID, query string, k int, results []rag.ScoredChunk) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(collectionID, query, k), data, c.ttl).Err(); err != nil {
		logger.Warn("result cache put failed", zap.Error(err))
	}
}

// Close 关闭连接
func (c *ResultCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
