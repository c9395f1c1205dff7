package rag

import (
	"errors"
	"fmt"
	"strings"
)

// 输入校验类错误，在任何嵌入调用或磁盘IO之前返回
var (
	// ErrEmptyInput 文档内容为空或全是空白字符
	ErrEmptyInput = errors.New("document text is empty")
	// ErrNoChunksProduced 切分后没有产生任何有效分块
	ErrNoChunksProduced = errors.New("no chunks produced from document text")
	// ErrEmptyBatch 入库的分块序列为空
	ErrEmptyBatch = errors.New("chunk batch is empty")
	// ErrEmptyQuery 检索问题为空
	ErrEmptyQuery = errors.New("query text is empty")
	// ErrCollectionBusy 同一集合上已有写入操作在执行
	ErrCollectionBusy = errors.New("collection is busy with another write")
)

// CollectionNotFoundError 集合不存在
// 携带尝试过的路径和当前已知的集合列表，方便定位是拼写错误还是忘记入库
type CollectionNotFoundError struct {
	CollectionID string
	Path         string
	Known        []string
}

func (e *CollectionNotFoundError) Error() string {
	known := "(none)"
	if len(e.Known) > 0 {
		known = strings.Join(e.Known, ", ")
	}
	return fmt.Sprintf("collection %q not found at %s; known collections: %s", e.CollectionID, e.Path, known)
}

// CorruptStoreError 磁盘上的集合产物存在但无法解析
// 与"不存在"严格区分：前者需要排查磁盘，后者重新入库即可
type CorruptStoreError struct {
	CollectionID string
	Artifact     string
	Cause        error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("collection %q artifact %s is corrupt: %v", e.CollectionID, e.Artifact, e.Cause)
}

func (e *CorruptStoreError) Unwrap() error { return e.Cause }

// StoreWriteError 持久化集合时的IO错误
type StoreWriteError struct {
	CollectionID string
	Cause        error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("failed to persist collection %q: %v", e.CollectionID, e.Cause)
}

func (e *StoreWriteError) Unwrap() error { return e.Cause }

// DimensionMismatchError 向量维度与集合已有记录不一致
type DimensionMismatchError struct {
	CollectionID string
	Expected     int
	Got          int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("collection %q expects %d-dimensional vectors, got %d", e.CollectionID, e.Expected, e.Got)
}

// EmbeddingProviderError 嵌入服务调用失败，带上集合与操作上下文后透传
type EmbeddingProviderError struct {
	Operation    string
	CollectionID string
	Cause        error
}

func (e *EmbeddingProviderError) Error() string {
	if e.CollectionID != "" {
		return fmt.Sprintf("embedding provider failed during %s for collection %q: %v", e.Operation, e.CollectionID, e.Cause)
	}
	return fmt.Sprintf("embedding provider failed during %s: %v", e.Operation, e.Cause)
}

func (e *EmbeddingProviderError) Unwrap() error { return e.Cause }

// IsNotFound 判断错误是否为集合不存在
func IsNotFound(err error) bool {
	var nf *CollectionNotFoundError
	return errors.As(err, &nf)
}
