package rag

import (
	"math"
	"sort"
)

// VectorRecord 一个分块及其嵌入向量
type VectorRecord struct {
	Vector []float32
	Chunk  Chunk
}

// ScoredChunk 检索结果：分块加相似度得分
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Index 单个集合的扁平向量索引
// 只追加不删除，vectors与chunks按下标严格对齐
type Index struct {
	dimensions int
	vectors    [][]float32
	chunks     []Chunk
}

// NewIndex 创建空索引，维度在首次追加时确定
func NewIndex() *Index {
	return &Index{}
}

// Append 追加一批向量记录
// 所有向量维度必须与索引已有记录一致
func (idx *Index) Append(records []VectorRecord) error {
	for _, rec := range records {
		if len(rec.Vector) == 0 {
			return &DimensionMismatchError{Expected: idx.dimensions, Got: 0}
		}
		if idx.dimensions == 0 {
			idx.dimensions = len(rec.Vector)
		}
		if len(rec.Vector) != idx.dimensions {
			return &DimensionMismatchError{Expected: idx.dimensions, Got: len(rec.Vector)}
		}
	}
	for _, rec := range records {
		idx.vectors = append(idx.vectors, rec.Vector)
		idx.chunks = append(idx.chunks, rec.Chunk)
	}
	return nil
}

// Search 余弦相似度暴力检索，返回得分最高的k条，按得分降序
// 得分相同时先入库的记录排在前面
func (idx *Index) Search(query []float32, k int) []ScoredChunk {
	if k <= 0 || len(idx.vectors) == 0 {
		return nil
	}

	queryNorm := vectorNorm(query)
	if queryNorm == 0 {
		return nil
	}

	results := make([]ScoredChunk, 0, len(idx.vectors))
	for i, vec := range idx.vectors {
		results = append(results, ScoredChunk{
			Chunk: idx.chunks[i],
			Score: cosineSimilarity(query, vec, queryNorm),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Len 索引中的记录数
func (idx *Index) Len() int {
	return len(idx.chunks)
}

// Dimensions 向量维度，空索引返回0
func (idx *Index) Dimensions() int {
	return idx.dimensions
}

// Records 按插入顺序返回全部记录，持久化时使用
func (idx *Index) Records() []VectorRecord {
	records := make([]VectorRecord, len(idx.chunks))
	for i := range idx.chunks {
		records[i] = VectorRecord{Vector: idx.vectors[i], Chunk: idx.chunks[i]}
	}
	return records
}

func vectorNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func cosineSimilarity(a, b []float32, normA float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot float64
	var normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * math.Sqrt(normB))
}
