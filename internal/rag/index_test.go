package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(text string, vec ...float32) VectorRecord {
	return VectorRecord{Vector: vec, Chunk: Chunk{Text: text}}
}

func TestIndexAppendAndLen(t *testing.T) {
	idx := NewIndex()
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, 0, idx.Dimensions())

	err := idx.Append([]VectorRecord{
		record("a", 1, 0, 0),
		record("b", 0, 1, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, 3, idx.Dimensions())
}

func TestIndexAppendDimensionMismatch(t *testing.T) {
	idx := NewIndex()
	require.NoError(t, idx.Append([]VectorRecord{record("a", 1, 0)}))

	err := idx.Append([]VectorRecord{record("b", 1, 0, 0)})
	var mismatch *DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 2, mismatch.Expected)
	assert.Equal(t, 3, mismatch.Got)
	// 整批被拒绝，索引保持原样
	assert.Equal(t, 1, idx.Len())
}

func TestIndexAppendRejectsEmptyVector(t *testing.T) {
	idx := NewIndex()
	err := idx.Append([]VectorRecord{{Chunk: Chunk{Text: "a"}}})
	var mismatch *DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestIndexSearchRanking(t *testing.T) {
	idx := NewIndex()
	require.NoError(t, idx.Append([]VectorRecord{
		record("x axis", 1, 0),
		record("y axis", 0, 1),
		record("diagonal", 1, 1),
	}))

	results := idx.Search([]float32{1, 0}, 2)
	require.Len(t, results, 2)
	assert.Equal(t, "x axis", results[0].Chunk.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "diagonal", results[1].Chunk.Text)
	assert.Greater(t, results[0].Score, results[1].Score)
}

// 得分相同的记录按入库顺序排列
func TestIndexSearchStableTieBreak(t *testing.T) {
	idx := NewIndex()
	require.NoError(t, idx.Append([]VectorRecord{
		record("first", 0, 1),
		record("second", 0, 1),
		record("third", 0, 1),
	}))

	results := idx.Search([]float32{0, 1}, 3)
	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Chunk.Text)
	assert.Equal(t, "second", results[1].Chunk.Text)
	assert.Equal(t, "third", results[2].Chunk.Text)
}

func TestIndexSearchKLargerThanIndex(t *testing.T) {
	idx := NewIndex()
	require.NoError(t, idx.Append([]VectorRecord{record("only", 1, 0)}))

	results := idx.Search([]float32{1, 0}, 10)
	assert.Len(t, results, 1)
}

func TestIndexSearchEdgeCases(t *testing.T) {
	idx := NewIndex()
	assert.Nil(t, idx.Search([]float32{1, 0}, 4), "empty index")

	require.NoError(t, idx.Append([]VectorRecord{record("a", 1, 0)}))
	assert.Nil(t, idx.Search([]float32{1, 0}, 0), "k=0")
	assert.Nil(t, idx.Search([]float32{0, 0}, 4), "zero-norm query")
}

func TestIndexRecordsPreserveOrder(t *testing.T) {
	idx := NewIndex()
	require.NoError(t, idx.Append([]VectorRecord{
		record("a", 1, 0),
		record("b", 0, 1),
	}))

	records := idx.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Chunk.Text)
	assert.Equal(t, []float32{0, 1}, records[1].Vector)
}
