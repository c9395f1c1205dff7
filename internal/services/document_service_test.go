package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ctxai/orchestrator-go/internal/errors"
	"github.com/ctxai/orchestrator-go/internal/rag"
	"github.com/ctxai/orchestrator-go/internal/storage"
)

// fakeEmbedder 确定性向量，不碰网络
type fakeEmbedder struct {
	dims int
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	for i, b := range []byte(text) {
		vec[i%e.dims] += float32(b)
	}
	return vec, nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

func (e *fakeEmbedder) Dimensions() int { return e.dims }
func (e *fakeEmbedder) Ready() bool     { return true }

func newTestDocumentService(t *testing.T) (*DocumentService, *rag.Store) {
	t.Helper()
	uploads, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	store := rag.NewStore(t.TempDir(), &fakeEmbedder{dims: 4})
	svc := NewDocumentService(uploads, rag.NewChunker(200, 20), store, NewMetricsService())
	return svc, store
}

func TestSaveUploadAndIngest(t *testing.T) {
	svc, store := newTestDocumentService(t)
	ctx := context.Background()

	content := "First paragraph about storage.\n\nSecond paragraph about retrieval.\n\nThird paragraph about ranking."
	fileID, err := svc.SaveUpload(ctx, "notes.txt", strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, "notes", fileID)

	result, err := svc.Ingest(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, "notes", result.CollectionID)
	assert.Equal(t, 1, result.PagesExtracted)
	assert.Greater(t, result.ChunksInserted, 0)

	index, err := store.Load(ctx, "notes")
	require.NoError(t, err)
	require.NotNil(t, index)
	assert.Equal(t, result.ChunksInserted, index.Len())
}

// 重复入库同一文档会追加而不是替换
func TestIngestTwiceAppends(t *testing.T) {
	svc, store := newTestDocumentService(t)
	ctx := context.Background()

	_, err := svc.SaveUpload(ctx, "notes.txt", strings.NewReader("Some document content for ingestion."))
	require.NoError(t, err)

	first, err := svc.Ingest(ctx, "notes")
	require.NoError(t, err)
	second, err := svc.Ingest(ctx, "notes")
	require.NoError(t, err)

	index, err := store.Load(ctx, "notes")
	require.NoError(t, err)
	require.NotNil(t, index)
	assert.Equal(t, first.ChunksInserted+second.ChunksInserted, index.Len())
}

func TestSaveUploadRejectsUnsupportedType(t *testing.T) {
	svc, _ := newTestDocumentService(t)

	_, err := svc.SaveUpload(context.Background(), "malware.exe", strings.NewReader("x"))
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeInvalidFileFormat, appErr.Code)
}

func TestIngestMissingDocument(t *testing.T) {
	svc, _ := newTestDocumentService(t)

	_, err := svc.Ingest(context.Background(), "never-uploaded")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.HTTPCode)
}

func TestIngestEmptyDocument(t *testing.T) {
	svc, _ := newTestDocumentService(t)
	ctx := context.Background()

	_, err := svc.SaveUpload(ctx, "blank.txt", strings.NewReader("   \n\n  "))
	require.NoError(t, err)

	_, err = svc.Ingest(ctx, "blank")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeEmptyDocument, appErr.Code)
}
