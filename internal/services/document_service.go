package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ctxai/orchestrator-go/internal/errors"
	"github.com/ctxai/orchestrator-go/internal/logger"
	"github.com/ctxai/orchestrator-go/internal/rag"
	"github.com/ctxai/orchestrator-go/internal/storage"
)

// 支持入库的文件扩展名，按查找顺序排列
var supportedExtensions = []string{".pdf", ".txt", ".md", ".docx"}

// DocumentService 文档服务：上传、提取、分块、入库
type DocumentService struct {
	uploads storage.UploadStore
	chunker *rag.Chunker
	store   *rag.Store
	metrics *MetricsService
}

// IngestResult 入库结果
type IngestResult struct {
	CollectionID   string `json:"collection_id"`
	ChunksInserted int    `json:"chunks_inserted"`
	PagesExtracted int    `json:"pages_extracted"`
}

// NewDocumentService 创建文档服务
func NewDocumentService(uploads storage.UploadStore, chunker *rag.Chunker, store *rag.Store, metrics *MetricsService) *DocumentService {
	return &DocumentService{
		uploads: uploads,
		chunker: chunker,
		store:   store,
		metrics: metrics,
	}
}

// SaveUpload 保存上传的文件，文件ID由原始文件名去掉扩展名得到
// 同ID重复上传会覆盖旧文件
func (s *DocumentService) SaveUpload(ctx context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !isSupportedExtension(ext) {
		return "", errors.NewBusinessError(errors.ErrCodeInvalidFileFormat,
			fmt.Sprintf("unsupported file type %q, expected one of %s", ext, strings.Join(supportedExtensions, ", ")))
	}

	fileID := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if strings.TrimSpace(fileID) == "" {
		return "", errors.NewValidationError("file name must not be empty")
	}

	if err := s.uploads.Save(ctx, fileID+ext, r); err != nil {
		return "", errors.NewSystemError(errors.ErrCodeUploadFailed, "failed to store uploaded file").WithCause(err)
	}

	logger.Info("file uploaded", zap.String("file_id", fileID), zap.String("ext", ext))
	return fileID, nil
}

// Ingest 把已上传的文档切块、向量化并写入同ID的集合
// 重复入库同一ID会把新的分块追加到已有集合
func (s *DocumentService) Ingest(ctx context.Context, fileID string) (*IngestResult, error) {
	started := time.Now()

	name, reader, err := s.openUpload(ctx, fileID)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	pages, err := rag.ParseFile(reader, name)
	if err != nil {
		return nil, errors.Translate(err)
	}

	chunks, err := s.chunkPages(pages)
	if err != nil {
		return nil, errors.Translate(err)
	}

	inserted, err := s.store.CreateOrAppend(ctx, fileID, chunks)
	if err != nil {
		return nil, errors.Translate(err)
	}

	s.metrics.ObserveIngest(inserted, time.Since(started).Seconds())
	logger.Info("document ingested",
		zap.String("file_id", fileID),
		zap.Int("pages", len(pages)),
		zap.Int("chunks_inserted", inserted))

	return &IngestResult{
		CollectionID:   fileID,
		ChunksInserted: inserted,
		PagesExtracted: len(pages),
	}, nil
}

// openUpload 按支持的扩展名顺序查找已上传的文件
func (s *DocumentService) openUpload(ctx context.Context, fileID string) (string, io.ReadCloser, error) {
	for _, ext := range supportedExtensions {
		name := fileID + ext
		ok, err := s.uploads.Exists(ctx, name)
		if err != nil {
			return "", nil, errors.NewSystemError(errors.ErrCodeInternalServer, "failed to check uploaded file").WithCause(err)
		}
		if !ok {
			continue
		}
		reader, err := s.uploads.Open(ctx, name)
		if err != nil {
			return "", nil, errors.NewSystemError(errors.ErrCodeInternalServer, "failed to open uploaded file").WithCause(err)
		}
		return name, reader, nil
	}
	return "", nil, errors.NewNotFoundError(fmt.Sprintf("uploaded document %q", fileID))
}

// chunkPages 逐页切块并重排全局序号，来源定位串带页码
func (s *DocumentService) chunkPages(pages []rag.Page) ([]rag.Chunk, error) {
	var all []rag.Chunk
	for _, page := range pages {
		chunks, err := s.chunker.SplitWithLocator(page.Text, fmt.Sprintf("page=%d", page.Number))
		if err != nil {
			// 单页全是空白可以跳过，其他错误直接上抛
			if err == rag.ErrEmptyInput {
				continue
			}
			return nil, err
		}
		all = append(all, chunks...)
	}
	if len(all) == 0 {
		return nil, rag.ErrNoChunksProduced
	}
	for i := range all {
		all[i].Index = i
	}
	return all, nil
}

func isSupportedExtension(ext string) bool {
	for _, e := range supportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
