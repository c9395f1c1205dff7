package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ctxai/orchestrator-go/internal/rag"
)

// Translate 把底层错误转换为AppError
// "集合不存在"之类的常见结果必须映射成对应的业务错误，不允许塌缩成笼统的500
func Translate(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	// 输入校验类错误：在任何IO之前就能判定
	switch {
	case errors.Is(err, rag.ErrEmptyInput):
		return NewBusinessError(ErrCodeEmptyDocument, "document text is empty or whitespace-only").WithCause(err)
	case errors.Is(err, rag.ErrNoChunksProduced):
		return NewBusinessError(ErrCodeEmptyDocument, "document produced no usable chunks").WithCause(err)
	case errors.Is(err, rag.ErrEmptyBatch):
		return NewValidationError("chunk batch is empty").WithCause(err)
	case errors.Is(err, rag.ErrEmptyQuery):
		return NewBusinessError(ErrCodeEmptyQuery, "question must not be empty").WithCause(err)
	case errors.Is(err, rag.ErrCollectionBusy):
		return NewBusinessError(ErrCodeCollectionBusy, "collection is busy, retry later").WithCause(err)
	case errors.Is(err, rag.ErrNoExtractableContent):
		return NewBusinessError(ErrCodeEmptyDocument, "no extractable text content in file").WithCause(err)
	}

	// 存储层错误：带结构化细节，不丢诊断信息
	var notFound *rag.CollectionNotFoundError
	if errors.As(err, &notFound) {
		return NewBusinessError(ErrCodeCollectionNotFound,
			fmt.Sprintf("collection %q not found", notFound.CollectionID)).
			WithDetails(map[string]interface{}{
				"attempted_path":    notFound.Path,
				"known_collections": notFound.Known,
			}).WithCause(err)
	}
	var corrupt *rag.CorruptStoreError
	if errors.As(err, &corrupt) {
		return NewSystemError(ErrCodeStoreCorrupt,
			fmt.Sprintf("collection %q is corrupt", corrupt.CollectionID)).
			WithDetails(map[string]interface{}{"artifact": corrupt.Artifact}).
			WithCause(err)
	}
	var writeErr *rag.StoreWriteError
	if errors.As(err, &writeErr) {
		return NewSystemError(ErrCodeStoreWriteFailed,
			fmt.Sprintf("failed to persist collection %q", writeErr.CollectionID)).WithCause(err)
	}
	var mismatch *rag.DimensionMismatchError
	if errors.As(err, &mismatch) {
		return NewBusinessError(ErrCodeConflict, mismatch.Error()).WithCause(err)
	}
	var provider *rag.EmbeddingProviderError
	if errors.As(err, &provider) {
		return NewExternalError("embedding provider request failed").WithCause(err)
	}

	// 请求结构体验证错误
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		var fields []string
		for _, fe := range validationErrs {
			fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
		}
		return NewValidationError("request validation failed: " + strings.Join(fields, ", ")).WithCause(err)
	}

	return NewSystemError(ErrCodeInternalServer, "Internal server error").WithCause(err)
}
