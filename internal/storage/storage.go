package storage

import (
	"context"
	"io"
)

// UploadStore 上传文件存储抽象
// 本地磁盘是默认实现，也可以换成MinIO等对象存储
type UploadStore interface {
	// Save 保存文件内容，同名覆盖
	Save(ctx context.Context, name string, r io.Reader) error
	// Open 打开已保存的文件
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Exists 文件是否存在
	Exists(ctx context.Context, name string) (bool, error)
}
