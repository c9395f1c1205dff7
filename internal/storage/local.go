package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore 本地磁盘存储
type LocalStore struct {
	baseDir string
}

// NewLocalStore 创建本地存储，目录不存在时自动创建
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{baseDir: baseDir}, nil
}

// path 把文件名限制在baseDir之内，拦截路径穿越
func (s *LocalStore) path(name string) (string, error) {
	clean := filepath.Clean(filepath.Base(name))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid file name: %q", name)
	}
	return filepath.Join(s.baseDir, clean), nil
}

func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	// 先写临时文件再换名，避免半截文件被后续读取
	tmp, err := os.CreateTemp(s.baseDir, ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *LocalStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (s *LocalStore) Exists(ctx context.Context, name string) (bool, error) {
	path, err := s.path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
