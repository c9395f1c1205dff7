package rag

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Registry 集合登记表：只做目录层面的枚举与体检，从不把索引加载进内存
// 足够便宜，可以在每次检索前当诊断工具调用
type Registry struct {
	root string
}

// CollectionInfo 集合的磁盘状况
type CollectionInfo struct {
	CollectionID   string   `json:"collection_id"`
	Path           string   `json:"path"`
	Exists         bool     `json:"exists"`
	Files          []string `json:"files"`
	TotalSizeBytes int64    `json:"total_size_bytes"`
}

// NewRegistry 创建集合登记表
func NewRegistry(root string) *Registry {
	return &Registry{root: root}
}

// List 枚举已知集合ID，不校验目录内部结构
// 点号开头的目录是写入过程的暂存目录，不算集合
func (r *Registry) List() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ids = append(ids, entry.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// Describe 报告集合目录的文件清单与总大小
func (r *Registry) Describe(collectionID string) (CollectionInfo, error) {
	dir := filepath.Join(r.root, SanitizeCollectionID(collectionID))
	info := CollectionInfo{
		CollectionID: collectionID,
		Path:         dir,
		Files:        []string{},
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return info, nil
	}
	if err != nil {
		return info, err
	}

	info.Exists = true
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info.Files = append(info.Files, entry.Name())
		if fi, err := entry.Info(); err == nil {
			info.TotalSizeBytes += fi.Size()
		}
	}
	sort.Strings(info.Files)
	return info, nil
}
