package controllers

import (
	"net/http"

	"github.com/ctxai/orchestrator-go/app/bootstrap"
	"github.com/ctxai/orchestrator-go/internal/services"
)

// 上传文件大小上限
const maxUploadBytes = 50 << 20

// DocumentController 文档上传与入库
type DocumentController struct {
	BaseController
}

type ingestRequest struct {
	FileID string `json:"file_id" validate:"required"`
}

// Upload 接收multipart文件并保存到上传目录
func (c *DocumentController) Upload() {
	file, header, err := c.GetFile("file")
	if err != nil {
		c.JSONError(http.StatusBadRequest, "missing form file field \"file\"")
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		c.JSONError(http.StatusRequestEntityTooLarge, "file exceeds upload size limit")
		return
	}

	var docService *services.DocumentService
	if err := bootstrap.GetApp().Invoke(func(d *services.DocumentService) { docService = d }); err != nil {
		c.HandleError(err)
		return
	}

	fileID, err := docService.SaveUpload(c.RequestContext(), header.Filename, file)
	if err != nil {
		c.HandleError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"file_id":  fileID,
		"filename": header.Filename,
		"size":     header.Size,
	})
}

// Ingest 把已上传的文档切块向量化并写入集合
func (c *DocumentController) Ingest() {
	var req ingestRequest
	if err := c.BindJSON(&req); err != nil {
		c.HandleError(err)
		return
	}

	var docService *services.DocumentService
	if err := bootstrap.GetApp().Invoke(func(d *services.DocumentService) { docService = d }); err != nil {
		c.HandleError(err)
		return
	}

	result, err := docService.Ingest(c.RequestContext(), req.FileID)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(result)
}
