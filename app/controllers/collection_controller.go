package controllers

import (
	"github.com/ctxai/orchestrator-go/app/bootstrap"
	"github.com/ctxai/orchestrator-go/internal/rag"
)

// CollectionController 集合枚举与详情
type CollectionController struct {
	BaseController
}

func (c *CollectionController) registry() (*rag.Registry, error) {
	var reg *rag.Registry
	err := bootstrap.GetApp().Invoke(func(r *rag.Registry) { reg = r })
	return reg, err
}

// List 列出所有已持久化的集合
func (c *CollectionController) List() {
	reg, err := c.registry()
	if err != nil {
		c.HandleError(err)
		return
	}

	collections, err := reg.List()
	if err != nil {
		c.HandleError(err)
		return
	}
	if collections == nil {
		collections = []string{}
	}
	c.JSONSuccess(map[string]interface{}{
		"collections": collections,
		"count":       len(collections),
	})
}

// Get 返回单个集合的磁盘占用详情
// 集合不存在时也返回200，Exists字段标记状态
func (c *CollectionController) Get() {
	collectionID := c.Ctx.Input.Param(":id")

	reg, err := c.registry()
	if err != nil {
		c.HandleError(err)
		return
	}

	info, err := reg.Describe(collectionID)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(info)
}
