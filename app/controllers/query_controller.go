package controllers

import (
	"github.com/ctxai/orchestrator-go/app/bootstrap"
	"github.com/ctxai/orchestrator-go/internal/services"
)

// QueryController 检索与问答
type QueryController struct {
	BaseController
}

type askRequest struct {
	FileID   string `json:"file_id" validate:"required"`
	Question string `json:"question" validate:"required"`
}

type searchRequest struct {
	CollectionID string `json:"collection_id" validate:"required"`
	Query        string `json:"query" validate:"required"`
	K            int    `json:"k"`
}

type generateRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type embedRequest struct {
	Text string `json:"text" validate:"required"`
}

func (c *QueryController) queryService() (*services.QueryService, error) {
	var svc *services.QueryService
	err := bootstrap.GetApp().Invoke(func(q *services.QueryService) { svc = q })
	return svc, err
}

// Ask 在指定集合上检索并生成带引用的回答
func (c *QueryController) Ask() {
	var req askRequest
	if err := c.BindJSON(&req); err != nil {
		c.HandleError(err)
		return
	}

	svc, err := c.queryService()
	if err != nil {
		c.HandleError(err)
		return
	}

	result, err := svc.Ask(c.RequestContext(), req.FileID, req.Question)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(result)
}

// Search 相似度检索，不走生成
func (c *QueryController) Search() {
	var req searchRequest
	if err := c.BindJSON(&req); err != nil {
		c.HandleError(err)
		return
	}

	svc, err := c.queryService()
	if err != nil {
		c.HandleError(err)
		return
	}

	results, err := svc.Search(c.RequestContext(), req.CollectionID, req.Query, req.K)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{
		"collection_id": req.CollectionID,
		"results":       results,
	})
}

// Generate 不带检索的直接生成
func (c *QueryController) Generate() {
	var req generateRequest
	if err := c.BindJSON(&req); err != nil {
		c.HandleError(err)
		return
	}

	svc, err := c.queryService()
	if err != nil {
		c.HandleError(err)
		return
	}

	answer, err := svc.Generate(c.RequestContext(), req.Prompt)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{"answer": answer})
}

// Embed 返回文本的嵌入向量
func (c *QueryController) Embed() {
	var req embedRequest
	if err := c.BindJSON(&req); err != nil {
		c.HandleError(err)
		return
	}

	svc, err := c.queryService()
	if err != nil {
		c.HandleError(err)
		return
	}

	vector, err := svc.Embed(c.RequestContext(), req.Text)
	if err != nil {
		c.HandleError(err)
		return
	}
	c.JSONSuccess(map[string]interface{}{
		"dimensions": len(vector),
		"embedding":  vector,
	})
}
