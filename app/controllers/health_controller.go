package controllers

import (
	"github.com/ctxai/orchestrator-go/app/bootstrap"
	"github.com/ctxai/orchestrator-go/internal/rag"
)

// RootController 服务自述
type RootController struct {
	BaseController
}

// Index 返回服务名
func (c *RootController) Index() {
	c.JSONSuccess(map[string]interface{}{
		"service": "contextual-orchestrator",
		"status":  "running",
	})
}

// HealthController 健康检查
type HealthController struct {
	BaseController
}

// Health 返回各依赖的就绪状态
// 嵌入或生成模型未配置不算不健康，只如实上报
func (c *HealthController) Health() {
	app := bootstrap.GetApp()

	var embedderReady, generatorReady bool
	if err := app.Invoke(func(e rag.Embedder, g rag.Generator) {
		embedderReady = e.Ready()
		generatorReady = g.Ready()
	}); err != nil {
		c.HandleError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"status":          "healthy",
		"env":             app.Config().Server.Env,
		"embedder_ready":  embedderReady,
		"generator_ready": generatorReady,
	})
}
