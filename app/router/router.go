package router

import (
	"github.com/beego/beego/v2/server/web"

	"github.com/ctxai/orchestrator-go/app/bootstrap"
	"github.com/ctxai/orchestrator-go/app/controllers"
	"github.com/ctxai/orchestrator-go/app/middleware"
	"github.com/ctxai/orchestrator-go/internal/services"
)

// Init 注册所有路由与过滤器，必须在bootstrap之后调用
func Init() error {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")

	web.InsertFilter("/*", web.BeforeRouter, middleware.CORSMiddleware)
	web.InsertFilter("/*", web.BeforeRouter, middleware.AccessLogBefore)
	web.InsertFilter("/*", web.AfterExec, middleware.AccessLogAfter, web.WithReturnOnOutput(false))
	web.InsertFilter("/api/*", web.BeforeRouter, middleware.JWTAuthFilter)

	web.Router("/api/auth/token", &controllers.AuthController{}, "post:Token")

	documentController := &controllers.DocumentController{}
	web.Router("/api/documents/upload", documentController, "post:Upload")
	web.Router("/api/documents/ingest", documentController, "post:Ingest")

	queryController := &controllers.QueryController{}
	web.Router("/api/ask", queryController, "post:Ask")
	web.Router("/api/search", queryController, "post:Search")
	web.Router("/api/generate", queryController, "post:Generate")
	web.Router("/api/embed", queryController, "post:Embed")

	collectionController := &controllers.CollectionController{}
	web.Router("/api/collections", collectionController, "get:List")
	web.Router("/api/collections/:id", collectionController, "get:Get")

	// Prometheus指标直接挂原生handler
	return bootstrap.GetApp().Invoke(func(m *services.MetricsService) {
		web.Handler("/metrics", m.Handler())
	})
}
