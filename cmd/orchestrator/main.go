package main

import (
	"log"
	"strconv"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"github.com/ctxai/orchestrator-go/app/bootstrap"
	"github.com/ctxai/orchestrator-go/app/router"
	"github.com/ctxai/orchestrator-go/internal/logger"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()
	bootstrap.SetGlobalApp(app)

	if err := router.Init(); err != nil {
		log.Fatalf("failed to register routes: %v", err)
	}

	web.BConfig.AppName = "Contextual Orchestrator"
	web.BConfig.CopyRequestBody = true
	if p, err := strconv.Atoi(app.Config().Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = p
	}

	logger.Info("starting orchestrator service", zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
