package middleware

import (
	"time"

	beecontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"

	"github.com/ctxai/orchestrator-go/internal/logger"
)

const startTimeKey = "accessLogStart"

// AccessLogBefore 记录请求开始时间
func AccessLogBefore(ctx *beecontext.Context) {
	ctx.Input.SetData(startTimeKey, time.Now())
}

// AccessLogAfter 输出访问日志，带耗时与客户端IP
func AccessLogAfter(ctx *beecontext.Context) {
	fields := []zap.Field{
		zap.String("method", ctx.Input.Method()),
		zap.String("path", ctx.Input.URL()),
		zap.Int("status", ctx.ResponseWriter.Status),
		zap.String("ip", clientIP(ctx)),
	}
	if v := ctx.Input.GetData(startTimeKey); v != nil {
		if started, ok := v.(time.Time); ok {
			fields = append(fields, zap.Duration("duration", time.Since(started)))
		}
	}
	logger.Info("http request", fields...)
}

// clientIP 穿透代理拿客户端IP
func clientIP(ctx *beecontext.Context) string {
	if forwarded := ctx.Input.Header("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := ctx.Input.Header("X-Real-IP"); realIP != "" {
		return realIP
	}
	return ctx.Input.IP()
}
