package middleware

import (
	"os"
	"strings"

	"github.com/beego/beego/v2/server/web/context"
)

// 默认允许的前端开发源，可用CORS_ALLOWED_ORIGINS覆盖
var defaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:3000",
}

// CORSMiddleware CORS中间件
func CORSMiddleware(ctx *context.Context) {
	origin := ctx.Input.Header("Origin")
	if origin == "" {
		// 同源请求没有Origin头，直接放行
		return
	}

	if originAllowed(origin) {
		ctx.Output.Header("Access-Control-Allow-Origin", origin)
		ctx.Output.Header("Access-Control-Allow-Credentials", "true")
	}
	ctx.Output.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	ctx.Output.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin")
	ctx.Output.Header("Access-Control-Max-Age", "3600")

	if ctx.Input.Method() == "OPTIONS" {
		ctx.Output.SetStatus(204)
		ctx.Output.Body([]byte(""))
	}
}

func originAllowed(origin string) bool {
	allowed := defaultAllowedOrigins
	if env := os.Getenv("CORS_ALLOWED_ORIGINS"); env != "" {
		allowed = strings.Split(env, ",")
	}
	for _, a := range allowed {
		if strings.TrimSpace(a) == origin {
			return true
		}
	}
	return false
}
