package middleware

import (
	"net/http"
	"strings"

	beecontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"

	"github.com/ctxai/orchestrator-go/app/bootstrap"
	"github.com/ctxai/orchestrator-go/internal/auth"
	"github.com/ctxai/orchestrator-go/internal/logger"
)

// JWTAuthFilter 校验Bearer token并把用户名写入请求上下文
// 挂在/api/*之下，登录入口本身放行
func JWTAuthFilter(ctx *beecontext.Context) {
	if strings.HasPrefix(ctx.Input.URL(), "/api/auth/") {
		return
	}

	token, err := auth.ExtractTokenFromHeader(ctx.Input.Header("Authorization"))
	if err != nil {
		unauthorized(ctx, "missing or malformed authorization header")
		return
	}

	var jwtService *auth.JWTService
	if err := bootstrap.GetApp().Invoke(func(j *auth.JWTService) { jwtService = j }); err != nil {
		logger.Error("failed to resolve jwt service", zap.Error(err))
		unauthorized(ctx, "authentication unavailable")
		return
	}

	claims, err := jwtService.ValidateToken(token)
	if err != nil {
		unauthorized(ctx, "invalid or expired token")
		return
	}

	ctx.Input.SetData("username", claims.Username)
}

func unauthorized(ctx *beecontext.Context, message string) {
	ctx.Output.Header("WWW-Authenticate", "Bearer")
	ctx.Output.SetStatus(http.StatusUnauthorized)
	ctx.Output.JSON(map[string]interface{}{
		"success": false,
		"error":   message,
	}, false, false)
}
