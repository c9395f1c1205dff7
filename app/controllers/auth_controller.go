package controllers

import (
	"net/http"

	"github.com/ctxai/orchestrator-go/app/bootstrap"
	"github.com/ctxai/orchestrator-go/internal/auth"
	"github.com/ctxai/orchestrator-go/internal/logger"
	"go.uber.org/zap"
)

// AuthController 登录换token
type AuthController struct {
	BaseController
}

type tokenRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Token 用户名密码换JWT
// 兼容表单与JSON两种提交方式
func (c *AuthController) Token() {
	var req tokenRequest
	req.Username = c.GetString("username")
	req.Password = c.GetString("password")
	if req.Username == "" {
		if err := c.BindJSON(&req); err != nil {
			c.HandleError(err)
			return
		}
	}

	var users *auth.UserStore
	var jwtService *auth.JWTService
	if err := bootstrap.GetApp().Invoke(func(u *auth.UserStore, j *auth.JWTService) {
		users = u
		jwtService = j
	}); err != nil {
		c.HandleError(err)
		return
	}

	if !users.Authenticate(req.Username, req.Password) {
		logger.Warn("authentication failed", zap.String("username", req.Username))
		c.JSONError(http.StatusUnauthorized, "incorrect username or password")
		return
	}

	token, err := jwtService.GenerateToken(req.Username)
	if err != nil {
		c.HandleError(err)
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"access_token": token,
		"token_type":   "bearer",
	})
}
