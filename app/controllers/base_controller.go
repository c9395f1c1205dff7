package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/beego/beego/v2/server/web"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/ctxai/orchestrator-go/internal/errors"
)

var validate = validator.New()

// BaseController 提供统一的JSON响应与请求解析
type BaseController struct {
	web.Controller
}

// JSON 按给定状态码输出JSON
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess 输出成功包裹
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError 输出错误包裹
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// HandleError 把错误翻译成AppError并输出对应状态码
func (c *BaseController) HandleError(err error) {
	appErr := apperrors.Translate(err)
	body := map[string]interface{}{
		"success": false,
		"error":   appErr.Message,
		"code":    appErr.Code,
	}
	if appErr.Details != nil {
		body["details"] = appErr.Details
	}
	c.JSON(appErr.HTTPCode, body)
}

// BindJSON 解析请求体并做结构体校验
// 需要web.BConfig.CopyRequestBody开启才能读到RequestBody
func (c *BaseController) BindJSON(dst interface{}) error {
	if len(c.Ctx.Input.RequestBody) == 0 {
		return apperrors.NewValidationError("request body is empty")
	}
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, dst); err != nil {
		return apperrors.NewValidationError("invalid JSON body").WithCause(err)
	}
	if err := validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

// RequestContext 返回请求上下文，客户端断开时取消
func (c *BaseController) RequestContext() context.Context {
	return c.Ctx.Request.Context()
}

// CurrentUser 返回认证中间件写入的用户名
func (c *BaseController) CurrentUser() string {
	if v := c.Ctx.Input.GetData("username"); v != nil {
		if name, ok := v.(string); ok {
			return name
		}
	}
	return ""
}
