package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"tfms/internal/apperr"
	"tfms/internal/model"
	"tfms/internal/service"
	"tfms/pkg/response"

	"github.com/gin-gonic/gin"
)

// Services 处理器依赖的全部业务服务
type Services struct {
	LC         *service.LCService
	BG         *service.BGService
	Documents  *service.DocumentService
	Risk       *service.RiskService
	Compliance *service.ComplianceService
	Tracking   *service.TrackingService
	Dashboard  *service.DashboardService
}

// Handler 统一处理器
type Handler struct {
	svc Services
	log *slog.Logger
}

func NewHandler(svc Services, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// fail 领域错误统一映射
func (h *Handler) fail(c *gin.Context, err error) {
	response.Fail(c, h.log, err)
}

// idParam 解析路径中的 :id，失败时已写响应
func (h *Handler) idParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		h.fail(c, apperr.Validation("Invalid request data").Add("id", "Must be a positive integer"))
		return 0, false
	}
	return id, true
}

// bindJSON 请求体格式错误映射为 ValidationError，字段校验由服务层完成
func (h *Handler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, apperr.Validation("Malformed request body: "+err.Error()))
		return false
	}
	return true
}

// ReasonRequest 拒绝/撤销等操作的可选原因
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// reason 请求体可以为空
func (h *Handler) reason(c *gin.Context) (string, bool) {
	if c.Request.ContentLength == 0 {
		return "", true
	}
	var req ReasonRequest
	if !h.bindJSON(c, &req) {
		return "", false
	}
	return strings.TrimSpace(req.Reason), true
}

// csvQuery ?status=A,B 形式的多值参数
func csvQuery(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, s := range strings.Split(v, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// transition 无请求体的状态流转：POST /<resource>/:id/<action>
func transition[T any](h *Handler, action func(context.Context, *model.Principal, uint64) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.idParam(c)
		if !ok {
			return
		}
		result, err := action(c.Request.Context(), principal(c), id)
		if err != nil {
			h.fail(c, err)
			return
		}
		response.Success(c, result)
	}
}

// withReason 带可选原因的状态流转，请求体 {"reason": "..."}
func withReason[T any](h *Handler, action func(context.Context, *model.Principal, uint64, string) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.idParam(c)
		if !ok {
			return
		}
		reason, ok := h.reason(c)
		if !ok {
			return
		}
		result, err := action(c.Request.Context(), principal(c), id, reason)
		if err != nil {
			h.fail(c, err)
			return
		}
		response.Success(c, result)
	}
}

// remove DELETE /<resource>/:id，成功返回 204
func remove(h *Handler, action func(context.Context, *model.Principal, uint64) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.idParam(c)
		if !ok {
			return
		}
		if err := action(c.Request.Context(), principal(c), id); err != nil {
			h.fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// parseEnum 大小写不敏感地匹配枚举值
func parseEnum[T ~string](s string, values []T) (T, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, v := range values {
		if string(v) == s {
			return v, true
		}
	}
	var zero T
	return zero, false
}
