package handler

import (
	"tfms/pkg/response"

	"github.com/gin-gonic/gin"
)

// Track 按参考号查询进度，未登录时只返回状态和时间线
// GET /track/:reference
func (h *Handler) Track(c *gin.Context) {
	t, err := h.svc.Tracking.Track(c.Request.Context(), principal(c), c.Param("reference"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, t)
}

// Dashboard GET /api/v1/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.svc.Dashboard.Summary(c.Request.Context(), principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, d)
}
