package handler

import (
	"tfms/internal/apperr"
	"tfms/internal/model"
	"tfms/internal/service"
	"tfms/pkg/response"

	"github.com/gin-gonic/gin"
)

// AssessRisk 提交风险评估，提供 risk_factors 和 risk_score 时按人工评估记录
// POST /api/v1/risk/assess
func (h *Handler) AssessRisk(c *gin.Context) {
	var req service.AssessRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ra, err := h.svc.Risk.Assess(c.Request.Context(), principal(c), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, ra)
}

// ListRisk GET /api/v1/risk?level=HIGH
func (h *Handler) ListRisk(c *gin.Context) {
	var (
		list []*model.RiskAssessment
		err  error
	)
	if level := c.Query("level"); level != "" {
		lv, ok := parseEnum(level, model.RiskLevels)
		if !ok {
			h.fail(c, apperr.Validation("Invalid request data").Add("level", "Unknown risk level"))
			return
		}
		list, err = h.svc.Risk.ListByLevel(c.Request.Context(), principal(c), lv)
	} else {
		list, err = h.svc.Risk.List(c.Request.Context(), principal(c))
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, list)
}

// ListHighRisk GET /api/v1/risk/high
func (h *Handler) ListHighRisk(c *gin.Context) {
	list, err := h.svc.Risk.ListHighRisk(c.Request.Context(), principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, list)
}

// RiskSummary GET /api/v1/risk/summary
func (h *Handler) RiskSummary(c *gin.Context) {
	summary, err := h.svc.Risk.Summary(c.Request.Context(), principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, summary)
}

// RiskQueue 等待评估的交易
// GET /api/v1/risk/queue
func (h *Handler) RiskQueue(c *gin.Context) {
	queue, err := h.svc.Risk.Queue(c.Request.Context(), principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, queue)
}

func (h *Handler) GetRisk(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	ra, err := h.svc.Risk.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, ra)
}

// LatestRisk 参考号的当前评估
// GET /api/v1/risk/reference/:reference
func (h *Handler) LatestRisk(c *gin.Context) {
	ra, err := h.svc.Risk.Latest(c.Request.Context(), principal(c), c.Param("reference"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, ra)
}

type RemarksRequest struct {
	Remarks string `json:"remarks"`
}

// UpdateRiskRemarks PUT /api/v1/risk/:id/remarks
func (h *Handler) UpdateRiskRemarks(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	var req RemarksRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ra, err := h.svc.Risk.UpdateRemarks(c.Request.Context(), principal(c), id, req.Remarks)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, ra)
}
