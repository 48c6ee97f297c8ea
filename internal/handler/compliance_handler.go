package handler

import (
	"tfms/internal/apperr"
	"tfms/internal/model"
	"tfms/pkg/response"

	"github.com/gin-gonic/gin"
)

// CheckCompliance 对参考号执行合规检查，结果按参考号覆盖保存
// POST /api/v1/compliance/check/:reference
func (h *Handler) CheckCompliance(c *gin.Context) {
	result, err := h.svc.Compliance.Evaluate(c.Request.Context(), principal(c), c.Param("reference"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, result)
}

// ListCompliance GET /api/v1/compliance?status=NON_COMPLIANT
func (h *Handler) ListCompliance(c *gin.Context) {
	var (
		list []*model.Compliance
		err  error
	)
	if status := c.Query("status"); status != "" {
		st, ok := parseEnum(status, model.ComplianceStatuses)
		if !ok {
			h.fail(c, apperr.Validation("Invalid request data").Add("status", "Unknown compliance status"))
			return
		}
		list, err = h.svc.Compliance.ListByStatus(c.Request.Context(), principal(c), st)
	} else {
		list, err = h.svc.Compliance.List(c.Request.Context(), principal(c))
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, list)
}

// ComplianceSummary 各状态数量
// GET /api/v1/compliance/summary
func (h *Handler) ComplianceSummary(c *gin.Context) {
	counts, err := h.svc.Compliance.CountByStatus(c.Request.Context(), principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, counts)
}

func (h *Handler) GetCompliance(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	result, err := h.svc.Compliance.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, result)
}

// GetComplianceByReference GET /api/v1/compliance/reference/:reference
func (h *Handler) GetComplianceByReference(c *gin.Context) {
	result, err := h.svc.Compliance.GetByReference(c.Request.Context(), principal(c), c.Param("reference"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, result)
}
