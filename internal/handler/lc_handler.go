package handler

import (
	"tfms/internal/model"
	"tfms/internal/service"
	"tfms/pkg/response"

	"github.com/gin-gonic/gin"
)

// CreateLC 创建信用证草稿
// POST /api/v1/lc
func (h *Handler) CreateLC(c *gin.Context) {
	var req service.LCRequest
	if !h.bindJSON(c, &req) {
		return
	}
	lc, err := h.svc.LC.Create(c.Request.Context(), principal(c), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, lc)
}

// ListLCs 当前用户可见的信用证，?status=SUBMITTED,APPROVED 按状态过滤（仅内部人员）
// GET /api/v1/lc
func (h *Handler) ListLCs(c *gin.Context) {
	var (
		list []*model.LetterOfCredit
		err  error
	)
	if statuses := csvQuery(c, "status"); len(statuses) > 0 {
		filter := make([]model.LCStatus, 0, len(statuses))
		for _, s := range statuses {
			filter = append(filter, model.LCStatus(s))
		}
		list, err = h.svc.LC.ListByStatus(c.Request.Context(), principal(c), filter...)
	} else {
		list, err = h.svc.LC.List(c.Request.Context(), principal(c))
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, list)
}

// GetLC GET /api/v1/lc/:id
func (h *Handler) GetLC(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	lc, err := h.svc.LC.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, lc)
}

// GetLCByReference GET /api/v1/lc/reference/:reference
func (h *Handler) GetLCByReference(c *gin.Context) {
	lc, err := h.svc.LC.GetByReference(c.Request.Context(), principal(c), c.Param("reference"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, lc)
}

// AmendLC 修改条款，状态变为 AMENDED
// PUT /api/v1/lc/:id
func (h *Handler) AmendLC(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	var req service.LCRequest
	if !h.bindJSON(c, &req) {
		return
	}
	lc, err := h.svc.LC.Amend(c.Request.Context(), principal(c), id, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, lc)
}
