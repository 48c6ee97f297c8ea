package handler

import (
	"tfms/internal/model"
	"tfms/internal/service"
	"tfms/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequestBG 申请保函
// POST /api/v1/bg
func (h *Handler) RequestBG(c *gin.Context) {
	var req service.BGRequest
	if !h.bindJSON(c, &req) {
		return
	}
	bg, err := h.svc.BG.Request(c.Request.Context(), principal(c), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, bg)
}

// ListBGs GET /api/v1/bg?status=ACTIVE
func (h *Handler) ListBGs(c *gin.Context) {
	var (
		list []*model.BankGuarantee
		err  error
	)
	if statuses := csvQuery(c, "status"); len(statuses) > 0 {
		filter := make([]model.GuaranteeStatus, 0, len(statuses))
		for _, s := range statuses {
			filter = append(filter, model.GuaranteeStatus(s))
		}
		list, err = h.svc.BG.ListByStatus(c.Request.Context(), principal(c), filter...)
	} else {
		list, err = h.svc.BG.List(c.Request.Context(), principal(c))
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, list)
}

func (h *Handler) GetBG(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	bg, err := h.svc.BG.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, bg)
}

func (h *Handler) GetBGByReference(c *gin.Context) {
	bg, err := h.svc.BG.GetByReference(c.Request.Context(), principal(c), c.Param("reference"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, bg)
}

// UpdateBG 覆盖条款，不改变状态
// PUT /api/v1/bg/:id
func (h *Handler) UpdateBG(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	var req service.BGRequest
	if !h.bindJSON(c, &req) {
		return
	}
	bg, err := h.svc.BG.Update(c.Request.Context(), principal(c), id, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, bg)
}
