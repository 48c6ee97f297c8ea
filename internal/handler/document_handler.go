package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"tfms/internal/apperr"
	"tfms/internal/service"
	"tfms/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxUploadSize 单个单据文件上限
const MaxUploadSize = 10 << 20

// UploadDocument multipart 上传，字段 file / document_type / trade_reference_number / description
// POST /api/v1/documents
func (h *Handler) UploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		h.fail(c, apperr.Validation("Invalid request data").Add("file", "File is required"))
		return
	}
	if fh.Size > MaxUploadSize {
		h.fail(c, apperr.Validation("Invalid request data").Add("file", "File exceeds the 10MB limit"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, fmt.Errorf("打开上传文件失败: %w", err))
		return
	}
	defer f.Close()

	req := &service.UploadRequest{
		DocumentType:         c.PostForm("document_type"),
		TradeReferenceNumber: c.PostForm("trade_reference_number"),
		Description:          c.PostForm("description"),
		FileName:             fh.Filename,
		ContentType:          fh.Header.Get("Content-Type"),
	}
	doc, err := h.svc.Documents.Upload(c.Request.Context(), principal(c), req, f)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, doc)
}

// ListDocuments GET /api/v1/documents
func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.svc.Documents.List(c.Request.Context(), principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, docs)
}

// ListPendingDocuments 待审核单据
// GET /api/v1/documents/pending
func (h *Handler) ListPendingDocuments(c *gin.Context) {
	docs, err := h.svc.Documents.ListPendingReview(c.Request.Context(), principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, docs)
}

// ListTradeDocuments 某笔交易的全部单据
// GET /api/v1/documents/trade/:reference
func (h *Handler) ListTradeDocuments(c *gin.Context) {
	docs, err := h.svc.Documents.ListByTradeReference(c.Request.Context(), principal(c), c.Param("reference"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, docs)
}

func (h *Handler) GetDocument(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	doc, err := h.svc.Documents.Get(c.Request.Context(), principal(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, doc)
}

// DownloadDocument GET /api/v1/documents/:id/download
func (h *Handler) DownloadDocument(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	doc, rc, err := h.svc.Documents.Open(c.Request.Context(), principal(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer rc.Close()

	contentType := doc.FileType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(doc.FileName))
	c.Header("Content-Type", contentType)
	if doc.FileSize > 0 {
		c.Header("Content-Length", strconv.FormatInt(doc.FileSize, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.log.Warn("【单据】下载中断", "id", id, "error", err)
	}
}

// UpdateDocument PUT /api/v1/documents/:id
func (h *Handler) UpdateDocument(c *gin.Context) {
	id, ok := h.idParam(c)
	if !ok {
		return
	}
	var req service.UpdateDocumentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	doc, err := h.svc.Documents.UpdateDetails(c.Request.Context(), principal(c), id, &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, doc)
}
