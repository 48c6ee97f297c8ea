package model

import (
	"strings"
	"time"
)

// DocumentStatus 单据状态
type DocumentStatus string

const (
	DocStatusActive        DocumentStatus = "ACTIVE"
	DocStatusPendingReview DocumentStatus = "PENDING_REVIEW"
	DocStatusApproved      DocumentStatus = "APPROVED"
	DocStatusRejected      DocumentStatus = "REJECTED"
	DocStatusArchived      DocumentStatus = "ARCHIVED"
)

const EntityDocument = "TradeDocument"

const (
	DocActionSubmit  = "submit for review"
	DocActionApprove = "approve"
	DocActionReject  = "reject"
	DocActionArchive = "archive"
)

var docStage = map[DocumentStatus]int{
	DocStatusActive:        0,
	DocStatusPendingReview: 1,
	DocStatusApproved:      2,
	DocStatusRejected:      2,
	DocStatusArchived:      3,
}

// DocumentStage 返回状态所处的进度阶段，未知状态为 -1
func DocumentStage(s DocumentStatus) int {
	if v, ok := docStage[s]; ok {
		return v
	}
	return -1
}

// TradeDocument 贸易单据。TradeReferenceNumber 关联信用证或保函，关联后不可修改
type TradeDocument struct {
	ID                   uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferenceNumber      string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"reference_number"`
	DocumentType         string         `gorm:"type:varchar(50);not null" json:"document_type"`
	TradeReferenceNumber *string        `gorm:"type:varchar(50);index" json:"trade_reference_number,omitempty"`
	FileName             string         `gorm:"type:varchar(255);not null" json:"file_name"`
	FilePath             string         `gorm:"type:varchar(500);not null" json:"-"`
	FileType             string         `gorm:"type:varchar(100)" json:"file_type"`
	FileSize             int64          `json:"file_size"`
	UploadedBy           string         `gorm:"type:varchar(50);index" json:"uploaded_by"`
	UploadDate           time.Time      `gorm:"type:date" json:"upload_date"`
	Status               DocumentStatus `gorm:"type:varchar(30);index;not null" json:"status"`
	Description          string         `gorm:"type:text" json:"description"`
	CreatedAt            time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (TradeDocument) TableName() string {
	return "trade_document"
}

// StoredFile 存储层写入成功后的文件元数据
type StoredFile struct {
	FileName string
	FilePath string
	FileType string
	FileSize int64
}

// NewTradeDocument 上传后建档，状态为 ACTIVE。tradeRef 为空表示独立上传
func NewTradeDocument(reference, documentType, tradeRef, description, uploadedBy string, file StoredFile, now time.Time) *TradeDocument {
	doc := &TradeDocument{
		ReferenceNumber: reference,
		DocumentType:    documentType,
		FileName:        file.FileName,
		FilePath:        file.FilePath,
		FileType:        file.FileType,
		FileSize:        file.FileSize,
		UploadedBy:      uploadedBy,
		UploadDate:      Date(now),
		Status:          DocStatusActive,
		Description:     description,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if ref := strings.TrimSpace(tradeRef); ref != "" {
		doc.TradeReferenceNumber = &ref
	}
	return doc
}

// TradeReference 未关联时返回空串
func (d *TradeDocument) TradeReference() string {
	if d.TradeReferenceNumber == nil {
		return ""
	}
	return *d.TradeReferenceNumber
}

// Linked 是否关联了交易
func (d *TradeDocument) Linked() bool {
	return d.TradeReference() != ""
}

// 单据流转没有前置状态要求

func (d *TradeDocument) SubmitForReview(now time.Time) {
	d.Status = DocStatusPendingReview
	d.UpdatedAt = now
}

func (d *TradeDocument) Approve(now time.Time) {
	d.Status = DocStatusApproved
	d.UpdatedAt = now
}

func (d *TradeDocument) Reject(reason string, now time.Time) {
	d.Status = DocStatusRejected
	d.Description = appendReason(d.Description, "Rejection", reason)
	d.UpdatedAt = now
}

func (d *TradeDocument) Archive(now time.Time) {
	d.Status = DocStatusArchived
	d.UpdatedAt = now
}

// UpdateDetails 修改单据类型和描述，关联关系不变
func (d *TradeDocument) UpdateDetails(documentType, description string, now time.Time) {
	d.DocumentType = documentType
	d.Description = description
	d.UpdatedAt = now
}
