package model

import "time"

// ComplianceStatus 合规状态
type ComplianceStatus string

const (
	ComplianceStatusPending      ComplianceStatus = "PENDING"
	ComplianceStatusCompliant    ComplianceStatus = "COMPLIANT"
	ComplianceStatusNonCompliant ComplianceStatus = "NON_COMPLIANT"
	ComplianceStatusUnderReview  ComplianceStatus = "UNDER_REVIEW"
	ComplianceStatusEscalated    ComplianceStatus = "ESCALATED"
)

var ComplianceStatuses = []ComplianceStatus{
	ComplianceStatusPending,
	ComplianceStatusCompliant,
	ComplianceStatusNonCompliant,
	ComplianceStatusUnderReview,
	ComplianceStatusEscalated,
}

const (
	EntityCompliance = "Compliance"

	// AutomatedReviewer 自动检查的审核人
	AutomatedReviewer = "Automated Check"
)

// Compliance 合规检查结果，每个交易参考号只有一条，重复检查时原地覆盖
type Compliance struct {
	ID                   uint64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionReference string           `gorm:"type:varchar(50);uniqueIndex;not null" json:"transaction_reference"`
	TransactionType      string           `gorm:"type:varchar(30)" json:"transaction_type"`
	ComplianceStatus     ComplianceStatus `gorm:"type:varchar(30);index;not null" json:"compliance_status"`
	DocumentsValidated   bool             `json:"documents_validated"`
	RiskCheckPassed      bool             `json:"risk_check_passed"`
	PartyCheckPassed     bool             `json:"party_check_passed"`
	CountryCheckPassed   bool             `json:"country_check_passed"`
	Remarks              string           `gorm:"type:text" json:"remarks"`
	ReportDate           *time.Time       `gorm:"type:date" json:"report_date,omitempty"`
	ReviewedBy           string           `gorm:"type:varchar(50)" json:"reviewed_by"`
	ReviewDate           *time.Time       `gorm:"type:date" json:"review_date,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (Compliance) TableName() string {
	return "compliance"
}

// StampAutomatedReview 只有没有人工审核过时才写入自动审核人
func (c *Compliance) StampAutomatedReview(now time.Time) {
	if c.ReviewedBy == "" {
		c.ReviewedBy = AutomatedReviewer
	}
	if c.ReviewDate == nil {
		today := Date(now)
		c.ReviewDate = &today
	}
}

// SubmitReview 人工审核，覆盖审核人和审核日期
func (c *Compliance) SubmitReview(reviewer string, now time.Time) {
	today := Date(now)
	c.ReviewedBy = reviewer
	c.ReviewDate = &today
	c.UpdatedAt = now
}
