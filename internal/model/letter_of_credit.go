package model

import (
	"time"

	"tfms/internal/apperr"

	"github.com/shopspring/decimal"
)

// LCStatus 信用证状态
type LCStatus string

const (
	LCStatusDraft             LCStatus = "DRAFT"
	LCStatusOpen              LCStatus = "OPEN"
	LCStatusSubmitted         LCStatus = "SUBMITTED"
	LCStatusUnderVerification LCStatus = "UNDER_VERIFICATION"
	LCStatusSentToRisk        LCStatus = "SENT_TO_RISK"
	LCStatusAmended           LCStatus = "AMENDED"
	LCStatusApproved          LCStatus = "APPROVED"
	LCStatusRejected          LCStatus = "REJECTED"
	LCStatusClosed            LCStatus = "CLOSED"
)

const EntityLC = "LetterOfCredit"

// ============================================================================
// 信用证状态机
// ============================================================================
//
//	DRAFT -> SUBMITTED -> UNDER_VERIFICATION -> (SENT_TO_RISK <-> UNDER_VERIFICATION)
//	      -> APPROVED -> OPEN -> CLOSED
//
// REJECTED / AMENDED 是旁路分支，CLOSED 为终态。
// lcGuards 中 nil 表示"除 CLOSED 外任意状态"。
// ============================================================================

const (
	LCActionSubmit            = "submit"
	LCActionStartVerification = "start verification"
	LCActionSendToRisk        = "send to risk"
	LCActionApprove           = "approve"
	LCActionReject            = "reject"
	LCActionAmend             = "amend"
	LCActionClose             = "close"
	LCActionOpen              = "open"
	LCActionReturnFromRisk    = "return from risk"
)

var lcGuards = map[string][]LCStatus{
	LCActionSubmit:            nil,
	LCActionStartVerification: {LCStatusSubmitted},
	LCActionSendToRisk:        {LCStatusSubmitted, LCStatusUnderVerification},
	LCActionApprove:           {LCStatusSubmitted, LCStatusUnderVerification},
	LCActionReject:            nil,
	LCActionAmend:             nil,
	LCActionClose:             nil,
	LCActionOpen:              nil,
}

// CanLC 判断在当前状态下能否执行 action
func CanLC(current LCStatus, action string) bool {
	if current == LCStatusClosed {
		return false
	}
	allowed, ok := lcGuards[action]
	if !ok {
		return false
	}
	if allowed == nil {
		return true
	}
	for _, s := range allowed {
		if s == current {
			return true
		}
	}
	return false
}

// lcStage 进度表，用于时间线展示，不依赖常量声明顺序
var lcStage = map[LCStatus]int{
	LCStatusDraft:             0,
	LCStatusSubmitted:         1,
	LCStatusAmended:           1,
	LCStatusUnderVerification: 2,
	LCStatusSentToRisk:        2,
	LCStatusRejected:          2,
	LCStatusApproved:          3,
	LCStatusOpen:              4,
	LCStatusClosed:            5,
}

// LCStage 返回状态所处的进度阶段，未知状态为 -1
func LCStage(s LCStatus) int {
	if v, ok := lcStage[s]; ok {
		return v
	}
	return -1
}

// LetterOfCredit 信用证
type LetterOfCredit struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferenceNumber string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"reference_number"`
	ApplicantName   string          `gorm:"type:varchar(100);not null" json:"applicant_name"`
	BeneficiaryName string          `gorm:"type:varchar(100);index;not null" json:"beneficiary_name"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency        string          `gorm:"type:varchar(10);not null" json:"currency"`
	IssueDate       *time.Time      `gorm:"type:date" json:"issue_date,omitempty"`
	ExpiryDate      time.Time       `gorm:"type:date;not null" json:"expiry_date"`
	Status          LCStatus        `gorm:"type:varchar(30);index;not null" json:"status"`
	Description     string          `gorm:"type:text" json:"description"`
	IssuingBank     string          `gorm:"type:varchar(200)" json:"issuing_bank"`
	AdvisingBank    string          `gorm:"type:varchar(200)" json:"advising_bank"`
	CreatedBy       string          `gorm:"type:varchar(50);index" json:"created_by"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (LetterOfCredit) TableName() string {
	return "letter_of_credit"
}

// LCTerms 创建和修改信用证时可编辑的商业条款
type LCTerms struct {
	ApplicantName   string
	BeneficiaryName string
	Amount          decimal.Decimal
	Currency        string
	ExpiryDate      *time.Time
	Description     string
	IssuingBank     string
	AdvisingBank    string
}

// NewLetterOfCredit 创建草稿信用证，到期日必须晚于今天
func NewLetterOfCredit(reference, createdBy string, terms LCTerms, now time.Time) (*LetterOfCredit, error) {
	ve := apperr.Validation("Invalid letter of credit")
	if terms.ExpiryDate == nil {
		ve.Add("expiry_date", "Expiry date is required")
	} else if !Date(*terms.ExpiryDate).After(Date(now)) {
		ve.Add("expiry_date", "Expiry date must be a future date")
	}
	if !terms.Amount.IsPositive() {
		ve.Add("amount", "Amount must be greater than 0")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	lc := &LetterOfCredit{
		ReferenceNumber: reference,
		ApplicantName:   terms.ApplicantName,
		BeneficiaryName: terms.BeneficiaryName,
		Amount:          terms.Amount.Round(2),
		Currency:        terms.Currency,
		ExpiryDate:      Date(*terms.ExpiryDate),
		Description:     terms.Description,
		IssuingBank:     terms.IssuingBank,
		AdvisingBank:    terms.AdvisingBank,
		Status:          LCStatusDraft,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return lc, nil
}

func (lc *LetterOfCredit) Kind() InstrumentKind { return KindLC }
func (lc *LetterOfCredit) Reference() string    { return lc.ReferenceNumber }
func (lc *LetterOfCredit) Creator() string      { return lc.CreatedBy }
func (lc *LetterOfCredit) Beneficiary() string  { return lc.BeneficiaryName }
func (lc *LetterOfCredit) StatusName() string   { return string(lc.Status) }

func (lc *LetterOfCredit) transition(action string, to LCStatus, now time.Time) error {
	if !CanLC(lc.Status, action) {
		return apperr.InvalidState(EntityLC, string(lc.Status), action)
	}
	lc.Status = to
	lc.UpdatedAt = now
	return nil
}

func (lc *LetterOfCredit) Submit(now time.Time) error {
	return lc.transition(LCActionSubmit, LCStatusSubmitted, now)
}

func (lc *LetterOfCredit) StartVerification(now time.Time) error {
	return lc.transition(LCActionStartVerification, LCStatusUnderVerification, now)
}

func (lc *LetterOfCredit) SendToRisk(now time.Time) error {
	return lc.transition(LCActionSendToRisk, LCStatusSentToRisk, now)
}

// Approve 审批通过并把开证日设为今天
func (lc *LetterOfCredit) Approve(now time.Time) error {
	if err := lc.transition(LCActionApprove, LCStatusApproved, now); err != nil {
		return err
	}
	today := Date(now)
	lc.IssueDate = &today
	return nil
}

// Reject 拒绝，原因追加到 description
func (lc *LetterOfCredit) Reject(reason string, now time.Time) error {
	if err := lc.transition(LCActionReject, LCStatusRejected, now); err != nil {
		return err
	}
	if reason == "" {
		reason = "Rejected by officer"
	}
	lc.Description = appendReason(lc.Description, "Rejection Reason", reason)
	return nil
}

// Amend 修改条款。先校验状态，再校验到期日，任何一步失败都不修改实体。
// 未提供新到期日时保留原到期日。
func (lc *LetterOfCredit) Amend(terms LCTerms, now time.Time) error {
	if !CanLC(lc.Status, LCActionAmend) {
		return apperr.InvalidState(EntityLC, string(lc.Status), LCActionAmend)
	}
	if terms.ExpiryDate != nil && !Date(*terms.ExpiryDate).After(Date(now)) {
		return apperr.Validation("Invalid amendment").Add("expiry_date", "Expiry date must be a future date")
	}

	lc.ApplicantName = terms.ApplicantName
	lc.BeneficiaryName = terms.BeneficiaryName
	lc.Amount = terms.Amount.Round(2)
	lc.Currency = terms.Currency
	if terms.ExpiryDate != nil {
		lc.ExpiryDate = Date(*terms.ExpiryDate)
	}
	lc.Description = terms.Description
	lc.AdvisingBank = terms.AdvisingBank
	lc.Status = LCStatusAmended
	lc.UpdatedAt = now
	return nil
}

func (lc *LetterOfCredit) Close(now time.Time) error {
	return lc.transition(LCActionClose, LCStatusClosed, now)
}

func (lc *LetterOfCredit) Open(now time.Time) error {
	return lc.transition(LCActionOpen, LCStatusOpen, now)
}

// ReturnFromRisk 风险评估完成后退回柜员审核。不在 SENT_TO_RISK 时不做任何事，返回 false。
func (lc *LetterOfCredit) ReturnFromRisk(now time.Time) bool {
	if lc.Status != LCStatusSentToRisk {
		return false
	}
	lc.Status = LCStatusUnderVerification
	lc.UpdatedAt = now
	return true
}

// Expired 到期日早于今天
func (lc *LetterOfCredit) Expired(now time.Time) bool {
	return Date(lc.ExpiryDate).Before(Date(now))
}
