package model

import (
	"strings"
	"time"

	"tfms/internal/apperr"

	"github.com/shopspring/decimal"
)

// GuaranteeStatus 保函状态
type GuaranteeStatus string

const (
	BGStatusDraft       GuaranteeStatus = "DRAFT"
	BGStatusPending     GuaranteeStatus = "PENDING"
	BGStatusSubmitted   GuaranteeStatus = "SUBMITTED"
	BGStatusUnderReview GuaranteeStatus = "UNDER_REVIEW"
	BGStatusSentToRisk  GuaranteeStatus = "SENT_TO_RISK"
	BGStatusIssued      GuaranteeStatus = "ISSUED"
	BGStatusActive      GuaranteeStatus = "ACTIVE"
	BGStatusExpired     GuaranteeStatus = "EXPIRED"
	BGStatusCancelled   GuaranteeStatus = "CANCELLED"
	BGStatusClaimed     GuaranteeStatus = "CLAIMED"
)

const EntityBG = "BankGuarantee"

// 保函的大部分流转是无条件的，CANCELLED / CLAIMED / EXPIRED 之后仍然允许继续流转，
// 只有送风控和退回柜员有前置状态要求。
const (
	BGActionSubmit          = "submit"
	BGActionSendToRisk      = "send to risk"
	BGActionReturnToOfficer = "return to officer"
	BGActionIssue           = "issue"
	BGActionActivate        = "activate"
	BGActionCancel          = "cancel"
	BGActionClaim           = "claim"
	BGActionExpire          = "expire"
	BGActionUpdate          = "update"
)

var bgGuards = map[string][]GuaranteeStatus{
	BGActionSendToRisk:      {BGStatusSubmitted, BGStatusUnderReview, BGStatusPending},
	BGActionReturnToOfficer: {BGStatusSentToRisk},
}

// CanBG 判断在当前状态下能否执行 action，没有守卫的 action 总是允许
func CanBG(current GuaranteeStatus, action string) bool {
	allowed, ok := bgGuards[action]
	if !ok {
		return true
	}
	for _, s := range allowed {
		if s == current {
			return true
		}
	}
	return false
}

var bgStage = map[GuaranteeStatus]int{
	BGStatusDraft:       0,
	BGStatusPending:     1,
	BGStatusSubmitted:   1,
	BGStatusUnderReview: 2,
	BGStatusSentToRisk:  2,
	BGStatusCancelled:   2,
	BGStatusIssued:      3,
	BGStatusActive:      4,
	BGStatusExpired:     5,
	BGStatusClaimed:     5,
}

// BGStage 返回状态所处的进度阶段，未知状态为 -1
func BGStage(s GuaranteeStatus) int {
	if v, ok := bgStage[s]; ok {
		return v
	}
	return -1
}

// BankGuarantee 银行保函
type BankGuarantee struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferenceNumber string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"reference_number"`
	ApplicantName   string          `gorm:"type:varchar(100);not null" json:"applicant_name"`
	BeneficiaryName string          `gorm:"type:varchar(100);index;not null" json:"beneficiary_name"`
	GuaranteeAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"guarantee_amount"`
	Currency        string          `gorm:"type:varchar(10);not null" json:"currency"`
	GuaranteeType   string          `gorm:"type:varchar(50);not null" json:"guarantee_type"`
	IssueDate       *time.Time      `gorm:"type:date" json:"issue_date,omitempty"`
	ValidityPeriod  time.Time       `gorm:"type:date;not null" json:"validity_period"`
	Status          GuaranteeStatus `gorm:"type:varchar(30);index;not null" json:"status"`
	Purpose         string          `gorm:"type:text" json:"purpose"`
	IssuingBank     string          `gorm:"type:varchar(200)" json:"issuing_bank"`
	CreatedBy       string          `gorm:"type:varchar(50);index" json:"created_by"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (BankGuarantee) TableName() string {
	return "bank_guarantee"
}

// BGTerms 保函可编辑条款
type BGTerms struct {
	ApplicantName   string
	BeneficiaryName string
	GuaranteeAmount decimal.Decimal
	Currency        string
	GuaranteeType   string
	ValidityPeriod  time.Time
	Purpose         string
	IssuingBank     string
}

func (t BGTerms) validate(message string) error {
	ve := apperr.Validation(message)
	if !t.GuaranteeAmount.IsPositive() {
		ve.Add("guarantee_amount", "Guarantee amount must be greater than 0")
	}
	if t.ValidityPeriod.IsZero() {
		ve.Add("validity_period", "Validity period is required")
	}
	return ve.OrNil()
}

// RequestGuarantee 申请保函，状态为 DRAFT
func RequestGuarantee(reference, createdBy string, terms BGTerms, now time.Time) (*BankGuarantee, error) {
	if err := terms.validate("Invalid bank guarantee"); err != nil {
		return nil, err
	}
	return &BankGuarantee{
		ReferenceNumber: reference,
		ApplicantName:   terms.ApplicantName,
		BeneficiaryName: terms.BeneficiaryName,
		GuaranteeAmount: terms.GuaranteeAmount.Round(2),
		Currency:        terms.Currency,
		GuaranteeType:   terms.GuaranteeType,
		ValidityPeriod:  Date(terms.ValidityPeriod),
		Purpose:         terms.Purpose,
		IssuingBank:     terms.IssuingBank,
		Status:          BGStatusDraft,
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (bg *BankGuarantee) Kind() InstrumentKind { return KindBG }
func (bg *BankGuarantee) Reference() string    { return bg.ReferenceNumber }
func (bg *BankGuarantee) Creator() string      { return bg.CreatedBy }
func (bg *BankGuarantee) Beneficiary() string  { return bg.BeneficiaryName }
func (bg *BankGuarantee) StatusName() string   { return string(bg.Status) }

func (bg *BankGuarantee) transition(action string, to GuaranteeStatus, now time.Time) error {
	if !CanBG(bg.Status, action) {
		return apperr.InvalidState(EntityBG, string(bg.Status), action)
	}
	bg.Status = to
	bg.UpdatedAt = now
	return nil
}

func (bg *BankGuarantee) SubmitForReview(now time.Time) error {
	return bg.transition(BGActionSubmit, BGStatusSubmitted, now)
}

func (bg *BankGuarantee) SendToRiskTeam(now time.Time) error {
	return bg.transition(BGActionSendToRisk, BGStatusSentToRisk, now)
}

func (bg *BankGuarantee) ReturnToOfficer(now time.Time) error {
	return bg.transition(BGActionReturnToOfficer, BGStatusUnderReview, now)
}

// Issue 开立保函，开立日为今天
func (bg *BankGuarantee) Issue(now time.Time) error {
	if err := bg.transition(BGActionIssue, BGStatusIssued, now); err != nil {
		return err
	}
	today := Date(now)
	bg.IssueDate = &today
	return nil
}

func (bg *BankGuarantee) Activate(now time.Time) error {
	return bg.transition(BGActionActivate, BGStatusActive, now)
}

// Cancel 撤销，原因追加到 purpose
func (bg *BankGuarantee) Cancel(reason string, now time.Time) error {
	if err := bg.transition(BGActionCancel, BGStatusCancelled, now); err != nil {
		return err
	}
	bg.Purpose = appendReason(bg.Purpose, "Cancellation Reason", reason)
	return nil
}

func (bg *BankGuarantee) Claim(now time.Time) error {
	return bg.transition(BGActionClaim, BGStatusClaimed, now)
}

// Expire 标记为已过期，不校验当前状态；有效期未结束时返回 ValidationError
func (bg *BankGuarantee) Expire(now time.Time) error {
	if !bg.Elapsed(now) {
		return apperr.Validation("Guarantee is still valid").
			Add("validity_period", "Validity period has not elapsed yet")
	}
	return bg.transition(BGActionExpire, BGStatusExpired, now)
}

// Update 全量覆盖可编辑条款，不改变状态
func (bg *BankGuarantee) Update(terms BGTerms, now time.Time) error {
	if err := terms.validate("Invalid guarantee update"); err != nil {
		return err
	}
	bg.ApplicantName = terms.ApplicantName
	bg.BeneficiaryName = terms.BeneficiaryName
	bg.GuaranteeAmount = terms.GuaranteeAmount.Round(2)
	bg.Currency = terms.Currency
	bg.GuaranteeType = terms.GuaranteeType
	bg.ValidityPeriod = Date(terms.ValidityPeriod)
	bg.Purpose = terms.Purpose
	if strings.TrimSpace(terms.IssuingBank) != "" {
		bg.IssuingBank = terms.IssuingBank
	}
	bg.UpdatedAt = now
	return nil
}

// ReturnFromRisk 风险评估完成后退回审核。不在 SENT_TO_RISK 时返回 false。
func (bg *BankGuarantee) ReturnFromRisk(now time.Time) bool {
	if bg.Status != BGStatusSentToRisk {
		return false
	}
	bg.Status = BGStatusUnderReview
	bg.UpdatedAt = now
	return true
}

// Elapsed 有效期早于今天
func (bg *BankGuarantee) Elapsed(now time.Time) bool {
	return Date(bg.ValidityPeriod).Before(Date(now))
}
