package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"tfms/internal/access"
	"tfms/internal/apperr"
	"tfms/internal/model"

	"github.com/shopspring/decimal"
)

// TimelineStep 进度条中的一步
type TimelineStep struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Current     bool       `json:"current"`
	Date        *time.Time `json:"date,omitempty"`
}

type stepDef struct {
	title, description string
	stage              int
}

var (
	lcSteps = []stepDef{
		{"Created", "Draft LC created", 0},
		{"Submitted", "Submitted for verification", 1},
		{"Under Verification", "Being reviewed by bank officer", 2},
		{"Approved", "LC approved and issued", 3},
		{"Active", "LC is active", 4},
		{"Closed", "LC closed", 5},
	}
	bgSteps = []stepDef{
		{"Created", "Guarantee request created", 0},
		{"Submitted", "Submitted for review", 1},
		{"Under Review", "Being reviewed by bank", 2},
		{"Issued", "Guarantee issued", 3},
		{"Active", "Guarantee is active", 4},
		{"Completed", "Guarantee period ended", 5},
	}
	docSteps = []stepDef{
		{"Uploaded", "Document uploaded", 0},
		{"Pending Review", "Awaiting review", 1},
		{"Reviewed", "Document reviewed", 2},
		{"Completed", "Process complete", 3},
	}
)

// Tracking 按参考号查询的统一视图。匿名查询只返回状态和进度
type Tracking struct {
	ReferenceNumber string                `json:"reference_number"`
	TransactionType string                `json:"transaction_type"`
	Status          string                `json:"status"`
	Applicant       string                `json:"applicant,omitempty"`
	Beneficiary     string                `json:"beneficiary,omitempty"`
	Currency        string                `json:"currency,omitempty"`
	Amount          *decimal.Decimal      `json:"amount,omitempty"`
	CreatedDate     *time.Time            `json:"created_date,omitempty"`
	ExpiryDate      *time.Time            `json:"expiry_date,omitempty"`
	Timeline        []TimelineStep        `json:"timeline"`
	History         []*model.StatusChange `json:"history,omitempty"`
}

type TrackingService struct {
	rt       Runtime
	lcs      LCRepository
	bgs      BGRepository
	docs     DocumentRepository
	audits   AuditRepository
	resolver *access.Resolver
}

func NewTrackingService(rt Runtime, lcs LCRepository, bgs BGRepository, docs DocumentRepository,
	audits AuditRepository, resolver *access.Resolver) *TrackingService {
	return &TrackingService{rt: rt.withDefaults(), lcs: lcs, bgs: bgs, docs: docs, audits: audits, resolver: resolver}
}

// Track 按前缀识别 LC / BG / DOC。p 为 nil 或无权查看时只返回状态和进度
func (s *TrackingService) Track(ctx context.Context, p *model.Principal, reference string) (*Tracking, error) {
	ref := strings.TrimSpace(reference)
	var (
		t      *Tracking
		detail bool
	)
	switch model.KindOf(ref) {
	case model.KindLC:
		lc, err := s.lcs.GetByReference(ctx, ref)
		if err != nil {
			return nil, err
		}
		created, expiry, amount := lc.CreatedAt, lc.ExpiryDate, lc.Amount
		t = &Tracking{
			ReferenceNumber: lc.ReferenceNumber,
			TransactionType: "Letter of Credit",
			Status:          string(lc.Status),
			Applicant:       lc.ApplicantName,
			Beneficiary:     lc.BeneficiaryName,
			Currency:        lc.Currency,
			Amount:          &amount,
			CreatedDate:     &created,
			ExpiryDate:      &expiry,
			Timeline:        timeline(lcSteps, model.LCStage(lc.Status)),
		}
		stampDate(t.Timeline, 0, &created)
		stampDate(t.Timeline, 3, lc.IssueDate)
		detail = s.resolver.CanView(p, lc)
	case model.KindBG:
		bg, err := s.bgs.GetByReference(ctx, ref)
		if err != nil {
			return nil, err
		}
		created, validity, amount := bg.CreatedAt, bg.ValidityPeriod, bg.GuaranteeAmount
		t = &Tracking{
			ReferenceNumber: bg.ReferenceNumber,
			TransactionType: "Bank Guarantee",
			Status:          string(bg.Status),
			Applicant:       bg.ApplicantName,
			Beneficiary:     bg.BeneficiaryName,
			Currency:        bg.Currency,
			Amount:          &amount,
			CreatedDate:     &created,
			ExpiryDate:      &validity,
			Timeline:        timeline(bgSteps, model.BGStage(bg.Status)),
		}
		stampDate(t.Timeline, 0, &created)
		stampDate(t.Timeline, 3, bg.IssueDate)
		detail = s.resolver.CanView(p, bg)
	case model.KindDocument:
		doc, err := s.docs.GetByReference(ctx, ref)
		if err != nil {
			return nil, err
		}
		uploaded := doc.UploadDate
		t = &Tracking{
			ReferenceNumber: doc.ReferenceNumber,
			TransactionType: "Trade Document",
			Status:          string(doc.Status),
			Applicant:       doc.UploadedBy,
			CreatedDate:     &uploaded,
			Timeline:        timeline(docSteps, model.DocumentStage(doc.Status)),
		}
		stampDate(t.Timeline, 0, &uploaded)
		var inst model.Instrument
		if doc.Linked() {
			inst, err = instruments{lcs: s.lcs, bgs: s.bgs}.findOptional(ctx, doc.TradeReference())
			if err != nil {
				return nil, err
			}
		}
		detail = s.resolver.CanViewDocument(p, doc, inst)
	default:
		return nil, apperr.NotFound("Transaction", "referenceNumber", ref)
	}

	if !detail {
		return t.public(), nil
	}
	if s.audits != nil {
		history, err := s.audits.ListByReference(ctx, t.ReferenceNumber)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(history, func(i, j int) bool { return history[i].ChangedAt.Before(history[j].ChangedAt) })
		t.History = history
	}
	return t, nil
}

// public 去掉当事人、金额和历史
func (t *Tracking) public() *Tracking {
	return &Tracking{
		ReferenceNumber: t.ReferenceNumber,
		TransactionType: t.TransactionType,
		Status:          t.Status,
		Timeline:        t.Timeline,
	}
}

// timeline 阶段不低于步骤阶段即为已完成，最后一个已完成步骤为当前步骤
func timeline(defs []stepDef, stage int) []TimelineStep {
	steps := make([]TimelineStep, len(defs))
	current := -1
	for i, d := range defs {
		steps[i] = TimelineStep{Title: d.title, Description: d.description}
		if stage >= d.stage {
			steps[i].Completed = true
			current = i
		}
	}
	if current >= 0 {
		steps[current].Current = true
	}
	return steps
}

func stampDate(steps []TimelineStep, i int, date *time.Time) {
	if i < len(steps) && steps[i].Completed && date != nil {
		d := model.Date(*date)
		steps[i].Date = &d
	}
}
