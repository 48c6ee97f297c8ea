package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tfms/internal/access"
	"tfms/internal/apperr"
	"tfms/internal/model"

	"github.com/shopspring/decimal"
)

type BGService struct {
	rt     Runtime
	repo   BGRepository
	refs   ReferenceGenerator
	policy *access.Policy
}

func NewBGService(rt Runtime, repo BGRepository, refs ReferenceGenerator, policy *access.Policy) *BGService {
	return &BGService{rt: rt.withDefaults(), repo: repo, refs: refs, policy: policy}
}

// BGRequest 申请和修改保函的请求
type BGRequest struct {
	ApplicantName   string          `json:"applicant_name" validate:"required,max=100"`
	BeneficiaryName string          `json:"beneficiary_name" validate:"required,max=100"`
	GuaranteeAmount decimal.Decimal `json:"guarantee_amount"`
	Currency        string          `json:"currency" validate:"required,len=3"`
	GuaranteeType   string          `json:"guarantee_type" validate:"required,max=50"`
	ValidityPeriod  string          `json:"validity_period" validate:"required,datetime=2006-01-02"`
	Purpose         string          `json:"purpose" validate:"max=2000"`
	IssuingBank     string          `json:"issuing_bank" validate:"max=200"`
}

func (r *BGRequest) terms() (model.BGTerms, error) {
	if err := validateRequest(r); err != nil {
		return model.BGTerms{}, err
	}
	validity, err := parseDate("validity_period", r.ValidityPeriod)
	if err != nil {
		return model.BGTerms{}, err
	}
	terms := model.BGTerms{
		ApplicantName:   r.ApplicantName,
		BeneficiaryName: r.BeneficiaryName,
		GuaranteeAmount: r.GuaranteeAmount,
		Currency:        r.Currency,
		GuaranteeType:   r.GuaranteeType,
		Purpose:         r.Purpose,
		IssuingBank:     r.IssuingBank,
	}
	if validity != nil {
		terms.ValidityPeriod = *validity
	}
	return terms, nil
}

// Request 申请保函，状态为 DRAFT
func (s *BGService) Request(ctx context.Context, p *model.Principal, req *BGRequest) (*model.BankGuarantee, error) {
	if err := s.policy.Authorize(p, access.ObjBG, access.ActCreate, nil); err != nil {
		return nil, err
	}
	terms, err := req.terms()
	if err != nil {
		return nil, err
	}
	now := s.rt.Now()
	bg, err := model.RequestGuarantee(s.refs.BG(), p.Name(), terms, now)
	if err != nil {
		return nil, err
	}
	change := model.NewStatusChange(model.EntityBG, bg.ReferenceNumber, "", string(bg.Status), "request", p.Name(), "", now)
	if err := s.repo.Create(ctx, bg, change); err != nil {
		return nil, fmt.Errorf("创建保函失败: %w", err)
	}
	s.rt.Metrics.Transition(model.EntityBG, "request", "success")
	s.rt.Logger.Info("【保函】申请成功", "reference", bg.ReferenceNumber, "created_by", bg.CreatedBy, "amount", bg.GuaranteeAmount.String())
	return bg, nil
}

func (s *BGService) Get(ctx context.Context, p *model.Principal, id uint64) (*model.BankGuarantee, error) {
	bg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(p, access.ObjBG, access.ActView, bg); err != nil {
		return nil, err
	}
	return bg, nil
}

func (s *BGService) GetByReference(ctx context.Context, p *model.Principal, reference string) (*model.BankGuarantee, error) {
	bg, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(p, access.ObjBG, access.ActView, bg); err != nil {
		return nil, err
	}
	return bg, nil
}

// List 员工看到全部；客户看到自己创建的和作为受益人的
func (s *BGService) List(ctx context.Context, p *model.Principal) ([]*model.BankGuarantee, error) {
	if !s.policy.Allowed(p, access.ObjBG, access.ActView) {
		return nil, apperr.Unauthorized(p.Name(), "list BankGuarantee")
	}
	if p.IsStaff() {
		return s.repo.ListAll(ctx)
	}
	created, err := s.repo.ListByCreatedBy(ctx, p.Username)
	if err != nil {
		return nil, err
	}
	benef, err := s.repo.ListByBeneficiary(ctx, identityNames(p)...)
	if err != nil {
		return nil, err
	}
	seen := map[uint64]bool{}
	out := make([]*model.BankGuarantee, 0, len(created)+len(benef))
	for _, bg := range append(created, benef...) {
		if !seen[bg.ID] {
			seen[bg.ID] = true
			out = append(out, bg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *BGService) ListByStatus(ctx context.Context, p *model.Principal, statuses ...model.GuaranteeStatus) ([]*model.BankGuarantee, error) {
	if !p.IsStaff() {
		return nil, apperr.Unauthorized(p.Name(), "list BankGuarantee by status")
	}
	return s.repo.ListByStatus(ctx, statuses...)
}

func (s *BGService) SubmitForReview(ctx context.Context, p *model.Principal, id uint64) (*model.BankGuarantee, error) {
	return s.transition(ctx, p, id, access.ActSubmit, model.BGActionSubmit, "", func(bg *model.BankGuarantee, now time.Time) error {
		return bg.SubmitForReview(now)
	})
}

func (s *BGService) SendToRiskTeam(ctx context.Context, p *model.Principal, id uint64) (*model.BankGuarantee, error) {
	return s.transition(ctx, p, id, access.ActSendToRisk, model.BGActionSendToRisk, "", func(bg *model.BankGuarantee, now time.Time) error {
		return bg.SendToRiskTeam(now)
	})
}

func (s *BGService) ReturnToOfficer(ctx context.Context, p *model.Principal, id uint64) (*model.BankGuarantee, error) {
	return s.transition(ctx, p, id, access.ActReturnToOfficer, model.BGActionReturnToOfficer, "", func(bg *model.BankGuarantee, now time.Time) error {
		return bg.ReturnToOfficer(now)
	})
}

func (s *BGService) Issue(ctx context.Context, p *model.Principal, id uint64) (*model.BankGuarantee, error) {
	return s.transition(ctx, p, id, access.ActIssue, model.BGActionIssue, "", func(bg *model.BankGuarantee, now time.Time) error {
		return bg.Issue(now)
	})
}

func (s *BGService) Activate(ctx context.Context, p *model.Principal, id uint64) (*model.BankGuarantee, error) {
	return s.transition(ctx, p, id, access.ActActivate, model.BGActionActivate, "", func(bg *model.BankGuarantee, now time.Time) error {
		return bg.Activate(now)
	})
}

func (s *BGService) Cancel(ctx context.Context, p *model.Principal, id uint64, reason string) (*model.BankGuarantee, error) {
	return s.transition(ctx, p, id, access.ActCancel, model.BGActionCancel, reason, func(bg *model.BankGuarantee, now time.Time) error {
		return bg.Cancel(reason, now)
	})
}

func (s *BGService) Claim(ctx context.Context, p *model.Principal, id uint64) (*model.BankGuarantee, error) {
	return s.transition(ctx, p, id, access.ActClaim, model.BGActionClaim, "", func(bg *model.BankGuarantee, now time.Time) error {
		return bg.Claim(now)
	})
}

func (s *BGService) Expire(ctx context.Context, p *model.Principal, id uint64) (*model.BankGuarantee, error) {
	return s.transition(ctx, p, id, access.ActExpire, model.BGActionExpire, "", func(bg *model.BankGuarantee, now time.Time) error {
		return bg.Expire(now)
	})
}

// Update 修改条款，不改变状态，也不写审计记录
func (s *BGService) Update(ctx context.Context, p *model.Principal, id uint64, req *BGRequest) (*model.BankGuarantee, error) {
	return s.transition(ctx, p, id, access.ActUpdate, model.BGActionUpdate, "", func(bg *model.BankGuarantee, now time.Time) error {
		terms, err := req.terms()
		if err != nil {
			return err
		}
		return bg.Update(terms, now)
	})
}

func (s *BGService) Delete(ctx context.Context, p *model.Principal, id uint64) error {
	bg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(p, access.ObjBG, access.ActDelete, bg); err != nil {
		s.rt.logResult(err, "【保函】删除被拒绝", "reference", bg.ReferenceNumber, "user", p.Name())
		return err
	}
	err = s.rt.locked(ctx, bg.ReferenceNumber, func() error {
		return s.repo.Delete(ctx, id)
	})
	s.rt.Metrics.Transition(model.EntityBG, "delete", outcome(err))
	s.rt.logResult(err, "【保函】删除", "reference", bg.ReferenceNumber, "user", p.Name())
	return err
}

func (s *BGService) transition(ctx context.Context, p *model.Principal, id uint64, act, op, reason string,
	apply func(bg *model.BankGuarantee, now time.Time) error) (*model.BankGuarantee, error) {

	bg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(p, access.ObjBG, act, bg); err != nil {
		s.rt.Metrics.Transition(model.EntityBG, op, outcome(err))
		s.rt.logResult(err, "【保函】操作被拒绝", "reference", bg.ReferenceNumber, "action", op, "user", p.Name())
		return nil, err
	}

	var from model.GuaranteeStatus
	err = s.rt.locked(ctx, bg.ReferenceNumber, func() error {
		fresh, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		from = fresh.Status
		now := s.rt.Now()
		if err := apply(fresh, now); err != nil {
			return err
		}
		var change *model.StatusChange
		if fresh.Status != from || act != access.ActUpdate {
			change = model.NewStatusChange(model.EntityBG, fresh.ReferenceNumber, string(from), string(fresh.Status), op, p.Name(), reason, now)
		}
		if err := s.repo.Update(ctx, fresh, from, change); err != nil {
			return err
		}
		bg = fresh
		return nil
	})
	s.rt.Metrics.Transition(model.EntityBG, op, outcome(err))
	s.rt.logResult(err, "【保函】状态流转", "reference", bg.ReferenceNumber, "action", op, "from", from, "to", bg.Status, "user", p.Name())
	if err != nil {
		return nil, err
	}
	return bg, nil
}
