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

type LCService struct {
	rt     Runtime
	repo   LCRepository
	refs   ReferenceGenerator
	policy *access.Policy
}

func NewLCService(rt Runtime, repo LCRepository, refs ReferenceGenerator, policy *access.Policy) *LCService {
	return &LCService{rt: rt.withDefaults(), repo: repo, refs: refs, policy: policy}
}

// LCRequest 创建和修改信用证的请求
type LCRequest struct {
	ApplicantName   string          `json:"applicant_name" validate:"required,max=100"`
	BeneficiaryName string          `json:"beneficiary_name" validate:"required,max=100"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency" validate:"required,len=3"`
	ExpiryDate      string          `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	Description     string          `json:"description" validate:"max=2000"`
	IssuingBank     string          `json:"issuing_bank" validate:"max=200"`
	AdvisingBank    string          `json:"advising_bank" validate:"max=200"`
}

func (r *LCRequest) terms() (model.LCTerms, error) {
	if err := validateRequest(r); err != nil {
		return model.LCTerms{}, err
	}
	if !r.Amount.IsPositive() {
		return model.LCTerms{}, apperr.Validation("Invalid request data").Add("amount", "Amount must be greater than 0")
	}
	expiry, err := parseDate("expiry_date", r.ExpiryDate)
	if err != nil {
		return model.LCTerms{}, err
	}
	return model.LCTerms{
		ApplicantName:   r.ApplicantName,
		BeneficiaryName: r.BeneficiaryName,
		Amount:          r.Amount,
		Currency:        r.Currency,
		ExpiryDate:      expiry,
		Description:     r.Description,
		IssuingBank:     r.IssuingBank,
		AdvisingBank:    r.AdvisingBank,
	}, nil
}

// Create 创建草稿信用证
func (s *LCService) Create(ctx context.Context, p *model.Principal, req *LCRequest) (*model.LetterOfCredit, error) {
	if err := s.policy.Authorize(p, access.ObjLC, access.ActCreate, nil); err != nil {
		return nil, err
	}
	terms, err := req.terms()
	if err != nil {
		return nil, err
	}
	now := s.rt.Now()
	lc, err := model.NewLetterOfCredit(s.refs.LC(), p.Name(), terms, now)
	if err != nil {
		return nil, err
	}
	change := model.NewStatusChange(model.EntityLC, lc.ReferenceNumber, "", string(lc.Status), "create", p.Name(), "", now)
	if err := s.repo.Create(ctx, lc, change); err != nil {
		return nil, fmt.Errorf("创建信用证失败: %w", err)
	}
	s.rt.Metrics.Transition(model.EntityLC, "create", "success")
	s.rt.Logger.Info("【信用证】创建成功", "reference", lc.ReferenceNumber, "created_by", lc.CreatedBy, "amount", lc.Amount.String())
	return lc, nil
}

func (s *LCService) Get(ctx context.Context, p *model.Principal, id uint64) (*model.LetterOfCredit, error) {
	lc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(p, access.ObjLC, access.ActView, lc); err != nil {
		return nil, err
	}
	return lc, nil
}

func (s *LCService) GetByReference(ctx context.Context, p *model.Principal, reference string) (*model.LetterOfCredit, error) {
	lc, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(p, access.ObjLC, access.ActView, lc); err != nil {
		return nil, err
	}
	return lc, nil
}

// List 员工看到全部；客户看到自己创建的和作为受益人的，按创建时间倒序
func (s *LCService) List(ctx context.Context, p *model.Principal) ([]*model.LetterOfCredit, error) {
	if !s.policy.Allowed(p, access.ObjLC, access.ActView) {
		return nil, apperr.Unauthorized(p.Name(), "list LetterOfCredit")
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
	out := make([]*model.LetterOfCredit, 0, len(created)+len(benef))
	for _, lc := range append(created, benef...) {
		if !seen[lc.ID] {
			seen[lc.ID] = true
			out = append(out, lc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListByStatus 柜员工作台，例如待审核列表
func (s *LCService) ListByStatus(ctx context.Context, p *model.Principal, statuses ...model.LCStatus) ([]*model.LetterOfCredit, error) {
	if !p.IsStaff() {
		return nil, apperr.Unauthorized(p.Name(), "list LetterOfCredit by status")
	}
	return s.repo.ListByStatus(ctx, statuses...)
}

func (s *LCService) Submit(ctx context.Context, p *model.Principal, id uint64) (*model.LetterOfCredit, error) {
	return s.transition(ctx, p, id, access.ActSubmit, model.LCActionSubmit, "", func(lc *model.LetterOfCredit, now time.Time) error {
		return lc.Submit(now)
	})
}

func (s *LCService) StartVerification(ctx context.Context, p *model.Principal, id uint64) (*model.LetterOfCredit, error) {
	return s.transition(ctx, p, id, access.ActVerify, model.LCActionStartVerification, "", func(lc *model.LetterOfCredit, now time.Time) error {
		return lc.StartVerification(now)
	})
}

func (s *LCService) SendToRisk(ctx context.Context, p *model.Principal, id uint64) (*model.LetterOfCredit, error) {
	return s.transition(ctx, p, id, access.ActSendToRisk, model.LCActionSendToRisk, "", func(lc *model.LetterOfCredit, now time.Time) error {
		return lc.SendToRisk(now)
	})
}

func (s *LCService) Approve(ctx context.Context, p *model.Principal, id uint64) (*model.LetterOfCredit, error) {
	return s.transition(ctx, p, id, access.ActApprove, model.LCActionApprove, "", func(lc *model.LetterOfCredit, now time.Time) error {
		return lc.Approve(now)
	})
}

func (s *LCService) Reject(ctx context.Context, p *model.Principal, id uint64, reason string) (*model.LetterOfCredit, error) {
	return s.transition(ctx, p, id, access.ActReject, model.LCActionReject, reason, func(lc *model.LetterOfCredit, now time.Time) error {
		return lc.Reject(reason, now)
	})
}

// Amend 修改条款，新到期日必须晚于今天。先授权和校验状态，再校验请求体
func (s *LCService) Amend(ctx context.Context, p *model.Principal, id uint64, req *LCRequest) (*model.LetterOfCredit, error) {
	return s.transition(ctx, p, id, access.ActAmend, model.LCActionAmend, "", func(lc *model.LetterOfCredit, now time.Time) error {
		if !model.CanLC(lc.Status, model.LCActionAmend) {
			return apperr.InvalidState(model.EntityLC, string(lc.Status), model.LCActionAmend)
		}
		terms, err := req.terms()
		if err != nil {
			return err
		}
		return lc.Amend(terms, now)
	})
}

func (s *LCService) Close(ctx context.Context, p *model.Principal, id uint64) (*model.LetterOfCredit, error) {
	return s.transition(ctx, p, id, access.ActClose, model.LCActionClose, "", func(lc *model.LetterOfCredit, now time.Time) error {
		return lc.Close(now)
	})
}

func (s *LCService) Open(ctx context.Context, p *model.Principal, id uint64) (*model.LetterOfCredit, error) {
	return s.transition(ctx, p, id, access.ActOpen, model.LCActionOpen, "", func(lc *model.LetterOfCredit, now time.Time) error {
		return lc.Open(now)
	})
}

// Delete 物理删除，只有作为创建人的柜员可以删除
func (s *LCService) Delete(ctx context.Context, p *model.Principal, id uint64) error {
	lc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(p, access.ObjLC, access.ActDelete, lc); err != nil {
		s.rt.logResult(err, "【信用证】删除被拒绝", "reference", lc.ReferenceNumber, "user", p.Name())
		return err
	}
	err = s.rt.locked(ctx, lc.ReferenceNumber, func() error {
		return s.repo.Delete(ctx, id)
	})
	s.rt.Metrics.Transition(model.EntityLC, "delete", outcome(err))
	s.rt.logResult(err, "【信用证】删除", "reference", lc.ReferenceNumber, "user", p.Name())
	return err
}

// transition 加载 -> 授权 -> 加锁重新加载 -> 状态机 -> CAS 保存
func (s *LCService) transition(ctx context.Context, p *model.Principal, id uint64, act, op, reason string,
	apply func(lc *model.LetterOfCredit, now time.Time) error) (*model.LetterOfCredit, error) {

	lc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(p, access.ObjLC, act, lc); err != nil {
		s.rt.Metrics.Transition(model.EntityLC, op, outcome(err))
		s.rt.logResult(err, "【信用证】操作被拒绝", "reference", lc.ReferenceNumber, "action", op, "user", p.Name())
		return nil, err
	}

	var from model.LCStatus
	err = s.rt.locked(ctx, lc.ReferenceNumber, func() error {
		fresh, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		from = fresh.Status
		now := s.rt.Now()
		if err := apply(fresh, now); err != nil {
			return err
		}
		change := model.NewStatusChange(model.EntityLC, fresh.ReferenceNumber, string(from), string(fresh.Status), op, p.Name(), reason, now)
		if err := s.repo.Update(ctx, fresh, from, change); err != nil {
			return err
		}
		lc = fresh
		return nil
	})
	s.rt.Metrics.Transition(model.EntityLC, op, outcome(err))
	s.rt.logResult(err, "【信用证】状态流转", "reference", lc.ReferenceNumber, "action", op, "from", from, "to", lc.Status, "user", p.Name())
	if err != nil {
		return nil, err
	}
	return lc, nil
}
