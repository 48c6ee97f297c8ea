package service

import (
	"context"
	"fmt"
	"strings"

	"tfms/internal/access"
	"tfms/internal/apperr"
	"tfms/internal/model"

	"github.com/shopspring/decimal"
)

type RiskService struct {
	rt     Runtime
	repo   RiskRepository
	lcs    LCRepository
	bgs    BGRepository
	policy *access.Policy
	scorer RiskScorer
}

func NewRiskService(rt Runtime, repo RiskRepository, lcs LCRepository, bgs BGRepository, policy *access.Policy) *RiskService {
	return &RiskService{rt: rt.withDefaults(), repo: repo, lcs: lcs, bgs: bgs, policy: policy}
}

// AssessRequest 风险评估请求。RiskFactors 和 RiskScore 同时提供时按人工评估原样记录
type AssessRequest struct {
	TransactionReference string           `json:"transaction_reference" validate:"required,max=50"`
	TransactionType      string           `json:"transaction_type" validate:"max=30"`
	RiskFactors          string           `json:"risk_factors"`
	RiskScore            *decimal.Decimal `json:"risk_score"`
	Remarks              string           `json:"remarks" validate:"max=2000"`
}

func (r *AssessRequest) manual() bool {
	return strings.TrimSpace(r.RiskFactors) != "" && r.RiskScore != nil
}

// targets 参考号对应的交易类型，类型字段或前缀任一匹配即可
func (r *AssessRequest) targets(kind model.InstrumentKind) bool {
	return strings.EqualFold(r.TransactionType, string(kind)) || strings.HasPrefix(r.TransactionReference, string(kind))
}

// Assess 评分并保存，然后把处于 SENT_TO_RISK 的交易退回审核。交易不存在不报错
func (s *RiskService) Assess(ctx context.Context, p *model.Principal, req *AssessRequest) (*model.RiskAssessment, error) {
	if err := s.policy.Authorize(p, access.ObjRisk, access.ActAssess, nil); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	req.TransactionReference = strings.TrimSpace(req.TransactionReference)
	now := s.rt.Now()

	var result RiskScore
	switch {
	case req.manual():
		result = RiskScore{Score: *req.RiskScore, Factors: req.RiskFactors, Recommendations: req.Remarks}
		if result.Recommendations == "" {
			result.Recommendations = manualRecommendation
		}
	case req.targets(model.KindLC):
		inst, err := s.optionalLC(ctx, req.TransactionReference)
		if err != nil {
			return nil, err
		}
		result = s.scorer.Score(inst, now)
	case req.targets(model.KindBG):
		inst, err := s.optionalBG(ctx, req.TransactionReference)
		if err != nil {
			return nil, err
		}
		result = s.scorer.Score(inst, now)
	default:
		result = s.scorer.General()
	}

	ra := model.NewRiskAssessment(req.TransactionReference, req.TransactionType, result.Score,
		result.Factors, result.Recommendations, req.Remarks, p.Name(), now)
	if err := s.repo.Create(ctx, ra); err != nil {
		return nil, fmt.Errorf("保存风险评估失败: %w", err)
	}
	s.rt.Metrics.RiskAssessed(string(ra.RiskLevel))
	s.rt.Logger.Info("【风控】评估完成", "reference", ra.TransactionReference, "score", ra.RiskScore.String(),
		"level", ra.RiskLevel, "assessed_by", ra.AssessedBy, "manual", req.manual())

	if err := s.returnFromRisk(ctx, p, req); err != nil {
		return nil, err
	}
	return ra, nil
}

// optionalLC 不存在时返回 nil 接口，让评分器走默认分支
func (s *RiskService) optionalLC(ctx context.Context, ref string) (model.Instrument, error) {
	lc, err := s.lcs.GetByReference(ctx, ref)
	if apperr.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lc, nil
}

func (s *RiskService) optionalBG(ctx context.Context, ref string) (model.Instrument, error) {
	bg, err := s.bgs.GetByReference(ctx, ref)
	if apperr.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return bg, nil
}

// returnFromRisk 交易在 SENT_TO_RISK 时退回审核；重复评估时已不在该状态，不做任何事
func (s *RiskService) returnFromRisk(ctx context.Context, p *model.Principal, req *AssessRequest) error {
	ref := req.TransactionReference
	if req.targets(model.KindLC) {
		err := s.rt.locked(ctx, ref, func() error {
			lc, err := s.lcs.GetByReference(ctx, ref)
			if apperr.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			from := lc.Status
			now := s.rt.Now()
			if !lc.ReturnFromRisk(now) {
				return nil
			}
			change := model.NewStatusChange(model.EntityLC, ref, string(from), string(lc.Status), model.LCActionReturnFromRisk, p.Name(), "", now)
			if err := s.lcs.Update(ctx, lc, from, change); err != nil {
				return err
			}
			s.rt.Metrics.Transition(model.EntityLC, model.LCActionReturnFromRisk, "success")
			s.rt.Logger.Info("【风控】信用证退回审核", "reference", ref, "to", lc.Status)
			return nil
		})
		if err != nil {
			return fmt.Errorf("信用证退回审核失败: %w", err)
		}
	}
	if req.targets(model.KindBG) {
		err := s.rt.locked(ctx, ref, func() error {
			bg, err := s.bgs.GetByReference(ctx, ref)
			if apperr.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			from := bg.Status
			now := s.rt.Now()
			if !bg.ReturnFromRisk(now) {
				return nil
			}
			change := model.NewStatusChange(model.EntityBG, ref, string(from), string(bg.Status), model.BGActionReturnToOfficer, p.Name(), "", now)
			if err := s.bgs.Update(ctx, bg, from, change); err != nil {
				return err
			}
			s.rt.Metrics.Transition(model.EntityBG, model.BGActionReturnToOfficer, "success")
			s.rt.Logger.Info("【风控】保函退回审核", "reference", ref, "to", bg.Status)
			return nil
		})
		if err != nil {
			return fmt.Errorf("保函退回审核失败: %w", err)
		}
	}
	return nil
}

// UpdateRemarks 修改评估备注
func (s *RiskService) UpdateRemarks(ctx context.Context, p *model.Principal, id uint64, remarks string) (*model.RiskAssessment, error) {
	if err := s.policy.Authorize(p, access.ObjRisk, access.ActUpdate, nil); err != nil {
		return nil, err
	}
	ra, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ra.UpdateRemarks(remarks, s.rt.Now())
	if err := s.repo.Save(ctx, ra); err != nil {
		return nil, fmt.Errorf("更新风险评估备注失败: %w", err)
	}
	return ra, nil
}

func (s *RiskService) authorizeView(p *model.Principal) error {
	return s.policy.Authorize(p, access.ObjRisk, access.ActView, nil)
}

func (s *RiskService) Get(ctx context.Context, p *model.Principal, id uint64) (*model.RiskAssessment, error) {
	if err := s.authorizeView(p); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Latest 当前评估
func (s *RiskService) Latest(ctx context.Context, p *model.Principal, reference string) (*model.RiskAssessment, error) {
	if err := s.authorizeView(p); err != nil {
		return nil, err
	}
	return s.repo.Latest(ctx, strings.TrimSpace(reference))
}

func (s *RiskService) List(ctx context.Context, p *model.Principal) ([]*model.RiskAssessment, error) {
	if err := s.authorizeView(p); err != nil {
		return nil, err
	}
	return s.repo.ListAll(ctx)
}

func (s *RiskService) ListByLevel(ctx context.Context, p *model.Principal, level model.RiskLevel) ([]*model.RiskAssessment, error) {
	if err := s.authorizeView(p); err != nil {
		return nil, err
	}
	return s.repo.ListByLevel(ctx, level)
}

// ListHighRisk HIGH 和 CRITICAL
func (s *RiskService) ListHighRisk(ctx context.Context, p *model.Principal) ([]*model.RiskAssessment, error) {
	if err := s.authorizeView(p); err != nil {
		return nil, err
	}
	return s.repo.ListByLevel(ctx, model.RiskLevelHigh, model.RiskLevelCritical)
}

// RiskSummary 风控看板
type RiskSummary struct {
	CountByLevel  map[model.RiskLevel]int64 `json:"count_by_level"`
	AverageScore  decimal.Decimal           `json:"average_score"`
	LCsSentToRisk int                       `json:"lcs_sent_to_risk"`
	BGsSentToRisk int                       `json:"bgs_sent_to_risk"`
}

func (s *RiskService) Summary(ctx context.Context, p *model.Principal) (*RiskSummary, error) {
	if err := s.authorizeView(p); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByLevel(ctx)
	if err != nil {
		return nil, err
	}
	avg, err := s.repo.AverageScore(ctx)
	if err != nil {
		return nil, err
	}
	queue, err := s.Queue(ctx, p)
	if err != nil {
		return nil, err
	}
	return &RiskSummary{
		CountByLevel:  counts,
		AverageScore:  avg.Round(2),
		LCsSentToRisk: len(queue.LettersOfCredit),
		BGsSentToRisk: len(queue.BankGuarantees),
	}, nil
}

// RiskQueue 等待风控评估的交易
type RiskQueue struct {
	LettersOfCredit []*model.LetterOfCredit `json:"letters_of_credit"`
	BankGuarantees  []*model.BankGuarantee  `json:"bank_guarantees"`
}

func (s *RiskService) Queue(ctx context.Context, p *model.Principal) (*RiskQueue, error) {
	if err := s.authorizeView(p); err != nil {
		return nil, err
	}
	lcs, err := s.lcs.ListByStatus(ctx, model.LCStatusSentToRisk)
	if err != nil {
		return nil, err
	}
	bgs, err := s.bgs.ListByStatus(ctx, model.BGStatusSentToRisk)
	if err != nil {
		return nil, err
	}
	return &RiskQueue{LettersOfCredit: lcs, BankGuarantees: bgs}, nil
}

func (s *RiskService) Delete(ctx context.Context, p *model.Principal, id uint64) error {
	if err := s.policy.Authorize(p, access.ObjRisk, access.ActDelete, nil); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
