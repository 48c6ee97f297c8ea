package service

import (
	"context"

	"tfms/internal/access"
	"tfms/internal/apperr"
	"tfms/internal/model"
)

// Dashboard 首页统计
type Dashboard struct {
	LCByStatus         map[model.LCStatus]int64         `json:"lc_by_status"`
	BGByStatus         map[model.GuaranteeStatus]int64  `json:"bg_by_status"`
	DocumentsByStatus  map[model.DocumentStatus]int64   `json:"documents_by_status"`
	RiskByLevel        map[model.RiskLevel]int64        `json:"risk_by_level,omitempty"`
	ComplianceByStatus map[model.ComplianceStatus]int64 `json:"compliance_by_status,omitempty"`
}

type DashboardService struct {
	lcs         LCRepository
	bgs         BGRepository
	docs        DocumentRepository
	risks       RiskRepository
	compliances ComplianceRepository
	policy      *access.Policy
}

func NewDashboardService(lcs LCRepository, bgs BGRepository, docs DocumentRepository, risks RiskRepository,
	compliances ComplianceRepository, policy *access.Policy) *DashboardService {
	return &DashboardService{lcs: lcs, bgs: bgs, docs: docs, risks: risks, compliances: compliances, policy: policy}
}

// Summary 风控和合规统计只对有相应权限的角色返回
func (s *DashboardService) Summary(ctx context.Context, p *model.Principal) (*Dashboard, error) {
	if !s.policy.Allowed(p, access.ObjDashboard, access.ActView) {
		return nil, apperr.Unauthorized(p.Name(), "dashboard")
	}
	var (
		d   Dashboard
		err error
	)
	if d.LCByStatus, err = s.lcs.CountByStatus(ctx); err != nil {
		return nil, err
	}
	if d.BGByStatus, err = s.bgs.CountByStatus(ctx); err != nil {
		return nil, err
	}
	if d.DocumentsByStatus, err = s.docs.CountByStatus(ctx); err != nil {
		return nil, err
	}
	if s.policy.Allowed(p, access.ObjRisk, access.ActView) {
		if d.RiskByLevel, err = s.risks.CountByLevel(ctx); err != nil {
			return nil, err
		}
	}
	if s.policy.Allowed(p, access.ObjCompliance, access.ActView) {
		if d.ComplianceByStatus, err = s.compliances.CountByStatus(ctx); err != nil {
			return nil, err
		}
	}
	return &d, nil
}
