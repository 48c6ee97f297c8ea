package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tfms/internal/access"
	"tfms/internal/apperr"
	"tfms/internal/model"

	"github.com/shopspring/decimal"
)

// DefaultRestrictedCountries 未配置时使用的受限国家
var DefaultRestrictedCountries = []string{"IRAN", "NORTH KOREA", "SYRIA"}

// UnknownCountry 尚未接入受益人国家数据，始终返回 "Unknown"
type UnknownCountry struct{}

func (UnknownCountry) Country(context.Context, model.Instrument) string {
	return "Unknown"
}

var (
	riskEscalationCutoff = decimal.NewFromInt(70)
	riskModerateCutoff   = decimal.NewFromInt(50)
)

type ComplianceService struct {
	rt         Runtime
	repo       ComplianceRepository
	docs       DocumentRepository
	risks      RiskRepository
	lookup     instruments
	countries  CountryResolver
	restricted []string
	policy     *access.Policy
}

func NewComplianceService(rt Runtime, repo ComplianceRepository, lcs LCRepository, bgs BGRepository,
	docs DocumentRepository, risks RiskRepository, countries CountryResolver, restricted []string,
	policy *access.Policy) *ComplianceService {

	if countries == nil {
		countries = UnknownCountry{}
	}
	if len(restricted) == 0 {
		restricted = DefaultRestrictedCountries
	}
	upper := make([]string, 0, len(restricted))
	for _, c := range restricted {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			upper = append(upper, c)
		}
	}
	return &ComplianceService{
		rt:         rt.withDefaults(),
		repo:       repo,
		docs:       docs,
		risks:      risks,
		lookup:     instruments{lcs: lcs, bgs: bgs},
		countries:  countries,
		restricted: upper,
		policy:     policy,
	}
}

// remarks 按检查顺序累积的备注
type remarks []string

func (r *remarks) add(s string) { *r = append(*r, s) }

func (r remarks) String() string { return strings.Join(r, " ") }

// Evaluate 对参考号运行全部合规检查并写回唯一的合规记录
func (s *ComplianceService) Evaluate(ctx context.Context, p *model.Principal, reference string) (*model.Compliance, error) {
	if err := s.policy.Authorize(p, access.ObjCompliance, access.ActEvaluate, nil); err != nil {
		return nil, err
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, apperr.Validation("Invalid request data").Add("transaction_reference", "This field is required")
	}

	var c *model.Compliance
	err := s.rt.locked(ctx, "compliance:"+reference, func() error {
		var err error
		c, err = s.evaluate(ctx, reference)
		if err != nil {
			return err
		}
		return s.repo.Upsert(ctx, c)
	})
	if err != nil {
		s.rt.logResult(err, "【合规】检查失败", "reference", reference)
		return nil, err
	}
	s.rt.Metrics.ComplianceEvaluated(string(c.ComplianceStatus))
	s.rt.Logger.Info("【合规】检查完成", "reference", reference, "status", c.ComplianceStatus, "user", p.Name())
	return c, nil
}

func (s *ComplianceService) evaluate(ctx context.Context, reference string) (*model.Compliance, error) {
	now := s.rt.Now()
	c, err := s.repo.GetByReference(ctx, reference)
	switch {
	case apperr.IsNotFound(err):
		c = &model.Compliance{TransactionReference: reference, CreatedAt: now}
	case err != nil:
		return nil, err
	}
	today := model.Date(now)
	c.ReportDate = &today
	c.UpdatedAt = now

	inst, err := s.lookup.findOptional(ctx, reference)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		c.ComplianceStatus = model.ComplianceStatusNonCompliant
		c.DocumentsValidated = false
		c.RiskCheckPassed = false
		c.PartyCheckPassed = false
		c.CountryCheckPassed = false
		c.Remarks = "Transaction not found."
		return c, nil
	}
	c.TransactionType = string(inst.Kind())

	var rm remarks
	c.PartyCheckPassed = s.checkInstrument(inst, now, &rm)

	c.DocumentsValidated, err = s.checkDocuments(ctx, reference, &rm)
	if err != nil {
		return nil, err
	}
	c.RiskCheckPassed, err = s.checkRisk(ctx, reference, &rm)
	if err != nil {
		return nil, err
	}
	c.CountryCheckPassed = s.checkCountry(ctx, inst, &rm)

	if c.PartyCheckPassed && c.DocumentsValidated && c.RiskCheckPassed && c.CountryCheckPassed {
		c.ComplianceStatus = model.ComplianceStatusCompliant
		if len(rm) == 0 {
			rm.add("All compliance checks passed successfully.")
		} else {
			rm.add("All checks passed.")
		}
	} else {
		c.ComplianceStatus = model.ComplianceStatusNonCompliant
	}
	c.Remarks = rm.String()
	c.StampAutomatedReview(now)
	return c, nil
}

// checkInstrument 有效期、金额、受益人
func (s *ComplianceService) checkInstrument(inst model.Instrument, now time.Time, rm *remarks) bool {
	ok := true
	switch v := inst.(type) {
	case *model.LetterOfCredit:
		if v.Expired(now) {
			rm.add("LC has expired.")
			ok = false
		}
		if !v.Amount.IsPositive() {
			rm.add("Invalid LC amount.")
			ok = false
		}
	case *model.BankGuarantee:
		if v.Elapsed(now) {
			rm.add("Guarantee validity period has expired.")
			ok = false
		}
		if !v.GuaranteeAmount.IsPositive() {
			rm.add("Invalid guarantee amount.")
			ok = false
		}
	}
	if strings.TrimSpace(inst.Beneficiary()) == "" {
		rm.add("Beneficiary name is missing.")
		ok = false
	}
	return ok
}

// checkDocuments 至少需要发票和提单
func (s *ComplianceService) checkDocuments(ctx context.Context, reference string, rm *remarks) (bool, error) {
	docs, err := s.docs.ListByTradeReference(ctx, reference)
	if err != nil {
		return false, err
	}
	if len(docs) == 0 {
		rm.add("No trade documents found for this transaction.")
		return false, nil
	}
	var hasInvoice, hasBOL bool
	for _, d := range docs {
		t := strings.ToUpper(d.DocumentType)
		if strings.Contains(t, "INVOICE") {
			hasInvoice = true
		}
		if strings.Contains(t, "BILL OF LADING") || strings.Contains(t, "BOL") {
			hasBOL = true
		}
	}
	if !hasInvoice {
		rm.add("Invoice document is missing.")
		return false, nil
	}
	if !hasBOL {
		rm.add("Bill of Lading is missing.")
		return false, nil
	}
	rm.add("Required documents present.")
	return true, nil
}

// checkRisk 最新评估 >70 不通过，50~70 通过但提示，没有评估视为通过
func (s *ComplianceService) checkRisk(ctx context.Context, reference string, rm *remarks) (bool, error) {
	ra, err := s.risks.Latest(ctx, reference)
	if apperr.IsNotFound(err) {
		rm.add("No risk assessment found.")
		return true, nil
	}
	if err != nil {
		return false, err
	}
	score := ra.RiskScore.StringFixed(2)
	switch {
	case ra.RiskScore.GreaterThan(riskEscalationCutoff):
		rm.add(fmt.Sprintf("High risk score detected (%s). Requires escalation.", score))
		return false, nil
	case ra.RiskScore.GreaterThan(riskModerateCutoff):
		rm.add(fmt.Sprintf("Moderate risk detected (%s).", score))
	default:
		rm.add("Risk assessment passed.")
	}
	return true, nil
}

func (s *ComplianceService) checkCountry(ctx context.Context, inst model.Instrument, rm *remarks) bool {
	country := strings.ToUpper(s.countries.Country(ctx, inst))
	for _, r := range s.restricted {
		if strings.Contains(country, r) {
			rm.add("Beneficiary country is in restricted list.")
			return false
		}
	}
	rm.add("Country check passed.")
	return true
}

// SubmitReview 柜员人工审核，覆盖自动审核人
func (s *ComplianceService) SubmitReview(ctx context.Context, p *model.Principal, id uint64) (*model.Compliance, error) {
	if err := s.policy.Authorize(p, access.ObjCompliance, access.ActReview, nil); err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.SubmitReview(p.Name(), s.rt.Now())
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("保存合规审核失败: %w", err)
	}
	s.rt.Logger.Info("【合规】人工审核", "reference", c.TransactionReference, "reviewer", c.ReviewedBy)
	return c, nil
}

func (s *ComplianceService) authorizeView(p *model.Principal) error {
	return s.policy.Authorize(p, access.ObjCompliance, access.ActView, nil)
}

func (s *ComplianceService) Get(ctx context.Context, p *model.Principal, id uint64) (*model.Compliance, error) {
	if err := s.authorizeView(p); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ComplianceService) GetByReference(ctx context.Context, p *model.Principal, reference string) (*model.Compliance, error) {
	if err := s.authorizeView(p); err != nil {
		return nil, err
	}
	return s.repo.GetByReference(ctx, strings.TrimSpace(reference))
}

func (s *ComplianceService) List(ctx context.Context, p *model.Principal) ([]*model.Compliance, error) {
	if err := s.authorizeView(p); err != nil {
		return nil, err
	}
	return s.repo.ListAll(ctx)
}

func (s *ComplianceService) ListByStatus(ctx context.Context, p *model.Principal, status model.ComplianceStatus) ([]*model.Compliance, error) {
	if err := s.authorizeView(p); err != nil {
		return nil, err
	}
	return s.repo.ListByStatus(ctx, status)
}

func (s *ComplianceService) CountByStatus(ctx context.Context, p *model.Principal) (map[model.ComplianceStatus]int64, error) {
	if err := s.authorizeView(p); err != nil {
		return nil, err
	}
	return s.repo.CountByStatus(ctx)
}

func (s *ComplianceService) Delete(ctx context.Context, p *model.Principal, id uint64) error {
	if err := s.policy.Authorize(p, access.ObjCompliance, access.ActDelete, nil); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
