// Package memory 内存仓储，用于测试和无数据库的本地运行。
// 语义与 gorm 仓储一致：按状态 CAS 更新，审计记录与实体一同写入。
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"tfms/internal/apperr"
	"tfms/internal/model"

	"github.com/shopspring/decimal"
)

// Store 所有实体共用一把锁和一个自增序列
type Store struct {
	mu          sync.RWMutex
	seq         uint64
	lcs         map[uint64]*model.LetterOfCredit
	bgs         map[uint64]*model.BankGuarantee
	docs        map[uint64]*model.TradeDocument
	risks       map[uint64]*model.RiskAssessment
	compliances map[uint64]*model.Compliance
	journal     []*model.StatusChange
}

func NewStore() *Store {
	return &Store{
		lcs:         map[uint64]*model.LetterOfCredit{},
		bgs:         map[uint64]*model.BankGuarantee{},
		docs:        map[uint64]*model.TradeDocument{},
		risks:       map[uint64]*model.RiskAssessment{},
		compliances: map[uint64]*model.Compliance{},
	}
}

func (s *Store) LCs() *LCRepo                 { return &LCRepo{s} }
func (s *Store) BGs() *BGRepo                 { return &BGRepo{s} }
func (s *Store) Documents() *DocumentRepo     { return &DocumentRepo{s} }
func (s *Store) Risks() *RiskRepo             { return &RiskRepo{s} }
func (s *Store) Compliances() *ComplianceRepo { return &ComplianceRepo{s} }
func (s *Store) Audit() *AuditRepo            { return &AuditRepo{s} }

func (s *Store) nextID() uint64 {
	s.seq++
	return s.seq
}

// record 调用方持有写锁
func (s *Store) record(change *model.StatusChange) {
	if change == nil {
		return
	}
	c := *change
	c.ID = s.nextID()
	s.journal = append(s.journal, &c)
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

// collect 过滤并排序，返回副本
func collect[T any](m map[uint64]*T, keep func(*T) bool, less func(a, b *T) bool) []*T {
	out := make([]*T, 0, len(m))
	for _, v := range m {
		if keep == nil || keep(v) {
			out = append(out, clone(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		if n = normalize(n); n != "" {
			set[n] = true
		}
	}
	return set
}

// ---------------------------------------------------------------------------
// 信用证
// ---------------------------------------------------------------------------

type LCRepo struct{ s *Store }

func lcNewestFirst(a, b *model.LetterOfCredit) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (r *LCRepo) Create(_ context.Context, lc *model.LetterOfCredit, change *model.StatusChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.lcs {
		if v.ReferenceNumber == lc.ReferenceNumber {
			return apperr.Validation("Duplicate reference").Add("reference_number", "Reference number already exists")
		}
	}
	lc.ID = r.s.nextID()
	r.s.lcs[lc.ID] = clone(lc)
	r.s.record(change)
	return nil
}

func (r *LCRepo) Update(_ context.Context, lc *model.LetterOfCredit, expected model.LCStatus, change *model.StatusChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.lcs[lc.ID]
	if !ok {
		return apperr.NotFound(model.EntityLC, "id", lc.ID)
	}
	if cur.Status != expected {
		return apperr.ErrConcurrentUpdate
	}
	r.s.lcs[lc.ID] = clone(lc)
	r.s.record(change)
	return nil
}

func (r *LCRepo) GetByID(_ context.Context, id uint64) (*model.LetterOfCredit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if v, ok := r.s.lcs[id]; ok {
		return clone(v), nil
	}
	return nil, apperr.NotFound(model.EntityLC, "id", id)
}

func (r *LCRepo) GetByReference(_ context.Context, reference string) (*model.LetterOfCredit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, v := range r.s.lcs {
		if v.ReferenceNumber == reference {
			return clone(v), nil
		}
	}
	return nil, apperr.NotFound(model.EntityLC, "referenceNumber", reference)
}

func (r *LCRepo) ListAll(_ context.Context) ([]*model.LetterOfCredit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.lcs, nil, lcNewestFirst), nil
}

func (r *LCRepo) ListByStatus(_ context.Context, statuses ...model.LCStatus) ([]*model.LetterOfCredit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.lcs, func(v *model.LetterOfCredit) bool {
		for _, st := range statuses {
			if v.Status == st {
				return true
			}
		}
		return false
	}, lcNewestFirst), nil
}

func (r *LCRepo) ListByCreatedBy(_ context.Context, username string) ([]*model.LetterOfCredit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.lcs, func(v *model.LetterOfCredit) bool { return v.CreatedBy == username }, lcNewestFirst), nil
}

func (r *LCRepo) ListByBeneficiary(_ context.Context, names ...string) ([]*model.LetterOfCredit, error) {
	set := nameSet(names)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.lcs, func(v *model.LetterOfCredit) bool { return set[normalize(v.BeneficiaryName)] }, lcNewestFirst), nil
}

func (r *LCRepo) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.lcs[id]; !ok {
		return apperr.NotFound(model.EntityLC, "id", id)
	}
	delete(r.s.lcs, id)
	return nil
}

func (r *LCRepo) CountByStatus(_ context.Context) (map[model.LCStatus]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := map[model.LCStatus]int64{}
	for _, v := range r.s.lcs {
		counts[v.Status]++
	}
	return counts, nil
}

// ---------------------------------------------------------------------------
// 保函
// ---------------------------------------------------------------------------

type BGRepo struct{ s *Store }

func bgNewestFirst(a, b *model.BankGuarantee) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (r *BGRepo) Create(_ context.Context, bg *model.BankGuarantee, change *model.StatusChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.bgs {
		if v.ReferenceNumber == bg.ReferenceNumber {
			return apperr.Validation("Duplicate reference").Add("reference_number", "Reference number already exists")
		}
	}
	bg.ID = r.s.nextID()
	r.s.bgs[bg.ID] = clone(bg)
	r.s.record(change)
	return nil
}

func (r *BGRepo) Update(_ context.Context, bg *model.BankGuarantee, expected model.GuaranteeStatus, change *model.StatusChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.bgs[bg.ID]
	if !ok {
		return apperr.NotFound(model.EntityBG, "id", bg.ID)
	}
	if cur.Status != expected {
		return apperr.ErrConcurrentUpdate
	}
	r.s.bgs[bg.ID] = clone(bg)
	r.s.record(change)
	return nil
}

func (r *BGRepo) GetByID(_ context.Context, id uint64) (*model.BankGuarantee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if v, ok := r.s.bgs[id]; ok {
		return clone(v), nil
	}
	return nil, apperr.NotFound(model.EntityBG, "id", id)
}

func (r *BGRepo) GetByReference(_ context.Context, reference string) (*model.BankGuarantee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, v := range r.s.bgs {
		if v.ReferenceNumber == reference {
			return clone(v), nil
		}
	}
	return nil, apperr.NotFound(model.EntityBG, "referenceNumber", reference)
}

func (r *BGRepo) ListAll(_ context.Context) ([]*model.BankGuarantee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.bgs, nil, bgNewestFirst), nil
}

func (r *BGRepo) ListByStatus(_ context.Context, statuses ...model.GuaranteeStatus) ([]*model.BankGuarantee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.bgs, func(v *model.BankGuarantee) bool {
		for _, st := range statuses {
			if v.Status == st {
				return true
			}
		}
		return false
	}, bgNewestFirst), nil
}

func (r *BGRepo) ListByCreatedBy(_ context.Context, username string) ([]*model.BankGuarantee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.bgs, func(v *model.BankGuarantee) bool { return v.CreatedBy == username }, bgNewestFirst), nil
}

func (r *BGRepo) ListByBeneficiary(_ context.Context, names ...string) ([]*model.BankGuarantee, error) {
	set := nameSet(names)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.bgs, func(v *model.BankGuarantee) bool { return set[normalize(v.BeneficiaryName)] }, bgNewestFirst), nil
}

func (r *BGRepo) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bgs[id]; !ok {
		return apperr.NotFound(model.EntityBG, "id", id)
	}
	delete(r.s.bgs, id)
	return nil
}

func (r *BGRepo) CountByStatus(_ context.Context) (map[model.GuaranteeStatus]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := map[model.GuaranteeStatus]int64{}
	for _, v := range r.s.bgs {
		counts[v.Status]++
	}
	return counts, nil
}

// ---------------------------------------------------------------------------
// 单据
// ---------------------------------------------------------------------------

type DocumentRepo struct{ s *Store }

func docNewestFirst(a, b *model.TradeDocument) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (r *DocumentRepo) Create(_ context.Context, doc *model.TradeDocument, change *model.StatusChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.docs {
		if v.ReferenceNumber == doc.ReferenceNumber {
			return apperr.Validation("Duplicate reference").Add("reference_number", "Reference number already exists")
		}
	}
	doc.ID = r.s.nextID()
	r.s.docs[doc.ID] = clone(doc)
	r.s.record(change)
	return nil
}

func (r *DocumentRepo) Update(_ context.Context, doc *model.TradeDocument, expected model.DocumentStatus, change *model.StatusChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.docs[doc.ID]
	if !ok {
		return apperr.NotFound(model.EntityDocument, "id", doc.ID)
	}
	if cur.Status != expected {
		return apperr.ErrConcurrentUpdate
	}
	r.s.docs[doc.ID] = clone(doc)
	r.s.record(change)
	return nil
}

func (r *DocumentRepo) GetByID(_ context.Context, id uint64) (*model.TradeDocument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if v, ok := r.s.docs[id]; ok {
		return clone(v), nil
	}
	return nil, apperr.NotFound(model.EntityDocument, "id", id)
}

func (r *DocumentRepo) GetByReference(_ context.Context, reference string) (*model.TradeDocument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, v := range r.s.docs {
		if v.ReferenceNumber == reference {
			return clone(v), nil
		}
	}
	return nil, apperr.NotFound(model.EntityDocument, "referenceNumber", reference)
}

func (r *DocumentRepo) ListAll(_ context.Context) ([]*model.TradeDocument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.docs, nil, docNewestFirst), nil
}

func (r *DocumentRepo) ListByStatus(_ context.Context, status model.DocumentStatus) ([]*model.TradeDocument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.docs, func(v *model.TradeDocument) bool { return v.Status == status }, docNewestFirst), nil
}

func (r *DocumentRepo) ListByUploadedBy(_ context.Context, username string) ([]*model.TradeDocument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.docs, func(v *model.TradeDocument) bool { return v.UploadedBy == username }, docNewestFirst), nil
}

func (r *DocumentRepo) ListByTradeReference(_ context.Context, references ...string) ([]*model.TradeDocument, error) {
	set := make(map[string]bool, len(references))
	for _, ref := range references {
		set[ref] = true
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.docs, func(v *model.TradeDocument) bool { return v.Linked() && set[v.TradeReference()] }, docNewestFirst), nil
}

func (r *DocumentRepo) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.docs[id]; !ok {
		return apperr.NotFound(model.EntityDocument, "id", id)
	}
	delete(r.s.docs, id)
	return nil
}

func (r *DocumentRepo) CountByStatus(_ context.Context) (map[model.DocumentStatus]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := map[model.DocumentStatus]int64{}
	for _, v := range r.s.docs {
		counts[v.Status]++
	}
	return counts, nil
}

// ---------------------------------------------------------------------------
// 风险评估
// ---------------------------------------------------------------------------

type RiskRepo struct{ s *Store }

func riskNewestFirst(a, b *model.RiskAssessment) bool { return a.NewerThan(b) }

func (r *RiskRepo) Create(_ context.Context, ra *model.RiskAssessment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ra.ID = r.s.nextID()
	r.s.risks[ra.ID] = clone(ra)
	return nil
}

func (r *RiskRepo) Save(_ context.Context, ra *model.RiskAssessment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.risks[ra.ID]; !ok {
		return apperr.NotFound(model.EntityRisk, "id", ra.ID)
	}
	r.s.risks[ra.ID] = clone(ra)
	return nil
}

func (r *RiskRepo) GetByID(_ context.Context, id uint64) (*model.RiskAssessment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if v, ok := r.s.risks[id]; ok {
		return clone(v), nil
	}
	return nil, apperr.NotFound(model.EntityRisk, "id", id)
}

func (r *RiskRepo) Latest(_ context.Context, reference string) (*model.RiskAssessment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var latest *model.RiskAssessment
	for _, v := range r.s.risks {
		if v.TransactionReference == reference && v.NewerThan(latest) {
			latest = v
		}
	}
	if latest == nil {
		return nil, apperr.NotFound(model.EntityRisk, "transactionReference", reference)
	}
	return clone(latest), nil
}

func (r *RiskRepo) ListAll(_ context.Context) ([]*model.RiskAssessment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.risks, nil, riskNewestFirst), nil
}

func (r *RiskRepo) ListByReference(_ context.Context, reference string) ([]*model.RiskAssessment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.risks, func(v *model.RiskAssessment) bool { return v.TransactionReference == reference }, riskNewestFirst), nil
}

func (r *RiskRepo) ListByLevel(_ context.Context, levels ...model.RiskLevel) ([]*model.RiskAssessment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.risks, func(v *model.RiskAssessment) bool {
		for _, l := range levels {
			if v.RiskLevel == l {
				return true
			}
		}
		return false
	}, riskNewestFirst), nil
}

func (r *RiskRepo) CountByLevel(_ context.Context) (map[model.RiskLevel]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := map[model.RiskLevel]int64{}
	for _, v := range r.s.risks {
		counts[v.RiskLevel]++
	}
	return counts, nil
}

// AverageScore 没有评估时为 0
func (r *RiskRepo) AverageScore(_ context.Context) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if len(r.s.risks) == 0 {
		return decimal.Zero, nil
	}
	sum := decimal.Zero
	for _, v := range r.s.risks {
		sum = sum.Add(v.RiskScore)
	}
	return sum.Div(decimal.NewFromInt(int64(len(r.s.risks)))).Round(2), nil
}

func (r *RiskRepo) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.risks[id]; !ok {
		return apperr.NotFound(model.EntityRisk, "id", id)
	}
	delete(r.s.risks, id)
	return nil
}

// ---------------------------------------------------------------------------
// 合规
// ---------------------------------------------------------------------------

type ComplianceRepo struct{ s *Store }

func complianceByID(a, b *model.Compliance) bool { return a.ID < b.ID }

func (r *ComplianceRepo) Upsert(_ context.Context, c *model.Compliance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, v := range r.s.compliances {
		if v.TransactionReference == c.TransactionReference {
			c.ID = id
			c.CreatedAt = v.CreatedAt
			r.s.compliances[id] = clone(c)
			return nil
		}
	}
	c.ID = r.s.nextID()
	r.s.compliances[c.ID] = clone(c)
	return nil
}

func (r *ComplianceRepo) Save(_ context.Context, c *model.Compliance) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.compliances[c.ID]; !ok {
		return apperr.NotFound(model.EntityCompliance, "id", c.ID)
	}
	r.s.compliances[c.ID] = clone(c)
	return nil
}

func (r *ComplianceRepo) GetByID(_ context.Context, id uint64) (*model.Compliance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if v, ok := r.s.compliances[id]; ok {
		return clone(v), nil
	}
	return nil, apperr.NotFound(model.EntityCompliance, "id", id)
}

func (r *ComplianceRepo) GetByReference(_ context.Context, reference string) (*model.Compliance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, v := range r.s.compliances {
		if v.TransactionReference == reference {
			return clone(v), nil
		}
	}
	return nil, apperr.NotFound(model.EntityCompliance, "transactionReference", reference)
}

func (r *ComplianceRepo) ListAll(_ context.Context) ([]*model.Compliance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.compliances, nil, complianceByID), nil
}

func (r *ComplianceRepo) ListByStatus(_ context.Context, status model.ComplianceStatus) ([]*model.Compliance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return collect(r.s.compliances, func(v *model.Compliance) bool { return v.ComplianceStatus == status }, complianceByID), nil
}

func (r *ComplianceRepo) CountByStatus(_ context.Context) (map[model.ComplianceStatus]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := map[model.ComplianceStatus]int64{}
	for _, v := range r.s.compliances {
		counts[v.ComplianceStatus]++
	}
	return counts, nil
}

func (r *ComplianceRepo) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.compliances[id]; !ok {
		return apperr.NotFound(model.EntityCompliance, "id", id)
	}
	delete(r.s.compliances, id)
	return nil
}

// ---------------------------------------------------------------------------
// 审计
// ---------------------------------------------------------------------------

type AuditRepo struct{ s *Store }

// ListByReference 按写入顺序返回
func (r *AuditRepo) ListByReference(_ context.Context, reference string) ([]*model.StatusChange, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.StatusChange
	for _, c := range r.s.journal {
		if c.ReferenceNumber == reference {
			out = append(out, clone(c))
		}
	}
	return out, nil
}
