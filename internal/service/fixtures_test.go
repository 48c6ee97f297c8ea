package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"tfms/internal/access"
	"tfms/internal/model"
	"tfms/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func day(offset int) string {
	return testNow.AddDate(0, 0, offset).Format(dateLayout)
}

var (
	officer  = &model.Principal{Username: "officer1", Role: model.RoleOfficer, FullName: "Olivia Officer"}
	analyst  = &model.Principal{Username: "risk1", Role: model.RoleRisk, FullName: "Ray Risk"}
	alice    = &model.Principal{Username: "alice", Role: model.RoleCustomer, FullName: "Alice Imports", Email: "alice@example.com"}
	bob      = &model.Principal{Username: "bob", Role: model.RoleCustomer, FullName: "Bob Exports", Email: "bob@example.com"}
	stranger = &model.Principal{Username: "mallory", Role: model.RoleCustomer, FullName: "Mallory"}
)

// seqRefs 可预测的参考号
type seqRefs struct {
	mu sync.Mutex
	n  int
}

func (r *seqRefs) next(prefix string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	return fmt.Sprintf("%s%08d", prefix, r.n)
}

func (r *seqRefs) LC() string       { return r.next("LC") }
func (r *seqRefs) BG() string       { return r.next("BG") }
func (r *seqRefs) Document() string { return r.next("DOC") }

// memFiles 内存文件存储
type memFiles struct {
	mu    sync.Mutex
	files map[string][]byte
	n     int
}

func newMemFiles() *memFiles {
	return &memFiles{files: map[string][]byte{}}
}

func (m *memFiles) Store(_ context.Context, r io.Reader, name string) (string, int64, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	path := fmt.Sprintf("mem/%d-%s", m.n, name)
	m.files[path] = b
	return path, int64(len(b)), nil
}

func (m *memFiles) Delete(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *memFiles) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type fixture struct {
	store      *memory.Store
	files      *memFiles
	lcs        *LCService
	bgs        *BGService
	docs       *DocumentService
	risks      *RiskService
	compliance *ComplianceService
	tracking   *TrackingService
	dashboard  *DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	policy, err := access.NewPolicy(access.NewResolver())
	require.NoError(t, err)

	store := memory.NewStore()
	files := newMemFiles()
	refs := &seqRefs{}
	rt := Runtime{Now: func() time.Time { return testNow }}

	return &fixture{
		store:      store,
		files:      files,
		lcs:        NewLCService(rt, store.LCs(), refs, policy),
		bgs:        NewBGService(rt, store.BGs(), refs, policy),
		docs:       NewDocumentService(rt, store.Documents(), files, refs, policy, store.LCs(), store.BGs()),
		risks:      NewRiskService(rt, store.Risks(), store.LCs(), store.BGs(), policy),
		compliance: NewComplianceService(rt, store.Compliances(), store.LCs(), store.BGs(), store.Documents(), store.Risks(), nil, nil, policy),
		tracking:   NewTrackingService(rt, store.LCs(), store.BGs(), store.Documents(), store.Audit(), policy.Resolver()),
		dashboard:  NewDashboardService(store.LCs(), store.BGs(), store.Documents(), store.Risks(), store.Compliances(), policy),
	}
}

func lcRequest(amount int64, expiry string) *LCRequest {
	return &LCRequest{
		ApplicantName:   "Alice Imports",
		BeneficiaryName: "Bob Exports",
		Amount:          decimal.NewFromInt(amount),
		Currency:        "USD",
		ExpiryDate:      expiry,
		Description:     "Machine parts",
		IssuingBank:     "First Bank",
	}
}

func bgRequest(amount int64, validity string) *BGRequest {
	return &BGRequest{
		ApplicantName:   "Alice Imports",
		BeneficiaryName: "Bob Exports",
		GuaranteeAmount: decimal.NewFromInt(amount),
		Currency:        "USD",
		GuaranteeType:   "Performance",
		ValidityPeriod:  validity,
		Purpose:         "Construction contract",
	}
}

// createLC 由 alice 创建并返回草稿信用证
func (f *fixture) createLC(t *testing.T, amount int64, expiryDays int) *model.LetterOfCredit {
	t.Helper()
	lc, err := f.lcs.Create(context.Background(), alice, lcRequest(amount, day(expiryDays)))
	require.NoError(t, err)
	return lc
}

func (f *fixture) upload(t *testing.T, p *model.Principal, tradeRef, docType string) *model.TradeDocument {
	t.Helper()
	doc, err := f.docs.Upload(context.Background(), p, &UploadRequest{
		DocumentType:         docType,
		TradeReferenceNumber: tradeRef,
		FileName:             "scan.pdf",
		ContentType:          "application/pdf",
	}, bytes.NewBufferString("%PDF-1.4"))
	require.NoError(t, err)
	return doc
}
