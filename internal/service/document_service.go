package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"tfms/internal/access"
	"tfms/internal/apperr"
	"tfms/internal/model"
)

type DocumentService struct {
	rt     Runtime
	repo   DocumentRepository
	store  FileStorage
	refs   ReferenceGenerator
	policy *access.Policy
	lookup instruments
}

func NewDocumentService(rt Runtime, repo DocumentRepository, store FileStorage, refs ReferenceGenerator,
	policy *access.Policy, lcs LCRepository, bgs BGRepository) *DocumentService {
	return &DocumentService{
		rt:     rt.withDefaults(),
		repo:   repo,
		store:  store,
		refs:   refs,
		policy: policy,
		lookup: instruments{lcs: lcs, bgs: bgs},
	}
}

// UploadRequest 上传单据的元数据，文件内容单独传入
type UploadRequest struct {
	DocumentType         string `json:"document_type" form:"document_type" validate:"required,max=50"`
	TradeReferenceNumber string `json:"trade_reference_number" form:"trade_reference_number" validate:"max=50"`
	Description          string `json:"description" form:"description" validate:"max=2000"`
	FileName             string `json:"file_name" validate:"required,max=255"`
	ContentType          string `json:"content_type" validate:"max=100"`
}

// Upload 校验上传权限后写文件并建档；建档失败时清理已写入的文件
func (s *DocumentService) Upload(ctx context.Context, p *model.Principal, req *UploadRequest, content io.Reader) (*model.TradeDocument, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	tradeRef := strings.TrimSpace(req.TradeReferenceNumber)
	var inst model.Instrument
	if tradeRef != "" {
		found, err := s.lookup.find(ctx, tradeRef)
		if err != nil {
			return nil, err
		}
		inst = found
	}
	if err := s.policy.AuthorizeUpload(p, tradeRef, inst); err != nil {
		s.rt.logResult(err, "【单据】上传被拒绝", "trade_reference", tradeRef, "user", p.Name())
		return nil, err
	}

	path, size, err := s.store.Store(ctx, content, req.FileName)
	if err != nil {
		return nil, fmt.Errorf("保存文件失败: %w", err)
	}

	now := s.rt.Now()
	doc := model.NewTradeDocument(s.refs.Document(), req.DocumentType, tradeRef, req.Description, p.Name(), model.StoredFile{
		FileName: req.FileName,
		FilePath: path,
		FileType: req.ContentType,
		FileSize: size,
	}, now)
	change := model.NewStatusChange(model.EntityDocument, doc.ReferenceNumber, "", string(doc.Status), "upload", p.Name(), "", now)
	if err := s.repo.Create(ctx, doc, change); err != nil {
		if derr := s.store.Delete(path); derr != nil {
			s.rt.Logger.Warn("【单据】清理文件失败", "path", path, "error", derr)
		}
		return nil, fmt.Errorf("创建单据记录失败: %w", err)
	}
	s.rt.Metrics.Transition(model.EntityDocument, "upload", "success")
	s.rt.Logger.Info("【单据】上传成功", "reference", doc.ReferenceNumber, "trade_reference", tradeRef, "size", size, "user", p.Name())
	return doc, nil
}

// load 加载单据及其关联交易（关联交易不存在时为 nil）
func (s *DocumentService) load(ctx context.Context, id uint64) (*model.TradeDocument, model.Instrument, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !doc.Linked() {
		return doc, nil, nil
	}
	inst, err := s.lookup.findOptional(ctx, doc.TradeReference())
	if err != nil {
		return nil, nil, err
	}
	return doc, inst, nil
}

func (s *DocumentService) Get(ctx context.Context, p *model.Principal, id uint64) (*model.TradeDocument, error) {
	doc, inst, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.AuthorizeDocument(p, access.ActView, doc, inst); err != nil {
		return nil, err
	}
	return doc, nil
}

// Open 下载单据文件，调用方负责关闭
func (s *DocumentService) Open(ctx context.Context, p *model.Principal, id uint64) (*model.TradeDocument, io.ReadCloser, error) {
	doc, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(doc.FilePath)
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}

// List 员工看到全部；其他人看到自己上传的，以及关联到自己可见交易的单据
func (s *DocumentService) List(ctx context.Context, p *model.Principal) ([]*model.TradeDocument, error) {
	if !s.policy.Allowed(p, access.ObjDocument, access.ActView) {
		return nil, apperr.Unauthorized(p.Name(), "list documents")
	}
	if p.IsStaff() {
		return s.repo.ListAll(ctx)
	}
	uploaded, err := s.repo.ListByUploadedBy(ctx, p.Username)
	if err != nil {
		return nil, err
	}
	refs, err := s.lookup.visibleReferences(ctx, p)
	if err != nil {
		return nil, err
	}
	var linked []*model.TradeDocument
	if len(refs) > 0 {
		if linked, err = s.repo.ListByTradeReference(ctx, refs...); err != nil {
			return nil, err
		}
	}
	seen := map[uint64]bool{}
	out := make([]*model.TradeDocument, 0, len(uploaded)+len(linked))
	for _, d := range append(uploaded, linked...) {
		if !seen[d.ID] {
			seen[d.ID] = true
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListByTradeReference 某笔交易下的全部单据，要求能查看该交易
func (s *DocumentService) ListByTradeReference(ctx context.Context, p *model.Principal, reference string) ([]*model.TradeDocument, error) {
	inst, err := s.lookup.find(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !s.policy.Resolver().CanView(p, inst) {
		return nil, apperr.Unauthorized(p.Name(), "documents of "+reference)
	}
	return s.repo.ListByTradeReference(ctx, inst.Reference())
}

// ListPendingReview 柜员待审单据
func (s *DocumentService) ListPendingReview(ctx context.Context, p *model.Principal) ([]*model.TradeDocument, error) {
	if !s.policy.Allowed(p, access.ObjDocument, access.ActApprove) {
		return nil, apperr.Unauthorized(p.Name(), "pending documents")
	}
	return s.repo.ListByStatus(ctx, model.DocStatusPendingReview)
}

// UpdateDocumentRequest 修改单据信息
type UpdateDocumentRequest struct {
	DocumentType string `json:"document_type" validate:"required,max=50"`
	Description  string `json:"description" validate:"max=2000"`
}

func (s *DocumentService) UpdateDetails(ctx context.Context, p *model.Principal, id uint64, req *UpdateDocumentRequest) (*model.TradeDocument, error) {
	return s.transition(ctx, p, id, access.ActUpdate, "update", "", func(d *model.TradeDocument, now time.Time) error {
		if err := validateRequest(req); err != nil {
			return err
		}
		d.UpdateDetails(req.DocumentType, req.Description, now)
		return nil
	})
}

func (s *DocumentService) SubmitForReview(ctx context.Context, p *model.Principal, id uint64) (*model.TradeDocument, error) {
	return s.transition(ctx, p, id, access.ActSubmit, model.DocActionSubmit, "", func(d *model.TradeDocument, now time.Time) error {
		d.SubmitForReview(now)
		return nil
	})
}

func (s *DocumentService) Approve(ctx context.Context, p *model.Principal, id uint64) (*model.TradeDocument, error) {
	return s.transition(ctx, p, id, access.ActApprove, model.DocActionApprove, "", func(d *model.TradeDocument, now time.Time) error {
		d.Approve(now)
		return nil
	})
}

func (s *DocumentService) Reject(ctx context.Context, p *model.Principal, id uint64, reason string) (*model.TradeDocument, error) {
	return s.transition(ctx, p, id, access.ActReject, model.DocActionReject, reason, func(d *model.TradeDocument, now time.Time) error {
		d.Reject(reason, now)
		return nil
	})
}

func (s *DocumentService) Archive(ctx context.Context, p *model.Principal, id uint64) (*model.TradeDocument, error) {
	return s.transition(ctx, p, id, access.ActArchive, model.DocActionArchive, "", func(d *model.TradeDocument, now time.Time) error {
		d.Archive(now)
		return nil
	})
}

// Delete 先删文件再删记录，文件不存在不算错误
func (s *DocumentService) Delete(ctx context.Context, p *model.Principal, id uint64) error {
	doc, inst, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.AuthorizeDocument(p, access.ActDelete, doc, inst); err != nil {
		return err
	}
	if err := s.store.Delete(doc.FilePath); err != nil {
		return fmt.Errorf("删除单据文件失败: %w", err)
	}
	err = s.repo.Delete(ctx, id)
	s.rt.Metrics.Transition(model.EntityDocument, "delete", outcome(err))
	s.rt.logResult(err, "【单据】删除", "reference", doc.ReferenceNumber, "user", p.Name())
	return err
}

func (s *DocumentService) transition(ctx context.Context, p *model.Principal, id uint64, act, op, reason string,
	apply func(d *model.TradeDocument, now time.Time) error) (*model.TradeDocument, error) {

	doc, inst, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.AuthorizeDocument(p, act, doc, inst); err != nil {
		s.rt.Metrics.Transition(model.EntityDocument, op, outcome(err))
		s.rt.logResult(err, "【单据】操作被拒绝", "reference", doc.ReferenceNumber, "action", op, "user", p.Name())
		return nil, err
	}

	var from model.DocumentStatus
	err = s.rt.locked(ctx, doc.ReferenceNumber, func() error {
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
			change = model.NewStatusChange(model.EntityDocument, fresh.ReferenceNumber, string(from), string(fresh.Status), op, p.Name(), reason, now)
		}
		if err := s.repo.Update(ctx, fresh, from, change); err != nil {
			return err
		}
		doc = fresh
		return nil
	})
	s.rt.Metrics.Transition(model.EntityDocument, op, outcome(err))
	s.rt.logResult(err, "【单据】状态流转", "reference", doc.ReferenceNumber, "action", op, "from", from, "to", doc.Status, "user", p.Name())
	if err != nil {
		return nil, err
	}
	return doc, nil
}
