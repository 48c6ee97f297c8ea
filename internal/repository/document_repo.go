package repository

import (
	"context"

	"tfms/internal/model"

	"gorm.io/gorm"
)

type DocumentRepository struct {
	db      *gorm.DB
	journal *Journal
}

func NewDocumentRepository(db *gorm.DB, journal *Journal) *DocumentRepository {
	return &DocumentRepository{db: db, journal: journal}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.TradeDocument, change *model.StatusChange) error {
	return createWithChange(ctx, r.db, r.journal, doc, change)
}

func (r *DocumentRepository) Update(ctx context.Context, doc *model.TradeDocument, expected model.DocumentStatus, change *model.StatusChange) error {
	return casUpdate(ctx, r.db, r.journal, doc, model.EntityDocument, doc.ID, string(expected), change)
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uint64) (*model.TradeDocument, error) {
	return findOne[model.TradeDocument](r.db.WithContext(ctx).Where("id = ?", id), model.EntityDocument, "id", id)
}

func (r *DocumentRepository) GetByReference(ctx context.Context, reference string) (*model.TradeDocument, error) {
	return findOne[model.TradeDocument](r.db.WithContext(ctx).Where("reference_number = ?", reference),
		model.EntityDocument, "referenceNumber", reference)
}

func (r *DocumentRepository) ListAll(ctx context.Context) ([]*model.TradeDocument, error) {
	var docs []*model.TradeDocument
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&docs).Error
	return docs, err
}

func (r *DocumentRepository) ListByStatus(ctx context.Context, status model.DocumentStatus) ([]*model.TradeDocument, error) {
	var docs []*model.TradeDocument
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC, id DESC").
		Find(&docs).Error
	return docs, err
}

func (r *DocumentRepository) ListByUploadedBy(ctx context.Context, username string) ([]*model.TradeDocument, error) {
	var docs []*model.TradeDocument
	err := r.db.WithContext(ctx).
		Where("uploaded_by = ?", username).
		Order("created_at DESC, id DESC").
		Find(&docs).Error
	return docs, err
}

func (r *DocumentRepository) ListByTradeReference(ctx context.Context, references ...string) ([]*model.TradeDocument, error) {
	var docs []*model.TradeDocument
	if len(references) == 0 {
		return docs, nil
	}
	err := r.db.WithContext(ctx).
		Where("trade_reference_number IN ?", references).
		Order("created_at DESC, id DESC").
		Find(&docs).Error
	return docs, err
}

func (r *DocumentRepository) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, &model.TradeDocument{}, model.EntityDocument, id)
}

func (r *DocumentRepository) CountByStatus(ctx context.Context) (map[model.DocumentStatus]int64, error) {
	return countBy[model.DocumentStatus](ctx, r.db, &model.TradeDocument{}, "status")
}
