package repository

import (
	"context"

	"tfms/internal/model"

	"gorm.io/gorm"
)

type LCRepository struct {
	db      *gorm.DB
	journal *Journal
}

func NewLCRepository(db *gorm.DB, journal *Journal) *LCRepository {
	return &LCRepository{db: db, journal: journal}
}

func (r *LCRepository) Create(ctx context.Context, lc *model.LetterOfCredit, change *model.StatusChange) error {
	return createWithChange(ctx, r.db, r.journal, lc, change)
}

func (r *LCRepository) Update(ctx context.Context, lc *model.LetterOfCredit, expected model.LCStatus, change *model.StatusChange) error {
	return casUpdate(ctx, r.db, r.journal, lc, model.EntityLC, lc.ID, string(expected), change)
}

func (r *LCRepository) GetByID(ctx context.Context, id uint64) (*model.LetterOfCredit, error) {
	return findOne[model.LetterOfCredit](r.db.WithContext(ctx).Where("id = ?", id), model.EntityLC, "id", id)
}

func (r *LCRepository) GetByReference(ctx context.Context, reference string) (*model.LetterOfCredit, error) {
	return findOne[model.LetterOfCredit](r.db.WithContext(ctx).Where("reference_number = ?", reference),
		model.EntityLC, "referenceNumber", reference)
}

func (r *LCRepository) ListAll(ctx context.Context) ([]*model.LetterOfCredit, error) {
	var lcs []*model.LetterOfCredit
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&lcs).Error
	return lcs, err
}

func (r *LCRepository) ListByStatus(ctx context.Context, statuses ...model.LCStatus) ([]*model.LetterOfCredit, error) {
	var lcs []*model.LetterOfCredit
	if len(statuses) == 0 {
		return lcs, nil
	}
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at DESC, id DESC").
		Find(&lcs).Error
	return lcs, err
}

func (r *LCRepository) ListByCreatedBy(ctx context.Context, username string) ([]*model.LetterOfCredit, error) {
	var lcs []*model.LetterOfCredit
	err := r.db.WithContext(ctx).
		Where("created_by = ?", username).
		Order("created_at DESC, id DESC").
		Find(&lcs).Error
	return lcs, err
}

func (r *LCRepository) ListByBeneficiary(ctx context.Context, names ...string) ([]*model.LetterOfCredit, error) {
	var lcs []*model.LetterOfCredit
	names = normalizedNames(names)
	if len(names) == 0 {
		return lcs, nil
	}
	err := r.db.WithContext(ctx).
		Where("LOWER(TRIM(beneficiary_name)) IN ?", names).
		Order("created_at DESC, id DESC").
		Find(&lcs).Error
	return lcs, err
}

func (r *LCRepository) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, &model.LetterOfCredit{}, model.EntityLC, id)
}

func (r *LCRepository) CountByStatus(ctx context.Context) (map[model.LCStatus]int64, error) {
	return countBy[model.LCStatus](ctx, r.db, &model.LetterOfCredit{}, "status")
}
