package repository

import (
	"context"

	"tfms/internal/model"

	"gorm.io/gorm"
)

type BGRepository struct {
	db      *gorm.DB
	journal *Journal
}

func NewBGRepository(db *gorm.DB, journal *Journal) *BGRepository {
	return &BGRepository{db: db, journal: journal}
}

func (r *BGRepository) Create(ctx context.Context, bg *model.BankGuarantee, change *model.StatusChange) error {
	return createWithChange(ctx, r.db, r.journal, bg, change)
}

func (r *BGRepository) Update(ctx context.Context, bg *model.BankGuarantee, expected model.GuaranteeStatus, change *model.StatusChange) error {
	return casUpdate(ctx, r.db, r.journal, bg, model.EntityBG, bg.ID, string(expected), change)
}

func (r *BGRepository) GetByID(ctx context.Context, id uint64) (*model.BankGuarantee, error) {
	return findOne[model.BankGuarantee](r.db.WithContext(ctx).Where("id = ?", id), model.EntityBG, "id", id)
}

func (r *BGRepository) GetByReference(ctx context.Context, reference string) (*model.BankGuarantee, error) {
	return findOne[model.BankGuarantee](r.db.WithContext(ctx).Where("reference_number = ?", reference),
		model.EntityBG, "referenceNumber", reference)
}

func (r *BGRepository) ListAll(ctx context.Context) ([]*model.BankGuarantee, error) {
	var bgs []*model.BankGuarantee
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&bgs).Error
	return bgs, err
}

func (r *BGRepository) ListByStatus(ctx context.Context, statuses ...model.GuaranteeStatus) ([]*model.BankGuarantee, error) {
	var bgs []*model.BankGuarantee
	if len(statuses) == 0 {
		return bgs, nil
	}
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at DESC, id DESC").
		Find(&bgs).Error
	return bgs, err
}

func (r *BGRepository) ListByCreatedBy(ctx context.Context, username string) ([]*model.BankGuarantee, error) {
	var bgs []*model.BankGuarantee
	err := r.db.WithContext(ctx).
		Where("created_by = ?", username).
		Order("created_at DESC, id DESC").
		Find(&bgs).Error
	return bgs, err
}

func (r *BGRepository) ListByBeneficiary(ctx context.Context, names ...string) ([]*model.BankGuarantee, error) {
	var bgs []*model.BankGuarantee
	names = normalizedNames(names)
	if len(names) == 0 {
		return bgs, nil
	}
	err := r.db.WithContext(ctx).
		Where("LOWER(TRIM(beneficiary_name)) IN ?", names).
		Order("created_at DESC, id DESC").
		Find(&bgs).Error
	return bgs, err
}

func (r *BGRepository) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, &model.BankGuarantee{}, model.EntityBG, id)
}

func (r *BGRepository) CountByStatus(ctx context.Context) (map[model.GuaranteeStatus]int64, error) {
	return countBy[model.GuaranteeStatus](ctx, r.db, &model.BankGuarantee{}, "status")
}
