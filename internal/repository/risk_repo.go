package repository

import (
	"context"

	"tfms/internal/apperr"
	"tfms/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RiskRepository struct {
	db *gorm.DB
}

func NewRiskRepository(db *gorm.DB) *RiskRepository {
	return &RiskRepository{db: db}
}

func (r *RiskRepository) Create(ctx context.Context, ra *model.RiskAssessment) error {
	return r.db.WithContext(ctx).Create(ra).Error
}

func (r *RiskRepository) Save(ctx context.Context, ra *model.RiskAssessment) error {
	result := r.db.WithContext(ctx).Model(ra).
		Where("id = ?", ra.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(ra)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound(model.EntityRisk, "id", ra.ID)
	}
	return nil
}

func (r *RiskRepository) GetByID(ctx context.Context, id uint64) (*model.RiskAssessment, error) {
	return findOne[model.RiskAssessment](r.db.WithContext(ctx).Where("id = ?", id), model.EntityRisk, "id", id)
}

func (r *RiskRepository) Latest(ctx context.Context, reference string) (*model.RiskAssessment, error) {
	return findOne[model.RiskAssessment](r.db.WithContext(ctx).
		Where("transaction_reference = ?", reference).
		Order("assessment_date DESC, id DESC"),
		model.EntityRisk, "transactionReference", reference)
}

func (r *RiskRepository) ListAll(ctx context.Context) ([]*model.RiskAssessment, error) {
	var list []*model.RiskAssessment
	err := r.db.WithContext(ctx).Order("assessment_date DESC, id DESC").Find(&list).Error
	return list, err
}

func (r *RiskRepository) ListByReference(ctx context.Context, reference string) ([]*model.RiskAssessment, error) {
	var list []*model.RiskAssessment
	err := r.db.WithContext(ctx).
		Where("transaction_reference = ?", reference).
		Order("assessment_date DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (r *RiskRepository) ListByLevel(ctx context.Context, levels ...model.RiskLevel) ([]*model.RiskAssessment, error) {
	var list []*model.RiskAssessment
	if len(levels) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Where("risk_level IN ?", levels).
		Order("assessment_date DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (r *RiskRepository) CountByLevel(ctx context.Context) (map[model.RiskLevel]int64, error) {
	return countBy[model.RiskLevel](ctx, r.db, &model.RiskAssessment{}, "risk_level")
}

// AverageScore 没有评估记录时为 0
func (r *RiskRepository) AverageScore(ctx context.Context) (decimal.Decimal, error) {
	var avg decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&model.RiskAssessment{}).
		Select("AVG(risk_score)").
		Row().
		Scan(&avg)
	if err != nil {
		return decimal.Zero, err
	}
	if !avg.Valid {
		return decimal.Zero, nil
	}
	return avg.Decimal.Round(2), nil
}

func (r *RiskRepository) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, &model.RiskAssessment{}, model.EntityRisk, id)
}
