package repository

import (
	"context"

	"tfms/internal/apperr"
	"tfms/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// complianceColumns 重复检查时覆盖的列
var complianceColumns = []string{
	"transaction_type",
	"compliance_status",
	"documents_validated",
	"risk_check_passed",
	"party_check_passed",
	"country_check_passed",
	"remarks",
	"report_date",
	"reviewed_by",
	"review_date",
	"updated_at",
}

type ComplianceRepository struct {
	db *gorm.DB
}

func NewComplianceRepository(db *gorm.DB) *ComplianceRepository {
	return &ComplianceRepository{db: db}
}

// Upsert 以 transaction_reference 唯一键插入或覆盖，完成后回填已存在记录的 ID 和创建时间
func (r *ComplianceRepository) Upsert(ctx context.Context, c *model.Compliance) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_reference"}},
			DoUpdates: clause.AssignmentColumns(complianceColumns),
		}).Create(c).Error
		if err != nil {
			return err
		}
		var stored model.Compliance
		if err := tx.Select("id", "created_at").
			Where("transaction_reference = ?", c.TransactionReference).
			First(&stored).Error; err != nil {
			return err
		}
		c.ID = stored.ID
		c.CreatedAt = stored.CreatedAt
		return nil
	})
}

func (r *ComplianceRepository) Save(ctx context.Context, c *model.Compliance) error {
	result := r.db.WithContext(ctx).Model(c).
		Where("id = ?", c.ID).
		Select(complianceColumns).
		Updates(c)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound(model.EntityCompliance, "id", c.ID)
	}
	return nil
}

func (r *ComplianceRepository) GetByID(ctx context.Context, id uint64) (*model.Compliance, error) {
	return findOne[model.Compliance](r.db.WithContext(ctx).Where("id = ?", id), model.EntityCompliance, "id", id)
}

func (r *ComplianceRepository) GetByReference(ctx context.Context, reference string) (*model.Compliance, error) {
	return findOne[model.Compliance](r.db.WithContext(ctx).Where("transaction_reference = ?", reference),
		model.EntityCompliance, "transactionReference", reference)
}

func (r *ComplianceRepository) ListAll(ctx context.Context) ([]*model.Compliance, error) {
	var list []*model.Compliance
	err := r.db.WithContext(ctx).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *ComplianceRepository) ListByStatus(ctx context.Context, status model.ComplianceStatus) ([]*model.Compliance, error) {
	var list []*model.Compliance
	err := r.db.WithContext(ctx).
		Where("compliance_status = ?", status).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *ComplianceRepository) CountByStatus(ctx context.Context) (map[model.ComplianceStatus]int64, error) {
	return countBy[model.ComplianceStatus](ctx, r.db, &model.Compliance{}, "compliance_status")
}

func (r *ComplianceRepository) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, &model.Compliance{}, model.EntityCompliance, id)
}
