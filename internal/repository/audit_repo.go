package repository

import (
	"context"
	"fmt"

	"tfms/internal/model"

	"gorm.io/gorm"
)

// Journal 审计记录和生命周期出站消息，始终写在调用方的事务里
type Journal struct {
	outbox *OutboxRepository
	topic  string
}

// NewJournal topic 为空时只写审计，不产生出站消息
func NewJournal(outbox *OutboxRepository, topic string) *Journal {
	return &Journal{outbox: outbox, topic: topic}
}

func (j *Journal) Record(ctx context.Context, tx *gorm.DB, change *model.StatusChange) error {
	if change == nil {
		return nil
	}
	if err := tx.WithContext(ctx).Create(change).Error; err != nil {
		return fmt.Errorf("写入审计记录失败: %w", err)
	}
	if j == nil || j.topic == "" || j.outbox == nil {
		return nil
	}
	msg, err := model.NewLifecycleOutbox(j.topic, change)
	if err != nil {
		return err
	}
	if err := j.outbox.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("写入出站消息失败: %w", err)
	}
	return nil
}

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// ListByReference 按发生时间升序
func (r *AuditRepository) ListByReference(ctx context.Context, reference string) ([]*model.StatusChange, error) {
	var changes []*model.StatusChange
	err := r.db.WithContext(ctx).
		Where("reference_number = ?", reference).
		Order("changed_at ASC, id ASC").
		Find(&changes).Error
	return changes, err
}
