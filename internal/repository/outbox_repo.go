package repository

import (
	"context"

	"tfms/internal/model"

	"gorm.io/gorm"
)

// OutboxRepository 生命周期消息的本地消息表
type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Create tx 不为空时在调用方事务内写入
func (r *OutboxRepository) Create(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(msg).Error
}

// Pending 按写入顺序取待投递消息，同一参考号的事件保持先后
func (r *OutboxRepository) Pending(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	var messages []*model.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ?", model.OutboxStatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ? AND status = ?", id, model.OutboxStatusPending).
		Update("status", model.OutboxStatusSent).Error
}

// RecordFailure 重试次数加一，达到 maxRetry 时标记为 FAILED，返回是否已放弃投递
func (r *OutboxRepository) RecordFailure(ctx context.Context, id int64, maxRetry int) (bool, error) {
	var failed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg := &model.OutboxMessage{}
		if err := tx.Where("id = ?", id).First(msg).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{"retry_count": gorm.Expr("retry_count + 1")}
		if msg.RetryCount+1 >= maxRetry {
			updates["status"] = model.OutboxStatusFailed
			failed = true
		}
		return tx.Model(msg).Updates(updates).Error
	})
	return failed, err
}

// Failed 已放弃投递的消息，供人工补发
func (r *OutboxRepository) Failed(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	var messages []*model.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ?", model.OutboxStatusFailed).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// Requeue 把 FAILED 消息重置为 PENDING
func (r *OutboxRepository) Requeue(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id IN ? AND status = ?", ids, model.OutboxStatusFailed).
		Updates(map[string]interface{}{"status": model.OutboxStatusPending, "retry_count": 0})
	return res.RowsAffected, res.Error
}
