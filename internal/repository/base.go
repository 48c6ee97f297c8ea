package repository

import (
	"context"
	"errors"
	"strings"

	"tfms/internal/apperr"
	"tfms/internal/model"

	"gorm.io/gorm"
)

// findOne 查询单条记录，不存在时返回 *apperr.NotFoundError
func findOne[T any](q *gorm.DB, entity, field string, value any) (*T, error) {
	var v T
	if err := q.First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(entity, field, value)
		}
		return nil, err
	}
	return &v, nil
}

// casUpdate 以 status 为条件整行更新并在同一事务内写入审计和出站消息。
// 影响行数为 0 时区分记录不存在和状态已被改写。
func casUpdate(ctx context.Context, db *gorm.DB, journal *Journal, row any, entity string, id uint64, expected string, change *model.StatusChange) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(row).
			Where("id = ? AND status = ?", id, expected).
			Select("*").
			Omit("id", "created_at").
			Updates(row)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var n int64
			if err := tx.Model(row).Where("id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return apperr.NotFound(entity, "id", id)
			}
			return apperr.ErrConcurrentUpdate
		}
		return journal.Record(ctx, tx, change)
	})
}

// createWithChange 插入实体和创建审计记录
func createWithChange(ctx context.Context, db *gorm.DB, journal *Journal, row any, change *model.StatusChange) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		return journal.Record(ctx, tx, change)
	})
}

// deleteByID 物理删除，不存在时返回 NotFound
func deleteByID(ctx context.Context, db *gorm.DB, row any, entity string, id uint64) error {
	result := db.WithContext(ctx).Where("id = ?", id).Delete(row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound(entity, "id", id)
	}
	return nil
}

// countBy 按列分组计数
func countBy[K ~string](ctx context.Context, db *gorm.DB, row any, column string) (map[K]int64, error) {
	var rows []struct {
		Grp   string
		Total int64
	}
	err := db.WithContext(ctx).Model(row).
		Select(column + " AS grp, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[K]int64, len(rows))
	for _, r := range rows {
		counts[K(r.Grp)] = r.Total
	}
	return counts, nil
}

// normalizedNames 受益人匹配忽略大小写和首尾空格
func normalizedNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			out = append(out, n)
		}
	}
	return out
}
