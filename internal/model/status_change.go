package model

import "time"

// StatusChange 状态流转审计记录，与 description/purpose 中的原因串并存
type StatusChange struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType      string    `gorm:"type:varchar(30);index:idx_entity_ref;not null" json:"entity_type"`
	ReferenceNumber string    `gorm:"type:varchar(50);index:idx_entity_ref;not null" json:"reference_number"`
	FromStatus      string    `gorm:"type:varchar(30)" json:"from_status"`
	ToStatus        string    `gorm:"type:varchar(30);not null" json:"to_status"`
	Action          string    `gorm:"type:varchar(50);not null" json:"action"`
	ChangedBy       string    `gorm:"type:varchar(50)" json:"changed_by"`
	Reason          string    `gorm:"type:varchar(500)" json:"reason,omitempty"`
	ChangedAt       time.Time `gorm:"index" json:"changed_at"`
}

func (StatusChange) TableName() string {
	return "status_change_audit"
}

func NewStatusChange(entity, reference, from, to, action, changedBy, reason string, now time.Time) *StatusChange {
	return &StatusChange{
		EntityType:      entity,
		ReferenceNumber: reference,
		FromStatus:      from,
		ToStatus:        to,
		Action:          action,
		ChangedBy:       changedBy,
		Reason:          reason,
		ChangedAt:       now,
	}
}
