package model

import (
	"encoding/json"
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// OutboxMessage 本地消息表，和状态变更在同一个事务中写入，由 job 投递到 Kafka
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// LifecycleEvent 生命周期事件，消息 key 为参考号，保证同一笔交易有序
type LifecycleEvent struct {
	EventType       string    `json:"event_type"`
	EntityType      string    `json:"entity_type"`
	ReferenceNumber string    `json:"reference_number"`
	FromStatus      string    `json:"from_status"`
	ToStatus        string    `json:"to_status"`
	Action          string    `json:"action"`
	ChangedBy       string    `json:"changed_by"`
	Reason          string    `json:"reason,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

const EventStatusChanged = "STATUS_CHANGED"

// NewLifecycleOutbox 根据审计记录生成待投递消息
func NewLifecycleOutbox(topic string, change *StatusChange) (*OutboxMessage, error) {
	payload, err := json.Marshal(LifecycleEvent{
		EventType:       EventStatusChanged,
		EntityType:      change.EntityType,
		ReferenceNumber: change.ReferenceNumber,
		FromStatus:      change.FromStatus,
		ToStatus:        change.ToStatus,
		Action:          change.Action,
		ChangedBy:       change.ChangedBy,
		Reason:          change.Reason,
		OccurredAt:      change.ChangedAt,
	})
	if err != nil {
		return nil, err
	}
	return &OutboxMessage{
		MessageKey: change.ReferenceNumber,
		Topic:      topic,
		Payload:    string(payload),
		Status:     OutboxStatusPending,
		CreatedAt:  change.ChangedAt,
		UpdatedAt:  change.ChangedAt,
	}, nil
}
