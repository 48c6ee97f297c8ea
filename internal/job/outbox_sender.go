package job

import (
	"context"
	"log/slog"
	"time"

	"tfms/internal/model"
)

// OutboxStore 待投递消息的读写，由 repository.OutboxRepository 实现
type OutboxStore interface {
	Pending(ctx context.Context, limit int) ([]*model.OutboxMessage, error)
	MarkSent(ctx context.Context, id int64) error
	RecordFailure(ctx context.Context, id int64, maxRetry int) (bool, error)
}

// Publisher 消息投递，由 mq.Producer 实现
type Publisher interface {
	Publish(ctx context.Context, topic, key, value string) error
}

// OutboxSender 定时把本地消息表中的生命周期事件投递到 Kafka
type OutboxSender struct {
	store     OutboxStore
	publisher Publisher
	log       *slog.Logger
	stopCh    chan struct{}
	interval  time.Duration
	batchSize int
	maxRetry  int
}

func NewOutboxSender(store OutboxStore, publisher Publisher, log *slog.Logger, interval time.Duration, batchSize, maxRetry int) *OutboxSender {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxRetry <= 0 {
		maxRetry = 1
	}
	return &OutboxSender{
		store:     store,
		publisher: publisher,
		log:       log.With("job", "outbox_sender"),
		stopCh:    make(chan struct{}),
		interval:  interval,
		batchSize: batchSize,
		maxRetry:  maxRetry,
	}
}

// Start 阻塞运行，直到 ctx 取消或调用 Stop
func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info("【OutboxSender】消息发送任务启动", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("【OutboxSender】收到停止信号，任务退出")
			return
		case <-s.stopCh:
			s.log.Info("【OutboxSender】任务停止")
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

// Flush 投递一批待发送消息，返回成功条数。
// 同一参考号的消息发送失败后，本批次内不再发送它后面的消息，保证事件顺序。
func (s *OutboxSender) Flush(ctx context.Context) int {
	messages, err := s.store.Pending(ctx, s.batchSize)
	if err != nil {
		s.log.Error("【OutboxSender】查询消息失败", "error", err)
		return 0
	}

	sent := 0
	blocked := map[string]bool{}
	for _, msg := range messages {
		if blocked[msg.MessageKey] {
			continue
		}
		if s.send(ctx, msg) {
			sent++
		} else {
			blocked[msg.MessageKey] = true
		}
	}
	return sent
}

func (s *OutboxSender) send(ctx context.Context, msg *model.OutboxMessage) bool {
	err := s.publisher.Publish(ctx, msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if updateErr := s.store.MarkSent(ctx, msg.ID); updateErr != nil {
			s.log.Error("【OutboxSender】更新消息状态失败", "id", msg.ID, "error", updateErr)
			return false
		}
		s.log.Debug("【OutboxSender】消息发送成功", "id", msg.ID, "topic", msg.Topic, "key", msg.MessageKey)
		return true
	}

	s.log.Warn("【OutboxSender】消息发送失败", "id", msg.ID, "key", msg.MessageKey, "error", err)

	failed, ferr := s.store.RecordFailure(ctx, msg.ID, s.maxRetry)
	if ferr != nil {
		s.log.Error("【OutboxSender】记录失败次数失败", "id", msg.ID, "error", ferr)
		return false
	}
	if failed {
		s.log.Error("【OutboxSender】消息超过最大重试次数，标记为失败", "id", msg.ID, "retry", s.maxRetry)
	}
	return false
}
