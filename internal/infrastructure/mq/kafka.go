package mq

import (
	"context"
	"fmt"
	"log/slog"

	"tfms/internal/config"

	"github.com/IBM/sarama"
)

// Producer 同步生产者，供 outbox 投递使用
type Producer struct {
	producer sarama.SyncProducer
	log      *slog.Logger
}

// NewSaramaConfig 等待所有副本确认，失败重试 3 次
func NewSaramaConfig() *sarama.Config {
	c := sarama.NewConfig()
	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Retry.Max = 3
	c.Producer.Return.Successes = true
	c.Producer.Partitioner = sarama.NewHashPartitioner
	return c
}

func NewProducer(cfg *config.KafkaConfig, log *slog.Logger) (*Producer, error) {
	p, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("创建 Kafka 生产者失败: %w", err)
	}
	log.Info("【Kafka】生产者创建成功", "brokers", cfg.Brokers)
	return WrapProducer(p, log), nil
}

// WrapProducer 包装已有的 SyncProducer，测试中传入 mocks.SyncProducer
func WrapProducer(p sarama.SyncProducer, log *slog.Logger) *Producer {
	return &Producer{producer: p, log: log}
}

// Publish 按参考号做 key，同一笔交易落在同一分区
func (p *Producer) Publish(ctx context.Context, topic, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.StringEncoder(value),
	})
	if err != nil {
		return err
	}
	p.log.Debug("【Kafka】消息已发送", "topic", topic, "key", key, "partition", partition, "offset", offset)
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
