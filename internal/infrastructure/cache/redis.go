package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tfms/internal/config"

	"github.com/go-redis/redis/v8"
)

// NewRedis 创建客户端并 Ping 一次，连不上直接返回错误
func NewRedis(cfg *config.RedisConfig, log *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	log.Info("【Redis】连接成功", "addr", cfg.Addr(), "db", cfg.DB)
	return client, nil
}
