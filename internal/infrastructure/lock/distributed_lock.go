package lock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ============================================================================
// 按参考号加的分布式锁
// ============================================================================
//
// 同一笔信用证/保函的"读取-校验-写回"必须串行，否则两个审批请求可能同时
// 通过状态守卫。数据库层的 CAS 只能发现冲突，锁让冲突尽量不发生。
//
// 加锁：SET key value NX PX ttl，value 为每次加锁生成的 uuid
// 释放：Lua 脚本比较 value 后删除，锁过期后被别人拿到时不会误删
//
// ============================================================================

var ErrLockFailed = errors.New("获取分布式锁失败")

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// DistributedLock 单次加锁的句柄
type DistributedLock struct {
	client     redis.UniversalClient
	key        string
	value      string
	expiration time.Duration
}

func NewDistributedLock(client redis.UniversalClient, key string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      uuid.NewString(),
		expiration: expiration,
	}
}

// TryLock 非阻塞加锁
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock 按固定间隔重试，ctx 结束时返回 ctx.Err()
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		ok, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 只删除自己持有的锁，返回是否真的删除了
func (l *DistributedLock) Unlock(ctx context.Context) (bool, error) {
	n, err := unlockScript.Run(ctx, l.client, []string{l.key}, l.value).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RedisLocker 实现 service.Locker
type RedisLocker struct {
	client        redis.UniversalClient
	ttl           time.Duration
	retryInterval time.Duration
	maxRetries    int
	log           *slog.Logger
}

func NewRedisLocker(client redis.UniversalClient, ttl, retryInterval time.Duration, maxRetries int, log *slog.Logger) *RedisLocker {
	if log == nil {
		log = slog.Default()
	}
	return &RedisLocker{
		client:        client,
		ttl:           ttl,
		retryInterval: retryInterval,
		maxRetries:    maxRetries,
		log:           log,
	}
}

// Acquire 拿不到锁时返回 ErrLockFailed 或 ctx 的错误
func (r *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l := NewDistributedLock(r.client, key, r.ttl)
	if err := l.Lock(ctx, r.retryInterval, r.maxRetries); err != nil {
		return nil, err
	}
	return func() {
		// 请求 ctx 可能已取消，释放锁用独立的超时
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		released, err := l.Unlock(ctx)
		if err != nil {
			r.log.Error("【分布式锁】释放失败", "key", key, "error", err)
			return
		}
		if !released {
			r.log.Warn("【分布式锁】锁已过期，业务执行时间超过 TTL", "key", key, "ttl", r.ttl)
		}
	}, nil
}
