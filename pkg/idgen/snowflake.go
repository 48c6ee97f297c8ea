package idgen

import (
	"fmt"
	"sync"
	"time"
)

// ============================================================================
// 雪花算法 ID 生成器
// ============================================================================
//
// 参考号要求全局唯一且趋势递增，多实例部署时用 workerID 区分节点。
//
//   0 - 41位时间戳 - 10位机器ID - 12位序列号
//
// ============================================================================

const (
	epoch          = int64(1704067200000) // 2024-01-01 00:00:00 UTC
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

// Snowflake 雪花算法ID生成器
type Snowflake struct {
	mu        sync.Mutex
	now       func() time.Time
	timestamp int64
	workerID  int64
	sequence  int64
}

func NewSnowflake(workerID int64) (*Snowflake, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("workerID 必须在 0-%d 之间", maxWorkerID)
	}
	return &Snowflake{workerID: workerID, now: time.Now}, nil
}

// Generate 生成ID，同一毫秒内序列号用完时等待下一毫秒
func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixMilli()
	if now < s.timestamp {
		// 时钟回拨时沿用上一次的时间戳
		now = s.timestamp
	}

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			for now <= s.timestamp {
				time.Sleep(time.Millisecond / 10)
				now = s.now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	return ((now - epoch) << timestampShift) |
		(s.workerID << workerIDShift) |
		s.sequence
}

// References 生成交易参考号
// 格式：前缀 + 年月日时分秒 + 雪花ID后8位，例如 LC2026031009300012345678
type References struct {
	ids *Snowflake
	now func() time.Time
}

func NewReferences(ids *Snowflake) *References {
	return &References{ids: ids, now: time.Now}
}

func (r *References) generate(prefix string) string {
	id := r.ids.Generate()
	return fmt.Sprintf("%s%s%08d", prefix, r.now().Format("20060102150405"), id%100000000)
}

func (r *References) LC() string       { return r.generate("LC") }
func (r *References) BG() string       { return r.generate("BG") }
func (r *References) Document() string { return r.generate("DOC") }
