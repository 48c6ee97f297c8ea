package service

import (
	"context"
	"io"
	"time"

	"tfms/internal/model"

	"github.com/shopspring/decimal"
)

// ============================================================================
// 仓储端口
// ============================================================================
//
// 约定：
//   - 查询不到时返回 *apperr.NotFoundError
//   - Create/Update 的 change 不为 nil 时，审计记录和生命周期消息与实体写在同一个事务里
//   - Update 以 expected 状态做 CAS，状态已被改写时返回 apperr.ErrConcurrentUpdate
// ============================================================================

type LCRepository interface {
	Create(ctx context.Context, lc *model.LetterOfCredit, change *model.StatusChange) error
	Update(ctx context.Context, lc *model.LetterOfCredit, expected model.LCStatus, change *model.StatusChange) error
	GetByID(ctx context.Context, id uint64) (*model.LetterOfCredit, error)
	GetByReference(ctx context.Context, reference string) (*model.LetterOfCredit, error)
	ListAll(ctx context.Context) ([]*model.LetterOfCredit, error)
	ListByStatus(ctx context.Context, statuses ...model.LCStatus) ([]*model.LetterOfCredit, error)
	ListByCreatedBy(ctx context.Context, username string) ([]*model.LetterOfCredit, error)
	ListByBeneficiary(ctx context.Context, names ...string) ([]*model.LetterOfCredit, error)
	Delete(ctx context.Context, id uint64) error
	CountByStatus(ctx context.Context) (map[model.LCStatus]int64, error)
}

type BGRepository interface {
	Create(ctx context.Context, bg *model.BankGuarantee, change *model.StatusChange) error
	Update(ctx context.Context, bg *model.BankGuarantee, expected model.GuaranteeStatus, change *model.StatusChange) error
	GetByID(ctx context.Context, id uint64) (*model.BankGuarantee, error)
	GetByReference(ctx context.Context, reference string) (*model.BankGuarantee, error)
	ListAll(ctx context.Context) ([]*model.BankGuarantee, error)
	ListByStatus(ctx context.Context, statuses ...model.GuaranteeStatus) ([]*model.BankGuarantee, error)
	ListByCreatedBy(ctx context.Context, username string) ([]*model.BankGuarantee, error)
	ListByBeneficiary(ctx context.Context, names ...string) ([]*model.BankGuarantee, error)
	Delete(ctx context.Context, id uint64) error
	CountByStatus(ctx context.Context) (map[model.GuaranteeStatus]int64, error)
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.TradeDocument, change *model.StatusChange) error
	Update(ctx context.Context, doc *model.TradeDocument, expected model.DocumentStatus, change *model.StatusChange) error
	GetByID(ctx context.Context, id uint64) (*model.TradeDocument, error)
	GetByReference(ctx context.Context, reference string) (*model.TradeDocument, error)
	ListAll(ctx context.Context) ([]*model.TradeDocument, error)
	ListByStatus(ctx context.Context, status model.DocumentStatus) ([]*model.TradeDocument, error)
	ListByUploadedBy(ctx context.Context, username string) ([]*model.TradeDocument, error)
	ListByTradeReference(ctx context.Context, references ...string) ([]*model.TradeDocument, error)
	Delete(ctx context.Context, id uint64) error
	CountByStatus(ctx context.Context) (map[model.DocumentStatus]int64, error)
}

type RiskRepository interface {
	Create(ctx context.Context, ra *model.RiskAssessment) error
	Save(ctx context.Context, ra *model.RiskAssessment) error
	GetByID(ctx context.Context, id uint64) (*model.RiskAssessment, error)
	// Latest 最新一条评估，按评估时间倒序、ID 倒序
	Latest(ctx context.Context, reference string) (*model.RiskAssessment, error)
	ListAll(ctx context.Context) ([]*model.RiskAssessment, error)
	ListByReference(ctx context.Context, reference string) ([]*model.RiskAssessment, error)
	ListByLevel(ctx context.Context, levels ...model.RiskLevel) ([]*model.RiskAssessment, error)
	CountByLevel(ctx context.Context) (map[model.RiskLevel]int64, error)
	AverageScore(ctx context.Context) (decimal.Decimal, error)
	Delete(ctx context.Context, id uint64) error
}

type ComplianceRepository interface {
	// Upsert 按 TransactionReference 插入或原地更新，回填 ID
	Upsert(ctx context.Context, c *model.Compliance) error
	Save(ctx context.Context, c *model.Compliance) error
	GetByID(ctx context.Context, id uint64) (*model.Compliance, error)
	GetByReference(ctx context.Context, reference string) (*model.Compliance, error)
	ListAll(ctx context.Context) ([]*model.Compliance, error)
	ListByStatus(ctx context.Context, status model.ComplianceStatus) ([]*model.Compliance, error)
	CountByStatus(ctx context.Context) (map[model.ComplianceStatus]int64, error)
	Delete(ctx context.Context, id uint64) error
}

type AuditRepository interface {
	ListByReference(ctx context.Context, reference string) ([]*model.StatusChange, error)
}

// FileStorage 单据文件存储
type FileStorage interface {
	// Store 写入文件，返回存储路径和字节数；写入过程对读者不可见
	Store(ctx context.Context, r io.Reader, suggestedName string) (path string, size int64, err error)
	// Delete 文件不存在不算错误
	Delete(path string) error
	Open(path string) (io.ReadCloser, error)
}

// Locker 按参考号互斥，Redis 不可用时使用 NopLocker
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// CountryResolver 解析交易受益人所在国家
type CountryResolver interface {
	Country(ctx context.Context, inst model.Instrument) string
}

// ReferenceGenerator 生成带前缀的参考号
type ReferenceGenerator interface {
	LC() string
	BG() string
	Document() string
}

// Clock 当前时间，测试中可固定
type Clock func() time.Time
