// Package app 组装仓储、服务和处理器
package app

import (
	"tfms/internal/access"
	"tfms/internal/handler"
	"tfms/internal/repository"
	"tfms/internal/repository/memory"
	"tfms/internal/service"

	"gorm.io/gorm"
)

// Repositories 服务层需要的全部仓储端口
type Repositories struct {
	LCs         service.LCRepository
	BGs         service.BGRepository
	Documents   service.DocumentRepository
	Risks       service.RiskRepository
	Compliances service.ComplianceRepository
	Audits      service.AuditRepository
}

// MemoryRepositories 单进程内存仓储，没有 outbox
func MemoryRepositories(s *memory.Store) Repositories {
	return Repositories{
		LCs:         s.LCs(),
		BGs:         s.BGs(),
		Documents:   s.Documents(),
		Risks:       s.Risks(),
		Compliances: s.Compliances(),
		Audits:      s.Audit(),
	}
}

// GormRepositories 状态变更的审计和生命周期消息写入同一事务
func GormRepositories(db *gorm.DB, outbox *repository.OutboxRepository, topic string) Repositories {
	journal := repository.NewJournal(outbox, topic)
	return Repositories{
		LCs:         repository.NewLCRepository(db, journal),
		BGs:         repository.NewBGRepository(db, journal),
		Documents:   repository.NewDocumentRepository(db, journal),
		Risks:       repository.NewRiskRepository(db),
		Compliances: repository.NewComplianceRepository(db),
		Audits:      repository.NewAuditRepository(db),
	}
}

// Deps 组装服务所需的依赖
type Deps struct {
	Runtime    service.Runtime
	Repos      Repositories
	Files      service.FileStorage
	Refs       service.ReferenceGenerator
	Policy     *access.Policy
	Countries  service.CountryResolver
	Restricted []string
}

func NewServices(d Deps) handler.Services {
	r := d.Repos
	return handler.Services{
		LC:         service.NewLCService(d.Runtime, r.LCs, d.Refs, d.Policy),
		BG:         service.NewBGService(d.Runtime, r.BGs, d.Refs, d.Policy),
		Documents:  service.NewDocumentService(d.Runtime, r.Documents, d.Files, d.Refs, d.Policy, r.LCs, r.BGs),
		Risk:       service.NewRiskService(d.Runtime, r.Risks, r.LCs, r.BGs, d.Policy),
		Compliance: service.NewComplianceService(d.Runtime, r.Compliances, r.LCs, r.BGs, r.Documents, r.Risks, d.Countries, d.Restricted, d.Policy),
		Tracking:   service.NewTrackingService(d.Runtime, r.LCs, r.BGs, r.Documents, r.Audits, d.Policy.Resolver()),
		Dashboard:  service.NewDashboardService(r.LCs, r.BGs, r.Documents, r.Risks, r.Compliances, d.Policy),
	}
}
