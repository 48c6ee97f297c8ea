package handler

import (
	"log/slog"
	"net/http"

	"tfms/internal/metrics"

	"github.com/gin-gonic/gin"
)

// RouterOptions 路由依赖
type RouterOptions struct {
	Handler *Handler
	Tokens  *TokenCodec
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// Ready 健康检查时调用，为 nil 时总是返回 ok
	Ready func() error
}

// SetupRouter 配置路由
func SetupRouter(opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = MaxUploadSize

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(opts.Logger))
	r.Use(LoggerMiddleware(opts.Logger))
	r.Use(CORSMiddleware())
	if opts.Metrics != nil {
		r.Use(MetricsMiddleware(opts.Metrics))
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	h := opts.Handler

	// 公开查询，带令牌时返回完整信息
	r.GET("/track/:reference", OptionalAuthMiddleware(opts.Tokens), h.Track)

	api := r.Group("/api/v1", AuthMiddleware(opts.Tokens))
	{
		api.GET("/dashboard", h.Dashboard)
		api.GET("/track/:reference", h.Track)

		// 信用证
		lc := api.Group("/lc")
		{
			lc.POST("", h.CreateLC)
			lc.GET("", h.ListLCs)
			lc.GET("/reference/:reference", h.GetLCByReference)
			lc.GET("/:id", h.GetLC)
			lc.PUT("/:id", h.AmendLC)
			lc.DELETE("/:id", remove(h, h.svc.LC.Delete))
			lc.POST("/:id/submit", transition(h, h.svc.LC.Submit))
			lc.POST("/:id/verify", transition(h, h.svc.LC.StartVerification))
			lc.POST("/:id/send-to-risk", transition(h, h.svc.LC.SendToRisk))
			lc.POST("/:id/approve", transition(h, h.svc.LC.Approve))
			lc.POST("/:id/reject", withReason(h, h.svc.LC.Reject))
			lc.POST("/:id/open", transition(h, h.svc.LC.Open))
			lc.POST("/:id/close", transition(h, h.svc.LC.Close))
		}

		// 保函
		bg := api.Group("/bg")
		{
			bg.POST("", h.RequestBG)
			bg.GET("", h.ListBGs)
			bg.GET("/reference/:reference", h.GetBGByReference)
			bg.GET("/:id", h.GetBG)
			bg.PUT("/:id", h.UpdateBG)
			bg.DELETE("/:id", remove(h, h.svc.BG.Delete))
			bg.POST("/:id/submit", transition(h, h.svc.BG.SubmitForReview))
			bg.POST("/:id/send-to-risk", transition(h, h.svc.BG.SendToRiskTeam))
			bg.POST("/:id/return-to-officer", transition(h, h.svc.BG.ReturnToOfficer))
			bg.POST("/:id/issue", transition(h, h.svc.BG.Issue))
			bg.POST("/:id/activate", transition(h, h.svc.BG.Activate))
			bg.POST("/:id/cancel", withReason(h, h.svc.BG.Cancel))
			bg.POST("/:id/claim", transition(h, h.svc.BG.Claim))
			bg.POST("/:id/expire", transition(h, h.svc.BG.Expire))
		}

		// 单据
		docs := api.Group("/documents")
		{
			docs.POST("", h.UploadDocument)
			docs.GET("", h.ListDocuments)
			docs.GET("/pending", h.ListPendingDocuments)
			docs.GET("/trade/:reference", h.ListTradeDocuments)
			docs.GET("/:id", h.GetDocument)
			docs.GET("/:id/download", h.DownloadDocument)
			docs.PUT("/:id", h.UpdateDocument)
			docs.DELETE("/:id", remove(h, h.svc.Documents.Delete))
			docs.POST("/:id/submit", transition(h, h.svc.Documents.SubmitForReview))
			docs.POST("/:id/approve", transition(h, h.svc.Documents.Approve))
			docs.POST("/:id/reject", withReason(h, h.svc.Documents.Reject))
			docs.POST("/:id/archive", transition(h, h.svc.Documents.Archive))
		}

		// 风险评估
		risk := api.Group("/risk")
		{
			risk.POST("/assess", h.AssessRisk)
			risk.GET("", h.ListRisk)
			risk.GET("/high", h.ListHighRisk)
			risk.GET("/summary", h.RiskSummary)
			risk.GET("/queue", h.RiskQueue)
			risk.GET("/reference/:reference", h.LatestRisk)
			risk.GET("/:id", h.GetRisk)
			risk.PUT("/:id/remarks", h.UpdateRiskRemarks)
			risk.DELETE("/:id", remove(h, h.svc.Risk.Delete))
		}

		// 合规
		compliance := api.Group("/compliance")
		{
			compliance.POST("/check/:reference", h.CheckCompliance)
			compliance.GET("", h.ListCompliance)
			compliance.GET("/summary", h.ComplianceSummary)
			compliance.GET("/reference/:reference", h.GetComplianceByReference)
			compliance.GET("/:id", h.GetCompliance)
			compliance.POST("/:id/review", transition(h, h.svc.Compliance.SubmitReview))
			compliance.DELETE("/:id", remove(h, h.svc.Compliance.Delete))
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		if opts.Ready != nil {
			if err := opts.Ready(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
