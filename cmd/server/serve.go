package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tfms/internal/access"
	"tfms/internal/app"
	"tfms/internal/config"
	"tfms/internal/handler"
	"tfms/internal/infrastructure/cache"
	"tfms/internal/infrastructure/database"
	"tfms/internal/infrastructure/lock"
	"tfms/internal/infrastructure/mq"
	"tfms/internal/infrastructure/storage"
	"tfms/internal/job"
	"tfms/internal/metrics"
	"tfms/internal/repository"
	"tfms/internal/repository/memory"
	"tfms/internal/service"
	"tfms/pkg/idgen"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		workerID, _ := cmd.Flags().GetInt64("worker-id")
		autoMigrate, _ := cmd.Flags().GetBool("auto-migrate")
		return serve(cfg, log, workerID, autoMigrate)
	},
}

func init() {
	serveCmd.Flags().Int64("worker-id", 1, "雪花算法机器号，多实例部署时必须不同")
	serveCmd.Flags().Bool("auto-migrate", true, "启动时自动迁移表结构")
	rootCmd.AddCommand(serveCmd)
}

func serve(cfg *config.Config, log *slog.Logger, workerID int64, autoMigrate bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := metrics.New()
	if err != nil {
		return err
	}
	ids, err := idgen.NewSnowflake(workerID)
	if err != nil {
		return err
	}
	policy, err := access.NewPolicy(access.NewResolver())
	if err != nil {
		return err
	}
	files, err := storage.NewLocalStorage(afero.NewOsFs(), cfg.Storage.UploadDir)
	if err != nil {
		return err
	}

	rt := service.Runtime{Logger: log, Metrics: m}
	var checks []func(context.Context) error

	// 分布式锁
	if cfg.Redis.Enabled() {
		rdb, err := cache.NewRedis(&cfg.Redis, log)
		if err != nil {
			return err
		}
		defer rdb.Close()
		rt.Locker = lock.NewRedisLocker(rdb, cfg.Business.LockTTL(), cfg.Business.LockRetry(), cfg.Business.LockMaxRetries, log)
		checks = append(checks, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	} else {
		log.Warn("【启动】未配置 Redis，只在单实例内串行化状态流转")
	}

	// 仓储
	var repos app.Repositories
	if cfg.Database.Enabled() {
		db, err := database.Open(&cfg.Database, log)
		if err != nil {
			return err
		}
		defer database.Close(db)
		if autoMigrate {
			if err := database.Migrate(db); err != nil {
				return err
			}
		}
		outbox := repository.NewOutboxRepository(db)
		repos = app.GormRepositories(db, outbox, cfg.Kafka.Topic.Lifecycle)
		checks = append(checks, pingDB(db))

		if cfg.Kafka.Enabled() {
			producer, err := mq.NewProducer(&cfg.Kafka, log)
			if err != nil {
				return err
			}
			defer producer.Close()
			sender := job.NewOutboxSender(outbox, producer, log, cfg.Business.OutboxInterval(),
				cfg.Business.OutboxBatchSize, cfg.Business.OutboxMaxRetry)
			go sender.Start(ctx)
		} else {
			log.Warn("【启动】未配置 Kafka，生命周期消息只写入 outbox")
		}
	} else {
		log.Warn("【启动】未配置数据库，使用内存仓储，重启后数据丢失")
		repos = app.MemoryRepositories(memory.NewStore())
	}

	svc := app.NewServices(app.Deps{
		Runtime:    rt,
		Repos:      repos,
		Files:      files,
		Refs:       idgen.NewReferences(ids),
		Policy:     policy,
		Restricted: cfg.Compliance.RestrictedCountries,
	})

	gin.SetMode(cfg.Server.Mode)
	router := handler.SetupRouter(handler.RouterOptions{
		Handler: handler.NewHandler(svc, log),
		Tokens:  handler.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Metrics: m,
		Logger:  log,
		Ready: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			for _, check := range checks {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("【启动】服务启动", "addr", server.Addr, "mode", cfg.Server.Mode)
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("服务启动失败: %w", err)
		}
	case sig := <-quit:
		log.Info("【关闭】收到退出信号", "signal", sig.String())
	}

	cancel()
	timeout := time.Duration(cfg.Server.ShutdownSeconds) * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("【关闭】服务关闭异常", "error", err)
		return server.Close()
	}
	log.Info("【关闭】服务已关闭")
	return nil
}

func pingDB(db *gorm.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
