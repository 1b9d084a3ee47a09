package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"webmail/backend/internal/auth"
	"webmail/backend/internal/config"
	"webmail/backend/internal/gateway"
	"webmail/backend/internal/health"
	"webmail/backend/internal/logger"
	"webmail/backend/internal/monitoring"
	"webmail/backend/internal/service"
	"webmail/backend/internal/session"
	"webmail/backend/internal/storage/blob"
	"webmail/backend/internal/storage/filesystem"
	httptransport "webmail/backend/internal/transport/http"
	"webmail/backend/internal/websocket"
)

// main 启动同时包含 HTTP API 与匿名投递网关的综合服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if cfg.Log.Format == "console" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 28,
		Compress:   true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("starting webmail server",
		zap.String("data_root", cfg.Storage.DataRoot),
		zap.String("log_level", cfg.Log.Level),
	)

	// 存储层：文件系统就是数据库
	records := filesystem.NewStore()
	blobs, err := blob.NewStore(cfg.Storage.DataRoot)
	if err != nil {
		log.Fatal("failed to initialize attachment store", zap.Error(err))
	}

	// 服务层
	mailService, err := service.NewMailService(cfg.Storage.DataRoot, records, log)
	if err != nil {
		log.Fatal("failed to initialize mail service", zap.Error(err))
	}
	statsService := service.NewStatsService(mailService, records, blobs, log)
	authService := auth.NewService(mailService)

	// 会话注册表（内存软状态，重启后全部会话失效）
	sessions := session.NewRegistry(cfg.Session.TTL, cfg.Session.SweepInterval, log)

	// 监控与健康检查
	metrics := monitoring.NewMetrics()
	healthChecker := health.NewChecker(cfg.Storage.DataRoot, log)

	// WebSocket Hub
	wsHub := websocket.NewHub(sessions, cfg.CORS.AllowedOrigins, log)

	// HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:       cfg,
		MailService:  mailService,
		StatsService: statsService,
		AuthService:  authService,
		BlobStore:    blobs,
		Sessions:     sessions,
		Hub:          wsHub,
		Metrics:      metrics,
		Health:       healthChecker,
		Logger:       log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 匿名投递网关 goroutine
	if cfg.Gateway.Enabled {
		udpServer := gateway.NewServer(gateway.Config{
			BindAddr:   cfg.Gateway.BindAddr,
			DailyLimit: cfg.Gateway.DailyLimit,
			MaxRate:    cfg.Gateway.MaxRate,
		}, mailService, metrics, log)
		udpServer.SetNotifier(wsHub)

		group.Go(func() error {
			return udpServer.Run(groupCtx)
		})
	}

	// WebSocket Hub goroutine
	group.Go(func() error {
		wsHub.Run(groupCtx)
		return nil
	})

	// 过期会话清理 goroutine
	group.Go(func() error {
		sessions.Run(groupCtx)
		return nil
	})

	// 定时清理回收站 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(cfg.Trash.PurgeInterval)
		defer ticker.Stop()

		log.Info("starting trash purge task",
			zap.Duration("interval", cfg.Trash.PurgeInterval),
			zap.Int("retention_days", cfg.Trash.RetentionDays),
		)

		for {
			select {
			case <-groupCtx.Done():
				log.Info("trash purge task stopped")
				return nil
			case <-ticker.C:
				purgeAllTrash(mailService, metrics, cfg.Trash.RetentionDays, log)
			}
		}
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}
	log.Info("server exited cleanly")
}

// purgeAllTrash 遍历全部邮箱清理过期的回收站邮件。
func purgeAllTrash(mails *service.MailService, metrics *monitoring.Metrics, retentionDays int, log *zap.Logger) {
	usernames, err := mails.ListMailboxes()
	if err != nil {
		log.Error("failed to list mailboxes for trash purge", zap.Error(err))
		return
	}

	total := 0
	for _, username := range usernames {
		deleted, err := mails.PurgeTrash(username, retentionDays)
		if err != nil {
			log.Error("failed to purge trash",
				zap.String("username", username),
				zap.Error(err),
			)
			continue
		}
		total += deleted
	}

	if total > 0 {
		metrics.MailsPurged.Add(float64(total))
		log.Info("trash purge completed", zap.Int("purged", total))
	}
}
