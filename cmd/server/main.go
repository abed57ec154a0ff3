package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/qs3c/aipara_account_server/config"
	"github.com/qs3c/aipara_account_server/internal/api"
	"github.com/qs3c/aipara_account_server/internal/api/handler"
	"github.com/qs3c/aipara_account_server/internal/database"
	"github.com/qs3c/aipara_account_server/internal/model"
	"github.com/qs3c/aipara_account_server/internal/pkg/identity"
	"github.com/qs3c/aipara_account_server/internal/pkg/logger"
	"github.com/qs3c/aipara_account_server/internal/pkg/metrics"
	"github.com/qs3c/aipara_account_server/internal/pkg/oss"
	"github.com/qs3c/aipara_account_server/internal/pkg/pubsub"
	"github.com/qs3c/aipara_account_server/internal/pkg/ws"
	"github.com/qs3c/aipara_account_server/internal/repository"
	"github.com/qs3c/aipara_account_server/internal/service"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Server.Mode, cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		zlog.Fatal("failed to connect database", zap.Error(err))
	}
	if cfg.Database.Driver == "sqlite" {
		// 本地开发库直接建表并写入默认套餐
		if err := database.AutoMigrate(db); err != nil {
			zlog.Fatal("failed to migrate database", zap.Error(err))
		}
		if err := repository.NewPlanRepository(db).Seed(context.Background(), model.DefaultCatalog()); err != nil {
			zlog.Fatal("failed to seed plan catalog", zap.Error(err))
		}
	}
	zlog.Info("database connected", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		zlog.Fatal("failed to connect redis", zap.Error(err))
	}
	zlog.Info("redis connected")

	// 初始化 OSS（可选）
	var avatars service.AvatarStore
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			zlog.Warn("failed to init OSS client, avatar upload disabled", zap.Error(err))
		} else {
			avatars = ossClient
			zlog.Info("OSS client initialized", zap.String("bucket", cfg.OSS.BucketName))
		}
	}

	// 指标
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// 初始化 Repository
	profileRepo := repository.NewProfileRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	planRepo := repository.NewPlanRepository(db)
	transactor := repository.NewTransactor(db)

	// 初始化 Service
	publisher := pubsub.NewPublisher(rdb)
	profileService := service.NewProfileService(profileRepo, subRepo, ledgerRepo, planRepo, transactor, avatars, cfg, zlog)
	dispatcher := service.NewDispatcher(profileService, publisher, m, zlog)
	accountService := service.NewAccountService(
		identity.NewHTTPProvider(&cfg.Identity),
		identity.NewPendingStore(rdb),
		profileService,
		zlog,
	)

	// 账户事件推送到打开的页面
	hub := ws.NewHub(zlog)
	m.TrackConnections(hub.ConnectionCount)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		err := pubsub.NewSubscriber(rdb).Subscribe(ctx, hub.Forward)
		if err != nil && !errors.Is(err, context.Canceled) {
			zlog.Error("account event subscription stopped", zap.Error(err))
		}
	}()

	// 初始化 Router
	router := api.NewRouter(
		handler.NewProfileHandler(dispatcher),
		handler.NewAccountHandler(profileService, accountService),
		handler.NewWebSocketHandler(hub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins, zlog),
		m,
		registry,
		cfg,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	zlog.Info("received shutdown signal")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server shutdown failed", zap.Error(err))
	}
	zlog.Info("server shutdown complete")
}
