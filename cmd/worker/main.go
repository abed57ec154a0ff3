package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/qs3c/aipara_account_server/config"
	"github.com/qs3c/aipara_account_server/internal/database"
	"github.com/qs3c/aipara_account_server/internal/pkg/cron"
	"github.com/qs3c/aipara_account_server/internal/pkg/logger"
	"github.com/qs3c/aipara_account_server/internal/pkg/metrics"
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
	zlog.Info("database connected")

	points := service.NewPointsService(
		repository.NewProfileRepository(db),
		repository.NewPlanRepository(db),
		metrics.New(prometheus.DefaultRegisterer),
		cfg.Cron.BatchSize,
		zlog,
	)

	cronService := cron.NewService(points, cfg.Cron.PointsResetMinutes, zlog)
	cronService.Start()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	zlog.Info("received shutdown signal")

	cronService.Stop()
	zlog.Info("worker shutdown complete")
}
