package cron

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/aipara_account_server/internal/pkg/logger"
)

const defaultInterval = time.Hour

// PointsResetter 积分重置任务
type PointsResetter interface {
	ResetDue(ctx context.Context) (int, error)
}

type Service struct {
	points   PointsResetter
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewService intervalMinutes <= 0 时每小时扫描一次
func NewService(points PointsResetter, intervalMinutes int, log *zap.Logger) *Service {
	interval := time.Duration(intervalMinutes) * time.Minute
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		points:   points,
		interval: interval,
		logger:   logger.OrNop(log),
		stopChan: make(chan struct{}),
	}
}

// Start 启动定时任务，启动时先跑一次
func (s *Service) Start() {
	s.wg.Add(1)
	go s.runPointsReset()
	s.logger.Info("cron service started", zap.Duration("points_reset_interval", s.interval))
}

// Stop 停止定时任务并等待当前一轮结束
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	s.logger.Info("cron service stopped")
}

func (s *Service) runPointsReset() {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.resetPoints(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.resetPoints(ctx)
		}
	}
}

func (s *Service) resetPoints(ctx context.Context) {
	start := time.Now()
	n, err := s.points.ResetDue(ctx)
	if err != nil {
		s.logger.Error("points reset failed", zap.Int("reset", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("points reset completed",
			zap.Int("reset", n),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

// RunNow 立即执行一次积分重置（用于命令行或手动触发）
func (s *Service) RunNow(ctx context.Context) (int, error) {
	s.logger.Info("manual points reset triggered")
	return s.points.ResetDue(ctx)
}
