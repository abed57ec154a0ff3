package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/aipara_account_server/internal/model"
	"github.com/qs3c/aipara_account_server/internal/pkg/logger"
	"github.com/qs3c/aipara_account_server/internal/pkg/metrics"
	"github.com/qs3c/aipara_account_server/internal/pkg/timeutil"
	"github.com/qs3c/aipara_account_server/internal/repository"
)

const defaultResetBatch = 200

// PointsService 按月重置积分
type PointsService struct {
	profileRepo *repository.ProfileRepository
	planRepo    *repository.PlanRepository
	metrics     *metrics.Metrics
	batchSize   int
	logger      *zap.Logger
	now         func() time.Time
}

func NewPointsService(
	profileRepo *repository.ProfileRepository,
	planRepo *repository.PlanRepository,
	m *metrics.Metrics,
	batchSize int,
	log *zap.Logger,
) *PointsService {
	if batchSize <= 0 {
		batchSize = defaultResetBatch
	}
	return &PointsService{
		profileRepo: profileRepo,
		planRepo:    planRepo,
		metrics:     m,
		batchSize:   batchSize,
		logger:      logger.OrNop(log),
		now:         time.Now,
	}
}

// ResetDue 重置所有到期用户的积分，返回实际重置的人数
func (s *PointsService) ResetDue(ctx context.Context) (int, error) {
	now := timeutil.Normalize(s.now())
	points := make(map[string]int)
	total := 0

	for {
		profiles, err := s.profileRepo.ListDueForPointsReset(ctx, now, s.batchSize)
		if err != nil {
			return total, storageErr("读取待重置用户失败", err)
		}

		reset := 0
		for _, p := range profiles {
			quota, err := s.quotaFor(ctx, p, points)
			if err != nil {
				return total, err
			}
			rows, err := s.profileRepo.ResetPoints(ctx, p.UID, quota, now, nextResetAt(*p.PointsResetAt, now))
			if err != nil {
				return total, storageErr("重置积分失败", err)
			}
			reset += int(rows)
		}
		total += reset

		// 本批没有任何进展时停止，避免反复读取同一批
		if len(profiles) < s.batchSize || reset == 0 {
			break
		}
	}

	s.metrics.AddPointsReset(total)
	if total > 0 {
		s.logger.Info("points reset completed", zap.Int("profiles", total))
	}
	return total, nil
}

// quotaFor 只有生效中的 Pro 按 Pro 配额，其余按 free
func (s *PointsService) quotaFor(ctx context.Context, p *model.Profile, cache map[string]int) (int, error) {
	tier := model.PlanFree
	if p.IsActivePro() {
		tier = model.PlanPro
	}
	if v, ok := cache[tier]; ok {
		return v, nil
	}

	plan, err := s.planRepo.GetActive(ctx, tier)
	if err != nil {
		return 0, storageErr("读取套餐配置失败", err)
	}
	quota := 0
	if plan != nil {
		quota = plan.PointsLimit
	}
	cache[tier] = quota
	return quota, nil
}

// nextResetAt 从原重置时间按月顺延到晚于 now
// 结果按毫秒对齐，存储精度之外的尾数不会让下次重置落在 now 之前
func nextResetAt(prev, now time.Time) time.Time {
	next := timeutil.AddMonths(timeutil.Normalize(prev), 1)
	for !next.After(now) {
		next = timeutil.AddMonths(next, 1)
	}
	return next
}
