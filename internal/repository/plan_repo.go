package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/aipara_account_server/internal/model"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) WithDB(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// GetActive 套餐未配置或已停用时返回 nil, nil
func (r *PlanRepository) GetActive(ctx context.Context, tier string) (*model.PlanCatalog, error) {
	var plan model.PlanCatalog
	err := r.db.WithContext(ctx).
		Where("plan_tier = ? AND is_active = ?", tier, 1).
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) ListActive(ctx context.Context) ([]*model.PlanCatalog, error) {
	var plans []*model.PlanCatalog
	err := r.db.WithContext(ctx).Where("is_active = ?", 1).Order("id ASC").Find(&plans).Error
	return plans, err
}

// Seed 按 plan_tier 写入或覆盖配额
func (r *PlanRepository) Seed(ctx context.Context, plans []model.PlanCatalog) error {
	if len(plans) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plan_tier"}},
		DoUpdates: clause.AssignmentColumns([]string{"chat_limit", "points_limit", "pro_limit", "is_active", "updated_at"}),
	}).Create(&plans).Error
}
