package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/aipara_account_server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) WithDB(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

// Latest 按开始时间最新的一条记录，没有记录时返回 nil, nil
func (r *SubscriptionRepository) Latest(ctx context.Context, uid string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).
		Where("uid = ?", uid).
		Order("start_at DESC").
		Order("id DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) ExtendByID(ctx context.Context, id int64, endAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ?", id).
		Update("end_at", endAt)
	return result.RowsAffected, result.Error
}

// ExtendActivePro 没有可定位的记录时按 uid + pro + active 批量延长，可能命中多行
func (r *SubscriptionRepository) ExtendActivePro(ctx context.Context, uid string, endAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("uid = ? AND plan_tier = ? AND status = ?", uid, model.PlanPro, model.SubscriptionActive).
		Update("end_at", endAt)
	return result.RowsAffected, result.Error
}

// ListByUID 订阅历史，最新在前
func (r *SubscriptionRepository) ListByUID(ctx context.Context, uid string, page, pageSize int) ([]*model.Subscription, int64, error) {
	var subs []*model.Subscription
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Subscription{}).Where("uid = ?", uid)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("start_at DESC").Order("id DESC").
		Offset(offset).Limit(pageSize).
		Find(&subs).Error
	return subs, total, err
}
