package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/aipara_account_server/internal/model"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// WithDB 绑定到事务
func (r *ProfileRepository) WithDB(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// ownRow 只允许访问本人名下的资料
func (r *ProfileRepository) ownRow(ctx context.Context, uid string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Profile{}).Where("uid = ? AND owner = ?", uid, uid)
}

// GetByUID 不存在时返回 gorm.ErrRecordNotFound
func (r *ProfileRepository) GetByUID(ctx context.Context, uid string) (*model.Profile, error) {
	var profile model.Profile
	err := r.ownRow(ctx, uid).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByUID 不存在时返回 nil, nil
func (r *ProfileRepository) FindByUID(ctx context.Context, uid string) (*model.Profile, error) {
	profile, err := r.GetByUID(ctx, uid)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return profile, err
}

// Upsert 以 uid 为冲突键写入；已存在时只更新 columns 指定的列
func (r *ProfileRepository) Upsert(ctx context.Context, profile *model.Profile, columns ...string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(profile).Error
}

func (r *ProfileRepository) UpdateFields(ctx context.Context, uid string, fields map[string]interface{}) (int64, error) {
	result := r.ownRow(ctx, uid).Updates(fields)
	return result.RowsAffected, result.Error
}

// DeductBalance 余额充足时扣款并同时写入 fields；余额不足时影响行数为 0
func (r *ProfileRepository) DeductBalance(ctx context.Context, uid string, amount decimal.Decimal, fields map[string]interface{}) (int64, error) {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["balance_amount"] = gorm.Expr("balance_amount - ?", amount)

	result := r.ownRow(ctx, uid).Where("balance_amount >= ?", amount).Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *ProfileRepository) AddBalance(ctx context.Context, uid string, amount decimal.Decimal) (int64, error) {
	result := r.ownRow(ctx, uid).Update("balance_amount", gorm.Expr("balance_amount + ?", amount))
	return result.RowsAffected, result.Error
}

// ListDueForPointsReset 积分重置时间已到的用户
func (r *ProfileRepository) ListDueForPointsReset(ctx context.Context, now time.Time, limit int) ([]*model.Profile, error) {
	var profiles []*model.Profile
	err := r.db.WithContext(ctx).
		Where("points_reset_at IS NOT NULL AND points_reset_at <= ?", now).
		Order("points_reset_at ASC").
		Limit(limit).
		Find(&profiles).Error
	return profiles, err
}

// ResetPoints 仅当重置时间仍已到期时生效，避免并发重复重置
func (r *ProfileRepository) ResetPoints(ctx context.Context, uid string, points int, now, next time.Time) (int64, error) {
	result := r.ownRow(ctx, uid).
		Where("points_reset_at <= ?", now).
		Updates(map[string]interface{}{
			"points_balance":  points,
			"points_reset_at": next,
		})
	return result.RowsAffected, result.Error
}
