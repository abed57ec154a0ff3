package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/aipara_account_server/internal/model"
)

// TestProfile 创建测试用户资料，默认 free 套餐、余额为 0
func TestProfile(t *testing.T, db *gorm.DB, opts ...func(*model.Profile)) *model.Profile {
	t.Helper()

	uid := fmt.Sprintf("uid_%d", time.Now().UnixNano())
	profile := &model.Profile{
		UID:           uid,
		Owner:         uid,
		Role:          "user",
		Status:        1,
		DisplayName:   "测试用户",
		PlanTier:      model.PlanFree,
		BalanceAmount: decimal.Zero,
	}

	for _, opt := range opts {
		opt(profile)
	}
	if profile.Owner == "" {
		profile.Owner = profile.UID
	}

	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("Failed to create test profile: %v", err)
	}

	return profile
}

// WithUID 设置 uid（owner 同步）
func WithUID(uid string) func(*model.Profile) {
	return func(p *model.Profile) {
		p.UID = uid
		p.Owner = uid
	}
}

// WithBalance 设置余额
func WithBalance(amount int64) func(*model.Profile) {
	return func(p *model.Profile) {
		p.BalanceAmount = decimal.NewFromInt(amount)
	}
}

// WithPro 设置为生效中的 Pro 套餐
func WithPro(endAt time.Time) func(*model.Profile) {
	return func(p *model.Profile) {
		start := endAt.AddDate(0, -1, 0)
		p.PlanTier = model.PlanPro
		p.SubscriptionStatus = model.SubscriptionActive
		p.SubscriptionStartAt = &start
		p.SubscriptionEndAt = &endAt
		p.AutoRenew = true
	}
}

// WithPoints 设置积分
func WithPoints(points int, resetAt *time.Time) func(*model.Profile) {
	return func(p *model.Profile) {
		p.PointsBalance = points
		p.PointsResetAt = resetAt
	}
}

// WithMeta 设置扩展资料
func WithMeta(meta model.ProfileMeta) func(*model.Profile) {
	return func(p *model.Profile) {
		p.Meta = meta
	}
}

// TestSubscription 创建订阅记录
func TestSubscription(t *testing.T, db *gorm.DB, uid string, startAt, endAt time.Time) *model.Subscription {
	t.Helper()

	sub := &model.Subscription{
		UID:         uid,
		PlanTier:    model.PlanPro,
		Status:      model.SubscriptionActive,
		StartAt:     startAt,
		EndAt:       endAt,
		PriceAmount: decimal.NewFromInt(10),
		Currency:    "CNY",
		OrderID:     fmt.Sprintf("UPG-%d", startAt.UnixMilli()),
		OpenID:      uid,
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// SeedCatalog 写入默认套餐配置
func SeedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()

	for _, plan := range model.DefaultCatalog() {
		plan := plan
		if err := db.Create(&plan).Error; err != nil {
			t.Fatalf("Failed to seed plan catalog: %v", err)
		}
	}
}

// CountRows 统计表中行数
func CountRows(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()

	var count int64
	if err := db.Model(m).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return count
}
