package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PlanFree  = "free"
	PlanTrial = "trial"
	PlanPro   = "pro"
)

const (
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
	SubscriptionExpired  = "expired"
)

func init() {
	// 金额按数字输出
	decimal.MarshalJSONWithoutQuotes = true
}

type Profile struct {
	ID                  int64           `gorm:"primaryKey" json:"id"`
	UID                 string          `gorm:"column:uid;size:64;uniqueIndex;not null" json:"uid"`
	Owner               string          `gorm:"size:64;index;not null" json:"-"`
	Role                string          `gorm:"size:20;default:user" json:"role"`
	Status              int             `gorm:"default:1" json:"status"`
	DisplayName         string          `gorm:"size:120" json:"display_name"`
	AvatarURL           string          `gorm:"size:2048" json:"avatar_url"`
	Email               *string         `gorm:"size:320" json:"email,omitempty"`
	Phone               *string         `gorm:"size:32" json:"phone,omitempty"`
	PlanTier            string          `gorm:"size:20;default:free" json:"plan_tier"`
	SubscriptionStatus  string          `gorm:"size:20" json:"subscription_status"`
	SubscriptionStartAt *time.Time      `json:"subscription_start_at,omitempty"`
	SubscriptionEndAt   *time.Time      `json:"subscription_end_at,omitempty"`
	AutoRenew           bool            `gorm:"default:false" json:"auto_renew"`
	PointsBalance       int             `gorm:"default:0" json:"points_balance"`
	BalanceAmount       decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"balance_amount"`
	PointsResetAt       *time.Time      `json:"points_reset_at,omitempty"`
	ChatCountTotal      int             `gorm:"default:0" json:"chat_count_total"`
	ProModelCallsTotal  int             `gorm:"default:0" json:"pro_model_calls_total"`
	LastLoginAt         *time.Time      `json:"last_login_at,omitempty"`
	Meta                ProfileMeta     `gorm:"type:text" json:"meta"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func (Profile) TableName() string {
	return "user_profile"
}

// IsActivePro 当前是否为生效中的 Pro 套餐
func (p *Profile) IsActivePro() bool {
	return p.Tier() == PlanPro && p.SubscriptionStatus == SubscriptionActive
}

// Tier 归一化后的套餐等级
func (p *Profile) Tier() string {
	return normalizeTier(p.PlanTier)
}
