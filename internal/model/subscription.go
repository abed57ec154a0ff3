package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription 订阅周期记录，只追加；续费时原地延长 end_at
type Subscription struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	UID         string          `gorm:"column:uid;size:64;not null;index" json:"uid"`
	PlanTier    string          `gorm:"size:20;not null" json:"plan_tier"`
	Status      string          `gorm:"size:20;default:active;index" json:"status"`
	StartAt     time.Time       `gorm:"not null;index" json:"start_at"`
	EndAt       time.Time       `gorm:"not null" json:"end_at"`
	AutoRenew   bool            `gorm:"default:false" json:"auto_renew"`
	PointsQuota int             `json:"points_quota"`
	ChatQuota   int             `json:"chat_quota"`
	ProQuota    int             `json:"pro_quota"`
	PriceAmount decimal.Decimal `gorm:"type:decimal(10,2)" json:"price_amount"`
	Currency    string          `gorm:"size:8" json:"currency"`
	OrderID     string          `gorm:"size:64;index" json:"order_id"`
	OpenID      string          `gorm:"column:_openid;size:64" json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "user_subscription"
}
