package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TxnSubscription = "subscription"
	TxnRecharge     = "recharge"
	TxnRefund       = "refund"
	TxnAdjust       = "adjust"
	TxnGift         = "gift"
)

const (
	LedgerStatusSuccess = "success"
	ProviderManual      = "manual"
)

// LedgerEntry 账单流水，创建后不再修改
type LedgerEntry struct {
	ID             int64           `gorm:"primaryKey" json:"id"`
	UID            string          `gorm:"column:uid;size:64;not null;index" json:"uid"`
	TxnType        string          `gorm:"size:20;not null" json:"txn_type"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency       string          `gorm:"size:8" json:"currency"`
	Status         string          `gorm:"size:20" json:"status"`
	OrderID        string          `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	Provider       string          `gorm:"size:20" json:"provider"`
	SubscriptionID *int64          `json:"subscription_id,omitempty"`
	Remark         string          `gorm:"size:255" json:"remark"`
	OpenID         string          `gorm:"column:_openid;size:64" json:"-"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "user_billing_ledger"
}
