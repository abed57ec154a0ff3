package model

import (
	"strings"
	"time"
)

// PlanCatalog 套餐配额配置，服务侧只读
type PlanCatalog struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	PlanTier    string    `gorm:"size:20;uniqueIndex;not null" json:"plan_tier"`
	ChatLimit   int       `json:"chat_limit"`
	PointsLimit int       `json:"points_limit"`
	ProLimit    int       `json:"pro_limit"`
	IsActive    int       `gorm:"default:1" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (PlanCatalog) TableName() string {
	return "plan_catalog"
}

// DefaultCatalog 与定价页一致的默认配额
func DefaultCatalog() []PlanCatalog {
	return []PlanCatalog{
		{PlanTier: PlanFree, ChatLimit: 100, PointsLimit: 2000, ProLimit: 0, IsActive: 1},
		{PlanTier: PlanPro, ChatLimit: 500, PointsLimit: 10000, ProLimit: 60, IsActive: 1},
	}
}

func normalizeTier(tier string) string {
	return strings.ToLower(strings.TrimSpace(tier))
}
