package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor 在同一个数据库事务中执行 fn，fn 返回错误时整体回滚
type Transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}
