package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/aipara_account_server/internal/model"
	"github.com/qs3c/aipara_account_server/internal/pkg/orderid"
	"github.com/qs3c/aipara_account_server/internal/pkg/timeutil"
	"github.com/qs3c/aipara_account_server/internal/repository"
)

var (
	ErrAlreadyPro          = errors.New("当前已是 Pro 套餐")
	ErrNotPro              = errors.New("当前不是 Pro 套餐")
	ErrInsufficientUpgrade = errors.New("余额不足，无法升级")
	ErrInsufficientRenew   = errors.New("余额不足，无法续费")
)

const (
	remarkUpgrade  = "升级 Pro 套餐"
	remarkRenew    = "续费 Pro 套餐"
	remarkRecharge = "开发阶段充值"
)

// OrderResult 套餐与钱包操作的返回
type OrderResult struct {
	OrderID string `json:"order_id"`
}

func (r *OrderResult) GetOrderID() string {
	return r.OrderID
}

type RechargeResult struct {
	OrderResult
	BalanceAmount decimal.Decimal `json:"balance_amount"`
}

// txRepos 绑定到同一事务的仓储
type txRepos struct {
	profiles *repository.ProfileRepository
	subs     *repository.SubscriptionRepository
	ledger   *repository.LedgerRepository
	plans    *repository.PlanRepository
}

func (s *ProfileService) bind(tx *gorm.DB) txRepos {
	return txRepos{
		profiles: s.profileRepo.WithDB(tx),
		subs:     s.subRepo.WithDB(tx),
		ledger:   s.ledgerRepo.WithDB(tx),
		plans:    s.planRepo.WithDB(tx),
	}
}

func (r txRepos) mustProfile(ctx context.Context, uid string) (*model.Profile, error) {
	profile, err := r.profiles.FindByUID(ctx, uid)
	if err != nil {
		return nil, storageErr("读取用户信息失败", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// catalog 套餐未配置时配额按 0 处理
func (r txRepos) catalog(ctx context.Context, tier string) (model.PlanCatalog, error) {
	plan, err := r.plans.GetActive(ctx, tier)
	if err != nil {
		return model.PlanCatalog{}, storageErr("读取套餐配置失败", err)
	}
	if plan == nil {
		return model.PlanCatalog{PlanTier: tier}, nil
	}
	return *plan, nil
}

// Upgrade 扣费开通一个月 Pro
func (s *ProfileService) Upgrade(ctx context.Context, uid string, payload map[string]any) (*OrderResult, error) {
	now := s.clock()
	price := s.billing.Price()
	orderID := orderid.NewAt(orderid.PrefixUpgrade, now)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repos := s.bind(tx)

		profile, err := repos.mustProfile(ctx, uid)
		if err != nil {
			return err
		}
		if profile.IsActivePro() {
			return ErrAlreadyPro
		}
		if profile.BalanceAmount.LessThan(price) {
			return ErrInsufficientUpgrade
		}

		plan, err := repos.catalog(ctx, model.PlanPro)
		if err != nil {
			return err
		}

		endAt := timeutil.AddMonths(now, 1)
		autoRenew := model.ToBool(payload["auto_renew"])

		rows, err := repos.profiles.DeductBalance(ctx, uid, price, map[string]interface{}{
			"plan_tier":             model.PlanPro,
			"subscription_status":   model.SubscriptionActive,
			"subscription_start_at": now,
			"subscription_end_at":   endAt,
			"auto_renew":            autoRenew,
			"points_balance":        plan.PointsLimit,
		})
		if err != nil {
			return storageErr("更新订阅信息失败", err)
		}
		if rows == 0 {
			return ErrInsufficientUpgrade
		}

		sub := &model.Subscription{
			UID:         uid,
			PlanTier:    model.PlanPro,
			Status:      model.SubscriptionActive,
			StartAt:     now,
			EndAt:       endAt,
			AutoRenew:   autoRenew,
			PointsQuota: plan.PointsLimit,
			ChatQuota:   plan.ChatLimit,
			ProQuota:    plan.ProLimit,
			PriceAmount: price,
			Currency:    s.billing.CurrencyCode(),
			OrderID:     orderID,
			OpenID:      uid,
		}
		if err := repos.subs.Create(ctx, sub); err != nil {
			return storageErr("写入订阅记录失败", err)
		}

		subID := sub.ID
		return s.writeLedger(ctx, repos, uid, model.TxnSubscription, price.Neg(), orderID, &subID, remarkUpgrade)
	})
	if err != nil {
		return nil, err
	}
	return &OrderResult{OrderID: orderID}, nil
}

// Cancel 立即退回 free 套餐，不退款也不记账
func (s *ProfileService) Cancel(ctx context.Context, uid string) (*OrderResult, error) {
	now := s.clock()
	orderID := orderid.NewAt(orderid.PrefixCancel, now)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repos := s.bind(tx)

		profile, err := repos.mustProfile(ctx, uid)
		if err != nil {
			return err
		}
		if profile.Tier() != model.PlanPro {
			return ErrNotPro
		}

		plan, err := repos.catalog(ctx, model.PlanFree)
		if err != nil {
			return err
		}

		_, err = repos.profiles.UpdateFields(ctx, uid, map[string]interface{}{
			"plan_tier":           model.PlanFree,
			"subscription_status": model.SubscriptionCanceled,
			"subscription_end_at": now,
			"auto_renew":          false,
			"points_balance":      plan.PointsLimit,
		})
		if err != nil {
			return storageErr("更新订阅状态失败", err)
		}

		// 取消记录只标记周期结束，不携带配额
		sub := &model.Subscription{
			UID:         uid,
			PlanTier:    model.PlanFree,
			Status:      model.SubscriptionCanceled,
			StartAt:     now,
			EndAt:       now,
			PriceAmount: decimal.Zero,
			Currency:    s.billing.CurrencyCode(),
			OrderID:     orderID,
			OpenID:      uid,
		}
		if err := repos.subs.Create(ctx, sub); err != nil {
			return storageErr("写入订阅记录失败", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &OrderResult{OrderID: orderID}, nil
}

// Renew 在当前周期末尾（已过期则从现在起）顺延一个月
func (s *ProfileService) Renew(ctx context.Context, uid string) (*OrderResult, error) {
	now := s.clock()
	price := s.billing.Price()
	orderID := orderid.NewAt(orderid.PrefixRenew, now)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repos := s.bind(tx)

		profile, err := repos.mustProfile(ctx, uid)
		if err != nil {
			return err
		}
		if profile.Tier() != model.PlanPro {
			return ErrNotPro
		}
		if profile.BalanceAmount.LessThan(price) {
			return ErrInsufficientRenew
		}

		latest, err := repos.subs.Latest(ctx, uid)
		if err != nil {
			return storageErr("读取订阅记录失败", err)
		}

		base := now
		switch {
		case latest != nil && !latest.EndAt.IsZero():
			base = timeutil.Normalize(latest.EndAt)
		case profile.SubscriptionEndAt != nil:
			base = timeutil.Normalize(*profile.SubscriptionEndAt)
		}
		endAt := timeutil.AddMonths(timeutil.Later(base, now), 1)

		rows, err := repos.profiles.DeductBalance(ctx, uid, price, map[string]interface{}{
			"subscription_end_at": endAt,
		})
		if err != nil {
			return storageErr("更新订阅信息失败", err)
		}
		if rows == 0 {
			return ErrInsufficientRenew
		}

		var subID *int64
		if latest != nil {
			id := latest.ID
			subID = &id
			_, err = repos.subs.ExtendByID(ctx, latest.ID, endAt)
		} else {
			rows, err = repos.subs.ExtendActivePro(ctx, uid, endAt)
			if err == nil && rows > 1 {
				s.logger.Warn("renew extended multiple active pro subscriptions",
					zap.String("uid", uid),
					zap.Int64("rows", rows),
					zap.String("order_id", orderID),
				)
			}
		}
		if err != nil {
			return storageErr("更新订阅记录失败", err)
		}

		return s.writeLedger(ctx, repos, uid, model.TxnSubscription, price.Neg(), orderID, subID, remarkRenew)
	})
	if err != nil {
		return nil, err
	}
	return &OrderResult{OrderID: orderID}, nil
}

// Recharge 开发阶段充值固定金额
func (s *ProfileService) Recharge(ctx context.Context, uid string) (*RechargeResult, error) {
	now := s.clock()
	price := s.billing.Price()
	orderID := orderid.NewAt(orderid.PrefixRecharge, now)
	var balance decimal.Decimal

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repos := s.bind(tx)

		if _, err := repos.mustProfile(ctx, uid); err != nil {
			return err
		}
		if _, err := repos.profiles.AddBalance(ctx, uid, price); err != nil {
			return storageErr("更新余额失败", err)
		}
		if err := s.writeLedger(ctx, repos, uid, model.TxnRecharge, price, orderID, nil, remarkRecharge); err != nil {
			return err
		}

		profile, err := repos.mustProfile(ctx, uid)
		if err != nil {
			return err
		}
		balance = profile.BalanceAmount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &RechargeResult{OrderResult: OrderResult{OrderID: orderID}, BalanceAmount: balance}, nil
}

func (s *ProfileService) writeLedger(
	ctx context.Context,
	repos txRepos,
	uid, txnType string,
	amount decimal.Decimal,
	orderID string,
	subID *int64,
	remark string,
) error {
	entry := &model.LedgerEntry{
		UID:            uid,
		TxnType:        txnType,
		Amount:         amount,
		Currency:       s.billing.CurrencyCode(),
		Status:         model.LedgerStatusSuccess,
		OrderID:        orderID,
		Provider:       model.ProviderManual,
		SubscriptionID: subID,
		Remark:         remark,
		OpenID:         uid,
	}
	if err := repos.ledger.Create(ctx, entry); err != nil {
		return storageErr("写入账单记录失败", err)
	}
	return nil
}
