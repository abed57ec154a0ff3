package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/aipara_account_server/internal/pkg/logger"
	"github.com/qs3c/aipara_account_server/internal/pkg/metrics"
	"github.com/qs3c/aipara_account_server/internal/pkg/pubsub"
)

// 可调用的 action
const (
	ActionProfileSync         = "profile.sync"
	ActionProfileUpdate       = "profile.update"
	ActionProfileUpdateMeta   = "profile.updateMeta"
	ActionSubscriptionUpgrade = "subscription.upgrade"
	ActionSubscriptionCancel  = "subscription.cancel"
	ActionSubscriptionRenew   = "subscription.renew"
	ActionWalletRecharge      = "wallet.recharge"
)

// Request 服务入口请求；没有顶层 action 时取 data 中的请求
type Request struct {
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload"`
	Data    *Request       `json:"data,omitempty"`
}

// Normalize 展开 {data:{action,payload}} 形式的请求
func (r Request) Normalize() Request {
	if r.Action == "" && r.Data != nil {
		return Request{Action: r.Data.Action, Payload: r.Data.Payload}
	}
	return Request{Action: r.Action, Payload: r.Payload}
}

// Result 与响应信封一致
type Result struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventPublisher 账户变更通知
type EventPublisher interface {
	PublishAccountEvent(ctx context.Context, event *pubsub.AccountEvent) error
}

type actionFunc func(ctx context.Context, uid string, payload map[string]any) (any, error)

type Dispatcher struct {
	actions   map[string]actionFunc
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewDispatcher(profiles *ProfileService, publisher EventPublisher, m *metrics.Metrics, log *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		publisher: publisher,
		metrics:   m,
		logger:    logger.OrNop(log),
	}
	d.actions = map[string]actionFunc{
		ActionProfileSync: func(ctx context.Context, uid string, p map[string]any) (any, error) {
			return profiles.Sync(ctx, uid, p)
		},
		ActionProfileUpdate: func(ctx context.Context, uid string, p map[string]any) (any, error) {
			return profiles.Update(ctx, uid, p)
		},
		ActionProfileUpdateMeta: func(ctx context.Context, uid string, p map[string]any) (any, error) {
			return profiles.UpdateMeta(ctx, uid, p)
		},
		ActionSubscriptionUpgrade: func(ctx context.Context, uid string, p map[string]any) (any, error) {
			return profiles.Upgrade(ctx, uid, p)
		},
		ActionSubscriptionCancel: func(ctx context.Context, uid string, _ map[string]any) (any, error) {
			return profiles.Cancel(ctx, uid)
		},
		ActionSubscriptionRenew: func(ctx context.Context, uid string, _ map[string]any) (any, error) {
			return profiles.Renew(ctx, uid)
		},
		ActionWalletRecharge: func(ctx context.Context, uid string, _ map[string]any) (any, error) {
			return profiles.Recharge(ctx, uid)
		},
	}
	return d
}

// Invoke 执行一次 action；uid 只来自服务端校验过的会话
func (d *Dispatcher) Invoke(ctx context.Context, uid string, req Request) Result {
	start := time.Now()
	req = req.Normalize()

	data, err := d.run(ctx, uid, req)
	code := ErrorCode(err)
	d.metrics.ObserveAction(req.Action, code, time.Since(start))

	if err != nil {
		if code >= 500 {
			d.logger.Error("profile service action failed",
				zap.String("action", req.Action),
				zap.String("uid", uid),
				zap.Error(err),
			)
		}
		return Result{Code: code, Message: ErrorMessage(err)}
	}

	d.publish(ctx, uid, req.Action, data)
	return Result{Code: 0, Data: data}
}

func (d *Dispatcher) run(ctx context.Context, uid string, req Request) (any, error) {
	if req.Action == "" {
		return nil, ErrMissingAction
	}
	if uid == "" {
		return nil, ErrUnauthorized
	}
	fn, ok := d.actions[req.Action]
	if !ok {
		return nil, ErrUnknownAction
	}

	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return fn(ctx, uid, payload)
}

type orderIDer interface {
	GetOrderID() string
}

// publish 通知失败只记日志，不影响本次结果
func (d *Dispatcher) publish(ctx context.Context, uid, action string, data any) {
	if d.publisher == nil {
		return
	}
	event := &pubsub.AccountEvent{UID: uid, Action: action}
	if o, ok := data.(orderIDer); ok {
		event.OrderID = o.GetOrderID()
	}
	if err := d.publisher.PublishAccountEvent(ctx, event); err != nil {
		d.logger.Warn("failed to publish account event",
			zap.String("action", action),
			zap.String("uid", uid),
			zap.Error(err),
		)
	}
}
