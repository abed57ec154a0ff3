package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelAccountEvents = "account_events"
)

// 事件类型
const (
	EventProfileUpdated      = "profile_updated"
	EventSubscriptionChanged = "subscription_changed"
	EventWalletChanged       = "wallet_changed"
)

// AccountEvent 账户变更通知，页面收到后重新拉取数据
type AccountEvent struct {
	Type     string `json:"type"`
	UID      string `json:"uid"`
	Action   string `json:"action"`
	OrderID  string `json:"order_id,omitempty"`
	EmitTime int64  `json:"emit_time"`
}

// EventTypeFor 根据 action 前缀归类事件
func EventTypeFor(action string) string {
	switch {
	case strings.HasPrefix(action, "subscription."):
		return EventSubscriptionChanged
	case strings.HasPrefix(action, "wallet."):
		return EventWalletChanged
	default:
		return EventProfileUpdated
	}
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishAccountEvent 发布账户事件，未指定类型时按 action 推断
func (p *Publisher) PublishAccountEvent(ctx context.Context, event *AccountEvent) error {
	if event.Type == "" {
		event.Type = EventTypeFor(event.Action)
	}
	if event.EmitTime == 0 {
		event.EmitTime = time.Now().UnixMilli()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal account event: %w", err)
	}

	return p.client.Publish(ctx, ChannelAccountEvents, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 阻塞订阅，直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*AccountEvent)) error {
	sub := s.client.Subscribe(ctx, ChannelAccountEvents)
	defer sub.Close()

	// 等待订阅确认，保证返回前的发布不会丢失
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event AccountEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}
