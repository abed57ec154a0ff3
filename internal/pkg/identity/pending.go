package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	pendingKeyPrefix = "verification:"
	pendingTTL       = 10 * time.Minute
)

var ErrPendingNotFound = errors.New("verification not found or expired")

// Pending 记录验证码是为哪个用户、哪个目标发送的
type Pending struct {
	UID    string `json:"uid"`
	Target Target `json:"target"`
}

// PendingStore 验证码发送记录，校验后即删除，防止跨账号重放
type PendingStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPendingStore(rdb *redis.Client) *PendingStore {
	return &PendingStore{rdb: rdb, ttl: pendingTTL}
}

func (s *PendingStore) Save(ctx context.Context, verificationID string, p Pending) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, pendingKeyPrefix+verificationID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store verification: %w", err)
	}
	return nil
}

// Consume 读取并删除；不存在或已过期时返回 ErrPendingNotFound
func (s *PendingStore) Consume(ctx context.Context, verificationID string) (*Pending, error) {
	if verificationID == "" {
		return nil, ErrPendingNotFound
	}
	key := pendingKeyPrefix + verificationID

	var raw string
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrPendingNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get verification: %w", err)
		}
		raw = val

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return nil, err
	}

	var p Pending
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("failed to decode verification: %w", err)
	}
	return &p, nil
}
