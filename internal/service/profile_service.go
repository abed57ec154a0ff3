package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/aipara_account_server/config"
	"github.com/qs3c/aipara_account_server/internal/model"
	"github.com/qs3c/aipara_account_server/internal/pkg/logger"
	"github.com/qs3c/aipara_account_server/internal/pkg/oss"
	"github.com/qs3c/aipara_account_server/internal/pkg/timeutil"
	"github.com/qs3c/aipara_account_server/internal/repository"
)

var (
	ErrOSSNotConfigured  = errors.New("OSS 客户端未配置")
	ErrInvalidAvatarType = errors.New("仅支持 jpg、png、webp、gif 格式的图片")
	ErrAvatarTooLarge    = errors.New("头像文件过大")
)

// 资料字段长度上限
const (
	maxDisplayNameLen = 120
	maxAvatarURLLen   = 2048
	maxEmailLen       = 320
	maxPhoneLen       = 32
)

const defaultAvatarExt = ".jpg"

// AvatarStore 头像对象存储
type AvatarStore interface {
	UploadAvatar(uid string, data []byte, ext string) (string, error)
	DeleteByURL(url string) error
}

type ProfileService struct {
	profileRepo   *repository.ProfileRepository
	subRepo       *repository.SubscriptionRepository
	ledgerRepo    *repository.LedgerRepository
	planRepo      *repository.PlanRepository
	tx            *repository.Transactor
	avatars       AvatarStore
	billing       config.BillingConfig
	maxAvatarSize int64
	logger        *zap.Logger
	now           func() time.Time
}

func NewProfileService(
	profileRepo *repository.ProfileRepository,
	subRepo *repository.SubscriptionRepository,
	ledgerRepo *repository.LedgerRepository,
	planRepo *repository.PlanRepository,
	tx *repository.Transactor,
	avatars AvatarStore,
	cfg *config.Config,
	log *zap.Logger,
) *ProfileService {
	return &ProfileService{
		profileRepo:   profileRepo,
		subRepo:       subRepo,
		ledgerRepo:    ledgerRepo,
		planRepo:      planRepo,
		tx:            tx,
		avatars:       avatars,
		billing:       cfg.Billing,
		maxAvatarSize: cfg.Upload.MaxAvatarSize,
		logger:        logger.OrNop(log),
		now:           time.Now,
	}
}

// MetaResult profile.sync / profile.updateMeta 的返回
type MetaResult struct {
	Meta model.ProfileMeta `json:"meta"`
}

// AccountView 账户页需要的资料与当前套餐
type AccountView struct {
	Profile *model.Profile     `json:"profile"`
	Plan    *model.PlanCatalog `json:"plan,omitempty"`
}

func (s *ProfileService) clock() time.Time {
	return timeutil.Normalize(s.now())
}

// Sync 登录后同步资料，首次调用时创建
func (s *ProfileService) Sync(ctx context.Context, uid string, payload map[string]any) (*MetaResult, error) {
	now := s.clock()
	var merged model.ProfileMeta

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		profiles := s.profileRepo.WithDB(tx)

		existing, err := profiles.FindByUID(ctx, uid)
		if err != nil {
			return storageErr("读取用户信息失败", err)
		}
		var current model.ProfileMeta
		if existing != nil {
			current = existing.Meta
		}
		merged = current.Apply(model.ParseMetaPatch(payload["meta"]))

		profile := &model.Profile{
			UID:           uid,
			Owner:         uid,
			Role:          "user",
			Status:        1,
			DisplayName:   displayNameFor(uid, payload["display_name"], merged),
			AvatarURL:     derefOr(firstString(sanitized(payload["avatar_url"], maxAvatarURLLen), merged.Picture), ""),
			Email:         firstString(sanitized(payload["email"], maxEmailLen), merged.Email),
			Phone:         firstString(sanitized(payload["phone"], maxPhoneLen), merged.Phone),
			PlanTier:      model.PlanFree,
			BalanceAmount: decimal.Zero,
			LastLoginAt:   &now,
			Meta:          merged,
			UpdatedAt:     now,
		}
		err = profiles.Upsert(ctx, profile,
			"owner", "role", "status", "display_name", "avatar_url",
			"email", "phone", "last_login_at", "meta", "updated_at")
		if err != nil {
			return storageErr("同步用户资料失败", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &MetaResult{Meta: merged}, nil
}

// UpdateMeta 只合并扩展资料
func (s *ProfileService) UpdateMeta(ctx context.Context, uid string, payload map[string]any) (*MetaResult, error) {
	patch := model.ParseMetaPatch(payload["meta"])
	if patch.Empty() {
		return nil, ErrNothingToUpdate
	}
	return s.applyMeta(ctx, uid, patch)
}

func (s *ProfileService) applyMeta(ctx context.Context, uid string, patch model.MetaPatch) (*MetaResult, error) {
	now := s.clock()
	var merged model.ProfileMeta

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		profiles := s.profileRepo.WithDB(tx)

		existing, err := profiles.FindByUID(ctx, uid)
		if err != nil {
			return storageErr("读取用户信息失败", err)
		}
		var current model.ProfileMeta
		if existing != nil {
			current = existing.Meta
		}
		merged = current.Apply(patch)

		profile := &model.Profile{
			UID:       uid,
			Owner:     uid,
			PlanTier:  model.PlanFree,
			Meta:      merged,
			UpdatedAt: now,
		}
		if err := profiles.Upsert(ctx, profile, "owner", "meta", "updated_at"); err != nil {
			return storageErr("更新用户信息失败", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &MetaResult{Meta: merged}, nil
}

// Update 更新套餐相关字段，资料必须已存在
func (s *ProfileService) Update(ctx context.Context, uid string, payload map[string]any) (map[string]any, error) {
	fields := parseProfileUpdate(payload)
	if len(fields) == 0 {
		return nil, ErrNothingToUpdate
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		profiles := s.profileRepo.WithDB(tx)

		existing, err := profiles.FindByUID(ctx, uid)
		if err != nil {
			return storageErr("更新用户信息失败", err)
		}
		if existing == nil {
			return ErrProfileNotFound
		}
		if _, err := profiles.UpdateFields(ctx, uid, fields); err != nil {
			return storageErr("更新用户信息失败", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

var updateTimeFields = []string{
	"subscription_start_at",
	"subscription_end_at",
	"points_reset_at",
	"updated_at",
	"last_login_at",
}

// parseProfileUpdate 只接受白名单字段，无法解析的时间直接丢弃
func parseProfileUpdate(payload map[string]any) map[string]interface{} {
	fields := make(map[string]interface{})

	for _, key := range []string{"plan_tier", "subscription_status"} {
		if v, ok := payload[key].(string); ok {
			if v = strings.TrimSpace(v); v != "" {
				fields[key] = v
			}
		}
	}

	for _, key := range updateTimeFields {
		if t, ok := parseTimeInput(payload[key]); ok {
			fields[key] = t
		}
	}

	if raw, ok := payload["points_balance"]; ok {
		fields["points_balance"] = int(math.Max(0, math.Floor(model.ToNumber(raw))))
	}

	return fields
}

func parseTimeInput(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, false
	case string:
		return timeutil.ParseTimestamp(v)
	case float64:
		return timeutil.FromEpochMillis(int64(v)), true
	case int64:
		return timeutil.FromEpochMillis(v), true
	case int:
		return timeutil.FromEpochMillis(int64(v)), true
	}
	return time.Time{}, false
}

// GetAccount 账户页读模型
func (s *ProfileService) GetAccount(ctx context.Context, uid string) (*AccountView, error) {
	profile, err := s.profileRepo.FindByUID(ctx, uid)
	if err != nil {
		return nil, storageErr("读取用户信息失败", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}

	plan, err := s.planRepo.GetActive(ctx, profile.Tier())
	if err != nil {
		return nil, storageErr("读取套餐配置失败", err)
	}
	return &AccountView{Profile: profile, Plan: plan}, nil
}

func (s *ProfileService) ListSubscriptions(ctx context.Context, uid string, page, pageSize int) ([]*model.Subscription, int64, error) {
	subs, total, err := s.subRepo.ListByUID(ctx, uid, page, pageSize)
	if err != nil {
		return nil, 0, storageErr("读取订阅记录失败", err)
	}
	return subs, total, nil
}

func (s *ProfileService) ListLedger(ctx context.Context, uid string, page, pageSize int) ([]*model.LedgerEntry, int64, error) {
	entries, total, err := s.ledgerRepo.ListByUID(ctx, uid, page, pageSize)
	if err != nil {
		return nil, 0, storageErr("读取账单记录失败", err)
	}
	return entries, total, nil
}

func (s *ProfileService) ListPlans(ctx context.Context) ([]*model.PlanCatalog, error) {
	plans, err := s.planRepo.ListActive(ctx)
	if err != nil {
		return nil, storageErr("读取套餐配置失败", err)
	}
	return plans, nil
}

// MaxAvatarSize 头像字节上限，0 表示不限
func (s *ProfileService) MaxAvatarSize() int64 {
	return s.maxAvatarSize
}

// UploadAvatar 上传头像并写回资料，返回新地址
func (s *ProfileService) UploadAvatar(ctx context.Context, uid string, data []byte, ext string) (string, error) {
	if s.avatars == nil {
		return "", ErrOSSNotConfigured
	}

	ext = strings.ToLower(ext)
	if ext == "" {
		ext = defaultAvatarExt
	}
	if !oss.AllowedAvatarExt(ext) {
		return "", ErrInvalidAvatarType
	}
	if s.maxAvatarSize > 0 && int64(len(data)) > s.maxAvatarSize {
		return "", ErrAvatarTooLarge
	}

	existing, err := s.profileRepo.FindByUID(ctx, uid)
	if err != nil {
		return "", storageErr("读取用户信息失败", err)
	}

	avatarURL, err := s.avatars.UploadAvatar(uid, data, ext)
	if err != nil {
		return "", storageErr("头像上传失败", err)
	}

	// 保留已有的显示名与联系方式，避免被回退链覆盖
	payload := map[string]any{
		"avatar_url": avatarURL,
		"meta":       map[string]any{"picture": avatarURL},
	}
	if existing != nil {
		payload["display_name"] = existing.DisplayName
		if existing.Email != nil {
			payload["email"] = *existing.Email
		}
		if existing.Phone != nil {
			payload["phone"] = *existing.Phone
		}
	}
	if _, err := s.Sync(ctx, uid, payload); err != nil {
		return "", err
	}

	if existing != nil && existing.AvatarURL != "" && existing.AvatarURL != avatarURL {
		if err := s.avatars.DeleteByURL(existing.AvatarURL); err != nil {
			s.logger.Warn("failed to delete old avatar",
				zap.String("uid", uid),
				zap.String("url", existing.AvatarURL),
				zap.Error(err),
			)
		}
	}
	return avatarURL, nil
}

// displayNameFor 显式名称 → 资料名 → 手机 → 邮箱 → 用户+uid 前 6 位
func displayNameFor(uid string, explicit any, meta model.ProfileMeta) string {
	if name := firstString(sanitized(explicit, maxDisplayNameLen), meta.Name, meta.Phone, meta.Email); name != nil {
		return *name
	}
	runes := []rune(uid)
	if len(runes) > 6 {
		runes = runes[:6]
	}
	return "用户" + string(runes)
}

func sanitized(raw any, maxLen int) *string {
	v, _ := model.SanitizeString(raw, maxLen)
	return v
}

func firstString(candidates ...*string) *string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			v := *c
			return &v
		}
	}
	return nil
}

func derefOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}
