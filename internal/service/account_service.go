package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/qs3c/aipara_account_server/internal/model"
	"github.com/qs3c/aipara_account_server/internal/pkg/identity"
	"github.com/qs3c/aipara_account_server/internal/pkg/logger"
	"github.com/qs3c/aipara_account_server/internal/pkg/phone"
	"github.com/qs3c/aipara_account_server/internal/pkg/timeutil"
)

var (
	ErrTargetRequired       = errors.New("请输入邮箱或手机号。")
	ErrTargetUnchanged      = errors.New("请输入新的邮箱或手机号。")
	ErrCodeRequired         = errors.New("请输入验证码。")
	ErrPasswordRequired     = errors.New("请输入登录密码用于安全校验。")
	ErrPasswordTooShort     = errors.New("密码长度至少 6 位。")
	ErrPasswordNotSet       = errors.New("请先设置登录密码后再绑定。")
	ErrVerificationExpired  = errors.New("验证码已失效，请重新获取。")
	ErrVerificationMismatch = errors.New("验证码与当前账号不匹配，请重新获取。")
	ErrRequestCodeFailed    = errors.New("验证码发送失败，请检查信息后重试。")
	ErrSetPasswordFailed    = errors.New("密码设置失败，请检查验证码后重试。")
	ErrBindEmailFailed      = errors.New("邮箱绑定失败，请检查验证码后重试。")
	ErrBindPhoneFailed      = errors.New("手机号绑定失败，请检查验证码后重试。")
)

const minPasswordLen = 6

// VerificationStore 记录验证码发给了谁
type VerificationStore interface {
	Save(ctx context.Context, verificationID string, p identity.Pending) error
	Consume(ctx context.Context, verificationID string) (*identity.Pending, error)
}

// SetPasswordInput 设置密码表单
type SetPasswordInput struct {
	Target         identity.Target
	VerificationID string
	Code           string
	NewPassword    string
}

// BindInput 绑定邮箱或手机号表单
type BindInput struct {
	Target         identity.Target
	VerificationID string
	Code           string
	Password       string
}

// AccountService 在服务端完成验证码 → 验证令牌 → sudo → 敏感操作的握手
type AccountService struct {
	provider identity.Provider
	pending  VerificationStore
	profiles *ProfileService
	logger   *zap.Logger
	now      func() time.Time
}

func NewAccountService(provider identity.Provider, pending VerificationStore, profiles *ProfileService, log *zap.Logger) *AccountService {
	return &AccountService{
		provider: provider,
		pending:  pending,
		profiles: profiles,
		logger:   logger.OrNop(log),
		now:      time.Now,
	}
}

// normalizeTarget 邮箱优先；手机号转为身份服务格式
func normalizeTarget(t identity.Target) identity.Target {
	if email := strings.TrimSpace(t.Email); email != "" {
		return identity.Target{Email: email}
	}
	return identity.Target{Phone: phone.NormalizeForAPI(t.Phone)}
}

// RequestCode 发送验证码并记录归属
func (s *AccountService) RequestCode(ctx context.Context, uid string, target identity.Target) (*identity.Verification, error) {
	if uid == "" {
		return nil, ErrUnauthorized
	}
	target = normalizeTarget(target)
	if target.Empty() {
		return nil, ErrTargetRequired
	}

	verification, err := s.provider.RequestVerification(ctx, target)
	if err != nil {
		s.logger.Warn("request verification failed",
			zap.String("uid", uid),
			zap.String("target", target.Value()),
			zap.Error(err),
		)
		return nil, ErrRequestCodeFailed
	}

	if err := s.pending.Save(ctx, verification.ID, identity.Pending{UID: uid, Target: target}); err != nil {
		return nil, storageErr("保存验证码记录失败", err)
	}
	return verification, nil
}

// verify 核对验证码归属后换取验证令牌
func (s *AccountService) verify(ctx context.Context, uid string, target identity.Target, verificationID, code string) (string, error) {
	pending, err := s.pending.Consume(ctx, verificationID)
	if errors.Is(err, identity.ErrPendingNotFound) {
		return "", ErrVerificationExpired
	}
	if err != nil {
		return "", storageErr("读取验证码记录失败", err)
	}
	if pending.UID != uid || pending.Target != target {
		s.logger.Warn("verification reused for another account or target",
			zap.String("uid", uid),
			zap.String("target", target.Value()),
			zap.String("issued_target", pending.Target.Value()),
		)
		return "", ErrVerificationMismatch
	}
	return s.provider.ExchangeVerification(ctx, verificationID, code)
}

// SetPassword 验证码 → sudo → 设置密码，成功后记录到资料
func (s *AccountService) SetPassword(ctx context.Context, uid, accessToken string, in SetPasswordInput) (*MetaResult, error) {
	if uid == "" {
		return nil, ErrUnauthorized
	}
	target := normalizeTarget(in.Target)
	if target.Empty() {
		return nil, ErrTargetRequired
	}
	if strings.TrimSpace(in.Code) == "" {
		return nil, ErrCodeRequired
	}
	if utf8.RuneCountInString(in.NewPassword) < minPasswordLen {
		return nil, ErrPasswordTooShort
	}

	verificationToken, err := s.verify(ctx, uid, target, in.VerificationID, in.Code)
	if err != nil {
		return nil, s.flowError("set password", uid, err, ErrSetPasswordFailed)
	}
	sudoToken, err := s.provider.Elevate(ctx, accessToken, identity.Credential{VerificationToken: verificationToken})
	if err != nil {
		return nil, s.flowError("set password", uid, err, ErrSetPasswordFailed)
	}
	if err := s.provider.SetPassword(ctx, accessToken, sudoToken, in.NewPassword); err != nil {
		return nil, s.flowError("set password", uid, err, ErrSetPasswordFailed)
	}

	now := s.clock()
	method := model.PasswordMethodPhone
	if target.Email != "" {
		method = model.PasswordMethodEmail
	}
	patch := model.MetaPatch{
		PasswordSet:     model.Value(true),
		PasswordSkipped: model.Value(false),
		PasswordSetAt:   model.Value(now),
		PasswordMethod:  model.Value(method),
	}
	if target.Email != "" {
		patch.Email = model.Value(target.Email)
	} else {
		patch.Phone = model.Value(phone.FormatForDisplay(target.Phone))
	}
	return s.profiles.applyMeta(ctx, uid, patch)
}

// SkipPassword 记录用户暂不设置密码
func (s *AccountService) SkipPassword(ctx context.Context, uid string) (*MetaResult, error) {
	if uid == "" {
		return nil, ErrUnauthorized
	}
	return s.profiles.applyMeta(ctx, uid, model.MetaPatch{
		PasswordSkipped:   model.Value(true),
		PasswordSkippedAt: model.Value(s.clock()),
	})
}

// BindEmail 密码 sudo → 验证码 → 绑定邮箱
func (s *AccountService) BindEmail(ctx context.Context, uid, accessToken string, in BindInput) (*MetaResult, error) {
	email := strings.TrimSpace(in.Target.Email)
	if email == "" {
		return nil, ErrTargetRequired
	}
	current, err := s.checkBind(ctx, uid, in)
	if err != nil {
		return nil, err
	}
	if current.Email != nil && strings.EqualFold(*current.Email, email) {
		return nil, ErrTargetUnchanged
	}

	target := identity.Target{Email: email}
	sudoToken, verificationToken, err := s.elevateAndVerify(ctx, uid, accessToken, target, in)
	if err != nil {
		return nil, s.flowError("bind email", uid, err, ErrBindEmailFailed)
	}
	if err := s.provider.BindEmail(ctx, accessToken, sudoToken, email, verificationToken); err != nil {
		return nil, s.flowError("bind email", uid, err, ErrBindEmailFailed)
	}

	return s.profiles.applyMeta(ctx, uid, model.MetaPatch{
		Email:        model.Value(email),
		EmailBoundAt: model.Value(s.clock()),
	})
}

// BindPhone 密码 sudo → 验证码 → 绑定手机号；资料中同时保存展示格式和 E.164 格式
func (s *AccountService) BindPhone(ctx context.Context, uid, accessToken string, in BindInput) (*MetaResult, error) {
	normalized := phone.NormalizeForAPI(in.Target.Phone)
	if normalized == "" {
		return nil, ErrTargetRequired
	}
	current, err := s.checkBind(ctx, uid, in)
	if err != nil {
		return nil, err
	}
	display := phone.FormatForDisplay(normalized)
	if current.Phone != nil && phone.FormatForDisplay(*current.Phone) == display {
		return nil, ErrTargetUnchanged
	}

	target := identity.Target{Phone: normalized}
	sudoToken, verificationToken, err := s.elevateAndVerify(ctx, uid, accessToken, target, in)
	if err != nil {
		return nil, s.flowError("bind phone", uid, err, ErrBindPhoneFailed)
	}
	if err := s.provider.BindPhone(ctx, accessToken, sudoToken, normalized, verificationToken); err != nil {
		return nil, s.flowError("bind phone", uid, err, ErrBindPhoneFailed)
	}

	return s.profiles.applyMeta(ctx, uid, model.MetaPatch{
		Phone:        model.Value(display),
		PhoneE164:    model.Value(normalized),
		PhoneBoundAt: model.Value(s.clock()),
	})
}

// checkBind 绑定前必须已设置密码，返回当前资料
func (s *AccountService) checkBind(ctx context.Context, uid string, in BindInput) (model.ProfileMeta, error) {
	if uid == "" {
		return model.ProfileMeta{}, ErrUnauthorized
	}
	if in.Password == "" {
		return model.ProfileMeta{}, ErrPasswordRequired
	}
	if strings.TrimSpace(in.Code) == "" {
		return model.ProfileMeta{}, ErrCodeRequired
	}

	profile, err := s.profiles.profileRepo.FindByUID(ctx, uid)
	if err != nil {
		return model.ProfileMeta{}, storageErr("读取用户信息失败", err)
	}
	if profile == nil || profile.Meta.PasswordSet == nil || !*profile.Meta.PasswordSet {
		return model.ProfileMeta{}, ErrPasswordNotSet
	}
	return profile.Meta, nil
}

func (s *AccountService) elevateAndVerify(ctx context.Context, uid, accessToken string, target identity.Target, in BindInput) (string, string, error) {
	sudoToken, err := s.provider.Elevate(ctx, accessToken, identity.Credential{Password: in.Password})
	if err != nil {
		return "", "", err
	}
	verificationToken, err := s.verify(ctx, uid, target, in.VerificationID, in.Code)
	if err != nil {
		return "", "", err
	}
	return sudoToken, verificationToken, nil
}

// flowError 身份服务的错误统一替换为页面提示，原因写日志
func (s *AccountService) flowError(flow, uid string, err, userErr error) error {
	if errors.Is(err, ErrVerificationExpired) || errors.Is(err, ErrVerificationMismatch) || isStorageError(err) {
		return err
	}
	s.logger.Warn("identity flow failed",
		zap.String("flow", flow),
		zap.String("uid", uid),
		zap.Error(err),
	)
	return userErr
}

func isStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func (s *AccountService) clock() time.Time {
	return timeutil.Normalize(s.now())
}
