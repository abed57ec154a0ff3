// Package identity 托管身份服务的能力接口：验证码、验证令牌、sudo 提权和敏感操作
package identity

import (
	"context"
	"fmt"
)

// Target 验证码发送目标，二选一
type Target struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone_number,omitempty"`
}

// Value 目标的字符串形式
func (t Target) Value() string {
	if t.Email != "" {
		return t.Email
	}
	return t.Phone
}

func (t Target) Empty() bool {
	return t.Email == "" && t.Phone == ""
}

// Verification 发送验证码后得到的凭据
type Verification struct {
	ID        string `json:"verification_id"`
	ExpiresIn int    `json:"expires_in"`
	IsUser    bool   `json:"is_user"`
}

// Credential 提权凭据，密码或验证令牌二选一
type Credential struct {
	Password          string `json:"password,omitempty"`
	VerificationToken string `json:"verification_token,omitempty"`
}

// Provider 每一步返回的令牌只用于下一步，调用方不解析其内容
type Provider interface {
	RequestVerification(ctx context.Context, target Target) (*Verification, error)
	ExchangeVerification(ctx context.Context, verificationID, code string) (string, error)
	Elevate(ctx context.Context, accessToken string, cred Credential) (string, error)
	SetPassword(ctx context.Context, accessToken, sudoToken, newPassword string) error
	BindEmail(ctx context.Context, accessToken, sudoToken, email, verificationToken string) error
	BindPhone(ctx context.Context, accessToken, sudoToken, phone, verificationToken string) error
}

// Error 身份服务返回的业务错误
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"error_description"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("identity: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("identity: %s (status %d)", e.Code, e.Status)
}
