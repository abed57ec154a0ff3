package dto

import (
	"github.com/qs3c/aipara_account_server/internal/pkg/identity"
)

// TargetFields 邮箱或手机号，二选一
type TargetFields struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (f TargetFields) Target() identity.Target {
	return identity.Target{Email: f.Email, Phone: f.Phone}
}

// VerificationRequest 发送验证码
type VerificationRequest struct {
	TargetFields
}

// VerificationResponse 发送验证码结果
type VerificationResponse struct {
	VerificationID string `json:"verification_id"`
	ExpiresIn      int    `json:"expires_in"`
}

// SetPasswordRequest 设置登录密码
type SetPasswordRequest struct {
	TargetFields
	VerificationID string `json:"verification_id" binding:"required"`
	Code           string `json:"code"`
	NewPassword    string `json:"new_password"`
}

// BindRequest 绑定邮箱或手机号
type BindRequest struct {
	TargetFields
	VerificationID string `json:"verification_id" binding:"required"`
	Code           string `json:"code"`
	Password       string `json:"password"`
}

// AvatarResponse 头像上传结果
type AvatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}

// PageQuery 分页参数
type PageQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Normalize 缺省第一页每页 20 条，最多 100 条
func (q PageQuery) Normalize() (int, int) {
	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
