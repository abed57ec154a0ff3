package handler

import (
	"context"
	"io"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/aipara_account_server/internal/api/middleware"
	"github.com/qs3c/aipara_account_server/internal/model/dto"
	"github.com/qs3c/aipara_account_server/internal/pkg/response"
	"github.com/qs3c/aipara_account_server/internal/service"
)

type AccountHandler struct {
	profiles *service.ProfileService
	accounts *service.AccountService
}

func NewAccountHandler(profiles *service.ProfileService, accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{
		profiles: profiles,
		accounts: accounts,
	}
}

// Get 账户页资料
// GET /api/v1/account
func (h *AccountHandler) Get(c *gin.Context) {
	uid, ok := middleware.GetUID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	view, err := h.profiles.GetAccount(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, view)
}

// ListSubscriptions 订阅记录
// GET /api/v1/account/subscriptions
func (h *AccountHandler) ListSubscriptions(c *gin.Context) {
	uid, ok := middleware.GetUID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, "分页参数错误")
		return
	}
	page, size := q.Normalize()

	subs, total, err := h.profiles.ListSubscriptions(c.Request.Context(), uid, page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessPage(c, total, page, size, subs)
}

// ListLedger 账单记录
// GET /api/v1/account/ledger
func (h *AccountHandler) ListLedger(c *gin.Context) {
	uid, ok := middleware.GetUID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ParamError(c, "分页参数错误")
		return
	}
	page, size := q.Normalize()

	entries, total, err := h.profiles.ListLedger(c.Request.Context(), uid, page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessPage(c, total, page, size, entries)
}

// ListPlans 套餐目录
// GET /api/v1/plans
func (h *AccountHandler) ListPlans(c *gin.Context) {
	plans, err := h.profiles.ListPlans(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"plans": plans})
}

// RequestCode 发送验证码
// POST /api/v1/account/verification
func (h *AccountHandler) RequestCode(c *gin.Context) {
	uid, ok := middleware.GetUID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.VerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "请求格式错误")
		return
	}

	v, err := h.accounts.RequestCode(c.Request.Context(), uid, req.Target())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, dto.VerificationResponse{VerificationID: v.ID, ExpiresIn: v.ExpiresIn})
}

// SetPassword 设置登录密码
// POST /api/v1/account/password
func (h *AccountHandler) SetPassword(c *gin.Context) {
	uid, ok := middleware.GetUID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, service.ErrVerificationExpired.Error())
		return
	}

	result, err := h.accounts.SetPassword(c.Request.Context(), uid, middleware.GetAccessToken(c), service.SetPasswordInput{
		Target:         req.Target(),
		VerificationID: req.VerificationID,
		Code:           req.Code,
		NewPassword:    req.NewPassword,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// SkipPassword 暂不设置密码
// POST /api/v1/account/password/skip
func (h *AccountHandler) SkipPassword(c *gin.Context) {
	uid, ok := middleware.GetUID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	result, err := h.accounts.SkipPassword(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// BindEmail 绑定邮箱
// POST /api/v1/account/email
func (h *AccountHandler) BindEmail(c *gin.Context) {
	h.bind(c, h.accounts.BindEmail)
}

// BindPhone 绑定手机号
// POST /api/v1/account/phone
func (h *AccountHandler) BindPhone(c *gin.Context) {
	h.bind(c, h.accounts.BindPhone)
}

type bindFunc func(ctx context.Context, uid, accessToken string, in service.BindInput) (*service.MetaResult, error)

func (h *AccountHandler) bind(c *gin.Context, fn bindFunc) {
	uid, ok := middleware.GetUID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.BindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, service.ErrVerificationExpired.Error())
		return
	}

	result, err := fn(c.Request.Context(), uid, middleware.GetAccessToken(c), service.BindInput{
		Target:         req.Target(),
		VerificationID: req.VerificationID,
		Code:           req.Code,
		Password:       req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// UploadAvatar 上传头像
// POST /api/v1/account/avatar
func (h *AccountHandler) UploadAvatar(c *gin.Context) {
	uid, ok := middleware.GetUID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.ParamError(c, "请选择文件")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.ServerError(c, "文件读取失败")
		return
	}
	defer f.Close()

	// 多读一个字节即可判定超限，不把整个文件读进内存
	var reader io.Reader = f
	if limit := h.profiles.MaxAvatarSize(); limit > 0 {
		reader = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		response.ServerError(c, "文件读取失败")
		return
	}

	avatarURL, err := h.profiles.UploadAvatar(c.Request.Context(), uid, data, filepath.Ext(file.Filename))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, dto.AvatarResponse{AvatarURL: avatarURL})
}
