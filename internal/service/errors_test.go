package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{nil, 0},
		{ErrUnauthorized, 401},
		{ErrMissingAction, 400},
		{fmt.Errorf("wrapped: %w", ErrNotPro), 400},
		{ErrSetPasswordFailed, 400},
		{storageErr("写入账单记录失败", errors.New("duplicate key")), 500},
		{ErrOSSNotConfigured, 500},
		{errors.New("unexpected"), 500},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, ErrorCode(tt.err), fmt.Sprint(tt.err))
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "", ErrorMessage(nil))
	assert.Equal(t, "当前不是 Pro 套餐", ErrorMessage(fmt.Errorf("cancel: %w", ErrNotPro)))
	assert.Equal(t, "写入账单记录失败", ErrorMessage(storageErr("写入账单记录失败", errors.New("duplicate key"))))
	assert.Equal(t, "服务执行失败", ErrorMessage(errors.New("panic-ish")))
	assert.Equal(t, "未登录或登录态失效", ErrorMessage(ErrUnauthorized))
}

func TestStorageError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := storageErr("更新余额失败", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
