package service

import (
	"errors"
	"fmt"
)

// 调用方错误，消息原样返回给页面
var (
	ErrMissingAction   = errors.New("缺少 action 参数")
	ErrUnauthorized    = errors.New("未登录或登录态失效")
	ErrUnknownAction   = errors.New("未知的 action")
	ErrNothingToUpdate = errors.New("没有可更新的字段")
	ErrProfileNotFound = errors.New("用户信息不存在")
)

// StorageError 存储失败，只向调用方返回 Message，原因写日志
type StorageError struct {
	Message string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(message string, err error) error {
	return &StorageError{Message: message, Err: err}
}

const defaultFailureMessage = "服务执行失败"

// invalidRequestErrors 映射为 400 的业务错误
var invalidRequestErrors = []error{
	ErrMissingAction,
	ErrUnknownAction,
	ErrNothingToUpdate,
	ErrProfileNotFound,
	ErrAlreadyPro,
	ErrNotPro,
	ErrInsufficientUpgrade,
	ErrInsufficientRenew,
	ErrInvalidAvatarType,
	ErrAvatarTooLarge,
	ErrTargetRequired,
	ErrTargetUnchanged,
	ErrCodeRequired,
	ErrPasswordTooShort,
	ErrPasswordRequired,
	ErrPasswordNotSet,
	ErrVerificationExpired,
	ErrVerificationMismatch,
	ErrRequestCodeFailed,
	ErrSetPasswordFailed,
	ErrBindEmailFailed,
	ErrBindPhoneFailed,
}

// ErrorCode 错误对应的响应码
func ErrorCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, ErrUnauthorized) {
		return 401
	}
	var se *StorageError
	if errors.As(err, &se) {
		return 500
	}
	for _, target := range invalidRequestErrors {
		if errors.Is(err, target) {
			return 400
		}
	}
	return 500
}

// ErrorMessage 可以展示给用户的错误消息
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *StorageError
	if errors.As(err, &se) {
		return se.Message
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrOSSNotConfigured) {
		return err.Error()
	}
	for _, target := range invalidRequestErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return defaultFailureMessage
}
