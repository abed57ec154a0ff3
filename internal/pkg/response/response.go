package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码定义，沿用 HTTP 语义
const (
	CodeSuccess        = 0
	CodeInvalidRequest = 400
	CodeUnauthorized   = 401
	CodeNotFound       = 404
	CodeServerError    = 500
)

// 错误码对应的默认消息
var codeMessages = map[int]string{
	CodeSuccess:        "success",
	CodeInvalidRequest: "参数错误",
	CodeUnauthorized:   "未登录或登录态失效",
	CodeNotFound:       "资源不存在",
	CodeServerError:    "服务器内部错误",
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// PageData 分页数据结构
type PageData struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Items    interface{} `json:"items"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: CodeSuccess,
		Data: data,
	})
}

// SuccessPage 分页成功响应
func SuccessPage(c *gin.Context, total int64, page, pageSize int, items interface{}) {
	Success(c, PageData{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Items:    items,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	if message == "" {
		message = codeMessages[code]
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

// ParamError 参数错误
func ParamError(c *gin.Context, message string) {
	Error(c, CodeInvalidRequest, message)
}

// AuthError 未登录
func AuthError(c *gin.Context, message string) {
	Error(c, CodeUnauthorized, message)
}

// NotFoundError 资源不存在
func NotFoundError(c *gin.Context, message string) {
	Error(c, CodeNotFound, message)
}

// ServerError 服务器错误
func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}
