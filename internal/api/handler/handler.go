package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/aipara_account_server/internal/pkg/response"
	"github.com/qs3c/aipara_account_server/internal/service"
)

// respondError 按服务层错误分类输出信封
func respondError(c *gin.Context, err error) {
	response.Error(c, service.ErrorCode(err), service.ErrorMessage(err))
}
