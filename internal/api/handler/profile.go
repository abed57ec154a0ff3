package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/aipara_account_server/internal/api/middleware"
	"github.com/qs3c/aipara_account_server/internal/service"
)

type ProfileHandler struct {
	dispatcher *service.Dispatcher
}

func NewProfileHandler(dispatcher *service.Dispatcher) *ProfileHandler {
	return &ProfileHandler{dispatcher: dispatcher}
}

// Invoke 服务入口，缺少 action 的校验先于登录校验
// POST /api/v1/profile-service
func (h *ProfileHandler) Invoke(c *gin.Context) {
	var req service.Request
	// 非法 JSON 按空请求处理
	_ = c.ShouldBindJSON(&req)

	uid, _ := middleware.GetUID(c)
	c.JSON(http.StatusOK, h.dispatcher.Invoke(c.Request.Context(), uid, req))
}
