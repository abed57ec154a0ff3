package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/aipara_account_server/internal/pkg/metrics"
)

// Metrics 按路由模板记录请求数与耗时，避免把路径参数打进标签
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
