package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/aipara_account_server/internal/pkg/jwt"
	"github.com/qs3c/aipara_account_server/internal/pkg/response"
)

const (
	UIDKey         = "uid"
	AccessTokenKey = "accessToken"
)

// bearerToken 取 Authorization: Bearer 后的令牌
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if authHeader == "" || token == authHeader || token == "" {
		return "", false
	}
	return token, true
}

// Auth JWT 认证中间件；原始令牌一并放入上下文，供身份服务调用使用
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			response.AuthError(c, "请提供认证信息")
			c.Abort()
			return
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			response.AuthError(c, "认证格式错误")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		c.Set(UIDKey, claims.UID())
		c.Set(AccessTokenKey, tokenString)
		c.Next()
	}
}

// OptionalAuth 可选认证中间件（不强制要求登录）
func OptionalAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		if claims, err := jwt.ParseToken(tokenString, jwtSecret); err == nil {
			c.Set(UIDKey, claims.UID())
			c.Set(AccessTokenKey, tokenString)
		}
		c.Next()
	}
}

// GetUID 从上下文获取用户 uid
func GetUID(c *gin.Context) (string, bool) {
	v, exists := c.Get(UIDKey)
	if !exists {
		return "", false
	}
	uid, ok := v.(string)
	return uid, ok && uid != ""
}

// GetAccessToken 当前请求的访问令牌
func GetAccessToken(c *gin.Context) string {
	return c.GetString(AccessTokenKey)
}
