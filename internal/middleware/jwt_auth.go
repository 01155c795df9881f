package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailworker/backend/internal/auth/jwt"
)

// 上下文键
const (
	ContextUserID = "userID"
	ContextEmail  = "email"
)

// TokenValidator 校验访问令牌
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// JWTAuth JWT认证中间件
type JWTAuth struct {
	validator TokenValidator
	log       *zap.Logger
}

// NewJWTAuth 创建JWT认证中间件
func NewJWTAuth(validator TokenValidator, log *zap.Logger) *JWTAuth {
	if log == nil {
		log = zap.NewNop()
	}
	return &JWTAuth{
		validator: validator,
		log:       log,
	}
}

// RequireAuth 要求JWT认证，成功后在上下文中写入 userID
func (ja *JWTAuth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			abortUnauthorized(c, "需要登录认证")
			return
		}

		claims, err := ja.validator.ValidateToken(token)
		if err != nil {
			ja.log.Warn("invalid token",
				zap.String("error", err.Error()),
				zap.String("ip", c.ClientIP()),
			)
			if errors.Is(err, jwt.ErrExpiredToken) {
				abortUnauthorized(c, "登录已过期，请重新登录")
				return
			}
			abortUnauthorized(c, "无效的访问令牌")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)

		c.Next()
	}
}

// UserID 读取认证中间件写入的用户ID
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

// extractToken 从 Authorization 头或 cookie 提取令牌
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	token, err := c.Cookie("access_token")
	if err == nil && token != "" {
		return token
	}

	return ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": http.StatusUnauthorized,
		"msg":  msg,
	})
}
