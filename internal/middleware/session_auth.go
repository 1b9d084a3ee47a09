package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"webmail/backend/internal/session"
)

// ContextUsername gin 上下文里已认证用户名的键。
const ContextUsername = "username"

// SessionAuth 会话令牌认证中间件。
//
// 令牌是注册表签发的不透明随机串，服务端可随时吊销，
// 客户端通过 Authorization: Bearer 或 cookie 携带。
type SessionAuth struct {
	sessions *session.Registry
	log      *zap.Logger
}

// NewSessionAuth 创建会话认证中间件。
func NewSessionAuth(sessions *session.Registry, log *zap.Logger) *SessionAuth {
	return &SessionAuth{
		sessions: sessions,
		log:      log,
	}
}

// RequireAuth 要求有效会话，否则返回 401。
func (sa *SessionAuth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sa.extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			c.Abort()
			return
		}

		username, ok := sa.sessions.Validate(token)
		if !ok {
			sa.log.Warn("invalid session token",
				zap.String("ip", c.ClientIP()),
			)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired session",
			})
			c.Abort()
			return
		}

		c.Set(ContextUsername, username)
		c.Set("sessionToken", token)
		c.Next()
	}
}

// extractToken 从 Authorization 头或 cookie 提取令牌。
func (sa *SessionAuth) extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}

	token, err := c.Cookie("session_token")
	if err == nil && token != "" {
		return token
	}
	return ""
}
