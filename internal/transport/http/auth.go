package httptransport

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"webmail/backend/internal/auth"
	"webmail/backend/internal/middleware"
	"webmail/backend/internal/monitoring"
	"webmail/backend/internal/session"
)

// AuthHandler 处理认证相关的 HTTP 请求
type AuthHandler struct {
	auth     *auth.Service
	sessions *session.Registry
	metrics  *monitoring.Metrics
	log      *zap.Logger
}

// NewAuthHandler 创建认证处理器。
func NewAuthHandler(authService *auth.Service, sessions *session.Registry, metrics *monitoring.Metrics, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     authService,
		sessions: sessions,
		metrics:  metrics,
		log:      log,
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

type resetPasswordRequest struct {
	Username     string `json:"username" binding:"required"`
	RecoveryCode string `json:"recoveryCode" binding:"required"`
	NewPassword  string `json:"newPassword" binding:"required"`
}

type registerResponse struct {
	Username     string    `json:"username"`
	RecoveryCode string    `json:"recoveryCode"` // 仅注册时返回一次
	CreatedAt    time.Time `json:"createdAt"`
}

type loginResponse struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Register 注册新用户并开通邮箱。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	user, recoveryCode, err := h.auth.Register(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			Conflict(c, GetErrorMessage(err))
		case errors.Is(err, auth.ErrInvalidPassword):
			BadRequest(c, GetErrorMessage(err))
		default:
			h.log.Error("failed to register user",
				zap.String("username", req.Username),
				zap.Error(err),
			)
			// 用户名校验错误也走这条路径
			BadRequest(c, GetErrorMessage(err))
		}
		return
	}

	if h.metrics != nil {
		h.metrics.UsersRegistered.Inc()
	}
	h.log.Info("user registered", zap.String("username", user.Username))

	Created(c, registerResponse{
		Username:     user.Username,
		RecoveryCode: recoveryCode,
		CreatedAt:    user.CreatedAt,
	})
}

// Login 校验凭证并签发会话令牌。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	user, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		// 用户不存在和密码错误返回同一个消息，不暴露用户名是否注册
		h.log.Warn("login failed",
			zap.String("username", req.Username),
			zap.String("ip", c.ClientIP()),
		)
		Unauthorized(c, GetErrorMessage(auth.ErrInvalidCredentials))
		return
	}

	token := h.sessions.Issue(user.Username)
	if h.metrics != nil {
		h.metrics.SessionsActive.Inc()
	}
	h.log.Info("user logged in", zap.String("username", user.Username))

	Success(c, loginResponse{
		Username: user.Username,
		Token:    token,
	})
}

// Logout 吊销当前会话令牌。
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, exists := c.Get("sessionToken"); exists {
		h.sessions.Revoke(token.(string))
		if h.metrics != nil {
			h.metrics.SessionsActive.Dec()
		}
	}
	NoContent(c)
}

// ChangePassword 修改当前用户的密码。
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	username := c.GetString(middleware.ContextUsername)
	if err := h.auth.ChangePassword(username, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			Unauthorized(c, GetErrorMessage(err))
		case errors.Is(err, auth.ErrInvalidPassword):
			BadRequest(c, GetErrorMessage(err))
		default:
			h.log.Error("failed to change password",
				zap.String("username", username),
				zap.Error(err),
			)
			InternalError(c, MsgInternalError)
		}
		return
	}
	NoContent(c)
}

// ResetPassword 用恢复码重置密码，返回轮换后的新恢复码。
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	nextCode, err := h.auth.ResetPassword(req.Username, req.RecoveryCode, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidRecoveryCode), errors.Is(err, auth.ErrUserNotFound):
			// 同样不暴露用户名是否注册
			Unauthorized(c, GetErrorMessage(auth.ErrInvalidRecoveryCode))
		case errors.Is(err, auth.ErrInvalidPassword):
			BadRequest(c, GetErrorMessage(err))
		default:
			h.log.Error("failed to reset password",
				zap.String("username", req.Username),
				zap.Error(err),
			)
			InternalError(c, MsgInternalError)
		}
		return
	}

	Success(c, gin.H{"recoveryCode": nextCode})
}

// Me 返回当前登录用户的信息。
func (h *AuthHandler) Me(c *gin.Context) {
	username := c.GetString(middleware.ContextUsername)
	user, err := h.auth.GetUser(username)
	if err != nil {
		InternalError(c, MsgInternalError)
		return
	}
	Success(c, gin.H{
		"username":    user.Username,
		"createdAt":   user.CreatedAt,
		"lastLoginAt": user.LastLoginAt,
	})
}
