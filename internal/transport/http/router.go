package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"webmail/backend/internal/auth"
	"webmail/backend/internal/config"
	"webmail/backend/internal/health"
	"webmail/backend/internal/middleware"
	"webmail/backend/internal/monitoring"
	"webmail/backend/internal/security"
	"webmail/backend/internal/service"
	"webmail/backend/internal/session"
	"webmail/backend/internal/storage/blob"
	"webmail/backend/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config       *config.Config
	MailService  *service.MailService
	StatsService *service.StatsService
	AuthService  *auth.Service
	BlobStore    *blob.Store
	Sessions     *session.Registry
	Hub          *websocket.Hub // 可以为 nil
	Metrics      *monitoring.Metrics
	Health       *health.Checker
	Logger       *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Logger, deps.Metrics))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	if deps.Metrics != nil {
		router.Use(middleware.HTTPMetrics(deps.Metrics))
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// 允许所有来源时必须关闭凭证支持
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	authHandler := NewAuthHandler(deps.AuthService, deps.Sessions, deps.Metrics, deps.Logger)
	mailHandler := NewMailHandler(
		deps.MailService,
		deps.StatsService,
		deps.BlobStore,
		deps.Hub,
		deps.Metrics,
		deps.Config.Trash.RetentionDays,
		deps.Logger,
	)
	attachmentPolicy := security.NewAttachmentPolicy(middleware.AttachmentBodyLimit)
	attachmentHandler := NewAttachmentHandler(deps.BlobStore, attachmentPolicy, deps.Metrics, deps.Logger)

	sessionAuth := middleware.NewSessionAuth(deps.Sessions, deps.Logger)

	// 运维端点
	if deps.Health != nil {
		router.GET("/live", gin.WrapH(deps.Health.Handler()))
		router.GET("/ready", gin.WrapH(deps.Health.Handler()))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	v1 := router.Group("/v1")
	{
		// ========== Auth Routes ==========
		authRoutes := v1.Group("/auth")
		authRoutes.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/reset-password", authHandler.ResetPassword)
			authRoutes.POST("/logout", sessionAuth.RequireAuth(), authHandler.Logout)
			authRoutes.POST("/change-password", sessionAuth.RequireAuth(), authHandler.ChangePassword)
			authRoutes.GET("/me", sessionAuth.RequireAuth(), authHandler.Me)
		}

		// ========== Mail Routes ==========
		mailRoutes := v1.Group("/mail")
		mailRoutes.Use(sessionAuth.RequireAuth())
		{
			mailRoutes.POST("/send", middleware.BodySizeLimit(middleware.DefaultBodyLimit), mailHandler.Send)
			mailRoutes.POST("/drafts", middleware.BodySizeLimit(middleware.DefaultBodyLimit), mailHandler.SaveDraft)
			mailRoutes.GET("/folders/:folder", mailHandler.List)
			mailRoutes.GET("/folders/:folder/:id", mailHandler.Read)
			mailRoutes.DELETE("/folders/:folder/:id", mailHandler.Trash)
			mailRoutes.POST("/trash/purge", mailHandler.PurgeTrash)
			mailRoutes.GET("/usage", mailHandler.Usage)
			mailRoutes.GET("/retention", mailHandler.Retention)
		}

		// ========== Attachment Routes ==========
		attachmentRoutes := v1.Group("/attachments")
		attachmentRoutes.Use(sessionAuth.RequireAuth())
		{
			attachmentRoutes.POST("", middleware.BodySizeLimit(middleware.AttachmentBodyLimit), attachmentHandler.Upload)
			attachmentRoutes.GET("/:digest", attachmentHandler.Download)
		}

		// ========== WebSocket Routes ==========
		if deps.Hub != nil {
			v1.GET("/ws", websocket.HandleWebSocket(deps.Hub))
		}
	}

	return router
}
