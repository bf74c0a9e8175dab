package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"intramail/backend/internal/auth"
	jwtpkg "intramail/backend/internal/auth/jwt"
	"intramail/backend/internal/config"
	"intramail/backend/internal/health"
	"intramail/backend/internal/middleware"
	"intramail/backend/internal/monitoring"
	"intramail/backend/internal/service"
	"intramail/backend/internal/storage"
	"intramail/backend/internal/websocket"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config          *config.Config
	TransferService *service.TransferService
	FolderService   *service.FolderService
	GroupService    *service.GroupService
	DraftService    *service.DraftService
	AuthService     *auth.Service
	JWTManager      *jwtpkg.Manager
	WebSocketHub    *websocket.Hub
	Store           storage.Store
	Metrics         *monitoring.Metrics
	HealthChecker   *health.HealthChecker
	Logger          *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(deps.Config.Mail.MaxBodyBytes))

	if deps.Metrics != nil {
		mon := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)
		router.Use(mon.HTTPMetrics())
		router.Use(mon.BusinessMetrics())
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins: deps.Config.CORS.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"X-Max-Body-Size",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	transferHandler := NewTransferHandler(deps.TransferService, deps.FolderService, deps.Logger)
	groupHandler := NewGroupHandler(deps.GroupService, deps.Logger)
	draftHandler := NewDraftHandler(deps.DraftService, deps.Logger)
	authHandler := NewAuthHandler(deps.AuthService, deps.JWTManager, deps.Store, deps.Logger)

	// 创建中间件
	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, deps.Store, deps.Logger)
	sendLimiter := middleware.NewSendRateLimiter(
		deps.Config.Mail.SendRatePerMinute,
		deps.Config.Mail.SendBurst,
		deps.Logger,
	)
	authLimit := middleware.AuthRateLimit(deps.Store, deps.Logger, 30, 10*time.Minute)

	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		if err := deps.Store.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.HealthChecker != nil {
		router.GET("/health/live", gin.WrapF(deps.HealthChecker.LiveEndpoint))
		router.GET("/health/ready", gin.WrapF(deps.HealthChecker.ReadyEndpoint))
	}

	// Prometheus 指标
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// V1 API
	v1 := router.Group("/v1")
	{
		// ========== Auth Routes ==========
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", authLimit, authHandler.Register)
			authRoutes.POST("/login", authLimit, authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.POST("/logout", jwtAuth.RequireAuth(), authHandler.Logout)
			authRoutes.GET("/me", jwtAuth.RequireAuth(), authHandler.Me)
			authRoutes.PATCH("/me", jwtAuth.RequireAuth(), authHandler.UpdateMe)
			authRoutes.POST("/change-password", jwtAuth.RequireAuth(), authHandler.ChangePassword)
		}

		// ========== EmailTransfer Routes ==========
		transferRoutes := v1.Group("/emailTransfers")
		transferRoutes.Use(jwtAuth.RequireAuth())
		{
			transferRoutes.POST("", sendLimiter.Limit(), transferHandler.sendTransfer)
			transferRoutes.GET("/inbox", transferHandler.listInbox)
			transferRoutes.POST("/inbox", transferHandler.fileIntoFolder)
			transferRoutes.POST("/update_read_status", transferHandler.updateReadStatus)
			transferRoutes.GET("/sent_emails", transferHandler.listSent)

			// :key 既是投递 ID 也是文件夹名（trash/spam/junk/favorites），
			// 处理器内先按文件夹名解析，失败再按投递 ID 处理
			transferRoutes.GET("/:key", transferHandler.getOrListFolder)
			transferRoutes.POST("/:key", transferHandler.restoreFromFolder)
			transferRoutes.DELETE("/:key", transferHandler.deleteTransfer)
		}

		// ========== Group Routes ==========
		groupRoutes := v1.Group("/groups")
		groupRoutes.Use(jwtAuth.RequireAuth())
		{
			groupRoutes.POST("", groupHandler.CreateGroup)
			groupRoutes.GET("", groupHandler.ListGroups)
			groupRoutes.GET("/:id", groupHandler.GetGroup)
			groupRoutes.PATCH("/:id", groupHandler.UpdateGroup)
			groupRoutes.DELETE("/:id", groupHandler.DeleteGroup)
			groupRoutes.GET("/:id/members", groupHandler.ListMembers)
			groupRoutes.POST("/:id/add_member", groupHandler.AddMember)
			groupRoutes.POST("/:id/remove_member", groupHandler.RemoveMember)
		}

		// ========== Draft Routes ==========
		draftRoutes := v1.Group("/drafts")
		draftRoutes.Use(jwtAuth.RequireAuth())
		{
			draftRoutes.POST("", draftHandler.CreateDraft)
			draftRoutes.GET("", draftHandler.ListDrafts)
			draftRoutes.GET("/:id", draftHandler.GetDraft)
			draftRoutes.PATCH("/:id", draftHandler.UpdateDraft)
			draftRoutes.DELETE("/:id", draftHandler.DeleteDraft)
			draftRoutes.POST("/:id/send", sendLimiter.Limit(), draftHandler.SendDraft)
		}

		// ========== WebSocket Routes ==========
		if deps.WebSocketHub != nil {
			v1.GET("/ws", websocket.HandleWebSocket(deps.WebSocketHub))
		}
	}

	return router
}
