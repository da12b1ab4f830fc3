package router

import (
	"github.com/gin-gonic/gin"

	"github.com/binaryblade24/marketplace-backend/internal/config"
	"github.com/binaryblade24/marketplace-backend/internal/http/handlers"
	"github.com/binaryblade24/marketplace-backend/internal/http/middleware"
	"github.com/binaryblade24/marketplace-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	projectHandler *handlers.ProjectHandler,
	proposalHandler *handlers.ProposalHandler,
	orderHandler *handlers.OrderHandler,
	paymentHandler *handlers.PaymentHandler,
	conversationHandler *handlers.ConversationHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// Публичные маршруты
	api.GET("/projects", projectHandler.List)
	api.GET("/projects/:id", middleware.UUIDValidator("id"), projectHandler.Get)
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/auth/me", authHandler.Me)

		protected.POST("/projects", projectHandler.Create)
		protected.DELETE("/projects/:id", middleware.UUIDValidator("id"), projectHandler.Delete)
		protected.POST("/projects/:id/complete", middleware.UUIDValidator("id"), projectHandler.Complete)
		protected.GET("/projects/:id/proposals", middleware.UUIDValidator("id"), proposalHandler.ListByProject)
		protected.GET("/projects/:id/payment", middleware.UUIDValidator("id"), paymentHandler.GetByProject)

		protected.POST("/proposals", proposalHandler.Create)
		protected.GET("/proposals/my", proposalHandler.ListMy)
		protected.GET("/proposals/:id", middleware.UUIDValidator("id"), proposalHandler.Get)
		protected.PATCH("/proposals/:id/status", middleware.UUIDValidator("id"), proposalHandler.UpdateStatus)

		protected.POST("/orders", orderHandler.Create)
		protected.GET("/orders/my", orderHandler.ListMy)
		protected.GET("/orders/:id", middleware.UUIDValidator("id"), orderHandler.Get)
		protected.POST("/orders/:id/pay", middleware.UUIDValidator("id"), orderHandler.MarkPaid)
		protected.POST("/orders/:id/release", middleware.UUIDValidator("id"), orderHandler.Release)
		protected.POST("/orders/:id/cancel", middleware.UUIDValidator("id"), orderHandler.Cancel)
		protected.GET("/orders/:id/escrow", middleware.UUIDValidator("id"), orderHandler.GetEscrow)

		protected.GET("/payments/my", paymentHandler.ListMy)

		protected.GET("/conversations", conversationHandler.ListMy)
		protected.GET("/conversations/:id/messages", middleware.UUIDValidator("id"), conversationHandler.ListMessages)
		protected.POST("/conversations/:id/messages", middleware.UUIDValidator("id"), conversationHandler.SendMessage)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread-count", notificationHandler.CountUnread)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
	}

	return r
}
