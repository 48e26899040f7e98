package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"order-tracking-service/internal/metrics"
	"order-tracking-service/internal/middleware"
)

type RouterConfig struct {
	Orders   *OrderController
	Tracking *TrackingController
	Statuses *StatusController

	Logger         *zap.Logger
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	// Auth nil deja las operaciones de escritura abiertas (despliegue interno).
	Auth middleware.TokenValidator
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Recovery(cfg.Logger),
		middleware.RequestID(),
		middleware.Logger(cfg.Logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.AllowedOrigins),
	)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}

	r.GET("/health", cfg.Statuses.Health)
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api")
	if cfg.RateLimiter != nil {
		api.Use(middleware.RateLimit(cfg.RateLimiter))
	}

	api.GET("/orders", cfg.Orders.ListOrders)
	api.GET("/orders/:orderId", cfg.Orders.GetOrder)
	api.GET("/tracking-numbers/:trackingNumber", cfg.Tracking.GetTrackingNumbers)
	api.GET("/tracking/results", cfg.Tracking.TrackerResults)
	api.GET("/statuses", cfg.Statuses.List)

	ops := api.Group("")
	if cfg.Auth != nil {
		ops.Use(middleware.AuthMiddleware(cfg.Auth))
	}
	ops.POST("/sync-orders", cfg.Orders.SyncOrders)
	ops.POST("/consolidate-products/:orderId", cfg.Orders.Consolidate)
	ops.POST("/prepare-products/:orderId", cfg.Orders.Prepare)
	ops.POST("/orders/:orderId/products/:productId/status", cfg.Orders.UpdateProductStatus)
	ops.POST("/orders/:orderId/status", cfg.Orders.UpdateOrderStatus)
	ops.POST("/tracking/create", cfg.Tracking.CreateTracker)

	admin := ops.Group("")
	if cfg.Auth != nil {
		admin.Use(middleware.AdminOnly())
	}
	admin.POST("/statuses/reload", cfg.Statuses.Reload)

	return r
}
