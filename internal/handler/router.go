package handler

import (
	"net/http"

	"github.com/GoPolymarket/polycreds/internal/config"
	"github.com/GoPolymarket/polycreds/internal/middleware"
	"github.com/GoPolymarket/polycreds/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// NewRouter wires every route of the diagnostics surface.
func NewRouter(cfg *config.Config, mgr *service.AuthManager, auditSvc *service.AuditService, limiter *rate.Limiter) *gin.Engine {
	authHandler := NewAuthHandler(mgr)
	accountHandler := NewAccountHandler(mgr)
	auditHandler := NewAuditHandler(mgr)

	r := gin.New()
	r.Use(gin.Recovery())

	// Global Middleware
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.AuditMiddleware(auditSvc))

	// Health Check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "polycreds"})
	})

	// Metrics Endpoint
	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")
	v1.Use(middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly))

	public := v1.Group("")
	public.Use(middleware.RateLimitMiddleware(limiter))
	{
		public.GET("/auth/identity", authHandler.Identity)
		public.GET("/auth/validate", authHandler.Validate)
		public.GET("/auth/self-test", authHandler.SelfTest)
		public.GET("/account/balance", accountHandler.Balance)
	}

	admin := v1.Group("")
	admin.Use(middleware.AdminMiddleware(cfg))
	{
		admin.GET("/auth/gate", authHandler.Gate)
		admin.GET("/auth/audit", auditHandler.List)
		admin.POST("/auth/derive", middleware.AdminSecretMiddleware(cfg), authHandler.Derive)
		admin.PUT("/auth/identity", middleware.AdminSecretMiddleware(cfg), authHandler.Reconfigure)
	}

	return r
}
