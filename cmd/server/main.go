package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoPolymarket/polycreds/internal/config"
	"github.com/GoPolymarket/polycreds/internal/handler"
	"github.com/GoPolymarket/polycreds/internal/middleware"
	"github.com/GoPolymarket/polycreds/internal/pkg/logger"
	"github.com/GoPolymarket/polycreds/internal/repository"
	"github.com/GoPolymarket/polycreds/internal/service"
	"github.com/gin-gonic/gin"
)

func main() {
	// 0. Initialize Logger
	logger.Init("info")

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)

	// 2. Initialize Persistence
	// Audit mirror (Postgres > Redis > memory ring only)
	var auditRepo service.AuditRepo
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg.Database)
		if err == nil {
			repo, err := repository.NewPostgresAuditRepo(db)
			if err == nil {
				logger.Info("✅ Connected to PostgreSQL")
				auditRepo = repo
			} else {
				logger.Error("⚠️ Failed to migrate audit table", "error", err)
			}
		} else {
			logger.Error("⚠️ Failed to connect to DB", "error", err)
		}
	}
	if auditRepo == nil && cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := repository.NewRedisClient(ctx, cfg.Redis)
		cancel()
		if err == nil {
			logger.Info("✅ Connected to Redis")
			auditRepo = repository.NewRedisAuditRepo(client, cfg.Redis.AuditListKey, cfg.Redis.AuditListMax)
		} else {
			logger.Error("⚠️ Failed to connect to Redis, audit stays in memory", "error", err)
		}
	}

	// 3. Initialize Core Services
	auditSvc := service.NewAuditService(cfg.Audit.BufferSize, auditRepo)

	mgr, err := service.NewAuthManager(cfg, auditSvc)
	if err != nil {
		log.Fatalf("Failed to initialize auth manager: %v", err)
	}

	// 4. Setup Router
	gin.SetMode(gin.ReleaseMode)
	limiter := middleware.NewLimiter(cfg.RateLimit.QPS, cfg.RateLimit.Burst)
	r := handler.NewRouter(cfg, mgr, auditSvc, limiter)

	// 5. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🚀 PolyCreds started", "port", cfg.Server.Port, "read_only", cfg.Server.ReadOnly)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}
	auditSvc.Close()

	logger.Info("Server exiting")
}
