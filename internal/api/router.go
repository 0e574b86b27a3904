// Package api wires handlers, middleware and services into the udnm HTTP API.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/robcowart/udnm/internal/api/handlers"
	"github.com/robcowart/udnm/internal/api/middleware"
	"github.com/robcowart/udnm/internal/config"
	"github.com/robcowart/udnm/internal/database"
	"github.com/robcowart/udnm/internal/service"
	"go.uber.org/zap"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	db *database.Database,
	userService *service.UserService,
	udnService *service.UDNService,
	logger *zap.Logger,
) *gin.Engine {
	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.CORSMiddleware(cfg))

	setupHandler := handlers.NewSetupHandler(userService, logger)
	authHandler := handlers.NewAuthHandler(userService, logger)
	healthHandler := handlers.NewHealthHandler(db, logger)
	udnHandler := handlers.NewUDNHandler(udnService, logger)

	router.GET("/healthz", healthHandler.Health)

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/setup/status", setupHandler.GetStatus)
		public.POST("/setup", setupHandler.PerformSetup)
		public.POST("/auth/login", authHandler.Login)
	}

	// Protected routes (require authentication)
	protected := router.Group("/api/v1")
	protected.Use(middleware.AuthMiddleware(userService.Tokens()))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.GET("/udn/assignments", udnHandler.ListAssignments)
		protected.GET("/udn/assignments/:udn_id", udnHandler.GetByID)
		protected.GET("/udn/mac/:mac", udnHandler.GetByMAC)
		protected.GET("/udn/users/:user_id/history", udnHandler.UserHistory)
		protected.GET("/udn/next", udnHandler.NextAvailable)
		protected.GET("/udn/status", udnHandler.Status)
		protected.GET("/udn/users-file", udnHandler.UsersFile)
	}

	// Pool changes are limited to admins
	admin := protected.Group("")
	admin.Use(middleware.RequireRole(middleware.RoleAdmin))
	{
		admin.POST("/udn/assignments", udnHandler.Assign)
		admin.DELETE("/udn/mac/:mac", udnHandler.RevokeByMAC)
		admin.POST("/udn/mac/:mac/auth", udnHandler.RecordAuth)
		admin.DELETE("/udn/users/:user_id", udnHandler.RevokeByUser)
	}

	return router
}
