// Package api provides HTTP routing for the app-certigen server. It wires
// together handlers, middleware, and services to create the application's
// endpoints.
package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leonardo-max-el/app-certigen/internal/api/handlers"
	"github.com/Leonardo-max-el/app-certigen/internal/api/middleware"
	"github.com/Leonardo-max-el/app-certigen/internal/auth"
	"github.com/Leonardo-max-el/app-certigen/internal/config"
	"github.com/Leonardo-max-el/app-certigen/internal/convert"
	"github.com/Leonardo-max-el/app-certigen/internal/database"
	"github.com/Leonardo-max-el/app-certigen/internal/render"
	"github.com/Leonardo-max-el/app-certigen/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *database.Database, logger *zap.Logger) *gin.Engine {
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

	// Initialize services
	userService := service.NewUserService(db, cfg)

	// Try to load a previously generated JWT secret if it exists
	_ = userService.LoadJWTSecret()

	participantService := service.NewParticipantService(db, cfg)
	importService := service.NewImportService(db, logger)
	certService := service.NewCertificateService(
		db, cfg,
		render.NewDocxRenderer(),
		convert.New(cfg, logger),
		logger,
	)

	// Initialize handlers
	setupHandler := handlers.NewSetupHandler(userService, logger)
	authHandler := handlers.NewAuthHandler(userService, participantService, logger)
	participantHandler := handlers.NewParticipantHandler(participantService, certService, logger)
	certHandler := handlers.NewCertificateHandler(certService, logger)
	adminHandler := handlers.NewAdminHandler(db, importService, cfg, logger)

	// Public certificate retrieval (QR verification link)
	router.GET("/certificate/:publicID", certHandler.Download)
	router.GET("/certificate/:publicID/download", certHandler.Download)

	// Public API routes
	public := router.Group("/api/v1")
	{
		// Provisioning routes (no auth required)
		public.GET("/setup/status", setupHandler.GetStatus)
		public.POST("/setup", setupHandler.PerformSetup)

		// Auth routes
		public.POST("/auth/login", authHandler.Login)
		public.POST("/auth/participant/login", authHandler.ParticipantLogin)
	}

	// Participant routes (require participant authentication)
	participant := router.Group("/api/v1/participant")
	participant.Use(middleware.AuthMiddleware(cfg))
	participant.Use(middleware.RequireRole(auth.RoleParticipant))
	{
		participant.GET("/me", participantHandler.Me)
		participant.GET("/certificate/download", participantHandler.DownloadCertificate)
	}

	// Admin routes (require admin authentication)
	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/dashboard", adminHandler.Dashboard)
		admin.POST("/import", adminHandler.ImportRoster)
	}

	return router
}
