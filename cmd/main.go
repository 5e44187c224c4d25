package main

import (
	"github.com/Metaform/redline/internal/client/dataplane"
	"github.com/Metaform/redline/internal/client/identityhub"
	"github.com/Metaform/redline/internal/client/management"
	"github.com/Metaform/redline/internal/client/tenantmanager"
	"github.com/Metaform/redline/internal/client/vault"
	"github.com/Metaform/redline/internal/handler"
	"github.com/Metaform/redline/internal/middleware"
	"github.com/Metaform/redline/internal/model"
	"github.com/Metaform/redline/internal/service"
	"github.com/Metaform/redline/internal/store"
	"github.com/Metaform/redline/pkg/config"
	"github.com/Metaform/redline/pkg/jwtutil"
	"github.com/Metaform/redline/pkg/logger"
	"github.com/Metaform/redline/pkg/oauth"
	"github.com/Metaform/redline/prometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(cfg); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting redline provisioning service...", zap.String("environment", cfg.Server.Env))

	// Initialize database and entity store
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	entityStore := store.New(db)
	log.Info("Database connection established")

	// Initialize JWT utility for the UI routes
	jwtutil.Initialize(&cfg.JWT)

	// Token provider for all outbound gateway calls
	tokens := oauth.NewClient(cfg.Keycloak.TokenURL, log)
	adminCreds := model.ClientCredentials{
		ClientID:     cfg.Keycloak.AdminClientID,
		ClientSecret: cfg.Keycloak.AdminClientSecret,
	}

	// Gateway clients
	tenantManagerClient := tenantmanager.New(&cfg.TenantManager, log)
	controlPlaneClient := management.New(&cfg.ControlPlane, tokens, log)
	dataPlaneClient := dataplane.New(&cfg.DataPlane, tokens, log)
	identityHubClient := identityhub.New(&cfg.IdentityHub, tokens, log)
	vaultClient, err := vault.New(&cfg.Vault, log)
	if err != nil {
		log.Fatal("Failed to initialize vault client", zap.Error(err))
	}

	// Services
	tenantService := service.NewTenantService(entityStore, tenantManagerClient, log)
	providerService := service.NewProviderService(entityStore, tenantManagerClient, log)
	publicationService := service.NewPublicationService(entityStore, controlPlaneClient, dataPlaneClient, adminCreds, log)
	identityService := service.NewIdentityService(entityStore, identityHubClient, vaultClient, log)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	public := e.Group("/api/public")
	public.GET("/health", handler.HealthCheck)
	public.GET("/info", handler.Info)
	e.GET("/metrics", handler.MetricsHandler)

	// UI routes - all require authentication
	ui := e.Group("/api/ui")
	ui.Use(middleware.AuthMiddleware)

	handler.NewRedlineHandler(tenantService, providerService).Register(ui)
	handler.NewPublicationHandler(publicationService).Register(ui)
	handler.NewIdentityHandler(identityService).Register(ui)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
