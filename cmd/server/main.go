package main

import (
	"log"
	"time"

	"tableconfig-editor/internal/config"
	"tableconfig-editor/internal/controller"
	"tableconfig-editor/internal/middleware"
	"tableconfig-editor/internal/repository"
	"tableconfig-editor/internal/security"
	"tableconfig-editor/internal/service"
	"tableconfig-editor/internal/warehouse"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Set Gin mode
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize metrics
	middleware.InitMetrics()

	// Initialize the configuration store for the selected backend
	repo, err := buildRepository(cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage backend:", err)
	}
	log.Printf("Using %s storage backend", cfg.Storage.Backend)

	// Initialize security
	jwtManager := security.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTExpiration)
	authMiddleware := security.NewAuthMiddleware(jwtManager)

	// Initialize rate limiting
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RPM:             cfg.Security.RateLimitPerMinute,
		Burst:           cfg.Security.RateLimitBurst,
		CleanupInterval: 5 * time.Minute,
	})

	// Initialize services
	tableConfigService := service.NewTableConfigService(repo)

	// Initialize controllers
	tableConfigController := controller.NewTableConfigController(tableConfigService)
	healthController := controller.NewHealthController(repo, cfg.Storage.Backend)
	authController := controller.NewAuthController(jwtManager, cfg.Security.AdminUser, cfg.Security.AdminPassword)

	// Create Gin router
	router := gin.New()

	// Add middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.Cors())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.PrometheusMiddleware())

	// Add rate limiting if enabled
	if cfg.Security.EnableRateLimit {
		router.Use(rateLimiter.RateLimit())
	}

	// Health and metrics endpoints (always available)
	router.GET("/health", healthController.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 group
	api := router.Group("/api/v1")

	// Public endpoints (no authentication required)
	public := api.Group("")
	{
		public.GET("/health", healthController.Health)
		public.GET("/datatypes", tableConfigController.DataTypes)
		public.POST("/auth/token", authController.Token)
	}

	// Refresh needs a valid token even when route-level auth is disabled
	api.POST("/auth/refresh", authMiddleware.RequireAuth(), authController.Refresh)

	// Auth endpoints (authentication required when enabled)
	auth := api.Group("")
	if cfg.Security.EnableAuth {
		auth.Use(authMiddleware.RequireAuth())
	}
	{
		tableconfigs := auth.Group("/tableconfigs")
		{
			tableconfigs.GET("", tableConfigController.List)
			tableconfigs.POST("", tableConfigController.Create)
			tableconfigs.GET("/sources", tableConfigController.SourceSystems)
			tableconfigs.GET("/:key", tableConfigController.Get)
			tableconfigs.PUT("/:key", tableConfigController.Update)
			tableconfigs.PUT("/:key/schema", tableConfigController.SaveSchema)
			if cfg.Security.EnableAuth {
				tableconfigs.DELETE("/:key", authMiddleware.RequireRole("admin"), tableConfigController.Delete)
			} else {
				tableconfigs.DELETE("/:key", tableConfigController.Delete)
			}
		}
	}

	// Start server
	log.Printf("Starting server on port %s", cfg.Server.Port)
	log.Printf("Health check available at: http://localhost:%s/health", cfg.Server.Port)

	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// buildRepository wires the TableConfigRepository for the configured backend
func buildRepository(cfg *config.Config) (repository.TableConfigRepository, error) {
	switch cfg.Storage.Backend {
	case "databricks":
		client, err := warehouse.NewDatabricksClient(cfg.Warehouse.Databricks)
		if err != nil {
			return nil, err
		}
		return warehouse.NewDatabricksStore(client, cfg.Warehouse.Databricks), nil
	case "snowflake":
		db, err := warehouse.OpenSnowflake(cfg.Warehouse.Snowflake)
		if err != nil {
			return nil, err
		}
		return warehouse.NewSnowflakeStore(db, cfg.Warehouse.Snowflake), nil
	default:
		db, err := config.InitDatabase(cfg)
		if err != nil {
			return nil, err
		}
		return repository.NewTableConfigRepository(db), nil
	}
}
