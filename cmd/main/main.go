package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"product-entry-service/internal/bulkentry"
	"product-entry-service/internal/config"
	"product-entry-service/internal/events"
	"product-entry-service/internal/handlers"
	"product-entry-service/internal/middleware"
	"product-entry-service/internal/models"
	"product-entry-service/internal/notify"
	"product-entry-service/internal/repository"
	"product-entry-service/internal/syncer"

	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/Tesseract-Nexus/go-shared/rbac"
	"github.com/Tesseract-Nexus/go-shared/secrets"
	"github.com/Tesseract-Nexus/go-shared/tracing"
)

// @title Product Entry API
// @version 1.0.0
// @description Bulk product entry service with template catalog and offline sync support
// @termsOfService http://swagger.io/terms/

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8097
// @BasePath /api/v1

// @securityDefinitions.bearer BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.Product{},
		&models.ProductTemplate{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize logrus logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	// Set Redis password from GCP Secret Manager
	redisOpts.Password = secrets.GetRedisPassword()
	redisClient := redis.NewClient(redisOpts)

	// Test Redis connection
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
	} else {
		log.Println("✓ Redis connected successfully")
	}
	pingCancel()

	// Initialize repository
	productsRepo := repository.NewProductsRepository(db, redisClient)

	// Initialize NATS event publisher (optional - graceful degradation if NATS unavailable)
	var eventPublisher *events.ProductEventPublisher
	if cfg.NATSURL != "" {
		eventPublisher, err = events.NewProductEventPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("Warning: Failed to initialize NATS event publisher: %v", err)
			log.Println("Continuing without event publishing...")
			eventPublisher = nil
		} else {
			log.Println("✓ Connected to NATS JetStream for event publishing")
			defer eventPublisher.Close()
		}
	} else {
		log.Println("NATS_URL not configured, event publishing disabled")
	}

	// Initialize NATS catalog subscriber (optional) - invalidates the template
	// cache when the catalog changes and carries toast notifications to UIs
	var catalogSub *events.CatalogSubscriber
	var toastPublisher notify.Publisher
	if cfg.NATSURL != "" {
		catalogSub, err = events.NewCatalogSubscriber(cfg.NATSURL, productsRepo, logger)
		if err != nil {
			log.Printf("Warning: Failed to initialize catalog subscriber: %v", err)
			catalogSub = nil
		} else {
			if err := catalogSub.Start(context.Background()); err != nil {
				log.Printf("Warning: Failed to start catalog subscriber: %v", err)
			} else {
				log.Println("✓ Subscribed to catalog events")
			}
			toastPublisher = catalogSub
			defer catalogSub.Close()
		}
	}

	// Notification sink: log always, publish when NATS is up
	notifier := notify.NewFanoutSink(logger, toastPublisher)

	// Offline sync manager wraps the repository: writes queue while the
	// database is unreachable and replay when connectivity returns
	syncStore := syncer.New(productsRepo, notifier, logger)
	syncCtx, syncCancel := context.WithCancel(context.Background())
	syncStore.Start(syncCtx, cfg.SyncProbeInterval)
	defer syncCancel()

	// In-memory bulk entry sessions
	sessions := bulkentry.NewSessionStore()

	// Initialize handlers
	productsHandler := handlers.NewProductsHandler(syncStore, eventPublisher, notifier, logger)
	bulkEntryHandler := handlers.NewBulkEntryHandler(sessions, syncStore, notifier, logger)
	templatesHandler := handlers.NewTemplatesHandler(syncStore, logger)
	syncHandler := handlers.NewSyncHandler(syncStore)
	healthHandler := handlers.NewHealthHandler(productsRepo, syncStore)

	// Initialize OpenTelemetry tracing
	var tracerProvider *tracing.TracerProvider
	if cfg.Environment == "production" {
		tracerProvider, err = tracing.InitTracer(tracing.ProductionConfig("product-entry-service"))
	} else {
		tracerProvider, err = tracing.InitTracer(tracing.DefaultConfig("product-entry-service"))
	}
	if err != nil {
		log.Printf("WARNING: Failed to initialize tracing: %v (continuing without tracing)", err)
	} else {
		log.Println("✓ OpenTelemetry tracing initialized")
	}

	// Initialize Prometheus metrics
	metrics := gosharedmw.InitGlobalMetrics("tesseract", "product_entry_service")
	log.Println("✓ Prometheus metrics initialized")

	// Initialize RBAC middleware
	staffServiceURL := os.Getenv("STAFF_SERVICE_URL")
	if staffServiceURL == "" {
		staffServiceURL = "http://staff-service:8080"
	}
	rbacMw := rbac.NewMiddlewareWithURL(staffServiceURL, nil)
	log.Println("✓ RBAC middleware initialized")

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add observability middleware (metrics + tracing)
	router.Use(metrics.Middleware())
	router.Use(tracing.GinMiddleware("product-entry-service"))

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)
	router.GET("/health/extended", healthHandler.ExtendedHealthCheck)
	router.GET("/metrics", gosharedmw.Handler())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected API routes
	api := router.Group("/api/v1")

	// Authentication middleware
	// In development: use DevelopmentAuthMiddleware for local testing
	// In production: use IstioAuth which reads x-jwt-claim-* headers from Istio
	if cfg.Environment == "development" {
		api.Use(middleware.DevelopmentAuthMiddleware())
		api.Use(middleware.TenantMiddleware()) // Still needed in dev mode
	} else {
		istioAuthLogger := logrus.NewEntry(logger).WithField("component", "istio_auth")
		api.Use(gosharedmw.IstioAuth(gosharedmw.IstioAuthConfig{
			RequireAuth:        true,
			AllowLegacyHeaders: true, // Allow X-User-ID, X-Tenant-ID during migration
			Logger:             istioAuthLogger,
		}))
		api.Use(middleware.TenantMiddleware())
	}

	// Product routes with RBAC
	products := api.Group("/products")
	{
		products.POST("", rbacMw.RequirePermission(rbac.PermissionProductsCreate), productsHandler.CreateProduct)
		products.GET("", rbacMw.RequirePermission(rbac.PermissionProductsRead), productsHandler.ListProducts)

		// Import/Export
		products.GET("/bulk-entry/template", rbacMw.RequirePermission(rbac.PermissionProductsRead), templatesHandler.GetEntryTemplate)

		products.GET("/:id", rbacMw.RequirePermission(rbac.PermissionProductsRead), productsHandler.GetProduct)
		products.PUT("/:id", rbacMw.RequirePermission(rbac.PermissionProductsUpdate), productsHandler.UpdateProduct)
		products.DELETE("/:id", rbacMw.RequirePermission(rbac.PermissionProductsDelete), productsHandler.DeleteProduct)
		products.POST("/:id/restock", rbacMw.RequirePermission(rbac.PermissionProductsUpdate), productsHandler.RestockProduct)
		products.POST("/:id/variations", rbacMw.RequirePermission(rbac.PermissionProductsCreate), productsHandler.CreateVariation)
	}

	// Template catalog routes with RBAC
	templates := api.Group("/templates")
	{
		templates.GET("", rbacMw.RequirePermission(rbac.PermissionProductsRead), templatesHandler.ListTemplates)
	}

	// Bulk entry session routes with RBAC
	entrySessions := api.Group("/bulk-entry/sessions")
	{
		entrySessions.POST("", rbacMw.RequirePermission(rbac.PermissionProductsCreate), bulkEntryHandler.OpenSession)
		entrySessions.GET("/:id", rbacMw.RequirePermission(rbac.PermissionProductsRead), bulkEntryHandler.GetSession)
		entrySessions.PATCH("/:id/rows/:rowId", rbacMw.RequirePermission(rbac.PermissionProductsCreate), bulkEntryHandler.UpdateRow)
		entrySessions.POST("/:id/clear", rbacMw.RequirePermission(rbac.PermissionProductsCreate), bulkEntryHandler.ClearSession)
		entrySessions.POST("/:id/templates/:templateId/toggle", rbacMw.RequirePermission(rbac.PermissionProductsCreate), bulkEntryHandler.ToggleTemplate)
		entrySessions.POST("/:id/save", rbacMw.RequirePermission(rbac.PermissionProductsCreate), bulkEntryHandler.SaveSession)
		entrySessions.DELETE("/:id", rbacMw.RequirePermission(rbac.PermissionProductsCreate), bulkEntryHandler.CloseSession)
	}

	// Sync status routes
	sync := api.Group("/sync")
	{
		sync.GET("/status", rbacMw.RequirePermission(rbac.PermissionProductsRead), syncHandler.GetStatus)
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Product entry service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Shutting down product-entry-service...")

	// Stop the sync prober before closing backends
	syncStore.Stop()

	// Shutdown tracer provider
	if tracerProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		} else {
			log.Println("✓ Tracer provider shut down")
		}
	}

	log.Println("Product entry service stopped")
}
