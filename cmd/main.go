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
	"marketplace-service/internal/clients"
	"marketplace-service/internal/config"
	"marketplace-service/internal/handlers"
	"marketplace-service/internal/importer"
	"marketplace-service/internal/mailer"
	"marketplace-service/internal/middleware"
	"marketplace-service/internal/repository"
	"marketplace-service/internal/storage"
)

// @title Marketplace API
// @version 1.0.0
// @description Marketplace service with bulk ZIP product import, storefront browsing and order capture

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8088
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

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client
	var redisClient *redis.Client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
	} else {
		redisClient = redis.NewClient(redisOpts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
			redisClient.Close()
			redisClient = nil
		} else {
			log.Println("✓ Redis connected successfully")
		}
		cancel()
	}

	// Initialize object storage
	storeCtx, storeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	objectStore, err := storage.NewS3Store(storeCtx, storage.S3StoreConfig{
		Bucket:    cfg.StorageBucket,
		Region:    cfg.StorageRegion,
		Endpoint:  cfg.StorageEndpoint,
		PublicURL: cfg.StoragePublicURL,
	})
	storeCancel()
	if err != nil {
		log.Fatal("Failed to initialize object storage:", err)
	}
	log.Println("✓ Object storage initialized")

	// Initialize identity client for admin auth
	identityClient := clients.NewIdentityClient(cfg.IdentityURL, cfg.IdentityServiceKey)

	// Initialize email sender (optional; orders queue retries when unset)
	var emailSender mailer.Sender
	smtpSender, err := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	if err != nil {
		log.Printf("WARNING: SMTP not configured: %v (confirmation emails will be queued for retry)", err)
	} else {
		emailSender = smtpSender
		log.Println("✓ SMTP sender initialized")
	}

	// Initialize repositories
	productsRepo := repository.NewProductsRepository(db, redisClient)
	ordersRepo := repository.NewOrdersRepository(db)

	// Initialize the bulk import pipeline
	archiveImporter := importer.NewImporter(objectStore, productsRepo, logger, cfg.DefaultCurrency)

	// Initialize handlers
	productsHandler := handlers.NewProductsHandler(productsRepo, logger)
	importHandler := handlers.NewImportHandler(archiveImporter, logger, cfg.MaxArchiveBytes)
	ordersHandler := handlers.NewOrdersHandler(ordersRepo, productsRepo, emailSender, logger)
	imagesHandler := handlers.NewImagesHandler(objectStore, logger)
	authHandler := handlers.NewAuthHandler(identityClient, cfg.AdminEmails, cfg.Environment, logger)

	if len(cfg.AdminEmails) == 0 {
		log.Println("WARNING: ADMIN_EMAILS not set; no admin will be able to sign in")
	}

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)

	// Admin auth endpoints
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", middleware.AdminAuth(identityClient, cfg.AdminEmails, logger), authHandler.Me)
	}

	// Protected admin API routes
	api := router.Group("/api/v1")
	api.Use(middleware.AdminAuth(identityClient, cfg.AdminEmails, logger))
	{
		products := api.Group("/products")
		{
			products.POST("", productsHandler.CreateProduct)
			products.PUT("/:slug", productsHandler.UpdateProduct)
			products.PUT("/:slug/checkout-link", productsHandler.UpdateCheckoutLink)
			products.DELETE("/:slug", productsHandler.DeleteProduct)

			// Image management
			products.POST("/images/upload", imagesHandler.UploadImage)
			products.GET("/:slug/images", imagesHandler.ListProductImages)

			// Bulk ZIP import
			products.POST("/import/archive", importHandler.ImportArchive)
		}

		orders := api.Group("/orders")
		{
			orders.GET("", ordersHandler.GetOrders)
			orders.GET("/export", ordersHandler.ExportOrders)
			orders.POST("/:id/mark-converted", ordersHandler.MarkConverted)
			orders.POST("/:id/retry-email", ordersHandler.RetryEmail)
			orders.POST("/retry-emails", ordersHandler.RetryEmails)
		}
	}

	// Public storefront endpoints (no auth required)
	storefront := router.Group("/api/v1/storefront")
	{
		storefront.GET("/products", productsHandler.GetProducts)
		storefront.GET("/products/featured", productsHandler.GetFeaturedProducts)
		storefront.GET("/products/:slug", productsHandler.GetProduct)

		storefront.POST("/orders", ordersHandler.CreateOrder)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8088"
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Marketplace service starting on port %s", port)
		if err := router.Run(":" + port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Shutting down marketplace-service...")

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}

	log.Println("Marketplace service stopped")
}
