package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"catalog-import-service/internal/config"
	"catalog-import-service/internal/events"
	"catalog-import-service/internal/handlers"
	"catalog-import-service/internal/importer"
	"catalog-import-service/internal/middleware"
	"catalog-import-service/internal/queue"
	"catalog-import-service/internal/repository"
	"catalog-import-service/internal/status"
	"catalog-import-service/internal/webhooks"
)

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
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (falling back to localhost)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	redisClient := redis.NewClient(redisOpts)

	// Test Redis connection
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (status polling will be unavailable)", err)
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancelPing()

	// Initialize repository
	repo := repository.NewCatalogRepository(db)

	// Initialize event publisher only if NATS_URL is set
	var eventsPublisher *events.Publisher
	if os.Getenv("NATS_URL") != "" {
		eventsPublisher, err = events.NewPublisher(logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer eventsPublisher.Close()

	// Import pipeline wiring
	tracker := status.NewTracker(redisClient, cfg.StatusTTL, logger)
	dispatcher := webhooks.NewDispatcher(repo, cfg.WebhookTimeout, logger)
	imp := importer.New(repo, tracker, dispatcher, eventsPublisher, cfg.ImportBatchSize, logger)

	pool := queue.NewPool(imp, cfg.ImportWorkers, cfg.ImportQueueSize, logger)
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	pool.Start(workerCtx)
	log.Printf("✓ Import worker pool started (%d workers)", cfg.ImportWorkers)

	// Initialize handlers
	productsHandler := handlers.NewProductsHandler(repo, cfg)
	importHandler := handlers.NewImportHandler(cfg, pool, tracker, logger)
	webhooksHandler := handlers.NewWebhooksHandler(repo, dispatcher)
	healthHandler := handlers.NewHealthHandler(db, redisClient, pool)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	// Health check endpoints
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Health)

	// API routes
	v1 := router.Group("/api/v1")
	{
		products := v1.Group("/products")
		{
			products.GET("", productsHandler.GetProducts)
			products.POST("", productsHandler.CreateProduct)
			products.DELETE("", productsHandler.DeleteAllProducts)
			products.GET("/:id", productsHandler.GetProduct)
			products.PATCH("/:id", productsHandler.UpdateProduct)
			products.DELETE("/:id", productsHandler.DeleteProduct)

			products.POST("/import", importHandler.ImportProducts)
			products.GET("/import/template", importHandler.GetImportTemplate)
			products.GET("/import/:jobId", importHandler.GetImportStatus)
			products.GET("/import/:jobId/stream", importHandler.StreamImportStatus)
		}

		hooks := v1.Group("/webhooks")
		{
			hooks.GET("", webhooksHandler.GetWebhooks)
			hooks.POST("", webhooksHandler.CreateWebhook)
			hooks.DELETE("/:id", webhooksHandler.DeleteWebhook)
			hooks.PATCH("/:id", webhooksHandler.ToggleWebhook)
			hooks.POST("/:id/test", webhooksHandler.TestWebhook)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Catalog import service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Shutting down catalog-import-service...")

	// Stop accepting HTTP traffic first, then drain queued imports so
	// in-flight jobs reach a terminal status before exit.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARNING: HTTP server shutdown error: %v", err)
	}

	pool.CloseIntake()
	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Println("✓ Import queue drained")
	case <-time.After(60 * time.Second):
		log.Println("WARNING: Timed out waiting for import queue to drain")
		cancelWorkers()
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("WARNING: Failed to close Redis client: %v", err)
	}
	log.Println("Shutdown complete")
}
