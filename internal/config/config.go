package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"catalog-import-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (import status channel)
	RedisURL string

	// Server
	Port        string
	Environment string

	// File upload
	UploadDir     string
	MaxUploadSize int64

	// Import pipeline
	ImportBatchSize int
	ImportWorkers   int
	ImportQueueSize int
	StatusTTL       time.Duration

	// Webhooks
	WebhookTimeout time.Duration

	// Pagination
	DefaultPageSize int
	MaxPageSize     int
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	maxUploadMB, _ := strconv.Atoi(getEnv("MAX_UPLOAD_SIZE_MB", "100"))
	batchSize, _ := strconv.Atoi(getEnv("IMPORT_BATCH_SIZE", "10000"))
	workers, _ := strconv.Atoi(getEnv("IMPORT_WORKERS", "4"))
	queueSize, _ := strconv.Atoi(getEnv("IMPORT_QUEUE_SIZE", "64"))
	statusTTLHours, _ := strconv.Atoi(getEnv("IMPORT_STATUS_TTL_HOURS", "24"))
	webhookTimeoutSec, _ := strconv.Atoi(getEnv("WEBHOOK_TIMEOUT_SECONDS", "5"))
	defaultPageSize, _ := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "100"))
	maxPageSize, _ := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "1000"))

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "catalog_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("PORT", "8087"),
		Environment: getEnv("ENVIRONMENT", "development"),

		UploadDir:     getEnv("UPLOAD_DIR", "/tmp/uploads"),
		MaxUploadSize: int64(maxUploadMB) * 1024 * 1024,

		ImportBatchSize: batchSize,
		ImportWorkers:   workers,
		ImportQueueSize: queueSize,
		StatusTTL:       time.Duration(statusTTLHours) * time.Hour,

		WebhookTimeout: time.Duration(webhookTimeoutSec) * time.Second,

		DefaultPageSize: defaultPageSize,
		MaxPageSize:     maxPageSize,
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Webhook{},
	); err != nil {
		return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
