package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"marketplace-service/internal/models"
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

	// Redis
	RedisURL string

	// Server
	Port        string
	Environment string

	// Object storage (S3-compatible)
	StorageBucket    string
	StorageRegion    string
	StorageEndpoint  string // optional custom endpoint (MinIO, LocalStack, ...)
	StoragePublicURL string // optional public base URL for uploaded objects

	// Identity provider
	IdentityURL        string
	IdentityServiceKey string

	// Admin access - supplied via environment, resolved once at startup
	AdminEmails []string

	// SMTP
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string

	// Import limits
	MaxArchiveBytes int64

	DefaultCurrency string
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	maxArchiveMiB, _ := strconv.Atoi(getEnv("MAX_ARCHIVE_MIB", "8"))

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "marketplace_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("PORT", "8088"),
		Environment: getEnv("ENVIRONMENT", "development"),

		StorageBucket:    getEnv("STORAGE_BUCKET", "product-images"),
		StorageRegion:    getEnv("STORAGE_REGION", "us-east-1"),
		StorageEndpoint:  os.Getenv("STORAGE_ENDPOINT"),
		StoragePublicURL: os.Getenv("STORAGE_PUBLIC_URL"),

		IdentityURL:        getEnv("IDENTITY_URL", "http://localhost:9999"),
		IdentityServiceKey: os.Getenv("IDENTITY_SERVICE_KEY"),

		AdminEmails: parseEmailList(os.Getenv("ADMIN_EMAILS")),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnv("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),

		MaxArchiveBytes: int64(maxArchiveMiB) * 1024 * 1024,

		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "USD"),
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

	// Auto-migrate models to keep schema up to date
	// This will add missing columns but won't delete existing columns
	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Order{},
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

// parseEmailList splits a comma-separated allowlist, lowercased and trimmed
func parseEmailList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	emails := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			emails = append(emails, p)
		}
	}
	return emails
}
