// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Redis       RedisConfig
	AWS         AWSConfig
	Email       EmailConfig
	SMS         SMSConfig
	Storage     StorageConfig
	Workflow    WorkflowConfig
	I18n        I18nConfig
	Frontend    FrontendConfig
	Seed        SeedConfig
}

type SeedConfig struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

type FrontendConfig struct {
	BaseURL string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
	AutoMigrate  bool
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // in hours
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	CloudFrontURL   string
}

type EmailConfig struct {
	Provider     string // ses, smtp or log
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

type SMSConfig struct {
	Provider string // sns or log
	SenderID string
}

type StorageConfig struct {
	LocalPath    string
	MaxFileSize  int64 // in bytes
	PresignTTL   int   // in minutes
	AllowedTypes []string
}

type WorkflowConfig struct {
	RequiredDocuments     []string
	RequiredFormFields    []string
	ReviewLockTTL         time.Duration
	StatsCacheTTL         time.Duration
	PendingAlertAfter     time.Duration
	ChangesAlertAfter     time.Duration
	ReviewAlertAfter      time.Duration
	UnderReviewAlertAfter time.Duration
}

type I18nConfig struct {
	DefaultLocale string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "registrations"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
			AutoMigrate:  getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 24), // 24 hours
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "eu-west-3"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "registration-documents"),
			CloudFrontURL:   getEnv("AWS_CLOUDFRONT_URL", ""),
		},
		Email: EmailConfig{
			Provider:     getEnv("EMAIL_PROVIDER", "log"),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "noreply@registrations.local"),
			FromName:     getEnv("FROM_NAME", "Registrations Office"),
		},
		SMS: SMSConfig{
			Provider: getEnv("SMS_PROVIDER", "log"),
			SenderID: getEnv("SMS_SENDER_ID", "REGISTRAR"),
		},
		Storage: StorageConfig{
			LocalPath:    getEnv("STORAGE_LOCAL_PATH", "./uploads"),
			MaxFileSize:  int64(getEnvAsInt("STORAGE_MAX_FILE_SIZE_MB", 10)) * 1024 * 1024,
			PresignTTL:   getEnvAsInt("STORAGE_PRESIGN_TTL_MINUTES", 15),
			AllowedTypes: getEnvAsList("STORAGE_ALLOWED_TYPES", []string{"application/pdf", "image/jpeg", "image/png"}),
		},
		Workflow: WorkflowConfig{
			RequiredDocuments:     getEnvAsList("WORKFLOW_REQUIRED_DOCUMENTS", []string{"ID_CARD", "TRANSCRIPT", "PHOTO"}),
			RequiredFormFields:    getEnvAsList("WORKFLOW_REQUIRED_FORM_FIELDS", []string{"date_of_birth", "nationality", "address"}),
			ReviewLockTTL:         getEnvAsDuration("WORKFLOW_REVIEW_LOCK_TTL", 30*time.Second),
			StatsCacheTTL:         getEnvAsDuration("WORKFLOW_STATS_CACHE_TTL", 30*time.Second),
			PendingAlertAfter:     getEnvAsDuration("WORKFLOW_PENDING_ALERT_AFTER", 48*time.Hour),
			ChangesAlertAfter:     getEnvAsDuration("WORKFLOW_CHANGES_ALERT_AFTER", 7*24*time.Hour),
			ReviewAlertAfter:      getEnvAsDuration("WORKFLOW_REVIEW_ALERT_AFTER", 72*time.Hour),
			UnderReviewAlertAfter: getEnvAsDuration("WORKFLOW_UNDER_REVIEW_ALERT_AFTER", 72*time.Hour),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
		Frontend: FrontendConfig{
			BaseURL: getEnv("FRONTEND_BASE_URL", "http://localhost:3000"),
		},
		Seed: SeedConfig{
			AdminUsername: getEnv("SEED_ADMIN_USERNAME", "admin"),
			AdminEmail:    getEnv("SEED_ADMIN_EMAIL", "admin@registrations.local"),
			AdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	switch c.Email.Provider {
	case "ses", "smtp", "log":
	default:
		return fmt.Errorf("unsupported email provider %q", c.Email.Provider)
	}

	switch c.SMS.Provider {
	case "sns", "log":
	default:
		return fmt.Errorf("unsupported sms provider %q", c.SMS.Provider)
	}

	if c.Email.Provider == "smtp" && c.Email.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER=smtp")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
