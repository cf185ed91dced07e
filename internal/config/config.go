package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Create a new instance of the logger
// Configure it to log at the desired level
// and format it as JSON for structured logging
var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	environment := GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(logrus.DebugLevel)
	case "production":
		log.SetLevel(logrus.ErrorLevel)
	default:
		// Default to info level for other environments
		log.SetLevel(logrus.InfoLevel)
	}
}

// Config used for the application configuration, loading the input from environment variables
type Config struct {
	// Server Configuration
	Port        int    `json:"port"`
	Host        string `json:"host"`
	Environment string `json:"environment"`

	// Database configuration
	DBDriver      string        `json:"db_driver"`
	DatabaseURL   string        `json:"database_url"`
	DBHost        string        `json:"db_host"`
	DBPort        string        `json:"db_port"`
	DBName        string        `json:"db_name"`
	DBUser        string        `json:"db_user"`
	DBPassword    string        `json:"db_password"`
	DBSSLMode     string        `json:"db_ssl_mode"`
	DBPath        string        `json:"db_path"`
	DBLockTimeout time.Duration `json:"db_lock_timeout"`
	DBAttempts    int           `json:"db_connect_attempts"`
	DBRetryDelay  time.Duration `json:"db_retry_delay"`

	// Logging configuration
	LogLevel string `json:"log_level"`

	// Security Configuration
	JWTSecret string `json:"jwt_secret"`

	// Image storage configuration
	StorageType string        `json:"storage_type"`
	MediaDir    string        `json:"media_dir"`
	MediaURL    string        `json:"media_url"`
	S3Endpoint  string        `json:"s3_endpoint"`
	S3Region    string        `json:"s3_region"`
	S3Bucket    string        `json:"s3_bucket"`
	S3KeyID     string        `json:"s3_key_id"`
	S3AccessKey string        `json:"s3_access_key"`
	S3PublicURL string        `json:"s3_public_url"`
	S3Timeout   time.Duration `json:"s3_timeout"`

	// Ingredient search cache, disabled when RedisAddr is empty
	RedisAddr     string        `json:"redis_addr"`
	RedisCacheTTL time.Duration `json:"redis_cache_ttl"`

	// HTTP edge configuration
	CORSAllowedOrigins []string `json:"cors_allowed_origins"`
	RateLimitRPS       int      `json:"rate_limit_rps"`
	RateLimitBurst     int      `json:"rate_limit_burst"`
}

// String returns a string representation of Config with sensitive data masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %d, Host: %s, Environment: %s, DBDriver: %s, DatabaseURL: %s, DBHost: %s, DBName: %s, DBUser: %s, DBPassword: [REDACTED], DBPath: %s, DBLockTimeout: %s, LogLevel: %s, JWTSecret: [REDACTED], StorageType: %s, MediaDir: %s, S3Bucket: %s, S3AccessKey: [REDACTED], RedisAddr: %s, RateLimitRPS: %d}",
		c.Port, c.Host, c.Environment, c.DBDriver, maskDatabaseURL(c.DatabaseURL), c.DBHost, c.DBName, c.DBUser,
		c.DBPath, c.DBLockTimeout, c.LogLevel, c.StorageType, c.MediaDir, c.S3Bucket, c.RedisAddr, c.RateLimitRPS)
}

// maskDatabaseURL masks password in database URL
func maskDatabaseURL(dbURL string) string {
	if dbURL == "" {
		return ""
	}

	parsed, err := url.Parse(dbURL)
	if err != nil {
		return "[REDACTED_INVALID_URL]"
	}

	if parsed.User != nil {
		// Replace password with [REDACTED]
		parsed.User = url.UserPassword(parsed.User.Username(), "[REDACTED]")
	}

	return parsed.String()
}

// LoadConfig read the proper configuration from environment variables and returns a Config struct
// It also validates formats like DatabaseURL and the storage backend
// Returns an error if any environment variable is invalid
func LoadConfig() (*Config, error) {
	log.Info("Loading configuration from environment variables")
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	dbURL := GetEnvWithDefault("DATABASE_URL", "")
	if dbURL != "" {
		if _, err := url.ParseRequestURI(dbURL); err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL format: %w", err)
		}
	}

	// a DATABASE_URL without an explicit DB_DRIVER points at PostgreSQL
	defaultDriver := "sqlite"
	if dbURL != "" {
		defaultDriver = "postgres"
	}
	dbDriver := strings.ToLower(GetEnvWithDefault("DB_DRIVER", defaultDriver))

	lockTimeout, err := time.ParseDuration(GetEnvWithDefault("DB_LOCK_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_LOCK_TIMEOUT: %w", err)
	}

	storageType := strings.ToLower(GetEnvWithDefault("STORAGE_TYPE", "filesystem"))
	if storageType != "filesystem" && storageType != "s3" {
		return nil, fmt.Errorf("unsupported STORAGE_TYPE: %s (supported: filesystem, s3)", storageType)
	}

	config := &Config{
		Port:        port,
		Host:        GetEnvWithDefault("APP_HOST", "localhost"),
		Environment: GetEnvWithDefault("APP_ENV", "development"),

		DBDriver:      dbDriver,
		DatabaseURL:   dbURL,
		DBHost:        GetEnvWithDefault("DB_HOST", "localhost"),
		DBPort:        GetEnvWithDefault("DB_PORT", "5432"),
		DBName:        GetEnvWithDefault("DB_NAME", "recipes"),
		DBUser:        GetEnvWithDefault("DB_USER", "user"),
		DBPassword:    GetEnvWithDefault("DB_PASSWORD", "password"),
		DBSSLMode:     GetEnvWithDefault("DB_SSLMODE", "disable"),
		DBPath:        GetEnvWithDefault("DB_PATH", "recipes.sqlite"),
		DBLockTimeout: lockTimeout,
		DBAttempts:    GetEnvAsType("DB_CONNECT_ATTEMPTS", 5),
		DBRetryDelay:  GetEnvAsType("DB_RETRY_DELAY", time.Second),

		LogLevel:  GetEnvWithDefault("LOG_LEVEL", "info"),
		JWTSecret: GetEnvWithDefault("JWT_SECRET", "secret"),

		StorageType: storageType,
		MediaDir:    GetEnvWithDefault("MEDIA_DIR", "media"),
		MediaURL:    GetEnvWithDefault("MEDIA_URL", "/media"),
		S3Endpoint:  GetEnvWithDefault("S3_ENDPOINT", ""),
		S3Region:    GetEnvWithDefault("S3_REGION", "us-east-1"),
		S3Bucket:    GetEnvWithDefault("S3_BUCKET", ""),
		S3KeyID:     GetEnvWithDefault("S3_KEY_ID", ""),
		S3AccessKey: GetEnvWithDefault("S3_ACCESS_KEY", ""),
		S3PublicURL: GetEnvWithDefault("S3_PUBLIC_URL", ""),
		S3Timeout:   GetEnvAsType("S3_TIMEOUT", 30*time.Second),

		RedisAddr:     GetEnvWithDefault("REDIS_ADDR", ""),
		RedisCacheTTL: GetEnvAsType("REDIS_CACHE_TTL", 5*time.Minute),

		CORSAllowedOrigins: splitList(GetEnvWithDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		RateLimitRPS:       GetEnvAsType("RATE_LIMIT_RPS", 20),
		RateLimitBurst:     GetEnvAsType("RATE_LIMIT_BURST", 40),
	}
	log.Infof("Configuration loaded: %s", config.String())
	return config, nil
}

// splitList splits a comma separated value, dropping empty items
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Helper to get environment with default values
func GetEnvWithDefault(key, defaultValue string) string {
	log.Tracef("Getting environment variable: %s", key)
	value := os.Getenv(key)
	if value == "" {
		log.Debugf("Environment variable %s not set, using default value: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the specified type
// using generic type handling.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	case time.Duration:
		durationValue, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return any(durationValue).(T)
	default:
		return defaultValue // Fallback for unsupported types
	}
}
