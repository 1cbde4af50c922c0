package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"paper-summarizer/internal/logger"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Supabase SupabaseConfig
	Database DatabaseConfig
	Storage  StorageConfig
	API      APIConfig
	History  HistoryConfig
	Session  SessionConfig
}

// SupabaseConfig holds the auth service configuration
type SupabaseConfig struct {
	URL     string
	AnonKey string
	// JWTSecret is optional; without it token claims are read unverified
	JWTSecret          []byte
	EmailRedirectURL   string
	PasswordResetURL   string
	AuthRequestTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MigrationsPath string
	RunMigrations  bool
	MaxOpenConns   int
	QueryTimeout   time.Duration
}

// StorageConfig holds the S3-compatible blob storage configuration
type StorageConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UploadTimeout   time.Duration
}

// APIConfig holds the summarization/chat service configuration
type APIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// HistoryConfig holds history cache configuration
type HistoryConfig struct {
	TTL time.Duration
}

// SessionConfig holds where the signed-in session is kept between runs
type SessionConfig struct {
	FilePath string
}

// LoadConfig loads and validates application configuration from environment.
// A .env file in the working directory is loaded first when present.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logger.Log.Debug(".env file not found, using process environment")
	}

	config := &AppConfig{}

	supabaseURL := strings.TrimRight(os.Getenv("SUPABASE_URL"), "/")
	if supabaseURL == "" {
		return nil, fmt.Errorf("SUPABASE_URL environment variable must be set")
	}
	anonKey := os.Getenv("SUPABASE_ANON_KEY")
	if anonKey == "" {
		return nil, fmt.Errorf("SUPABASE_ANON_KEY environment variable must be set")
	}

	var jwtSecret []byte
	if secret := os.Getenv("SUPABASE_JWT_SECRET"); secret != "" {
		if len(secret) < 32 {
			return nil, fmt.Errorf("SUPABASE_JWT_SECRET must be at least 32 characters (current length: %d)", len(secret))
		}
		jwtSecret = []byte(secret)
	} else {
		logger.Log.Warn("SUPABASE_JWT_SECRET not set, session tokens will not be verified locally")
	}

	config.Supabase = SupabaseConfig{
		URL:                supabaseURL,
		AnonKey:            anonKey,
		JWTSecret:          jwtSecret,
		EmailRedirectURL:   getEnvOrDefault("AUTH_EMAIL_REDIRECT_URL", "http://localhost:3000/auth/callback"),
		PasswordResetURL:   getEnvOrDefault("AUTH_PASSWORD_RESET_URL", "http://localhost:3000/update-password"),
		AuthRequestTimeout: getEnvAsDuration("AUTH_REQUEST_TIMEOUT", 15*time.Second),
	}

	config.Database = DatabaseConfig{
		Host:           getEnvOrDefault("DB_HOST", "localhost"),
		Port:           getEnvOrDefault("DB_PORT", "5432"),
		User:           getEnvOrDefault("DB_USER", "postgres"),
		Password:       getEnvOrDefault("DB_PASSWORD", "postgres"),
		Name:           getEnvOrDefault("DB_NAME", "postgres"),
		SSLMode:        getEnvOrDefault("DB_SSLMODE", "require"),
		MigrationsPath: getEnvOrDefault("DB_MIGRATIONS_PATH", "migrations"),
		RunMigrations:  getEnvAsBool("DB_RUN_MIGRATIONS", false),
		MaxOpenConns:   getEnvAsInt("DB_MAX_OPEN_CONNS", 4),
		QueryTimeout:   getEnvAsDuration("DB_QUERY_TIMEOUT", 10*time.Second),
	}

	config.Storage = StorageConfig{
		Endpoint:        getEnvOrDefault("STORAGE_S3_ENDPOINT", supabaseURL+"/storage/v1/s3"),
		Region:          getEnvOrDefault("STORAGE_S3_REGION", "us-east-1"),
		Bucket:          getEnvOrDefault("STORAGE_BUCKET", "documents"),
		AccessKeyID:     os.Getenv("STORAGE_S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("STORAGE_S3_SECRET_ACCESS_KEY"),
		UploadTimeout:   getEnvAsDuration("STORAGE_UPLOAD_TIMEOUT", 2*time.Minute),
	}
	if config.Storage.AccessKeyID == "" || config.Storage.SecretAccessKey == "" {
		logger.Log.Warn("STORAGE_S3_ACCESS_KEY_ID/STORAGE_S3_SECRET_ACCESS_KEY not set, file uploads will fail")
	}

	config.API = APIConfig{
		BaseURL:        strings.TrimRight(getEnvOrDefault("API_URL", "http://127.0.0.1:8000"), "/"),
		RequestTimeout: getEnvAsDuration("API_REQUEST_TIMEOUT", 3*time.Minute),
	}

	config.History = HistoryConfig{
		TTL: getEnvAsDuration("HISTORY_CACHE_TTL", 30*time.Minute),
	}

	config.Session = SessionConfig{
		FilePath: getEnvOrDefault("SESSION_FILE", defaultSessionPath()),
	}

	return config, nil
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid boolean value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"key": key, "default": defaultValue}).Warn("Invalid duration value, using default")
		return defaultValue
	}
	return value
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".paper-summarizer-session.json"
	}
	return filepath.Join(dir, "paper-summarizer", "session.json")
}
