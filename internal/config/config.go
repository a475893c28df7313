package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// DefaultAPIBaseURL is the local development HR service
const DefaultAPIBaseURL = "http://localhost:5000/api"

// Config holds the dashboard configuration
type Config struct {
	APIBaseURL     string
	Port           string
	HTTPTimeout    time.Duration
	DBPath         string
	Storage        StorageConfig
	CookieSecret   string
	SecureCookies  bool
	AllowedOrigins []string
	// TLSDir enables HTTPS with a self-signed certificate kept there
	TLSDir string
}

// StorageConfig selects and configures the per-browser storage driver
type StorageConfig struct {
	Driver        string
	Secret        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load reads the configuration from the environment, loading .env first when present
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to read .env: %v", err)
	}
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only
func FromEnv() (*Config, error) {
	cfg := &Config{
		APIBaseURL:    strings.TrimRight(getEnv("PEOPLEPULSE_API_BASE_URL", DefaultAPIBaseURL), "/"),
		Port:          getEnv("PEOPLEPULSE_PORT", "8080"),
		DBPath:        getEnv("PEOPLEPULSE_DB_PATH", "./peoplepulse.db"),
		CookieSecret:  os.Getenv("PEOPLEPULSE_COOKIE_SECRET"),
		TLSDir:        os.Getenv("PEOPLEPULSE_TLS_DIR"),
		Storage: StorageConfig{
			Driver:        strings.ToLower(getEnv("PEOPLEPULSE_STORAGE_DRIVER", DriverSQLite)),
			Secret:        os.Getenv("PEOPLEPULSE_STORAGE_SECRET"),
			RedisAddr:     getEnv("PEOPLEPULSE_REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("PEOPLEPULSE_REDIS_PASSWORD"),
		},
	}

	// Cookies only travel over HTTPS when the dashboard serves it
	cfg.SecureCookies = getEnvBool("PEOPLEPULSE_SECURE_COOKIES", cfg.TLSDir != "")

	if origins := os.Getenv("PEOPLEPULSE_ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	timeout, err := time.ParseDuration(getEnv("PEOPLEPULSE_HTTP_TIMEOUT", "15s"))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("invalid PEOPLEPULSE_HTTP_TIMEOUT: %q", os.Getenv("PEOPLEPULSE_HTTP_TIMEOUT"))
	}
	cfg.HTTPTimeout = timeout

	redisDB, err := strconv.Atoi(getEnv("PEOPLEPULSE_REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid PEOPLEPULSE_REDIS_DB: %w", err)
	}
	cfg.Storage.RedisDB = redisDB

	switch cfg.Storage.Driver {
	case DriverSQLite, DriverRedis:
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if !filepath.IsAbs(cfg.DBPath) {
		cwd, _ := os.Getwd()
		cfg.DBPath = filepath.Join(cwd, cfg.DBPath)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
