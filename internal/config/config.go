package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-wide settings read from the environment.
type Config struct {
	Environment   string
	Port          int
	DatabaseURL   string
	EnvFileLoaded bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioBucket    string

	CORSOrigins []string
	CatalogPath string

	SweepInterval     time.Duration
	StalePendingAfter time.Duration
	ResolveCacheTTL   time.Duration
	SubmitRateLimit   int
	SubmitRateWindow  time.Duration
}

// Load reads .env (when present) and the environment. DATABASE_URL is required.
func Load() (*Config, error) {
	cfg := &Config{}
	// A missing .env is normal outside local development.
	if err := godotenv.Load(".env"); err == nil {
		cfg.EnvFileLoaded = true
	}

	cfg.Environment = getEnv("ENV", "development")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}

	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}

	// An empty endpoint disables the audit archive.
	cfg.MinioEndpoint = os.Getenv("MINIO_ENDPOINT")
	cfg.MinioAccessKey = getEnv("MINIO_ACCESS_KEY", "minioadmin")
	cfg.MinioSecretKey = getEnv("MINIO_SECRET_KEY", "minioadmin")
	cfg.MinioUseSSL = os.Getenv("MINIO_USE_SSL") == "true"
	cfg.MinioBucket = getEnv("MINIO_BUCKET", "rental-audit")

	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGINS", "*"))
	cfg.CatalogPath = os.Getenv("CATALOG_PATH")

	if cfg.SweepInterval, err = getDuration("SWEEP_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.StalePendingAfter, err = getDuration("STALE_PENDING_AFTER", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ResolveCacheTTL, err = getDuration("RESOLVE_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SubmitRateLimit, err = getInt("SUBMIT_RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.SubmitRateWindow, err = getDuration("SUBMIT_RATE_WINDOW", time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether the process runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ArchiveEnabled reports whether the MinIO audit archive is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.MinioEndpoint != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
