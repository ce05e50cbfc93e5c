// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DatabaseURL        string
	EnableDB           bool
	GinMode            string
	LogLevel           string
	LogFormat          string
	HistoryCacheTTL    time.Duration
	RecentDefaultLimit int
	MaxBodyBytes       int64
	CORSOrigins        []string
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		EnableDB:    strings.EqualFold(getEnv("ENABLE_DB", "false"), "true"),
		GinMode:     getEnv("GIN_MODE", "release"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:   strings.ToLower(getEnv("LOG_FORMAT", "json")),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}

	if cfg.EnableDB && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}

	var err error
	if cfg.HistoryCacheTTL, err = time.ParseDuration(getEnv("HISTORY_CACHE_TTL", "30s")); err != nil {
		return nil, fmt.Errorf("HISTORY_CACHE_TTL: %w", err)
	}
	if cfg.HistoryCacheTTL <= 0 {
		return nil, fmt.Errorf("HISTORY_CACHE_TTL must be positive, got %s", cfg.HistoryCacheTTL)
	}
	if cfg.RecentDefaultLimit, err = strconv.Atoi(getEnv("RECENT_DEFAULT_LIMIT", "10")); err != nil || cfg.RecentDefaultLimit <= 0 {
		return nil, fmt.Errorf("RECENT_DEFAULT_LIMIT must be a positive integer, got %q", os.Getenv("RECENT_DEFAULT_LIMIT"))
	}
	if cfg.MaxBodyBytes, err = strconv.ParseInt(getEnv("MAX_BODY_BYTES", "1048576"), 10, 64); err != nil || cfg.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("MAX_BODY_BYTES must be a positive integer, got %q", os.Getenv("MAX_BODY_BYTES"))
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}

	switch cfg.GinMode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return nil, fmt.Errorf("GIN_MODE must be debug, release or test, got %q", cfg.GinMode)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
