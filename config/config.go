package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Search   SearchConfig
	Judge    JudgeConfig
	Session  SessionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is; otherwise built from components
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SearchConfig holds the restaurant search provider settings (Yelp-style API).
type SearchConfig struct {
	BaseURL    string
	APIKey     string
	TimeoutSec int
}

// JudgeConfig holds the AI tie-break judge service settings.
type JudgeConfig struct {
	BaseURL    string
	APIKey     string
	TimeoutSec int
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	IdleExpiryHours int // idle sessions older than this are purged by the worker
	MenuClaimTTLSec int // Redis single-flight claim TTL for menu fetches
	ExpirySweepMin  int // minutes between expiry sweeps in the worker
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load() // .env

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "commonplate"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Search: SearchConfig{
			BaseURL:    getEnv("SEARCH_BASE_URL", "https://api.yelp.com/v3"),
			APIKey:     getEnv("SEARCH_API_KEY", ""),
			TimeoutSec: getEnvInt("SEARCH_TIMEOUT_SEC", 10),
		},
		Judge: JudgeConfig{
			BaseURL:    getEnv("JUDGE_BASE_URL", ""),
			APIKey:     getEnv("JUDGE_API_KEY", ""),
			TimeoutSec: getEnvInt("JUDGE_TIMEOUT_SEC", 15),
		},
		Session: SessionConfig{
			IdleExpiryHours: getEnvInt("SESSION_IDLE_EXPIRY_HOURS", 24),
			MenuClaimTTLSec: getEnvInt("MENU_CLAIM_TTL_SEC", 30),
			ExpirySweepMin:  getEnvInt("EXPIRY_SWEEP_MINUTES", 30),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
