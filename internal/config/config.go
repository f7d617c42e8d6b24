package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port                    string
	DBUrl                   string
	DBMaxConns              int
	JWTSecret               string
	AppEnv                  string
	EnableDocs              bool
	LogLevel                string
	SessionsRequireApproval bool
	TxMaxAttempts           int
	NotifyWorkers           int
	NotifyQueueSize         int
	RateLimitPerMinute      int
	CORSAllowOrigins        string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		DBUrl:                   getEnv("DB_URL", ""),
		DBMaxConns:              getEnvInt("DB_MAX_CONNS", 10),
		JWTSecret:               jwtSecret,
		AppEnv:                  normalizeEnv(getEnv("APP_ENV", "production")),
		EnableDocs:              getEnvBool("ENABLE_API_DOCS", false),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		SessionsRequireApproval: getEnvBool("SESSIONS_REQUIRE_APPROVAL", true),
		TxMaxAttempts:           getEnvInt("TX_MAX_ATTEMPTS", 5),
		NotifyWorkers:           getEnvInt("NOTIFY_WORKERS", 2),
		NotifyQueueSize:         getEnvInt("NOTIFY_QUEUE_SIZE", 256),
		RateLimitPerMinute:      getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		CORSAllowOrigins:        getEnv("CORS_ALLOW_ORIGINS", "*"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TxMaxAttempts < 1 {
		return fmt.Errorf("TX_MAX_ATTEMPTS must be at least 1")
	}
	if c.NotifyWorkers < 1 {
		return fmt.Errorf("NOTIFY_WORKERS must be at least 1")
	}
	if c.NotifyQueueSize < 1 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE must be at least 1")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func (c *Config) DocsEnabled() bool {
	return c != nil && c.EnableDocs && c.AppEnv == "development"
}
