package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration. A single value is built in
// main and handed to every component that needs it; nothing reads ambient
// state after startup.
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
	}

	// Storage configuration for the durable message logs
	Storage struct {
		// Path is the directory holding the pebble database
		Path string
	}

	// JWT configuration
	JWT struct {
		Secret string
		Expiry time.Duration
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Bot configuration
	Bot struct {
		// ID is the principal for the in-process bot producer; empty
		// disables it
		ID string
	}

	// Presence configuration
	Presence struct {
		// RedisURL selects the redis-backed presence store when set;
		// empty means in-memory
		RedisURL string
	}

	// Chat traffic limits. The original system defined none of these;
	// the defaults here are documented in DESIGN.md.
	Limits struct {
		MaxContentBytes int
		DefaultPageSize int
		MaxPageSize     int
	}
}

// New creates a Config populated from environment variables, loading a .env
// file first when one exists.
func New() *Config {
	godotenv.Load()

	cfg := &Config{}

	// Server config
	cfg.Server.Port = getEnvString("PORT", "8081")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)

	// Storage config
	cfg.Storage.Path = getEnvString("STORAGE_PATH", "./data/chatlog")

	// JWT config
	cfg.JWT.Secret = getEnvString("JWT_SECRET", "default-jwt-secret-do-not-use-in-production")
	cfg.JWT.Expiry = getEnvDuration("JWT_EXPIRY", 24*time.Hour)

	// Security config
	cfg.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 5))
	cfg.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
	cfg.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})

	// Logging config
	cfg.Logging.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("LOG_FORMAT", "json")

	// Bot config
	cfg.Bot.ID = getEnvString("BOT_ID", "")

	// Presence config
	cfg.Presence.RedisURL = getEnvString("REDIS_URL", "")

	// Limits
	cfg.Limits.MaxContentBytes = getEnvInt("MAX_CONTENT_BYTES", 4096)
	cfg.Limits.DefaultPageSize = getEnvInt("DEFAULT_PAGE_SIZE", 50)
	cfg.Limits.MaxPageSize = getEnvInt("MAX_PAGE_SIZE", 100)

	return cfg
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
