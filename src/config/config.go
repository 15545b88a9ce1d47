package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type ClientConfig struct {
	APIBaseURL     string
	LogLevel       string
	TokenPath      string
	RequestTimeout time.Duration

	// Outgoing request throttle. One request every RateLimitInterval,
	// bursting up to RateLimitBurst.
	RateLimitInterval time.Duration
	RateLimitBurst    int

	// How close to its exp claim the access token may get before the
	// client reports it as expiring.
	TokenExpiryLeeway time.Duration

	// Catalog cache tuning (tags and rules).
	CatalogCacheTTL     time.Duration
	CatalogCacheCleanup time.Duration
}

var Cfg *ClientConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading client configuration...")

	apiBaseURL := getEnv("API_BASE_URL", "https://cancat.io/api")

	Cfg = &ClientConfig{
		APIBaseURL:     apiBaseURL,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		TokenPath:      getEnv("TOKEN_PATH", ".cancat_tokens.json"),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 15*time.Second),

		RateLimitInterval: getEnvAsDuration("RATE_LIMIT_INTERVAL", 100*time.Millisecond),
		RateLimitBurst:    getEnvAsInt("RATE_LIMIT_BURST", 30),

		TokenExpiryLeeway: getEnvAsDuration("TOKEN_EXPIRY_LEEWAY", time.Minute),

		CatalogCacheTTL:     getEnvAsDuration("CATALOG_CACHE_TTL", 15*time.Minute),
		CatalogCacheCleanup: getEnvAsDuration("CATALOG_CACHE_CLEANUP", 30*time.Minute),
	}

	log.Printf("Configuration loaded: APIBaseURL=%s, LogLevel=%s, TokenPath=%s",
		Cfg.APIBaseURL, Cfg.LogLevel, Cfg.TokenPath)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
