package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every runtime knob read from the environment. A .env file in
// the working directory is loaded first when present.
type Config struct {
	Port             string
	DatabaseURL      string
	LogLevel         string
	LogFormat        string
	RateAPIURL       string
	SchedulerEnabled bool
	DevSeed          bool
}

// Load reads the environment, applying defaults for everything optional.
// DATABASE_URL is optional: empty selects the in-memory store.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		RateAPIURL:       strings.TrimSpace(os.Getenv("RATE_API_URL")),
		SchedulerEnabled: boolEnv("SCHEDULER_ENABLED", true),
		DevSeed:          boolEnv("DEV_SEED", false),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
