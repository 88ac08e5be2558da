package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// TierLimits carries the per-window request thresholds for one tier.
type TierLimits struct {
	FiveMin int
	OneHour int
	OneDay  int
}

type Config struct {
	Env               string
	Port              string
	DBURL             string
	RedisURL          string
	RateLimitBackend  string // "postgres" or "redis"
	AccessTokenSecret string
	AccessExpiryMin   int
	StandardLimits    TierLimits
	AdminLimits       TierLimits
	ValidTermsIDs     []string
}

func Load() *Config {
	return &Config{
		Env:               getEnv("ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		DBURL:             mustGetEnv("DB_URL"),
		RedisURL:          getEnv("REDIS_URL", ""),
		RateLimitBackend:  getEnv("RATE_LIMIT_BACKEND", "postgres"),
		AccessTokenSecret: mustGetEnv("ACCESS_TOKEN_SECRET"),
		AccessExpiryMin:   getEnvAsInt("ACCESS_TOKEN_EXPIRY", 15),
		StandardLimits: TierLimits{
			FiveMin: getEnvAsInt("RATE_LIMIT_STANDARD_FIVE_MIN", 10),
			OneHour: getEnvAsInt("RATE_LIMIT_STANDARD_ONE_HOUR", 30),
			OneDay:  getEnvAsInt("RATE_LIMIT_STANDARD_ONE_DAY", 100),
		},
		AdminLimits: TierLimits{
			FiveMin: getEnvAsInt("RATE_LIMIT_ADMIN_FIVE_MIN", 100),
			OneHour: getEnvAsInt("RATE_LIMIT_ADMIN_ONE_HOUR", 300),
			OneDay:  getEnvAsInt("RATE_LIMIT_ADMIN_ONE_DAY", 1000),
		},
		ValidTermsIDs: getEnvAsList("VALID_TERMS_IDS", []string{"no_terms"}),
	}
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Fatalf("Missing required environment variable: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsList(key string, defaultVal []string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	parts := strings.Split(valStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
