package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	// StoreDriver selects account/ledger/order storage: "memory" or "postgres".
	StoreDriver string
	DatabaseURL string

	// KVDriver selects the session store: "memory", "sqlite" or "redis".
	KVDriver      string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CatalogPath string

	WebhookURL    string
	WebhookSecret string

	IdentitySecret   string
	IdentityIssuer   string
	IdentityAudience string

	TopUpConfirmTimeout time.Duration
	GatewayDelay        time.Duration
	GatewaySuccessRate  float64

	OTLPEndpoint string
	OTLPInsecure bool

	RateLimitRPS   int
	RateLimitBurst int

	// AdminAPIKey guards /v1/admin; admin routes are closed when empty.
	AdminAPIKey string

	SeedDemo bool
}

// LoadConfig reads .env if present, then the environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on System Env Variables")
	}

	return &Config{
		Port: getEnv("PORT", "3000"),
		Env:  getEnv("ENV", "development"),

		StoreDriver: getEnv("STORE_DRIVER", "memory"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		KVDriver:      getEnv("KV_DRIVER", "memory"),
		SQLitePath:    getEnv("SQLITE_PATH", "maxen.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		CatalogPath: getEnv("CATALOG_PATH", ""),

		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),

		IdentitySecret:   getEnv("IDENTITY_SECRET", ""),
		IdentityIssuer:   getEnv("IDENTITY_ISSUER", ""),
		IdentityAudience: getEnv("IDENTITY_AUDIENCE", ""),

		TopUpConfirmTimeout: getDuration("TOPUP_CONFIRM_TIMEOUT", 30*time.Second),
		GatewayDelay:        getDuration("GATEWAY_DELAY", 5*time.Second),
		GatewaySuccessRate:  getFloat("GATEWAY_SUCCESS_RATE", 0.8),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure: getBool("OTEL_EXPORTER_OTLP_INSECURE", true),

		RateLimitRPS:   getInt("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 40),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),

		SeedDemo: getBool("SEED_DEMO", false),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
