package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mgallardo/gamestore/internal/infrastructure/webpay"
)

// Config carries everything main needs to assemble the service. Optional
// backends (MySQL, Redis) are enabled by the presence of their setting;
// absent, the service falls back to in-process equivalents.
type Config struct {
	Addr        string
	ServiceName string
	Env         string

	// MySQLDSN enables the gorm-backed stores when set.
	MySQLDSN string
	// RedisAddress enables the distributed settlement lock when set.
	RedisAddress string

	WebpayBaseURL      string
	WebpayCommerceCode string
	WebpayAPIKey       string

	// ReturnBaseURL is the externally reachable origin the gateway
	// redirects the payer back to after authorization.
	ReturnBaseURL string

	// StaleTransactionAge is how old a pending payment session must be
	// before the sweep considers it abandoned.
	StaleTransactionAge time.Duration
}

// Load reads .env when present, then the process environment. Missing
// optional settings get sandbox defaults so the service runs without any
// configuration at all.
func Load() Config {
	godotenv.Load()

	cfg := Config{
		Addr:                getenvDefault("ADDR", ":8080"),
		ServiceName:         getenvDefault("SERVICE_NAME", "gamestore"),
		Env:                 getenvDefault("ENV", "dev"),
		MySQLDSN:            os.Getenv("MYSQL_DSN"),
		RedisAddress:        os.Getenv("REDIS_ADDRESS"),
		WebpayBaseURL:       getenvDefault("WEBPAY_BASE_URL", "https://webpay3gint.transbank.cl"),
		WebpayCommerceCode:  getenvDefault("WEBPAY_COMMERCE_CODE", webpay.IntegrationCommerceCode),
		WebpayAPIKey:        getenvDefault("WEBPAY_API_KEY", webpay.IntegrationAPIKey),
		ReturnBaseURL:       getenvDefault("RETURN_BASE_URL", "http://localhost:8080"),
		StaleTransactionAge: 24 * time.Hour,
	}
	if v := os.Getenv("STALE_TRANSACTION_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.StaleTransactionAge = d
		}
	}
	return cfg
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
