package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port                   string
	AllowedOrigin          string
	DatabaseURL            string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	TaxRate                decimal.Decimal
	ReceiptCacheTTLSeconds int
}

func Load() Config {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	cacheTTL, err := strconv.Atoi(getEnv("RECEIPT_CACHE_TTL_SECONDS", "300"))
	if err != nil || cacheTTL < 1 {
		cacheTTL = 300
	}

	cfg := Config{
		Port:                   getEnv("PORT", "8000"),
		AllowedOrigin:          getEnv("ALLOWED_ORIGIN", "*"),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                redisDB,
		TaxRate:                loadTaxRate(),
		ReceiptCacheTTLSeconds: cacheTTL,
	}

	return cfg
}

// loadTaxRate parses TAX_RATE as a flat decimal fraction (0.1 = 10%).
// Defaults to zero; negative or rates of 1 and above are rejected.
func loadTaxRate() decimal.Decimal {
	raw := strings.TrimSpace(getEnv("TAX_RATE", "0"))
	rate, err := decimal.NewFromString(raw)
	if err != nil || rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero
	}
	return rate
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
