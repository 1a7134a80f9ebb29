package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	// Upstream market data sources
	WhiteMarketCSVURL string
	WhiteMarketToken  string
	CSFloatURL        string
	Buff163URL        string

	// Refresh cadence for the scheduler loop
	RefreshInterval time.Duration
	UpsertBatch     int
}

func Load() *Config {
	// Default MySQL connection string
	defaultDSN := "root:csgo@tcp(127.0.0.1:3306)/csgo_liquidity?charset=utf8mb4&parseTime=True&loc=Local"

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", defaultDSN),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		WhiteMarketCSVURL: getEnv("WHITEMARKET_PRICES_CSV", "https://s3.white.market/export/v1/prices/730.csv"),
		WhiteMarketToken:  getEnv("WHITEMARKET_API_TOKEN", ""),
		CSFloatURL:        getEnv("CSFLOAT_URL", "https://csfloat.com/api/v1/listings/price-list"),
		Buff163URL:        getEnv("BUFF163_URL", "https://prices.csgotrader.app/latest/buff163.json"),

		RefreshInterval: getEnvSeconds("REFRESH_INTERVAL_SECONDS", 3*time.Hour),
		UpsertBatch:     getEnvInt("UPSERT_BATCH", 500),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
