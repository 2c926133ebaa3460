package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variables
const (
	EnvArbitrumRPC = "ARBITRUM_RPC"
	EnvPolygonRPC  = "POLYGON_RPC"
	EnvPort        = "PORT"
	EnvRedisAddr   = "REDIS_ADDR"
	EnvCatalogFile = "TRISCAN_CATALOG"
)

// LoadEnv loads environment variables from a .env file when present
func LoadEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	return godotenv.Load()
}

// GetEnvWithDefault gets an environment variable with a default value
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
