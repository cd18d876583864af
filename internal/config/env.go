package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPaths are tried in order; the first readable file wins
var EnvPaths = []string{".env", "../.env", "../../.env"}

// LoadEnv loads environment variables from the first .env file found.
// Variables already set in the process environment are kept.
func LoadEnv() error {
	for _, envPath := range EnvPaths {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		return godotenv.Load(envPath)
	}
	return nil
}

// GetEnv gets environment variable with default
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets integer environment variable with default
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
