package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	DatabaseURL string
	Env         string
}

// Load reads .env if present, then the environment. DATABASE_URL is
// optional: without it the message archive is disabled and chat history
// lives in memory only.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:        getEnv("ADDR", ":8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Env:         getEnv("APP_ENV", "development"),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
