// Package config collects runtime settings from the environment. A .env
// file in the working directory is loaded first when present.
package config

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel         string
	Workers          int
	HTTPPort         string
	DatabaseURL      string
	JWTSecret        string
	JWTExpiresIn     time.Duration
	JobConcurrency   int
	ProgressInterval time.Duration
	AdminEmail       string
	AdminPassword    string
}

// Load reads the environment, applying defaults for unset or malformed
// values.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		LogLevel:         os.Getenv("LOG_LEVEL"),
		Workers:          envInt("WORKERS", runtime.NumCPU()),
		HTTPPort:         envString("HTTP_PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTExpiresIn:     envDuration("JWT_EXPIRES_IN", 24*time.Hour),
		JobConcurrency:   envInt("JOB_CONCURRENCY", 1),
		ProgressInterval: envDuration("PROGRESS_INTERVAL", 10*time.Second),
		AdminEmail:       envString("ADMIN_EMAIL", "admin@keycrack.local"),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
	}
}

func envString(key, def string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return def
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return def
}
