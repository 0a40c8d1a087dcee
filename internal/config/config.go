package config

import (
	"os"
	"strconv"
)

// Config holds all atelier server settings, loaded from the environment.
type Config struct {
	HTTP struct {
		Addr       string
		CORSOrigin string
	}
	Mongo struct {
		URI      string
		Database string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
		Enabled  bool
	}
	Storage struct {
		Endpoint        string
		AccessKeyID     string
		SecretAccessKey string
		UseSSL          bool
	}
	Log struct {
		Level  string
		Format string
	}
	CookieSecure bool
}

// Load reads configuration from environment variables with development
// defaults. Redis and object storage stay disabled until configured.
func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.CORSOrigin = getEnv("CORS_ORIGIN", "http://localhost:5173")

	cfg.Mongo.URI = getEnv("MONGO_URI", "mongodb://localhost:27017")
	cfg.Mongo.Database = getEnv("MONGO_DB", "atelier")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)
	cfg.Redis.Enabled = cfg.Redis.Addr != ""

	cfg.Storage.Endpoint = getEnv("MINIO_ENDPOINT", "")
	cfg.Storage.AccessKeyID = getEnv("MINIO_ACCESS_KEY", "")
	cfg.Storage.SecretAccessKey = getEnv("MINIO_SECRET_KEY", "")
	cfg.Storage.UseSSL = getEnv("MINIO_USE_SSL", "false") == "true"

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// Secure cookies default on in production.
	cfg.CookieSecure = getEnv("COOKIE_SECURE", "") == "true" ||
		(getEnv("COOKIE_SECURE", "") == "" && getEnv("ENVIRONMENT", "") == "production")

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
