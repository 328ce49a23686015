package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	PORT       string
	DB_URL     string
	JWT_SECRET string

	// Stability AI credentials. An empty key is a configuration error that the
	// provider client reports per request, before any network call.
	STABILITY_API_KEY string
	STABILITY_API_URL string

	GOOGLE_CLIENT_ID         string
	GOOGLE_CLIENT_SECRET     string
	GOOGLE_REDIRECT_URL      string
	GOOGLE_FRONTEND_REDIRECT string

	// MinIO media store. Optional: when MINIO_ENDPOINT is empty, generated
	// media is returned inline only and output references stay local.
	MINIO_ENDPOINT   string
	MINIO_ACCESS_KEY string
	MINIO_SECRET_KEY string
	MINIO_BUCKET     string
	MINIO_USE_SSL    bool
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")

	STABILITY_API_KEY = getEnv("STABILITY_API_KEY", "")
	STABILITY_API_URL = getEnv("STABILITY_API_URL", "https://api.stability.ai")

	GOOGLE_CLIENT_ID = getEnv("GOOGLE_CLIENT_ID", "")
	GOOGLE_CLIENT_SECRET = getEnv("GOOGLE_CLIENT_SECRET", "")
	GOOGLE_REDIRECT_URL = getEnv("GOOGLE_REDIRECT_URL", "")
	GOOGLE_FRONTEND_REDIRECT = getEnv("GOOGLE_FRONTEND_REDIRECT", "")

	MINIO_ENDPOINT = getEnv("MINIO_ENDPOINT", "")
	MINIO_ACCESS_KEY = getEnv("MINIO_ACCESS_KEY", "")
	MINIO_SECRET_KEY = getEnv("MINIO_SECRET_KEY", "")
	MINIO_BUCKET = getEnv("MINIO_BUCKET", "generations")
	MINIO_USE_SSL = getEnv("MINIO_USE_SSL", "false") == "true"
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
