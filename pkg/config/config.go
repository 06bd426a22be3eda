package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DatabaseURL   string
	JWTSecret     string
	JWTIssuer     string
	JWTTTLMinutes int

	OpenRouterAPIKey   string
	OpenRouterBaseURL  string
	OpenRouterAppTitle string
	OpenRouterReferer  string
	ChatModel          string
	EmbeddingModel     string

	// Пороги дедупликации и ревью; единицы — косинусная близость [0,1].
	VariantThreshold       float32
	NearDuplicateThreshold float32
	ReviewThreshold        float32
}

// Load reads environment variables, optionally from a .env file if present.
func Load() Config {
	// Try to load .env if it exists; ignore error if file not found
	_ = godotenv.Load()

	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change"),
		JWTIssuer:     getEnv("JWT_ISSUER", "cv-tailor"),
		JWTTTLMinutes: getEnvInt("JWT_TTL_MINUTES", 60),

		OpenRouterAPIKey:   os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL:  getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenRouterAppTitle: getEnv("OPENROUTER_APP_TITLE", "cv-tailor"),
		OpenRouterReferer:  getEnv("OPENROUTER_REFERER", ""),
		ChatModel:          getEnv("CHAT_MODEL", "openai/gpt-4o-mini"),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "openai/text-embedding-3-small"),

		VariantThreshold:       getEnvFloat("VARIANT_THRESHOLD", 0.75),
		NearDuplicateThreshold: getEnvFloat("NEAR_DUPLICATE_THRESHOLD", 0.92),
		ReviewThreshold:        getEnvFloat("REVIEW_THRESHOLD", 0.5),
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return def
}
