package config

import (
	"os"
	"strconv"
)

// Config holds runtime configuration, loaded from environment variables.
type Config struct {
	GoogleApiKey      string
	AnthropicApiKey   string
	SerperApiKey      string
	DatabaseURL       string
	LLMProvider       string
	ReasoningModel    string
	FastModel         string
	Port              string
	StepLimit         int
	SearchResultCount int
	LLMMaxRetries     int
	ScrapeMaxRetries  int
	ChunkSize         int
	ChunkOverlap      int
	EmbeddingModel    string
	ArchiveTable      string
}

func Load() *Config {
	return &Config{
		GoogleApiKey:      getEnv("GOOGLE_API_KEY", ""),
		AnthropicApiKey:   getEnv("ANTHROPIC_API_KEY", ""),
		SerperApiKey:      getEnv("SERPER_API_KEY", ""),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		LLMProvider:       getEnv("LLM_PROVIDER", "google"),
		ReasoningModel:    getEnv("REASONING_MODEL", "gemini-3-pro-preview"),
		FastModel:         getEnv("FAST_MODEL", "gemini-3-flash-preview"),
		Port:              getEnv("PORT", "3000"),
		StepLimit:         getEnvAsInt("STEP_LIMIT", 10),
		SearchResultCount: getEnvAsInt("SEARCH_RESULT_COUNT", 10),
		LLMMaxRetries:     getEnvAsInt("LLM_MAX_RETRIES", 3),
		ScrapeMaxRetries:  getEnvAsInt("SCRAPE_MAX_RETRIES", 3),
		ChunkSize:         getEnvAsInt("CHUNK_SIZE", 1000),
		ChunkOverlap:      getEnvAsInt("CHUNK_OVERLAP", 200),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		ArchiveTable:      getEnv("ARCHIVE_TABLE", "research_archive"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
