package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Index    IndexConfig
	Ai       AIConfig
	Rag      RagConfig
	Web      WebConfig
	Session  SessionConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	InteractionLogPath string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	DebugDir           string
	OtlpEndpoint       string
}

// DatabaseConfig points at the relational store queried by the sql agent.
type DatabaseConfig struct {
	Driver     string // "sqlite" or "postgres"
	Connection string
	SeedSample bool
}

type IndexConfig struct {
	Backend    string // "memory" or "pgvector"
	Connection string
	SeedFile   string
}

type AIConfig struct {
	LLMProvider       string // "ollama", "huggingface"
	LLMModel          string
	LLMApiKey         string
	LLMBaseURL        string
	Temperature       float64
	OllamaBaseURL     string
	OllamaModel       string // embedding model
	EmbeddingProvider string
}

type RagConfig struct {
	Mode            string // "full" or "minimal"
	MaxTransforms   int
	RetrieveGiveUp  int
	TopK            int
	OverFetch       int
	TurnTimeout     time.Duration
	FallbackTimeout time.Duration
}

type WebConfig struct {
	SearchURL  string
	MaxResults int
	CacheTTL   time.Duration
}

type SessionConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			InteractionLogPath: getEnv("INTERACTION_LOG_PATH", "logs/chat_interactions.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			DebugDir:           getEnv("DEBUG_DIR", "debug_logs"),
			OtlpEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "sqlite"),
			Connection: getEnv("DB_CONNECTION_STRING", "file:employees.db"),
			SeedSample: getEnvAsBool("DB_SEED_SAMPLE", true),
		},
		Index: IndexConfig{
			Backend:    getEnv("INDEX_BACKEND", "memory"),
			Connection: getEnv("INDEX_CONNECTION_STRING", ""),
			SeedFile:   getEnv("INDEX_SEED_FILE", ""),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "qwen3:8b"),
			LLMApiKey:         getEnv("LLM_API_KEY", ""),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
		},
		Rag: RagConfig{
			Mode:            getEnv("RAG_MODE", "full"),
			MaxTransforms:   getEnvAsInt("RAG_MAX_TRANSFORMS", 3),
			RetrieveGiveUp:  getEnvAsInt("RAG_RETRIEVE_GIVE_UP", 2),
			TopK:            getEnvAsInt("RAG_TOP_K", 3),
			OverFetch:       getEnvAsInt("RAG_OVER_FETCH", 10),
			TurnTimeout:     getEnvAsDuration("RAG_TURN_TIMEOUT", 30*time.Second),
			FallbackTimeout: getEnvAsDuration("RAG_FALLBACK_TIMEOUT", 15*time.Second),
		},
		Web: WebConfig{
			SearchURL:  getEnv("WEB_SEARCH_URL", "https://html.duckduckgo.com/html/"),
			MaxResults: getEnvAsInt("WEB_SEARCH_MAX_RESULTS", 5),
			CacheTTL:   getEnvAsDuration("WEB_SEARCH_CACHE_TTL", 10*time.Minute),
		},
		Session: SessionConfig{
			TTL:             getEnvAsDuration("SESSION_TTL", time.Hour),
			CleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 10*time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
