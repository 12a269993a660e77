package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Sources  SourceConfig
	Keys     APIKeys
	Ai       AIConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	WSTimeoutSeconds   int
	WSMaxSessions      int
	// WSLogFilePath receives session-level WebSocket logs, kept out of the
	// main application log.
	WSLogFilePath string
}

type DatabaseConfig struct {
	// Connection is the Postgres DSN for the pgvector-backed chunk store.
	// When empty the discrete DB_HOST/DB_PORT/... variables are used, and
	// when those are absent too the server falls back to the in-memory
	// store.
	Connection string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
}

type CacheConfig struct {
	MaxEntries          int
	SchemaVersion       string
	QuestionTTLMinutes  int
	WeatherTTLMinutes   int
	TrailInfoTTLMinutes int
}

type SourceConfig struct {
	// Order is the filterable connector order for the retrieval stage,
	// e.g. "wikivoyage,mountain_forecast,osm_wiki".
	Order []string
	// RetryPrimary is how many extra attempts the primary source gets
	// after the fallback ladder also came up empty.
	RetryPrimary  int
	IndexedTrails []string
}

type APIKeys struct {
	GoogleGemini string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	EmbeddingDim      int
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "gemini" or "ollama"
	LLMModel          string // e.g. "gemini-1.5-pro", "llama3"
	LLMFallbackModel  string // tried once when the primary model errors
	TopK              int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"),
			WSTimeoutSeconds:   getEnvAsInt("WS_TIMEOUT_SECONDS", 30),
			WSMaxSessions:      getEnvAsInt("WS_MAX_CONNECTIONS", 10),
			WSLogFilePath:      getEnv("WS_LOG_FILE_PATH", "logs/websocket.log"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			Host:       getEnv("DB_HOST", ""),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			Name:       getEnv("DB_NAME", "trek_assistant"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
		},
		Cache: CacheConfig{
			MaxEntries:          getEnvAsInt("CACHE_MAX_ENTRIES", 100),
			SchemaVersion:       getEnv("CACHE_SCHEMA_VERSION", "1"),
			QuestionTTLMinutes:  getEnvAsInt("CACHE_TTL_MINUTES", 5),
			WeatherTTLMinutes:   getEnvAsInt("WEATHER_CACHE_TTL_MINUTES", 60),
			TrailInfoTTLMinutes: getEnvAsInt("TRAIL_INFO_CACHE_TTL_MINUTES", 24*60),
		},
		Sources: SourceConfig{
			Order:         getEnvAsList("SOURCE_ORDER", "wikivoyage,mountain_forecast,osm_wiki"),
			RetryPrimary:  getEnvAsInt("SOURCE_RETRY_PRIMARY", 1),
			IndexedTrails: getEnvAsList("INDEXED_TRAILS", "Triund,Kedarkantha,Valley of Flowers,Kalsubai,Hampta Pass"),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingDim:      getEnvAsInt("EMBEDDING_DIM", 768),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:          getEnv("LLM_MODEL", "gemini-1.5-pro"),
			LLMFallbackModel:  getEnv("LLM_FALLBACK_MODEL", "gemini-1.5-flash"),
			TopK:              getEnvAsInt("RETRIEVAL_TOP_K", 5),
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

func getEnvAsList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
