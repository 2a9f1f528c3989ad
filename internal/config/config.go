package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App    AppConfig
	Db     DatabaseConfig
	Ai     AIConfig
	Chat   ChatConfig
	Vector VectorConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	RedisURL           string
	NatsURL            string
	TempDir            string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider       string // "ollama" or "gemini"
	LLMModel          string
	OllamaBaseURL     string
	GeminiApiKey      string
	EmbeddingProvider string // "gemini" or "ollama"
	EmbeddingModel    string
	SpeechToTextURL   string
	TextToSpeechURL   string
	ImageGenURL       string
	ImageCaptionURL   string
}

type ChatConfig struct {
	AssistantUrn      string
	AssistantName     string
	ContextTTLSeconds int // 0 means no expiry
}

type VectorConfig struct {
	BaseDir      string
	ChunkSize    int
	ChunkOverlap int
	TopK         int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "talkback.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			RedisURL:           getEnv("REDIS_URL", ""),
			NatsURL:            getEnv("NATS_URL", ""),
			TempDir:            getEnv("TEMP_DIR", "temp"),
		},
		Db: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			GeminiApiKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			SpeechToTextURL:   getEnv("SPEECH_TO_TEXT_URL", "http://localhost:9000"),
			TextToSpeechURL:   getEnv("TEXT_TO_SPEECH_URL", "http://localhost:9100"),
			ImageGenURL:       getEnv("IMAGE_GEN_URL", "http://localhost:9200"),
			ImageCaptionURL:   getEnv("IMAGE_CAPTION_URL", "http://localhost:9300"),
		},
		Chat: ChatConfig{
			AssistantUrn:      getEnv("AI_USER_URN", "assistant"),
			AssistantName:     getEnv("AI_USER_NAME", "Talkback"),
			ContextTTLSeconds: getEnvAsInt("CONTEXT_TTL_SECONDS", 0),
		},
		Vector: VectorConfig{
			BaseDir:      getEnv("VECTOR_STORE_DIR", "vector_store"),
			ChunkSize:    getEnvAsInt("RAG_CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvAsInt("RAG_CHUNK_OVERLAP", 200),
			TopK:         getEnvAsInt("RAG_TOP_K", 6),
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
