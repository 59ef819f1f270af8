package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	AllowedOrigin string
	LogLevel      string
	LogFormat     string
	// LLM
	LLMProvider     string
	OpenAIAPIKey    string
	Model           string
	AnthropicAPIKey string
	AnthropicModel  string
	LLMTimeout      time.Duration
	// Optional prompt spec override; empty uses the embedded prompts
	PromptsFile string
	// Financial Modeling Prep
	FMPAPIKey    string
	FMPBaseURL   string
	FMPRateLimit int
	FMPTimeout   time.Duration
	// Provider cache
	CacheBackend  string
	CacheTTL      time.Duration
	CacheEmptyTTL time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string
	// Number of companies summarized in parallel per query
	SummaryConcurrency int
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Port:               getEnvDefault("PORT", "8080"),
		AllowedOrigin:      getEnvDefault("ALLOWED_ORIGIN", "http://localhost:3000"),
		LogLevel:           getEnvDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvDefault("LOG_FORMAT", "console"),
		LLMProvider:        strings.ToLower(getEnvDefault("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		Model:              getEnvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:     getEnvDefault("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		LLMTimeout:         getEnvDurationDefault("LLM_TIMEOUT", 30*time.Second),
		PromptsFile:        os.Getenv("PROMPTS_FILE"),
		FMPAPIKey:          os.Getenv("FMP_API_KEY"),
		FMPBaseURL:         getEnvDefault("FMP_BASE_URL", "https://financialmodelingprep.com"),
		FMPRateLimit:       getEnvIntDefault("FMP_RATE_LIMIT", 5),
		FMPTimeout:         getEnvDurationDefault("FMP_TIMEOUT", 20*time.Second),
		CacheBackend:       strings.ToLower(getEnvDefault("CACHE_BACKEND", "memory")),
		CacheTTL:           getEnvDurationDefault("CACHE_TTL", 24*time.Hour),
		CacheEmptyTTL:      getEnvDurationDefault("CACHE_EMPTY_TTL", time.Hour),
		RedisAddr:          getEnvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvIntDefault("REDIS_DB", 0),
		DatabaseURL:        os.Getenv("DB_URL"),
		SummaryConcurrency: getEnvIntDefault("SUMMARY_CONCURRENCY", 1),
	}
	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Println("warning: ANTHROPIC_API_KEY is not set; LLM calls will fail until provided")
		}
	default:
		if cfg.OpenAIAPIKey == "" {
			log.Println("warning: OPENAI_API_KEY is not set; LLM calls will fail until provided")
		}
	}
	if cfg.FMPAPIKey == "" {
		log.Println("warning: FMP_API_KEY is not set; financial data lookups will fail until provided")
	}
	if cfg.SummaryConcurrency < 1 {
		cfg.SummaryConcurrency = 1
	}
	return cfg
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
