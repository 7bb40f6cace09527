package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Uploads   UploadsConfig
	LLM       LLMConfig
	Chat      ChatConfig
	Retrieval RetrievalConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

type UploadsConfig struct {
	Dir          string
	MaxSizeBytes int64
}

type LLMConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	AnthropicKey     string
	FallbackProvider string // "anthropic" or empty
	FallbackModel    string
	MaxAttempts      int
	RetryDelay       time.Duration
	CallTimeout      time.Duration
	MaxConcurrent    int
}

type ChatConfig struct {
	RateLimitPerMinute int
	MemoryTTL          time.Duration
	MemoryMaxRounds    int
}

type RetrievalConfig struct {
	TopK         int
	ChunkSize    int
	ContextLimit int
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxAttempts, err := getEnvInt("LLM_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_ATTEMPTS: %w", err)
	}

	maxConcurrent, err := getEnvInt("LLM_MAX_CONCURRENT", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_CONCURRENT: %w", err)
	}

	callTimeout, err := getEnvInt("LLM_CALL_TIMEOUT_SEC", 30)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_CALL_TIMEOUT_SEC: %w", err)
	}

	rateLimit, err := getEnvInt("CHAT_RATE_LIMIT_PER_MIN", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid CHAT_RATE_LIMIT_PER_MIN: %w", err)
	}

	memoryTTL, err := getEnvInt("CHAT_MEMORY_TTL_SEC", 1800)
	if err != nil {
		return nil, fmt.Errorf("invalid CHAT_MEMORY_TTL_SEC: %w", err)
	}

	memoryRounds, err := getEnvInt("CHAT_MEMORY_MAX_ROUNDS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid CHAT_MEMORY_MAX_ROUNDS: %w", err)
	}

	topK, err := getEnvInt("RETRIEVAL_TOP_K", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid RETRIEVAL_TOP_K: %w", err)
	}

	chunkSize, err := getEnvInt("RETRIEVAL_CHUNK_SIZE", 800)
	if err != nil {
		return nil, fmt.Errorf("invalid RETRIEVAL_CHUNK_SIZE: %w", err)
	}

	contextLimit, err := getEnvInt("RETRIEVAL_CONTEXT_LIMIT", 6000)
	if err != nil {
		return nil, fmt.Errorf("invalid RETRIEVAL_CONTEXT_LIMIT: %w", err)
	}

	maxUpload, err := getEnvInt("UPLOAD_MAX_SIZE_BYTES", 20<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_SIZE_BYTES: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Uploads: UploadsConfig{
			Dir:          getEnv("UPLOAD_DIR", "uploads"),
			MaxSizeBytes: int64(maxUpload),
		},
		LLM: LLMConfig{
			APIKey:           getEnv("LLM_API_KEY", ""),
			BaseURL:          getEnv("LLM_BASE_URL", "https://api.deepseek.com/v1"),
			Model:            getEnv("LLM_MODEL", "deepseek-chat"),
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			FallbackModel:    getEnv("LLM_FALLBACK_MODEL", "claude-3-haiku-20240307"),
			MaxAttempts:      maxAttempts,
			RetryDelay:       time.Second,
			CallTimeout:      time.Duration(callTimeout) * time.Second,
			MaxConcurrent:    maxConcurrent,
		},
		Chat: ChatConfig{
			RateLimitPerMinute: rateLimit,
			MemoryTTL:          time.Duration(memoryTTL) * time.Second,
			MemoryMaxRounds:    memoryRounds,
		},
		Retrieval: RetrievalConfig{
			TopK:         topK,
			ChunkSize:    chunkSize,
			ContextLimit: contextLimit,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, "LLM_API_KEY")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
