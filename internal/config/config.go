// Package config provides environment configuration for the gateway.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// JWT settings
	JWTSecret string

	// Provider settings, in fallback order
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	GroqAPIKey      string
	GroqModel       string
	GroqBaseURL     string

	// Dispatch settings
	PrimaryRetries  int
	MaxTokens       int
	DispatchTimeout time.Duration

	// Rate limiting
	IPRateLimit        int
	RateLimitWindow    time.Duration
	RateLimitBase      int
	RateLimitPremiumX  int

	// Response cache
	CacheTTL      time.Duration
	CacheCapacity int

	// Input limits
	MaxTurns      int
	MaxTurnChars  int
	MaxImageBytes int
	MaxPromptLen  int

	// Retrieval augmentation
	DataDir          string
	EmbeddingAPIKey  string
	EmbeddingBaseURL string
	EmbeddingModel   string

	// NATS settings (telemetry + history persistence)
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// Providers
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-20241022"),
		GroqAPIKey:      getEnv("GROQ_API_KEY", ""),
		GroqModel:       getEnv("GROQ_MODEL", "llama-3.1-8b-instant"),
		GroqBaseURL:     getEnv("GROQ_BASE_URL", ""),

		// Dispatch
		PrimaryRetries:  getIntEnv("PRIMARY_RETRIES", 2),
		MaxTokens:       getIntEnv("MAX_TOKENS", 2048),
		DispatchTimeout: getDurationEnv("DISPATCH_TIMEOUT", 30*time.Second),

		// Rate limiting
		IPRateLimit:       getIntEnv("IP_RATE_LIMIT", 120),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitBase:     getIntEnv("RATE_LIMIT_BASE", 10),
		RateLimitPremiumX: getIntEnv("RATE_LIMIT_PREMIUM_MULTIPLIER", 6),

		// Cache
		CacheTTL:      getDurationEnv("CACHE_TTL", 10*time.Minute),
		CacheCapacity: getIntEnv("CACHE_CAPACITY", 100),

		// Input limits
		MaxTurns:      getIntEnv("MAX_TURNS", 20),
		MaxTurnChars:  getIntEnv("MAX_TURN_CHARS", 4000),
		MaxImageBytes: getIntEnv("MAX_IMAGE_BYTES", 4<<20),
		MaxPromptLen:  getIntEnv("MAX_PROMPT_LEN", 2000),

		// Retrieval augmentation
		DataDir:          getEnv("DATA_DIR", "./data"),
		EmbeddingAPIKey:  getEnv("EMBEDDING_API_KEY", os.Getenv("OPENAI_API_KEY")),
		EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
