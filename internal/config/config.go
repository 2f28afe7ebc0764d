package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort    string
	DatabaseURL string
	LogLevel    string
	LogPretty   bool

	JWTSecret string
	JWTTTL    time.Duration

	// LLMBackend selects the inference engine: "ollama", "gemini" or "none".
	LLMBackend string
	// ModelPath is a readiness sentinel: when set, generation stays disabled
	// until the file exists. No engine reads the file itself; Ollama
	// resolves ModelName from its own store.
	ModelPath    string
	ModelName    string
	OllamaURL    string
	GeminiAPIKey string

	TranslationAPIURL string
	TranslationCache  string // "sqlite" or "redis"

	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

var ErrMissingSecret = errors.New("JWT_SECRET environment variable is required")

// Load reads .env (if present), an optional config.yaml and the process
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_PORT", "8000")
	v.SetDefault("DATABASE_URL", "medichat.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "30m")
	v.SetDefault("LLM_BACKEND", "ollama")
	v.SetDefault("MODEL_PATH", "")
	v.SetDefault("MODEL_NAME", "tinyllama")
	v.SetDefault("OLLAMA_URL", "http://localhost:11434")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("TRANSLATION_API_URL", "https://api.mymemory.translated.net/get")
	v.SetDefault("TRANSLATION_CACHE", "sqlite")
	v.SetDefault("REDIS_ADDRESS", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "medichat:translation")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		HTTPPort:    v.GetString("HTTP_PORT"),
		DatabaseURL: v.GetString("DATABASE_URL"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		LogPretty:   v.GetBool("LOG_PRETTY"),

		JWTSecret: v.GetString("JWT_SECRET"),
		JWTTTL:    v.GetDuration("JWT_TTL"),

		LLMBackend:   strings.ToLower(v.GetString("LLM_BACKEND")),
		ModelPath:    v.GetString("MODEL_PATH"),
		ModelName:    v.GetString("MODEL_NAME"),
		OllamaURL:    v.GetString("OLLAMA_URL"),
		GeminiAPIKey: v.GetString("GEMINI_API_KEY"),

		TranslationAPIURL: v.GetString("TRANSLATION_API_URL"),
		TranslationCache:  strings.ToLower(v.GetString("TRANSLATION_CACHE")),

		RedisAddress:  v.GetString("REDIS_ADDRESS"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		RedisPrefix:   v.GetString("REDIS_PREFIX"),
	}

	if cfg.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.JWTTTL <= 0 {
		cfg.JWTTTL = 30 * time.Minute
	}

	switch cfg.TranslationCache {
	case "sqlite", "redis":
	default:
		return nil, fmt.Errorf("unsupported TRANSLATION_CACHE %q", cfg.TranslationCache)
	}

	return cfg, nil
}
