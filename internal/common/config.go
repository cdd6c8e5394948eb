package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Gemini     ProviderConfig
	OpenRouter ProviderConfig
	Pipeline   PipelineConfig
	Validation ValidationConfig
}

// ProviderConfig holds configuration for one extraction provider chain.
type ProviderConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	MaxAttempts    int
	AttemptTimeout time.Duration
	BackoffBase    time.Duration
	BackoffCap     time.Duration
}

// PipelineConfig holds orchestration-level configuration.
type PipelineConfig struct {
	Workers         int
	QueueSize       int
	DocumentTimeout time.Duration
	PromptDir       string
	DedupDBPath     string // empty = in-memory dedup index
	MaxImageDim     int
	RawExcerptLen   int
}

// ValidationConfig holds the tolerance and confidence-weight knobs.
// These are empirically chosen; keep them overridable per environment.
type ValidationConfig struct {
	CommissionTolerance string
	TotalTolerance      string
	LineItemTolerance   string

	CompletenessWeight float64
	ConsistencyWeight  float64
	ProviderWeight     float64

	DefaultProviderConfidence float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Gemini: ProviderConfig{
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			BaseURL:        getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Model:          getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Temperature:    getEnvAsFloat64("GEMINI_TEMPERATURE", 0.1),
			MaxAttempts:    getEnvAsInt("GEMINI_MAX_ATTEMPTS", 3),
			AttemptTimeout: getEnvAsDuration("GEMINI_TIMEOUT", 30*time.Second),
			BackoffBase:    getEnvAsDuration("GEMINI_BACKOFF_BASE", 1*time.Second),
			BackoffCap:     getEnvAsDuration("GEMINI_BACKOFF_CAP", 8*time.Second),
		},
		OpenRouter: ProviderConfig{
			APIKey:         getEnv("OPENROUTER_API_KEY", ""),
			BaseURL:        getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:          getEnv("OPENROUTER_MODEL", "anthropic/claude-3.5-sonnet"),
			Temperature:    getEnvAsFloat64("OPENROUTER_TEMPERATURE", 0.1),
			MaxAttempts:    getEnvAsInt("OPENROUTER_MAX_ATTEMPTS", 2),
			AttemptTimeout: getEnvAsDuration("OPENROUTER_TIMEOUT", 30*time.Second),
			BackoffBase:    getEnvAsDuration("OPENROUTER_BACKOFF_BASE", 1*time.Second),
			BackoffCap:     getEnvAsDuration("OPENROUTER_BACKOFF_CAP", 8*time.Second),
		},
		Pipeline: PipelineConfig{
			Workers:         getEnvAsInt("PIPELINE_WORKERS", 4),
			QueueSize:       getEnvAsInt("PIPELINE_QUEUE_SIZE", 256),
			DocumentTimeout: getEnvAsDuration("PIPELINE_DOCUMENT_TIMEOUT", 3*time.Minute),
			PromptDir:       getEnv("PROMPT_DIR", "./prompts"),
			DedupDBPath:     getEnv("DEDUP_DB_PATH", ""),
			MaxImageDim:     getEnvAsInt("MAX_IMAGE_DIM", 4096),
			RawExcerptLen:   getEnvAsInt("RAW_EXCERPT_LEN", 500),
		},
		Validation: ValidationConfig{
			CommissionTolerance:       getEnv("COMMISSION_TOLERANCE", "0.02"),
			TotalTolerance:            getEnv("TOTAL_TOLERANCE", "0.05"),
			LineItemTolerance:         getEnv("LINE_ITEM_TOLERANCE", "0.10"),
			CompletenessWeight:        getEnvAsFloat64("CONFIDENCE_COMPLETENESS_WEIGHT", 0.40),
			ConsistencyWeight:         getEnvAsFloat64("CONFIDENCE_CONSISTENCY_WEIGHT", 0.30),
			ProviderWeight:            getEnvAsFloat64("CONFIDENCE_PROVIDER_WEIGHT", 0.30),
			DefaultProviderConfidence: getEnvAsFloat64("DEFAULT_PROVIDER_CONFIDENCE", 0.80),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" && c.OpenRouter.APIKey == "" {
		return NewAppError(CodeConfiguration, "at least one of GEMINI_API_KEY or OPENROUTER_API_KEY is required", ErrConfiguration)
	}
	if c.Pipeline.Workers < 1 {
		return NewAppError(CodeConfiguration, "PIPELINE_WORKERS must be >= 1", ErrConfiguration)
	}
	if c.Pipeline.PromptDir == "" {
		return NewAppError(CodeConfiguration, "PROMPT_DIR is required", ErrConfiguration)
	}
	w := c.Validation.CompletenessWeight + c.Validation.ConsistencyWeight + c.Validation.ProviderWeight
	if w < 0.999 || w > 1.001 {
		return NewAppError(CodeConfiguration, "confidence weights must sum to 1.0", ErrConfiguration)
	}
	return nil
}
