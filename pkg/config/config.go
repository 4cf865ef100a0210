package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for bidfit-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis cache configuration
	Redis RedisConfig `yaml:"redis"`

	// Text-generation provider endpoints
	AI AIConfig `yaml:"ai"`

	// Scoring weights and limits
	Scoring ScoringConfig `yaml:"scoring"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"bidfit"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"bidfit_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis connection configuration for the score cache.
// An empty host disables caching; scoring continues uncached.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// AIConfig holds the text-generation provider endpoints. The primary
// provider is any OpenAI-compatible endpoint; Anthropic is the optional
// secondary used when the primary is down.
type AIConfig struct {
	LLMBaseURL      string `yaml:"llm_base_url" env:"AI_LLM_BASE_URL" env-default:"https://api.openai.com/v1"`
	LLMModel        string `yaml:"llm_model" env:"AI_LLM_MODEL" env-default:"gpt-4o"`
	LLMAPIKey       string `yaml:"-" env:"AI_LLM_API_KEY"` // Secret - not in YAML
	AnthropicModel  string `yaml:"anthropic_model" env:"AI_ANTHROPIC_MODEL" env-default:""`
	AnthropicAPIKey string `yaml:"-" env:"AI_ANTHROPIC_API_KEY"` // Secret - not in YAML

	// GenerationTimeoutSeconds bounds each generation call.
	GenerationTimeoutSeconds int `yaml:"generation_timeout_seconds" env:"AI_GENERATION_TIMEOUT_SECONDS" env-default:"60"`
}

// HasAnthropicFallback reports whether a secondary Anthropic provider is
// configured.
func (c *AIConfig) HasAnthropicFallback() bool {
	return c.AnthropicModel != "" && c.AnthropicAPIKey != ""
}

// ScoringConfig holds scoring weights and operational limits. The blend
// ratio and category weights are deployment-configurable rather than
// hardcoded platform constants.
type ScoringConfig struct {
	// HybridGenerativeWeight is the generative share of a hybrid blend.
	// The calculation share is 1 - HybridGenerativeWeight.
	HybridGenerativeWeight float64 `yaml:"hybrid_generative_weight" env:"SCORING_HYBRID_GENERATIVE_WEIGHT" env-default:"0.7"`

	// Category weights for the detailed scoring stage. Must sum to 100.
	PastPerformanceWeight float64 `yaml:"past_performance_weight" env:"SCORING_PAST_PERFORMANCE_WEIGHT" env-default:"35"`
	TechnicalWeight       float64 `yaml:"technical_weight" env:"SCORING_TECHNICAL_WEIGHT" env-default:"35"`
	StrategicFitWeight    float64 `yaml:"strategic_fit_weight" env:"SCORING_STRATEGIC_FIT_WEIGHT" env-default:"15"`
	CredibilityWeight     float64 `yaml:"credibility_weight" env:"SCORING_CREDIBILITY_WEIGHT" env-default:"15"`

	// CacheTTLSeconds is the score cache entry lifetime.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" env:"SCORING_CACHE_TTL_SECONDS" env-default:"86400"`

	// MaxBatchSize is the batch scoring request ceiling.
	MaxBatchSize int `yaml:"max_batch_size" env:"SCORING_MAX_BATCH_SIZE" env-default:"50"`

	// MaxConcurrent bounds parallel scoring tasks within a batch.
	MaxConcurrent int `yaml:"max_concurrent" env:"SCORING_MAX_CONCURRENT" env-default:"8"`
}

// Validate checks scoring weights for consistency.
func (c *ScoringConfig) Validate() error {
	if c.HybridGenerativeWeight < 0 || c.HybridGenerativeWeight > 1 {
		return fmt.Errorf("hybrid_generative_weight must be in [0,1], got %g", c.HybridGenerativeWeight)
	}
	sum := c.PastPerformanceWeight + c.TechnicalWeight + c.StrategicFitWeight + c.CredibilityWeight
	if sum != 100 {
		return fmt.Errorf("category weights must sum to 100, got %g", sum)
	}
	if c.MaxBatchSize < 1 {
		return fmt.Errorf("max_batch_size must be positive, got %d", c.MaxBatchSize)
	}
	return nil
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on
// the returned Config. Secrets (PGPASSWORD, AI_LLM_API_KEY, ...) must
// come from environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.Scoring.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring configuration: %w", err)
	}

	return cfg, nil
}
