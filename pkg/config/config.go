package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Graph     GraphConfig     `mapstructure:"graph"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Reasoning ReasoningConfig `mapstructure:"reasoning"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Context   ContextConfig   `mapstructure:"context"`
	Merge     MergeConfig     `mapstructure:"merge"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Index     IndexConfig     `mapstructure:"index"`
	Breaker   BreakerConfig   `mapstructure:"circuit_breaker"`
	Alert     AlertConfig     `mapstructure:"alert"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// GraphConfig holds knowledge graph store configuration.
type GraphConfig struct {
	Driver   string `mapstructure:"driver"` // neo4j, memory
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // openai
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
}

// ReasoningConfig holds configuration for the external reasoning service
// used for entity extraction and grouping decisions.
type ReasoningConfig struct {
	Provider    string  `mapstructure:"provider"` // openai
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	MaxRetries  int     `mapstructure:"max_retries"`
}

// PipelineConfig holds batch enrichment configuration.
type PipelineConfig struct {
	// Workers bounds concurrent provider calls within a batch.
	Workers int `mapstructure:"workers"`
	// CallTimeoutSeconds bounds each individual provider call.
	CallTimeoutSeconds int `mapstructure:"call_timeout_seconds"`
	// FallbackAssignThreshold is the strict vector-only similarity above
	// which the degraded assignment path joins an existing cluster.
	FallbackAssignThreshold float64 `mapstructure:"fallback_assign_threshold"`
}

// CallTimeout returns the per-provider-call timeout as a duration.
func (p PipelineConfig) CallTimeout() time.Duration {
	return time.Duration(p.CallTimeoutSeconds) * time.Second
}

// ContextConfig holds context retrieval windows and caps.
type ContextConfig struct {
	TemporalWindowDays int `mapstructure:"temporal_window_days"`
	TemporalLimit      int `mapstructure:"temporal_limit"`
	VectorWindowDays   int `mapstructure:"vector_window_days"`
	VectorLimit        int `mapstructure:"vector_limit"`
}

// MergeConfig holds merge advisory configuration.
type MergeConfig struct {
	// SuggestThreshold is the mean-embedding similarity at or above which a
	// same-window cluster pair is suggested for review.
	SuggestThreshold float64 `mapstructure:"suggest_threshold"`
}

// ResolverConfig holds entity resolution configuration.
type ResolverConfig struct {
	// FuzzyThreshold is the minimum name similarity for the fuzzy matcher
	// to adopt an existing entity instead of creating a new one.
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`
}

// IndexConfig holds vector index configuration.
type IndexConfig struct {
	Backend string `mapstructure:"backend"` // memory, badger
	Path    string `mapstructure:"path"`
}

// BreakerConfig holds circuit breaker configuration for provider calls.
type BreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	IntervalSeconds  int     `mapstructure:"interval_seconds"`
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// AlertConfig holds configuration for operator alerting.
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CatalogConfig points at the tag/priority vocabulary file.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values. The similarity thresholds
// below are documented reference values, not tuned constants.
func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("graph.driver", "memory")
	viper.SetDefault("graph.uri", "bolt://localhost:7687")
	viper.SetDefault("graph.username", "neo4j")
	viper.SetDefault("graph.database", "neo4j")

	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dimensions", 768)

	viper.SetDefault("reasoning.provider", "openai")
	viper.SetDefault("reasoning.model", "gpt-4o-mini")
	viper.SetDefault("reasoning.temperature", 0.2)
	viper.SetDefault("reasoning.max_tokens", 2048)
	viper.SetDefault("reasoning.max_retries", 2)

	viper.SetDefault("pipeline.workers", 4)
	viper.SetDefault("pipeline.call_timeout_seconds", 30)
	viper.SetDefault("pipeline.fallback_assign_threshold", 0.92)

	viper.SetDefault("context.temporal_window_days", 7)
	viper.SetDefault("context.temporal_limit", 5)
	viper.SetDefault("context.vector_window_days", 30)
	viper.SetDefault("context.vector_limit", 8)

	viper.SetDefault("merge.suggest_threshold", 0.75)
	viper.SetDefault("resolver.fuzzy_threshold", 0.9)

	viper.SetDefault("index.backend", "memory")
	viper.SetDefault("index.path", "./silvanews_index")

	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval_seconds", 60)
	viper.SetDefault("circuit_breaker.timeout_seconds", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	viper.SetDefault("catalog.path", "./catalog.yaml")
}

// overrideWithEnv overrides secrets with environment variables when present.
func overrideWithEnv(config *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = key
		}
		if config.Reasoning.APIKey == "" {
			config.Reasoning.APIKey = key
		}
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" && config.Graph.Password == "" {
		config.Graph.Password = pass
	}
}
