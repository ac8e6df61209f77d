// Package config loads memtwin configuration from environment variables with
// an optional YAML file overlay.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/memtwin/memtwin/internal/scoring"
)

// Provider identifies an LLM or embedding backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB metadata store
	SurrealDBURL       string `yaml:"surrealdb_url"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace"`
	SurrealDBDatabase  string `yaml:"surrealdb_database"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level"` // "root" or "database"

	// Vector index persistence directory (chromem)
	VectorIndexDir string `yaml:"vector_index_dir"`

	// Embeddings
	EmbedProvider  Provider `yaml:"embed_provider"`
	EmbedModel     string   `yaml:"embed_model"`
	EmbedDimension int      `yaml:"embed_dimension"`

	// Generative model (structuring + synthesis)
	LLMProvider Provider `yaml:"llm_provider"`
	LLMModel    string   `yaml:"llm_model"`

	// Provider credentials / endpoints
	OllamaHost      string `yaml:"ollama_host"`
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
	AWSRegion       string `yaml:"aws_region"`

	// Scoring
	AccessBoost  float64 `yaml:"access_boost"`
	DecayEnabled bool    `yaml:"decay_enabled"`
	DecayRate    float64 `yaml:"decay_rate"` // per day, only if DecayEnabled

	// Consolidation
	MinClusterSize       int           `yaml:"min_cluster_size"`
	MaxClusterSize       int           `yaml:"max_cluster_size"`
	ClusterEps           float64       `yaml:"cluster_eps"`
	MaxEpisodesPerRun    int           `yaml:"max_episodes_per_run"`
	ConsolidationTimeout time.Duration `yaml:"consolidation_timeout"`

	// Trigger thresholds
	AccessThreshold         int `yaml:"access_threshold"`
	UnconsolidatedThreshold int `yaml:"unconsolidated_threshold"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`

	// Project detection
	DefaultProject string `yaml:"default_project"`
}

// Load reads configuration from environment variables. If MEMTWIN_CONFIG
// points to a YAML file (or ./memtwin.yaml exists), its values are applied
// first and environment variables override them.
func Load() Config {
	cfg := Config{
		SurrealDBURL:       "ws://localhost:8000/rpc",
		SurrealDBNamespace: "memtwin",
		SurrealDBDatabase:  "memory",
		SurrealDBUser:      "root",
		SurrealDBPass:      "root",
		SurrealDBAuthLevel: "root",

		VectorIndexDir: "./data/index",

		EmbedProvider:  ProviderOllama,
		EmbedModel:     "all-minilm:l6-v2",
		EmbedDimension: 384,

		LLMProvider: ProviderOllama,
		LLMModel:    "llama3.2",

		OllamaHost: "http://localhost:11434",
		AWSRegion:  "us-east-1",

		AccessBoost:  scoring.DefaultAccessBoost,
		DecayEnabled: false,
		DecayRate:    scoring.DefaultDecayRate,

		MinClusterSize:       3,
		MaxClusterSize:       20,
		ClusterEps:           0.5,
		MaxEpisodesPerRun:    200,
		ConsolidationTimeout: 120 * time.Second,

		AccessThreshold:         10,
		UnconsolidatedThreshold: 20,

		LogFile:  "/tmp/memtwin.log",
		LogLevel: slog.LevelInfo,

		// Empty by default so project auto-detection (git origin, cwd)
		// takes effect; set to pin every operation to one project.
		DefaultProject: "",
	}

	if path := configFilePath(); path != "" {
		if err := cfg.applyFile(path); err != nil {
			slog.Warn("failed to load config file, using defaults", "file", path, "error", err)
		}
	}

	applyEnv(&cfg)
	return cfg
}

func configFilePath() string {
	if p := os.Getenv("MEMTWIN_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("memtwin.yaml"); err == nil {
		return "memtwin.yaml"
	}
	return ""
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	setStr(&cfg.SurrealDBURL, "SURREALDB_URL")
	setStr(&cfg.SurrealDBNamespace, "SURREALDB_NAMESPACE")
	setStr(&cfg.SurrealDBDatabase, "SURREALDB_DATABASE")
	setStr(&cfg.SurrealDBUser, "SURREALDB_USER")
	setStr(&cfg.SurrealDBPass, "SURREALDB_PASS")
	setStr(&cfg.SurrealDBAuthLevel, "SURREALDB_AUTH_LEVEL")

	setStr(&cfg.VectorIndexDir, "MEMTWIN_INDEX_DIR")

	setProvider(&cfg.EmbedProvider, "MEMTWIN_EMBED_PROVIDER")
	setStr(&cfg.EmbedModel, "MEMTWIN_EMBED_MODEL")
	setInt(&cfg.EmbedDimension, "MEMTWIN_EMBED_DIMENSION")

	setProvider(&cfg.LLMProvider, "MEMTWIN_LLM_PROVIDER")
	setStr(&cfg.LLMModel, "MEMTWIN_LLM_MODEL")

	setStr(&cfg.OllamaHost, "OLLAMA_HOST")
	setStr(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setStr(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setStr(&cfg.AWSRegion, "AWS_REGION")

	setFloat(&cfg.AccessBoost, "MEMTWIN_ACCESS_BOOST")
	setBool(&cfg.DecayEnabled, "MEMTWIN_DECAY_ENABLED")
	setFloat(&cfg.DecayRate, "MEMTWIN_DECAY_RATE")

	setInt(&cfg.MinClusterSize, "MEMTWIN_MIN_CLUSTER_SIZE")
	setInt(&cfg.MaxClusterSize, "MEMTWIN_MAX_CLUSTER_SIZE")
	setFloat(&cfg.ClusterEps, "MEMTWIN_CLUSTER_EPS")
	setInt(&cfg.MaxEpisodesPerRun, "MEMTWIN_MAX_EPISODES_PER_RUN")
	setDuration(&cfg.ConsolidationTimeout, "MEMTWIN_CONSOLIDATION_TIMEOUT")

	setInt(&cfg.AccessThreshold, "MEMTWIN_ACCESS_THRESHOLD")
	setInt(&cfg.UnconsolidatedThreshold, "MEMTWIN_EPISODE_THRESHOLD")

	setStr(&cfg.LogFile, "MEMTWIN_LOG_FILE")
	if v := os.Getenv("MEMTWIN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}

	setStr(&cfg.DefaultProject, "MEMTWIN_DEFAULT_PROJECT")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setProvider(dst *Provider, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = Provider(strings.ToLower(v))
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
