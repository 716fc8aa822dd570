package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is read when Load is given an empty path.
const DefaultPath = "config.yaml"

// Storage, index and LLM backends accepted by Load.
var (
	StorageBackends = []string{"memory", "postgres", "s3"}
	IndexBackends   = []string{"none", "memory", "redis"}
	LLMProviders    = []string{"openai", "anthropic"}
)

// Config holds all configuration for the rule engine.
// Values come from a YAML file with environment variable overrides.
// Secrets (passwords, keys) only come from the environment.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	Synthesis   SynthesisConfig   `yaml:"synthesis"`
	Storage     StorageConfig     `yaml:"storage"`
	Database    DatabaseConfig    `yaml:"database"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Index       IndexConfig       `yaml:"index"`
	LLM         LLMConfig         `yaml:"llm"`
	Engine      EngineConfig      `yaml:"engine"`
}

// SynthesisConfig holds request defaults for rule synthesis.
type SynthesisConfig struct {
	FiniteThreshold float64 `yaml:"finite_threshold" env:"SYNTHESIS_FINITE_THRESHOLD" env-default:"92"`
	RegexThreshold  float64 `yaml:"regex_threshold" env:"SYNTHESIS_REGEX_THRESHOLD" env-default:"96"`
	TopKUnmatched   int     `yaml:"top_k_unmatched" env:"SYNTHESIS_TOP_K_UNMATCHED" env-default:"10"`
	AutoExtend      bool    `yaml:"auto_extend" env:"SYNTHESIS_AUTO_EXTEND"`
	MinSamples      int     `yaml:"min_samples" env:"SYNTHESIS_MIN_SAMPLES" env-default:"5"`
	RegexCacheSize  int     `yaml:"regex_cache_size" env:"SYNTHESIS_REGEX_CACHE_SIZE" env-default:"512"`
}

// StorageConfig selects the rule store.
type StorageConfig struct {
	Backend string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"memory"`
}

// DatabaseConfig holds PostgreSQL connection settings for the postgres
// rule store and column sampling.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"rules"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"semantic_types"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// ObjectStoreConfig holds S3-compatible storage settings.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"localhost:9000"`
	Region    string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	Bucket    string `yaml:"bucket" env:"S3_BUCKET" env-default:"semantic-types"`
	Prefix    string `yaml:"prefix" env:"S3_PREFIX" env-default:"rules"`
	UseSSL    bool   `yaml:"use_ssl" env:"S3_USE_SSL" env-default:"false"`
	AccessKey string `yaml:"-" env:"S3_ACCESS_KEY"` // Secret - not in YAML
	SecretKey string `yaml:"-" env:"S3_SECRET_KEY"` // Secret - not in YAML
}

// IndexConfig selects the similarity index.
type IndexConfig struct {
	Backend             string      `yaml:"backend" env:"INDEX_BACKEND" env-default:"none"`
	SimilarityThreshold float64     `yaml:"similarity_threshold" env:"INDEX_SIMILARITY_THRESHOLD" env-default:"0.35"`
	KeyPrefix           string      `yaml:"key_prefix" env:"INDEX_KEY_PREFIX" env-default:"semantic_type"`
	Redis               RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// LLMConfig configures draft generation and embeddings.
type LLMConfig struct {
	Provider       string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	BaseURL        string `yaml:"base_url" env:"LLM_BASE_URL" env-default:""`
	Model          string `yaml:"model" env:"LLM_MODEL" env-default:""` // empty picks the provider default
	EmbeddingModel string `yaml:"embedding_model" env:"LLM_EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	APIKey         string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML

	// EmbeddingAPIKey falls back to APIKey when empty.
	EmbeddingAPIKey string `yaml:"-" env:"LLM_EMBEDDING_API_KEY"`
}

// EngineConfig describes where compiled plugins are written.
type EngineConfig struct {
	PluginDir string `yaml:"plugin_dir" env:"ENGINE_PLUGIN_DIR" env-default:"plugins"`
}

// Load reads configuration from path with environment variable overrides.
// A missing file is not an error: defaults and environment apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	// cleanenv re-applies env-default to zero values, so bool defaults of
	// true are seeded here instead.
	cfg := &Config{Synthesis: SynthesisConfig{AutoExtend: true}}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Index.Backend = strings.ToLower(strings.TrimSpace(c.Index.Backend))
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.EmbeddingAPIKey == "" {
		c.LLM.EmbeddingAPIKey = c.LLM.APIKey
	}
}

// Validate rejects unknown backends and out-of-range synthesis defaults.
func (c *Config) Validate() error {
	if !slices.Contains(StorageBackends, c.Storage.Backend) {
		return fmt.Errorf("unknown storage backend %q (want one of %s)", c.Storage.Backend, strings.Join(StorageBackends, ", "))
	}
	if !slices.Contains(IndexBackends, c.Index.Backend) {
		return fmt.Errorf("unknown index backend %q (want one of %s)", c.Index.Backend, strings.Join(IndexBackends, ", "))
	}
	if !slices.Contains(LLMProviders, c.LLM.Provider) {
		return fmt.Errorf("unknown llm provider %q (want one of %s)", c.LLM.Provider, strings.Join(LLMProviders, ", "))
	}
	if c.Index.Backend == "redis" && c.Index.Redis.Host == "" {
		return fmt.Errorf("index backend redis requires index.redis.host")
	}
	for name, v := range map[string]float64{
		"finite_threshold": c.Synthesis.FiniteThreshold,
		"regex_threshold":  c.Synthesis.RegexThreshold,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("synthesis.%s must be between 0 and 100, got %v", name, v)
		}
	}
	if c.Index.SimilarityThreshold < 0 || c.Index.SimilarityThreshold > 1 {
		return fmt.Errorf("index.similarity_threshold must be between 0 and 1, got %v", c.Index.SimilarityThreshold)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}
