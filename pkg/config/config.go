// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Indexer, Search, Normalizer, Dataset, Redis, Postgres,
// Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Indexer    IndexerConfig    `yaml:"indexer"`
	Search     SearchConfig     `yaml:"search"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Dataset    DatasetConfig    `yaml:"dataset"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters. The clean-record
// store only uses PostgreSQL when Enabled is set.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings for analytics events.
type KafkaConfig struct {
	Enabled bool        `yaml:"enabled"`
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	SearchEvents string `yaml:"searchEvents"`
	IndexEvents  string `yaml:"indexEvents"`
}

// RedisConfig holds Redis connection and result-caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexerConfig controls where the index lives and which backend builds it.
type IndexerConfig struct {
	DataDir string `yaml:"dataDir"`
	// Backend is either "segment" or "bleve".
	Backend string `yaml:"backend"`
	// KeepGenerations is the number of superseded generations kept on disk
	// after a successful build.
	KeepGenerations int `yaml:"keepGenerations"`
}

// SearchConfig controls candidate re-ranking.
type SearchConfig struct {
	DefaultTopK int `yaml:"defaultTopK"`
	MaxTopK     int `yaml:"maxTopK"`
	// Weighting is "tf" or "tfidf".
	Weighting string `yaml:"weighting"`
	// IDFScope is "candidates" or "corpus".
	IDFScope string `yaml:"idfScope"`
}

// NormalizerConfig selects the stemmer and extra stopwords.
type NormalizerConfig struct {
	// Stemmer is one of "indonesian", "english", "suffix" or "none".
	Stemmer        string   `yaml:"stemmer"`
	ExtraStopwords []string `yaml:"extraStopwords"`
}

// DatasetConfig locates source CSV files and the normalized-record cache.
type DatasetConfig struct {
	Dir      string `yaml:"dir"`
	CleanDir string `yaml:"cleanDir"`
	// Watch rebuilds the index when files under Dir change (searcher only).
	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watchDebounce"`
	TitleColumns  []string      `yaml:"titleColumns"`
	ContentColumn []string      `yaml:"contentColumns"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging for the search pipeline.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with defaults for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "corpussearch",
			User:            "corpussearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				SearchEvents: "search-events",
				IndexEvents:  "index-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Indexer: IndexerConfig{
			DataDir:         "indexdir",
			Backend:         "segment",
			KeepGenerations: 1,
		},
		Search: SearchConfig{
			DefaultTopK: 5,
			MaxTopK:     100,
			Weighting:   "tfidf",
			IDFScope:    "candidates",
		},
		Normalizer: NormalizerConfig{
			Stemmer: "indonesian",
		},
		Dataset: DatasetConfig{
			Dir:           "datasets",
			CleanDir:      "datasets_clean",
			WatchDebounce: 2 * time.Second,
			TitleColumns:  []string{"title", "judul", "headline"},
			ContentColumn: []string{
				"text", "content", "abstract", "abstrak", "isi", "body", "article",
				"judul_dan_isi", "clean_text", "dokumen", "teks",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects option values the rest of the system cannot interpret.
func (c *Config) Validate() error {
	switch c.Indexer.Backend {
	case "segment", "bleve":
	default:
		return fmt.Errorf("invalid indexer.backend %q (want segment or bleve)", c.Indexer.Backend)
	}
	switch c.Search.Weighting {
	case "tf", "tfidf":
	default:
		return fmt.Errorf("invalid search.weighting %q (want tf or tfidf)", c.Search.Weighting)
	}
	switch c.Search.IDFScope {
	case "candidates", "corpus":
	default:
		return fmt.Errorf("invalid search.idfScope %q (want candidates or corpus)", c.Search.IDFScope)
	}
	switch c.Normalizer.Stemmer {
	case "indonesian", "english", "suffix", "none":
	default:
		return fmt.Errorf("invalid normalizer.stemmer %q", c.Normalizer.Stemmer)
	}
	if c.Search.DefaultTopK < 1 {
		return fmt.Errorf("search.defaultTopK must be at least 1, got %d", c.Search.DefaultTopK)
	}
	if c.Search.MaxTopK < c.Search.DefaultTopK {
		return fmt.Errorf("search.maxTopK (%d) must not be below defaultTopK (%d)", c.Search.MaxTopK, c.Search.DefaultTopK)
	}
	if c.Indexer.DataDir == "" {
		return fmt.Errorf("indexer.dataDir is required")
	}
	return nil
}

// applyEnvOverrides reads IR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("IR_INDEXER_DATA_DIR"); v != "" {
		cfg.Indexer.DataDir = v
	}
	if v := os.Getenv("IR_INDEXER_BACKEND"); v != "" {
		cfg.Indexer.Backend = v
	}
	if v := os.Getenv("IR_SEARCH_WEIGHTING"); v != "" {
		cfg.Search.Weighting = v
	}
	if v := os.Getenv("IR_SEARCH_IDF_SCOPE"); v != "" {
		cfg.Search.IDFScope = v
	}
	if v := os.Getenv("IR_SEARCH_DEFAULT_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Search.DefaultTopK = k
		}
	}
	if v := os.Getenv("IR_NORMALIZER_STEMMER"); v != "" {
		cfg.Normalizer.Stemmer = v
	}
	if v := os.Getenv("IR_DATASET_DIR"); v != "" {
		cfg.Dataset.Dir = v
	}
	if v := os.Getenv("IR_DATASET_CLEAN_DIR"); v != "" {
		cfg.Dataset.CleanDir = v
	}
	if v := os.Getenv("IR_POSTGRES_ENABLED"); v != "" {
		cfg.Postgres.Enabled = parseBool(v, cfg.Postgres.Enabled)
	}
	if v := os.Getenv("IR_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("IR_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("IR_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("IR_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("IR_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("IR_KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = parseBool(v, cfg.Kafka.Enabled)
	}
	if v := os.Getenv("IR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("IR_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v, cfg.Redis.Enabled)
	}
	if v := os.Getenv("IR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("IR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("IR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("IR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
