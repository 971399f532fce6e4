// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for the
// vocabulary pipeline and each optional sink (Redis, Postgres, SQLite, Kafka).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Worker modes for the parallel runner.
const (
	WorkerModeInProcess  = "inprocess"
	WorkerModeSubprocess = "subprocess"
)

// Config is the top-level application configuration.
type Config struct {
	Vocab    VocabConfig    `yaml:"vocab"`
	Sinks    SinksConfig    `yaml:"sinks"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// VocabConfig controls how input files are read and how the vocabulary
// index is built.
type VocabConfig struct {
	DataDir       string        `yaml:"dataDir"`
	Lines         int           `yaml:"lines"`
	Parallel      bool          `yaml:"parallel"`
	MaxWorkers    int           `yaml:"maxWorkers"`
	WorkerMode    string        `yaml:"workerMode"`
	NWords        int           `yaml:"nWords"`
	IndexName     string        `yaml:"indexName"`
	ResultTimeout time.Duration `yaml:"resultTimeout"`
	ProgressEvery int           `yaml:"progressEvery"`
	Stopwords     []string      `yaml:"stopwords"`
	ReportTop     int           `yaml:"reportTop"`
}

// Workers returns the worker pool size for a run over nfiles files. A
// parallel run without an explicit size uses one worker per file.
func (v VocabConfig) Workers(nfiles int) int {
	if !v.Parallel {
		return 1
	}
	if v.MaxWorkers > 0 {
		return v.MaxWorkers
	}
	return nfiles
}

// SinksConfig selects where the built index is published besides the
// data directory, and how hard to try.
type SinksConfig struct {
	Redis    bool          `yaml:"redis"`
	Postgres bool          `yaml:"postgres"`
	SQLite   bool          `yaml:"sqlite"`
	Kafka    bool          `yaml:"kafka"`
	Timeout  time.Duration `yaml:"timeout"`
	Attempts int           `yaml:"attempts"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
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

// SQLiteConfig holds the path of a local SQLite database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexBuilt string `yaml:"indexBuilt"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"poolSize"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus scrape server and the optional
// Pushgateway push at the end of a run.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	PushURL string `yaml:"pushUrl"`
	Job     string `yaml:"job"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
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

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Vocab.Lines < 0 {
		return fmt.Errorf("vocab.lines must not be negative, got %d", c.Vocab.Lines)
	}
	if c.Vocab.NWords < 0 {
		return fmt.Errorf("vocab.nWords must not be negative, got %d", c.Vocab.NWords)
	}
	if c.Vocab.ResultTimeout < 0 {
		return fmt.Errorf("vocab.resultTimeout must not be negative, got %v", c.Vocab.ResultTimeout)
	}
	switch c.Vocab.WorkerMode {
	case WorkerModeInProcess, WorkerModeSubprocess:
	default:
		return fmt.Errorf("vocab.workerMode must be %q or %q, got %q",
			WorkerModeInProcess, WorkerModeSubprocess, c.Vocab.WorkerMode)
	}
	if c.Vocab.IndexName == "" {
		return fmt.Errorf("vocab.indexName must not be empty")
	}
	return nil
}

// defaultConfig reads every line, keeps 20000 words and saves "index".
func defaultConfig() *Config {
	return &Config{
		Vocab: VocabConfig{
			DataDir:       ".",
			WorkerMode:    WorkerModeInProcess,
			NWords:        20000,
			IndexName:     "index",
			ResultTimeout: 10000 * time.Second,
			ProgressEvery: 10000,
			ReportTop:     200,
		},
		Sinks: SinksConfig{
			Timeout:  30 * time.Second,
			Attempts: 3,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "vocab",
			User:            "vocab",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		SQLite: SQLiteConfig{
			Path: "vocab.db",
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				IndexBuilt: "vocab.index-built",
			},
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  4,
			KeyPrefix: "vocab:",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Job:  "vocab",
		},
	}
}

// applyEnvOverrides reads VOCAB_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VOCAB_DATADIR"); v != "" {
		cfg.Vocab.DataDir = v
	}
	if v := os.Getenv("VOCAB_LINES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vocab.Lines = n
		}
	}
	if v := os.Getenv("VOCAB_PARALLEL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Vocab.Parallel = b
		}
	}
	if v := os.Getenv("VOCAB_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vocab.MaxWorkers = n
		}
	}
	if v := os.Getenv("VOCAB_WORKER_MODE"); v != "" {
		cfg.Vocab.WorkerMode = v
	}
	if v := os.Getenv("VOCAB_NWORDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vocab.NWords = n
		}
	}
	if v := os.Getenv("VOCAB_RESULT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Vocab.ResultTimeout = d
		}
	}
	if v := os.Getenv("VOCAB_STOPWORDS"); v != "" {
		cfg.Vocab.Stopwords = strings.Split(v, ",")
	}
	if v := os.Getenv("VOCAB_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("VOCAB_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("VOCAB_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("VOCAB_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("VOCAB_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("VOCAB_SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("VOCAB_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("VOCAB_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("VOCAB_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("VOCAB_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VOCAB_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("VOCAB_METRICS_PUSH_URL"); v != "" {
		cfg.Metrics.PushURL = v
	}
}
