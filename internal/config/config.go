package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	IndexBackendSQLite   = "sqlite"
	IndexBackendPostgres = "postgres"
)

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	Debug     bool   `envconfig:"DEBUG" default:"false"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	CorpusDir        string   `envconfig:"CORPUS_DIR" default:"./resumes"`
	CorpusExtensions []string `envconfig:"CORPUS_EXTENSIONS" default:".pdf"`
	CheckpointPath   string   `envconfig:"CHECKPOINT_PATH" default:"processed_files.txt"`

	IndexBackend     string `envconfig:"INDEX_BACKEND" default:"sqlite"`
	IndexPath        string `envconfig:"INDEX_PATH" default:"./vector_index"`
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"4"`

	OpenAIAPIKey        string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string        `envconfig:"OPENAI_BASE_URL"`
	EmbeddingModel      string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions int           `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	ChatModel           string        `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	Temperature         float32       `envconfig:"TEMPERATURE" default:"0.2"`
	RequestTimeout      time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`
	GenerateMaxRetries  int           `envconfig:"GENERATE_MAX_RETRIES" default:"2"`

	ChunkSize    int           `envconfig:"CHUNK_SIZE" default:"2000"`
	ChunkOverlap int           `envconfig:"CHUNK_OVERLAP" default:"200"`
	TopK         int           `envconfig:"TOP_K" default:"5"`
	Cooldown     time.Duration `envconfig:"COOLDOWN" default:"10s"`

	// Periodic re-ingestion in serve mode; zero disables it.
	IngestInterval time.Duration `envconfig:"INGEST_INTERVAL" default:"0"`

	APIToken string `envconfig:"API_TOKEN"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"resumes"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Prefix    string `envconfig:"S3_PREFIX"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("RESUMEQA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects combinations that cannot produce a working pipeline.
func (c *Config) Validate() error {
	switch c.IndexBackend {
	case IndexBackendSQLite:
		if c.IndexPath == "" {
			return fmt.Errorf("invalid config: INDEX_PATH is required for the sqlite index")
		}
	case IndexBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("invalid config: DATABASE_URL is required for the postgres index")
		}
	default:
		return fmt.Errorf("invalid config: unknown INDEX_BACKEND %q", c.IndexBackend)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("invalid config: CHUNK_SIZE must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("invalid config: CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("invalid config: TOP_K must be positive")
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("invalid config: COOLDOWN cannot be negative")
	}

	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

func (c *Config) UsesPostgres() bool {
	return c.IndexBackend == IndexBackendPostgres
}
