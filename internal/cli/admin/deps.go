package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/resumeqa/internal/checkpoint"
	"github.com/cloo-solutions/resumeqa/internal/config"
	"github.com/cloo-solutions/resumeqa/internal/database"
	"github.com/cloo-solutions/resumeqa/internal/extract"
	"github.com/cloo-solutions/resumeqa/internal/logging"
	"github.com/cloo-solutions/resumeqa/internal/openai"
	"github.com/cloo-solutions/resumeqa/internal/ratelimit"
	"github.com/cloo-solutions/resumeqa/internal/repository"
	"github.com/cloo-solutions/resumeqa/internal/service"
	"github.com/cloo-solutions/resumeqa/internal/telemetry"
	"github.com/cloo-solutions/resumeqa/internal/vectorstore/sqlite"
)

// Index is a vector index that can also report its size.
type Index interface {
	service.VectorIndex
	Count(ctx context.Context) (int, error)
}

// DepsOptions tunes BuildDeps.
type DepsOptions struct {
	// NoMigrate skips postgres migrations on startup.
	NoMigrate bool
	// RequireProvider fails when no provider API key is configured.
	RequireProvider bool
}

// Deps is the fully wired object graph shared by the daemon commands.
type Deps struct {
	Config     *config.Config
	Logger     *slog.Logger
	Index      Index
	Checkpoint *checkpoint.FileStore
	Ingestion  *service.IngestionService
	Retriever  *service.Retriever
	Answer     *service.AnswerService

	closers []func()
}

// Close releases the index and any pools in reverse order of creation.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// BuildDeps wires every component from cfg. Callers must Close the result.
func BuildDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts DepsOptions) (*Deps, error) {
	if opts.RequireProvider && !cfg.HasOpenAI() {
		return nil, errors.New("OPENAI_API_KEY is required (set RESUMEQA_OPENAI_API_KEY)")
	}

	d := &Deps{Config: cfg, Logger: logger}

	index, err := openIndex(ctx, cfg, logger, opts, d)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Index = index

	providerCfg := openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		ChatModel:           cfg.ChatModel,
		RequestTimeout:      cfg.RequestTimeout,
	}
	embedder := openai.NewClientWithConfig(providerCfg)
	generator := openai.NewGenerator(providerCfg)

	chunker := service.NewChunker(service.ChunkConfig{
		MaxChars: cfg.ChunkSize,
		MinChars: cfg.ChunkSize / 2,
		Overlap:  cfg.ChunkOverlap,
	})

	d.Checkpoint = checkpoint.NewFileStore(cfg.CheckpointPath)
	d.Ingestion = service.NewIngestionService(
		service.IngestionConfig{
			CorpusDir:  cfg.CorpusDir,
			Extensions: cfg.CorpusExtensions,
		},
		extract.New(logger),
		chunker,
		embedder,
		index,
		d.Checkpoint,
		ratelimit.NewThrottle(cfg.Cooldown),
		logger,
	)

	d.Retriever = service.NewRetriever(embedder, index)

	answerCfg := service.DefaultAnswerConfig()
	answerCfg.TopK = cfg.TopK
	answerCfg.Temperature = cfg.Temperature
	answerCfg.MaxRetries = cfg.GenerateMaxRetries
	d.Answer = service.NewAnswerService(answerCfg, d.Retriever, generator, logger)

	return d, nil
}

func openIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts DepsOptions, d *Deps) (Index, error) {
	if !cfg.UsesPostgres() {
		store, err := sqlite.Open(cfg.IndexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open index at %s: %w", cfg.IndexPath, err)
		}
		d.closers = append(d.closers, func() { _ = store.Close() })
		logger.Info("vector index opened", slog.String("backend", config.IndexBackendSQLite), slog.String("path", store.Path()))
		return store, nil
	}

	if !opts.NoMigrate {
		if err := database.RunMigrations(cfg.DatabaseURL, database.DefaultMigrationsURL, logger); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	d.closers = append(d.closers, pool.Close)
	logger.Info("vector index opened", slog.String("backend", config.IndexBackendPostgres))

	return repository.NewFragmentRepository(pool), nil
}

// runtime holds what every daemon command sets up before doing its work.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	shutdown func()
}

func loadRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(cfg.LogFormat, cfg.Debug)

	shutdown := func() {}
	if cfg.HasSentry() {
		// Sample everything in development, 10% elsewhere
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		flush, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		}, logger)
		if err != nil {
			logger.Warn("telemetry init failed, continuing without tracing", slog.String("error", err.Error()))
		} else {
			shutdown = flush
		}
	}

	return &runtime{cfg: cfg, logger: logger, shutdown: shutdown}, nil
}
