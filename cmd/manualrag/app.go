package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/manualrag/internal/config"
	"github.com/kailas-cloud/manualrag/internal/db"
	dbRedis "github.com/kailas-cloud/manualrag/internal/db/redis"
	"github.com/kailas-cloud/manualrag/internal/domain"
	logpkg "github.com/kailas-cloud/manualrag/internal/logger"
	"github.com/kailas-cloud/manualrag/internal/metrics"
	"github.com/kailas-cloud/manualrag/internal/repository/chunk"
	"github.com/kailas-cloud/manualrag/internal/repository/embcache"
	"github.com/kailas-cloud/manualrag/internal/repository/search"
	"github.com/kailas-cloud/manualrag/internal/segment"
	openaiTransport "github.com/kailas-cloud/manualrag/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/manualrag/internal/usecase/embedding"
	"github.com/kailas-cloud/manualrag/internal/usecase/ingest"
	"github.com/kailas-cloud/manualrag/internal/usecase/retrieve"
)

// ingester loads manual pages.
type ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (ingest.Report, error)
}

// retriever finds ranked candidates.
type retriever interface {
	Retrieve(ctx context.Context, q retrieve.Query) ([]domain.Candidate, error)
}

// chunkAdmin manages the tenant index and its chunks.
type chunkAdmin interface {
	EnsureIndex(ctx context.Context, tenant string) (bool, error)
	DropIndex(ctx context.Context, tenant string, purge bool) error
	Count(ctx context.Context, tenant string) (int, error)
	Purge(ctx context.Context, tenant string, sel chunk.Selector) (int, error)
}

// app bundles what the maintenance commands need.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	ingester  ingester
	retriever retriever
	chunks    chunkAdmin
	close     func()
}

// openApp is replaced in tests.
var openApp = openStoreApp

// loadConfig reads --config, or config/<env>.yaml.
func loadConfig() (config.Config, string, error) {
	env := flagEnv
	if env == "" {
		env = config.GetEnv()
	}
	var (
		cfg config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, env, nil
}

// deps are the long-lived collaborators shared by serve and the maintenance commands.
type deps struct {
	cfg      config.Config
	env      string
	logger   *zap.Logger
	store    *dbRedis.Store
	base     *openaiTransport.Embedder
	embedder *embeddinguc.InstrumentedEmbedder
	chunks   *chunk.Repo
}

func openDeps(ctx context.Context) (*deps, error) {
	cfg, env, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	flavor, err := dbRedis.ParseFlavor(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	algo, err := db.ParseVectorAlgorithm(cfg.Index.Algorithm)
	if err != nil {
		return nil, err
	}
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
		Flavor:   flavor,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Debug("Connected to database",
		zap.String("flavor", string(flavor)),
		zap.Strings("addrs", cfg.Database.Addrs),
	)

	base, embedder := buildEmbedder(cfg, store, logger)

	chunks := chunk.New(store, chunk.Config{
		Dimensions: cfg.Embedding.Dimensions,
		Algorithm:  algo,
		HNSW: chunk.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		},
	})

	return &deps{
		cfg:      cfg,
		env:      env,
		logger:   logger,
		store:    store,
		base:     base,
		embedder: embedder,
		chunks:   chunks,
	}, nil
}

func (d *deps) close() {
	d.store.Close()
	_ = d.logger.Sync()
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildEmbedder(
	cfg config.Config, store *dbRedis.Store, logger *zap.Logger,
) (*openaiTransport.Embedder, *embeddinguc.InstrumentedEmbedder) {
	metrics.RegisterProviderMetrics()

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})

	var inner domain.Embedder = base
	if cfg.Embedding.CacheEnabledOrDefault() {
		inner = embcache.New(base, store, embcache.Options{
			Model: cfg.Embedding.Model,
			TTL:   time.Duration(cfg.Embedding.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder := embeddinguc.NewInstrumentedEmbedder(
		inner, openaiTransport.DefaultProvider, cfg.Embedding.Model, logger,
	).WithMaxBatchSize(cfg.Embedding.MaxBatchSize)

	return base, embedder
}

func openStoreApp(cmd *cobra.Command) (*app, error) {
	d, err := openDeps(cmd.Context())
	if err != nil {
		return nil, err
	}

	metrics.RegisterPipelineMetrics()

	return &app{
		cfg:       d.cfg,
		logger:    d.logger,
		ingester:  d.ingestService(),
		retriever: d.retrieveService(),
		chunks:    d.chunks,
		close:     d.close,
	}, nil
}

func (d *deps) ingestService() *ingest.Service {
	return ingest.New(d.chunks, d.embedder, d.logger).
		WithSegmenter(segment.Options{
			MinWords: d.cfg.Segmenter.MinWords,
			MaxWords: d.cfg.Segmenter.MaxWords,
			Overlap:  d.cfg.Segmenter.Overlap,
		}).
		WithBatchSize(d.cfg.Ingest.BatchSize).
		WithMaxTextRunes(d.cfg.Ingest.MaxTextRunes)
}

func (d *deps) retrieveService() *retrieve.Service {
	return retrieve.New(search.New(d.store), d.embedder, d.logger).
		WithTopK(d.cfg.Retrieval.TopK, d.cfg.Retrieval.MaxTopK)
}
