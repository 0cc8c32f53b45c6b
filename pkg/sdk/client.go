package manualrag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/manualrag/internal/db/redis"
	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/repository/chunk"
	"github.com/kailas-cloud/manualrag/internal/repository/search"
	openaiTransport "github.com/kailas-cloud/manualrag/internal/transport/openai"
	answeruc "github.com/kailas-cloud/manualrag/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/manualrag/internal/usecase/embedding"
	ingestuc "github.com/kailas-cloud/manualrag/internal/usecase/ingest"
	retrieveuc "github.com/kailas-cloud/manualrag/internal/usecase/retrieve"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultTenant           = "default"
	defaultHNSWM            = 16
	defaultHNSWEFConstruct  = 200
)

var errNoProvider = errors.New("manualrag: no embedding provider (use WithOpenAI or WithEmbedder)")

// Internal interfaces, replaced in tests.
type ingestUseCase interface {
	Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Report, error)
}

type retrieveUseCase interface {
	Retrieve(ctx context.Context, q retrieveuc.Query) ([]domain.Candidate, error)
}

type answerUseCase interface {
	Answer(ctx context.Context, q answeruc.Question) (answeruc.Result, error)
}

type chunkStore interface {
	EnsureIndex(ctx context.Context, tenant string) (bool, error)
	DropIndex(ctx context.Context, tenant string, purge bool) error
	Count(ctx context.Context, tenant string) (int, error)
	Purge(ctx context.Context, tenant string, sel chunk.Selector) (int, error)
}

type pinger interface {
	Ping(ctx context.Context) error
	Close()
}

// Client is the manualrag SDK entry point.
type Client struct {
	store     pinger
	tenant    string
	ingestSvc ingestUseCase
	retrieve  retrieveUseCase
	answers   answerUseCase
	chunks    chunkStore
	newID     func() string
}

// New connects to the database and wires the pipeline.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	applyDefaults(cfg)

	if len(cfg.addrs) == 0 {
		return nil, errors.New("manualrag: address is required (use WithValkey or WithRedis)")
	}
	if cfg.embedder == nil && cfg.apiKey == "" {
		return nil, errNoProvider
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("manualrag: database not ready: %w", err)
	}

	return wireClient(store, cfg), nil
}

func applyDefaults(cfg *clientConfig) {
	if cfg.tenant == "" {
		cfg.tenant = defaultTenant
	}
	if cfg.dimensions <= 0 {
		cfg.dimensions = openaiTransport.DefaultEmbeddingDimensions
	}
	if cfg.hnswM <= 0 {
		cfg.hnswM = defaultHNSWM
	}
	if cfg.hnswEFConstruct <= 0 {
		cfg.hnswEFConstruct = defaultHNSWEFConstruct
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
}

func createStore(cfg *clientConfig) (*dbRedis.Store, error) {
	flavor, err := dbRedis.ParseFlavor(cfg.driver)
	if err != nil {
		return nil, fmt.Errorf("manualrag: %w", err)
	}
	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
		Flavor:   flavor,
	})
	if err != nil {
		return nil, fmt.Errorf("manualrag: create %s store: %w", flavor, err)
	}
	return s, nil
}

func wireClient(store *dbRedis.Store, cfg *clientConfig) *Client {
	logger := cfg.logger

	var emb domain.Embedder = cfg.embedder
	if emb == nil {
		emb = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     cfg.apiKey,
			BaseURL:    cfg.baseURL,
			Model:      cfg.embeddingModel,
			Dimensions: cfg.dimensions,
			Logger:     logger,
		})
	}
	model := cfg.embeddingModel
	if model == "" {
		model = openaiTransport.DefaultEmbeddingModel
	}
	instrumented := embeddinguc.NewInstrumentedEmbedder(emb, openaiTransport.DefaultProvider, model, logger)

	var gen domain.Generator = cfg.generator
	if gen == nil {
		gen = openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
			Config: openaiTransport.Config{
				APIKey:  cfg.apiKey,
				BaseURL: cfg.baseURL,
				Model:   cfg.chatModel,
				Logger:  logger,
			},
		})
	}

	chunks := chunk.New(store, chunk.Config{
		Dimensions: cfg.dimensions,
		HNSW:       chunk.HNSWConfig{M: cfg.hnswM, EFConstruct: cfg.hnswEFConstruct},
	})
	retrieveSvc := retrieveuc.New(search.New(store), instrumented, logger).WithTopK(cfg.topK, 0)

	return &Client{
		store:     store,
		tenant:    cfg.tenant,
		ingestSvc: ingestuc.New(chunks, instrumented, logger),
		retrieve:  retrieveSvc,
		answers:   answeruc.New(retrieveSvc, gen, logger).WithLanguage(cfg.language, cfg.fallback),
		chunks:    chunks,
		newID:     uuid.NewString,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (c *Client) tenantOr(t string) string {
	if t == "" {
		return c.tenant
	}
	return t
}

// Ingest segments, embeds and stores the pages of one manual.
// The tenant index is created on first use.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (IngestReport, error) {
	manual := domain.Manual{ID: req.ManualID, Title: req.Title}
	if manual.ID == "" {
		manual.ID = c.newID()
	}
	rep, err := c.ingestSvc.Ingest(ctx, ingestuc.Request{
		Tenant: c.tenantOr(req.Tenant),
		Manual: manual,
		Pages:  req.Pages,
	})
	if err != nil {
		return IngestReport{}, fmt.Errorf("ingest: %w", err)
	}
	return rep, nil
}

// Retrieve returns ranked excerpts for a question without generating an answer.
func (c *Client) Retrieve(ctx context.Context, question string, opts AskOptions) ([]Candidate, error) {
	cands, err := c.retrieve.Retrieve(ctx, retrieveuc.Query{
		Tenant:   c.tenantOr(opts.Tenant),
		Question: question,
		TopK:     opts.TopK,
		ManualID: opts.ManualID,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	return cands, nil
}

// Ask answers a question from the default tenant's manuals.
func (c *Client) Ask(ctx context.Context, question string) (Answer, error) {
	return c.AskWith(ctx, question, AskOptions{})
}

// AskWith answers a question with explicit tenant, manual and excerpt count.
func (c *Client) AskWith(ctx context.Context, question string, opts AskOptions) (Answer, error) {
	res, err := c.answers.Answer(ctx, answeruc.Question{
		Tenant:   c.tenantOr(opts.Tenant),
		Text:     question,
		ManualID: opts.ManualID,
		TopK:     opts.TopK,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("answer: %w", err)
	}
	return res, nil
}

// Count returns the number of stored chunks of a tenant. Empty means the default tenant.
func (c *Client) Count(ctx context.Context, tenant string) (int, error) {
	n, err := c.chunks.Count(ctx, c.tenantOr(tenant))
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// DeleteManual removes the chunks matching manualID and/or title. Returns the number deleted.
func (c *Client) DeleteManual(ctx context.Context, tenant, manualID, title string) (int, error) {
	n, err := c.chunks.Purge(ctx, c.tenantOr(tenant), chunk.Selector{ManualID: manualID, Title: title})
	if err != nil {
		return 0, fmt.Errorf("delete manual: %w", err)
	}
	return n, nil
}

// DropIndex drops the tenant index, deleting stored chunks when purge is set.
func (c *Client) DropIndex(ctx context.Context, tenant string, purge bool) error {
	if err := c.chunks.DropIndex(ctx, c.tenantOr(tenant), purge); err != nil {
		return fmt.Errorf("drop index: %w", err)
	}
	return nil
}
