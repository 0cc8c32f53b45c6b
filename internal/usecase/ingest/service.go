// Package ingest loads manual pages into the tenant index:
// pages are segmented, embedded in batches and upserted as chunk hashes.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/metrics"
	"github.com/kailas-cloud/manualrag/internal/repository/chunk"
	"github.com/kailas-cloud/manualrag/internal/segment"
)

// Defaults applied to a zero Service configuration and to incomplete requests.
const (
	DefaultBatchSize    = 64
	DefaultMaxTextRunes = 8000
	DefaultManualID     = "unknown"
	DefaultTitle        = "Manual"
)

// Request is one manual to ingest.
type Request struct {
	Tenant string
	Manual domain.Manual
	Pages  []domain.PageText
}

// Report summarizes a finished ingestion.
type Report struct {
	ManualID     string        `json:"manual_id"`
	Title        string        `json:"title"`
	Pages        int           `json:"pages"`
	SkippedPages int           `json:"skipped_pages"`
	Chunks       int           `json:"chunks"`
	Batches      int           `json:"batches"`
	Tokens       int           `json:"tokens"`
	IndexCreated bool          `json:"index_created"`
	Duration     time.Duration `json:"-"`
}

// pending is a chunk waiting for its embedding.
type pending struct {
	page int
	text string
}

// Service segments, embeds and stores manual pages.
type Service struct {
	repo      Repository
	embedder  Embedder
	segmenter segment.Options
	batchSize int
	maxRunes  int
	logger    *zap.Logger
}

// New creates an ingestion service with default segmenter and batch settings.
func New(repo Repository, embedder Embedder, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		embedder:  embedder,
		segmenter: segment.DefaultOptions(),
		batchSize: DefaultBatchSize,
		maxRunes:  DefaultMaxTextRunes,
		logger:    logger,
	}
}

// WithSegmenter overrides the window options.
func (s *Service) WithSegmenter(opts segment.Options) *Service {
	s.segmenter = opts
	return s
}

// WithBatchSize overrides the embedding batch size. Non-positive values are ignored.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// WithMaxTextRunes overrides the stored chunk text limit. Non-positive values are ignored.
func (s *Service) WithMaxTextRunes(n int) *Service {
	if n > 0 {
		s.maxRunes = n
	}
	return s
}

// Ingest segments every page, embeds the chunks batch by batch and upserts them.
// The index is created on first use.
func (s *Service) Ingest(ctx context.Context, req Request) (Report, error) {
	start := time.Now()

	if err := domain.ValidateTenant(req.Tenant); err != nil {
		return Report{}, err
	}
	if len(req.Pages) == 0 {
		return Report{}, fmt.Errorf("%w: no pages to ingest", domain.ErrInvalidRequest)
	}

	manual := withDefaults(req.Manual)
	rep := Report{ManualID: manual.ID, Title: manual.Title, Pages: len(req.Pages)}

	chunks := s.segmentPages(req.Pages, &rep)
	if len(chunks) == 0 {
		return Report{}, fmt.Errorf("%w: pages contain no text", domain.ErrInvalidRequest)
	}

	s.logger.Info("Segmented manual",
		zap.String("tenant", req.Tenant),
		zap.String("manual_id", manual.ID),
		zap.Int("pages", rep.Pages),
		zap.Int("skipped_pages", rep.SkippedPages),
		zap.Int("chunks", len(chunks)),
	)

	created, err := s.repo.EnsureIndex(ctx, req.Tenant)
	if err != nil {
		return Report{}, fmt.Errorf("ensure index: %w", err)
	}
	rep.IndexCreated = created

	for offset := 0; offset < len(chunks); offset += s.batchSize {
		end := min(offset+s.batchSize, len(chunks))
		if err := s.ingestBatch(ctx, req.Tenant, manual, chunks[offset:end], &rep); err != nil {
			return Report{}, fmt.Errorf("batch at %d: %w", offset, err)
		}

		s.logger.Debug("Ingested batch",
			zap.String("manual_id", manual.ID),
			zap.Int("done", end),
			zap.Int("total", len(chunks)),
		)
	}

	rep.Duration = time.Since(start)

	s.logger.Info("Ingested manual",
		zap.String("tenant", req.Tenant),
		zap.String("manual_id", manual.ID),
		zap.String("title", manual.Title),
		zap.Int("chunks", rep.Chunks),
		zap.Int("batches", rep.Batches),
		zap.Int("tokens", rep.Tokens),
		zap.Duration("duration", rep.Duration),
	)

	return rep, nil
}

func (s *Service) segmentPages(pages []domain.PageText, rep *Report) []pending {
	var out []pending
	for _, p := range pages {
		windows := segment.Segment(p.Text, s.segmenter)
		if len(windows) == 0 {
			rep.SkippedPages++
			metrics.IngestPagesTotal.WithLabelValues("skipped").Inc()
			continue
		}
		metrics.IngestPagesTotal.WithLabelValues("indexed").Inc()
		for _, w := range windows {
			out = append(out, pending{page: p.Page, text: w.Text})
		}
	}
	return out
}

func (s *Service) ingestBatch(
	ctx context.Context, tenant string, manual domain.Manual, batch []pending, rep *Report,
) error {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.text
	}

	res, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(res.Embeddings) != len(batch) {
		return fmt.Errorf("embed: got %d vectors for %d chunks: %w",
			len(res.Embeddings), len(batch), domain.ErrEmbeddingProviderError)
	}

	records := make([]chunk.Record, len(batch))
	for i, c := range batch {
		records[i] = chunk.Record{
			Manual: manual,
			Page:   c.page,
			Text:   truncateRunes(c.text, s.maxRunes),
			Vector: res.Embeddings[i],
		}
	}

	if _, err := s.repo.Upsert(ctx, tenant, records); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}

	metrics.IngestChunksTotal.Add(float64(len(records)))
	rep.Chunks += len(records)
	rep.Batches++
	rep.Tokens += res.TotalTokens
	return nil
}

func withDefaults(m domain.Manual) domain.Manual {
	m.ID = strings.TrimSpace(m.ID)
	m.Title = strings.TrimSpace(m.Title)
	if m.ID == "" {
		m.ID = DefaultManualID
	}
	if m.Title == "" {
		m.Title = DefaultTitle
	}
	return m
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
