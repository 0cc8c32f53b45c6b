// Package retrieve answers "which passages are relevant to this question":
// the question is embedded, matched against the tenant index and ranked.
package retrieve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/metrics"
	"github.com/kailas-cloud/manualrag/internal/rank"
	"github.com/kailas-cloud/manualrag/internal/repository/search"
)

// DefaultTopK is the number of neighbors requested when Query.TopK is not positive.
const DefaultTopK = 8

// Query describes one retrieval. Zero TopK and MaxPerTitle select the defaults;
// a negative MaxPerTitle disables the per-title cap.
type Query struct {
	Tenant      string
	Question    string
	TopK        int
	ManualID    string
	MinScore    float64
	MaxPerTitle int
	PageFrom    int
	PageTo      int
}

// Service embeds questions and ranks nearest chunks.
type Service struct {
	searcher Searcher
	embedder Embedder
	topK     int
	maxTopK  int
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(searcher Searcher, embedder Embedder, logger *zap.Logger) *Service {
	return &Service{
		searcher: searcher,
		embedder: embedder,
		topK:     DefaultTopK,
		maxTopK:  100,
		logger:   logger,
	}
}

// WithTopK configures the default and maximum neighbor count.
func (s *Service) WithTopK(defaultTopK, maxTopK int) *Service {
	if defaultTopK > 0 {
		s.topK = defaultTopK
	}
	if maxTopK > 0 {
		s.maxTopK = maxTopK
	}
	return s
}

// Retrieve returns ranked candidates for the question.
// A blank question yields an empty result without calling the embedder.
func (s *Service) Retrieve(ctx context.Context, q Query) ([]domain.Candidate, error) {
	if strings.TrimSpace(q.Question) == "" {
		return []domain.Candidate{}, nil
	}
	if err := domain.ValidateTenant(q.Tenant); err != nil {
		return nil, err
	}

	start := time.Now()

	topK := q.TopK
	if topK <= 0 {
		topK = s.topK
	}
	if topK > s.maxTopK {
		return nil, fmt.Errorf("%w: top_k %d exceeds maximum %d", domain.ErrInvalidRequest, topK, s.maxTopK)
	}

	emb, err := s.embedder.Embed(ctx, q.Question)
	if err != nil {
		return nil, fmt.Errorf("vectorize question: %w", err)
	}

	matches, err := s.searcher.SearchKNN(ctx, search.Query{
		Tenant:   q.Tenant,
		Vector:   emb.Embedding,
		TopK:     topK,
		ManualID: q.ManualID,
		PageFrom: q.PageFrom,
		PageTo:   q.PageTo,
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	opts := rank.Options{MinScore: q.MinScore, MaxPerTitle: q.MaxPerTitle}
	if q.MaxPerTitle == 0 {
		opts.MaxPerTitle = rank.DefaultMaxPerTitle
	}
	candidates, st := rank.RankWithStats(matches, opts)

	recordStats(st)
	duration := time.Since(start)
	metrics.RetrievalDuration.Observe(duration.Seconds())

	s.logger.Debug("Retrieved candidates",
		zap.String("tenant", q.Tenant),
		zap.String("manual_id", q.ManualID),
		zap.Int("top_k", topK),
		zap.Int("raw", st.Raw),
		zap.Int("after_score", st.AfterScore),
		zap.Int("after_dedup", st.AfterDedup),
		zap.Int("after_cap", st.AfterCap),
		zap.Duration("duration", duration),
	)

	return candidates, nil
}

func recordStats(st rank.Stats) {
	metrics.RankCandidatesTotal.WithLabelValues("raw").Add(float64(st.Raw))
	metrics.RankCandidatesTotal.WithLabelValues("score").Add(float64(st.AfterScore))
	metrics.RankCandidatesTotal.WithLabelValues("dedup").Add(float64(st.AfterDedup))
	metrics.RankCandidatesTotal.WithLabelValues("cap").Add(float64(st.AfterCap))
}
