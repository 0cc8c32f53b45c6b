// Package search runs tenant-scoped nearest-neighbor queries over chunk hashes.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/manualrag/internal/db"
	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/domain/filter"
	"github.com/kailas-cloud/manualrag/internal/repository/chunk"
)

// returnFields are the hash fields handed to the ranker as metadata.
var returnFields = []string{
	domain.MetaTenantID,
	domain.MetaManualID,
	domain.MetaTitle,
	domain.MetaPage,
	domain.MetaChunkText,
}

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Query is one nearest-neighbor lookup. Zero page bounds are open.
type Query struct {
	Tenant   string
	Vector   []float32
	TopK     int
	ManualID string
	PageFrom int
	PageTo   int
}

// Repo implements usecase/retrieve.Searcher.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SearchKNN returns the TopK nearest chunks as raw matches in store order.
func (r *Repo) SearchKNN(ctx context.Context, q Query) ([]domain.RawMatch, error) {
	if err := domain.ValidateTenant(q.Tenant); err != nil {
		return nil, err
	}
	if q.TopK <= 0 {
		return nil, fmt.Errorf("%w: top k must be positive", domain.ErrInvalidRequest)
	}

	expr, err := buildFilters(q)
	if err != nil {
		return nil, err
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    domain.IndexName(q.Tenant),
		VectorField:  chunk.VectorField,
		Filters:      expr,
		Vector:       q.Vector,
		K:            q.TopK,
		ReturnFields: returnFields,
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, domain.ErrIndexNotReady
		}
		return nil, fmt.Errorf("search knn %s: %w", q.Tenant, err)
	}

	return toRawMatches(sr, q.Tenant), nil
}

func buildFilters(q Query) (filter.Expression, error) {
	tenant, err := filter.NewMatch(domain.MetaTenantID, q.Tenant)
	if err != nil {
		return filter.Expression{}, err
	}
	must := []filter.Condition{tenant}

	if id := strings.TrimSpace(q.ManualID); id != "" {
		manual, err := filter.NewMatch(domain.MetaManualID, id)
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, manual)
	}

	if q.PageFrom > 0 || q.PageTo > 0 {
		var from, to *float64
		if q.PageFrom > 0 {
			v := float64(q.PageFrom)
			from = &v
		}
		if q.PageTo > 0 {
			v := float64(q.PageTo)
			to = &v
		}
		rng, err := filter.NewRangeFilter(from, to)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
		}
		cond, err := filter.NewRange(domain.MetaPage, rng)
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, cond)
	}

	return filter.NewExpression(must, nil)
}

func toRawMatches(sr *db.SearchResult, tenant string) []domain.RawMatch {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	prefix := domain.ChunkPrefix(tenant)
	matches := make([]domain.RawMatch, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		meta := make(map[string]any, len(entry.Fields))
		for k, v := range entry.Fields {
			meta[k] = v
		}
		matches = append(matches, domain.RawMatch{
			ID:       strings.TrimPrefix(entry.Key, prefix),
			Score:    entry.Score,
			Metadata: meta,
		})
	}
	return matches
}
