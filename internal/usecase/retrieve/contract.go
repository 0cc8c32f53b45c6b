package retrieve

import (
	"context"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/repository/search"
)

// Searcher runs a nearest-neighbor query over a tenant's chunks.
type Searcher interface {
	SearchKNN(ctx context.Context, q search.Query) ([]domain.RawMatch, error)
}

// Embedder vectorizes the question.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
