package ingest

import (
	"context"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/repository/chunk"
)

// Repository stores embedded chunks in the tenant index.
type Repository interface {
	EnsureIndex(ctx context.Context, tenant string) (bool, error)
	Upsert(ctx context.Context, tenant string, records []chunk.Record) ([]string, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
