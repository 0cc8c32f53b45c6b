package chi

import (
	"context"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/usecase/answer"
	"github.com/kailas-cloud/manualrag/internal/usecase/health"
	"github.com/kailas-cloud/manualrag/internal/usecase/ingest"
	"github.com/kailas-cloud/manualrag/internal/usecase/retrieve"
)

// Answerer produces cited answers.
type Answerer interface {
	Answer(ctx context.Context, q answer.Question) (answer.Result, error)
}

// Retriever returns ranked candidates.
type Retriever interface {
	Retrieve(ctx context.Context, q retrieve.Query) ([]domain.Candidate, error)
}

// Ingester loads manual pages.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (ingest.Report, error)
}

// ChunkCounter reports the number of stored chunks of a tenant.
type ChunkCounter interface {
	Count(ctx context.Context, tenant string) (int, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}
