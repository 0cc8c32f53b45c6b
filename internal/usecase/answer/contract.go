package answer

import (
	"context"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/usecase/retrieve"
)

// Retriever finds ranked candidates for a question.
type Retriever interface {
	Retrieve(ctx context.Context, q retrieve.Query) ([]domain.Candidate, error)
}

// Generator produces the answer text from a prompt.
type Generator interface {
	Generate(ctx context.Context, p domain.Prompt) (domain.Completion, error)
}
