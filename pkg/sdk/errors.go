package manualrag

import "github.com/kailas-cloud/manualrag/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest          = domain.ErrInvalidRequest
	ErrInvalidTenant           = domain.ErrInvalidTenant
	ErrIndexNotReady           = domain.ErrIndexNotReady
	ErrEmbeddingProviderError  = domain.ErrEmbeddingProviderError
	ErrGenerationProviderError = domain.ErrGenerationProviderError
)
