package domain

import "errors"

var (
	// ErrInvalidRequest signals a malformed caller request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidTenant signals a tenant name that cannot be used as a namespace.
	ErrInvalidTenant = errors.New("invalid tenant")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrIndexNotReady signals that the tenant has no search index yet.
	ErrIndexNotReady = errors.New("index not ready")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a chat completion provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
)
