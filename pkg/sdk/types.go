package manualrag

import (
	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/usecase/answer"
	"github.com/kailas-cloud/manualrag/internal/usecase/ingest"
)

// PageText is one page of extracted manual text.
type PageText = domain.PageText

// Candidate is a ranked manual excerpt.
type Candidate = domain.Candidate

// Page is a page number that may be unknown.
type Page = domain.Page

// IngestReport summarizes a finished ingestion.
type IngestReport = ingest.Report

// Answer is a generated answer with the excerpts it cites.
type Answer = answer.Result

// Embedder converts text to vectors. Implementations that also provide
// BatchEmbed(ctx, texts) are used for batched ingestion.
type Embedder = domain.Embedder

// Generator produces answer text from a prompt.
type Generator = domain.Generator

// IngestRequest is one manual to index. An empty ManualID gets a new UUID.
type IngestRequest struct {
	Tenant   string
	ManualID string
	Title    string
	Pages    []PageText
}

// AskOptions narrows a question.
type AskOptions struct {
	Tenant   string
	ManualID string
	TopK     int
}
