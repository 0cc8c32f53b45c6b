package chi

import (
	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/usecase/ingest"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeUnauthorized     = "unauthorized"
	CodeNotFound         = "not_found"
	CodeIndexNotReady    = "index_not_ready"
	CodeProviderError    = "provider_error"
	CodeInternalError    = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ChatRequest is the body of POST /api/chat. manualId is accepted for older clients.
type ChatRequest struct {
	Question       string `json:"question"`
	ManualID       string `json:"manual_id"`
	LegacyManualID string `json:"manualId"`
	TopK           int    `json:"top_k"`
}

// Source is one cited candidate in a chat response.
type Source struct {
	ManualID *string     `json:"manual_id"`
	Title    string      `json:"title"`
	Page     domain.Page `json:"page"`
	Score    *float64    `json:"score"`
}

// ChatResponse is the body of a successful POST /api/chat.
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// RetrieveRequest is the body of POST /api/retrieve.
type RetrieveRequest struct {
	Question    string  `json:"question"`
	ManualID    string  `json:"manual_id"`
	TopK        int     `json:"top_k"`
	MinScore    float64 `json:"min_score"`
	MaxPerTitle *int    `json:"max_per_title"`
	PageFrom    int     `json:"page_from"`
	PageTo      int     `json:"page_to"`
}

// CandidateListResponse wraps ranked candidates.
type CandidateListResponse struct {
	Items []domain.Candidate `json:"items"`
	Total int                `json:"total"`
}

// RankRequest is the body of POST /api/rank.
type RankRequest struct {
	Matches     []domain.RawMatch `json:"matches"`
	MinScore    float64           `json:"min_score"`
	MaxPerTitle *int              `json:"max_per_title"`
}

// RankResponse adds per-stage counts to ranked candidates.
type RankResponse struct {
	Items []domain.Candidate `json:"items"`
	Stats RankStats          `json:"stats"`
}

// RankStats mirrors rank.Stats.
type RankStats struct {
	Raw        int `json:"raw"`
	AfterScore int `json:"after_score"`
	AfterDedup int `json:"after_dedup"`
	AfterCap   int `json:"after_cap"`
}

// IngestRequest is the body of POST /api/ingest.
type IngestRequest struct {
	ManualID string            `json:"manual_id"`
	Title    string            `json:"title"`
	Pages    []domain.PageText `json:"pages"`
}

// IngestResponse reports a finished ingestion.
type IngestResponse struct {
	ingest.Report
	DurationMs int64 `json:"duration_ms"`
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Tenant string `json:"tenant"`
	Chunks int    `json:"chunks"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK     bool              `json:"ok"`
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func sourcesFromCandidates(cs []domain.Candidate) []Source {
	out := make([]Source, len(cs))
	for i := range cs {
		out[i] = Source{
			ManualID: cs[i].DocumentID,
			Title:    cs[i].Title,
			Page:     cs[i].Page,
			Score:    cs[i].Score,
		}
	}
	return out
}
