package domain

import "math"

// Metadata keys written at ingestion time.
const (
	MetaTenantID  = "tenant_id"
	MetaManualID  = "manual_id"
	MetaPage      = "page"
	MetaTitle     = "title"
	MetaChunkText = "chunk_text"
)

// RawMatch is one nearest-neighbor hit as returned by the vector store.
// Metadata keys and value types are not trusted.
type RawMatch struct {
	ID       string         `json:"id,omitempty"`
	Score    *float64       `json:"score,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Candidate is a normalized match ready for answer generation.
type Candidate struct {
	Score      *float64 `json:"score"`
	Page       Page     `json:"page"`
	Title      string   `json:"title"`
	Text       string   `json:"text"`
	DocumentID *string  `json:"manual_id"`
}

// EffectiveScore returns the score, treating an absent score as zero.
func (c *Candidate) EffectiveScore() float64 {
	if c.Score == nil || math.IsNaN(*c.Score) {
		return 0
	}
	return *c.Score
}
