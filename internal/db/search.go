package db

import (
	"encoding/binary"
	"math"

	"github.com/kailas-cloud/manualrag/internal/domain/filter"
)

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to "vector"
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
// Score is cosine similarity; nil when the server returned no distance.
type SearchEntry struct {
	Key    string
	Score  *float64
	Fields map[string]string
}

// EncodeVector packs v as little-endian FLOAT32, the layout of HASH vector fields.
func EncodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
