// Package rank turns raw nearest-neighbor matches into a deduplicated,
// per-title capped, score-ordered list of candidate passages.
//
// Stages run in a fixed order: normalize, score filter, dedup,
// diversity cap, sort. The cap sees the order produced by the vector
// store, not the final score order.
package rank

import (
	"sort"

	"github.com/kailas-cloud/manualrag/internal/domain"
)

// Defaults for Options.
const (
	DefaultMinScore    = 0.0
	DefaultMaxPerTitle = 3

	// dedupPrefixRunes is how much of the text takes part in the dedup key.
	dedupPrefixRunes = 80
	noPageMarker     = "nopage"
)

// Options controls filtering. MinScore <= 0 disables the score filter and
// MaxPerTitle <= 0 disables the per-title cap.
type Options struct {
	MinScore    float64
	MaxPerTitle int
}

// DefaultOptions returns MinScore 0 and MaxPerTitle 3.
func DefaultOptions() Options {
	return Options{MinScore: DefaultMinScore, MaxPerTitle: DefaultMaxPerTitle}
}

// Stats reports how many candidates were left after each stage.
type Stats struct {
	Raw        int
	AfterScore int
	AfterDedup int
	AfterCap   int
}

// Rank runs the full pipeline. The input is not modified.
func Rank(matches []domain.RawMatch, opts Options) []domain.Candidate {
	out, _ := RankWithStats(matches, opts)
	return out
}

// RankWithStats is Rank plus per-stage counts.
func RankWithStats(matches []domain.RawMatch, opts Options) ([]domain.Candidate, Stats) {
	st := Stats{Raw: len(matches)}

	items := normalize(matches)

	items = filterScore(items, opts.MinScore)
	st.AfterScore = len(items)

	items = dedup(items)
	st.AfterDedup = len(items)

	items = capPerTitle(items, opts.MaxPerTitle)
	st.AfterCap = len(items)

	sortByScore(items)
	return items, st
}

// Normalize converts a single raw match into a candidate.
func Normalize(m domain.RawMatch) domain.Candidate {
	var score *float64
	if m.Score != nil {
		s := *m.Score
		score = &s
	}
	return domain.Candidate{
		Score:      score,
		Page:       extractPage(m.Metadata),
		Title:      extractTitle(m.Metadata),
		Text:       extractText(m.Metadata),
		DocumentID: extractDocumentID(m.Metadata),
	}
}

func normalize(matches []domain.RawMatch) []domain.Candidate {
	items := make([]domain.Candidate, len(matches))
	for i := range matches {
		items[i] = Normalize(matches[i])
	}
	return items
}

func filterScore(items []domain.Candidate, minScore float64) []domain.Candidate {
	if minScore <= 0 {
		return items
	}
	kept := items[:0]
	for i := range items {
		if items[i].EffectiveScore() >= minScore {
			kept = append(kept, items[i])
		}
	}
	return kept
}

// DedupKey identifies candidates that carry the same passage.
func DedupKey(c *domain.Candidate) string {
	page := noPageMarker
	if c.Page.IsKnown() {
		page = c.Page.String()
	}
	return c.Title + "::" + page + "::" + prefix(c.Text, dedupPrefixRunes)
}

func dedup(items []domain.Candidate) []domain.Candidate {
	seen := make(map[string]struct{}, len(items))
	kept := items[:0]
	for i := range items {
		key := DedupKey(&items[i])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, items[i])
	}
	return kept
}

func capPerTitle(items []domain.Candidate, maxPerTitle int) []domain.Candidate {
	if maxPerTitle <= 0 {
		return items
	}
	counts := make(map[string]int)
	kept := items[:0]
	for i := range items {
		if counts[items[i].Title] >= maxPerTitle {
			continue
		}
		counts[items[i].Title]++
		kept = append(kept, items[i])
	}
	return kept
}

func sortByScore(items []domain.Candidate) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].EffectiveScore() > items[j].EffectiveScore()
	})
}
