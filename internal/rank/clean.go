package rank

import (
	"strings"

	"github.com/kailas-cloud/manualrag/internal/segment"
)

// Clean collapses whitespace runs, including non-breaking spaces, to single
// ASCII spaces and trims the result.
func Clean(s string) string {
	return strings.Join(segment.Words(s), " ")
}

// prefix returns the first n runes of s.
func prefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
