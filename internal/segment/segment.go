// Package segment splits page text into overlapping word windows sized for embedding.
package segment

import (
	"strings"
	"unicode"

	"github.com/kailas-cloud/manualrag/internal/domain"
)

// Defaults for Options.
const (
	DefaultMinWords = 250
	DefaultMaxWords = 500
	DefaultOverlap  = 0.12
)

// Options bounds the window size. Target window length is the midpoint of
// MinWords and MaxWords; Overlap is the fraction of the target shared by
// consecutive windows.
type Options struct {
	MinWords int
	MaxWords int
	Overlap  float64
}

// DefaultOptions returns 250/500 words with 12% overlap.
func DefaultOptions() Options {
	return Options{MinWords: DefaultMinWords, MaxWords: DefaultMaxWords, Overlap: DefaultOverlap}
}

// normalized replaces unusable values with defaults.
func (o Options) normalized() Options {
	if o.MinWords <= 0 {
		o.MinWords = DefaultMinWords
	}
	if o.MaxWords <= 0 {
		o.MaxWords = DefaultMaxWords
	}
	if o.Overlap <= 0 || o.Overlap >= 1 {
		o.Overlap = DefaultOverlap
	}
	return o
}

// Target returns the window length in words.
func (o Options) Target() int {
	n := o.normalized()
	return (n.MinWords + n.MaxWords) / 2
}

// Step returns the distance in words between consecutive window starts. Never below 1.
func (o Options) Step() int {
	n := o.normalized()
	return max(1, int(float64(o.Target())*(1-n.Overlap)))
}

// Segment splits text into overlapping chunks. The last chunk may be shorter
// than the target. Empty or whitespace-only text yields no chunks.
func Segment(text string, opts Options) []domain.Chunk {
	words := Words(text)
	if len(words) == 0 {
		return nil
	}

	target := opts.Target()
	step := opts.Step()

	chunks := make([]domain.Chunk, 0, Count(len(words), opts))
	for start := 0; ; start += step {
		end := min(start+target, len(words))
		chunks = append(chunks, domain.Chunk{
			Index: len(chunks),
			Start: start,
			Words: end - start,
			Text:  strings.Join(words[start:end], " "),
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}

// Count returns how many chunks Segment produces for n words.
func Count(n int, opts Options) int {
	if n <= 0 {
		return 0
	}
	target := opts.Target()
	if n <= target {
		return 1
	}
	step := opts.Step()
	return (n-target+step-1)/step + 1
}

// Words splits text on runs of whitespace. U+FEFF counts as whitespace.
func Words(text string) []string {
	return strings.FieldsFunc(text, isSpace)
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}
