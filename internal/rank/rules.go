package rank

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/manualrag/internal/domain"
)

// UnknownTitle is the title given to matches without a usable title.
const UnknownTitle = "Unknown manual"

// Field extraction rules, evaluated in order. The first key that yields a
// usable value wins.
var (
	pageKeys     = []string{domain.MetaPage, "page_number", "pageNum", "pageIndex"}
	titleKeys    = []string{domain.MetaTitle}
	textKeys     = []string{domain.MetaChunkText, "text"}
	documentKeys = []string{domain.MetaManualID, "document_id"}
)

// extractPage returns the first metadata value that coerces to a
// non-negative finite number. Fractional values are truncated.
func extractPage(meta map[string]any) domain.Page {
	for _, key := range pageKeys {
		v, ok := meta[key]
		if !ok {
			continue
		}
		f, ok := toFloat(v)
		if !ok || f < 0 || f > math.MaxInt32 {
			continue
		}
		return domain.KnownPage(int(f))
	}
	return domain.UnknownPage()
}

// extractTitle returns the cleaned title or UnknownTitle.
func extractTitle(meta map[string]any) string {
	if t, ok := firstString(meta, titleKeys); ok {
		return t
	}
	return UnknownTitle
}

// extractText returns the cleaned chunk text, possibly empty.
func extractText(meta map[string]any) string {
	t, _ := firstString(meta, textKeys)
	return t
}

// extractDocumentID returns the document identifier verbatim, or nil.
func extractDocumentID(meta map[string]any) *string {
	for _, key := range documentKeys {
		v, ok := meta[key]
		if !ok || v == nil {
			continue
		}
		s, ok := toString(v)
		if !ok {
			continue
		}
		return &s
	}
	return nil
}

// firstString returns the first value among keys that is non-empty after cleaning.
func firstString(meta map[string]any, keys []string) (string, bool) {
	for _, key := range keys {
		v, ok := meta[key]
		if !ok {
			continue
		}
		s, ok := toString(v)
		if !ok {
			continue
		}
		if s = Clean(s); s != "" {
			return s, true
		}
	}
	return "", false
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toString accepts strings and scalar values. Maps, slices and nil are rejected.
func toString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool, int, int32, int64, uint, uint32, uint64:
		return fmt.Sprint(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	default:
		return "", false
	}
}
