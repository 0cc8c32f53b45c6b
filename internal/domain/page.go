package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// UnknownPageMarker is the literal used for a page that could not be determined.
const UnknownPageMarker = "unknown"

// Page is a 1-based manual page number, or unknown.
// The zero value is unknown, so a missing page never reads as page 0.
type Page struct {
	n     int
	known bool
}

// KnownPage returns a page with the given number. Negative numbers yield an unknown page.
func KnownPage(n int) Page {
	if n < 0 {
		return Page{}
	}
	return Page{n: n, known: true}
}

// UnknownPage returns the unknown page.
func UnknownPage() Page { return Page{} }

// IsKnown reports whether the page number is known.
func (p Page) IsKnown() bool { return p.known }

// Number returns the page number and whether it is known.
func (p Page) Number() (int, bool) { return p.n, p.known }

// String returns the page number or UnknownPageMarker.
func (p Page) String() string {
	if !p.known {
		return UnknownPageMarker
	}
	return strconv.Itoa(p.n)
}

// MarshalJSON encodes a known page as a number and an unknown page as "unknown".
func (p Page) MarshalJSON() ([]byte, error) {
	if !p.known {
		return []byte(`"` + UnknownPageMarker + `"`), nil
	}
	return []byte(strconv.Itoa(p.n)), nil
}

// UnmarshalJSON accepts a number, a numeric string, "unknown" or null.
func (p *Page) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = Page{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == UnknownPageMarker || s == "" {
			*p = Page{}
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid page %q", s)
		}
		*p = KnownPage(n)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid page: %w", err)
	}
	*p = KnownPage(n)
	return nil
}
