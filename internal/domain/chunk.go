package domain

// KeyPrefix is the global key prefix for everything manualrag stores.
const KeyPrefix = "manualrag:"

// IndexName returns the search index of a tenant.
func IndexName(tenant string) string { return KeyPrefix + tenant + ":idx" }

// ChunkPrefix returns the key prefix of every chunk hash of a tenant.
func ChunkPrefix(tenant string) string { return KeyPrefix + tenant + ":chunk:" }

// Chunk is one overlapping word window of a page's text.
type Chunk struct {
	Index int    // ordinal within the page, starting at 0
	Start int    // offset of the first word within the page
	Words int    // number of words in Text
	Text  string // words joined by single spaces
}

// PageText is one page of extracted manual text.
type PageText struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// Manual identifies the document a set of pages belongs to.
type Manual struct {
	ID    string
	Title string
}
