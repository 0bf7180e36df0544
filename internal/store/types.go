package store

import (
	"time"

	"github.com/emilyselwood/ceridwen/internal/utils/text"
)

// SearchResult is the record stored against a PageId in the page_store
// keyspace and returned (hydrated) by search queries.
type SearchResult struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	LastIndex   time.Time `json:"last_index"`
}

// descriptionRunes bounds how much of a page's content becomes its search
// result description.
const descriptionRunes = 250

// newSearchResult builds a SearchResult from a page, truncating content to
// descriptionRunes runes for the description field.
func newSearchResult(url, title, content string, indexedAt time.Time) SearchResult {
	return SearchResult{
		URL:         url,
		Title:       title,
		Description: text.TruncateRunes(content, descriptionRunes),
		LastIndex:   indexedAt,
	}
}
