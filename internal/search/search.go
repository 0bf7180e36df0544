// Package search turns a free-text query into a ranked, hydrated list of
// search results: tokenize the query (no stop-word filtering — a query for
// "the matrix" must still be able to match "matrix" postings), look up
// postings per query term, sum per-page scores, sort by descending score
// with ascending PageId as a tie-break, then hydrate the top results from
// the page store.
package search

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/emilyselwood/ceridwen/internal/store"
	"github.com/emilyselwood/ceridwen/internal/textpipeline"
)

// MaxResults caps how many hydrated results a query returns.
const MaxResults = 100

// PostingsLookup is the narrow store dependency search needs.
type PostingsLookup interface {
	LookupTermPostings(term string) (map[uint64]uint64, error)
	LookupPage(id uint64) (store.SearchResult, error)
}

type scored struct {
	id    uint64
	score uint64
}

// Search tokenizes query, accumulates term-frequency scores across every
// matching page, and returns up to MaxResults hydrated SearchResults ordered
// best-match first.
func Search(lookup PostingsLookup, query string) ([]store.SearchResult, error) {
	terms := textpipeline.Tokenize(query)

	totals := make(map[uint64]uint64)
	for _, term := range terms {
		if term == "" {
			continue
		}
		postings, err := lookup.LookupTermPostings(term)
		if err != nil {
			return nil, fmt.Errorf("search: postings for %q: %w", term, err)
		}
		for id, count := range postings {
			totals[id] += count
		}
	}

	ranked := make([]scored, 0, len(totals))
	for id, total := range totals {
		ranked = append(ranked, scored{id: id, score: total})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > MaxResults {
		ranked = ranked[:MaxResults]
	}

	results := make([]store.SearchResult, 0, len(ranked))
	for _, r := range ranked {
		page, err := lookup.LookupPage(r.id)
		if err != nil {
			if err == store.ErrPageNotFound {
				slog.Warn("posting referenced a page missing from page_store", slog.Uint64("page_id", r.id))
				continue
			}
			return nil, fmt.Errorf("search: hydrate page %d: %w", r.id, err)
		}
		results = append(results, page)
	}
	return results, nil
}
