// Package textpipeline turns raw document text into the term/frequency pairs
// the index store keys its postings on. Every function here is pure: no I/O,
// no package-level state, same input always produces the same bag of terms.
package textpipeline

import (
	"strings"
	"unicode"
)

// punctuation lists the characters stripped out of a token after lowercasing.
// '=' is included deliberately: it is the reserved separator between a term
// and a PageId in the word_index keyspace (internal/store), so no term may
// ever contain it.
const punctuation = "(),\".;:'?<>\\/*{}|#=ʿ!"

// Tokenize splits text on whitespace, lowercases each word, and strips
// punctuation and non-alphanumeric runes from what's left. Empty results are
// kept in the returned slice; call Filter to drop them along with stop words.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		lower := strings.ToLower(field)
		var b strings.Builder
		b.Grow(len(lower))
		for _, r := range lower {
			if strings.ContainsRune(punctuation, r) {
				continue
			}
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
		tokens = append(tokens, b.String())
	}
	return tokens
}

// Filter removes empty tokens and any term in stopWords.
func Filter(tokens []string) []string {
	result := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, isStop := stopWords[t]; isStop {
			continue
		}
		result = append(result, t)
	}
	return result
}

// Count collapses a slice of terms into term/count pairs. The order of the
// returned slice is unspecified.
func Count(tokens []string) []TermCount {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	result := make([]TermCount, 0, len(counts))
	for term, count := range counts {
		result = append(result, TermCount{Term: term, Count: count})
	}
	return result
}

// TermCount is a single (term, frequency) pair produced by Count.
type TermCount struct {
	Term  string
	Count int
}
