// Package text provides small Unicode-aware string helpers shared across
// the indexing and search paths.
package text

// TruncateRunes returns text cut to at most n runes. Cutting by rune
// rather than byte avoids splitting a multi-byte character in half.
func TruncateRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
