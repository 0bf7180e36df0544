package wikipedia

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTokenizer struct{}

func (fakeTokenizer) Tokenize(s string) []string { return []string{s} }
func (fakeTokenizer) Filter(t []string) []string { return t }

type fakeIndexer struct {
	indexed []string
}

func (f *fakeIndexer) AddPage(tok Tokenizer, url, title, content string, minUpdateInterval time.Duration, now time.Time) (bool, error) {
	f.indexed = append(f.indexed, url)
	return true, nil
}

func TestRunSkipsWhenDumpNotNewer(t *testing.T) {
	rss := fmt.Sprintf(`<?xml version="1.0"?><rss version="2.0"><channel><item><pubDate>%s</pubDate></item></channel></rss>`,
		"Fri, 02 Feb 2024 09:03:51 GMT")
	getter := &fakeGetter{body: []byte(rss)}
	indexer := &fakeIndexer{}

	in := New(getter, indexer, fakeTokenizer{}, 1, time.Hour, t.TempDir())
	count, err := in.Run(context.Background(), "wikipedia", map[string]string{
		"last_update": time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.Equal(t, 0, count)
	require.Equal(t, 0, getter.downloadCalls)
}

func TestParseLastUpdateInvalidReturnsZero(t *testing.T) {
	require.True(t, parseLastUpdate("not-a-time").IsZero())
	require.True(t, parseLastUpdate("").IsZero())
}
