package wikipedia

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateURLReplacesSpacesOnly(t *testing.T) {
	require.Equal(t, "https://en.wikipedia.org/wiki/Foo_Bar_(disambiguation)", createURL("Foo Bar (disambiguation)"))
}

func TestArchiveFileName(t *testing.T) {
	date := time.Date(2024, 2, 2, 9, 3, 51, 0, time.UTC)
	require.Equal(t, "enwiki-latest-2024_02_02_09_03_51.xml.bz2", archiveFileName(date))
}

type fakeGetter struct {
	body          []byte
	downloadCalls int
}

func (f *fakeGetter) Get(url string) ([]byte, error) { return f.body, nil }

func (f *fakeGetter) GetToFile(url, path string) error {
	f.downloadCalls++
	return os.WriteFile(path, []byte("archive"), 0o644)
}

func TestDownloadArchiveReusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	date := time.Date(2024, 2, 2, 9, 3, 51, 0, time.UTC)
	existing := filepath.Join(dir, archiveFileName(date))
	require.NoError(t, os.WriteFile(existing, []byte("already here"), 0o644))

	getter := &fakeGetter{}
	path, err := downloadArchive(getter, date, dir)
	require.NoError(t, err)
	require.Equal(t, existing, path)
	require.Equal(t, 0, getter.downloadCalls)
}

func TestDownloadArchiveDownloadsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	date := time.Date(2024, 2, 2, 9, 3, 51, 0, time.UTC)

	getter := &fakeGetter{}
	_, err := downloadArchive(getter, date, dir)
	require.NoError(t, err)
	require.Equal(t, 1, getter.downloadCalls)
}

func TestDumpDateMissingDate(t *testing.T) {
	rssWithoutDate := `<?xml version="1.0"?><rss version="2.0"><channel><item><title>enwiki dump</title></item></channel></rss>`
	getter := &fakeGetter{body: []byte(rssWithoutDate)}
	_, err := dumpDate(getter)
	require.Error(t, err)
}

func TestDumpDateParsesPubDate(t *testing.T) {
	rss := fmt.Sprintf(`<?xml version="1.0"?><rss version="2.0"><channel><item><title>enwiki dump</title><pubDate>%s</pubDate></item></channel></rss>`,
		"Fri, 02 Feb 2024 09:03:51 GMT")
	getter := &fakeGetter{body: []byte(rss)}
	date, err := dumpDate(getter)
	require.NoError(t, err)
	require.Equal(t, 2024, date.Year())
}
