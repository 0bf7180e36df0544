package wikipedia

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// dumpURL is the latest English Wikipedia multistream articles dump.
const dumpURL = "https://dumps.wikimedia.org/enwiki/latest/enwiki-latest-pages-articles-multistream.xml.bz2"

// dumpRSSURL announces when dumpURL was last regenerated, letting the
// ingester decide whether a fresh download is worth the bandwidth before
// committing to it.
const dumpRSSURL = "https://dumps.wikimedia.org/enwiki/latest/enwiki-latest-pages-articles-multistream.xml.bz2-rss.xml"

// ErrMissingDumpDate is returned when the dump RSS feed has no usable
// publish date to compare against.
var ErrMissingDumpDate = errors.New("wikipedia: dump rss feed has no publish date")

// HTTPGetter is the narrow fetch dependency this package needs.
type HTTPGetter interface {
	Get(url string) ([]byte, error)
	GetToFile(url, path string) error
}

// dumpDate fetches dumpRSSURL and returns the publish time of its first
// item: the last time the dump archive was regenerated.
func dumpDate(client HTTPGetter) (time.Time, error) {
	body, err := client.Get(dumpRSSURL)
	if err != nil {
		return time.Time{}, fmt.Errorf("wikipedia: fetch dump rss: %w", err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return time.Time{}, fmt.Errorf("wikipedia: parse dump rss: %w", err)
	}
	if len(feed.Items) == 0 || feed.Items[0].PublishedParsed == nil {
		return time.Time{}, ErrMissingDumpDate
	}
	return *feed.Items[0].PublishedParsed, nil
}

// archiveFileName mirrors the original's enwiki-latest-<timestamp>.xml.bz2
// naming so a re-run against an unchanged dump recognises and reuses the
// file already on disk.
func archiveFileName(date time.Time) string {
	return fmt.Sprintf("enwiki-latest-%s.xml.bz2", date.UTC().Format("2006_01_02_15_04_05"))
}

// downloadArchive downloads dumpURL into dir, unless a file matching this
// date's name already exists there.
func downloadArchive(client HTTPGetter, date time.Time, dir string) (string, error) {
	target := filepath.Join(dir, archiveFileName(date))
	if _, err := os.Stat(target); err == nil {
		return target, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("wikipedia: stat %s: %w", target, err)
	}

	if err := client.GetToFile(dumpURL, target); err != nil {
		return "", fmt.Errorf("wikipedia: download archive: %w", err)
	}
	return target, nil
}

// createURL derives a page's canonical Wikipedia URL from its title. This
// is not a true slugify: only spaces are replaced, brackets and
// capitalisation are left untouched, matching how MediaWiki itself builds
// article URLs.
func createURL(title string) string {
	slug := strings.ReplaceAll(title, " ", "_")
	return "https://en.wikipedia.org/wiki/" + slug
}
