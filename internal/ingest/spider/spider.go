// Package spider implements the generic same-host web crawler ingester: a
// breadth-first walk from a base URL, respecting robots.txt, extracting
// readable article text (falling back to a plain-text scrape when
// Readability can't find an article), and following same-host links until
// a page budget is exhausted.
package spider

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/emilyselwood/ceridwen/internal/ingest"
)

// defaultMaxPages bounds a spider run when the target's options map doesn't
// set max_pages.
const defaultMaxPages = 50

// Fetcher is the narrow HTTP dependency this package needs.
type Fetcher interface {
	Get(url string) ([]byte, error)
}

// RobotsChecker decides whether the crawler may fetch a URL.
type RobotsChecker interface {
	Check(userAgent string, target *url.URL) (bool, error)
}

// Tokenizer is the textpipeline dependency, narrowed to an interface.
type Tokenizer interface {
	Tokenize(string) []string
	Filter([]string) []string
}

// Indexer is the narrow store dependency AddPage needs.
type Indexer interface {
	AddPage(tokenizer Tokenizer, url, title, content string, minUpdateInterval time.Duration, now time.Time) (bool, error)
}

// Ingester crawls a single site starting from a configured base URL.
type Ingester struct {
	fetcher           Fetcher
	robots            RobotsChecker
	store             Indexer
	tokenizer         Tokenizer
	minUpdateInterval time.Duration
	userAgent         string
}

// New builds a spider Ingester.
func New(fetcher Fetcher, robots RobotsChecker, store Indexer, tokenizer Tokenizer, minUpdateInterval time.Duration, userAgent string) *Ingester {
	return &Ingester{
		fetcher:           fetcher,
		robots:            robots,
		store:             store,
		tokenizer:         tokenizer,
		minUpdateInterval: minUpdateInterval,
		userAgent:         userAgent,
	}
}

// Run walks same-host links breadth-first from options["base_url"], up to
// options["max_pages"] pages (default defaultMaxPages), indexing each one.
func (in *Ingester) Run(ctx context.Context, name string, options map[string]string) (int, error) {
	baseURL := options["base_url"]
	if baseURL == "" {
		return 0, fmt.Errorf("spider ingester %s: %w", name, ingest.ErrMissingBaseURL)
	}
	start, err := url.Parse(baseURL)
	if err != nil {
		return 0, fmt.Errorf("spider ingester %s: parse base_url: %w", name, err)
	}

	maxPages := defaultMaxPages
	if raw, ok := options["max_pages"]; ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			maxPages = n
		}
	}

	visited := map[string]bool{start.String(): true}
	frontier := []*url.URL{start}
	indexed := 0
	now := time.Now()

	for len(frontier) > 0 && indexed < maxPages {
		select {
		case <-ctx.Done():
			return indexed, ctx.Err()
		default:
		}

		target := frontier[0]
		frontier = frontier[1:]

		allowed, err := in.robots.Check(in.userAgent, target)
		if err != nil {
			slog.Warn("robots check failed, skipping page", slog.String("url", target.String()), slog.Any("error", err))
			continue
		}
		if !allowed {
			continue
		}

		body, err := in.fetcher.Get(target.String())
		if err != nil {
			slog.Warn("failed to fetch page", slog.String("url", target.String()), slog.Any("error", err))
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
		if err != nil {
			slog.Warn("failed to parse page", slog.String("url", target.String()), slog.Any("error", err))
			continue
		}

		title, content := extractContent(body, target, doc)
		ok, err := in.store.AddPage(in.tokenizer, target.String(), title, content, in.minUpdateInterval, now)
		if err != nil {
			slog.Warn("failed to index page", slog.String("url", target.String()), slog.Any("error", err))
		} else if ok {
			indexed++
		}

		for _, next := range sameHostLinks(doc, start, target) {
			key := next.String()
			if !visited[key] {
				visited[key] = true
				frontier = append(frontier, next)
			}
		}
	}

	return indexed, nil
}

// extractContent tries Readability first; if it finds nothing usable it
// falls back to a plain-text scrape with <script>/<style> stripped and
// whitespace collapsed.
func extractContent(body []byte, target *url.URL, doc *goquery.Document) (title, content string) {
	article, err := readability.FromReader(strings.NewReader(string(body)), target)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.Title, article.TextContent
	}

	doc.Find("script,style").Remove()
	text := doc.Find("body").Text()
	return doc.Find("title").Text(), collapseWhitespace(text)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// sameHostLinks extracts every <a href> on doc that resolves to the same
// host as base, relative to page.
func sameHostLinks(doc *goquery.Document, base, page *url.URL) []*url.URL {
	var links []*url.URL
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		resolved, err := page.Parse(href)
		if err != nil {
			return
		}
		if resolved.Host != base.Host {
			return
		}
		resolved.Fragment = ""
		links = append(links, resolved)
	})
	return links
}
