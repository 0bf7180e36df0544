// Package rss ingests an RSS/Atom feed: one Page per feed item, title and
// content (or description when an item has no content) indexed verbatim.
package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/emilyselwood/ceridwen/internal/ingest"
	"github.com/emilyselwood/ceridwen/internal/resilience/circuitbreaker"
	"github.com/emilyselwood/ceridwen/internal/resilience/retry"
)

// RobotsChecker decides whether the crawler is allowed to fetch a URL.
type RobotsChecker interface {
	Check(userAgent string, target *url.URL) (bool, error)
}

// Tokenizer is the textpipeline dependency, narrowed to an interface so this
// package has no direct import of internal/textpipeline.
type Tokenizer interface {
	Tokenize(string) []string
	Filter([]string) []string
}

// Indexer is the narrow store dependency AddPage needs.
type Indexer interface {
	AddPage(tokenizer Tokenizer, url, title, content string, minUpdateInterval time.Duration, now time.Time) (bool, error)
}

// Ingester fetches one RSS/Atom feed per Run call and indexes every item.
type Ingester struct {
	robots            RobotsChecker
	store             Indexer
	tokenizer         Tokenizer
	breaker           *circuitbreaker.CircuitBreaker
	retryCfg          retry.Config
	minUpdateInterval time.Duration
	userAgent         string
}

// New builds an RSS Ingester.
func New(robots RobotsChecker, store Indexer, tokenizer Tokenizer, minUpdateInterval time.Duration, userAgent string) *Ingester {
	return &Ingester{
		robots:            robots,
		store:             store,
		tokenizer:         tokenizer,
		breaker:           circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryCfg:          retry.FeedFetchConfig(),
		minUpdateInterval: minUpdateInterval,
		userAgent:         userAgent,
	}
}

// Run fetches the feed at options["base_url"] (which the scheduler fills
// from the target's configured base_url; Run itself has no other fallback)
// and indexes each item.
func (in *Ingester) Run(ctx context.Context, name string, options map[string]string) (int, error) {
	feedURL := options["base_url"]
	if feedURL == "" {
		return 0, fmt.Errorf("rss ingester %s: %w", name, ingest.ErrMissingBaseURL)
	}

	target, err := url.Parse(feedURL)
	if err != nil {
		return 0, fmt.Errorf("rss ingester %s: parse feed url: %w", name, err)
	}

	allowed, err := in.robots.Check(in.userAgent, target)
	if err != nil {
		return 0, fmt.Errorf("rss ingester %s: robots check: %w", name, err)
	}
	if !allowed {
		slog.Info("robots.txt disallows feed", slog.String("ingester", name), slog.String("url", feedURL))
		return 0, nil
	}

	feed, err := in.fetchFeed(ctx, feedURL)
	if err != nil {
		return 0, fmt.Errorf("rss ingester %s: fetch feed: %w", name, err)
	}

	now := time.Now()
	indexed := 0
	for _, item := range feed.Items {
		if item.Link == "" {
			slog.Warn("skipping feed item with no link", slog.String("ingester", name), slog.String("title", item.Title))
			continue
		}
		page := itemToPage(item)
		ok, err := in.store.AddPage(in.tokenizer, page.URL, page.Title, page.Content, in.minUpdateInterval, now)
		if err != nil {
			slog.Error("failed to index feed item",
				slog.String("ingester", name), slog.String("url", page.URL), slog.Any("error", err))
			continue
		}
		if ok {
			indexed++
		}
	}
	return indexed, nil
}

func (in *Ingester) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	var feed *gofeed.Feed
	err := retry.WithBackoff(ctx, in.retryCfg, func() error {
		result, err := in.breaker.Execute(func() (interface{}, error) {
			parser := gofeed.NewParser()
			parser.UserAgent = in.userAgent
			return parser.ParseURLWithContext(feedURL, ctx)
		})
		if err != nil {
			return err
		}
		feed = result.(*gofeed.Feed)
		return nil
	})
	return feed, err
}

func itemToPage(item *gofeed.Item) ingest.Page {
	title := item.Title
	if title == "" {
		title = "No title"
	}
	content := item.Content
	if content == "" {
		content = item.Description
	}
	if content == "" {
		content = "no content"
	}
	return ingest.Page{URL: item.Link, Title: title, Content: content}
}
