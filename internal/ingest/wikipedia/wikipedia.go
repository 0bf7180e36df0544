// Package wikipedia ingests the English Wikipedia multistream XML dump: poll
// its announcement feed for a newer archive, stream-decode the bz2 dump
// without ever holding it in memory, and index every non-redirect page.
package wikipedia

import (
	"compress/bzip2"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/emilyselwood/ceridwen/internal/ingest"
)

// Tokenizer is the textpipeline dependency, narrowed to an interface.
type Tokenizer interface {
	Tokenize(string) []string
	Filter([]string) []string
}

// Indexer is the narrow store dependency AddPage needs.
type Indexer interface {
	AddPage(tokenizer Tokenizer, url, title, content string, minUpdateInterval time.Duration, now time.Time) (bool, error)
}

// Ingester downloads and indexes the Wikipedia dump.
type Ingester struct {
	client            HTTPGetter
	store             Indexer
	tokenizer         Tokenizer
	workers           int
	minUpdateInterval time.Duration
	downloadDir       string
}

// New builds a Wikipedia Ingester. downloadDir is where the (large) archive
// is staged; workers is how many goroutines process pages concurrently.
func New(client HTTPGetter, store Indexer, tokenizer Tokenizer, workers int, minUpdateInterval time.Duration, downloadDir string) *Ingester {
	if workers < 1 {
		workers = 1
	}
	return &Ingester{
		client:            client,
		store:             store,
		tokenizer:         tokenizer,
		workers:           workers,
		minUpdateInterval: minUpdateInterval,
		downloadDir:       downloadDir,
	}
}

// lastUpdateOption is the options map key the scheduler sets to the
// ingester target's configured LastUpdate, letting this package decide
// whether the published dump is actually newer without importing
// internal/config.
const lastUpdateOption = "last_update"

// Run checks whether a newer dump has been published since the target's
// last recorded update; if so it downloads and indexes it, returning how
// many non-redirect pages were indexed.
func (in *Ingester) Run(ctx context.Context, name string, options map[string]string) (int, error) {
	lastUpdate := parseLastUpdate(options[lastUpdateOption])

	published, err := dumpDate(in.client)
	if err != nil {
		return 0, fmt.Errorf("wikipedia ingester %s: %w", name, err)
	}
	if !published.After(lastUpdate) {
		slog.Info("wikipedia dump has not changed since last ingest",
			slog.String("ingester", name), slog.Time("published", published), slog.Time("last_update", lastUpdate))
		return 0, nil
	}

	archivePath, err := downloadArchive(in.client, published, in.downloadDir)
	if err != nil {
		return 0, fmt.Errorf("wikipedia ingester %s: %w", name, err)
	}

	return in.processArchive(ctx, archivePath)
}

func parseLastUpdate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (in *Ingester) processArchive(ctx context.Context, archivePath string) (int, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("wikipedia: open archive %s: %w", archivePath, err)
	}
	defer file.Close()

	bz2Reader := bzip2.NewReader(file)

	pages := make(chan rawPage, in.workers)
	errs := make(chan error, 1)
	go ReadPages(bz2Reader, pages, errs)

	group, groupCtx := errgroup.WithContext(ctx)
	var indexed atomicCounter
	for i := 0; i < in.workers; i++ {
		group.Go(func() error {
			return in.pageWorker(groupCtx, pages, &indexed)
		})
	}

	if err := group.Wait(); err != nil {
		return indexed.value(), err
	}
	select {
	case err := <-errs:
		if err != nil {
			return indexed.value(), err
		}
	default:
	}
	return indexed.value(), nil
}

func (in *Ingester) pageWorker(ctx context.Context, pages <-chan rawPage, indexed *atomicCounter) error {
	now := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case page, ok := <-pages:
			if !ok {
				return nil
			}
			if strings.HasPrefix(page.Text, "#REDIRECT") {
				continue
			}
			url := createURL(page.Title)
			content := StripMarkup(page.Text)
			ok2, err := in.store.AddPage(in.tokenizer, url, page.Title, content, in.minUpdateInterval, now)
			if err != nil {
				slog.Warn("could not index wikipedia page", slog.String("title", page.Title), slog.Any("error", err))
				continue
			}
			if ok2 {
				indexed.increment()
			}
		}
	}
}

// LastUpdateOptionKey exposes lastUpdateOption to the scheduler, which sets
// it before invoking Run.
func LastUpdateOptionKey() string { return lastUpdateOption }

// Page is re-exported for callers that need the shared ingest.Page shape
// after reading a rawPage.
type Page = ingest.Page
