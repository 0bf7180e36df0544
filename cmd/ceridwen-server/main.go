// Command ceridwen-server is the process supervisor: it acquires the
// single-instance lockfile, loads configuration, and runs the HTTP search
// surface and the ingestion scheduler as concurrent tasks until either one
// exits or the process receives a termination signal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/emilyselwood/ceridwen/internal/config"
	"github.com/emilyselwood/ceridwen/internal/fetch"
	"github.com/emilyselwood/ceridwen/internal/httpserver"
	"github.com/emilyselwood/ceridwen/internal/ingest/rss"
	"github.com/emilyselwood/ceridwen/internal/ingest/spider"
	"github.com/emilyselwood/ceridwen/internal/ingest/wikipedia"
	"github.com/emilyselwood/ceridwen/internal/logging"
	"github.com/emilyselwood/ceridwen/internal/metrics"
	"github.com/emilyselwood/ceridwen/internal/robots"
	"github.com/emilyselwood/ceridwen/internal/scheduler"
	"github.com/emilyselwood/ceridwen/internal/search"
	"github.com/emilyselwood/ceridwen/internal/store"
	"github.com/emilyselwood/ceridwen/internal/supervisor"
	"github.com/emilyselwood/ceridwen/internal/textpipeline"
)

// stdTokenizer adapts the free functions in textpipeline to the Tokenizer
// interface every consumer package expects.
type stdTokenizer struct{}

func (stdTokenizer) Tokenize(s string) []string { return textpipeline.Tokenize(s) }
func (stdTokenizer) Filter(t []string) []string { return textpipeline.Filter(t) }

func main() {
	logger := logging.New()

	root, err := systemRoot()
	if err != nil {
		logger.Error("failed to resolve system root", slog.Any("error", err))
		os.Exit(1)
	}

	lock, err := supervisor.Acquire(filepath.Join(root, "ceridwen.lock"))
	if err != nil {
		logger.Error("failed to acquire lockfile", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Error("failed to release lockfile", slog.Any("error", err))
		}
	}()

	if err := run(root, logger); err != nil {
		logger.Error("ceridwen exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(root string, logger *slog.Logger) error {
	cfg, err := config.Load(filepath.Join(root, "config.toml"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	idx, err := store.Open(filepath.Join(root, "index"))
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer func() {
		if err := idx.Close(); err != nil {
			logger.Error("failed to close index", slog.Any("error", err))
		}
	}()

	m := metrics.New()
	client := fetch.New()
	robotsChecker := robotsAdapter{client: client}
	tokenizer := stdTokenizer{}

	rssIngester := rss.New(robotsChecker, idx, tokenizer, cfg.Crawler.MinUpdateInterval, fetch.UserAgent)
	wikiDir := filepath.Join(os.TempDir(), "ceridwen", "wikipedia")
	wikiIngester := wikipedia.New(client, idx, tokenizer, cfg.Crawler.Workers, cfg.Crawler.MinUpdateInterval, wikiDir)
	spiderIngester := spider.New(client, robotsChecker, idx, tokenizer, cfg.Crawler.MinUpdateInterval, fetch.UserAgent)

	sched := scheduler.New(cfg, rssIngester, wikiIngester, spiderIngester, m, nil)

	srv, err := httpserver.New(searchAdapter{idx: idx}, m, "", cfg.Server.RequestTimeout)
	if err != nil {
		return fmt.Errorf("build http server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.ListenAndServe(gctx, fmt.Sprintf(":%d", cfg.Server.Port))
	})
	group.Go(func() error {
		return sched.Run(gctx)
	})

	if err := group.Wait(); err != nil && gctx.Err() == nil {
		return err
	}
	return nil
}

// systemRoot returns $HOME/.ceridwen, or $CERIDWEN_HOME if set.
func systemRoot() (string, error) {
	if override := os.Getenv("CERIDWEN_HOME"); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".ceridwen"), nil
}

// robotsAdapter bridges fetch.Client to the ingesters' RobotsChecker
// interface, via the robots package's stateless Check helper.
type robotsAdapter struct {
	client *fetch.Client
}

func (r robotsAdapter) Get(targetURL string) ([]byte, error) { return r.client.Get(targetURL) }

func (r robotsAdapter) Check(userAgent string, target *url.URL) (bool, error) {
	return robots.Check(r, userAgent, target)
}

// searchAdapter bridges the store to the httpserver.Searcher interface via
// the package-level search.Search function.
type searchAdapter struct {
	idx *store.Store
}

func (s searchAdapter) Search(query string) ([]store.SearchResult, error) {
	return search.Search(s.idx, query)
}
