// Package scheduler drives periodic ingester runs against the persisted
// configuration. It deliberately departs from the original design (spec
// §9 "Shared config mutated across concurrent tasks"): the Scheduler owns
// the config and serializes every last_update write behind a mutex instead
// of letting concurrent ingester tasks race on it.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/emilyselwood/ceridwen/internal/config"
	"github.com/emilyselwood/ceridwen/internal/ingest"
	"github.com/emilyselwood/ceridwen/internal/ingest/rss"
	"github.com/emilyselwood/ceridwen/internal/ingest/spider"
	"github.com/emilyselwood/ceridwen/internal/ingest/wikipedia"
	"github.com/emilyselwood/ceridwen/internal/metrics"
)

// tickSchedule is how often the scheduler wakes up to check whether any
// target is due. Individual targets run on their own update_interval;
// this just bounds how promptly a due target is noticed.
const tickSchedule = "* * * * *"

// lastUpdateOption is the options map key used to hand an ingester its
// previous last_update timestamp, RFC3339-encoded.
const lastUpdateOption = "last_update"

// Scheduler owns the config and a registry of ingesters, dispatching due
// targets and serializing config mutations through mu.
type Scheduler struct {
	mu         sync.Mutex
	cfg        *config.Config
	ingesters  map[string]ingest.Ingester
	metrics    *metrics.Metrics
	pageCounts func() (int, error)
}

// New builds a Scheduler wired to the ingester implementations for every
// ingester_type the config may reference.
func New(cfg *config.Config, rssIngester *rss.Ingester, wikiIngester *wikipedia.Ingester, spiderIngester *spider.Ingester, m *metrics.Metrics, pageCounts func() (int, error)) *Scheduler {
	return &Scheduler{
		cfg: cfg,
		ingesters: map[string]ingest.Ingester{
			"rss":       rssIngester,
			"wikipedia": wikiIngester,
			"spider":    spiderIngester,
		},
		metrics:    m,
		pageCounts: pageCounts,
	}
}

// Run starts the cron-driven tick loop and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(tickSchedule, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("scheduler: add cron job: %w", err)
	}
	c.Start()
	defer c.Stop()

	<-ctx.Done()
	return ctx.Err()
}

// tick checks every configured target and dispatches the due ones
// concurrently, each as its own task.
func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	due := make([]config.Ingester, 0, len(s.cfg.Targets))
	for _, target := range s.cfg.Targets {
		nextRun := target.LastUpdate.Add(target.UpdateInterval)
		if nextRun.After(now) {
			slog.Debug("ingester not due", slog.String("target", target.Name), slog.Time("next_run", nextRun))
			continue
		}
		due = append(due, target)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, target := range due {
		wg.Add(1)
		go func(target config.Ingester) {
			defer wg.Done()
			s.runTarget(ctx, target, now)
		}(target)
	}
	wg.Wait()
}

// runTarget executes a single ingester and, on success, serializes the
// last_update write back into the shared config through s.mu.
func (s *Scheduler) runTarget(ctx context.Context, target config.Ingester, startedAt time.Time) {
	ingester, ok := s.ingesters[target.IngesterType]
	if !ok {
		slog.Error("unknown ingester type", slog.String("target", target.Name), slog.String("ingester_type", target.IngesterType))
		return
	}

	options := map[string]string{}
	for k, v := range target.Options {
		options[k] = v
	}
	if target.BaseURL != "" {
		options["base_url"] = target.BaseURL
	}
	options[lastUpdateOption] = target.LastUpdate.Format(time.RFC3339)

	start := time.Now()
	count, err := ingest.RunIsolated(ctx, target.Name, ingester, options)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "failure"
	}
	if s.metrics != nil {
		s.metrics.RecordIngesterRun(target.Name, status, duration, count)
		if s.pageCounts != nil {
			if n, countErr := s.pageCounts(); countErr == nil {
				s.metrics.StoreTermCount.Set(float64(n))
			}
		}
	}
	if err != nil {
		return
	}

	s.mu.Lock()
	if t := s.cfg.FindTarget(target.Name); t != nil {
		t.LastUpdate = startedAt
	}
	saveErr := s.cfg.Save()
	s.mu.Unlock()

	if saveErr != nil {
		slog.Error("failed to persist config after ingester run", slog.String("target", target.Name), slog.Any("error", saveErr))
	}
}
