package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emilyselwood/ceridwen/internal/config"
	"github.com/emilyselwood/ceridwen/internal/ingest"
)

type countingIngester struct {
	mu    sync.Mutex
	calls int
}

func (c *countingIngester) Run(ctx context.Context, name string, options map[string]string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 1, nil
}

func newTestConfig(t *testing.T, targets []config.Ingester) *config.Config {
	path := filepath.Join(t.TempDir(), "ceridwen.toml")
	cfg, err := config.Load(path) // no file yet: seeds and saves a default config, bound to path
	require.NoError(t, err)
	cfg.Targets = targets
	require.NoError(t, cfg.Save())
	return cfg
}

func TestTickRunsDueTargetAndPersistsLastUpdate(t *testing.T) {
	targets := []config.Ingester{
		{Name: "rss-due", IngesterType: "rss", UpdateInterval: time.Hour, LastUpdate: time.Now().Add(-2 * time.Hour)},
	}
	cfg := newTestConfig(t, targets)

	due := &countingIngester{}
	s := &Scheduler{cfg: cfg, ingesters: map[string]ingest.Ingester{"rss": due}}
	s.tick(context.Background())

	due.mu.Lock()
	defer due.mu.Unlock()
	require.Equal(t, 1, due.calls)

	target := cfg.FindTarget("rss-due")
	require.NotNil(t, target)
	require.WithinDuration(t, time.Now(), target.LastUpdate, 5*time.Second)
}

func TestTickSkipsNotYetDueTarget(t *testing.T) {
	targets := []config.Ingester{
		{Name: "rss-fresh", IngesterType: "rss", UpdateInterval: time.Hour, LastUpdate: time.Now()},
	}
	cfg := newTestConfig(t, targets)

	notDue := &countingIngester{}
	s := &Scheduler{cfg: cfg, ingesters: map[string]ingest.Ingester{"rss": notDue}}
	s.tick(context.Background())

	notDue.mu.Lock()
	defer notDue.mu.Unlock()
	require.Equal(t, 0, notDue.calls)
}

func TestRunTargetSkipsUnknownIngesterType(t *testing.T) {
	targets := []config.Ingester{
		{Name: "mystery", IngesterType: "carrier-pigeon", UpdateInterval: time.Hour},
	}
	cfg := newTestConfig(t, targets)

	s := &Scheduler{cfg: cfg, ingesters: map[string]ingest.Ingester{}}
	s.runTarget(context.Background(), targets[0], time.Now())

	target := cfg.FindTarget("mystery")
	require.True(t, target.LastUpdate.IsZero())
}
