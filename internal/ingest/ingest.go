// Package ingest defines the shared contract every ingester type (RSS,
// Wikipedia, spider) implements, plus the failure-isolation wrapper the
// scheduler runs each of them through.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Page is a single fetched document ready for indexing.
type Page struct {
	URL     string
	Title   string
	Content string
}

// ErrUnknownIngesterType is returned when a config entry names an
// ingester_type with no registered implementation.
var ErrUnknownIngesterType = errors.New("ingest: unknown ingester type")

// ErrMissingBaseURL is returned by ingesters that require base_url when a
// config entry omits it.
var ErrMissingBaseURL = errors.New("ingest: missing base_url")

// Ingester processes one configured target, indexing every page it finds.
type Ingester interface {
	// Run fetches and indexes content for the given target name, returning
	// the number of pages it indexed.
	Run(ctx context.Context, name string, options map[string]string) (int, error)
}

// RunIsolated runs ingester.Run, recovering a panic into an error so one
// misbehaving ingester can't take down the scheduler loop driving the
// others. Every outcome, success or failure, is logged with the ingester
// name attached.
func RunIsolated(ctx context.Context, name string, ingester Ingester, options map[string]string) (count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ingest: %s panicked: %v", name, r)
		}
		if err != nil {
			slog.Error("ingester run failed", slog.String("ingester", name), slog.Any("error", err))
			return
		}
		slog.Info("ingester run complete", slog.String("ingester", name), slog.Int("pages_indexed", count))
	}()
	return ingester.Run(ctx, name, options)
}
