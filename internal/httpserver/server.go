// Package httpserver is the external search surface: a home page, an
// HTML/JSON search endpoint, and static asset routes. It is an external
// collaborator to the crawler/index core, not part of it.
package httpserver

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/emilyselwood/ceridwen/internal/httpserver/requestid"
	"github.com/emilyselwood/ceridwen/internal/metrics"
	"github.com/emilyselwood/ceridwen/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

const defaultRequestTimeout = 30 * time.Second

// Searcher is the narrow dependency the search handlers need.
type Searcher interface {
	Search(query string) ([]store.SearchResult, error)
}

// Server serves the search home page and results.
type Server struct {
	searcher       Searcher
	metrics        *metrics.Metrics
	tmpl           *template.Template
	static         http.Handler
	requestTimeout time.Duration
}

// New builds a Server. staticDir may be empty, in which case static asset
// routes 404. requestTimeout of zero uses defaultRequestTimeout, matching
// config.ServerConfig.RequestTimeout's zero-value behavior.
func New(searcher Searcher, m *metrics.Metrics, staticDir string, requestTimeout time.Duration) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("httpserver: parse templates: %w", err)
	}

	var static http.Handler = http.NotFoundHandler()
	if staticDir != "" {
		static = http.FileServer(http.Dir(staticDir))
	}

	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	return &Server{searcher: searcher, metrics: m, tmpl: tmpl, static: static, requestTimeout: requestTimeout}, nil
}

// Handler builds the full routed, middleware-wrapped http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /search", s.handleSearchHTML)
	mux.HandleFunc("POST /search", s.handleSearchJSON)
	mux.Handle("GET /img/", s.static)
	mux.Handle("GET /css/", s.static)
	mux.Handle("GET /scripts/", s.static)
	mux.Handle("GET /fonts/", s.static)
	mux.Handle("GET /favicon.ico", s.static)

	return requestid.Middleware(withTimeout(s.requestTimeout, logRequests(mux)))
}

// ListenAndServe runs the server until ctx is cancelled, then shuts it down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("httpserver: shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if err := s.tmpl.ExecuteTemplate(w, "home.html", nil); err != nil {
		writeError(w, err)
	}
}

func (s *Server) handleSearchHTML(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results, err := s.runSearch(query)
	if err != nil {
		writeError(w, err)
		return
	}

	data := struct {
		Query   string
		Results []store.SearchResult
	}{Query: query, Results: results}

	if err := s.tmpl.ExecuteTemplate(w, "search.html", data); err != nil {
		writeError(w, err)
	}
}

func (s *Server) handleSearchJSON(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results, err := s.runSearch(query)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(results); err != nil {
		slog.Error("failed to encode search response", slog.Any("error", err))
	}
}

func (s *Server) runSearch(query string) ([]store.SearchResult, error) {
	start := time.Now()
	results, err := s.searcher.Search(query)
	if s.metrics != nil {
		s.metrics.RecordSearch(time.Since(start).Seconds())
	}
	return results, err
}

// writeError implements spec §6: "All server errors return 500 with the
// error message as body."
func writeError(w http.ResponseWriter, err error) {
	slog.Error("request failed", slog.Any("error", err))
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(err.Error()))
}
