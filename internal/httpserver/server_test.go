package httpserver

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emilyselwood/ceridwen/internal/store"
)

type fakeSearcher struct {
	results []store.SearchResult
	err     error
}

func (f *fakeSearcher) Search(query string) ([]store.SearchResult, error) {
	return f.results, f.err
}

func TestHandleHome(t *testing.T) {
	srv, err := New(&fakeSearcher{}, nil, "", 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Ceridwen")
}

func TestHandleSearchJSON(t *testing.T) {
	searcher := &fakeSearcher{results: []store.SearchResult{{URL: "https://example.com", Title: "Example"}}}
	srv, err := New(searcher, nil, "", 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/search?q=example", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "example.com")
}

func TestHandleSearchHTML(t *testing.T) {
	searcher := &fakeSearcher{results: []store.SearchResult{{URL: "https://example.com", Title: "Example"}}}
	srv, err := New(searcher, nil, "", 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/search?q=example", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Example")
}

func TestHandleSearchErrorReturns500WithMessage(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("store unavailable")}
	srv, err := New(searcher, nil, "", 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/search?q=example", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "store unavailable")
}

func TestNewDefaultsZeroRequestTimeout(t *testing.T) {
	srv, err := New(&fakeSearcher{}, nil, "", 0)
	require.NoError(t, err)
	require.Equal(t, defaultRequestTimeout, srv.requestTimeout)
}

func TestNewHonorsExplicitRequestTimeout(t *testing.T) {
	srv, err := New(&fakeSearcher{}, nil, "", 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, srv.requestTimeout)
}

func TestRequestIDHeaderSet(t *testing.T) {
	srv, err := New(&fakeSearcher{}, nil, "", 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
