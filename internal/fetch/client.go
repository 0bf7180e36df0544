// Package fetch is the crawler's HTTP client: GET into memory or to a file
// on disk, with a circuit breaker around the underlying transport so a
// single unreachable host can't stall every ingester sharing this client.
package fetch

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/emilyselwood/ceridwen/internal/resilience/circuitbreaker"
)

// UserAgent identifies every request this client makes, used both on the
// wire and when matching robots.txt user-agent blocks.
const UserAgent = "ceridwen-crawler"

// logProgressThreshold is the fraction of a known content length that must
// download before another debug log line is emitted.
const logProgressThreshold = 0.01

// logProgressBytes is how many bytes to download between log lines when the
// content length is unknown.
const logProgressBytes = 100 * humanize.MByte

// Client wraps http.Client with the crawler's user agent, TLS floor, and a
// circuit breaker around every request.
type Client struct {
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
}

// New builds a Client with pooled keep-alive connections and TLS 1.2+
// enforced.
func New() *Client {
	return &Client{
		http: &http.Client{
			Timeout: 2 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		breaker: circuitbreaker.New(circuitbreaker.CrawlerFetchConfig()),
	}
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", UserAgent)
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.http.Do(req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

// Get fetches targetURL and returns its body in full.
func (c *Client) Get(targetURL string) ([]byte, error) {
	start := time.Now()
	slog.Debug("making request", slog.String("url", targetURL))

	req, err := http.NewRequest(http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request for %s: %w", targetURL, err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: request %s: %w", targetURL, err)
	}
	defer resp.Body.Close()

	slog.Debug("got response", slog.String("url", targetURL), slog.Int("status", resp.StatusCode))
	if resp.StatusCode == http.StatusNotFound {
		return nil, NewPageNotFoundError(targetURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &requestError{url: targetURL, statusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch: read body of %s: %w", targetURL, err)
	}
	slog.Debug("response size",
		slog.String("url", targetURL),
		slog.Int("bytes", len(body)),
		slog.Duration("elapsed", time.Since(start)))
	return body, nil
}

// GetToFile streams targetURL's body to targetPath, creating parent
// directories as needed and truncating any existing file. Download progress
// is logged roughly every 1% when the response declares a content length,
// or every 100MB when it doesn't.
func (c *Client) GetToFile(targetURL, targetPath string) error {
	slog.Debug("downloading", slog.String("url", targetURL), slog.String("to", targetPath))

	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("fetch: create directory for %s: %w", targetPath, err)
	}
	file, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("fetch: open %s: %w", targetPath, err)
	}
	defer file.Close()

	req, err := http.NewRequest(http.MethodGet, targetURL, nil)
	if err != nil {
		return fmt.Errorf("fetch: build request for %s: %w", targetURL, err)
	}
	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("fetch: request %s: %w", targetURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return NewPageNotFoundError(targetURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &requestError{url: targetURL, statusCode: resp.StatusCode}
	}

	contentLength := resp.ContentLength
	start := time.Now()
	return streamToFile(file, resp.Body, targetURL, targetPath, contentLength, start)
}

func streamToFile(file *os.File, body io.Reader, targetURL, targetPath string, contentLength int64, start time.Time) error {
	buf := make([]byte, 64*1024)
	var downloaded, lastLogged int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			written, writeErr := file.Write(buf[:n])
			if writeErr != nil {
				return fmt.Errorf("fetch: write chunk to %s: %w", targetPath, writeErr)
			}
			if written != n {
				slog.Warn("incomplete write of download chunk, aborting", slog.String("url", targetURL))
				return fmt.Errorf("%w: %s (%d bytes written)", ErrIncompleteWrite, targetPath, downloaded+int64(written))
			}
			downloaded += int64(written)
			logDownloadProgress(targetURL, downloaded, &lastLogged, contentLength)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("fetch: read body of %s: %w", targetURL, readErr)
		}
	}
	slog.Debug("download complete", slog.String("url", targetURL), slog.Duration("elapsed", time.Since(start)))
	return nil
}

func logDownloadProgress(targetURL string, downloaded int64, lastLogged *int64, contentLength int64) {
	if contentLength > 0 {
		if percentage(contentLength, downloaded-*lastLogged) > logProgressThreshold*100 {
			slog.Debug("download progress",
				slog.String("url", targetURL),
				slog.String("percent", fmt.Sprintf("%.2f%%", percentage(contentLength, downloaded))),
				slog.String("downloaded", humanize.Bytes(uint64(downloaded))),
				slog.String("total", humanize.Bytes(uint64(contentLength))))
			*lastLogged = downloaded
		}
		return
	}
	if downloaded-*lastLogged > logProgressBytes {
		slog.Debug("download progress",
			slog.String("url", targetURL),
			slog.String("downloaded", humanize.Bytes(uint64(downloaded))))
		*lastLogged = downloaded
	}
}

// percentage returns what proportion of whole the value part represents, as
// a number from 0 to 100.
func percentage(whole, part int64) float64 {
	if whole <= 0 {
		return 0
	}
	return (float64(part) / float64(whole)) * 100
}
