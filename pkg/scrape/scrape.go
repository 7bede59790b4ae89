package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 500 * time.Millisecond
	defaultMaxDelay   = 8 * time.Second
)

// Fetcher retrieves the rendered text of a single URL. Transient network
// failures and non-2xx responses both surface as errors and are retried
// identically by the Scraper.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// PageResult is the outcome of scraping one URL.
type PageResult struct {
	URL     string `json:"url"`
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BulkResponse carries every URL's outcome. Success is true only if every
// URL succeeded; callers can still recover partial results when it is false.
type BulkResponse struct {
	Success bool         `json:"success"`
	Results []PageResult `json:"results"`
}

// Scraper fetches batches of URLs with bounded per-URL retries and
// exponential backoff.
type Scraper struct {
	fetcher    Fetcher
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *slog.Logger
}

type Option func(*Scraper)

func WithMaxRetries(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

func WithBackoff(base, max time.Duration) Option {
	return func(s *Scraper) {
		if base > 0 {
			s.baseDelay = base
		}
		if max > 0 {
			s.maxDelay = max
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scraper) { s.logger = logger }
}

func New(fetcher Fetcher, opts ...Option) *Scraper {
	s := &Scraper{
		fetcher:    fetcher,
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScrapePages fetches every URL concurrently. Each URL is retried
// independently; one URL exhausting its retries does not affect the others.
// Result order matches the input URL order.
func (s *Scraper) ScrapePages(ctx context.Context, urls []string) *BulkResponse {
	results := make([]PageResult, len(urls))
	var wg sync.WaitGroup

	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			content, err := s.fetchWithRetry(ctx, url)
			if err != nil {
				s.logger.Warn("Scrape failed permanently", "url", url, "error", err)
				results[i] = PageResult{URL: url, Success: false, Error: err.Error()}
				return
			}
			results[i] = PageResult{URL: url, Success: true, Content: content}
		}(i, url)
	}
	wg.Wait()

	allOK := true
	for _, r := range results {
		if !r.Success {
			allOK = false
			break
		}
	}
	return &BulkResponse{Success: allOK, Results: results}
}

func (s *Scraper) fetchWithRetry(ctx context.Context, url string) (string, error) {
	var lastErr error
	delay := s.baseDelay

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if attempt > 1 {
			s.logger.Debug("Retrying scrape", "url", url, "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > s.maxDelay {
				delay = s.maxDelay
			}
		}

		content, err := s.fetcher.Fetch(ctx, url)
		if err == nil {
			return content, nil
		}
		lastErr = err
	}

	return "", fmt.Errorf("failed to scrape %s after %d attempts: %w", url, s.maxRetries, lastErr)
}
