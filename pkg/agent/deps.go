package agent

import (
	"context"

	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/scrape"
)

// SearchProvider executes one web query and returns provider-ranked results.
// Provider errors are not retried by the loop.
type SearchProvider interface {
	Search(ctx context.Context, query string, count int) ([]SearchResult, error)
}

// PageScraper fetches a batch of URLs, reporting every URL's outcome.
type PageScraper interface {
	ScrapePages(ctx context.Context, urls []string) *scrape.BulkResponse
}
