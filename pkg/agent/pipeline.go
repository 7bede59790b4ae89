package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ContentUnavailable is substituted for the page text of any URL that could
// not be scraped.
const ContentUnavailable = "content unavailable"

// Pipeline runs the search → scrape → summarize sequence for planned
// queries.
type Pipeline struct {
	search      SearchProvider
	scraper     PageScraper
	summarizer  *Summarizer
	resultCount int
	logger      *slog.Logger
}

func NewPipeline(search SearchProvider, scraper PageScraper, summarizer *Summarizer, resultCount int, logger *slog.Logger) *Pipeline {
	if resultCount < 1 {
		resultCount = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		search:      search,
		scraper:     scraper,
		summarizer:  summarizer,
		resultCount: resultCount,
		logger:      logger,
	}
}

// QueryOutcome is the settled result of one query's pipeline run.
type QueryOutcome struct {
	Query  string
	Record SearchRecord
	Err    error
}

// RunBatch runs every query's full pipeline concurrently with settle-all
// semantics: one query's total failure never aborts the others. Outcomes
// are returned in the input query order.
func (p *Pipeline) RunBatch(ctx context.Context, rc *ResearchContext, queries []string) []QueryOutcome {
	outcomes := make([]QueryOutcome, len(queries))
	var wg sync.WaitGroup

	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			record, err := p.runQuery(ctx, rc, q)
			outcomes[i] = QueryOutcome{Query: q, Record: record, Err: err}
		}(i, q)
	}
	wg.Wait()

	return outcomes
}

// runQuery executes search → bulk scrape → parallel summarize for one
// query, preserving the provider's result order.
func (p *Pipeline) runQuery(ctx context.Context, rc *ResearchContext, query string) (SearchRecord, error) {
	results, err := p.search.Search(ctx, query, p.resultCount)
	if err != nil {
		return SearchRecord{}, fmt.Errorf("search failed for %q: %w", query, err)
	}
	if len(results) == 0 {
		return SearchRecord{Query: query, Results: []ResultItem{}}, nil
	}

	urls := make([]string, len(results))
	for i, r := range results {
		urls[i] = r.URL
	}
	crawl := p.scraper.ScrapePages(ctx, urls)

	// Pair scraped content back onto results by URL.
	content := make(map[string]string, len(crawl.Results))
	anyScraped := false
	for _, page := range crawl.Results {
		if page.Success {
			content[page.URL] = page.Content
			anyScraped = true
		} else {
			content[page.URL] = ContentUnavailable
		}
	}

	items := make([]ResultItem, len(results))
	for i, r := range results {
		date := r.Date
		if date == "" {
			date = "Unknown date"
		}
		items[i] = ResultItem{
			Date:    date,
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Snippet,
			Favicon: FaviconURL(r.URL),
		}
	}

	if !anyScraped {
		// The whole scrape step failed; carry the raw snippets forward.
		p.logger.Warn("All scrapes failed, falling back to snippets", "query", query)
		for i := range items {
			items[i].Summary = items[i].Snippet
		}
		return SearchRecord{Query: query, Results: items}, nil
	}

	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pageText := content[items[i].URL]
			summary, err := p.summarizer.Summarize(ctx, SummarizeInput{
				Query:        query,
				URL:          items[i].URL,
				Title:        items[i].Title,
				Snippet:      items[i].Snippet,
				Date:         items[i].Date,
				Content:      pageText,
				Conversation: rc.Conversation(),
			})
			if err != nil {
				p.logger.Warn("Summarization failed, using fallback", "url", items[i].URL, "error", err)
				if pageText == ContentUnavailable {
					summary = items[i].Snippet
				} else {
					summary = fallbackSummary(pageText)
				}
			}
			items[i].Summary = summary
		}(i)
	}
	wg.Wait()

	return SearchRecord{Query: query, Results: items}, nil
}
