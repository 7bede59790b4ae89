package agent

import (
	"fmt"
	"net/url"
)

// ChatMessage is one turn of the conversation supplied by the caller.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// UserLocation is optional caller-supplied location context.
type UserLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
}

// SearchResult is a single ranked item returned by the search provider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Date    string `json:"date,omitempty"`
}

// ResultItem is one search result after its page has been scraped and
// summarized.
type ResultItem struct {
	Date    string `json:"date"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Summary string `json:"summary"`
	Favicon string `json:"favicon"`
}

// SearchRecord is the accumulated outcome of one query's full
// search-scrape-summarize pipeline. Results keep the provider's ranking
// order.
type SearchRecord struct {
	Query   string       `json:"query"`
	Results []ResultItem `json:"results"`
}

// PlanResult is the query planner's output: a research plan and between one
// and five distinct search queries.
type PlanResult struct {
	Plan    string   `json:"plan"`
	Queries []string `json:"queries"`
}

// Verdict is the decision maker's continue/answer choice.
type Verdict string

const (
	VerdictContinue Verdict = "continue"
	VerdictAnswer   Verdict = "answer"
)

// Decision is the decision maker's output. Feedback names the concrete gaps
// the next planning round should close.
type Decision struct {
	Decision  Verdict `json:"decision"`
	Reasoning string  `json:"reasoning"`
	Feedback  string  `json:"feedback"`
}

// PlanningError indicates the planner could not produce a valid plan, either
// because the generation provider failed or because its output violated the
// query-count bound after all retries.
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed: %v", e.Err)
}

func (e *PlanningError) Unwrap() error {
	return e.Err
}

// FaviconURL derives a favicon URL from the host of a search result URL.
// Returns "" when the URL does not parse.
func FaviconURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return "https://www.google.com/s2/favicons?domain=" + u.Host
}
