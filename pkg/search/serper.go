package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/agent"
)

const serperEndpoint = "https://google.serper.dev/search"

// Serper queries the Serper.dev Google Search API. Results keep the
// provider's ranking order; errors are surfaced to the caller without
// retries.
type Serper struct {
	apiKey string
	client *http.Client
}

func NewSerper(apiKey string) *Serper {
	return &Serper{apiKey: apiKey, client: &http.Client{Timeout: 10 * time.Second}}
}

func NewSerperWithClient(apiKey string, client *http.Client) *Serper {
	return &Serper{apiKey: apiKey, client: client}
}

func (s *Serper) Search(ctx context.Context, query string, count int) ([]agent.SearchResult, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("SERPER_API_KEY is not set")
	}

	body, err := json.Marshal(map[string]any{"q": query, "num": count})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serperEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var payload struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
			Date    string `json:"date"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]agent.SearchResult, 0, len(payload.Organic))
	for _, r := range payload.Organic {
		results = append(results, agent.SearchResult{
			Title:   r.Title,
			URL:     r.Link,
			Snippet: r.Snippet,
			Date:    r.Date,
		})
		if count > 0 && len(results) >= count {
			break
		}
	}
	return results, nil
}
