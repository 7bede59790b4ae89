package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

func fiveResults(host string) []SearchResult {
	return []SearchResult{
		{Title: "r1", URL: "https://" + host + "/1", Snippet: "s1", Date: "2026-01-01"},
		{Title: "r2", URL: "https://" + host + "/2", Snippet: "s2"},
		{Title: "r3", URL: "https://" + host + "/3", Snippet: "s3"},
		{Title: "r4", URL: "https://" + host + "/4", Snippet: "s4"},
		{Title: "r5", URL: "https://" + host + "/5", Snippet: "s5"},
	}
}

func TestRunQueryPairsAndOrders(t *testing.T) {
	search := &fakeSearch{results: map[string][]SearchResult{"q": fiveResults("a.example")}}
	llm := &fakeLLM{responses: []string{"summary"}}
	p := NewPipeline(search, &fakeScraper{}, NewSummarizer(llm, nil, nil), 10, nil)

	record, err := p.runQuery(context.Background(), NewResearchContext(userConversation("q"), nil), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(record.Results) != 5 {
		t.Fatalf("expected 5 items, got %d", len(record.Results))
	}
	for i, item := range record.Results {
		want := fiveResults("a.example")[i]
		if item.URL != want.URL {
			t.Errorf("item %d: expected provider order preserved, got %s", i, item.URL)
		}
		if item.Summary != "summary" {
			t.Errorf("item %d: expected summary, got %q", i, item.Summary)
		}
		if item.Favicon == "" {
			t.Errorf("item %d: expected favicon derived from url host", i)
		}
	}
	if record.Results[1].Date != "Unknown date" {
		t.Errorf("expected missing date rendered as Unknown date, got %q", record.Results[1].Date)
	}
}

func TestRunQuerySummarizerFallback(t *testing.T) {
	search := &fakeSearch{results: map[string][]SearchResult{"q": fiveResults("a.example")}}
	// Summarization fails only for the page whose content mentions /3.
	llm := &fakeLLM{respond: func(call int, messages []llms.MessageContent) (string, error) {
		for _, m := range messages {
			for _, part := range m.Parts {
				if tc, ok := part.(llms.TextContent); ok && strings.Contains(tc.Text, "a.example/3") && m.Role == llms.ChatMessageTypeHuman {
					return "", errors.New("model overloaded")
				}
			}
		}
		return "summary", nil
	}}
	p := NewPipeline(search, &fakeScraper{}, NewSummarizer(llm, nil, nil), 10, nil)

	record, err := p.runQuery(context.Background(), NewResearchContext(userConversation("q"), nil), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(record.Results) != 5 {
		t.Fatalf("expected all 5 items despite one failure, got %d", len(record.Results))
	}
	for _, item := range record.Results {
		if item.URL == "https://a.example/3" {
			if !strings.HasPrefix(item.Summary, "scraped text of") {
				t.Errorf("expected truncated-content fallback, got %q", item.Summary)
			}
		} else if item.Summary != "summary" {
			t.Errorf("expected normal summary for %s, got %q", item.URL, item.Summary)
		}
	}
}

func TestRunQueryScrapedSentinelFallsBackToSnippet(t *testing.T) {
	search := &fakeSearch{results: map[string][]SearchResult{"q": fiveResults("a.example")}}
	scraper := &fakeScraper{fail: map[string]bool{"https://a.example/2": true}}
	// Summarization fails for the unscrapeable page too.
	llm := &fakeLLM{respond: func(call int, messages []llms.MessageContent) (string, error) {
		for _, m := range messages {
			for _, part := range m.Parts {
				if tc, ok := part.(llms.TextContent); ok && strings.Contains(tc.Text, ContentUnavailable) && m.Role == llms.ChatMessageTypeHuman {
					return "", errors.New("model overloaded")
				}
			}
		}
		return "summary", nil
	}}
	p := NewPipeline(search, scraper, NewSummarizer(llm, nil, nil), 10, nil)

	record, err := p.runQuery(context.Background(), NewResearchContext(userConversation("q"), nil), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, item := range record.Results {
		if item.URL == "https://a.example/2" && item.Summary != "s2" {
			t.Errorf("expected snippet fallback for unscrapeable page, got %q", item.Summary)
		}
	}
}

func TestRunQueryAllScrapesFail(t *testing.T) {
	search := &fakeSearch{results: map[string][]SearchResult{"q": fiveResults("a.example")}}
	llm := &fakeLLM{responses: []string{"summary"}}
	p := NewPipeline(search, &fakeScraper{failAll: true}, NewSummarizer(llm, nil, nil), 10, nil)

	record, err := p.runQuery(context.Background(), NewResearchContext(userConversation("q"), nil), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, item := range record.Results {
		if item.Summary != item.Snippet {
			t.Errorf("item %d: expected snippet carried forward as summary, got %q", i, item.Summary)
		}
	}
	if llm.callCount() != 0 {
		t.Errorf("expected no summarization when the whole scrape failed, got %d calls", llm.callCount())
	}
}

func TestRunBatchSettleAll(t *testing.T) {
	search := &fakeSearch{
		results: map[string][]SearchResult{"good": fiveResults("a.example")},
		errs:    map[string]error{"bad": errors.New("search provider down")},
	}
	llm := &fakeLLM{responses: []string{"summary"}}
	p := NewPipeline(search, &fakeScraper{}, NewSummarizer(llm, nil, nil), 10, nil)

	outcomes := p.RunBatch(context.Background(), NewResearchContext(userConversation("q"), nil), []string{"bad", "good"})
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Err == nil {
		t.Errorf("expected failure outcome for the bad query")
	}
	if outcomes[1].Err != nil {
		t.Errorf("expected the good query to survive the bad one, got %v", outcomes[1].Err)
	}
	if len(outcomes[1].Record.Results) != 5 {
		t.Errorf("expected 5 results from the good query, got %d", len(outcomes[1].Record.Results))
	}
}

func TestRunQueryNoResults(t *testing.T) {
	search := &fakeSearch{results: map[string][]SearchResult{}}
	llm := &fakeLLM{responses: []string{"summary"}}
	p := NewPipeline(search, &fakeScraper{}, NewSummarizer(llm, nil, nil), 10, nil)

	record, err := p.runQuery(context.Background(), NewResearchContext(userConversation("q"), nil), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(record.Results) != 0 {
		t.Errorf("expected empty results, got %d", len(record.Results))
	}
}
