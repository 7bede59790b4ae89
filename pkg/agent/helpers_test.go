package agent

import (
	"context"
	"sync"

	"github.com/tmc/langchaingo/llms"

	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/scrape"
)

// fakeLLM scripts GenerateContent responses. When respond is set it decides
// the reply per call; otherwise responses are returned in order, repeating
// the last one.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	respond   func(call int, messages []llms.MessageContent) (string, error)
	calls     int
}

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.mu.Unlock()

	var text string
	if f.respond != nil {
		t, err := f.respond(call, messages)
		if err != nil {
			return nil, err
		}
		text = t
	} else {
		idx := call
		if idx >= len(f.responses) {
			idx = len(f.responses) - 1
		}
		text = f.responses[idx]
	}

	opts := llms.CallOptions{}
	for _, o := range options {
		o(&opts)
	}
	if opts.StreamingFunc != nil {
		if err := opts.StreamingFunc(ctx, []byte(text)); err != nil {
			return nil, err
		}
	}

	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeSearch returns scripted results per query.
type fakeSearch struct {
	results map[string][]SearchResult
	errs    map[string]error
}

func (f *fakeSearch) Search(ctx context.Context, query string, count int) ([]SearchResult, error) {
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.results[query], nil
}

// fakeScraper succeeds for every URL except those listed in fail, or for
// none at all when failAll is set.
type fakeScraper struct {
	fail    map[string]bool
	failAll bool
}

func (f *fakeScraper) ScrapePages(ctx context.Context, urls []string) *scrape.BulkResponse {
	results := make([]scrape.PageResult, len(urls))
	allOK := true
	for i, u := range urls {
		if f.failAll || f.fail[u] {
			results[i] = scrape.PageResult{URL: u, Success: false, Error: "failed to scrape " + u + " after 3 attempts"}
			allOK = false
			continue
		}
		results[i] = scrape.PageResult{URL: u, Success: true, Content: "scraped text of " + u}
	}
	return &scrape.BulkResponse{Success: allOK, Results: results}
}

func userConversation(question string) []ChatMessage {
	return []ChatMessage{{Role: "user", Content: question}}
}
