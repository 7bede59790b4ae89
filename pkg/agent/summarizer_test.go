package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/cache"
)

func summarizeInput() SummarizeInput {
	return SummarizeInput{
		Query:        "TypeScript latest version",
		URL:          "https://ts.example/releases",
		Title:        "Releases",
		Snippet:      "All TypeScript releases",
		Date:         "2026-01-10",
		Content:      "TypeScript 5.9 was released on ...",
		Conversation: userConversation("What is the latest version of TypeScript?"),
	}
}

func TestSummarizeWithoutStore(t *testing.T) {
	llm := &fakeLLM{responses: []string{"dense synthesis"}}
	s := NewSummarizer(llm, nil, nil)

	got, err := s.Summarize(context.Background(), summarizeInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "dense synthesis" {
		t.Errorf("expected LLM output, got %q", got)
	}
}

func TestSummarizeCacheHit(t *testing.T) {
	llm := &fakeLLM{responses: []string{"dense synthesis"}}
	store := cache.NewInMemoryStore()
	s := NewSummarizer(llm, store, nil)

	in := summarizeInput()
	first, err := s.Summarize(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.Summarize(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Errorf("expected identical cached result, got %q vs %q", first, second)
	}
	if llm.callCount() != 1 {
		t.Errorf("expected 1 LLM call with warm cache, got %d", llm.callCount())
	}
}

func TestSummarizeCacheMissOnDifferentInput(t *testing.T) {
	llm := &fakeLLM{responses: []string{"synthesis"}}
	store := cache.NewInMemoryStore()
	s := NewSummarizer(llm, store, nil)

	in := summarizeInput()
	if _, err := s.Summarize(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in.Content = "entirely different page text"
	if _, err := s.Summarize(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if llm.callCount() != 2 {
		t.Errorf("expected 2 LLM calls for distinct inputs, got %d", llm.callCount())
	}
}

func TestFingerprintStability(t *testing.T) {
	in := summarizeInput()
	a, err := cache.Fingerprint(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := cache.Fingerprint(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Errorf("fingerprint not stable: %q vs %q", a, b)
	}

	in.URL = "https://other.example"
	c, err := cache.Fingerprint(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == c {
		t.Errorf("different inputs produced the same fingerprint")
	}
}

func TestFallbackSummaryTruncation(t *testing.T) {
	long := strings.Repeat("é", 600)
	got := fallbackSummary(long)
	if runes := []rune(strings.TrimSuffix(got, "...")); len(runes) != 500 {
		t.Errorf("expected 500 runes, got %d", len(runes))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncation marker")
	}

	short := "short text"
	if got := fallbackSummary(short); got != short {
		t.Errorf("expected short text unchanged, got %q", got)
	}
}
