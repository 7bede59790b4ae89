package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/cache"
)

const fallbackSummaryRunes = 500

// SummarizeInput is the structured input of one summarization call. Its
// fingerprint is the cache key.
type SummarizeInput struct {
	Query        string        `json:"query"`
	URL          string        `json:"url"`
	Title        string        `json:"title"`
	Snippet      string        `json:"snippet"`
	Date         string        `json:"date"`
	Content      string        `json:"content"`
	Conversation []ChatMessage `json:"conversation"`
}

// Summarizer condenses one scraped page into a dense synthesis. Calls are
// memoized by input fingerprint when a cache store is configured; a nil
// store means pure pass-through.
type Summarizer struct {
	llm    llms.Model
	store  cache.Store
	logger *slog.Logger
}

func NewSummarizer(llm llms.Model, store cache.Store, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{llm: llm, store: store, logger: logger}
}

func (s *Summarizer) Summarize(ctx context.Context, in SummarizeInput) (string, error) {
	key, err := cache.Fingerprint(in)
	if err != nil {
		return "", err
	}

	if s.store != nil {
		if cached, ok, err := s.store.Get(ctx, key); err != nil {
			s.logger.Warn("Cache read failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Search query: %s\n\n", in.Query)
	fmt.Fprintf(&user, "Page: %s (%s)\nURL: %s\nSnippet: %s\n\n", in.Title, in.Date, in.URL, in.Snippet)
	fmt.Fprintf(&user, "Conversation for context:\n%s\n\n", renderMessages(in.Conversation))
	fmt.Fprintf(&user, "Page content:\n%s", in.Content)

	resp, err := s.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, summarizerSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, user.String()),
	})
	if err != nil {
		return "", fmt.Errorf("summarization failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summarization returned no choices")
	}
	summary := resp.Choices[0].Content

	if s.store != nil {
		if err := s.store.Set(ctx, key, summary); err != nil {
			s.logger.Warn("Cache write failed", "error", err)
		}
	}
	return summary, nil
}

func renderMessages(msgs []ChatMessage) string {
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return strings.TrimSpace(b.String())
}

// fallbackSummary truncates raw scraped text for items whose summarization
// call failed. Truncation is rune-safe.
func fallbackSummary(content string) string {
	runes := []rune(content)
	if len(runes) > fallbackSummaryRunes {
		return string(runes[:fallbackSummaryRunes]) + "..."
	}
	return content
}
