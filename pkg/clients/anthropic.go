package clients

import (
	"fmt"

	"github.com/tmc/langchaingo/llms/anthropic"
)

// Anthropic constructs a Claude-backed langchaingo model, used when
// LLM_PROVIDER=anthropic.
func Anthropic(apiKey, model string) (*anthropic.LLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}

	llm, err := anthropic.New(anthropic.WithToken(apiKey), anthropic.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to create Anthropic client: %w", err)
	}

	return llm, nil
}
