package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// DecisionMaker inspects the accumulated research and emits a
// continue/answer verdict plus steering feedback.
type DecisionMaker struct {
	llm        llms.Model
	maxRetries int
	logger     *slog.Logger
}

func NewDecisionMaker(llm llms.Model, maxRetries int, logger *slog.Logger) *DecisionMaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &DecisionMaker{llm: llm, maxRetries: maxRetries, logger: logger}
}

// Decide evaluates research coverage. Provider failure after the configured
// retries propagates to the caller and fails the request.
func (d *DecisionMaker) Decide(ctx context.Context, rc *ResearchContext) (Decision, error) {
	var input strings.Builder
	fmt.Fprintf(&input, "# Conversation\n\n%s\n", rc.RenderConversation())
	fmt.Fprintf(&input, "\n# Research gathered so far\n\n%s\n", rc.RenderSearchHistory())
	fmt.Fprintf(&input, "\nCompleted rounds: %d\n", rc.Step())

	var decision Decision
	_, err := generateWithRetry(ctx, d.llm, d.logger, d.maxRetries,
		decisionSystemPrompt+"\n\n# Response Format:\n\n"+decisionSchema,
		input.String(),
		func(content string) error {
			decision = Decision{} // reset for retry
			if err := json.Unmarshal([]byte(content), &decision); err != nil {
				return fmt.Errorf("json parse error: %w", err)
			}
			if decision.Decision != VerdictContinue && decision.Decision != VerdictAnswer {
				return fmt.Errorf("invalid verdict: %q", decision.Decision)
			}
			return nil
		})
	if err != nil {
		return Decision{}, fmt.Errorf("decision failed: %w", err)
	}

	d.logger.Info("Decision made", "verdict", decision.Decision, "reasoning", decision.Reasoning)
	return decision, nil
}
