package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const maxPlannedQueries = 5

// QueryPlanner turns the running research context into a plan plus a small
// batch of concrete search queries.
type QueryPlanner struct {
	llm        llms.Model
	maxRetries int
	logger     *slog.Logger
}

func NewQueryPlanner(llm llms.Model, maxRetries int, logger *slog.Logger) *QueryPlanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryPlanner{llm: llm, maxRetries: maxRetries, logger: logger}
}

// Plan produces the next round's queries. A provider failure or an output
// that still violates the 1..5 distinct-query bound after retries surfaces
// as a *PlanningError.
func (p *QueryPlanner) Plan(ctx context.Context, rc *ResearchContext) (PlanResult, error) {
	var input strings.Builder
	fmt.Fprintf(&input, "# Conversation\n\n%s\n", rc.RenderConversation())
	if loc := rc.RenderLocation(); loc != "" {
		fmt.Fprintf(&input, "\n%s\n", loc)
	}
	if history := rc.RenderSearchHistory(); history != "" {
		fmt.Fprintf(&input, "\n# Searches already performed\n\n%s\n", history)
	}
	if fb := rc.Feedback(); fb != "" {
		fmt.Fprintf(&input, "\n# Evaluator feedback to address\n\n%s\n", fb)
	}

	var plan PlanResult
	_, err := generateWithRetry(ctx, p.llm, p.logger, p.maxRetries,
		plannerSystemPrompt+"\n\n# Response Format:\n\n"+plannerSchema,
		input.String(),
		func(content string) error {
			plan = PlanResult{} // reset for retry
			if err := json.Unmarshal([]byte(content), &plan); err != nil {
				return fmt.Errorf("json parse error: %w", err)
			}
			return validateQueries(plan.Queries)
		})
	if err != nil {
		return PlanResult{}, &PlanningError{Err: err}
	}

	p.logger.Info("Generated research plan", "queries", plan.Queries)
	return plan, nil
}

func validateQueries(queries []string) error {
	if len(queries) == 0 {
		return fmt.Errorf("empty queries list")
	}
	if len(queries) > maxPlannedQueries {
		return fmt.Errorf("too many queries: got %d, max %d", len(queries), maxPlannedQueries)
	}
	seen := make(map[string]bool, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			return fmt.Errorf("blank query in list")
		}
		if seen[q] {
			return fmt.Errorf("duplicate query: %q", q)
		}
		seen[q] = true
	}
	return nil
}
