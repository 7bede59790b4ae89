package agent

import (
	"context"
	"log/slog"
)

// Agent drives the Plan → Search/Summarize → Decide cycle and hands off to
// the answer generator when the decision maker is satisfied or the step
// limit runs out.
type Agent struct {
	planner  *QueryPlanner
	pipeline *Pipeline
	decider  *DecisionMaker
	answerer *AnswerGenerator
	sink     ProgressSink
	logger   *slog.Logger
}

func New(planner *QueryPlanner, pipeline *Pipeline, decider *DecisionMaker, answerer *AnswerGenerator, sink ProgressSink, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		planner:  planner,
		pipeline: pipeline,
		decider:  decider,
		answerer: answerer,
		sink:     sink,
		logger:   logger,
	}
}

// Run executes the loop for one request. rc is exclusively owned by this
// call: all mutations happen on this goroutine, after the parallel branches
// of each round have settled. The returned string is the finished answer;
// onDelta and onComplete are forwarded to the answer generator.
func (a *Agent) Run(ctx context.Context, rc *ResearchContext, onDelta func(string) error, onComplete func(string)) (string, error) {
	seenSources := make(map[string]bool)

	for {
		if rc.ShouldStop() {
			a.logger.Info("Step limit reached, forcing final answer", "step", rc.Step())
			a.sink.emit(Action{Type: ActionAnswer})
			return a.answerer.Stream(ctx, rc, true, onDelta, onComplete)
		}

		a.logger.Info("Starting planning round", "step", rc.Step())

		plan, err := a.planner.Plan(ctx, rc)
		if err != nil {
			return "", err
		}
		a.sink.emit(Action{Type: ActionPlan, Plan: plan.Plan})
		for _, q := range plan.Queries {
			a.sink.emit(Action{Type: ActionSearch, Query: q})
		}

		outcomes := a.pipeline.RunBatch(ctx, rc, plan.Queries)
		for _, outcome := range outcomes {
			if outcome.Err != nil {
				// Settle-all: a failed query contributes nothing this
				// round, the rest are kept.
				a.logger.Error("Query pipeline failed", "query", outcome.Query, "error", outcome.Err)
				continue
			}
			rc.ReportSearch(outcome.Record)
		}
		a.sink.emit(Action{Type: ActionSources, Sources: a.collectSources(rc, seenSources)})

		decision, err := a.decider.Decide(ctx, rc)
		if err != nil {
			return "", err
		}
		a.sink.emit(Action{Type: ActionDecision, Decision: &decision})
		rc.UpdateFeedback(decision.Feedback)

		if decision.Decision == VerdictAnswer {
			a.sink.emit(Action{Type: ActionAnswer})
			return a.answerer.Stream(ctx, rc, false, onDelta, onComplete)
		}

		rc.IncrementStep()
	}
}

// collectSources gathers not-yet-reported sources across all records,
// deduplicated by URL. Dedup applies only to this annotation; the research
// context itself keeps every result.
func (a *Agent) collectSources(rc *ResearchContext, seen map[string]bool) []Source {
	var sources []Source
	for _, record := range rc.SearchHistory() {
		for _, r := range record.Results {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			sources = append(sources, Source{
				Title:   r.Title,
				URL:     r.URL,
				Snippet: r.Snippet,
				Favicon: r.Favicon,
			})
		}
	}
	return sources
}
