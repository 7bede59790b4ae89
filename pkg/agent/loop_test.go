package agent

import (
	"context"
	"regexp"
	"strings"
	"testing"
)

const (
	planJSON           = `{"plan": "research the release history", "queries": ["TypeScript version history", "TypeScript latest release"]}`
	continueJSON       = `{"decision": "continue", "reasoning": "coverage is thin", "feedback": "find the exact release date"}`
	answerJSON         = `{"decision": "answer", "reasoning": "every component is sourced", "feedback": ""}`
	answerWithLinkText = "The latest version is 5.9, see [the release notes](https://ts.example/notes)."
)

func testSearchResults() map[string][]SearchResult {
	return map[string][]SearchResult{
		"TypeScript version history": {
			{Title: "History", URL: "https://ts.example/history", Snippet: "All versions", Date: "2026-01-01"},
		},
		"TypeScript latest release": {
			{Title: "Notes", URL: "https://ts.example/notes", Snippet: "5.9 notes"},
		},
	}
}

type loopFixture struct {
	plannerLLM  *fakeLLM
	decisionLLM *fakeLLM
	answerLLM   *fakeLLM
	agent       *Agent
}

func newLoopFixture(decisions []string, sink ProgressSink) *loopFixture {
	f := &loopFixture{
		plannerLLM:  &fakeLLM{responses: []string{planJSON}},
		decisionLLM: &fakeLLM{responses: decisions},
		answerLLM:   &fakeLLM{responses: []string{answerWithLinkText}},
	}
	summarizer := NewSummarizer(&fakeLLM{responses: []string{"summary"}}, nil, nil)
	pipeline := NewPipeline(&fakeSearch{results: testSearchResults()}, &fakeScraper{}, summarizer, 10, nil)
	f.agent = New(
		NewQueryPlanner(f.plannerLLM, 1, nil),
		pipeline,
		NewDecisionMaker(f.decisionLLM, 1, nil),
		NewAnswerGenerator(f.answerLLM, nil),
		sink,
		nil,
	)
	return f
}

func TestLoopAnswersWhenDecisionSaysSo(t *testing.T) {
	var actions []Action
	f := newLoopFixture([]string{continueJSON, answerJSON}, func(a Action) { actions = append(actions, a) })

	rc := NewResearchContext(userConversation("What is the latest version of TypeScript?"), nil)
	answer, err := f.agent.Run(context.Background(), rc, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Round 1 continues, round 2 answers: exactly one increment happened.
	if rc.Step() != 1 {
		t.Errorf("expected step 1 after one non-terminal iteration, got %d", rc.Step())
	}
	if f.plannerLLM.callCount() != 2 {
		t.Errorf("expected 2 planning rounds, got %d", f.plannerLLM.callCount())
	}
	if !regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`).MatchString(answer) {
		t.Errorf("expected a markdown inline link in the answer, got %q", answer)
	}

	var types []ActionType
	for _, a := range actions {
		types = append(types, a.Type)
	}
	joined := ""
	for _, tp := range types {
		joined += string(tp) + " "
	}
	for _, want := range []ActionType{ActionPlan, ActionSearch, ActionSources, ActionDecision, ActionAnswer} {
		found := false
		for _, tp := range types {
			if tp == want {
				found = true
			}
		}
		if !found {
			t.Errorf("expected a %q action, got sequence %s", want, joined)
		}
	}
}

func TestLoopForcesFinalAtStepLimit(t *testing.T) {
	f := newLoopFixture([]string{continueJSON}, nil)

	rc := NewResearchContext(userConversation("q"), nil)
	answer, err := f.agent.Run(context.Background(), rc, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer == "" {
		t.Errorf("expected a forced final answer")
	}
	if rc.Step() != DefaultStepLimit {
		t.Errorf("expected exactly %d non-final iterations, got %d", DefaultStepLimit, rc.Step())
	}
	if f.plannerLLM.callCount() != DefaultStepLimit {
		t.Errorf("expected %d planning rounds, got %d", DefaultStepLimit, f.plannerLLM.callCount())
	}
}

func TestLoopSeededAtLimitAnswersImmediately(t *testing.T) {
	f := newLoopFixture([]string{continueJSON}, nil)

	rc := NewResearchContext(userConversation("q"), nil)
	for i := 0; i < DefaultStepLimit; i++ {
		rc.IncrementStep()
	}

	var completed string
	answer, err := f.agent.Run(context.Background(), rc, nil, func(msg string) { completed = msg })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.plannerLLM.callCount() != 0 {
		t.Errorf("expected no planning at the limit, got %d calls", f.plannerLLM.callCount())
	}
	if f.decisionLLM.callCount() != 0 {
		t.Errorf("expected no decision at the limit, got %d calls", f.decisionLLM.callCount())
	}
	if completed != answer {
		t.Errorf("expected completion callback to carry the finished answer")
	}
}

func TestLoopStreamsDeltas(t *testing.T) {
	f := newLoopFixture([]string{answerJSON}, nil)

	var streamed strings.Builder
	rc := NewResearchContext(userConversation("q"), nil)
	answer, err := f.agent.Run(context.Background(), rc, func(delta string) error {
		streamed.WriteString(delta)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if streamed.String() != answer {
		t.Errorf("expected streamed deltas to reassemble the answer, got %q vs %q", streamed.String(), answer)
	}
}

func TestLoopNilSinkBehavesTheSame(t *testing.T) {
	withSink := newLoopFixture([]string{answerJSON}, func(Action) {})
	withoutSink := newLoopFixture([]string{answerJSON}, nil)

	rcA := NewResearchContext(userConversation("q"), nil)
	rcB := NewResearchContext(userConversation("q"), nil)

	a, errA := withSink.agent.Run(context.Background(), rcA, nil, nil)
	b, errB := withoutSink.agent.Run(context.Background(), rcB, nil, nil)
	if errA != nil || errB != nil {
		t.Fatalf("unexpected errors: %v, %v", errA, errB)
	}
	if a != b || rcA.Step() != rcB.Step() {
		t.Errorf("nil progress sink changed outcomes")
	}
}

func TestLoopEmptyQuestionStillTerminates(t *testing.T) {
	f := newLoopFixture([]string{continueJSON}, nil)

	rc := NewResearchContext(userConversation("   "), nil)
	answer, err := f.agent.Run(context.Background(), rc, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer == "" {
		t.Errorf("expected a terminal answer for an empty question")
	}
}

func TestLoopDedupsSourcesAcrossRounds(t *testing.T) {
	var sourceActions [][]Source
	f := newLoopFixture([]string{continueJSON, answerJSON}, func(a Action) {
		if a.Type == ActionSources {
			sourceActions = append(sourceActions, a.Sources)
		}
	})

	rc := NewResearchContext(userConversation("q"), nil)
	if _, err := f.agent.Run(context.Background(), rc, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sourceActions) != 2 {
		t.Fatalf("expected sources annotation per round, got %d", len(sourceActions))
	}
	// Both rounds ran identical queries; the second annotation must not
	// repeat URLs already reported.
	if len(sourceActions[0]) == 0 {
		t.Errorf("expected sources in the first round")
	}
	if len(sourceActions[1]) != 0 {
		t.Errorf("expected no new sources in the second round, got %d", len(sourceActions[1]))
	}
	// The research context itself keeps duplicates.
	if got := len(rc.SearchHistory()); got != 4 {
		t.Errorf("expected 4 records (2 queries x 2 rounds) in the context, got %d", got)
	}
}
