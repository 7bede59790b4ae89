package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

func TestDecideContinue(t *testing.T) {
	llm := &fakeLLM{responses: []string{continueJSON}}
	d := NewDecisionMaker(llm, 1, nil)

	decision, err := d.Decide(context.Background(), NewResearchContext(userConversation("q"), nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Decision != VerdictContinue {
		t.Errorf("expected continue, got %q", decision.Decision)
	}
	if decision.Feedback == "" {
		t.Errorf("expected gap-naming feedback on continue")
	}
}

func TestDecideAnswer(t *testing.T) {
	llm := &fakeLLM{responses: []string{answerJSON}}
	d := NewDecisionMaker(llm, 1, nil)

	decision, err := d.Decide(context.Background(), NewResearchContext(userConversation("q"), nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Decision != VerdictAnswer {
		t.Errorf("expected answer, got %q", decision.Decision)
	}
}

func TestDecideRejectsUnknownVerdict(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"decision": "maybe", "reasoning": "r", "feedback": "f"}`}}
	d := NewDecisionMaker(llm, 1, nil)

	if _, err := d.Decide(context.Background(), NewResearchContext(userConversation("q"), nil)); err == nil {
		t.Fatal("expected error for unknown verdict, got nil")
	}
}

func TestDecideProviderErrorPropagates(t *testing.T) {
	llm := &fakeLLM{respond: func(call int, messages []llms.MessageContent) (string, error) {
		return "", errors.New("provider down")
	}}
	d := NewDecisionMaker(llm, 2, nil)

	_, err := d.Decide(context.Background(), NewResearchContext(userConversation("q"), nil))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if llm.callCount() != 2 {
		t.Errorf("expected 2 attempts, got %d", llm.callCount())
	}
}
