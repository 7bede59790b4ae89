package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// AnswerGenerator produces the final streamed answer from the accumulated
// research.
type AnswerGenerator struct {
	llm    llms.Model
	logger *slog.Logger
}

func NewAnswerGenerator(llm llms.Model, logger *slog.Logger) *AnswerGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerGenerator{llm: llm, logger: logger}
}

// Stream generates the answer, invoking onDelta for each streamed chunk and
// onComplete once with the finished message. When isFinal is true the step
// budget is exhausted and the answer explicitly hedges on thin coverage.
// Missing information never fails the call; only a generation provider
// error does.
func (g *AnswerGenerator) Stream(ctx context.Context, rc *ResearchContext, isFinal bool, onDelta func(string) error, onComplete func(string)) (string, error) {
	system := answerSystemPrompt
	if isFinal {
		system += "\n\n" + answerFinalHint
	}

	var input strings.Builder
	fmt.Fprintf(&input, "# Conversation\n\n%s\n", rc.RenderConversation())
	if loc := rc.RenderLocation(); loc != "" {
		fmt.Fprintf(&input, "\n%s\n", loc)
	}
	if history := rc.RenderSearchHistory(); history != "" {
		fmt.Fprintf(&input, "\n# Research gathered\n\n%s\n", history)
	} else {
		input.WriteString("\nNo research could be gathered for this question.\n")
	}

	opts := []llms.CallOption{}
	if onDelta != nil {
		opts = append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return onDelta(string(chunk))
		}))
	}

	resp, err := g.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, input.String()),
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("answer generation returned no choices")
	}

	answer := resp.Choices[0].Content
	if onComplete != nil {
		onComplete(answer)
	}
	return answer, nil
}
