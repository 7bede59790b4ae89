package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"

	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/agent"
	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/cache"
	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/clients"
	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/config"
	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/scrape"
	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/search"
)

var question string

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "deepsearch",
		Short: "A terminal-based deep search agent",
		Long:  `deepsearch answers a question by iterating through a plan-search-decide loop, scraping and summarizing web pages until it has enough to answer.`,
		Run: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("question") {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)
				fmt.Print("Enter question: ")
				input, _ := reader.ReadString('\n')
				question = strings.TrimSpace(input)
			}
			if question == "" {
				slog.Error("Question cannot be empty")
				os.Exit(1)
			}

			if err := run(context.Background(), cfg, question); err != nil {
				slog.Error("Deep search failed", "error", err)
				os.Exit(1)
			}
		},
	}

	rootCmd.Flags().StringVarP(&question, "question", "q", "", "The question to research")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, question string) error {
	reasoner, fast, err := buildModels(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize models: %w", err)
	}

	logger := slog.Default()
	searcher := search.NewSerper(cfg.SerperApiKey)
	scraper := scrape.New(scrape.NewHTTPFetcher(), scrape.WithMaxRetries(cfg.ScrapeMaxRetries))
	summarizer := agent.NewSummarizer(fast, cache.NewInMemoryStore(), logger)
	pipeline := agent.NewPipeline(searcher, scraper, summarizer, cfg.SearchResultCount, logger)

	sink := func(a agent.Action) {
		switch a.Type {
		case agent.ActionPlan:
			fmt.Printf("\n== Plan ==\n%s\n", a.Plan)
		case agent.ActionSearch:
			fmt.Printf("  searching: %s\n", a.Query)
		case agent.ActionSources:
			fmt.Printf("\n== Sources (%d) ==\n", len(a.Sources))
			for _, src := range a.Sources {
				fmt.Printf("  - %s (%s)\n", src.Title, src.URL)
			}
		case agent.ActionDecision:
			fmt.Printf("\n== Decision: %s ==\n%s\n", a.Decision.Decision, a.Decision.Reasoning)
		case agent.ActionAnswer:
			fmt.Printf("\n== Answer ==\n")
		}
	}

	loop := agent.New(
		agent.NewQueryPlanner(reasoner, cfg.LLMMaxRetries, logger),
		pipeline,
		agent.NewDecisionMaker(reasoner, cfg.LLMMaxRetries, logger),
		agent.NewAnswerGenerator(reasoner, logger),
		sink,
		logger,
	)

	conversation := []agent.ChatMessage{{Role: "user", Content: question}}
	rc := agent.NewResearchContext(conversation, nil).WithStepLimit(cfg.StepLimit)

	onDelta := func(delta string) error {
		fmt.Print(delta)
		return nil
	}
	onComplete := func(string) {
		fmt.Println()
	}

	_, err = loop.Run(ctx, rc, onDelta, onComplete)
	return err
}

func buildModels(ctx context.Context, cfg *config.Config) (reasoner, fast llms.Model, err error) {
	switch cfg.LLMProvider {
	case "anthropic":
		reasoner, err = clients.Anthropic(cfg.AnthropicApiKey, cfg.ReasoningModel)
		if err != nil {
			return nil, nil, err
		}
		fast, err = clients.Anthropic(cfg.AnthropicApiKey, cfg.FastModel)
		if err != nil {
			return nil, nil, err
		}
	default:
		reasoner, err = clients.GoogleAI(ctx, cfg.GoogleApiKey, cfg.ReasoningModel)
		if err != nil {
			return nil, nil, err
		}
		fast, err = clients.GoogleAI(ctx, cfg.GoogleApiKey, cfg.FastModel)
		if err != nil {
			return nil, nil, err
		}
	}
	return reasoner, fast, nil
}
