package server

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/textsplitter"
	"google.golang.org/genai"

	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/agent"
	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/cache"
	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/clients"
	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/config"
	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/database"
	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/embeddings"
	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/scrape"
	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/search"
	"github.com/Jinksi/ai-hero-deepsearch-course/pkg/vectorstore"
)

// Service wires the deep-search agent to persistence and streaming. All
// provider handles are constructed once here and passed into the agent
// components as explicit dependencies.
type Service struct {
	cfg        *config.Config
	DB         *database.PostgresDB
	reasoner   llms.Model
	fast       llms.Model
	client     *genai.Client
	searcher   agent.SearchProvider
	scraper    agent.PageScraper
	cacheStore cache.Store
	embedder   *embeddings.GoogleEmbedder
	archive    *vectorstore.ArchiveStore
}

type Conversation struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// StreamEvent represents a single event in the answer stream
type StreamEvent struct {
	Type    string      `json:"type"` // "plan", "search", "sources", "decision", "content", "error", "done"
	Payload interface{} `json:"payload"`
}

func NewService(ctx context.Context, db *database.PostgresDB, cfg *config.Config) (*Service, error) {
	reasoner, fast, err := buildModels(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.GoogleApiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	embedder, err := embeddings.NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleApiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	archive, err := vectorstore.NewArchiveStore(db.Pool, cfg.ArchiveTable)
	if err != nil {
		return nil, fmt.Errorf("invalid archive table: %w", err)
	}
	if err := archive.Init(ctx, embeddings.Dimension); err != nil {
		return nil, fmt.Errorf("failed to init archive: %w", err)
	}

	return &Service{
		cfg:        cfg,
		DB:         db,
		reasoner:   reasoner,
		fast:       fast,
		client:     client,
		searcher:   search.NewSerper(cfg.SerperApiKey),
		scraper:    scrape.New(scrape.NewHTTPFetcher(), scrape.WithMaxRetries(cfg.ScrapeMaxRetries)),
		cacheStore: cache.NewPostgresStore(db.Pool),
		embedder:   embedder,
		archive:    archive,
	}, nil
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

func (s *Service) CreateConversation(ctx context.Context) (*Conversation, error) {
	id := uuid.New()
	query := `INSERT INTO conversations (id) VALUES ($1) RETURNING id, title, created_at, updated_at`

	conv := &Conversation{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *Service) ListConversations(ctx context.Context) ([]Conversation, error) {
	query := `SELECT id, title, created_at, updated_at FROM conversations ORDER BY updated_at DESC`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, nil
}

func (s *Service) GetHistory(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	query := `SELECT id, conversation_id, role, content, created_at FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC`
	rows, err := s.DB.Pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetLogs(ctx context.Context, conversationID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE conversation_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// SendMessage persists the user message, runs the deep-search loop for the
// conversation, and returns an event iterator for SSE streaming. The
// finished answer is persisted when generation completes.
func (s *Service) SendMessage(ctx context.Context, conversationID uuid.UUID, content string, location *agent.UserLocation) (iter.Seq2[StreamEvent, error], error) {
	userMsgID := uuid.New()
	_, err := s.DB.Pool.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, role, content) VALUES ($1, $2, 'user', $3)`,
		userMsgID, conversationID, content)
	if err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}

	history, err := s.GetHistory(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	conversation := make([]agent.ChatMessage, 0, len(history))
	for _, msg := range history {
		conversation = append(conversation, agent.ChatMessage{Role: msg.Role, Content: msg.Content})
	}

	return func(yield func(StreamEvent, error) bool) {
		runLogger := slog.New(NewDBLogHandler(s.DB, conversationID))
		runLogger.Info("Starting deep search", "conversation_id", conversationID)

		stopped := false
		emit := func(ev StreamEvent) {
			if stopped {
				return
			}
			if !yield(ev, nil) {
				stopped = true
			}
		}

		sink := func(a agent.Action) {
			emit(StreamEvent{Type: string(a.Type), Payload: a})
		}

		summarizer := agent.NewSummarizer(s.fast, s.cacheStore, runLogger)
		pipeline := agent.NewPipeline(s.searcher, s.scraper, summarizer, s.cfg.SearchResultCount, runLogger)
		loop := agent.New(
			agent.NewQueryPlanner(s.reasoner, s.cfg.LLMMaxRetries, runLogger),
			pipeline,
			agent.NewDecisionMaker(s.reasoner, s.cfg.LLMMaxRetries, runLogger),
			agent.NewAnswerGenerator(s.reasoner, runLogger),
			sink,
			runLogger,
		)

		rc := agent.NewResearchContext(conversation, location).WithStepLimit(s.cfg.StepLimit)

		onDelta := func(delta string) error {
			emit(StreamEvent{Type: "content", Payload: delta})
			if stopped {
				return context.Canceled
			}
			return nil
		}
		onComplete := func(answer string) {
			modelMsgID := uuid.New()
			_, err := s.DB.Pool.Exec(ctx,
				`INSERT INTO messages (id, conversation_id, role, content) VALUES ($1, $2, 'assistant', $3)`,
				modelMsgID, conversationID, answer)
			if err != nil {
				runLogger.Error("Failed to save assistant message", "error", err)
			} else {
				_, _ = s.DB.Pool.Exec(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, conversationID)
			}
		}

		_, err := loop.Run(ctx, rc, onDelta, onComplete)
		if err != nil {
			runLogger.Error("Deep search failed", "error", err)
			if !stopped {
				yield(StreamEvent{Type: "error", Payload: err.Error()}, err)
			}
			return
		}

		runLogger.Info("Deep search completed", "steps", rc.Step())
		emit(StreamEvent{Type: "done", Payload: "done"})

		// Index this run's summaries so past findings stay searchable.
		s.archiveRun(conversationID, rc, runLogger)

		// Generate title async (fire and forget)
		if len(history) <= 2 {
			go s.generateTitle(conversationID, content)
		}
	}, nil
}

// archiveRun chunks and embeds every page summary gathered during the run
// and stores the chunks in the archive. Failures only log; the answer has
// already been delivered.
func (s *Service) archiveRun(conversationID uuid.UUID, rc *agent.ResearchContext, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.cfg.ChunkSize),
		textsplitter.WithChunkOverlap(s.cfg.ChunkOverlap),
	)

	var entries []vectorstore.ArchiveEntry
	for _, record := range rc.SearchHistory() {
		for _, r := range record.Results {
			if r.Summary == "" {
				continue
			}
			chunks, err := splitter.SplitText(r.Summary)
			if err != nil {
				logger.Error("Failed to split summary", "url", r.URL, "error", err)
				continue
			}
			vectors, err := s.embedder.EmbedTexts(ctx, chunks)
			if err != nil {
				logger.Error("Failed to embed summary", "url", r.URL, "error", err)
				continue
			}
			for i, chunk := range chunks {
				entries = append(entries, vectorstore.ArchiveEntry{
					ConversationID: conversationID.String(),
					Query:          record.Query,
					URL:            r.URL,
					Title:          r.Title,
					Content:        chunk,
					Embedding:      vectors[i],
				})
			}
		}
	}

	if len(entries) == 0 {
		return
	}
	if err := s.archive.AddEntries(ctx, entries); err != nil {
		logger.Error("Failed to archive run", "error", err)
		return
	}
	logger.Info("Archived run summaries", "chunks", len(entries))
}

// SearchArchive embeds the query and returns the closest archived chunks.
func (s *Service) SearchArchive(ctx context.Context, query string, topK int, conversationID string) ([]vectorstore.SearchMatch, error) {
	if topK <= 0 {
		topK = 5
	}
	vec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed archive query: %w", err)
	}
	return s.archive.Search(ctx, vec, topK, conversationID)
}

func (s *Service) generateTitle(convID uuid.UUID, userMsg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	prompt := fmt.Sprintf("Generate a short, concise title (max 5 words) for a research conversation that starts with this question:\n%s", userMsg)

	returnSchema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": {
				Type: genai.TypeString,
			},
		},
		Required: []string{"title"},
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.cfg.FastModel, []*genai.Content{
		{Parts: []*genai.Part{{Text: prompt}}},
	}, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   returnSchema,
	})
	if err != nil || len(resp.Candidates) == 0 {
		return
	}

	var respData struct {
		Title string `json:"title"`
	}

	rawJSON := ""
	for _, p := range resp.Candidates[0].Content.Parts {
		rawJSON += p.Text
	}

	if err := json.Unmarshal([]byte(rawJSON), &respData); err != nil {
		slog.Error("Failed to unmarshal title generation response", "error", err, "raw_json", rawJSON)
		return
	}

	if respData.Title != "" {
		if _, err := s.DB.Pool.Exec(ctx, `UPDATE conversations SET title = $2 WHERE id = $1`, convID, respData.Title); err != nil {
			slog.Error("Failed to update conversation title", "error", err)
		}
	}
}
