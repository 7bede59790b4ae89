package vectorstore

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ArchiveEntry is one chunk of an indexed research summary.
type ArchiveEntry struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Query          string    `json:"query"`
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Embedding      []float32 `json:"embedding,omitempty"`
}

// ArchiveStore persists research summaries with embeddings so findings from
// past runs stay searchable.
type ArchiveStore struct {
	pool      *pgxpool.Pool
	tableName string
}

// isValidTableName validates that a table name contains only safe characters
// to prevent SQL injection attacks
func isValidTableName(name string) bool {
	// Only allow alphanumeric characters and underscores
	// Table names must start with a letter or underscore and be between 1-63 chars (PostgreSQL limit)
	matched, _ := regexp.MatchString(`^[a-z_][a-zA-Z0-9_]{0,62}$`, name)
	return matched
}

func NewArchiveStore(pool *pgxpool.Pool, tableName string) (*ArchiveStore, error) {
	if !isValidTableName(tableName) {
		return nil, fmt.Errorf("invalid table name: must contain only alphanumeric characters and underscores, start with a letter or underscore, and be 1-63 characters long")
	}
	return &ArchiveStore{pool: pool, tableName: tableName}, nil
}

// Init ensures the pgvector extension, the archive table and its index
// exist.
func (s *ArchiveStore) Init(ctx context.Context, dimension int) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to ensure vector extension: %w", err)
	}

	table := pgx.Identifier{s.tableName}.Sanitize()
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			conversation_id UUID NOT NULL,
			query TEXT NOT NULL,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, table, dimension)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.tableName, err)
	}

	// HNSW supports up to 2000 dimensions; above that, exact search still
	// works without an index.
	if dimension <= 2000 {
		indexQuery := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_embedding_idx
			ON %s USING hnsw (embedding vector_cosine_ops)
		`, s.tableName, table)
		if _, err := s.pool.Exec(ctx, indexQuery); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", s.tableName, err)
		}
	}

	return nil
}

// AddEntries inserts archive entries in one batch.
func (s *ArchiveStore) AddEntries(ctx context.Context, entries []ArchiveEntry) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (conversation_id, query, url, title, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, pgx.Identifier{s.tableName}.Sanitize())

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(query, e.ConversationID, e.Query, e.URL, e.Title, e.Content, pgvector.NewVector(e.Embedding))
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range entries {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert archive entry: %w", err)
		}
	}

	return nil
}

// SearchMatch is an archive entry with its similarity score.
type SearchMatch struct {
	Entry ArchiveEntry
	Score float64
}

// Search returns the topK entries most similar to the query embedding,
// optionally restricted to one conversation.
func (s *ArchiveStore) Search(ctx context.Context, queryEmbedding []float32, topK int, conversationID string) ([]SearchMatch, error) {
	table := pgx.Identifier{s.tableName}.Sanitize()
	embedding := pgvector.NewVector(queryEmbedding)

	var query string
	var args []interface{}
	if conversationID != "" {
		query = fmt.Sprintf(`
			SELECT id, conversation_id, query, url, title, content, 1 - (embedding <=> $1) as similarity
			FROM %s
			WHERE conversation_id = $2
			ORDER BY embedding <=> $1
			LIMIT $3
		`, table)
		args = []interface{}{embedding, conversationID, topK}
	} else {
		query = fmt.Sprintf(`
			SELECT id, conversation_id, query, url, title, content, 1 - (embedding <=> $1) as similarity
			FROM %s
			ORDER BY embedding <=> $1
			LIMIT $2
		`, table)
		args = []interface{}{embedding, topK}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var matches []SearchMatch
	for rows.Next() {
		var m SearchMatch
		if err := rows.Scan(&m.Entry.ID, &m.Entry.ConversationID, &m.Entry.Query, &m.Entry.URL, &m.Entry.Title, &m.Entry.Content, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return matches, nil
}
