package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"snippet-quiz-service/internal/domain"
)

// SnippetLoader loads the snippet corpus from a JSONB table.
type SnippetLoader struct {
	pool *pgxpool.Pool
}

func NewSnippetLoader(pool *pgxpool.Pool) *SnippetLoader {
	return &SnippetLoader{pool: pool}
}

func (l *SnippetLoader) LoadSnippets(ctx context.Context) ([]domain.Snippet, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM snippets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load snippets: %w", err)
	}
	defer rows.Close()

	var snippets []domain.Snippet
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		var snippet domain.Snippet
		if err := json.Unmarshal(raw, &snippet); err != nil {
			return nil, fmt.Errorf("unmarshal snippet: %w", err)
		}
		snippets = append(snippets, snippet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load snippets: %w", err)
	}
	return snippets, nil
}
