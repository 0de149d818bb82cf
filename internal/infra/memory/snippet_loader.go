package memory

import (
	"context"

	"snippet-quiz-service/internal/domain"
)

// StaticSnippetLoader serves a fixed snippet corpus (useful for tests/demos).
type StaticSnippetLoader struct {
	snippets []domain.Snippet
}

func NewStaticSnippetLoader(snippets []domain.Snippet) *StaticSnippetLoader {
	return &StaticSnippetLoader{snippets: snippets}
}

func (l *StaticSnippetLoader) LoadSnippets(_ context.Context) ([]domain.Snippet, error) {
	return l.snippets, nil
}
