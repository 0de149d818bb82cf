package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"snippet-quiz-service/internal/domain"
)

// SnippetLoader reads the corpus from a JSON file: an array of
// {language, code, distractors} objects.
type SnippetLoader struct {
	path string
}

func NewSnippetLoader(path string) *SnippetLoader {
	return &SnippetLoader{path: path}
}

func (l *SnippetLoader) LoadSnippets(_ context.Context) ([]domain.Snippet, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	var snippets []domain.Snippet
	if err := json.Unmarshal(data, &snippets); err != nil {
		return nil, fmt.Errorf("parse corpus file: %w", err)
	}
	return snippets, nil
}
