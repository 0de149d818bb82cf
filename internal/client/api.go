package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"snippet-quiz-service/internal/domain"
)

// API is the JSON-over-HTTP client for the quiz server.
type API struct {
	baseURL string
	http    *http.Client
}

func NewAPI(baseURL string) *API {
	return &API{baseURL: baseURL, http: &http.Client{}}
}

type StartSessionResponse struct {
	SessionID string           `json:"sessionId"`
	Snippets  []domain.Snippet `json:"snippets"`
	GameMode  domain.GameMode  `json:"gameMode"`
}

type ValidateResponse struct {
	Success        bool  `json:"success"`
	ResultID       int64 `json:"resultId"`
	ValidatedScore int   `json:"validatedScore"`
	ValidatedTotal int   `json:"validatedTotal"`
}

func (a *API) StartSession(ctx context.Context, mode domain.GameMode, snippetsCount int) (*StartSessionResponse, error) {
	body := map[string]any{"gameMode": mode}
	if snippetsCount > 0 {
		body["snippetsCount"] = snippetsCount
	}
	var resp StartSessionResponse
	if err := a.post(ctx, "/api/start-session", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *API) SubmitResult(ctx context.Context, sub domain.ResultSubmission) (*ValidateResponse, error) {
	var resp ValidateResponse
	if err := a.post(ctx, "/api/validate-result", sub, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *API) Leaderboard(ctx context.Context, mode domain.GameMode, limit int) ([]domain.GameResult, error) {
	url := fmt.Sprintf("%s/api/leaderboard?mode=%s&limit=%d", a.baseURL, mode, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	var entries []domain.GameResult
	if err := a.do(req, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (a *API) post(ctx context.Context, path string, body, into any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, into)
}

func (a *API) do(req *http.Request, into any) error {
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var fail struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &fail) == nil && fail.Error != "" {
			return fmt.Errorf("server rejected request: %s", fail.Error)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.Unmarshal(data, into)
}
