package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"snippet-quiz-service/internal/app"
	"snippet-quiz-service/internal/domain"
)

// Handler exposes the game use cases as the JSON API.
type Handler struct {
	service *app.GameService
}

func NewHandler(service *app.GameService) *Handler {
	return &Handler{service: service}
}

// Register wires the API routes into the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/start-session", h.StartSession)
	mux.HandleFunc("/api/validate-result", h.ValidateResult)
	mux.HandleFunc("/api/leaderboard", h.Leaderboard)
	mux.HandleFunc("/health", h.Health)
}

type startSessionRequest struct {
	GameMode      string `json:"gameMode"`
	SnippetsCount int    `json:"snippetsCount"`
}

type startSessionResponse struct {
	SessionID string           `json:"sessionId"`
	Snippets  []domain.Snippet `json:"snippets"`
	GameMode  domain.GameMode  `json:"gameMode"`
}

type validateResultResponse struct {
	Success        bool  `json:"success"`
	ResultID       int64 `json:"resultId"`
	ValidatedScore int   `json:"validatedScore"`
	ValidatedTotal int   `json:"validatedTotal"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	session, err := h.service.StartSession(r.Context(), req.GameMode, req.SnippetsCount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startSessionResponse{
		SessionID: session.ID,
		Snippets:  session.Snippets,
		GameMode:  session.Mode,
	})
}

func (h *Handler) ValidateResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	var sub domain.ResultSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	validated, err := h.service.ValidateResult(r.Context(), sub)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validateResultResponse{
		Success:        true,
		ResultID:       validated.ResultID,
		ValidatedScore: validated.ValidatedScore,
		ValidatedTotal: validated.ValidatedTotal,
	})
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = string(domain.ModeClassic)
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit: must be an integer"})
			return
		}
		limit = parsed
	}

	entries, err := h.service.Leaderboard(r.Context(), mode, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.GameResult{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"snippetsLoaded": h.service.CorpusSize(),
	})
}

// writeError maps domain errors to statuses without leaking storage details.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidationError(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: domain.ErrSessionNotFound.Error()})
	case errors.Is(err, domain.ErrSuspiciousTiming):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: domain.ErrSuspiciousTiming.Error()})
	case errors.Is(err, domain.ErrCorpusUnavailable):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: domain.ErrCorpusUnavailable.Error()})
	default:
		log.Printf("request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
