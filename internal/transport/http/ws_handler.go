package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"snippet-quiz-service/internal/app"
	"snippet-quiz-service/internal/domain"
)

// WSHandler streams leaderboard snapshots to websocket subscribers.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string              `json:"type"`
	Payload []domain.GameResult `json:"payload"`
}

// ServeLeaderboard upgrades the request and pushes a leaderboard snapshot on
// every successful validation for the requested mode.
func (h *WSHandler) ServeLeaderboard(w http.ResponseWriter, r *http.Request) {
	rawMode := r.URL.Query().Get("mode")
	if rawMode == "" {
		rawMode = string(domain.ModeClassic)
	}
	mode, ok := domain.ParseGameMode(rawMode)
	if !ok {
		http.Error(w, "mode must be classic or infinite", http.StatusBadRequest)
		return
	}

	initial, err := h.service.Leaderboard(r.Context(), rawMode, 0)
	if err != nil {
		// Degrade to an empty board rather than refusing the stream.
		initial = nil
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.service.Feed().Subscribe(mode)
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: initial}); err != nil {
		return
	}
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: update}); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
