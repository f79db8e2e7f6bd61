package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/match-developers/matchplay/events"
	"github.com/match-developers/matchplay/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the platform's frontend origins before exposing
		// the feed publicly.
		return true
	},
}

// WebSocketHandler subscribes clients to the live event feed of one
// competition.
type WebSocketHandler struct {
	hub                *events.Hub
	competitionService services.CompetitionService
	logger             *slog.Logger
}

func NewWebSocketHandler(hub *events.Hub, competitionService services.CompetitionService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:                hub,
		competitionService: competitionService,
		logger:             logger,
	}
}

func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	competitionID, err := readIDParam(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	// Reject subscriptions to competitions that do not exist before paying
	// for the upgrade.
	if _, err := h.competitionService.Get(r.Context(), competitionID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed",
			slog.Int("competition_id", competitionID),
			slog.Any("error", err))
		return
	}

	client := events.NewClient(h.hub, conn, competitionID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
