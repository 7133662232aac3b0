package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/Dosada05/courtside/scheduling"
	"github.com/Dosada05/courtside/services"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Kiosk displays connect from venue networks with arbitrary
		// origins; the socket is read-only so this stays open.
		return true
	},
}

type WebSocketHandler struct {
	hub            *scheduling.Hub
	summaryService services.SummaryService
}

func NewWebSocketHandler(hub *scheduling.Hub, summaryService services.SummaryService) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, summaryService: summaryService}
}

// ServeWs subscribes a kiosk or bracket display to one tournament's
// live updates at /ws/tournaments/{tournamentID}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := strconv.Atoi(chi.URLParam(r, "tournamentID"))
	if err != nil || tournamentID < 1 {
		http.Error(w, "invalid tournamentID", http.StatusBadRequest)
		return
	}

	// Reject subscriptions to tournaments that do not exist; this also
	// primes the summary cache for the push below.
	summary, err := h.summaryService.GetSummary(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("failed to upgrade connection for tournament %d: %v", tournamentID, err)
		return
	}

	client := &scheduling.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: scheduling.RoomID(tournamentID),
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	// New subscribers get the current counters immediately instead of
	// waiting for the next mutation.
	if payload, err := json.Marshal(scheduling.Event{
		Type:    scheduling.EventSummaryUpdated,
		Payload: summary,
	}); err == nil {
		client.Send <- payload
	}
}
