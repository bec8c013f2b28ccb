package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AyushKoirala03/Video-chatting/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// The relay fronts whatever host the operator deploys; origin policy is
	// theirs to enforce upstream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler returns the relay's HTTP mux: the websocket endpoint, the room
// discovery endpoint, and a health check.
func Handler(hub *Hub, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/api/rooms", handleRooms(hub))
	mux.HandleFunc("/ws/", serveWs(hub, logger))
	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": protocol.Now(),
	})
}

// handleRooms serves the read-only room listing used by join screens.
func handleRooms(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(hub.Snapshot())
	}
}

// serveWs upgrades /ws/{client_id} requests and hands the connection to the
// hub.
func serveWs(hub *Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := strings.TrimPrefix(r.URL.Path, "/ws/")
		if clientID == "" || strings.Contains(clientID, "/") {
			http.Error(w, "missing client id", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			hub:    hub,
			conn:   conn,
			ID:     clientID,
			send:   make(chan *protocol.Envelope, 256),
			logger: logger,
		}

		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}
