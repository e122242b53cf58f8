package http

import (
	"log"
	"net/http"
	"time"

	"enem-simulado-service/internal/domain"
	"github.com/gorilla/websocket"
)

// livesTickInterval is how often the websocket pushes a lives snapshot so
// clients can render a regeneration countdown without polling.
const livesTickInterval = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// serveLivesWS upgrades the request and streams the user's lives, points and
// next-regeneration time until the client disconnects. Each tick runs the lazy
// regeneration path, so a due life shows up without any other request.
func (h *Handler) serveLivesWS(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		id = r.URL.Query().Get("userId")
	}
	if id == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(livesTickInterval)
	defer ticker.Stop()

	for {
		summary, err := h.service.GetSummary(r.Context(), id)
		if err != nil {
			_ = conn.WriteJSON(outboundMessage[map[string]string]{
				Type:    "error",
				Payload: map[string]string{"message": err.Error()},
			})
			return
		}
		if err := conn.WriteJSON(outboundMessage[domain.ProgressSummary]{Type: "lives", Payload: summary}); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}

		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
