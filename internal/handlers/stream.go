package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/notification"
)

// StreamHandler upgrades to a websocket that carries notification change events.
type StreamHandler struct {
	hub      *notification.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewStreamHandler(hub *notification.Hub, allowedOrigins []string, logger zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger.With().Str("handler", "notification_stream").Logger(),
	}
}

func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := notification.NewClient(id.Email, conn)
	h.hub.Register(client)

	go client.WritePump()
	go func() {
		client.ReadPump()
		h.hub.Unregister(client)
	}()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
