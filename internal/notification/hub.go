package notification

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stanstork/sponsordesk-api/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 16
)

// Hub pushes change events to the websocket subscribers of each owner.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger.With().Str("component", "notification_hub").Logger(),
	}
}

func (h *Hub) String() string { return "websocket" }

func (h *Hub) Register(c *Client) {
	if c == nil || c.userEmail == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.userEmail]
	if set == nil {
		set = make(map[*Client]struct{})
		h.clients[c.userEmail] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) Unregister(c *Client) {
	if c == nil || c.userEmail == "" {
		return
	}
	h.mu.Lock()
	if set := h.clients[c.userEmail]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userEmail)
		}
	}
	h.mu.Unlock()
	c.Close()
}

// Subscribers returns the number of open connections for an owner.
func (h *Hub) Subscribers(userEmail string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[strings.TrimSpace(userEmail)])
}

// Notify implements Notifier by announcing an insert.
func (h *Hub) Notify(_ context.Context, notif models.Notification) error {
	h.Changed(notif.UserEmail, ChangeEvent{Event: ChangeInsert, ID: notif.ID})
	return nil
}

// Changed implements ChangeListener. Slow clients are dropped rather than blocking the caller.
func (h *Hub) Changed(userEmail string, evt ChangeEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}

	h.mu.RLock()
	set := h.clients[strings.TrimSpace(userEmail)]
	targets := make([]*Client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(payload) {
			h.logger.Debug().Str("user_email", userEmail).Msg("dropping slow notification subscriber")
			h.Unregister(c)
		}
	}
}

type Client struct {
	userEmail string
	conn      *websocket.Conn
	send      chan []byte

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func NewClient(userEmail string, conn *websocket.Conn) *Client {
	return &Client{
		userEmail: strings.TrimSpace(userEmail),
		conn:      conn,
		send:      make(chan []byte, clientSendSize),
	}
}

func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// WritePump forwards queued events and keeps the connection alive with pings.
func (c *Client) WritePump() {
	if c.conn == nil {
		return
	}
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump drains client frames until the connection closes. Subscribers never
// send anything meaningful; reading is only needed to process control frames.
func (c *Client) ReadPump() {
	if c.conn == nil {
		return
	}
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
