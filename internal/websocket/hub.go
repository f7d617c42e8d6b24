package sessionws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"
	"github.com/saeid-a/GymSessionsBack/internal/models"
)

var ErrHubStopped = errors.New("event hub stopped")

// Hub pushes committed session events to the websocket connections of
// their recipients. All client bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan models.SessionEvent
	done       chan struct{}
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	send   chan []byte

	mu     sync.Mutex
	closed bool
}

// Message is the frame sent to clients.
type Message struct {
	Type      string               `json:"type"`
	Event     *models.SessionEvent `json:"event,omitempty"`
	Content   string               `json:"content,omitempty"`
	Timestamp string               `json:"timestamp"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan models.SessionEvent, 64),
		done:       make(chan struct{}),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

// Run serves the hub until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for userID, set := range h.clients {
				for client := range set {
					client.closeSend()
				}
				delete(h.clients, userID)
			}
			return
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			h.remove(client)
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.closeSend()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) Name() string { return "websocket" }

// Deliver queues event for the Run loop. It implements notify.Sink.
func (h *Hub) Deliver(ctx context.Context, event models.SessionEvent) error {
	select {
	case h.broadcast <- event:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, exists := set[client]; exists {
		delete(set, client)
		client.closeSend()
	}
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
}

func (h *Hub) deliver(event models.SessionEvent) {
	encoded, err := json.Marshal(Message{
		Type:      "session_event",
		Event:     &event,
		Timestamp: formatTimestamp(event.CreatedAt),
	})
	if err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("event hub encode message")
		return
	}

	seen := make(map[int64]struct{}, len(event.Recipients))
	for _, userID := range event.Recipients {
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		h.sendToUser(userID, encoded)
	}
}

// sendToUser drops clients whose buffer is full rather than stalling the hub.
func (h *Hub) sendToUser(userID int64, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		if !client.trySend(payload) {
			log.Warn().Int64("user_id", userID).Msg("dropping slow websocket client")
			delete(set, client)
			client.closeSend()
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

// ReadPump keeps the connection alive and answers pings. Clients never
// publish events.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(payload, &incoming); err != nil {
			c.reply("error", "invalid message payload")
			continue
		}
		switch incoming.Type {
		case "ping":
			c.reply("pong", "")
		default:
			c.reply("error", "unsupported message type")
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// reply is best effort: a full buffer means the client is already lagging.
func (c *Client) reply(kind, content string) {
	payload, err := json.Marshal(Message{
		Type:      kind,
		Content:   content,
		Timestamp: formatTimestamp(time.Now()),
	})
	if err != nil {
		return
	}
	c.trySend(payload)
}

// trySend never blocks and never sends on a closed channel.
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func formatTimestamp(at time.Time) string {
	return at.UTC().Format(time.RFC3339)
}
