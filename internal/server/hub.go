package server

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/nested/internal/errors"
	"github.com/vango-dev/nested/pkg/nested"
)

// StreamMessageType tags messages on the change stream.
type StreamMessageType string

const (
	// StreamSnapshot is sent once when a client connects.
	StreamSnapshot StreamMessageType = "snapshot"

	// StreamChange carries a nested.Change.
	StreamChange StreamMessageType = "change"

	// StreamClosed is sent when the session ends.
	StreamClosed StreamMessageType = "closed"
)

// StreamMessage is sent to WebSocket clients.
type StreamMessage struct {
	Type     StreamMessageType `json:"type"`
	Session  string            `json:"session"`
	Kind     nested.ChangeKind `json:"kind,omitempty"`
	Values   []string          `json:"values,omitempty"`
	Snapshot *nested.Snapshot  `json:"snapshot,omitempty"`
}

// client serializes writes to one connection.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans session changes out to WebSocket clients.
type Hub struct {
	session  string
	clients  map[*client]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader
}

// NewHub creates a hub for one session.
func NewHub(session string) *Hub {
	return &Hub{
		session: session,
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = io.WriteString(w, errors.New("N302").Wrap(reason).FormatJSON()+"\n")
			},
		},
	}
}

// HandleWebSocket upgrades the request, sends the initial snapshot and keeps
// the connection until the client goes away or the hub closes. The upgrade
// error is returned; the upgrader has already answered the request.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, req *http.Request, snap nested.Snapshot) error {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return err
	}
	c := &client{conn: conn}

	data, err := json.Marshal(StreamMessage{Type: StreamSnapshot, Session: h.session, Snapshot: &snap})
	if err == nil {
		err = c.write(data)
	}
	if err != nil {
		conn.Close()
		return nil
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	conn.Close()
	return nil
}

// Notify sends a change to every client. It has the signature of a
// Registry.Subscribe callback.
func (h *Hub) Notify(c nested.Change) {
	h.broadcast(StreamMessage{Type: StreamChange, Session: h.session, Kind: c.Kind, Values: c.Values})
}

func (h *Hub) broadcast(msg StreamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
			c.conn.Close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close tells every client the session ended and closes the connections.
func (h *Hub) Close() {
	h.broadcast(StreamMessage{Type: StreamClosed, Session: h.session})

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
}
