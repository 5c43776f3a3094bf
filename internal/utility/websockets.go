package utility

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// RefreshMessage tells an open tab to reload itself.
const RefreshMessage = "REFRESH"

// DefaultWriteWait is how long a tab gets to accept a message before it is dropped.
const DefaultWriteWait = 5 * time.Second

// Upgrader only accepts same-origin connections.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub holds the active connections of each browser session: Map[SessionID] -> Connections.
// A session can have several tabs open.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]*client

	writeWait time.Duration
}

// client serializes writes to one connection.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[string]map[*websocket.Conn]*client),
		writeWait: DefaultWriteWait,
	}
}

// RegisterClient adds a connection for the session.
func (h *Hub) RegisterClient(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[sessionID]
	if !ok {
		conns = make(map[*websocket.Conn]*client)
		h.clients[sessionID] = conns
	}
	conns[conn] = &client{conn: conn}
	log.Debug().Str("session_id", sessionID).Int("tabs", len(conns)).Msg("WebSocket Client Connected")
}

// UnregisterClient removes a connection (when the tab is closed).
func (h *Hub) UnregisterClient(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[sessionID]
	if !ok {
		return
	}
	if _, ok := conns[conn]; ok {
		delete(conns, conn)
		log.Debug().Str("session_id", sessionID).Msg("WebSocket Client Disconnected")
	}
	if len(conns) == 0 {
		delete(h.clients, sessionID)
	}
}

// Count returns the number of open connections for the session.
func (h *Hub) Count(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[sessionID])
}

// TriggerRefresh notifies every open tab of the session that its state changed.
// Writes happen outside the hub lock, so a stalled tab only holds up its own
// session, and for at most writeWait.
func (h *Hub) TriggerRefresh(sessionID string) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients[sessionID]))
	for _, cl := range h.clients[sessionID] {
		targets = append(targets, cl)
	}
	h.mu.Unlock()

	for _, cl := range targets {
		if err := cl.send(RefreshMessage, h.writeWait); err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to send WS message, removing client")
			h.UnregisterClient(sessionID, cl.conn)
			cl.conn.Close()
		}
	}
}

func (cl *client) send(msg string, wait time.Duration) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if err := cl.conn.SetWriteDeadline(time.Now().Add(wait)); err != nil {
		return err
	}
	return cl.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// Serve upgrades the request and keeps the connection registered until the client
// goes away. Incoming messages are read and discarded.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string) error {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	h.RegisterClient(sessionID, conn)
	defer func() {
		h.UnregisterClient(sessionID, conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}
