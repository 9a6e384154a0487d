package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/syllabus/internal/auth"
	"github.com/conneroisu/syllabus/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	sendBuffer = 16
)

// Message types pushed to browsers.
const (
	MessageReload  = "reload"
	MessageSession = "session"
)

// UpdateMessage is sent to the browser over /ws.
type UpdateMessage struct {
	Type       string    `json:"type"`
	Target     string    `json:"target,omitempty"`
	Status     string    `json:"status,omitempty"`
	AuthStatus string    `json:"authStatus,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Client is one websocket connection of a browser session.
type Client struct {
	conn    *websocket.Conn
	send    chan []byte
	session string
	closed  bool
}

// Hub tracks live connections and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  logging.Logger
}

func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Hub{clients: make(map[*Client]struct{}), logger: logger}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug(context.Background(), "Client connected", "clients", n)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		if !c.closed {
			c.closed = true
			close(c.send)
		}
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug(context.Background(), "Client disconnected", "clients", n)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every client.
func (h *Hub) Broadcast(msg UpdateMessage) {
	h.deliver("", msg)
}

// SendTo sends msg to the clients of one browser session.
func (h *Hub) SendTo(session string, msg UpdateMessage) {
	h.deliver(session, msg)
}

func (h *Hub) deliver(session string, msg UpdateMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(context.Background(), err, "Failed to marshal message", "type", msg.Type)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		if session != "" && c.session != session {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// A client that cannot keep up is dropped; its browser reconnects on reload.
	for _, c := range slow {
		h.unregister(c)
		c.conn.Close(websocket.StatusPolicyViolation, "too slow")
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	for c := range clients {
		if !c.closed {
			c.closed = true
			close(c.send)
		}
	}
	h.mu.Unlock()
	for c := range clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	b := s.browser(w, r)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "origin", r.Header.Get("Origin"))
		return
	}
	conn.SetReadLimit(maxMessageSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	observable := b.facade.State()
	if observable.Current().Status == auth.StatusUnknown {
		observable.Set(b.state)
	}
	updates := observable.Subscribe()
	go s.forwardSession(ctx, b.id, updates)

	client := &Client{conn: conn, send: make(chan []byte, sendBuffer), session: b.id}
	s.hub.register(client)
	go client.writePump(ctx, s.logger)

	client.readPump(ctx, s.logger)

	observable.Unsubscribe(updates)
	s.hub.unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
}

// forwardSession relays state changes of a browser session to its sockets.
// The first value is the state the page was rendered with and is skipped.
func (s *Server) forwardSession(ctx context.Context, session string, updates <-chan auth.SessionState) {
	first := true
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			if first {
				first = false
				continue
			}
			s.hub.SendTo(session, UpdateMessage{
				Type:       MessageSession,
				Status:     state.Status.String(),
				AuthStatus: state.AuthStatus().String(),
			})
		}
	}
}

// originPatterns lists the hosts allowed to open a socket besides the
// request host itself.
func (s *Server) originPatterns() []string {
	patterns := []string{
		s.config.Addr(),
		"localhost:*",
		"127.0.0.1:*",
	}
	for _, origin := range s.config.Server.AllowedOrigins {
		patterns = append(patterns, hostOf(origin))
	}
	return patterns
}

// readPump drains incoming frames until the peer goes away. Browsers send
// nothing, so this only observes close frames.
func (c *Client) readPump(ctx context.Context, logger logging.Logger) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				logger.Debug(ctx, "WebSocket read ended", "reason", err.Error())
			}
			return
		}
	}
}

// writePump writes queued messages and keeps the connection alive.
func (c *Client) writePump(ctx context.Context, logger logging.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				logger.Debug(ctx, "WebSocket write failed", "reason", err.Error())
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
