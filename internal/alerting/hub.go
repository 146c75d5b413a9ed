package alerting

import (
	"context"
	"net/http"
	"sync"
	"time"

	"dex-sentinel/internal/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultHubHistory = 200
	clientBuffer      = 64
	pingInterval      = 45 * time.Second
	readTimeout       = 90 * time.Second
	writeTimeout      = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Message is the websocket frame sent to subscribers.
type Message struct {
	Type   string              `json:"type"` // history|alert
	Alert  *domain.AlertEvent  `json:"alert,omitempty"`
	Alerts []domain.AlertEvent `json:"alerts,omitempty"`
}

type client struct {
	conn     *websocket.Conn
	out      chan Message
	tokenKey domain.TokenKey
}

func (c *client) wants(event *domain.AlertEvent) bool {
	return c.tokenKey == "" || c.tokenKey == event.TokenKey
}

// Hub pushes alerts to websocket subscribers and keeps a bounded replay
// history for new connections. Slow clients drop frames instead of blocking.
type Hub struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	clients map[*client]struct{}
	history []domain.AlertEvent
	limit   int
}

func NewHub(logger *zap.Logger, limit int) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = defaultHubHistory
	}
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
		history: make([]domain.AlertEvent, 0, limit),
		limit:   limit,
	}
}

func (h *Hub) Name() string { return "websocket" }

// Deliver records event and broadcasts it. It never fails.
func (h *Hub) Deliver(_ context.Context, event *domain.AlertEvent) error {
	h.Broadcast(*event)
	return nil
}

func (h *Hub) Broadcast(event domain.AlertEvent) {
	h.mu.Lock()
	h.history = append(h.history, event)
	if len(h.history) > h.limit {
		h.history = h.history[len(h.history)-h.limit:]
	}
	h.mu.Unlock()

	msg := Message{Type: "alert", Alert: &event}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(&event) {
			continue
		}
		select {
		case c.out <- msg:
		default:
		}
	}
}

// History returns the replay buffer, oldest first.
func (h *Hub) History(tokenKey domain.TokenKey) []domain.AlertEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.AlertEvent, 0, len(h.history))
	for _, e := range h.history {
		if tokenKey == "" || e.TokenKey == tokenKey {
			out = append(out, e)
		}
	}
	return out
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams alerts until the peer goes away.
// An optional token_key query parameter narrows the stream to one token.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	cl := &client{
		conn:     conn,
		out:      make(chan Message, clientBuffer),
		tokenKey: domain.TokenKey(r.URL.Query().Get("token_key")),
	}
	cl.out <- Message{Type: "history", Alerts: h.History(cl.tokenKey)}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, cl)
		h.mu.Unlock()
	}()

	done := make(chan struct{})
	defer close(done)
	go h.writeLoop(cl, done)

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(cl *client, done <-chan struct{}) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case msg := <-cl.out:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cl.conn.WriteJSON(msg); err != nil {
				_ = cl.conn.Close()
				return
			}
		case <-ping.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = cl.conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}
