// Package ws pushes monitor events to dashboard clients over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/KOMKZ/go-yogan-monitor/logger"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message types
const (
	TypeInit    = "init"
	TypeMetrics = "metrics"
	TypeAlert   = "alert"
)

// ErrHubClosed the hub no longer accepts clients
var ErrHubClosed = errors.New("ws: hub closed")

// Message envelope of every frame
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// InitFunc builds the payload sent to a client right after it connects
type InitFunc func() interface{}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex // one writer at a time
	done chan struct{}
	once sync.Once
}

func (c *client) write(msgType int, data []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(msgType, data, timeout)
}

// writeLocked caller holds c.mu
func (c *client) writeLocked(msgType int, data []byte, timeout time.Duration) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(msgType, data)
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Hub tracks connected clients and fans messages out to them
type Hub struct {
	log          logger.Logger
	init         InitFunc
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration
	now          func() time.Time

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// Option configures a Hub
type Option func(*Hub)

// WithPingInterval keepalive period, default 30s
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		h.pingInterval = d
	}
}

// WithWriteTimeout per-frame write deadline, default 10s
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) {
		h.writeTimeout = d
	}
}

// NewHub init may be nil, then no init frame is sent
func NewHub(log logger.Logger, init InitFunc, opts ...Option) *Hub {
	if log == nil {
		log = logger.NewNopLogger()
	}
	h := &Hub{
		log:  log,
		init: init,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the dashboard is served from another port
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pingInterval: 30 * time.Second,
		writeTimeout: 10 * time.Second,
		now:          time.Now,
		clients:      make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and keeps the client until it disconnects
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WarnCtx(r.Context(), "WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, done: make(chan struct{})}

	// registered before the init snapshot; the write lock is held until init
	// is out, so a concurrent broadcast always lands after it
	c.mu.Lock()
	if err := h.register(c); err != nil {
		_ = c.writeLocked(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Second)
		c.mu.Unlock()
		c.close()
		return
	}
	err = h.sendInit(c)
	c.mu.Unlock()
	if err != nil {
		h.log.DebugCtx(r.Context(), "WebSocket init failed", zap.Error(err))
		h.drop(c)
		return
	}
	h.log.InfoCtx(r.Context(), "Dashboard client connected",
		zap.String("remote_addr", r.RemoteAddr), zap.Int("clients", h.Len()))

	go h.keepalive(c)
	h.readLoop(c)
	h.drop(c)
	h.log.InfoCtx(context.Background(), "Dashboard client disconnected", zap.Int("clients", h.Len()))
}

// readLoop discards client frames; it returns once the connection fails
func (h *Hub) readLoop(c *client) {
	deadline := h.pingInterval * 2
	_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(deadline))
	}
}

func (h *Hub) keepalive(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil, h.writeTimeout); err != nil {
				h.drop(c)
				return
			}
		}
	}
}

func (h *Hub) register(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	h.clients[c] = struct{}{}
	return nil
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// sendInit caller holds c.mu
func (h *Hub) sendInit(c *client) error {
	if h.init == nil {
		return nil
	}
	frame, err := h.encode(TypeInit, h.init())
	if err != nil {
		return err
	}
	return c.writeLocked(websocket.TextMessage, frame, h.writeTimeout)
}

func (h *Hub) encode(msgType string, data interface{}) ([]byte, error) {
	return json.Marshal(Message{Type: msgType, Data: data, Timestamp: h.now()})
}

// Broadcast sends {type, data, timestamp} to every client and returns how
// many received it. A client whose write fails is dropped.
func (h *Hub) Broadcast(msgType string, data interface{}) int {
	frame, err := h.encode(msgType, data)
	if err != nil {
		h.log.ErrorCtx(context.Background(), "Encode broadcast failed",
			zap.String("type", msgType), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := c.write(websocket.TextMessage, frame, h.writeTimeout); err != nil {
			h.log.DebugCtx(context.Background(), "Dropping WebSocket client", zap.Error(err))
			h.drop(c)
			continue
		}
		sent++
	}
	return sent
}

// Len connected clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones; idempotent
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		_ = c.write(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Second)
		c.close()
	}
}
