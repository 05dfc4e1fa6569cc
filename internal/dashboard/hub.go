package dashboard

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub fans out snapshots to every connected WebSocket client. Unlike a hub
// for a discrete event stream, this dashboard only ever has one message
// shape in flight — the latest Snapshot — so the hub itself owns encoding
// and keeps the last one around to replay to a client the instant it
// connects, rather than making every caller re-derive and re-send it.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan Snapshot

	lastEncoded []byte
	haveLast    bool

	logger *slog.Logger
}

// Client is a single connected WebSocket client.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a new, unstarted WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Snapshot, 16),
		logger:     logger.With("component", "dashboard-hub"),
	}
}

// Run is the hub's single-goroutine event loop: register/unregister never
// race with broadcast, so clients and the cached snapshot are only ever
// touched from here.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.dropClient(client)

		case snapshot := <-h.broadcast:
			h.encodeAndSend(snapshot)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	if h.haveLast {
		h.deliver(client, h.lastEncoded)
	}
	h.mu.Unlock()

	h.logger.Info("client connected", "count", count)
}

func (h *Hub) dropClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client disconnected", "count", count)
}

func (h *Hub) encodeAndSend(snapshot Snapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		h.logger.Error("failed to marshal snapshot", "error", err)
		return
	}

	h.mu.Lock()
	h.lastEncoded, h.haveLast = data, true
	for client := range h.clients {
		h.deliver(client, data)
	}
	h.mu.Unlock()
}

// deliver must be called with h.mu held; it drops a client that can't keep
// up rather than blocking the whole hub on one slow socket.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		delete(h.clients, client)
		close(client.send)
	}
}

// BroadcastSnapshot enqueues a fresh snapshot for every connected client.
// It never blocks the caller: a full queue means the hub is behind, and the
// next tick will supersede this one anyway.
func (h *Hub) BroadcastSnapshot(snapshot Snapshot) {
	select {
	case h.broadcast <- snapshot:
	default:
		h.logger.Warn("broadcast channel full, dropping snapshot")
	}
}

// ClientCount reports how many WebSocket clients are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Error("websocket error", "error", err)
			}
			break
		}
		// this dashboard is read-only; any client message is ignored.
	}
}

// NewClient registers conn with hub and starts its read/write pumps. The
// client receives the hub's last snapshot immediately, without waiting for
// the next broadcast tick.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256)}
	client.hub.register <- client
	go client.writePump()
	go client.readPump()
	return client
}
