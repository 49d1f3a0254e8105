// Package realtime provides WebSocket rooms for live trade sessions.
//
// Every trade is a room. Clients join with a join_trade frame and from
// then on receive every chat message and every lifecycle transition for
// that trade as it commits. Chat frames sent inbound are persisted
// first and echoed back through the room, so all members including the
// sender render the same durable order.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/chat"
	"github.com/ayush-codes-ar/SRM-SWAP/internal/metrics"
)

// normalCloseCodes are WebSocket close codes that indicate an expected disconnect.
var normalCloseCodes = []int{
	websocket.CloseNormalClosure,
	websocket.CloseGoingAway,
	websocket.CloseNoStatusReceived,
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Allow non-browser clients
		}
		host := r.Host
		return origin == "http://"+host || origin == "https://"+host
	},
}

// Inbound frame types.
const (
	FrameJoinTrade   = "join_trade"
	FrameSendMessage = "send_message"
)

// Outbound frame types.
const (
	FrameReceiveMessage     = "receive_message"
	FrameTradeStatusUpdated = "trade_status_updated"
)

// Frame is the envelope for every message on the wire, both directions.
type Frame struct {
	Type    string          `json:"type"`
	TradeID string          `json:"tradeId,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// sendFrame is the inbound payload of a send_message frame.
type sendFrame struct {
	SenderID string `json:"senderId"`
	Content  string `json:"content"`
}

// Sender persists an inbound chat frame; the chat service implements
// this. The persisted message comes back through MessageReceived.
type Sender interface {
	Send(ctx context.Context, tradeID, senderID, content string) (*chat.Message, error)
}

// Client represents one WebSocket connection and the rooms it joined.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	mu    sync.RWMutex
	rooms map[string]bool
}

func (c *Client) inRoom(tradeID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[tradeID]
}

func (c *Client) join(tradeID string) {
	c.mu.Lock()
	c.rooms[tradeID] = true
	c.mu.Unlock()
}

// MaxClients is the maximum number of concurrent WebSocket connections.
const MaxClients = 10000

// outbound pairs a serialized frame with its target room. A frame with
// an empty room goes to every client.
type outbound struct {
	tradeID string
	payload []byte
}

// Hub manages all WebSocket connections and their room membership.
// All fan-out flows through a single loop, which is what guarantees
// room members observe events in one global order per room.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	logger     *slog.Logger
	sender     Sender
	done       chan struct{} // closed when Run exits; prevents upgrade race
	maxClients int

	// Stats
	totalFrames  atomic.Int64
	totalClients atomic.Int64
	peakClients  atomic.Int64
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
		done:       make(chan struct{}),
		maxClients: MaxClients,
	}
}

// WithSender adds chat persistence for inbound send_message frames.
// Without it inbound chat frames are dropped.
func (h *Hub) WithSender(s Sender) *Hub {
	h.sender = s
	return h
}

// Run starts the hub's main loop.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("realtime hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("realtime hub shutting down, closing client connections")
			h.mu.Lock()
			for client := range h.clients {
				close(client.send) // writePump sends CloseMessage on closed channel
				delete(h.clients, client)
			}
			h.mu.Unlock()
			metrics.ActiveWebSocketClients.Set(0)
			metrics.ActiveTradeRooms.Set(0)
			h.logger.Info("realtime hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalClients.Add(1)
			if current := int64(len(h.clients)); current > h.peakClients.Load() {
				h.peakClients.Store(current)
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.ActiveWebSocketClients.Set(float64(n))
			h.logger.Info("client connected", "total", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			rooms := h.activeRoomsLocked()
			h.mu.Unlock()
			metrics.ActiveWebSocketClients.Set(float64(n))
			metrics.ActiveTradeRooms.Set(float64(rooms))
			h.logger.Info("client disconnected", "total", n)

		case out := <-h.broadcast:
			h.totalFrames.Add(1)
			h.mu.RLock()
			var slow []*Client
			for client := range h.clients {
				if out.tradeID != "" && !client.inRoom(out.tradeID) {
					continue
				}
				select {
				case client.send <- out.payload:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			// Remove slow clients under write lock
			if len(slow) > 0 {
				h.mu.Lock()
				for _, client := range slow {
					if _, ok := h.clients[client]; ok {
						close(client.send)
						delete(h.clients, client)
					}
				}
				h.mu.Unlock()
			}
		}
	}
}

// activeRoomsLocked counts rooms with at least one member. Caller holds h.mu.
func (h *Hub) activeRoomsLocked() int {
	rooms := make(map[string]bool)
	for client := range h.clients {
		client.mu.RLock()
		for room := range client.rooms {
			rooms[room] = true
		}
		client.mu.RUnlock()
	}
	return len(rooms)
}

// MessageReceived fans a persisted chat message out to its trade room.
// Implements the chat service's Broadcaster.
func (h *Hub) MessageReceived(tradeID string, m *chat.Message) {
	h.emit(tradeID, FrameReceiveMessage, m)
}

// TradeUpdated fans a trade snapshot out to its room after a lifecycle
// transition. Implements the trade service's Events.
func (h *Hub) TradeUpdated(tradeID string, snap interface{}) {
	h.emit(tradeID, FrameTradeStatusUpdated, snap)
}

func (h *Hub) emit(tradeID, frameType string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("failed to serialize frame", "type", frameType, "error", err)
		return
	}
	payload, _ := json.Marshal(Frame{Type: frameType, TradeID: tradeID, Data: raw})

	select {
	case h.broadcast <- outbound{tradeID: tradeID, payload: payload}:
	default:
		h.logger.Warn("broadcast channel full, dropping frame", "type", frameType, "tradeId", tradeID)
	}
}

// Stats returns hub statistics.
func (h *Hub) Stats() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"connectedClients": len(h.clients),
		"activeRooms":      h.activeRoomsLocked(),
		"totalFrames":      h.totalFrames.Load(),
		"totalClients":     h.totalClients.Load(),
		"peakClients":      h.peakClients.Load(),
	}
}

// HandleWebSocket upgrades HTTP to WebSocket.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Reject upgrades after the hub has stopped to prevent orphaned connections.
	select {
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	h.mu.RLock()
	n := len(h.clients)
	h.mu.RUnlock()
	if n >= h.maxClients {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, 256),
		rooms: make(map[string]bool),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump reads inbound frames: room joins and chat messages.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, normalCloseCodes...) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.hub.logger.Warn("unparseable frame dropped")
			continue
		}

		switch frame.Type {
		case FrameJoinTrade:
			if frame.TradeID == "" {
				continue
			}
			c.join(frame.TradeID)
			c.hub.mu.RLock()
			rooms := c.hub.activeRoomsLocked()
			c.hub.mu.RUnlock()
			metrics.ActiveTradeRooms.Set(float64(rooms))

		case FrameSendMessage:
			if c.hub.sender == nil || frame.TradeID == "" {
				continue
			}
			var payload sendFrame
			if err := json.Unmarshal(frame.Data, &payload); err != nil {
				continue
			}
			// Persist first; the echo comes back through MessageReceived
			if _, err := c.hub.sender.Send(context.Background(), frame.TradeID, payload.SenderID, payload.Content); err != nil {
				c.hub.logger.Warn("inbound message rejected", "tradeId", frame.TradeID, "error", err)
			}
		}
	}
}

// writePump writes outbound frames and keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Warn("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.logger.Debug("websocket ping failed", "error", err)
				return
			}
		}
	}
}
