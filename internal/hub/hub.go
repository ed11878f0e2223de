// Package hub fans dashboard events out to websocket clients.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/gorilla/websocket"

	"github.com/quakepredictec/riesgo-dashboard/internal/metrics"
	"github.com/quakepredictec/riesgo-dashboard/internal/models"
)

// Message types pushed to clients
const (
	TypeMapOp = "map_op"
	TypeEvent = "event"
)

// Message is the JSON frame written to every client
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub manages websocket clients and broadcasts. It is the rendering surface
// for map operations: Enqueue never blocks. Marker replacements bypass the
// queue; only the latest is kept, and it is replayed to clients that connect
// later.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	resync     chan struct{}
	done       chan struct{}
	mutex      sync.RWMutex
	snapshot   []byte
	pending    bool
	sent       uint64
}

// Client is one websocket connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	remote string
}

// New creates a hub whose broadcast queue holds buffer messages
func New(buffer int) *Hub {
	if buffer < 1 {
		buffer = 256
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, buffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		resync:     make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Run dispatches until ctx is done, then closes every client
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return nil

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			if h.snapshot != nil {
				client.send <- h.snapshot
			}
			h.mutex.Unlock()
			log.WithField("remote", client.remote).Info("websocket client registered")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			log.WithField("remote", client.remote).Info("websocket client unregistered")

		case <-h.resync:
			h.mutex.Lock()
			h.flushLocked()
			h.mutex.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				log.WithError(err).Error("serialize hub message")
				continue
			}
			h.mutex.Lock()
			// a replacement queued earlier goes out before later operations
			h.flushLocked()
			h.deliverLocked(data)
			h.mutex.Unlock()
		}
	}
}

func (h *Hub) flushLocked() {
	if !h.pending {
		return
	}
	h.pending = false
	h.deliverLocked(h.snapshot)
}

func (h *Hub) deliverLocked(data []byte) {
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
	h.sent++
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Enqueue queues a map operation. A full queue drops the operation, except
// for marker replacements, which always supersede the previous one.
func (h *Hub) Enqueue(op models.MapOp) bool {
	if op.Op == models.MapOpReplaceAll {
		return h.replace(op)
	}
	if !h.publish(Message{Type: TypeMapOp, Data: op}) {
		metrics.MapOpsDroppedTotal.Inc()
		return false
	}
	return true
}

func (h *Hub) replace(op models.MapOp) bool {
	data, err := json.Marshal(Message{Type: TypeMapOp, Data: op})
	if err != nil {
		log.WithError(err).Error("serialize marker replacement")
		return false
	}

	h.mutex.Lock()
	h.snapshot = data
	h.pending = true
	h.mutex.Unlock()

	select {
	case h.resync <- struct{}{}:
	default:
	}
	return true
}

// Publish queues a change notification without blocking
func (h *Hub) Publish(event interface{}) bool {
	return h.publish(Message{Type: TypeEvent, Data: event})
}

func (h *Hub) publish(m Message) bool {
	select {
	case h.broadcast <- m:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Sent returns how many messages were broadcast
func (h *Hub) Sent() uint64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.sent
}

// Serve registers conn and starts its pumps
func (h *Hub) Serve(conn *websocket.Conn) {
	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		remote: conn.RemoteAddr().String(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump only drains control frames; clients do not send commands
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).WithField("remote", c.remote).Warn("websocket read")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
