package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 32
)

// client owns the only writer of its connection.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// writePump drains send until it is closed or a write fails. Each write has
// writeWait to complete so a stalled peer only blocks its own goroutine.
func (c *client) writePump(writeWait time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Msg("ws: write failed")
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

// Hub keeps the open WebSocket connections per topic. Broadcast never
// writes to a socket itself; it queues onto each client's buffer and drops
// clients whose buffer is full.
type Hub struct {
	mu        sync.RWMutex
	topics    map[string]map[*websocket.Conn]*client
	writeWait time.Duration
}

func NewHub() *Hub {
	return &Hub{
		topics:    make(map[string]map[*websocket.Conn]*client),
		writeWait: writeWait,
	}
}

// AddConnection subscribes conn to topic and starts its writer.
func (h *Hub) AddConnection(topic string, conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*websocket.Conn]*client)
	}
	h.topics[topic][conn] = c
	n := len(h.topics[topic])
	h.mu.Unlock()

	go c.writePump(h.writeWait)
	log.Debug().Str("topic", topic).Int("connections", n).Msg("ws client connected")
}

// RemoveConnection unsubscribes conn and closes it. Calling it for a
// connection the hub already dropped is a no-op apart from the close.
func (h *Hub) RemoveConnection(topic string, conn *websocket.Conn) {
	if h.remove(topic, conn) {
		log.Debug().Str("topic", topic).Msg("ws client disconnected")
	}
	conn.Close()
}

// remove deletes conn from topic and closes its send channel. It reports
// whether conn was still subscribed.
func (h *Hub) remove(topic string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.topics[topic]
	if !ok {
		return false
	}
	c, ok := conns[conn]
	if !ok {
		return false
	}
	delete(conns, conn)
	close(c.send)
	if len(conns) == 0 {
		delete(h.topics, topic)
	}
	return true
}

// Connections returns the number of open connections on topic.
func (h *Hub) Connections(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) Broadcast(topic string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("ws: marshal message")
		return
	}

	// Sends happen under the read lock so remove cannot close a channel
	// mid-send. None of them block.
	var slow []*websocket.Conn
	h.mu.RLock()
	for conn, c := range h.topics[topic] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range slow {
		if h.remove(topic, conn) {
			log.Warn().Str("topic", topic).Msg("ws: client too slow, dropping connection")
		}
	}
}
