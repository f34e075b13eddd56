// Package stream publishes rendered frames to websocket spectators.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"fly/internal/logging"
	"fly/internal/render"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// DefaultBuffer is how many frames a spectator may fall behind before it
	// is dropped.
	DefaultBuffer = 8
	writeWait     = 2 * time.Second
	pingInterval  = 10 * time.Second
)

// Frame is one presented frame as sent to spectators.
type Frame struct {
	Seq    uint64      `json:"seq"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Ops    []render.Op `json:"ops"`
}

type client struct {
	id   string
	send chan []byte
	once sync.Once
}

func (c *client) close() { c.once.Do(func() { close(c.send) }) }

// Hub is an http.Handler that upgrades spectators to websockets and fans
// frames out to them.
type Hub struct {
	upgrader websocket.Upgrader
	buffer   int
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	seq     uint64
}

// NewHub creates a hub. buffer <= 0 uses DefaultBuffer.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		buffer:  buffer,
		logger:  logging.OrNop(logger).Named("stream"),
		clients: make(map[*client]struct{}),
	}
}

// Clients returns the number of connected spectators.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	c := &client{id: uuid.NewString(), send: make(chan []byte, h.buffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("spectator joined", zap.String("client", c.id), zap.String("remote", r.RemoteAddr))

	go h.readLoop(conn, c)
	h.writeLoop(conn, c)
}

// readLoop discards client messages and notices disconnects.
func (h *Hub) readLoop(conn *websocket.Conn, c *client) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, c *client) {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		h.remove(c)
		conn.Close()
		h.logger.Info("spectator left", zap.String("client", c.id))
	}()
	for {
		select {
		case msg, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Publish encodes a frame and queues it for every spectator. Spectators
// whose buffer is full are dropped.
func (h *Hub) Publish(w, hgt float64, ops []render.Op) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return nil
	}
	h.seq++
	msg, err := json.Marshal(Frame{Seq: h.seq, Width: w, Height: hgt, Ops: ops})
	if err != nil {
		return err
	}
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			c.close()
			h.logger.Warn("dropped slow spectator", zap.String("client", c.id), zap.Uint64("seq", h.seq))
		}
	}
	return nil
}

// Close disconnects every spectator.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

// Surface returns a render surface of size w x h that publishes every
// presented frame to the hub.
func (h *Hub) Surface(w, hgt float64) *render.Recorder {
	rec := render.NewRecorder(w, hgt)
	rec.OnPresent = h.Publish
	return rec
}
