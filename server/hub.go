package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ChristopherRabotin/helio"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// sendBuffer is the number of frames queued per client before it is dropped.
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// BodyPosition is the position of one body in a frame message.
type BodyPosition struct {
	Name string `json:"name"`
	helio.Position
	Distance float64 `json:"distance"` // AU, not scaled
}

// FrameMessage is the JSON rendition of a frame. Positions are multiplied by Scale.
type FrameMessage struct {
	Epoch  time.Time      `json:"epoch"`
	JD     float64        `json:"jd"`
	Scale  float64        `json:"scale"`
	Bodies []BodyPosition `json:"bodies"`
}

// NewFrameMessage converts the frame, scaling every position by scale display units per AU.
func NewFrameMessage(f helio.Frame, scale float64) FrameMessage {
	msg := FrameMessage{Epoch: f.Epoch.UTC(), JD: f.JD, Scale: scale, Bodies: make([]BodyPosition, 0, len(f.Solutions))}
	for _, name := range f.Bodies() {
		sol := f.Solutions[name]
		msg.Bodies = append(msg.Bodies, BodyPosition{Name: name, Position: sol.Position.Scale(scale), Distance: sol.Distance()})
	}
	return msg
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	addr string
}

// Hub fans frames out to the websocket clients. A client which cannot keep up
// is disconnected rather than slowing down the others.
type Hub struct {
	scale  float64
	logger log.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub returns a hub which scales the positions by scale.
func NewHub(scale float64, logger log.Logger) *Hub {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Hub{scale: scale, logger: log.With(logger, "subsys", "hub"), clients: make(map[*client]struct{})}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run broadcasts every frame of the channel until it is closed or the context is done.
// All clients are then disconnected.
func (h *Hub) Run(ctx context.Context, frames <-chan helio.Frame) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if err := h.Broadcast(f); err != nil {
				level.Error(h.logger).Log("jd", f.JD, "err", err)
			}
		}
	}
}

// Broadcast sends the frame to all the clients.
func (h *Hub) Broadcast(f helio.Frame) error {
	payload, err := json.Marshal(NewFrameMessage(f, h.scale))
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			level.Warn(h.logger).Log("client", c.addr, "status", "dropped", "reason", "too slow")
			h.remove(c)
		}
	}
	return nil
}

// remove must be called with the lock held.
func (h *Hub) remove(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.remove(c)
	}
	h.closed = true
}

// ServeWS upgrades the connection and registers the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		level.Warn(h.logger).Log("client", r.RemoteAddr, "err", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), addr: r.RemoteAddr}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "simulation finished"))
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	level.Info(h.logger).Log("client", c.addr, "status", "connected")

	go h.writePump(c)
	go h.readPump(c)
}

// readPump only handles control messages; the clients never send data.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				level.Debug(h.logger).Log("client", c.addr, "err", err)
			}
			level.Info(h.logger).Log("client", c.addr, "status", "disconnected")
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
