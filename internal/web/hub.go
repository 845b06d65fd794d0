package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/sweeney/slide-sensor/internal/publish"
	"github.com/sweeney/slide-sensor/internal/status"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	clientSendBuf = 32
	broadcastBuf  = 128
)

// envelope is the wire format of every websocket frame.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Hub fans gesture events out to connected websocket clients. Slow clients
// are disconnected when their queue fills.
type Hub struct {
	log zerolog.Logger

	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	// done is closed when Run returns.
	done       chan struct{}

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub constructs a hub. Call Run to start it.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:        log,
		broadcast:  make(chan []byte, broadcastBuf),
		register:   make(chan *client, 16),
		unregister: make(chan *client, 16),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
	}
}

// Run processes hub events until ctx is canceled, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Str("remote_addr", c.remoteAddr).Int("clients", n).Msg("ws client registered")

		case c := <-h.unregister:
			h.remove(c, "unregister")

		case msg := <-h.broadcast:
			var slow []*client
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()
			for _, c := range slow {
				h.remove(c, "slow_client")
			}
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish broadcasts a gesture event. It never blocks; when the queue is
// full the event is dropped. Hub satisfies publish.Publisher so it can sit
// in the same fan-out as the brokers.
func (h *Hub) Publish(event publish.Event) error {
	payload, err := publish.FormatPayload(event)
	if err != nil {
		return err
	}
	h.enqueue("event", payload)
	return nil
}

// PublishSystem broadcasts a lifecycle event.
func (h *Hub) PublishSystem(event publish.SystemEvent) error {
	payload, err := publish.FormatSystemPayload(event)
	if err != nil {
		return err
	}
	h.enqueue("system", payload)
	return nil
}

// Close is a no-op; clients are closed when Run's context ends.
func (h *Hub) Close() error {
	return nil
}

func (h *Hub) enqueue(typ string, payload []byte) {
	msg, err := json.Marshal(envelope{Type: typ, Data: payload})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn().Int("bytes", len(msg)).Msg("ws broadcast queue full, dropping message")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.conn.Close()
		close(c.send)
		delete(h.clients, c)
	}
	// Clients queued for registration never made it into the map.
	for {
		select {
		case c := <-h.register:
			_ = c.conn.Close()
			close(c.send)
		default:
			return
		}
	}
}

// join queues c for registration. It reports false once Run has returned.
func (h *Hub) join(c *client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave queues c for removal. It returns immediately once Run has returned.
func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) remove(c *client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		_ = c.conn.Close()
		h.log.Debug().Str("remote_addr", c.remoteAddr).Str("reason", reason).Int("clients", n).Msg("ws client disconnected")
	}
}

type client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// readPump discards incoming frames and unregisters the client once the
// connection fails.
func (c *client) readPump() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			var ce *websocket.CloseError
			if !errors.As(err, &ce) {
				c.hub.log.Debug().Err(err).Str("remote_addr", c.remoteAddr).Msg("ws read failed")
			}
			c.hub.leave(c)
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveWS upgrades the request and queues the current status as the first
// frame so new clients do not wait for the next gesture.
func (h *Hub) serveWS(tracker *status.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn().Err(err).Msg("ws upgrade failed")
			return
		}
		c := &client{
			hub:        h,
			conn:       conn,
			send:       make(chan []byte, clientSendBuf),
			remoteAddr: r.RemoteAddr,
		}
		if first, err := json.Marshal(envelope{Type: "status", Data: status.FormatJSON(tracker.Snapshot())}); err == nil {
			c.send <- first
		}
		if !h.join(c) {
			_ = conn.Close()
			return
		}

		go c.writePump()
		go c.readPump()
	}
}
