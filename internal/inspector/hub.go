package inspector

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/conneroisu/lenskit/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 30 * time.Second

	// Maximum command size accepted from a peer.
	maxMessageSize = 512

	clientBuffer = 16
)

// frame is one outgoing message in both encodings. cbor is nil for
// messages that only exist as JSON.
type frame struct {
	json []byte
	cbor []byte
}

// client is one connected browser.
type client struct {
	id     string
	conn   *websocket.Conn
	send   chan frame
	hub    *hub
	binary bool

	mu     sync.Mutex
	closed bool
}

// enqueue queues f unless the client is closed or its buffer is full.
func (c *client) enqueue(f frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- f:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// hub fans frames out to clients. Only run touches the client map.
type hub struct {
	clients    map[string]*client
	register   chan *client
	unregister chan *client
	broadcast  chan frame
	commands   func(ctx context.Context, c *client, raw []byte)
	logger     logging.Logger

	mu    sync.RWMutex
	count int
}

func newHub(logger logging.Logger) *hub {
	return &hub{
		clients:    make(map[string]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan frame, 1),
		logger:     logger,
	}
}

func newClient(h *hub, conn *websocket.Conn, binary bool) *client {
	return &client{
		id:     uuid.New().String(),
		conn:   conn,
		send:   make(chan frame, clientBuffer),
		hub:    h,
		binary: binary,
	}
}

// Clients returns the number of connected clients.
func (h *hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// publish replaces any frame still waiting for the hub with f.
func (h *hub) publish(f frame) {
	for {
		select {
		case h.broadcast <- f:
			return
		default:
		}
		select {
		case <-h.broadcast:
		default:
		}
	}
}

func (h *hub) run(ctx context.Context) {
	defer func() {
		for id, c := range h.clients {
			delete(h.clients, id)
			c.close()
		}
		h.setCount(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c.id] = c
			h.setCount(len(h.clients))
			h.logger.Info(ctx, "inspector client connected", "client", c.id, "total", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				c.close()
				h.setCount(len(h.clients))
				h.logger.Info(ctx, "inspector client disconnected", "client", c.id, "total", len(h.clients))
			}

		case f := <-h.broadcast:
			for id, c := range h.clients {
				if !c.enqueue(f) {
					delete(h.clients, id)
					c.close()
					h.logger.Warn(ctx, nil, "dropping slow inspector client", "client", id)
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

// readPump forwards commands from the peer until the connection closes.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-ctx.Done():
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, raw, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				c.hub.logger.Debug(ctx, "inspector read ended", "client", c.id, "error", err.Error())
			}
			return
		}
		if c.hub.commands != nil {
			c.hub.commands(ctx, c, raw)
		}
	}
}

// writePump writes queued frames and keeps the connection alive.
func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case f, ok := <-c.send:
			if !ok {
				return
			}
			kind, data := websocket.MessageText, f.json
			if c.binary && f.cbor != nil {
				kind, data = websocket.MessageBinary, f.cbor
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, kind, data)
			cancel()
			if err != nil {
				c.hub.logger.Debug(ctx, "inspector write failed", "client", c.id, "error", err.Error())
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

// reply queues a JSON message for this client only.
func (c *client) reply(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.enqueue(frame{json: data})
}
