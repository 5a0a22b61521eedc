package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ProgressEvent is pushed to connected clients as a bulk issuance batch
// advances.
type ProgressEvent struct {
	BatchID   string    `json:"batch_id"`
	Recipient string    `json:"recipient,omitempty"`
	Delivered bool      `json:"delivered"`
	Error     string    `json:"error,omitempty"`
	Done      int       `json:"done"`
	Total     int       `json:"total"`
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp"`
}

// connection is one subscribed client.
type connection struct {
	id   string
	conn *websocket.Conn
	send chan ProgressEvent
}

// Hub fans batch progress events out to all connected clients.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*connection
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewHub creates a new progress hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// HandleConnection upgrades an HTTP request and serves progress events until
// the client disconnects.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &connection{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan ProgressEvent, 64),
	}

	h.mu.Lock()
	h.connections[c.id] = c
	h.mu.Unlock()

	h.logger.Debug("Progress subscriber connected", zap.String("connection_id", c.id))

	go h.writePump(c)
	go h.readPump(c)

	return nil
}

// Broadcast delivers an event to every connected client. Slow clients are
// dropped instead of blocking the batch worker.
func (h *Hub) Broadcast(event ProgressEvent) {
	event.Timestamp = time.Now()

	h.mu.RLock()
	stale := make([]*connection, 0)
	for _, c := range h.connections {
		select {
		case c.send <- event:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.remove(c)
	}
}

// ConnectionCount returns the number of subscribed clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	for id, c := range h.connections {
		c.conn.Close()
		close(c.send)
		delete(h.connections, id)
	}
	h.mu.Unlock()
}

// writePump pushes events and keepalive pings to one client.
func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
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

// readPump drains the client so control frames are processed and removes the
// connection once it closes.
func (h *Hub) readPump(c *connection) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Progress subscriber read error", zap.Error(err))
			}
			return
		}
	}
}

// remove unregisters and closes one connection.
func (h *Hub) remove(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c.id]; ok {
		delete(h.connections, c.id)
		close(c.send)
		c.conn.Close()
		h.logger.Debug("Progress subscriber disconnected", zap.String("connection_id", c.id))
	}
}
