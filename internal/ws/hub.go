package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sitedeck/sitedeck/backend/internal/infrastructure/monitoring"
	"github.com/sitedeck/sitedeck/backend/internal/logging"
	"github.com/sitedeck/sitedeck/backend/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // display process connects from a custom scheme
	},
}

// Hub fans registry events out to connected display processes.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

type client struct {
	conn *websocket.Conn
	// WriteJSON is not safe for concurrent use; broadcast and the
	// reader's pong reply share this lock.
	writeMu sync.Mutex
}

// NewHub creates an event hub
func NewHub(metrics *monitoring.Metrics, logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		metrics: metrics,
		logger:  logger.Named("ws"),
	}
}

// Publish implements extension.Events: every connected display process
// receives the event. Slow or broken clients are dropped, never waited on.
func (h *Hub) Publish(eventType string, record *types.ExtensionRecord) {
	event := types.WSEvent{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
	}
	if record != nil {
		event.Extension = record
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(event); err != nil {
			h.logger.Warn("Dropping unresponsive client", zap.Error(err))
			h.remove(c)
		}
	}
	if h.metrics != nil {
		h.metrics.RecordWSMessage("out", eventType)
	}
}

// HandleConnection upgrades the request and serves the event stream until
// the client disconnects.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{conn: conn}
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.IncWSConnections()
	}
	defer func() {
		h.remove(cl)
		conn.Close()
	}()

	// Welcome frame so the display process can confirm the stream is live.
	cl.write(types.WSEvent{Type: "system.connected", Timestamp: time.Now().Unix()})

	// The stream is push-only; reads exist to detect disconnects and
	// answer keep-alive pings.
	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", msg.Type)
		}
		if msg.Type == "ping" {
			cl.write(types.WSEvent{Type: "pong", Timestamp: time.Now().Unix()})
		}
	}
}

// ClientCount reports the number of connected display processes.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	if ok && h.metrics != nil {
		h.metrics.DecWSConnections()
	}
}

func (c *client) write(event types.WSEvent) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(event)
}
