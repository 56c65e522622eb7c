package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/grindcity/economy-engine/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS layer
	},
}

// Hub maintains the set of active websocket clients and fans event
// envelopes out to all of them. Overlay dashboards subscribe here.
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.Mutex
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewHub(m *metrics.Metrics, log *zap.Logger) *Hub {
	return &Hub{
		broadcast: make(chan []byte, 256),
		clients:   make(map[*websocket.Conn]bool),
		metrics:   m,
		log:       log.Named("ws"),
	}
}

func (h *Hub) Run() {
	for message := range h.broadcast {
		h.mutex.Lock()
		for client := range h.clients {
			// Write deadline keeps one blocked client from hanging the hub.
			_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				h.log.Debug("websocket write failed", zap.Error(err))
				client.Close()
				delete(h.clients, client)
				h.metrics.WebsocketClients.Dec()
			}
		}
		h.mutex.Unlock()
	}
}

// Subscribe upgrades the connection and keeps it until the peer goes away.
// The feed is push-only; reads exist to notice disconnects.
func (h *Hub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mutex.Lock()
	h.clients[conn] = true
	total := len(h.clients)
	h.mutex.Unlock()
	h.metrics.WebsocketClients.Inc()

	h.log.Debug("websocket client connected", zap.Int("total", total))

	go func() {
		defer func() {
			h.mutex.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				h.metrics.WebsocketClients.Dec()
			}
			h.mutex.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.log.Debug("websocket read failed", zap.Error(err))
				}
				return
			}
		}
	}()
}

// Broadcast queues one frame for every connected client.
func (h *Hub) Broadcast(data []byte) {
	h.broadcast <- data
}
