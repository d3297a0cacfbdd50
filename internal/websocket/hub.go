package websocket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type tokenParser interface {
	ParseToken(tokenStr string) (string, error)
}

// Hub forwards every message on one Redis channel to all connected
// WebSocket clients.
type Hub struct {
	mu      sync.Mutex
	conns   map[*websocket.Conn]struct{}
	redis   *redis.Client
	channel string
	auth    tokenParser
	log     logrus.FieldLogger
}

func NewHub(redisClient *redis.Client, channel string, auth tokenParser, log logrus.FieldLogger) *Hub {
	return &Hub{
		conns:   make(map[*websocket.Conn]struct{}),
		redis:   redisClient,
		channel: channel,
		auth:    auth,
		log:     log,
	}
}

// Run subscribes to the channel and blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	pubsub := h.redis.Subscribe(ctx, h.channel)
	defer pubsub.Close()

	h.log.WithField("channel", h.channel).Info("WebSocket hub subscribed")
	h.pump(ctx, pubsub.Channel())
	h.closeAll()
}

func (h *Hub) pump(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast([]byte(msg.Payload))
		}
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on a WebSocket handshake, so the token
	// travels in the query string.
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if _, err := h.auth.ParseToken(tokenStr); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	h.register(conn)

	go func() {
		defer h.unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	total := len(h.conns)
	h.mu.Unlock()

	h.log.WithField("connections", total).Debug("WebSocket connected")
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	delete(h.conns, conn)
	total := len(h.conns)
	h.mu.Unlock()

	if ok {
		conn.Close()
		h.log.WithField("connections", total).Debug("WebSocket disconnected")
	}
}

// broadcast holds the lock for the whole fan-out; gorilla connections allow
// only one concurrent writer.
func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.WithError(err).Debug("Dropping WebSocket client")
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.conns, conn)
	}
}

// Connections reports how many clients are attached.
func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
