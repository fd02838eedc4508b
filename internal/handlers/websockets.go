package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"co2_sensor_proxy/internal/logger"
	"co2_sensor_proxy/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = (pongWait * 9) / 10
	maxMsgSize  = 1 << 12 // 4 KB
	sendBufSize = 16
)

const (
	msgSnapshot       = "snapshot"
	msgCharacteristic = "characteristic"
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsClient struct {
	send chan wsEnvelope
}

// Hub fans characteristic updates out to every connected WebSocket client.
// It implements service.Notifier.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	log     *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{clients: make(map[*wsClient]struct{}), log: log}
}

func (hub *Hub) register() *wsClient {
	c := &wsClient{send: make(chan wsEnvelope, sendBufSize)}
	hub.mu.Lock()
	hub.clients[c] = struct{}{}
	hub.mu.Unlock()
	return c
}

func (hub *Hub) unregister(c *wsClient) {
	hub.mu.Lock()
	if _, ok := hub.clients[c]; ok {
		delete(hub.clients, c)
		close(c.send)
	}
	hub.mu.Unlock()
}

// Clients returns the number of connected clients.
func (hub *Hub) Clients() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients)
}

// UpdateCharacteristic never blocks: a client whose buffer is full misses
// the update.
func (hub *Hub) UpdateCharacteristic(_ context.Context, ch models.Characteristic, value any) error {
	env := wsEnvelope{
		Type: msgCharacteristic,
		Data: models.CharacteristicUpdate{Characteristic: ch, Value: value},
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for c := range hub.clients {
		select {
		case c.send <- env:
		default:
			hub.log.Warnw("ws_client_slow", "characteristic", ch)
		}
	}
	return nil
}

func (h *Handler) wsConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	client := h.hub.register()
	defer h.hub.unregister(client)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	// Send the cached snapshot so a new client does not wait a full interval.
	if err := writeEnvelope(conn, wsEnvelope{Type: msgSnapshot, Data: h.services.Sensor.Snapshot()}); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case env, ok := <-client.send:
			if !ok {
				return
			}
			if err := writeEnvelope(conn, env); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

func writeEnvelope(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}
