package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/events"
	"github.com/wardenhq/warden/internal/logging"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// frame is one notification pushed to a client.
type frame struct {
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload"`
}

// Handler streams bus notifications to WebSocket clients.
type Handler struct {
	bus    *events.Bus
	logger *logging.Logger
}

// NewHandler creates a WebSocket handler backed by the notification bus.
func NewHandler(bus *events.Bus, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		bus:    bus,
		logger: logger.Component("ws"),
	}
}

// HandleConnection upgrades the request and forwards every bus event to the
// client until it disconnects. Slow clients drop frames rather than block
// the bus.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	frames := make(chan frame, sendBuffer)
	unsubscribe := h.bus.Subscribe(events.Wildcard, func(name string, payload map[string]interface{}) {
		select {
		case frames <- frame{Event: name, Payload: payload}:
		default:
			// Client is not keeping up; drop the frame.
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case f := <-frames:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(f); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
