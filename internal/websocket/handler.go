package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"molttown/internal/room"
	"molttown/pkg/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The town is a public room; any origin may join.
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Handler upgrades HTTP requests and feeds frames into the room.
type Handler struct {
	room *room.Room
	log  *zap.Logger
}

// NewHandler creates a WebSocket handler bound to one room.
func NewHandler(rm *room.Room, log *zap.Logger) *Handler {
	return &Handler{room: rm, log: log}
}

// HandleWebSocket upgrades the request and runs the connection lifecycle.
// There is no authentication: a connection is a transport handle, and the
// userId inside chat frames is taken at face value.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	wsConn := NewConnection(uuid.New().String(), conn)

	if err := h.room.Connect(wsConn); err != nil {
		h.log.Warn("room rejected connection", zap.Error(err))
		_ = wsConn.Close()
		return
	}

	go h.handleConnection(wsConn)
}

// handleConnection runs the read pump and heartbeat until the peer goes away.
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		h.room.Disconnect(conn.ID())
		_ = conn.Close()
	}()

	if err := conn.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		h.log.Warn("failed to set read deadline", zap.Error(err))
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Debug("websocket read error", zap.String("conn", conn.ID()), zap.Error(err))
			}
			break
		}

		if messageType != websocket.TextMessage {
			continue
		}

		var msg types.Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed frames are dropped; the connection stays open.
			h.log.Debug("dropping malformed frame", zap.String("conn", conn.ID()), zap.Error(err))
			continue
		}

		if err := h.room.Inbound(conn, msg); err != nil {
			h.log.Debug("room did not accept frame", zap.String("conn", conn.ID()), zap.Error(err))
		}
	}
}
