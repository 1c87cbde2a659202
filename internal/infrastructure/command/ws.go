package command

import (
	"net/http"

	"github.com/dkovalev/crypto_score_bot/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler accepts websocket connections and feeds parsed text frames
// into the command queue. Every frame gets an explicit ack: "OK" when the
// command was parsed and enqueued, "ERR <reason>" otherwise. The sender
// never has to guess whether a command was picked up.
type WSHandler struct {
	queue    *Queue
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(queue *Queue, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		queue: queue,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("Command client connected", zap.String("remote", conn.RemoteAddr().String()))

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("Command client read error", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			h.ack(conn, "ERR expected text frame")
			continue
		}

		cmd, err := domain.ParseCommand(string(message))
		if err != nil {
			h.logger.Warn("Rejected malformed command",
				zap.String("raw", string(message)),
				zap.Error(err))
			h.ack(conn, "ERR "+err.Error())
			continue
		}

		if !h.queue.Push(cmd) {
			h.logger.Warn("Command queue full, rejecting",
				zap.String("action", string(cmd.Action)))
			h.ack(conn, "ERR queue full")
			continue
		}

		h.logger.Info("Command enqueued",
			zap.String("action", string(cmd.Action)),
			zap.String("pair", cmd.Pair))
		h.ack(conn, "OK")
	}
}

func (h *WSHandler) ack(conn *websocket.Conn, msg string) {
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		h.logger.Warn("Ack write failed", zap.Error(err))
	}
}
