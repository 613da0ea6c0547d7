package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/consult/backend/internal/apperr"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 54 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type inboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// handleWebSocket 建立实时聊天通道，每条 message 帧走一次完整的 SendMessage 流程
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, apperr.PublicMessage(err), apperr.HTTPStatus(err))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.String("session_id", sessionID))
	logger.Info("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	go pingLoop(ctx, conn)

	h.write(conn, logger, outgoingMessage{Type: "connected", SessionID: sessionID, Data: map[string]any{"status": session.Status}})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		switch msg.Type {
		case "message":
			result, err := h.chatSvc.SendMessage(ctx, sessionID, msg.Content, "")
			if err != nil {
				h.writeError(conn, logger, err)
				continue
			}
			h.write(conn, logger, outgoingMessage{Type: "reply", SessionID: sessionID, Data: result.Reply})
		case "ping":
			h.write(conn, logger, outgoingMessage{Type: "pong", SessionID: sessionID})
		default:
			h.writeError(conn, logger, apperr.Validation("unsupported message type: %s", msg.Type))
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, logger *zap.Logger, msg outgoingMessage) {
	msg.Timestamp = time.Now().Unix()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		logger.Debug("websocket write failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

func (h *Handler) writeError(conn *websocket.Conn, logger *zap.Logger, err error) {
	classified := apperr.Classify(err)
	h.write(conn, logger, outgoingMessage{Type: "error", Data: map[string]any{
		"message":   apperr.PublicMessage(classified),
		"kind":      classified.Kind,
		"retryable": classified.Retryable,
	}})
}

// pingLoop 定期发送ping，WriteControl 可与 WriteJSON 并发调用
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}
