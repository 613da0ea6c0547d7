package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/consult/backend/internal/apperr"
	"github.com/zhouzirui/consult/backend/pkg/utils"
)

// StreamEvent 为SSE推送的数据块
type StreamEvent struct {
	Event     string `json:"event"`
	SessionID string `json:"sessionId,omitempty"`
	Content   string `json:"content,omitempty"`
	Data      any    `json:"data,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
	Kind      string `json:"kind,omitempty"`
}

// handleStream 以SSE形式返回回复：start -> message -> end，失败时推送error事件
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	message := r.URL.Query().Get("message")
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	utils.SendSSEChunk(w, flusher, StreamEvent{Event: "start", SessionID: sessionID})

	result, err := h.chatSvc.SendMessage(r.Context(), sessionID, message, "")
	if err != nil {
		classified := apperr.Classify(err)
		h.logger.Info("stream request failed", zap.String("session_id", sessionID), zap.String("kind", string(classified.Kind)))
		utils.SendSSEChunk(w, flusher, StreamEvent{
			Event:     "error",
			SessionID: sessionID,
			Error:     apperr.PublicMessage(classified),
			Kind:      string(classified.Kind),
		})
		return
	}

	utils.SendSSEChunk(w, flusher, StreamEvent{
		Event:     "message",
		SessionID: sessionID,
		Content:   result.Reply.Content,
		Data:      result.Reply.Metadata,
	})
	utils.SendSSEChunk(w, flusher, StreamEvent{Event: "end", SessionID: sessionID, Finished: true})
}
