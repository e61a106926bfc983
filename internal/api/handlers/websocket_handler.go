package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/fleetassist/backend/internal/rag"
	"github.com/fleetassist/backend/pkg/logger"
)

// streamDelay paces word-by-word streaming so the client renders a
// typing effect.
const streamDelay = 20 * time.Millisecond

type chatRequest struct {
	Query string `json:"query"`
}

type chatChunk struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

type chatComplete struct {
	Type     string        `json:"type"`
	Response *rag.Response `json:"response"`
}

type chatError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

type ChatHandler struct {
	pipeline *rag.Pipeline
}

func NewChatHandler(pipeline *rag.Pipeline) *ChatHandler {
	return &ChatHandler{pipeline: pipeline}
}

// Handle serves one websocket chat session: each incoming message is a
// query, each answer streams back word by word followed by the full
// response payload.
func (h *ChatHandler) Handle(conn *websocket.Conn) {
	userKey := strings.TrimSpace(conn.Query("user_id"))
	if userKey == "" {
		userKey = conn.RemoteAddr().String()
	}

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			logger.Debug("websocket session ended", zap.Error(err))
			return
		}

		query := strings.TrimSpace(req.Query)
		if query == "" {
			h.writeError(conn, "Query must not be empty.", "")
			continue
		}
		if len(query) > maxQueryLength {
			h.writeError(conn, "Query is too long.", "")
			continue
		}

		resp, err := h.pipeline.Answer(context.Background(), userKey, query)
		if err != nil {
			if se, ok := rag.AsSafetyError(err); ok {
				h.writeError(conn, se.Message, string(se.Reason))
				continue
			}
			h.writeError(conn, "Failed to answer the question.", "")
			continue
		}

		for _, word := range strings.Fields(resp.Answer) {
			if err := conn.WriteJSON(chatChunk{Type: "chunk", Content: word + " "}); err != nil {
				return
			}
			time.Sleep(streamDelay)
		}

		if err := conn.WriteJSON(chatComplete{Type: "complete", Response: resp}); err != nil {
			return
		}
	}
}

func (h *ChatHandler) writeError(conn *websocket.Conn, message, reason string) {
	if err := conn.WriteJSON(chatError{Type: "error", Message: message, Reason: reason}); err != nil {
		logger.Debug("failed to write websocket error", zap.Error(err))
	}
}
