package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/xhad/newsbrief/pkg/logging"
	"github.com/xhad/newsbrief/pkg/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope for both websocket directions.
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Data    any    `json:"data,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	logger := logging.From(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read ended", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendMessage(ctx, conn, Message{Type: "error", Content: "invalid message"})
			continue
		}

		s.sendMessage(ctx, conn, s.handleMessage(ctx, msg))
	}
}

func (s *Server) handleMessage(ctx context.Context, msg Message) Message {
	switch msg.Type {
	case "digest":
		d, err := s.store.GetDigest(ctx)
		if err != nil {
			return errorMessage(ctx, err)
		}
		return Message{Type: "digest", Content: d.Title, Data: d}

	case "related":
		id, err := strconv.ParseInt(strings.TrimSpace(msg.Content), 10, 64)
		if err != nil || id <= 0 {
			return Message{Type: "error", Content: "content must be an article id"}
		}
		related, err := s.store.Related(ctx, id, s.config.RelatedK)
		if err != nil {
			return errorMessage(ctx, err)
		}
		return Message{Type: "related", Content: msg.Content, Data: related}
	}

	return Message{Type: "error", Content: "unknown message type " + strconv.Quote(msg.Type)}
}

func errorMessage(ctx context.Context, err error) Message {
	if errors.Is(err, store.ErrNotFound) {
		return Message{Type: "error", Content: "not found"}
	}
	logging.From(ctx).Error("store failure", "error", err)
	return Message{Type: "error", Content: "internal error"}
}

func (s *Server) sendMessage(ctx context.Context, conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		logging.From(ctx).Warn("error sending message", "error", err)
	}
}
