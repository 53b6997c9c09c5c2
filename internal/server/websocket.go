package server

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// wsMessage is one frame in either direction of the chat socket.
type wsMessage struct {
	Message  string `json:"message"`
	Products any    `json:"products,omitempty"`
	Error    string `json:"error,omitempty"`
}

// chatSocket streams a conversation over a websocket. Each client
// frame is one user turn; each server frame carries the assistant
// reply and the current product set.
func (s *Server) chatSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id := c.Param("id")
	slog.Info("chat socket opened", "conversation", id)

	for {
		var in wsMessage
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("chat socket read failed", "conversation", id, "error", err)
			}
			return
		}
		if in.Message == "" {
			if err := conn.WriteJSON(wsMessage{Error: "message must not be empty"}); err != nil {
				return
			}
			continue
		}

		state := s.conversations.Get(id)
		s.engine.Turn(c.Request.Context(), state, in.Message)
		s.conversations.Put(id, state)

		out := wsMessage{Message: state.LastAssistantMessage(), Products: state.Products}
		if err := conn.WriteJSON(out); err != nil {
			slog.Warn("chat socket write failed", "conversation", id, "error", err)
			return
		}
	}
}
