package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yungbote/companion-backend/internal/platform/logger"
	"github.com/yungbote/companion-backend/internal/realtime"
)

type RealtimeHandler struct {
	log      *logger.Logger
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewRealtimeHandler accepts sockets from allowedOrigins, or from any origin
// when the list is empty.
func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub, allowedOrigins []string) *RealtimeHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &RealtimeHandler{
		log: log.With("handler", "RealtimeHandler"),
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// GET /api/v1/messages/ws
func (h *RealtimeHandler) Connect(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		h.log.Warn("ws upgrade failed", "user_id", userID, "error", err)
		return
	}

	conn := realtime.NewWSConn(ws, h.log)
	ctx := c.Request.Context()
	if err := h.hub.Attach(ctx, userID, conn); err != nil {
		h.log.Error("ws attach failed", "user_id", userID, "error", err)
		conn.Close()
		// Run drains the close handshake
		conn.Run(ctx)
		return
	}
	h.log.Info("ws open", "user_id", userID, "conn_id", conn.ID())

	conn.Run(ctx)

	h.hub.Detach(userID, conn)
	h.log.Info("ws closed", "user_id", userID, "conn_id", conn.ID())
}
