package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/yt-download-go/internal/domain"
)

const pingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware already governs origins
	},
}

// StreamWebSocket handles GET /youtube/progress/ws. It carries the same
// records as the SSE stream, one JSON text message each, and closes with a
// normal-closure frame when the session ends.
func (h *ProgressHandler) StreamWebSocket(c *gin.Context) {
	sink, err := h.subscribe(c)
	if err != nil {
		writeError(c, err)
		return
	}
	defer sink.Close()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("WebSocket client connected",
		zap.String("session", c.Query("session")),
		zap.String("remote_addr", c.Request.RemoteAddr))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Read messages from client (for ping/pong and close)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	records := make(chan domain.ProgressRecord)
	go func() {
		defer close(records)
		for {
			record, ok := sink.Next(ctx)
			if !ok {
				return
			}
			select {
			case records <- record:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case record, ok := <-records:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				return
			}
			data, err := json.Marshal(record)
			if err != nil {
				h.logger.Error("Failed to marshal progress record", zap.Error(err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Warn("Failed to send progress record", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
