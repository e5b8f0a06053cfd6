package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/yt-download-go/internal/progress"
)

// ProgressHandler streams download progress to clients
type ProgressHandler struct {
	registry *progress.Registry
	logger   *zap.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(registry *progress.Registry, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		registry: registry,
		logger:   logger,
	}
}

// subscribe binds a sink to the named session, or to the latest one when
// no session is given.
func (h *ProgressHandler) subscribe(c *gin.Context) (*progress.Sink, error) {
	if id := c.Query("session"); id != "" {
		return h.registry.Subscribe(id)
	}
	return h.registry.SubscribeLatest(), nil
}

// Stream handles GET /youtube/progress as server-sent events. Each event's
// data is one JSON progress record; the response ends when the session's
// channel closes.
func (h *ProgressHandler) Stream(c *gin.Context) {
	sink, err := h.subscribe(c)
	if err != nil {
		writeError(c, err)
		return
	}
	defer sink.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "Cache-Control")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	h.logger.Debug("Progress stream opened",
		zap.String("session", c.Query("session")),
		zap.String("remote_addr", c.Request.RemoteAddr))

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		record, ok := sink.Next(ctx)
		if !ok {
			return false
		}
		data, err := json.Marshal(record)
		if err != nil {
			h.logger.Error("Failed to marshal progress record", zap.Error(err))
			return true
		}
		c.Render(-1, sse.Event{Data: string(data)})
		return true
	})

	h.logger.Debug("Progress stream closed", zap.String("remote_addr", c.Request.RemoteAddr))
}
