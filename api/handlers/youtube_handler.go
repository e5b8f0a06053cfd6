package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/yt-download-go/internal/app"
	"github.com/yourusername/yt-download-go/internal/domain"
	"github.com/yourusername/yt-download-go/internal/progress"
)

// YoutubeHandler handles resolution listing and download requests
type YoutubeHandler struct {
	orchestrator *app.DownloadOrchestrator
	lister       *app.ResolutionLister
	registry     *progress.Registry
	logger       *zap.Logger
}

// NewYoutubeHandler creates a new youtube handler
func NewYoutubeHandler(
	orchestrator *app.DownloadOrchestrator,
	lister *app.ResolutionLister,
	registry *progress.Registry,
	logger *zap.Logger,
) *YoutubeHandler {
	return &YoutubeHandler{
		orchestrator: orchestrator,
		lister:       lister,
		registry:     registry,
		logger:       logger,
	}
}

// DownloadRequest represents a request to download a video
type DownloadRequest struct {
	URL        string `json:"url" binding:"required"`
	Resolution int    `json:"resolution" binding:"required,gt=0"`
}

// StartedResponse is returned when a download is started asynchronously
type StartedResponse struct {
	SessionID string `json:"session_id"`
	StatusURL string `json:"status_url"`
	StreamURL string `json:"stream_url"`
}

// SessionStatus is a download session's state plus its live stream state
type SessionStatus struct {
	domain.Download
	Streaming   bool `json:"streaming"`
	Subscribers int  `json:"subscribers"`
}

// Resolutions handles GET /youtube/resolutions?url=
func (h *YoutubeHandler) Resolutions(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}

	descriptors, err := h.lister.List(c.Request.Context(), url)
	if err != nil {
		h.logger.Error("Failed to list resolutions", zap.String("url", url), zap.Error(err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, descriptors)
}

// Download handles POST /youtube/download. The response is sent once the
// worker exits; the download keeps running if the client goes away.
func (h *YoutubeHandler) Download(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.orchestrator.Download(c.Request.Context(), req.URL, req.Resolution)
	if err != nil {
		if c.Request.Context().Err() != nil {
			h.logger.Info("Client left before download finished", zap.String("url", req.URL))
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// StartDownload handles POST /youtube/downloads
func (h *YoutubeHandler) StartDownload(c *gin.Context) {
	var req DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := h.orchestrator.Start(req.URL, req.Resolution)
	if err != nil {
		writeError(c, err)
		return
	}
	id := inv.Session().ID()

	c.JSON(http.StatusAccepted, StartedResponse{
		SessionID: id,
		StatusURL: "/youtube/downloads/" + id,
		StreamURL: "/youtube/progress?session=" + id,
	})
}

// GetDownload handles GET /youtube/downloads/:id
func (h *YoutubeHandler) GetDownload(c *gin.Context) {
	session, err := h.registry.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	channel := session.Channel()
	c.JSON(http.StatusOK, SessionStatus{
		Download:    session.Snapshot(),
		Streaming:   !channel.Closed(),
		Subscribers: channel.SubscriberCount(),
	})
}
